package factory

import (
	"testing"
	"time"

	"github.com/mcoot/cfratings/internal/community"
	"github.com/mcoot/cfratings/internal/dependencies/mocks"
	"github.com/mcoot/cfratings/internal/metrics"
	"github.com/mcoot/cfratings/internal/storage/memory"
	"github.com/mcoot/cfratings/internal/testutil"
	"github.com/mcoot/cfratings/internal/testutil/fakeapi"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	API       *fakeapi.Server
	Memory    *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked
// dependencies and a fake community API seeded with SeedData
func NewTestApp(t testing.TB) *TestApp {
	t.Helper()

	api := fakeapi.New(t)
	SeedData(api)

	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	client := community.NewClient(community.Config{BaseURL: api.URL})

	app := newWithDependencies(store, mockClock, client, metrics.New(), Config{}, testutil.NopLogger())
	app.Community = client
	if err := app.Start(t.Context()); err != nil {
		t.Fatalf("start test app: %v", err)
	}

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		API:       api,
		Memory:    store,
	}
}
