package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/cfratings/internal/dependencies/clock"
)

// MockClock is a settable Clock for tests
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
}

var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// NewMockClockMillis creates a MockClock set to the given unix milliseconds
func NewMockClockMillis(ms int64) *MockClock {
	return NewMockClock(time.UnixMilli(ms))
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// Advance moves the clock forward by d
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.CurrentTime = c.CurrentTime.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.CurrentTime = t
	c.mu.Unlock()
}
