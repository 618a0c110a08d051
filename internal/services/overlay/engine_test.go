package overlay_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/cfratings/internal/community"
	"github.com/mcoot/cfratings/internal/dependencies/mocks"
	"github.com/mcoot/cfratings/internal/message"
	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/services/overlay"
	"github.com/mcoot/cfratings/internal/services/ratingcache"
	"github.com/mcoot/cfratings/internal/services/session"
	"github.com/mcoot/cfratings/internal/storage/memory"
	"github.com/mcoot/cfratings/internal/testutil"
	"github.com/mcoot/cfratings/internal/testutil/fakeapi"
)

const pageURL = "https://codeforces.com/contest/1/standings"

const standingsHTML = `<html><body><table>
<tr><td><a class="rated-user user-blue" href="/profile/alice">alice</a></td></tr>
<tr><td><a class="rated-user user-gray" href="/profile/bob">bob</a></td></tr>
<tr><td><a class="rated-user user-black" href="/profile/carol" style="font-weight: bold">carol</a></td></tr>
<tr><td><a class="rated-user" href="/profile/blank">   </a></td></tr>
<tr><td><a class="other-link" href="/profile/dave">dave</a></td></tr>
</table></body></html>`

// stubProxy records calls and answers from fixed data
type stubProxy struct {
	mu       sync.Mutex
	state    model.AuthSnapshot
	ratings  map[string]*int
	fetchErr error
	calls    [][]string
	now      func() int64
}

func (p *stubProxy) GetAuthState(context.Context) (model.AuthSnapshot, error) {
	return p.state, nil
}

func (p *stubProxy) FetchUserRatings(_ context.Context, usernames []string, _ model.GroupID) ([]model.UserRating, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]string{}, usernames...))
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	out := make([]model.UserRating, 0, len(usernames))
	for _, u := range usernames {
		out = append(out, model.UserRating{Username: u, Rating: p.ratings[u], Timestamp: p.now()})
	}
	return out, nil
}

type EngineSuite struct {
	suite.Suite
	proxy   *stubProxy
	storage *memory.Storage
	clock   *mocks.MockClock
	engine  *overlay.Engine
	ctx     context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	s.proxy = &stubProxy{
		state: model.AuthSnapshot{
			IsAuthenticated: true,
			User:            &model.User{ID: 1, Username: "alice"},
			SelectedGroup:   &model.Group{ID: 5, Name: "Club"},
		},
		ratings: map[string]*int{
			"alice": model.IntPtr(1550),
			"carol": model.IntPtr(2450),
		},
		now: func() int64 { return s.clock.Now().UnixMilli() },
	}
	s.storage = memory.New()
	s.ctx = context.Background()
	s.engine = overlay.New(s.proxy, s.storage, s.clock, testutil.NopLogger(), nil, overlay.Config{})
}

func (s *EngineSuite) doc() *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(standingsHTML))
	s.Require().NoError(err)
	return doc
}

func (s *EngineSuite) link(doc *goquery.Document, name string) *goquery.Selection {
	return doc.Find(`a[href="/profile/` + name + `"]`)
}

func (s *EngineSuite) TestRepaintsRatedAndNonMembers() {
	doc := s.doc()

	report, err := s.engine.Apply(s.ctx, pageURL, doc)
	s.Require().NoError(err)
	s.True(report.Applied)
	s.Equal(3, report.Elements)
	s.Equal(2, report.Rated)
	s.Equal(1, report.NonMembers)

	alice := s.link(doc, "alice")
	s.True(alice.HasClass("user-cyan"))
	s.False(alice.HasClass("user-blue"))
	s.True(alice.HasClass("rated-user"))
	s.Equal("color: #03A89E;", alice.AttrOr("style", ""))
	s.Equal("Community Rating: 1550 (Specialist)", alice.AttrOr("title", ""))

	bob := s.link(doc, "bob")
	s.Equal("opacity: 0.5;", bob.AttrOr("style", ""))
	s.True(bob.HasClass("user-gray"))
	s.Equal("bob", bob.Text())

	carol := s.link(doc, "carol")
	s.True(carol.HasClass("user-red"))
	s.False(carol.HasClass("user-black"))
	s.Equal("font-weight: bold; color: #FF0000;", carol.AttrOr("style", ""))
	s.Equal("Community Rating: 2450 (Grandmaster)", carol.AttrOr("title", ""))
}

func (s *EngineSuite) TestIgnoresOtherLinksAndBlankNames() {
	doc := s.doc()
	_, err := s.engine.Apply(s.ctx, pageURL, doc)
	s.Require().NoError(err)

	s.Require().Len(s.proxy.calls, 1)
	s.Equal([]string{"alice", "bob", "carol"}, s.proxy.calls[0])
	_, styled := s.link(doc, "dave").Attr("style")
	s.False(styled)
}

func (s *EngineSuite) TestStarMode() {
	s.Require().NoError(s.storage.SaveNonMemberDisplay(s.ctx, model.NonMemberStar))
	doc := s.doc()

	_, err := s.engine.Apply(s.ctx, pageURL, doc)
	s.Require().NoError(err)

	bob := s.link(doc, "bob")
	s.Equal("bob *", bob.Text())
	_, styled := bob.Attr("style")
	s.False(styled)
}

func (s *EngineSuite) TestPlainMode() {
	s.Require().NoError(s.storage.SaveNonMemberDisplay(s.ctx, model.NonMemberPlain))
	doc := s.doc()

	_, err := s.engine.Apply(s.ctx, pageURL, doc)
	s.Require().NoError(err)

	bob := s.link(doc, "bob")
	s.Equal("bob", bob.Text())
	_, styled := bob.Attr("style")
	s.False(styled)
}

func (s *EngineSuite) TestForeignHostLeavesPageAlone() {
	doc := s.doc()
	before, _ := doc.Html()

	_, err := s.engine.Apply(s.ctx, "https://example.com/profile/alice", doc)
	s.ErrorIs(err, overlay.ErrForeignHost)

	after, _ := doc.Html()
	s.Equal(before, after)
	s.Empty(s.proxy.calls)
}

func (s *EngineSuite) TestMatchesSubdomains() {
	s.True(s.engine.Matches("https://codeforces.com/"))
	s.True(s.engine.Matches("https://m1.codeforces.com/contest/1"))
	s.True(s.engine.Matches("http://CODEFORCES.COM/x"))
	s.False(s.engine.Matches("https://notcodeforces.com/"))
	s.False(s.engine.Matches("https://codeforces.com.evil.io/"))
	s.False(s.engine.Matches("::not a url"))
}

func (s *EngineSuite) TestNotAuthenticatedSkips() {
	s.proxy.state = model.AuthSnapshot{}
	doc := s.doc()

	report, err := s.engine.Apply(s.ctx, pageURL, doc)
	s.Require().NoError(err)
	s.False(report.Applied)
	s.Equal(overlay.SkipNotAuthenticated, report.Skipped)
	s.Empty(s.proxy.calls)
	s.True(s.link(doc, "alice").HasClass("user-blue"))
}

func (s *EngineSuite) TestNoGroupSkips() {
	s.proxy.state.SelectedGroup = nil

	report, err := s.engine.Apply(s.ctx, pageURL, s.doc())
	s.Require().NoError(err)
	s.Equal(overlay.SkipNoGroup, report.Skipped)
	s.Empty(s.proxy.calls)
}

func (s *EngineSuite) TestFetchFailureLeavesWholePageUnchanged() {
	// alice is cached and fresh, but the batch for the others fails
	s.Require().NoError(s.storage.PutRatingEntries(s.ctx, map[string]model.CacheEntry{
		"alice": {Rating: model.IntPtr(1550), Timestamp: s.clock.Now().UnixMilli()},
	}))
	s.proxy.fetchErr = errors.New("boom")
	doc := s.doc()
	before, _ := doc.Html()

	report, err := s.engine.Apply(s.ctx, pageURL, doc)
	s.Require().NoError(err)
	s.False(report.Applied)
	s.Equal(overlay.SkipFetchFailed, report.Skipped)

	after, _ := doc.Html()
	s.Equal(before, after)
}

func (s *EngineSuite) TestFreshEntriesAreNotRefetched() {
	_, err := s.engine.Apply(s.ctx, pageURL, s.doc())
	s.Require().NoError(err)

	s.clock.Advance(4 * time.Minute)
	_, err = s.engine.Apply(s.ctx, pageURL, s.doc())
	s.Require().NoError(err)

	s.Len(s.proxy.calls, 1)
}

func (s *EngineSuite) TestStaleEntriesAreRefetched() {
	_, err := s.engine.Apply(s.ctx, pageURL, s.doc())
	s.Require().NoError(err)

	s.clock.Advance(time.Duration(ratingcache.TTLMillis) * time.Millisecond)
	s.proxy.ratings["bob"] = model.IntPtr(1250)
	doc := s.doc()
	_, err = s.engine.Apply(s.ctx, pageURL, doc)
	s.Require().NoError(err)

	s.Require().Len(s.proxy.calls, 2)
	s.Equal([]string{"alice", "bob", "carol"}, s.proxy.calls[1])
	s.True(s.link(doc, "bob").HasClass("user-green"))
}

func (s *EngineSuite) TestOnlyStaleUsernamesFetched() {
	s.Require().NoError(s.storage.PutRatingEntries(s.ctx, map[string]model.CacheEntry{
		"alice": {Rating: model.IntPtr(3100), Timestamp: s.clock.Now().UnixMilli()},
	}))
	doc := s.doc()

	_, err := s.engine.Apply(s.ctx, pageURL, doc)
	s.Require().NoError(err)

	s.Require().Len(s.proxy.calls, 1)
	s.Equal([]string{"bob", "carol"}, s.proxy.calls[0])
	s.True(s.link(doc, "alice").HasClass("user-legendary"))
}

func (s *EngineSuite) TestCachePersisted() {
	_, err := s.engine.Apply(s.ctx, pageURL, s.doc())
	s.Require().NoError(err)

	stored, err := s.storage.GetRatingCache(s.ctx)
	s.Require().NoError(err)
	s.Len(stored, 3)
	s.Nil(stored["bob"].Rating)
	s.Equal(2450, *stored["carol"].Rating)
}

func (s *EngineSuite) TestEntryMissingFromResponseIsUntouched() {
	s.proxy.ratings = map[string]*int{}
	s.proxy.fetchErr = nil
	partial := &partialProxy{stubProxy: s.proxy, drop: "carol"}
	engine := overlay.New(partial, s.storage, s.clock, testutil.NopLogger(), nil, overlay.Config{})
	doc := s.doc()

	report, err := engine.Apply(s.ctx, pageURL, doc)
	s.Require().NoError(err)
	s.Equal(1, report.Untouched)

	carol := s.link(doc, "carol")
	s.True(carol.HasClass("user-black"))
	s.Equal("font-weight: bold", carol.AttrOr("style", ""))
}

type partialProxy struct {
	*stubProxy
	drop string
}

func (p *partialProxy) FetchUserRatings(ctx context.Context, usernames []string, groupID model.GroupID) ([]model.UserRating, error) {
	all, err := p.stubProxy.FetchUserRatings(ctx, usernames, groupID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.Username != p.drop {
			out = append(out, r)
		}
	}
	return out, nil
}

// End to end through the real session proxy and a fake community API
func TestOverlayEndToEnd(t *testing.T) {
	api := fakeapi.New(t)
	api.AddUser(model.User{ID: 1, Username: "alice", CFHandle: "alice"}, "pw")
	api.AddGroup(model.Group{ID: 5, Name: "Club"},
		model.GroupMember{UserID: 1, CFHandle: "alice", Rating: model.IntPtr(1550)},
		model.GroupMember{UserID: 3, CFHandle: "carol", Rating: model.IntPtr(2450)},
	)

	ctx := context.Background()
	store := memory.New()
	clk := mocks.NewMockClock(time.Unix(1_700_000_000, 0))
	svc := session.New(store, community.NewClient(community.Config{BaseURL: api.URL}), clk, testutil.NopLogger(), nil)
	if err := svc.Init(ctx); err != nil {
		t.Fatal(err)
	}
	dispatcher := message.NewDispatcher(svc, testutil.NopLogger())
	if _, err := dispatcher.Login(ctx, "alice", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := dispatcher.SetSelectedGroup(ctx, &model.Group{ID: 5, Name: "Club"}); err != nil {
		t.Fatal(err)
	}

	engine := overlay.New(dispatcher, store, clk, testutil.NopLogger(), nil, overlay.Config{TargetHost: "codeforces.com"})
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(standingsHTML))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := engine.Apply(ctx, pageURL, doc); err != nil {
		t.Fatal(err)
	}

	alice := doc.Find(`a[href="/profile/alice"]`)
	bob := doc.Find(`a[href="/profile/bob"]`)
	carol := doc.Find(`a[href="/profile/carol"]`)
	if !alice.HasClass("user-cyan") {
		t.Errorf("alice classes = %q, want user-cyan", alice.AttrOr("class", ""))
	}
	if got := bob.AttrOr("style", ""); got != "opacity: 0.5;" {
		t.Errorf("bob style = %q, want opacity 0.5", got)
	}
	if !carol.HasClass("user-red") {
		t.Errorf("carol classes = %q, want user-red", carol.AttrOr("class", ""))
	}
}
