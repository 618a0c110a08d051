// Package overlay repaints the usernames on a host page with their
// community ratings.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mcoot/cfratings/internal/dependencies/clock"
	"github.com/mcoot/cfratings/internal/metrics"
	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/services/ratingcache"
	"github.com/mcoot/cfratings/internal/storage"
)

// DefaultTargetHost is the host site the overlay runs on
const DefaultTargetHost = "codeforces.com"

// UserSelector matches the username links the host site renders
const UserSelector = "a.rated-user"

// ErrForeignHost is returned for pages outside the target host
var ErrForeignHost = errors.New("page is not on the target host")

// Proxy is the part of the session proxy the overlay talks to
type Proxy interface {
	GetAuthState(ctx context.Context) (model.AuthSnapshot, error)
	FetchUserRatings(ctx context.Context, usernames []string, groupID model.GroupID) ([]model.UserRating, error)
}

// Config holds engine settings
type Config struct {
	// TargetHost and its subdomains are the only hosts the engine rewrites
	TargetHost string
}

// Report describes what one pass did to a page
type Report struct {
	Applied    bool   `json:"applied"`
	Skipped    string `json:"skipped,omitempty"`
	Elements   int    `json:"elements"`
	Fetched    int    `json:"fetched"`
	Rated      int    `json:"rated"`
	NonMembers int    `json:"non_members"`
	Untouched  int    `json:"untouched"`
}

// Skip reasons
const (
	SkipNotAuthenticated = "not authenticated"
	SkipNoGroup          = "no group selected"
	SkipFetchFailed      = "rating fetch failed"
)

// Engine runs one overlay pass per page
type Engine struct {
	proxy      Proxy
	storage    storage.Storage
	clock      clock.Clock
	logger     *slog.Logger
	metrics    *metrics.Manager
	targetHost string
}

// New creates an overlay engine
func New(proxy Proxy, store storage.Storage, clk clock.Clock, logger *slog.Logger, m *metrics.Manager, cfg Config) *Engine {
	host := strings.ToLower(cfg.TargetHost)
	if host == "" {
		host = DefaultTargetHost
	}
	return &Engine{
		proxy:      proxy,
		storage:    store,
		clock:      clk,
		logger:     logger,
		metrics:    m,
		targetHost: host,
	}
}

// Matches reports whether pageURL is on the target host or one of its subdomains
func (e *Engine) Matches(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == e.targetHost || strings.HasSuffix(host, "."+e.targetHost)
}

// Apply repaints every rated-user element in doc once. Elements added to
// doc afterwards are not processed. Session and network problems leave the
// page unchanged and are reported, not returned.
func (e *Engine) Apply(ctx context.Context, pageURL string, doc *goquery.Document) (Report, error) {
	if !e.Matches(pageURL) {
		e.logger.Debug("overlay skipped on foreign host", slog.String("url", pageURL))
		e.metrics.OverlayRun(metrics.RunForeignHost)
		return Report{}, ErrForeignHost
	}

	state, err := e.proxy.GetAuthState(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("get auth state: %w", err)
	}
	if !state.IsAuthenticated {
		return e.skip(SkipNotAuthenticated, pageURL), nil
	}
	if !state.HasGroup() {
		return e.skip(SkipNoGroup, pageURL), nil
	}

	cache := ratingcache.New(e.storage, e.logger, e.metrics)
	if err := cache.Load(ctx); err != nil {
		e.logger.Warn("using empty rating cache", slog.String("error", err.Error()))
	}
	mode := e.displayMode(ctx)

	elements := collect(doc)
	usernames := make([]string, 0, len(elements))
	for _, el := range elements {
		usernames = append(usernames, el.username)
	}

	report := Report{Elements: len(elements)}

	_, stale := cache.Partition(usernames, clock.NowMillis(e.clock))
	if len(stale) > 0 {
		ratings, err := e.proxy.FetchUserRatings(ctx, stale, state.SelectedGroup.ID)
		if err != nil {
			e.logger.Warn("rating fetch failed, page left unchanged",
				slog.String("url", pageURL),
				slog.Int("usernames", len(stale)),
				slog.String("error", err.Error()),
			)
			e.metrics.OverlayRun(metrics.RunFetchFailed)
			return Report{Elements: len(elements), Skipped: SkipFetchFailed}, nil
		}
		cache.Merge(ratings)
		report.Fetched = len(ratings)
		if err := cache.Persist(ctx); err != nil {
			e.logger.Warn("persist rating cache failed", slog.String("error", err.Error()))
		}
	}

	for _, el := range elements {
		entry, ok := cache.Get(el.username)
		switch {
		case !ok:
			report.Untouched++
			e.metrics.OverlayElement(metrics.OutcomeUntouched)
		case entry.Rating != nil:
			paintRated(el.sel, *entry.Rating)
			report.Rated++
			e.metrics.OverlayElement(metrics.OutcomeRated)
		default:
			paintNonMember(el.sel, mode)
			report.NonMembers++
			e.metrics.OverlayElement(metrics.OutcomeNonMember)
		}
	}

	report.Applied = true
	e.metrics.OverlayRun(metrics.RunApplied)
	e.logger.Debug("overlay applied",
		slog.String("url", pageURL),
		slog.Int("elements", report.Elements),
		slog.Int("fetched", report.Fetched),
	)
	return report, nil
}

func (e *Engine) skip(reason, pageURL string) Report {
	e.logger.Info("overlay skipped", slog.String("reason", reason), slog.String("url", pageURL))
	e.metrics.OverlayRun(metrics.RunNoSession)
	return Report{Skipped: reason}
}

func (e *Engine) displayMode(ctx context.Context) model.NonMemberDisplay {
	mode, err := e.storage.GetNonMemberDisplay(ctx)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			e.logger.Warn("load display preference failed", slog.String("error", err.Error()))
		}
		return model.DefaultNonMemberDisplay
	}
	if !mode.Valid() {
		return model.DefaultNonMemberDisplay
	}
	return mode
}

type element struct {
	sel      *goquery.Selection
	username string
}

// collect returns the rated-user elements with a non-blank username
func collect(doc *goquery.Document) []element {
	var out []element
	doc.Find(UserSelector).Each(func(_ int, sel *goquery.Selection) {
		username := strings.TrimSpace(sel.Text())
		if username == "" {
			return
		}
		out = append(out, element{sel: sel, username: username})
	})
	return out
}
