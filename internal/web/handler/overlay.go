package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mcoot/cfratings/internal/api/apierr"
	"github.com/mcoot/cfratings/internal/services/overlay"
)

// Report headers set on proxied pages
const (
	HeaderOverlayApplied = "X-Overlay-Applied"
	HeaderOverlaySkipped = "X-Overlay-Skipped"
	HeaderOverlayRated   = "X-Overlay-Rated"
)

// OverlayHandler serves host pages with the overlay applied
type OverlayHandler struct {
	engine  *overlay.Engine
	fetcher *overlay.Fetcher
	logger  *slog.Logger
}

// NewOverlayHandler creates a new OverlayHandler
func NewOverlayHandler(engine *overlay.Engine, fetcher *overlay.Fetcher, logger *slog.Logger) *OverlayHandler {
	return &OverlayHandler{
		engine:  engine,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Page handles GET /overlay?url=<page>
func (h *OverlayHandler) Page(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("url is required"))
		return
	}
	if !h.engine.Matches(pageURL) {
		apierr.WriteError(w, overlay.ErrForeignHost)
		return
	}

	doc, err := h.fetcher.Fetch(r.Context(), pageURL)
	if err != nil {
		h.logger.Warn("fetch host page failed", slog.String("url", pageURL), slog.String("error", err.Error()))
		apierr.WriteError(w, apierr.NewUpstreamError("Could not fetch page"))
		return
	}

	report, err := h.engine.Apply(r.Context(), pageURL, doc)
	if err != nil && !errors.Is(err, overlay.ErrForeignHost) {
		// The page is still served, unchanged
		h.logger.Warn("overlay failed", slog.String("url", pageURL), slog.String("error", err.Error()))
	}

	html, err := doc.Html()
	if err != nil {
		apierr.WriteError(w, apierr.NewInternalError())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(HeaderOverlayApplied, strconv.FormatBool(report.Applied))
	w.Header().Set(HeaderOverlayRated, strconv.Itoa(report.Rated))
	if report.Skipped != "" {
		w.Header().Set(HeaderOverlaySkipped, report.Skipped)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}
