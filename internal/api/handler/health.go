package handler

import (
	"net/http"

	"github.com/mcoot/cfratings/internal/api/response"
	"github.com/mcoot/cfratings/internal/message"
)

// HealthHandler reports liveness and the session summary
type HealthHandler struct {
	proxy message.Proxy
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(proxy message.Proxy) *HealthHandler {
	return &HealthHandler{proxy: proxy}
}

// Check handles GET /api/v1/health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	state, err := h.proxy.GetAuthState(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.HealthFromState(state))
}
