package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mcoot/cfratings/internal/message"
	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/storage"
	"github.com/mcoot/cfratings/internal/web/middleware"
	"github.com/mcoot/cfratings/internal/web/templates/layout"
	"github.com/mcoot/cfratings/internal/web/templates/pages"
)

// PopupHandler serves the popup views and form actions
type PopupHandler struct {
	proxy   message.Proxy
	storage storage.Storage
	logger  *slog.Logger
}

// NewPopupHandler creates a new PopupHandler
func NewPopupHandler(proxy message.Proxy, store storage.Storage, logger *slog.Logger) *PopupHandler {
	return &PopupHandler{
		proxy:   proxy,
		storage: store,
		logger:  logger,
	}
}

// View renders the login view or the main view from the request's auth snapshot
func (h *PopupHandler) View(w http.ResponseWriter, r *http.Request) {
	state := middleware.GetAuthState(r.Context())
	flash := middleware.GetFlash(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if !state.IsAuthenticated || state.User == nil {
		data := pages.LoginData{
			PageData: layout.PageData{Title: "Sign in", Flash: flash},
			Username: r.URL.Query().Get("username"),
		}
		if err := pages.Login(data).Render(r.Context(), w); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	data := pages.MainData{
		PageData:      layout.PageData{Title: "Ratings", Flash: flash},
		User:          state.User,
		SelectedGroup: state.SelectedGroup,
		Display:       h.displayMode(r),
	}

	groups, err := h.proxy.ListGroups(r.Context())
	if err != nil {
		h.logger.Warn("list groups failed", slog.String("error", err.Error()))
		data.GroupsError = "Could not load groups"
	} else {
		data.Groups = groups
	}

	if err := pages.Main(data).Render(r.Context(), w); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Login handles login form submission
func (h *PopupHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.SetFlash(w, middleware.FlashError, "Invalid form data")
		http.Redirect(w, r, "/popup", http.StatusSeeOther)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		middleware.SetFlash(w, middleware.FlashError, "Username and password are required")
		http.Redirect(w, r, "/popup", http.StatusSeeOther)
		return
	}

	user, err := h.proxy.Login(r.Context(), username, password)
	if err != nil {
		msg := "Login failed: " + err.Error()
		if errors.Is(err, model.ErrInvalidCredentials) {
			msg = "Invalid username or password"
		}
		middleware.SetFlash(w, middleware.FlashError, msg)
		http.Redirect(w, r, "/popup?username="+url.QueryEscape(username), http.StatusSeeOther)
		return
	}

	middleware.SetFlash(w, middleware.FlashSuccess, "Welcome, "+user.Username+"!")
	http.Redirect(w, r, "/popup", http.StatusSeeOther)
}

// Logout handles logout
func (h *PopupHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.proxy.Logout(r.Context()); err != nil {
		h.logger.Warn("logout failed", slog.String("error", err.Error()))
	}
	middleware.SetFlash(w, middleware.FlashInfo, "Logged out")
	http.Redirect(w, r, "/popup", http.StatusSeeOther)
}

// SelectGroup handles the group select. An empty value clears the selection.
func (h *PopupHandler) SelectGroup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.SetFlash(w, middleware.FlashError, "Invalid form data")
		http.Redirect(w, r, "/popup", http.StatusSeeOther)
		return
	}

	raw := strings.TrimSpace(r.FormValue("group_id"))
	if raw == "" {
		if err := h.proxy.SetSelectedGroup(r.Context(), nil); err != nil {
			h.fail(w, r, "Could not clear group", err)
			return
		}
		middleware.SetFlash(w, middleware.FlashInfo, "Group cleared")
		http.Redirect(w, r, "/popup", http.StatusSeeOther)
		return
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.SetFlash(w, middleware.FlashError, "Invalid group")
		http.Redirect(w, r, "/popup", http.StatusSeeOther)
		return
	}

	group := h.lookupGroup(r, model.GroupID(id))
	if err := h.proxy.SetSelectedGroup(r.Context(), &group); err != nil {
		h.fail(w, r, "Could not save group", err)
		return
	}

	label := group.Name
	if label == "" {
		label = "group " + raw
	}
	middleware.SetFlash(w, middleware.FlashSuccess, "Selected "+label)
	http.Redirect(w, r, "/popup", http.StatusSeeOther)
}

// SetPreference stores the non-member display mode. It writes to storage
// directly rather than through the session proxy.
func (h *PopupHandler) SetPreference(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.SetFlash(w, middleware.FlashError, "Invalid form data")
		http.Redirect(w, r, "/popup", http.StatusSeeOther)
		return
	}

	mode := model.NonMemberDisplay(r.FormValue("mode"))
	if !mode.Valid() {
		middleware.SetFlash(w, middleware.FlashError, model.ErrInvalidDisplayMode.Error())
		http.Redirect(w, r, "/popup", http.StatusSeeOther)
		return
	}

	if err := h.storage.SaveNonMemberDisplay(r.Context(), mode); err != nil {
		h.fail(w, r, "Could not save preference", err)
		return
	}

	middleware.SetFlash(w, middleware.FlashSuccess, "Preference saved")
	http.Redirect(w, r, "/popup", http.StatusSeeOther)
}

// lookupGroup resolves the group name from the API list, falling back to
// a bare ID when the list is unavailable
func (h *PopupHandler) lookupGroup(r *http.Request, id model.GroupID) model.Group {
	groups, err := h.proxy.ListGroups(r.Context())
	if err != nil {
		h.logger.Warn("list groups failed", slog.String("error", err.Error()))
		return model.Group{ID: id}
	}
	for _, g := range groups {
		if g.ID == id {
			return g
		}
	}
	return model.Group{ID: id}
}

func (h *PopupHandler) displayMode(r *http.Request) model.NonMemberDisplay {
	mode, err := h.storage.GetNonMemberDisplay(r.Context())
	if err != nil || !mode.Valid() {
		return model.DefaultNonMemberDisplay
	}
	return mode
}

func (h *PopupHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, slog.String("error", err.Error()))
	middleware.SetFlash(w, middleware.FlashError, msg)
	http.Redirect(w, r, "/popup", http.StatusSeeOther)
}
