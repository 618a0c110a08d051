// Package fakeapi is an in-process stand-in for the community REST API.
package fakeapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	go_json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/cfratings/internal/community"
	"github.com/mcoot/cfratings/internal/model"
)

type account struct {
	user         model.User
	passwordHash []byte
}

// Server serves the subset of the community API the session proxy calls
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]*account
	tokens    map[string]model.UserID
	groups    []model.Group
	members   map[model.GroupID][]model.GroupMember
	failures  map[string]int
	holds     map[string]chan struct{}
	requests  map[string]int
	nextToken int
}

// New starts a fake API server that is closed when the test ends
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]model.UserID),
		members:  make(map[model.GroupID][]model.GroupMember),
		failures: make(map[string]int),
		holds:    make(map[string]chan struct{}),
		requests: make(map[string]int),
	}

	r := mux.NewRouter()
	r.Use(s.track)
	r.HandleFunc(community.PathLogin, s.login).Methods(http.MethodPost)
	r.HandleFunc(community.PathUser, s.authed(s.getUser)).Methods(http.MethodGet)
	r.HandleFunc(community.PathGroups, s.authed(s.listGroups)).Methods(http.MethodGet)
	r.HandleFunc(community.PathGroupMembers, s.authed(s.groupMembers)).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an account
func (s *Server) AddUser(user model.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[user.Username] = &account{user: user, passwordHash: hash}
}

// AddGroup registers a group and its members
func (s *Server) AddGroup(group model.Group, members ...model.GroupMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, group)
	s.members[group.ID] = append(s.members[group.ID], members...)
}

// Fail makes every request to path answer with status
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

// RevokeTokens invalidates every issued token, like a server-side expiry
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]model.UserID)
}

// Hold makes requests to path wait until release is called. Requests are
// counted before they wait, so Requests shows how many are parked.
func (s *Server) Hold(path string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.holds[path] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, path)
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Requests returns how many requests hit path
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// TotalRequests returns how many requests the server has seen
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		status, failing := s.failures[r.URL.Path]
		gate := s.holds[r.URL.Path]
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if failing {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(next func(http.ResponseWriter, *http.Request, model.UserID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		userID, ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		next(w, r, userID)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid form"})
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[r.PostFormValue("username")]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(r.PostFormValue("password"))) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
		return
	}

	s.mu.Lock()
	s.nextToken++
	token := fmt.Sprintf("tok-%d", s.nextToken)
	s.tokens[token] = acc.user.ID
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, community.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      acc.user.ID,
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request, _ model.UserID) {
	id, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "user_id required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.ID == model.UserID(id) {
			writeJSON(w, http.StatusOK, acc.user)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found"})
}

func (s *Server) listGroups(w http.ResponseWriter, _ *http.Request, _ model.UserID) {
	s.mu.Lock()
	groups := append([]model.Group{}, s.groups...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) groupMembers(w http.ResponseWriter, r *http.Request, _ model.UserID) {
	id, err := strconv.ParseInt(r.URL.Query().Get("group_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "group_id required"})
		return
	}

	s.mu.Lock()
	members, ok := s.members[model.GroupID(id)]
	members = append([]model.GroupMember{}, members...)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Group not found"})
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = go_json.NewEncoder(w).Encode(v)
}
