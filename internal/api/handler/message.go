package handler

import (
	"fmt"
	"net/http"

	go_json "github.com/goccy/go-json"

	"github.com/mcoot/cfratings/internal/api/response"
	"github.com/mcoot/cfratings/internal/message"
)

// MessageHandler serves the session proxy message endpoint
type MessageHandler struct {
	dispatcher *message.Dispatcher
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(dispatcher *message.Dispatcher) *MessageHandler {
	return &MessageHandler{
		dispatcher: dispatcher,
	}
}

// Handle handles POST /api/v1/messages. Known actions always answer 200
// with a result envelope, including when the operation failed.
func (h *MessageHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req message.Request
	if err := go_json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Action == "" {
		WriteError(w, NewInvalidRequestError("action is required"))
		return
	}
	if err := validate(req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.dispatcher.Handle(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// validate checks the fields each action needs to be well-formed
func validate(req message.Request) error {
	switch req.Action {
	case message.ActionLogin:
		if req.Username == "" {
			return NewInvalidRequestError("username is required")
		}
		if req.Password == "" {
			return NewInvalidRequestError("password is required")
		}
	case message.ActionFetchUserRatings:
		for i, u := range req.Usernames {
			if u == "" {
				return NewInvalidRequestError(fmt.Sprintf("usernames[%d] is empty", i))
			}
		}
	}
	return nil
}
