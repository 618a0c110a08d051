package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// PanicHandler writes the error response for a recovered panic.
// requestID is empty when no logging middleware ran.
type PanicHandler func(w http.ResponseWriter, r *http.Request, requestID string)

// Recovery creates panic recovery middleware. The recovered panic is logged
// with the request ID so it can be matched to the request log line.
// http.ErrAbortHandler is re-raised for net/http to handle.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				// Logging may run inside Recovery, in which case only the
				// response header carries the ID.
				requestID := RequestID(r.Context())
				if requestID == "" {
					requestID = w.Header().Get(RequestIDHeader)
				}

				logger.Error("panic recovered",
					slog.Any("error", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", requestID),
				)

				handler(w, r, requestID)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// DefaultPanicHandler returns a simple 500 Internal Server Error
func DefaultPanicHandler(w http.ResponseWriter, _ *http.Request, _ string) {
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
