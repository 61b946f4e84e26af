package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/natthaphon/secretkeeper/internal/model"
)

// StatusRecorder wraps http.ResponseWriter to capture the status code
// written downstream. Shared by the request logger and the metrics
// middleware.
type StatusRecorder struct {
	http.ResponseWriter
	Status  int
	written bool
}

// NewStatusRecorder wraps w, defaulting the recorded status to 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (sr *StatusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.Status = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *StatusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.Status = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

type userHolderKey struct{}

// userHolder carries the resolved identity from the authorization gate back
// up to the request logger. The gate runs downstream and attaches the user
// to a derived request context the logger never sees, so the logger
// pre-installs this mutable slot instead.
type userHolder struct {
	user *model.User
}

// RequestLogger logs one structured line per request: method, path, status
// and duration, plus the user id when the request passed the gate.
func RequestLogger(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := NewStatusRecorder(w)

			holder := &userHolder{}
			r = r.WithContext(context.WithValue(r.Context(), userHolderKey{}, holder))

			next.ServeHTTP(rec, r)

			event := logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.Status).
				Dur("duration", time.Since(start))

			if holder.user != nil {
				event = event.Str("user_id", holder.user.ID.Hex())
			}

			event.Msg("request")
		})
	}
}
