// Package middleware provides the HTTP middleware chain: the authorization
// gate, request logging, metrics and rate limiting.
package middleware

import (
	"context"
	"net/http"

	"github.com/natthaphon/secretkeeper/internal/model"
	"github.com/natthaphon/secretkeeper/internal/session"
)

// loginPath is where unauthenticated requests to protected routes are sent.
const loginPath = "/login"

type contextKey struct{}

var userContextKey = contextKey{}

// RequireAuthenticated gates protected routes. It resolves the request's
// session cookie to a full identity and injects it into the request
// context. A missing cookie, an invalid session or a resolution failure is
// never an error condition: the request is deterministically redirected to
// the login entry point.
func RequireAuthenticated(sessions *session.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessions.TokenFromRequest(r)
			if token == "" {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			user, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// UserFromContext retrieves the authenticated user injected by
// RequireAuthenticated. Returns nil for unauthenticated requests.
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// ContextWithUser attaches the user to the context. Exposed for tests and
// for handlers mounted outside the gate. When the request logger installed
// its holder upstream, the identity is published there too.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	if holder, ok := ctx.Value(userHolderKey{}).(*userHolder); ok {
		holder.user = user
	}
	return context.WithValue(ctx, userContextKey, user)
}
