// Package session owns the session lifecycle: serializing an authenticated
// identity to a compact token on login, resolving the token back to the full
// identity on each request, and destroying it on logout.
//
// Sessions live in a single in-process store. The token carries nothing but
// a random identifier; the user reference held server-side is the user's id
// only, never secret material.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/natthaphon/secretkeeper/internal/model"
	"github.com/natthaphon/secretkeeper/internal/repository"
)

// ErrSessionInvalid is returned when a token no longer resolves to an
// identity: unknown token, expired session, or the user has vanished from
// the store. Callers treat it as "unauthenticated", never as a fault.
var ErrSessionInvalid = errors.New("session invalid")

const (
	defaultCookieName = "sk_session"
	defaultTTL        = 24 * time.Hour
	sweepInterval     = time.Minute
)

// Session associates a client's cookie with a user id.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Config configures the session manager and its cookie.
type Config struct {
	CookieName   string
	CookieDomain string
	CookieSecure bool
	TTL          time.Duration
}

// Manager is the in-process session store. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	users  repository.UserRepository
	config Config
	logger *zerolog.Logger
	done   chan struct{}
}

// NewManager creates a Manager resolving identities through the given user
// repository. A background goroutine sweeps expired sessions until Close is
// called.
func NewManager(users repository.UserRepository, config Config, logger *zerolog.Logger) *Manager {
	if config.CookieName == "" {
		config.CookieName = defaultCookieName
	}
	if config.TTL <= 0 {
		config.TTL = defaultTTL
	}

	m := &Manager{
		sessions: make(map[string]*Session),
		users:    users,
		config:   config,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go m.sweep()

	return m
}

// Close stops the background sweeper.
func (m *Manager) Close() {
	close(m.done)
}

// Create serializes the identity into a new session. The stored reference
// is the user's id only.
func (m *Manager) Create(user *model.User) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}

	now := time.Now()
	session := &Session{
		ID:        token,
		UserID:    user.ID.Hex(),
		ExpiresAt: now.Add(m.config.TTL),
		CreatedAt: now,
	}

	m.mu.Lock()
	m.sessions[token] = session
	m.mu.Unlock()

	return session, nil
}

// Resolve deserializes a token back to the full identity via the user
// store. An unknown or expired token, or a user id that no longer resolves,
// yields ErrSessionInvalid.
func (m *Manager) Resolve(ctx context.Context, token string) (*model.User, error) {
	m.mu.RLock()
	session, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionInvalid
	}

	user, err := m.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			m.Destroy(token)
			return nil, ErrSessionInvalid
		}

		return nil, err
	}

	return user, nil
}

// Destroy invalidates the session. Subsequent Resolve calls on the same
// token fail. Destroying an unknown token is a no-op, so logout always
// completes from the caller's perspective.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Attach binds the session to the response via an HttpOnly cookie.
func (m *Manager) Attach(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   m.config.CookieDomain,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes the session cookie from the client.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest extracts the session token from the request cookie.
// Returns the empty string when no cookie is attached.
func (m *Manager) TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// sweep periodically drops expired sessions.
func (m *Manager) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for token, session := range m.sessions {
				if now.After(session.ExpiresAt) {
					delete(m.sessions, token)
				}
			}
			m.mu.Unlock()
		}
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
