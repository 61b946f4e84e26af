package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultStateTTL = 10 * time.Minute

// stateClaims is the payload of the signed OAuth state parameter. The state
// correlates an authorization redirect with its callback and must match the
// provider it was issued for. Nothing server-side is reserved for a pending
// handshake; an abandoned state simply expires.
type stateClaims struct {
	Provider string `json:"prv"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies the OAuth2 state parameter as a
// short-lived HS256 token.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewStateSigner creates a StateSigner with the given secret. A zero ttl
// falls back to ten minutes.
func NewStateSigner(secret []byte, ttl time.Duration) *StateSigner {
	if ttl == 0 {
		ttl = defaultStateTTL
	}
	return &StateSigner{secret: secret, ttl: ttl}
}

// Issue creates a state value bound to the given provider.
func (s *StateSigner) Issue(provider string) (string, error) {
	now := time.Now()
	claims := stateClaims{
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks that the state was issued by this gateway for the given
// provider and has not expired.
func (s *StateSigner) Verify(state, provider string) error {
	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return fmt.Errorf("%w: state: %v", ErrProviderDenied, err)
	}

	if !token.Valid || claims.Provider != provider {
		return fmt.Errorf("%w: state does not match provider", ErrProviderDenied)
	}

	return nil
}
