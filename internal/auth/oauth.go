package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/natthaphon/secretkeeper/internal/repository"
)

// Profile is the subset of an external provider's profile the gateway needs
// to resolve a local identity.
type Profile struct {
	SubjectID   string
	DisplayName string
}

// Provider drives the provider-specific half of the OAuth2
// authorization-code flow. Implementations differ only in configuration and
// profile-shape mapping; the handshake itself is shared.
type Provider interface {
	// Name is the provider's short name, used in the state parameter and logs.
	Name() string

	// SubjectField names the user attribute that stores this provider's
	// subject identifier.
	SubjectField() repository.ProviderField

	// AuthCodeURL builds the provider authorization URL the user is
	// redirected to at the start of the handshake.
	AuthCodeURL(state string) string

	// Exchange redeems an authorization code for an access token and
	// resolves the profile behind it.
	Exchange(ctx context.Context, code string) (*Profile, error)
}

const defaultExchangeTimeout = 10 * time.Second

// newExchangeClient returns the HTTP client used for token-exchange and
// profile-fetch calls. A timeout surfaces as ErrProviderError.
func newExchangeClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultExchangeTimeout
	}
	return &http.Client{Timeout: timeout}
}

// tokenResponse is the common shape of the providers' token endpoints.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// exchangeToken posts the authorization code to the provider's token
// endpoint and returns the access token.
func exchangeToken(ctx context.Context, client *http.Client, tokenURL string, data url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: building token request: %v", ErrProviderError, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading token response: %v", ErrProviderError, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned status %d", ErrProviderError, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("%w: parsing token response: %v", ErrProviderError, err)
	}

	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrProviderDenied)
	}

	return token.AccessToken, nil
}

// fetchJSON performs an authorized GET against a provider profile endpoint
// and decodes the response into out.
func fetchJSON(ctx context.Context, client *http.Client, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: building profile request: %v", ErrProviderError, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: profile request: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: profile endpoint returned status %d", ErrProviderError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: parsing profile response: %v", ErrProviderError, err)
	}

	return nil
}
