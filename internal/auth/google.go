package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/natthaphon/secretkeeper/internal/repository"
)

const (
	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// GoogleConfig configures the Google OAuth2 provider. The endpoint URLs
// default to Google's well-known endpoints and are overridable in tests.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleProvider implements Provider for Google. Google does not include
// profile claims in the token response, so the profile is fetched from the
// userinfo endpoint after the exchange.
type GoogleProvider struct {
	config GoogleConfig
	client *http.Client
}

// NewGoogleProvider creates a GoogleProvider from the given configuration.
func NewGoogleProvider(config GoogleConfig) *GoogleProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultGoogleAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultGoogleUserInfoURL
	}

	return &GoogleProvider{
		config: config,
		client: newExchangeClient(config.Timeout),
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) SubjectField() repository.ProviderField {
	return repository.ProviderFieldGoogle
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"profile"},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// googleUserInfo is the userinfo endpoint response.
type googleUserInfo struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	accessToken, err := exchangeToken(ctx, p.client, p.config.TokenURL, url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	})
	if err != nil {
		return nil, err
	}

	var info googleUserInfo
	if err := fetchJSON(ctx, p.client, p.config.UserInfoURL, accessToken, &info); err != nil {
		return nil, err
	}

	if info.Sub == "" {
		return nil, fmt.Errorf("%w: profile carries no subject id", ErrProviderDenied)
	}

	return &Profile{SubjectID: info.Sub, DisplayName: info.Name}, nil
}

var _ Provider = (*GoogleProvider)(nil)
