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
	defaultFacebookAuthURL    = "https://www.facebook.com/v18.0/dialog/oauth"
	defaultFacebookTokenURL   = "https://graph.facebook.com/v18.0/oauth/access_token"
	defaultFacebookProfileURL = "https://graph.facebook.com/v18.0/me"
)

// FacebookConfig configures the Facebook OAuth2 provider. The endpoint URLs
// default to the Graph API endpoints and are overridable in tests.
type FacebookConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration

	AuthURL    string
	TokenURL   string
	ProfileURL string
}

// FacebookProvider implements Provider for Facebook. The profile is fetched
// from the Graph API /me endpoint after the exchange.
type FacebookProvider struct {
	config FacebookConfig
	client *http.Client
}

// NewFacebookProvider creates a FacebookProvider from the given configuration.
func NewFacebookProvider(config FacebookConfig) *FacebookProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultFacebookAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultFacebookTokenURL
	}
	if config.ProfileURL == "" {
		config.ProfileURL = defaultFacebookProfileURL
	}

	return &FacebookProvider{
		config: config,
		client: newExchangeClient(config.Timeout),
	}
}

func (p *FacebookProvider) Name() string {
	return "facebook"
}

func (p *FacebookProvider) SubjectField() repository.ProviderField {
	return repository.ProviderFieldFacebook
}

func (p *FacebookProvider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// facebookProfile is the Graph API /me response.
type facebookProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p *FacebookProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
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

	var profile facebookProfile
	profileURL := p.config.ProfileURL + "?fields=id,name"
	if err := fetchJSON(ctx, p.client, profileURL, accessToken, &profile); err != nil {
		return nil, err
	}

	if profile.ID == "" {
		return nil, fmt.Errorf("%w: profile carries no subject id", ErrProviderDenied)
	}

	return &Profile{SubjectID: profile.ID, DisplayName: profile.Name}, nil
}

var _ Provider = (*FacebookProvider)(nil)
