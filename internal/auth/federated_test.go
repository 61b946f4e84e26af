package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natthaphon/secretkeeper/internal/repository"
)

// stubProvider satisfies Provider without any network traffic.
type stubProvider struct {
	name    string
	field   repository.ProviderField
	profile *Profile
	err     error
}

func (s *stubProvider) Name() string                             { return s.name }
func (s *stubProvider) SubjectField() repository.ProviderField   { return s.field }
func (s *stubProvider) AuthCodeURL(state string) string          { return "https://provider.test/auth?state=" + state }
func (s *stubProvider) Exchange(context.Context, string) (*Profile, error) {
	return s.profile, s.err
}

func newTestFederated(t *testing.T) (*FederatedAuthenticator, repository.UserRepository) {
	t.Helper()

	users := repository.NewUserMemoryRepository()
	logger := zerolog.Nop()
	states := NewStateSigner([]byte("test-secret"), time.Minute)

	return NewFederatedAuthenticator(users, states, &logger), users
}

func TestFederatedCallbackResolvesIdentity(t *testing.T) {
	federated, _ := newTestFederated(t)
	provider := &stubProvider{
		name:    "google",
		field:   repository.ProviderFieldGoogle,
		profile: &Profile{SubjectID: "G-42", DisplayName: "Alice"},
	}

	authURL, err := federated.Begin(provider)
	require.NoError(t, err)

	state := authURL[len("https://provider.test/auth?state="):]

	user, err := federated.Callback(context.Background(), provider, "the-code", state, "")
	require.NoError(t, err)
	assert.Equal(t, "G-42", user.GoogleID)
	assert.Equal(t, "Alice", user.Username)
	assert.Empty(t, user.PasswordHash)
}

func TestFederatedCallbackIdempotent(t *testing.T) {
	federated, _ := newTestFederated(t)
	provider := &stubProvider{
		name:    "google",
		field:   repository.ProviderFieldGoogle,
		profile: &Profile{SubjectID: "G-42", DisplayName: "Alice"},
	}

	var ids []string
	for i := 0; i < 2; i++ {
		authURL, err := federated.Begin(provider)
		require.NoError(t, err)
		state := authURL[len("https://provider.test/auth?state="):]

		user, err := federated.Callback(context.Background(), provider, "the-code", state, "")
		require.NoError(t, err)
		ids = append(ids, user.ID.Hex())
	}

	assert.Equal(t, ids[0], ids[1], "two logins with the same subject id must resolve to one identity")
}

func TestFederatedCallbackFailures(t *testing.T) {
	federated, _ := newTestFederated(t)

	okProvider := &stubProvider{
		name:    "google",
		field:   repository.ProviderFieldGoogle,
		profile: &Profile{SubjectID: "G-42", DisplayName: "Alice"},
	}

	validState := func() string {
		authURL, err := federated.Begin(okProvider)
		require.NoError(t, err)
		return authURL[len("https://provider.test/auth?state="):]
	}

	tests := []struct {
		name     string
		provider Provider
		code     string
		state    string
		errParam string
		wantErr  error
	}{
		{
			name:     "user declined at provider",
			provider: okProvider,
			code:     "",
			state:    validState(),
			errParam: "access_denied",
			wantErr:  ErrProviderDenied,
		},
		{
			name:     "missing state",
			provider: okProvider,
			code:     "the-code",
			state:    "",
			wantErr:  ErrProviderDenied,
		},
		{
			name:     "missing code",
			provider: okProvider,
			code:     "",
			state:    validState(),
			wantErr:  ErrProviderDenied,
		},
		{
			name: "exchange failure",
			provider: &stubProvider{
				name:  "google",
				field: repository.ProviderFieldGoogle,
				err:   ErrProviderError,
			},
			code:    "the-code",
			state:   validState(),
			wantErr: ErrProviderError,
		},
		{
			name: "profile without subject id",
			provider: &stubProvider{
				name:    "google",
				field:   repository.ProviderFieldGoogle,
				profile: &Profile{DisplayName: "Alice"},
			},
			code:    "the-code",
			state:   validState(),
			wantErr: ErrProviderDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := federated.Callback(context.Background(), tt.provider, tt.code, tt.state, tt.errParam)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFederatedCallbackStateFromOtherProvider(t *testing.T) {
	federated, _ := newTestFederated(t)

	google := &stubProvider{
		name:    "google",
		field:   repository.ProviderFieldGoogle,
		profile: &Profile{SubjectID: "G-42", DisplayName: "Alice"},
	}
	facebook := &stubProvider{
		name:    "facebook",
		field:   repository.ProviderFieldFacebook,
		profile: &Profile{SubjectID: "F-7", DisplayName: "Bob"},
	}

	authURL, err := federated.Begin(google)
	require.NoError(t, err)
	state := authURL[len("https://provider.test/auth?state="):]

	_, err = federated.Callback(context.Background(), facebook, "the-code", state, "")
	assert.ErrorIs(t, err, ErrProviderDenied)
}
