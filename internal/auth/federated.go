package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/natthaphon/secretkeeper/internal/model"
	"github.com/natthaphon/secretkeeper/internal/repository"
)

// FederatedAuthenticator runs the OAuth2 authorization-code handshake
// against a configured provider and maps the resulting profile onto a local
// identity via find-or-create.
type FederatedAuthenticator struct {
	users  repository.UserRepository
	states *StateSigner
	logger *zerolog.Logger
}

// NewFederatedAuthenticator creates a FederatedAuthenticator sharing one
// state signer across all providers.
func NewFederatedAuthenticator(
	users repository.UserRepository,
	states *StateSigner,
	logger *zerolog.Logger,
) *FederatedAuthenticator {
	return &FederatedAuthenticator{
		users:  users,
		states: states,
		logger: logger,
	}
}

// Begin starts the handshake: it issues a state value bound to the provider
// and returns the authorization URL the caller redirects the user to.
func (a *FederatedAuthenticator) Begin(p Provider) (string, error) {
	state, err := a.states.Issue(p.Name())
	if err != nil {
		return "", fmt.Errorf("issuing oauth state: %w", err)
	}

	return p.AuthCodeURL(state), nil
}

// Callback completes the handshake: it verifies the returned state, redeems
// the authorization code and resolves the profile to a local identity.
// A provider-reported denial (errParam) short-circuits before the exchange.
func (a *FederatedAuthenticator) Callback(
	ctx context.Context,
	p Provider,
	code, state, errParam string,
) (*model.User, error) {
	if errParam != "" {
		return nil, fmt.Errorf("%w: %s", ErrProviderDenied, errParam)
	}

	if err := a.states.Verify(state, p.Name()); err != nil {
		return nil, err
	}

	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrProviderDenied)
	}

	profile, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	return a.ResolveIdentity(ctx, p.SubjectField(), profile.SubjectID, profile.DisplayName)
}

// ResolveIdentity finds or creates the user holding the given provider
// subject id. Repeated calls with the same subject id resolve to the same
// user; an existing record is returned unmodified.
func (a *FederatedAuthenticator) ResolveIdentity(
	ctx context.Context,
	field repository.ProviderField,
	subjectID string,
	displayName string,
) (*model.User, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("%w: empty provider subject id", ErrProviderDenied)
	}

	user, err := a.users.FindOrCreateByProvider(ctx, field, subjectID, displayName)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("provider_field", string(field)).
		Str("user_id", user.ID.Hex()).
		Msg("federated identity resolved")

	return user, nil
}
