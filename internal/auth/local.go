package auth

import (
	"context"
	"errors"

	"github.com/natthaphon/secretkeeper/internal/model"
	"github.com/natthaphon/secretkeeper/internal/repository"
	"github.com/natthaphon/secretkeeper/internal/security"
)

// LocalAuthenticator verifies username/password credentials against the
// user store.
type LocalAuthenticator struct {
	users repository.UserRepository
}

// NewLocalAuthenticator creates a LocalAuthenticator backed by the given
// user repository.
func NewLocalAuthenticator(users repository.UserRepository) *LocalAuthenticator {
	return &LocalAuthenticator{users: users}
}

// Authenticate resolves the user by username and verifies the password
// against its stored hash. An unknown username, a missing local credential
// and a wrong password all surface as ErrInvalidCredentials.
func (a *LocalAuthenticator) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if user.PasswordHash == "" {
		// Federated-only identity; it has no local credential to verify.
		return nil, ErrInvalidCredentials
	}

	if ok, err := security.VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Register creates a local identity from a username and password.
func (a *LocalAuthenticator) Register(ctx context.Context, username, password string) (*model.User, error) {
	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := a.users.CreateUser(ctx, &model.User{
		Username:     username,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}

		return nil, err
	}

	return user, nil
}
