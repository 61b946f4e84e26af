// Package auth implements credential verification against the user store:
// local username/password authentication and the OAuth2 authorization-code
// flow against external identity providers.
package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for both an unknown username and a
	// wrong password, so callers cannot enumerate registered usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserAlreadyExists is returned when registering an already-taken
	// username.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrProviderDenied is returned when the user declined authorization at
	// the provider, or the provider yielded no usable profile.
	ErrProviderDenied = errors.New("provider denied authorization")

	// ErrProviderError is returned on a network or protocol failure while
	// talking to a provider.
	ErrProviderError = errors.New("provider request failed")
)
