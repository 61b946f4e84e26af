// Package security provides password hashing and verification.
package security

import (
	"github.com/matthewhartstonge/argon2"
)

var argon = argon2.DefaultConfig()

// HashPassword derives a salted argon2id digest from a plaintext password.
// The salt is random, so hashing the same plaintext twice yields different
// digests.
func HashPassword(password string) (string, error) {
	encoded, err := argon.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// VerifyPassword reports whether the plaintext password produced the given
// encoded digest. The comparison is constant-time. A malformed digest is
// treated as a mismatch rather than an error so that callers cannot
// distinguish it from a wrong password.
func VerifyPassword(password, encoded string) (bool, error) {
	ok, err := argon2.VerifyEncoded([]byte(password), []byte(encoded))
	if err != nil {
		return false, nil
	}

	return ok, nil
}
