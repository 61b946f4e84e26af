package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents a stored identity in the authentication system.
// A user holds at most one of each credential kind: a local password hash
// and/or subject identifiers from the external providers. A user that can
// authenticate always has at least one of them present.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Username     string        `bson:"username,omitempty"`
	PasswordHash string        `bson:"password_hash,omitempty"`
	GoogleID     string        `bson:"google_id,omitempty"`
	FacebookID   string        `bson:"facebook_id,omitempty"`
	Secret       string        `bson:"secret,omitempty"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

// HasSecret reports whether the user has submitted a secret.
func (u *User) HasSecret() bool {
	return u.Secret != ""
}
