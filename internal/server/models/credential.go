// Package models holds the server-side storage types.
package models

import "time"

// Credential is one login identity: a unique email plus a bcrypt password
// hash. The id doubles as the public user id.
type Credential struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
