package models

import "time"

// RefreshToken is an opaque long-lived token exchangeable for a new token
// pair until it expires or is revoked.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}
