package models

import "time"

// Profile is the directory document for one user. CreatedAt is assigned by
// the database on first insert and is the directory's ordering key; updates
// never touch it.
type Profile struct {
	UserID          string
	Name            string
	Email           string
	ProfileImageURL string
	CreatedAt       time.Time
}
