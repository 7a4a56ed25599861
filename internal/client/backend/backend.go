// Package backend defines the capability contracts the client core is built
// on: identity (credentials and session stream), documents (user profiles),
// blobs (uploaded files) and a connectivity probe. Controllers receive
// implementations of these interfaces, so tests substitute fakes and the
// HTTP adapter stays swappable.
package backend

import (
	"context"
	"time"
)

// UserRecord is one directory entry as stored by the document backend.
// Records are immutable once fetched; CreatedAt is assigned by the server
// and is the directory's ordering key.
type UserRecord struct {
	ID              string
	DisplayName     string
	Email           string
	ProfileImageURL string
	CreatedAt       time.Time
}

// Cursor marks the last-seen record of a page. Queries resume strictly
// after it, so consecutive pages never overlap.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorFor builds the resume cursor for the last record of a page.
func CursorFor(rec UserRecord) Cursor {
	return Cursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
}

// Event is one emission of the identity backend's session-change stream.
// An empty UID means signed out.
type Event struct {
	UID string
}

// SignedIn reports whether the event carries a live identity.
func (e Event) SignedIn() bool { return e.UID != "" }

// Identity issues and verifies credentials and publishes session changes.
//
// SessionChanges registers fn and returns an unsubscribe func. The current
// session state is delivered immediately on subscribe, then every change in
// emission order. The stream is the single source of truth for who is
// signed in; SignIn itself reports only whether the call was accepted.
type Identity interface {
	CreateCredential(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	SessionChanges(fn func(Event)) (unsubscribe func())
}

// Documents stores user profile documents and serves the directory listing
// as ordered, cursor-based pages (descending CreatedAt, then ID).
type Documents interface {
	PutUserDocument(ctx context.Context, rec UserRecord) error
	QueryUsersPage(ctx context.Context, after *Cursor, limit int) ([]UserRecord, error)
}

// Blobs stores uploaded files under caller-chosen keys and issues
// retrievable URLs for them.
type Blobs interface {
	Upload(ctx context.Context, key string, data []byte) error
	PublicURL(ctx context.Context, key string) (string, error)
}

// Probe reports network reachability of the backend.
type Probe interface {
	Online() bool
}
