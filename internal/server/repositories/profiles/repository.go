// Package profiles stores the directory documents and serves them as
// keyset-paginated pages.
package profiles

import (
	"context"
	"time"

	"github.com/dpetukhov/rosterhub/internal/server/models"
)

type Repository interface {
	// Upsert writes the profile document. created_at is assigned by the
	// database on first insert and preserved on update; the stored value
	// is written back into p.
	Upsert(ctx context.Context, p *models.Profile) error

	// ListPage returns up to limit profiles ordered by created_at DESC,
	// user_id DESC, resuming strictly after (afterTS, afterID). A zero
	// afterTS means the first page.
	ListPage(ctx context.Context, afterTS time.Time, afterID string, limit int) ([]*models.Profile, error)
}
