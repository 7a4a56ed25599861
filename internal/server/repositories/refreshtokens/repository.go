// Package refreshtokens stores issued refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dpetukhov/rosterhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID, token string, validity time.Duration) error
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error

	// Rotate atomically revokes old and stores the replacement, so a
	// crash cannot leave both tokens live.
	Rotate(ctx context.Context, old string, userID, token string, validity time.Duration) error
}
