// Package credentials stores login credentials.
package credentials

import (
	"context"

	"github.com/dpetukhov/rosterhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, cred *models.Credential) error
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
}
