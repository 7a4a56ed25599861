// Package directory serves the user listing: profile document upserts and
// ordered, cursor-based pages.
package directory

import (
	"context"
	"time"

	"github.com/dpetukhov/rosterhub/internal/common"
	"github.com/dpetukhov/rosterhub/internal/server/models"
	"github.com/dpetukhov/rosterhub/internal/server/repositories/profiles"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Service struct {
	profiles profiles.Repository
}

func NewService(profiles profiles.Repository) *Service {
	return &Service{profiles: profiles}
}

// PutProfile upserts the profile document. The stored created_at (assigned
// by the database on first insert) is written back into p.
func (s *Service) PutProfile(ctx context.Context, p *models.Profile) error {
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return common.ErrInternal
	}
	return nil
}

// ListPage returns one directory page ordered by created_at DESC, user_id
// DESC, resuming strictly after (afterTS, afterID). A zero afterTS means
// the first page. limit is clamped to [1, MaxPageSize]; 0 means the
// default.
func (s *Service) ListPage(ctx context.Context, afterTS time.Time, afterID string, limit int) ([]*models.Profile, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	page, err := s.profiles.ListPage(ctx, afterTS, afterID, limit)
	if err != nil {
		return nil, common.ErrInternal
	}
	return page, nil
}
