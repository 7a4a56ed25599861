package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/dpetukhov/rosterhub/internal/dbx"
	"github.com/dpetukhov/rosterhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Profile) error {
	query :=
		`INSERT INTO profiles (user_id, name, email, profile_image_url)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET name = EXCLUDED.name,
		     email = EXCLUDED.email,
		     profile_image_url = EXCLUDED.profile_image_url
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.Name, p.Email, p.ProfileImageURL).Scan(&p.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListPage(ctx context.Context, afterTS time.Time, afterID string, limit int) ([]*models.Profile, error) {
	// Keyset pagination on (created_at, user_id): strict inequality keeps
	// pages non-overlapping even when timestamps collide.
	query :=
		`SELECT user_id, name, email, profile_image_url, created_at FROM profiles
		 ORDER BY created_at DESC, user_id DESC
		 LIMIT $1
		 `
	args := []any{limit}

	if !afterTS.IsZero() {
		query =
			`SELECT user_id, name, email, profile_image_url, created_at FROM profiles
			 WHERE (created_at, user_id) < ($1, $2)
			 ORDER BY created_at DESC, user_id DESC
			 LIMIT $3
			 `
		args = []any{afterTS, afterID, limit}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var page []*models.Profile
	for rows.Next() {
		p := &models.Profile{}
		if err := rows.Scan(&p.UserID, &p.Name, &p.Email, &p.ProfileImageURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		page = append(page, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return page, nil
}
