package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sgarciab/authbridge/internal/domain/repository"
)

type profileRepo struct {
	pool *pgxpool.Pool
}

func (r *profileRepo) GetByProvider(ctx context.Context, provider, identifier string) (*repository.SocialProfile, error) {
	const query = `
		SELECT id, provider, identifier, COALESCE(user_id, ''), attributes, created_at, updated_at
		FROM social_profiles
		WHERE provider = $1 AND identifier = $2
	`
	var p repository.SocialProfile
	var attrs []byte
	err := r.pool.QueryRow(ctx, query, provider, identifier).Scan(
		&p.ID, &p.Provider, &p.Identifier, &p.UserID, &attrs, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &p.Attributes); err != nil {
			return nil, err
		}
	}
	if p.Attributes == nil {
		p.Attributes = map[string]any{}
	}
	return &p, nil
}

func (r *profileRepo) Save(ctx context.Context, p *repository.SocialProfile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	attrs, err := json.Marshal(p.Attributes)
	if err != nil {
		return err
	}
	var userID *string
	if p.UserID != "" {
		userID = &p.UserID
	}
	const query = `
		INSERT INTO social_profiles (id, provider, identifier, user_id, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (provider, identifier) DO UPDATE
		SET user_id = EXCLUDED.user_id, attributes = EXCLUDED.attributes, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query, p.ID, p.Provider, p.Identifier, userID, attrs).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}
