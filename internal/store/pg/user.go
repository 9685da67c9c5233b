package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sgarciab/authbridge/internal/domain/repository"
)

type userRepo struct {
	pool *pgxpool.Pool
}

func (r *userRepo) FindByID(ctx context.Context, finder, userID string) (*repository.User, error) {
	query := `
		SELECT id, email, name, password_hash, disabled_at, created_at
		FROM users
		WHERE id = $1
	`
	// El finder "active" excluye usuarios deshabilitados.
	if finder == repository.FinderActive {
		query += ` AND disabled_at IS NULL`
	}
	var u repository.User
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.DisabledAt, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	u := &repository.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
	}
	const query = `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query, u.ID, u.Email, u.Name, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return u, nil
}
