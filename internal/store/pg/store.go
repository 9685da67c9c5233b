// Package pg implements the repositories over PostgreSQL via pgx.
package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store agrupa los repositorios Postgres sobre un pool compartido.
type Store struct {
	pool *pgxpool.Pool

	Profiles *profileRepo
	Users    *userRepo
}

// Options para la conexión.
type Options struct {
	MaxConns        int
	ConnMaxLifetime time.Duration
}

// New abre el pool y construye los repositorios.
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = opts.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{
		pool:     pool,
		Profiles: &profileRepo{pool: pool},
		Users:    &userRepo{pool: pool},
	}, nil
}

// Close cierra el pool.
func (s *Store) Close() { s.pool.Close() }
