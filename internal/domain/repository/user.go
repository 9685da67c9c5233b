package repository

import (
	"context"
	"time"
)

// Finders disponibles para UserRepository.FindByID.
const (
	FinderAll    = "all"
	FinderActive = "active"
)

// User representa un usuario local. El schema real pertenece a la capa de
// persistencia; el coordinador solo asume la primary key y el campo secreto.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Name         string         `json:"name"`
	PasswordHash string         `json:"password_hash,omitempty"`
	DisabledAt   *time.Time     `json:"disabled_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	Profile      *SocialProfile `json:"-"` // adjunto en runtime, no persistido
}

// CreateUserInput contiene los datos para provisionar un usuario.
type CreateUserInput struct {
	Email        string
	Name         string
	PasswordHash string
}

// UserRepository define operaciones sobre usuarios locales.
type UserRepository interface {
	// FindByID busca un usuario por primary key usando el finder indicado
	// (FinderAll o FinderActive). Retorna ErrNotFound si no existe o si el
	// finder lo filtra.
	FindByID(ctx context.Context, finder, userID string) (*User, error)

	// Create crea un usuario nuevo. Retorna ErrConflict si el email ya existe.
	Create(ctx context.Context, input CreateUserInput) (*User, error)
}
