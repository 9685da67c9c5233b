package repository

import (
	"context"
	"reflect"
	"time"
)

// SocialProfile representa el vínculo persistido entre una identidad externa
// (provider + identificador del provider) y un usuario local opcional.
// Invariante: a lo sumo un profile por (provider, identifier).
type SocialProfile struct {
	ID         string
	Provider   string // "google", "github", etc.
	Identifier string // ID del usuario en el provider
	UserID     string // vacío = sin usuario vinculado
	// Attributes contiene los campos mapeados de la identidad externa,
	// incluido el access token serializado bajo "access_token".
	Attributes map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone retorna una copia profunda (un nivel) del profile.
func (p *SocialProfile) Clone() *SocialProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Attributes = make(map[string]any, len(p.Attributes))
	for k, v := range p.Attributes {
		cp.Attributes[k] = v
	}
	return &cp
}

// EqualData compara los datos persistibles de dos profiles (dirty check).
// Ignora timestamps e ID.
func (p *SocialProfile) EqualData(other *SocialProfile) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Provider == other.Provider &&
		p.Identifier == other.Identifier &&
		p.UserID == other.UserID &&
		reflect.DeepEqual(p.Attributes, other.Attributes)
}

// ProfileRepository define operaciones sobre social profiles.
type ProfileRepository interface {
	// GetByProvider busca un profile por provider e identificador externo.
	// Retorna ErrNotFound si no existe.
	GetByProvider(ctx context.Context, provider, identifier string) (*SocialProfile, error)

	// Save crea o actualiza el profile (upsert sobre provider+identifier).
	// Asigna ID y timestamps cuando el profile es nuevo.
	Save(ctx context.Context, p *SocialProfile) error
}
