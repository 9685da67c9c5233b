// Package memory provides in-process repository implementations for
// development and tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sgarciab/authbridge/internal/domain/repository"
)

// Store implements ProfileRepository and UserRepository over maps.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*repository.SocialProfile // key: provider "\x00" identifier
	users    map[string]*repository.User          // key: user ID
	emails   map[string]string                    // email -> user ID
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		profiles: make(map[string]*repository.SocialProfile),
		users:    make(map[string]*repository.User),
		emails:   make(map[string]string),
	}
}

func profileKey(provider, identifier string) string {
	return provider + "\x00" + identifier
}

// GetByProvider busca un profile por provider e identificador.
func (s *Store) GetByProvider(ctx context.Context, provider, identifier string) (*repository.SocialProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileKey(provider, identifier)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

// Save hace upsert del profile sobre (provider, identifier).
func (s *Store) Save(ctx context.Context, p *repository.SocialProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	key := profileKey(p.Provider, p.Identifier)
	if existing, ok := s.profiles[key]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.profiles[key] = p.Clone()
	return nil
}

// FindByID busca un usuario aplicando el finder.
func (s *Store) FindByID(ctx context.Context, finder, userID string) (*repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if finder == repository.FinderActive && u.DisabledAt != nil {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// Create crea un usuario nuevo; el email es único.
func (s *Store) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email != "" {
		if _, exists := s.emails[email]; exists {
			return nil, repository.ErrConflict
		}
	}
	u := &repository.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		CreatedAt:    time.Now(),
	}
	s.users[u.ID] = u
	if email != "" {
		s.emails[email] = u.ID
	}
	cp := *u
	return &cp, nil
}

// Disable marca un usuario como deshabilitado (para tests del finder active).
func (s *Store) Disable(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		now := time.Now()
		u.DisabledAt = &now
	}
}
