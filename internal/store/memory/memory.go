// Package memory implementa core.Repository en memoria.
//
// Útil para desarrollo y testing. Aplica exactamente las mismas reglas
// de unicidad que el adapter de Postgres (username case-insensitive,
// (provider, provider_id) global) de forma atómica bajo un mutex, así
// los tests de carreras ejercitan la misma clasificación de conflictos.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meshpoint/accounts/internal/store/core"
)

type Store struct {
	mu    sync.Mutex
	users map[string]*core.User // by ID
}

func New() *Store {
	return &Store{users: make(map[string]*core.User)}
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close()                         {}

// checkUnique valida unicidad contra todos los usuarios salvo exceptID.
// Caller holds s.mu.
func (s *Store) checkUnique(u *core.User, exceptID string) error {
	uname := strings.ToLower(u.Username)
	for id, other := range s.users {
		if id == exceptID {
			continue
		}
		if strings.ToLower(other.Username) == uname {
			return &core.ConflictError{Field: core.ConflictUsername}
		}
		for prov, ident := range u.Identities {
			if o := other.Identity(prov); o != nil && o.ProviderID == ident.ProviderID {
				return &core.ConflictError{Field: core.ConflictIdentity}
			}
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	if u.Username == "" {
		return core.ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(u, ""); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	if err := s.checkUnique(u, u.ID); err != nil {
		return err
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u.Clone(), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetUserByIdentity(ctx context.Context, provider, providerID string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if id := u.Identity(provider); id != nil && id.ProviderID == providerID {
			return u.Clone(), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) AddConnection(ctx context.Context, userID string, c core.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.Connections = append(u.Connections, c)
	return nil
}

func (s *Store) RemoveConnection(ctx context.Context, userID string, c core.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	for i, have := range u.Connections {
		if have == c {
			u.Connections = append(u.Connections[:i], u.Connections[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ClearConnections(ctx context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.Connections = nil
	u.ConnectionLastUnsubscribe = at
	return nil
}

func (s *Store) SetOnline(ctx context.Context, userID string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.IsOnline = online
	return nil
}
