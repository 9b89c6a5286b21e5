package core

import (
	"context"
	"time"
)

// Repository es el contrato de persistencia de usuarios.
//
// Create and Update are optimistic: they never pre-check existence.
// On a uniqueness violation they return a *ConflictError classifying
// which constraint failed so the caller can recover (suffix retry for
// usernames, re-read for identity races).
type Repository interface {
	Ping(ctx context.Context) error
	Close()

	// CreateUser assigns u.ID (uuid) and CreatedAt when empty.
	CreateUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error

	GetUserByID(ctx context.Context, id string) (*User, error)
	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByIdentity(ctx context.Context, provider, providerID string) (*User, error)

	// AddConnection appends unconditionally, sin dedup.
	AddConnection(ctx context.Context, userID string, c Connection) error
	// RemoveConnection removes exactly the entry matching all three
	// fields; missing entries are not an error.
	RemoveConnection(ctx context.Context, userID string, c Connection) error
	// ClearConnections wipes the whole set and stamps
	// connection_last_unsubscribe.
	ClearConnections(ctx context.Context, userID string, at time.Time) error

	SetOnline(ctx context.Context, userID string, online bool) error
}
