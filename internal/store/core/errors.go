package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)

// Conflict fields. Create/update paths are written optimistically: the
// write is attempted and a uniqueness violation is classified after the
// fact. Los dos campos exigen recuperaciones distintas (reintento con
// sufijo vs. re-lectura), así que nunca se deben confundir.
const (
	ConflictUsername = "username"
	ConflictIdentity = "identity"
)

// ConflictError is a storage uniqueness violation attributed to a
// concrete field. It unwraps to ErrConflict.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return fmt.Sprintf("conflict on %s", e.Field) }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// IsUsernameConflict reports whether err is a uniqueness violation on
// the username.
func IsUsernameConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Field == ConflictUsername
}

// IsIdentityConflict reports whether err is a uniqueness violation on a
// (provider, provider_id) pair.
func IsIdentityConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Field == ConflictIdentity
}
