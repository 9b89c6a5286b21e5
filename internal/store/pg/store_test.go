package pg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meshpoint/accounts/internal/store/core"
)

func TestClassifyNil(t *testing.T) {
	if err := classify(nil); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}

func TestClassifyUsernameConstraint(t *testing.T) {
	in := &pgconn.PgError{Code: "23505", ConstraintName: usernameConstraint}
	err := classify(in)
	if !core.IsUsernameConflict(err) {
		t.Fatalf("got %v, want username conflict", err)
	}
}

func TestClassifyIdentityConstraint(t *testing.T) {
	in := &pgconn.PgError{Code: "23505", ConstraintName: identityConstraint}
	err := classify(in)
	if !core.IsIdentityConflict(err) {
		t.Fatalf("got %v, want identity conflict", err)
	}
}

func TestClassifyWrappedConstraint(t *testing.T) {
	// pgx suele llegar envuelto; errors.As tiene que atravesarlo.
	in := fmt.Errorf("insert app_user: %w",
		&pgconn.PgError{Code: "23505", ConstraintName: usernameConstraint})
	if !core.IsUsernameConflict(classify(in)) {
		t.Fatal("wrapped 23505 not classified")
	}
}

func TestClassifyUnknownConstraint(t *testing.T) {
	in := &pgconn.PgError{Code: "23505", ConstraintName: "user_connection_pkey"}
	err := classify(in)
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if core.IsUsernameConflict(err) || core.IsIdentityConflict(err) {
		t.Fatal("unknown constraint must not map to a field conflict")
	}
}

func TestClassifyPassesThroughOtherErrors(t *testing.T) {
	notNull := &pgconn.PgError{Code: "23502", ColumnName: "username"}
	if got := classify(notNull); got != notNull {
		t.Fatalf("23502 must pass through, got %v", got)
	}

	plain := errors.New("dial tcp: connection refused")
	if got := classify(plain); got != plain {
		t.Fatalf("plain error must pass through, got %v", got)
	}
}
