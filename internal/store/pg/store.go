// Package pg implementa core.Repository sobre Postgres (pgx).
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meshpoint/accounts/internal/observability/logger"
	"github.com/meshpoint/accounts/internal/store/core"
)

// Constraint names from migrations/postgres. The resolver depends on
// this classification to pick the right recovery.
const (
	usernameConstraint = "app_user_username_lower_key"
	identityConstraint = "identity_provider_subject_key"
)

type Store struct{ pool *pgxpool.Pool }

type Config struct {
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	// Non-blocking startup: la app puede arrancar aunque la DB esté
	// momentáneamente caída.
	if err := pool.Ping(ctx); err != nil {
		logger.L().Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		logger.L().Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Pool expone el pool interno (metrics/migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// classify traduce violaciones de unicidad (23505) a ConflictError
// según el nombre del constraint. Todo lo demás pasa tal cual.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case usernameConstraint:
			return &core.ConflictError{Field: core.ConflictUsername}
		case identityConstraint:
			return &core.ConflictError{Field: core.ConflictIdentity}
		default:
			return core.ErrConflict
		}
	}
	return err
}
