package account

import (
	"context"
	"time"

	"github.com/meshpoint/accounts/internal/observability/logger"
	"github.com/meshpoint/accounts/internal/store/core"
)

// ConnectionService keeps the push-subscription registry per account.
type ConnectionService struct {
	repo core.Repository
}

func NewConnectionService(repo core.Repository) *ConnectionService {
	return &ConnectionService{repo: repo}
}

// Subscribe records a connection triple unconditionally; duplicates
// are allowed, the registry is append-only between unsubscribes.
func (s *ConnectionService) Subscribe(ctx context.Context, userID string, conn core.Connection) error {
	if err := s.repo.AddConnection(ctx, userID, conn); err != nil {
		return err
	}
	return s.repo.SetOnline(ctx, userID, true)
}

// Unsubscribe removes the entry matching all three fields and then
// clears every remaining connection for the account, stamping the
// unsubscribe time. One channel going away tears down presence for the
// whole account.
func (s *ConnectionService) Unsubscribe(ctx context.Context, userID string, conn core.Connection) error {
	if err := s.repo.RemoveConnection(ctx, userID, conn); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := s.repo.ClearConnections(ctx, userID, now); err != nil {
		return err
	}
	if err := s.repo.SetOnline(ctx, userID, false); err != nil {
		return err
	}
	logger.From(ctx).Info("connections cleared",
		logger.Layer("account"),
		logger.Component("connections"),
		logger.UserID(userID),
	)
	return nil
}
