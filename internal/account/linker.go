package account

import (
	"context"
	"errors"

	"github.com/meshpoint/accounts/internal/metrics"
	"github.com/meshpoint/accounts/internal/observability/logger"
	"github.com/meshpoint/accounts/internal/providers"
	"github.com/meshpoint/accounts/internal/store/core"
)

// LinkState classifies the outcome of a link attempt.
type LinkState string

const (
	// Linked: the identity now belongs to the requesting account.
	Linked LinkState = "linked"
	// AlreadyLinkedSelf: the account already carries an identity for
	// this provider; nothing changed.
	AlreadyLinkedSelf LinkState = "already_linked_self"
	// AlreadyLinkedOther: another account owns the identity; nothing
	// changed and the caller must pick a Resolution.
	AlreadyLinkedOther LinkState = "already_linked_other"
)

// Resolution is the caller's answer to a link conflict.
type Resolution string

const (
	ResolutionNone Resolution = ""
	// ResolutionUnlink strips the identity from its current owner and
	// attaches it to the requester. The other account survives.
	ResolutionUnlink Resolution = "unlink"
	// ResolutionOverwrite deletes the current owner outright before
	// attaching the identity.
	ResolutionOverwrite Resolution = "overwrite"
)

// LinkResult carries the updated requester plus what happened.
type LinkResult struct {
	State LinkState
	User  *core.User
	// Other is the conflicting owner when State is AlreadyLinkedOther.
	Other *core.User
}

// LinkerService attaches and detaches federated identities on
// established accounts.
type LinkerService struct {
	repo core.Repository
}

func NewLinkerService(repo core.Repository) *LinkerService {
	return &LinkerService{repo: repo}
}

// Link attaches the freshly exchanged identity to user. Conflicts are
// reported, never silently resolved: the caller re-invokes with a
// Resolution once the person has chosen.
func (s *LinkerService) Link(ctx context.Context, user *core.User, prov providers.Provider, cred *providers.Credential, profile *providers.Profile, res Resolution) (*LinkResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("account"),
		logger.Component("linker"),
		logger.Provider(prov.Name()),
		logger.UserID(user.ID),
	)

	owner, err := s.repo.GetUserByIdentity(ctx, prov.Name(), profile.ID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	selfHas := user.Identity(prov.Name()) != nil
	otherOwns := owner != nil && owner.ID != user.ID

	switch {
	case otherOwns && res == ResolutionNone:
		metrics.IncLinkConflict(string(AlreadyLinkedOther))
		return &LinkResult{State: AlreadyLinkedOther, User: user, Other: owner}, nil

	case otherOwns && res == ResolutionUnlink:
		stripped := owner.Clone()
		stripped.RemoveIdentity(prov.Name())
		if stripped.ProfileImage == imageSourceFor(prov.Name()) {
			stripped.ProfileImage = core.ImageNone
		}
		if err := s.repo.UpdateUser(ctx, stripped); err != nil {
			return nil, err
		}
		log.Info("identity stripped from previous owner", logger.String("other_id", owner.ID))

	case otherOwns && res == ResolutionOverwrite:
		if err := s.repo.DeleteUser(ctx, owner.ID); err != nil {
			return nil, err
		}
		log.Info("previous owner deleted", logger.String("other_id", owner.ID))

	case selfHas && res != ResolutionOverwrite:
		// Ya tiene una identidad de este proveedor (quizás otro
		// subject): no pisamos nada sin una resolución explícita.
		metrics.IncLinkConflict(string(AlreadyLinkedSelf))
		return &LinkResult{State: AlreadyLinkedSelf, User: user}, nil
	}

	u := user.Clone()
	applyIdentity(u, prov, cred, profile)
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	log.Info("identity linked")
	return &LinkResult{State: Linked, User: u}, nil
}

// Unlink removes the provider's identity from user. The account keeps
// working as long as it still has a password or another identity.
func (s *LinkerService) Unlink(ctx context.Context, user *core.User, provider string) (*core.User, error) {
	if user.Identity(provider) == nil {
		return nil, ErrNotLinked
	}
	u := user.Clone()
	u.RemoveIdentity(provider)
	if u.ProfileImage == imageSourceFor(provider) {
		u.ProfileImage = core.ImageNone
	}
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("identity unlinked",
		logger.Layer("account"),
		logger.Component("linker"),
		logger.Provider(provider),
		logger.UserID(user.ID),
	)
	return u, nil
}
