// Package account implements the account subsystem: federated identity
// resolution, linking, guest allocation, classic registration, email
// confirmation and the connection registry. All uniqueness decisions
// are delegated to the repository; services write first and classify
// conflicts afterwards.
package account

import (
	"time"

	"github.com/meshpoint/accounts/internal/store/core"
)

// Deps agrupa las dependencias compartidas de los servicios de cuenta.
type Deps struct {
	Repo            core.Repository
	Mailer          ConfirmationMailer
	ConfirmationTTL time.Duration
}

// Services is the wired-up bundle the HTTP layer consumes.
type Services struct {
	Resolver    *ResolverService
	Linker      *LinkerService
	Guests      *GuestService
	Register    *RegisterService
	Confirm     *ConfirmService
	Connections *ConnectionService
}

func NewServices(d Deps) *Services {
	return &Services{
		Resolver: NewResolverService(d.Repo),
		Linker:   NewLinkerService(d.Repo),
		Guests:   NewGuestService(d.Repo),
		Register: NewRegisterService(d.Repo),
		Confirm: NewConfirmService(ConfirmDeps{
			Repo:   d.Repo,
			Mailer: d.Mailer,
			TTL:    d.ConfirmationTTL,
		}),
		Connections: NewConnectionService(d.Repo),
	}
}
