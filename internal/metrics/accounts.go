// Package metrics expone contadores Prometheus del subsistema de cuentas.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	// Logins federados por provider y resultado (login | attach |
	// signup).
	loginsTotal *prometheus.CounterVec

	// Reintentos de username por colisión (sufijo numérico).
	usernameRetriesTotal prometheus.Counter

	// Carreras de identidad recuperadas re-leyendo al ganador.
	identityRacesTotal prometheus.Counter

	// Cuentas guest creadas.
	guestAllocationsTotal prometheus.Counter

	// Conflictos de linking por estado (already_linked_self | already_linked_other).
	linkConflictsTotal *prometheus.CounterVec
)

// Register inicializa y registra las métricas. Idempotente.
// Devuelve el handler para /metrics.
func Register(reg prometheus.Registerer) http.Handler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	registerOnce.Do(func() {
		loginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "account_federated_logins_total",
			Help: "Federated logins by provider and outcome (login, attach, signup)",
		}, []string{"provider", "outcome"})

		usernameRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_username_collision_retries_total",
			Help: "Username uniqueness conflicts recovered by suffixing",
		})

		identityRacesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_identity_races_total",
			Help: "Identity uniqueness races recovered by re-reading the winner",
		})

		guestAllocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_guest_allocations_total",
			Help: "Guest accounts allocated",
		})

		linkConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "account_link_conflicts_total",
			Help: "Account linking conflicts surfaced to the user",
		}, []string{"state"})

		reg.MustRegister(loginsTotal, usernameRetriesTotal, identityRacesTotal,
			guestAllocationsTotal, linkConflictsTotal)
	})
	return promhttp.Handler()
}

// Los incrementos toleran no haber registrado (tests unitarios).

func IncLogin(provider, outcome string) {
	if loginsTotal != nil {
		loginsTotal.WithLabelValues(provider, outcome).Inc()
	}
}

func IncUsernameRetry() {
	if usernameRetriesTotal != nil {
		usernameRetriesTotal.Inc()
	}
}

func IncIdentityRace() {
	if identityRacesTotal != nil {
		identityRacesTotal.Inc()
	}
}

func IncGuestAllocation() {
	if guestAllocationsTotal != nil {
		guestAllocationsTotal.Inc()
	}
}

func IncLinkConflict(state string) {
	if linkConflictsTotal != nil {
		linkConflictsTotal.WithLabelValues(state).Inc()
	}
}
