package handlers

import (
	"net/http"

	"github.com/meshpoint/accounts/internal/http/helpers"
	"github.com/meshpoint/accounts/internal/http/middlewares"
	"github.com/meshpoint/accounts/internal/store/core"
)

type connectionRequest struct {
	CacheValidator    string `json:"cache_validator"`
	ModifiedValidator string `json:"modified_validator"`
	ChannelID         string `json:"channel_id"`
}

func (c connectionRequest) toCore() core.Connection {
	return core.Connection{
		CacheValidator:    c.CacheValidator,
		ModifiedValidator: c.ModifiedValidator,
		ChannelID:         c.ChannelID,
	}
}

// Subscribe: POST /connections/subscribe registra un canal de push.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if !helpers.ReadStrictJSON(w, r, &req) {
		return
	}
	if req.ChannelID == "" {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("channel_id is required"))
		return
	}
	user := middlewares.CurrentUser(r.Context())
	if err := h.svc.Connections.Subscribe(r.Context(), user.ID, req.toCore()); err != nil {
		helpers.WriteError(w, mapAccountErr(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unsubscribe: POST /connections/unsubscribe. Además de remover la
// entrada que calza, barre todas las conexiones de la cuenta.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if !helpers.ReadStrictJSON(w, r, &req) {
		return
	}
	user := middlewares.CurrentUser(r.Context())
	if err := h.svc.Connections.Unsubscribe(r.Context(), user.ID, req.toCore()); err != nil {
		helpers.WriteError(w, mapAccountErr(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
