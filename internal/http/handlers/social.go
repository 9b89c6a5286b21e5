package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meshpoint/accounts/internal/account"
	"github.com/meshpoint/accounts/internal/http/helpers"
	"github.com/meshpoint/accounts/internal/http/middlewares"
	"github.com/meshpoint/accounts/internal/http/session"
	"github.com/meshpoint/accounts/internal/observability/logger"
	"github.com/meshpoint/accounts/internal/providers"
)

// SocialBegin inicia el flujo federado: GET /auth/{provider}.
// ?mode=link engancha la identidad a la cuenta de la sesión; el modo
// por defecto es login. ?resolution=unlink|overwrite acompaña el
// reintento tras un conflicto de link.
func (h *Handlers) SocialBegin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	prov, err := h.providers.Get(name)
	if err != nil {
		helpers.WriteError(w, helpers.ErrNotFound.WithDetail("unknown provider"))
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "login"
	}
	if mode != "login" && mode != "link" {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("mode must be login or link"))
		return
	}
	if mode == "link" && middlewares.CurrentUser(r.Context()) == nil {
		helpers.WriteError(w, helpers.ErrUnauthorized)
		return
	}
	res := r.URL.Query().Get("resolution")
	switch account.Resolution(res) {
	case account.ResolutionNone, account.ResolutionUnlink, account.ResolutionOverwrite:
	default:
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("invalid resolution"))
		return
	}

	state, err := h.sessions.BeginFlow(w, session.Flow{
		Provider:   name,
		Mode:       mode,
		Resolution: res,
		Next:       r.URL.Query().Get("next"),
	})
	if err != nil {
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}

	authURL, err := prov.AuthorizeURL(r.Context(), state)
	if err != nil {
		logger.From(r.Context()).Error("authorize url failed",
			logger.Provider(name), logger.Err(err))
		helpers.WriteError(w, mapProviderErr(err))
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// SocialCallback procesa el retorno del proveedor:
// GET /auth/{provider}/callback.
func (h *Handlers) SocialCallback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	prov, err := h.providers.Get(name)
	if err != nil {
		helpers.WriteError(w, helpers.ErrNotFound.WithDetail("unknown provider"))
		return
	}

	q := r.URL.Query()
	if q.Get("error") != "" || q.Get("denied") != "" {
		// El usuario canceló en el proveedor.
		helpers.WriteError(w, helpers.ErrUnauthorized.WithDetail("authorization denied"))
		return
	}

	state := q.Get("state")
	if prov.Type() == providers.TypeOAuth1 {
		// OAuth 1.0a no tiene state; el flow cookie ata el callback.
		state = ""
	} else if state == "" {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("invalid or expired oauth state"))
		return
	}
	flow, err := h.sessions.TakeFlow(w, r, name, state)
	if err != nil {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("invalid or expired oauth state"))
		return
	}

	cred, profile, err := prov.Exchange(r.Context(), providers.Callback{
		Code:     q.Get("code"),
		Token:    q.Get("oauth_token"),
		Verifier: q.Get("oauth_verifier"),
	})
	if err != nil {
		logger.From(r.Context()).Warn("provider exchange failed",
			logger.Provider(name), logger.Err(err))
		helpers.WriteError(w, mapProviderErr(err))
		return
	}

	current := middlewares.CurrentUser(r.Context())

	if flow.Mode == "link" {
		if current == nil {
			helpers.WriteError(w, helpers.ErrUnauthorized)
			return
		}
		result, err := h.svc.Linker.Link(r.Context(), current, prov, cred, profile, account.Resolution(flow.Resolution))
		if err != nil {
			helpers.WriteError(w, mapAccountErr(err))
			return
		}
		h.writeLinkResult(w, r, flow, result)
		return
	}

	u, err := h.svc.Resolver.Resolve(r.Context(), current, prov, cred, profile)
	if err != nil {
		helpers.WriteError(w, mapAccountErr(err))
		return
	}
	if err := h.sessions.Issue(w, u.ID); err != nil {
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}
	if flow.Next != "" {
		http.Redirect(w, r, flow.Next, http.StatusFound)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, viewOf(u))
}

type linkConflictView struct {
	State string   `json:"state"`
	User  userView `json:"user"`
	// Other identifica a la cuenta que hoy posee la identidad, lo justo
	// para que el cliente arme el prompt de resolución.
	Other *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"other,omitempty"`
}

func (h *Handlers) writeLinkResult(w http.ResponseWriter, r *http.Request, flow session.Flow, res *account.LinkResult) {
	if res.State == account.Linked {
		if flow.Next != "" {
			http.Redirect(w, r, flow.Next, http.StatusFound)
			return
		}
		helpers.WriteJSON(w, http.StatusOK, linkConflictView{
			State: string(res.State),
			User:  viewOf(res.User),
		})
		return
	}

	view := linkConflictView{State: string(res.State), User: viewOf(res.User)}
	if res.Other != nil {
		view.Other = &struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		}{ID: res.Other.ID, Username: res.Other.Username}
	}
	helpers.WriteJSON(w, http.StatusConflict, view)
}

// ProviderList lista los proveedores habilitados: GET /auth/providers.
func (h *Handlers) ProviderList(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"providers": h.providers.Names(),
	})
}
