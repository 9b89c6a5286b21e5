package middlewares

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/meshpoint/accounts/internal/store/core"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userKey
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// GetRequestID returns the request ID injected by WithRequestID, or "".
func GetRequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey).(string)
	return rid
}

// WithUser inyecta el usuario autenticado en el contexto.
func WithUser(ctx context.Context, u *core.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// CurrentUser returns the session user, or nil for anonymous requests.
func CurrentUser(ctx context.Context) *core.User {
	u, _ := ctx.Value(userKey).(*core.User)
	return u
}

// clientIP extrae la IP del cliente, considerando proxies.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
