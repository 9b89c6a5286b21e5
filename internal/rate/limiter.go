// Package rate implementa límites de frecuencia fixed-window para los
// endpoints sensibles del subsistema de cuentas (login, registro,
// reenvío de confirmación).
package rate

import (
	"context"
	"strings"
	"time"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

func sanitizeKey(key string) string {
	return strings.ReplaceAll(key, " ", "_")
}
