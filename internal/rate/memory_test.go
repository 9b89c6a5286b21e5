package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterAllowsUpToMax(t *testing.T) {
	l := NewMemoryLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip|/login")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d rechazado", i+1)
		}
		if res.Remaining != int64(2-i) {
			t.Fatalf("remaining = %d en hit %d", res.Remaining, i+1)
		}
	}

	res, err := l.Allow(ctx, "ip|/login")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("cuarto hit debería bloquearse")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("RetryAfter = %v", res.RetryAfter)
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Hour)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "a|/login"); !res.Allowed {
		t.Fatal("primer hit de a bloqueado")
	}
	if res, _ := l.Allow(ctx, "a|/login"); res.Allowed {
		t.Fatal("segundo hit de a debería bloquearse")
	}
	if res, _ := l.Allow(ctx, "b|/login"); !res.Allowed {
		t.Fatal("b no debería compartir ventana con a")
	}
}

func TestSanitizeKey(t *testing.T) {
	if got := sanitizeKey("1.2.3.4 /login"); got != "1.2.3.4_/login" {
		t.Fatalf("sanitizeKey = %q", got)
	}
}
