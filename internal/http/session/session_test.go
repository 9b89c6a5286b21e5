package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestManager() *Manager {
	return NewManager(Options{Secret: "unit-test-secret", TTL: time.Hour})
}

func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestIssueAndUserID(t *testing.T) {
	m := newTestManager()
	rec := httptest.NewRecorder()
	if err := m.Issue(rec, "user-42"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id, err := m.UserID(requestWithCookies(rec))
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if id != "user-42" {
		t.Fatalf("id = %q", id)
	}
}

func TestUserIDWithoutCookie(t *testing.T) {
	m := newTestManager()
	_, err := m.UserID(httptest.NewRequest("GET", "/", nil))
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}

func TestUserIDRejectsForeignSecret(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := newTestManager().Issue(rec, "user-42"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewManager(Options{Secret: "a-different-secret", TTL: time.Hour})
	_, err := other.UserID(requestWithCookies(rec))
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestClearExpiresCookie(t *testing.T) {
	m := newTestManager()
	rec := httptest.NewRecorder()
	m.Clear(rec)

	cs := rec.Result().Cookies()
	if len(cs) != 1 || cs[0].Name != m.CookieName || cs[0].MaxAge != -1 {
		t.Fatalf("unexpected cookies: %+v", cs)
	}
}

func TestFlowRoundTrip(t *testing.T) {
	m := newTestManager()
	rec := httptest.NewRecorder()
	state, err := m.BeginFlow(rec, Flow{
		Provider:   "facebook",
		Mode:       "link",
		Resolution: "unlink",
		Next:       "/settings",
	})
	if err != nil {
		t.Fatalf("BeginFlow: %v", err)
	}
	if state == "" {
		t.Fatal("empty state")
	}

	out := httptest.NewRecorder()
	f, err := m.TakeFlow(out, requestWithCookies(rec), "facebook", state)
	if err != nil {
		t.Fatalf("TakeFlow: %v", err)
	}
	if f.Mode != "link" || f.Resolution != "unlink" || f.Next != "/settings" {
		t.Fatalf("flow = %+v", f)
	}

	// TakeFlow must expire the cookie even on success.
	cs := out.Result().Cookies()
	if len(cs) != 1 || cs[0].MaxAge != -1 {
		t.Fatalf("flow cookie not cleared: %+v", cs)
	}
}

func TestTakeFlowProviderMismatch(t *testing.T) {
	m := newTestManager()
	rec := httptest.NewRecorder()
	state, err := m.BeginFlow(rec, Flow{Provider: "facebook", Mode: "login"})
	if err != nil {
		t.Fatalf("BeginFlow: %v", err)
	}

	_, err = m.TakeFlow(httptest.NewRecorder(), requestWithCookies(rec), "google", state)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTakeFlowStateMismatch(t *testing.T) {
	m := newTestManager()
	rec := httptest.NewRecorder()
	if _, err := m.BeginFlow(rec, Flow{Provider: "facebook", Mode: "login"}); err != nil {
		t.Fatalf("BeginFlow: %v", err)
	}

	_, err := m.TakeFlow(httptest.NewRecorder(), requestWithCookies(rec), "facebook", "forged")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTakeFlowEmptyStateSkipsCheck(t *testing.T) {
	// OAuth 1.0a callbacks carry no state; the cookie alone ties the legs.
	m := newTestManager()
	rec := httptest.NewRecorder()
	if _, err := m.BeginFlow(rec, Flow{Provider: "twitter", Mode: "login"}); err != nil {
		t.Fatalf("BeginFlow: %v", err)
	}

	f, err := m.TakeFlow(httptest.NewRecorder(), requestWithCookies(rec), "twitter", "")
	if err != nil {
		t.Fatalf("TakeFlow: %v", err)
	}
	if f.Mode != "login" {
		t.Fatalf("flow = %+v", f)
	}
}

func TestTakeFlowWithoutCookie(t *testing.T) {
	m := newTestManager()
	_, err := m.TakeFlow(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil), "facebook", "x")
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}
