package account

import (
	"strings"
	"testing"

	"github.com/meshpoint/accounts/internal/providers"
)

func TestValidUsername(t *testing.T) {
	valids := []string{
		"neda",
		"user.name",
		"user@host",
		"a+b-c_d",
		strings.Repeat("a", 30),
	}
	for _, v := range valids {
		if !ValidUsername(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}

	invalids := []string{
		"",
		"abc",                    // too short
		strings.Repeat("a", 31),  // too long
		"has space",
		"semi;colon",
		"slash/name",
	}
	for _, v := range invalids {
		if ValidUsername(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestCandidateUsername_PrefersHandle(t *testing.T) {
	got := CandidateUsername(&providers.Profile{Username: "Wlada", GivenName: "Wladimir", FamilyName: "Petrov"})
	if got != "wlada" {
		t.Fatalf("got %q, want wlada", got)
	}
}

func TestCandidateUsername_FallsBackToName(t *testing.T) {
	got := CandidateUsername(&providers.Profile{GivenName: "Neda", FamilyName: "Petrova"})
	if got != "nedapetrova" {
		t.Fatalf("got %q", got)
	}
}

func TestCandidateUsername_PadsShortNames(t *testing.T) {
	got := CandidateUsername(&providers.Profile{Username: "xi"})
	if got != "userxi" {
		t.Fatalf("got %q", got)
	}
	if !ValidUsername(got) {
		t.Fatalf("padded candidate should be valid: %q", got)
	}
}

func TestCandidateUsername_StripsNoise(t *testing.T) {
	got := CandidateUsername(&providers.Profile{Name: "Ana María Ríos!"})
	// Non-ASCII runes drop out, spaces and punctuation too.
	if strings.ContainsAny(got, " !") {
		t.Fatalf("unsanitized candidate: %q", got)
	}
	if !ValidUsername(got) {
		t.Fatalf("candidate should be valid: %q", got)
	}
}

func TestCandidateUsername_LeavesSuffixRoom(t *testing.T) {
	got := CandidateUsername(&providers.Profile{Username: strings.Repeat("z", 40)})
	if len(got) > UsernameMaxLen-suffixReserve {
		t.Fatalf("base too long for suffixing: %d", len(got))
	}
}

func TestSuffixedStaysWithinMaxLen(t *testing.T) {
	base := CandidateUsername(&providers.Profile{Username: strings.Repeat("z", 40)})
	// Todos los intentos del loop de retry deben caber en el límite.
	for attempt := 0; attempt < usernameRetryCap; attempt++ {
		if s := suffixed(base, attempt); len(s) > UsernameMaxLen {
			t.Fatalf("attempt %d overflows: %q (%d)", attempt, s, len(s))
		}
	}
}

func TestSuffixed(t *testing.T) {
	if s := suffixed("neda", 0); s != "neda" {
		t.Fatalf("attempt 0: %q", s)
	}
	if s := suffixed("neda", 1); s != "neda1" {
		t.Fatalf("attempt 1: %q", s)
	}
	if s := suffixed("neda", 42); s != "neda42" {
		t.Fatalf("attempt 42: %q", s)
	}
}
