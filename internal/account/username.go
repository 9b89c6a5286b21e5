package account

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/meshpoint/accounts/internal/providers"
)

const (
	UsernameMinLen = 4
	UsernameMaxLen = 30

	// usernameRetryCap acota los reintentos con sufijo numérico antes
	// de rendirse con ErrUsernameExhausted.
	usernameRetryCap = 1000

	// suffixReserve leaves room in the base for the widest suffix we
	// may append ("999").
	suffixReserve = 3
)

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidUsername reports whether name satisfies the account username
// rules: 4..30 chars drawn from letters, digits, underscore and .@+-.
func ValidUsername(name string) bool {
	if len(name) < UsernameMinLen || len(name) > UsernameMaxLen {
		return false
	}
	return usernameRe.MatchString(name)
}

// CandidateUsername derives a base username from a federated profile:
// the provider's own handle when present, otherwise the person's name,
// sanitized and padded to the minimum length.
func CandidateUsername(p *providers.Profile) string {
	base := p.Username
	if base == "" {
		base = strings.TrimSpace(p.GivenName + p.FamilyName)
	}
	if base == "" {
		base = strings.TrimSpace(p.Name)
	}
	base = sanitizeUsername(base)
	if len(base) < UsernameMinLen {
		base = "user" + base
	}
	if len(base) > UsernameMaxLen-suffixReserve {
		base = base[:UsernameMaxLen-suffixReserve]
	}
	return base
}

// suffixed returns the attempt-th candidate for base: the base itself
// for attempt 0, base1, base2, ... afterwards.
func suffixed(base string, attempt int) string {
	if attempt == 0 {
		return base
	}
	return base + strconv.Itoa(attempt)
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			// fuera: nos quedamos con ASCII para los handles derivados
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '.' || r == '@' || r == '+' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
