package providers

import (
	"errors"
	"fmt"
)

// Taxonomía de fallas del intercambio token/perfil. Todas se surfacean
// al caller como fallo de login visible; acá no hay retries.
var (
	// ErrUnreachable: network/timeout talking to the provider.
	ErrUnreachable = errors.New("provider unreachable")

	// ErrInvalidGrant: the provider rejected the code/verifier.
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrMalformedResponse: the provider answered but expected fields
	// are missing or undecodable.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Unreachable envuelve un error de transporte preservando la causa.
func Unreachable(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrUnreachable, err)
}

// InvalidGrant marca un rechazo del code/verifier por el provider.
func InvalidGrant(provider, detail string) error {
	if detail == "" {
		return fmt.Errorf("%s: %w", provider, ErrInvalidGrant)
	}
	return fmt.Errorf("%s: %w: %s", provider, ErrInvalidGrant, detail)
}

// Malformed marca una respuesta sin los campos esperados.
func Malformed(provider, detail string) error {
	return fmt.Errorf("%s: %w: %s", provider, ErrMalformedResponse, detail)
}
