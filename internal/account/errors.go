package account

import "errors"

var (
	// ErrUsernameExhausted: the suffix retry cap was hit while
	// resolving a username collision.
	ErrUsernameExhausted = errors.New("account: username candidates exhausted")

	// ErrGuestExhausted: no free guest username within the retry cap.
	ErrGuestExhausted = errors.New("account: guest usernames exhausted")

	// ErrNotLinked: unlink requested for a provider with no identity.
	ErrNotLinked = errors.New("account: provider not linked")

	// ErrUsernameTaken: explicit registration chose a taken username.
	// A diferencia del resolver, acá no se sufija: el usuario eligió.
	ErrUsernameTaken = errors.New("account: username taken")

	ErrInvalidUsername    = errors.New("account: invalid username")
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	ErrPasswordAlreadySet = errors.New("account: password already set")

	ErrNoEmail             = errors.New("account: user has no email address")
	ErrConfirmationInvalid = errors.New("account: confirmation token invalid")
	ErrConfirmationExpired = errors.New("account: confirmation token expired")
)
