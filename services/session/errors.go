package session

import "errors"

var (
	// ErrPinSpaceExhausted is returned when every PIN is held by a pending session.
	ErrPinSpaceExhausted = errors.New("Registry: no free PIN available")

	// ErrSessionExpired marks a pending session whose verification window has elapsed.
	// VerifyPIN folds it into a plain miss.
	ErrSessionExpired = errors.New("Registry: session expired")
)
