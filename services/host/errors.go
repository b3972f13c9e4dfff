package host

import "errors"

var (
	// ErrUnknownCommand is returned for a command outside lock, sleep and shutdown.
	ErrUnknownCommand = errors.New("Host: unknown command")
	// ErrUnsupportedPlatform is returned when the OS has no mapping for a command.
	ErrUnsupportedPlatform = errors.New("Host: command not supported on this platform")
)
