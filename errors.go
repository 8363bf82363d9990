package vordr

import (
	"errors"
	"fmt"
)

// Sentinel errors for client misuse. Match with errors.Is.
var (
	// ErrInvalidArgument marks malformed inputs: bad SDK keys, empty
	// spec names, nil payloads.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUninitialized is returned when an operation needs a client
	// that has not been set up yet.
	ErrUninitialized = errors.New("client not initialized")

	// ErrShutdown is returned for operations on a client after
	// Shutdown.
	ErrShutdown = errors.New("client has been shut down")
)

func invalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
