package observability

import "context"

// Checker is implemented by components the readiness probe verifies.
// Implementations must be safe for concurrent use and must respect the
// context deadline.
type Checker interface {
	// Name identifies the component in the readiness payload
	// (e.g. "postgres", "redis").
	Name() string
	// Check returns nil when the component is healthy.
	Check(ctx context.Context) error
}
