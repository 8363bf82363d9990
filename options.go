package vordr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// StorageAdapter is the byte-string storage contract the client
// persists its cache and stable ID through. Get returns (nil, nil) for
// a missing key. Implementations must be safe for concurrent use.
type StorageAdapter interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Options configures a Client. The zero value is usable: evaluations
// run against bootstrap or cached values only.
type Options struct {
	// LocalMode disables networking and SDK key validation; the client
	// evaluates only bootstrap and override data. Intended for tests.
	LocalMode bool

	// Storage persists the multi-user cache and the stable device ID.
	// Without it the client is memory-only and forgets on restart.
	Storage StorageAdapter

	// BootstrapValues is a ruleset payload to install synchronously at
	// construction, typically generated by a server SDK.
	BootstrapValues json.RawMessage

	// EnvironmentTier stamps every evaluated user's environment bag
	// (e.g. "staging"), consulted by environment-targeting rules.
	EnvironmentTier string `validate:"omitempty,oneof=development staging production"`

	// SpecURL is the download endpoint for rulesets. Ignored in
	// LocalMode; when empty the client never fetches.
	SpecURL string `validate:"omitempty,http_url"`

	// PollInterval is the background refetch cadence.
	PollInterval time.Duration

	// OverrideStableID replaces the generated-and-persisted stable
	// device ID.
	OverrideStableID string

	// ExposureSink receives exposure events. Defaults to a slog-backed
	// sink on the client's logger.
	ExposureSink ExposureSink

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// validate applies struct tags plus cross-field rules.
func (o *Options) validate() error {
	if err := validator.New().Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if o.PollInterval < 0 {
		return invalidArgumentf("poll interval cannot be negative")
	}
	return nil
}
