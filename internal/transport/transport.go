// Package transport fetches rulesets from a spec source and feeds them
// into the evaluation store: an HTTP source polled on an interval, or a
// local file watched for changes.
package transport

import (
	"context"

	"github.com/vordr-io/vordr-go/internal/store"
)

// Source produces rulesets. Fetch returns the latest payload, or one
// with HasUpdates=false when nothing changed since the given server
// timestamp. sinceTime zero means "send everything".
type Source interface {
	Fetch(ctx context.Context, sinceTime int64) (*store.Ruleset, error)
}

// Fetch outcome labels for the transport metrics.
const (
	outcomeUpdated     = "updated"
	outcomeNotModified = "not_modified"
	outcomeError       = "error"
)
