// Package evalapi implements the HTTP evaluation API: callers post a
// user identity and a spec name, the server evaluates against its
// loaded ruleset and returns the result with full provenance.
package evalapi

import (
	"context"
	"sync"

	"github.com/vordr-io/vordr-go/internal/evaluator"
	"github.com/vordr-io/vordr-go/internal/observability"
	"github.com/vordr-io/vordr-go/internal/store"
)

// Catalog holds the server's single ruleset generation and the engine
// evaluating against it. It satisfies the transport Applier contract so
// the polling service can feed it directly.
type Catalog struct {
	mu     sync.RWMutex
	engine *evaluator.Evaluator
	time   int64
	loaded bool
}

// NewCatalog creates an empty catalog. Evaluations against it return
// defaults with reason Uninitialized until a ruleset is applied.
func NewCatalog(engine *evaluator.Evaluator) *Catalog {
	if engine == nil {
		panic("evalapi: engine cannot be nil")
	}
	return &Catalog{engine: engine}
}

// Apply installs a fetched ruleset. A not-modified result leaves the
// held generation untouched; a parse failure leaves the previous
// generation serving.
func (c *Catalog) Apply(_ context.Context, rs *store.Ruleset) error {
	if !rs.HasUpdates {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.engine.SetConfigSpecs(rs.FeatureGates, rs.DynamicConfigs, rs.LayerConfigs); err != nil {
		return err
	}
	c.time = rs.Time
	c.loaded = true
	return nil
}

// SinceTime returns the server timestamp of the held ruleset.
func (c *Catalog) SinceTime() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.time
}

// Loaded reports whether any ruleset has been applied.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Catalog) evaluate(kind string, user *evaluator.User, name string, eval func(*evaluator.Evaluator, *evaluator.User, string) *evaluator.Result) *evaluator.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := eval(c.engine, user, name)

	if result.Details.Reason == evaluator.ReasonUnrecognized && !c.loaded {
		result = result.WithReason(evaluator.ReasonUninitialized)
	}
	result = result.WithTime(c.time)

	observability.EvaluationsTotal.WithLabelValues(kind, string(result.Details.Reason)).Inc()
	return result
}

// CheckGate evaluates the named gate for the given user.
func (c *Catalog) CheckGate(user *evaluator.User, name string) *evaluator.Result {
	return c.evaluate("gate", user, name, (*evaluator.Evaluator).CheckGate)
}

// GetConfig evaluates the named dynamic config or experiment.
func (c *Catalog) GetConfig(user *evaluator.User, name string) *evaluator.Result {
	return c.evaluate("config", user, name, (*evaluator.Evaluator).GetConfig)
}

// GetLayer evaluates the named layer.
func (c *Catalog) GetLayer(user *evaluator.User, name string) *evaluator.Result {
	return c.evaluate("layer", user, name, (*evaluator.Evaluator).GetLayer)
}
