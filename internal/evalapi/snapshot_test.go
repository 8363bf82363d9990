package evalapi

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vordr-io/vordr-go/internal/evaluator"
	"github.com/vordr-io/vordr-go/internal/persistence"
	"github.com/vordr-io/vordr-go/internal/store"
)

func newTestAdapter(t *testing.T) *persistence.Memory {
	t.Helper()

	adapter, err := persistence.NewMemory(16, time.Hour)
	require.NoError(t, err)
	t.Cleanup(adapter.Close)
	return adapter
}

func testGateRuleset(t *testing.T) *store.Ruleset {
	t.Helper()

	gate := map[string]any{
		"name":         "beta_access",
		"type":         "feature_gate",
		"salt":         "beta_salt",
		"enabled":      true,
		"defaultValue": false,
		"rules": []map[string]any{
			{
				"id":             "rule_emails",
				"passPercentage": 100,
				"returnValue":    true,
				"conditions": []map[string]any{
					{
						"type":        "user_field",
						"field":       "email",
						"operator":    "str_ends_with_any",
						"targetValue": []any{"@example.com"},
					},
				},
			},
		},
	}
	raw, err := json.Marshal(gate)
	require.NoError(t, err)

	return &store.Ruleset{
		HasUpdates:   true,
		Time:         4000,
		FeatureGates: []json.RawMessage{raw},
	}
}

func TestSnapshotter_WarmRestoresPersistedRuleset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := newTestAdapter(t)

	// First process applies a fetched ruleset through the snapshotter.
	first := NewSnapshotter(NewCatalog(evaluator.New(nil)), adapter, nil)
	require.NoError(t, first.Apply(ctx, testGateRuleset(t)))

	// A fresh catalog warmed from the same adapter serves the persisted
	// generation.
	catalog := NewCatalog(evaluator.New(nil))
	snap := NewSnapshotter(catalog, adapter, nil)
	require.NoError(t, snap.Warm(ctx))

	assert.True(t, catalog.Loaded())
	assert.Equal(t, int64(4000), catalog.SinceTime())

	res := catalog.CheckGate(&evaluator.User{UserID: "u-1", Email: "dev@example.com"}, "beta_access")
	assert.True(t, res.Value)
}

func TestSnapshotter_WarmWithEmptyStorageIsNoop(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(evaluator.New(nil))
	snap := NewSnapshotter(catalog, newTestAdapter(t), nil)

	require.NoError(t, snap.Warm(context.Background()))
	assert.False(t, catalog.Loaded())
}

func TestSnapshotter_WarmDiscardsCorruptedSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := newTestAdapter(t)
	require.NoError(t, adapter.Set(ctx, "VORDR_RULESET_SNAPSHOT_V1", []byte(`{broken`)))

	catalog := NewCatalog(evaluator.New(nil))
	snap := NewSnapshotter(catalog, adapter, nil)

	require.NoError(t, snap.Warm(ctx))
	assert.False(t, catalog.Loaded())

	// The corrupted entry is gone.
	value, err := adapter.Get(ctx, "VORDR_RULESET_SNAPSHOT_V1")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestSnapshotter_ApplyFailureDoesNotPersist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := newTestAdapter(t)

	catalog := NewCatalog(evaluator.New(nil))
	snap := NewSnapshotter(catalog, adapter, nil)

	err := snap.Apply(ctx, &store.Ruleset{
		HasUpdates:   true,
		Time:         9000,
		FeatureGates: []json.RawMessage{json.RawMessage(`{"type":"feature_gate"}`)},
	})
	require.Error(t, err)

	value, getErr := adapter.Get(ctx, "VORDR_RULESET_SNAPSHOT_V1")
	require.NoError(t, getErr)
	assert.Nil(t, value)
}
