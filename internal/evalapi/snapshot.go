package evalapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vordr-io/vordr-go/internal/persistence"
	"github.com/vordr-io/vordr-go/internal/store"
)

// snapshotKey is the storage key holding the last applied ruleset.
const snapshotKey = "VORDR_RULESET_SNAPSHOT_V1"

// Snapshotter wraps the catalog with warm-start persistence: every
// applied ruleset is also written to the storage adapter, and Warm
// replays the stored one on boot so the server can serve evaluations
// before the first fetch completes.
type Snapshotter struct {
	catalog *Catalog
	storage persistence.Adapter
	logger  *slog.Logger
}

// NewSnapshotter creates the persisting applier around a catalog.
func NewSnapshotter(catalog *Catalog, storage persistence.Adapter, logger *slog.Logger) *Snapshotter {
	if catalog == nil {
		panic("evalapi: catalog cannot be nil")
	}
	if storage == nil {
		panic("evalapi: storage cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{catalog: catalog, storage: storage, logger: logger}
}

// Warm loads the stored snapshot, if any, into the catalog. A missing
// snapshot is not an error; a corrupted one is discarded.
func (s *Snapshotter) Warm(ctx context.Context) error {
	data, err := s.storage.Get(ctx, snapshotKey)
	if err != nil {
		return fmt.Errorf("failed to read ruleset snapshot: %w", err)
	}
	if data == nil {
		return nil
	}

	var rs store.Ruleset
	if err := json.Unmarshal(data, &rs); err != nil {
		s.logger.Warn("discarding corrupted ruleset snapshot", slog.String("error", err.Error()))
		_ = s.storage.Remove(ctx, snapshotKey)
		return nil
	}

	if err := s.catalog.Apply(ctx, &rs); err != nil {
		s.logger.Warn("discarding unusable ruleset snapshot", slog.String("error", err.Error()))
		_ = s.storage.Remove(ctx, snapshotKey)
		return nil
	}

	s.logger.Info("ruleset restored from snapshot", slog.Int64("time", rs.Time))
	return nil
}

// Apply installs the ruleset in the catalog and persists it. A storage
// failure does not fail the apply; serving fresh data wins over the
// warm-start optimization.
func (s *Snapshotter) Apply(ctx context.Context, rs *store.Ruleset) error {
	if err := s.catalog.Apply(ctx, rs); err != nil {
		return err
	}
	if !rs.HasUpdates {
		return nil
	}

	data, err := json.Marshal(rs)
	if err != nil {
		s.logger.Warn("failed to encode ruleset snapshot", slog.String("error", err.Error()))
		return nil
	}
	if err := s.storage.Set(ctx, snapshotKey, data); err != nil {
		s.logger.Warn("failed to persist ruleset snapshot", slog.String("error", err.Error()))
	}
	return nil
}

// SinceTime returns the server timestamp of the held ruleset.
func (s *Snapshotter) SinceTime() int64 {
	return s.catalog.SinceTime()
}
