package vordr

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// stableIDKey is the adapter key the generated device ID lives under.
const stableIDKey = "VORDR_STABLE_ID"

// resolveStableID returns the device identifier for this installation:
// the override when given, else the persisted one, else a fresh UUID
// that is persisted for next time. Storage faults degrade to an
// ephemeral ID rather than failing client construction.
func resolveStableID(ctx context.Context, storage StorageAdapter, override string, logger *slog.Logger) string {
	if override != "" {
		return override
	}

	if storage != nil {
		raw, err := storage.Get(ctx, stableIDKey)
		if err != nil {
			logger.Warn("failed to load stable ID", slog.String("error", err.Error()))
		} else if len(raw) > 0 {
			return string(raw)
		}
	}

	id := uuid.NewString()

	if storage != nil {
		if err := storage.Set(ctx, stableIDKey, []byte(id)); err != nil {
			logger.Warn("failed to persist stable ID", slog.String("error", err.Error()))
		}
	}
	return id
}
