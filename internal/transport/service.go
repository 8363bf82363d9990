package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/vordr-io/vordr-go/internal/observability"
	"github.com/vordr-io/vordr-go/internal/store"
)

// Config holds the configuration for the polling service.
type Config struct {
	// Interval is the duration between fetch cycles.
	Interval time.Duration
}

// Applier consumes fetched rulesets. The store satisfies this for a
// fixed identity via a small adapter in the composition root.
// Not-modified results (HasUpdates false) are forwarded too so the
// applier can record the freshness check.
type Applier interface {
	Apply(ctx context.Context, rs *store.Ruleset) error
	// SinceTime returns the server timestamp of the held data so
	// fetches can be conditional.
	SinceTime() int64
}

// Service polls a spec source and applies each fetched ruleset.
type Service struct {
	logger  *slog.Logger
	config  Config
	source  Source
	applier Applier

	// kick wakes the loop outside the tick cadence, used by the file
	// watcher to apply changes immediately.
	kick chan struct{}
}

// New creates the polling service.
func New(logger *slog.Logger, cfg Config, source Source, applier Applier) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if source == nil {
		panic("transport: source cannot be nil")
	}
	if applier == nil {
		panic("transport: applier cannot be nil")
	}

	if cfg.Interval < time.Second {
		cfg.Interval = 10 * time.Second // Safe default
	}

	return &Service{
		logger:  logger,
		config:  cfg,
		source:  source,
		applier: applier,
		kick:    make(chan struct{}, 1),
	}
}

// Kick requests an immediate fetch cycle. Safe to call from any
// goroutine; coalesces when a request is already pending.
func (s *Service) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run starts the fetch loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting spec sync", slog.String("interval", s.config.Interval.String()))

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run once immediately on startup
	if err := s.syncOnce(ctx); err != nil {
		s.logger.Error("initial spec fetch failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("spec sync stopping...")
			return nil
		case <-s.kick:
			if err := s.syncOnce(ctx); err != nil {
				s.logger.Error("spec fetch failed", slog.String("error", err.Error()))
			}
		case <-ticker.C:
			// Errors are logged, not fatal; retry on next tick.
			if err := s.syncOnce(ctx); err != nil {
				s.logger.Error("spec fetch failed", slog.String("error", err.Error()))
			}
		}
	}
}

// syncOnce performs a single fetch-and-apply cycle.
func (s *Service) syncOnce(ctx context.Context) error {
	start := time.Now()

	rs, err := s.source.Fetch(ctx, s.applier.SinceTime())
	if err != nil {
		observability.RulesetFetchesTotal.WithLabelValues(outcomeError).Inc()
		return err
	}

	if !rs.HasUpdates {
		// Forward anyway: appliers record the no-change provenance
		// (NetworkNotModified) without touching their held data.
		if err := s.applier.Apply(ctx, rs); err != nil {
			observability.RulesetFetchesTotal.WithLabelValues(outcomeError).Inc()
			return err
		}
		observability.RulesetFetchesTotal.WithLabelValues(outcomeNotModified).Inc()
		return nil
	}

	if err := s.applier.Apply(ctx, rs); err != nil {
		observability.RulesetFetchesTotal.WithLabelValues(outcomeError).Inc()
		return err
	}

	observability.RulesetFetchesTotal.WithLabelValues(outcomeUpdated).Inc()
	s.logger.Info("ruleset applied",
		slog.Int64("time", rs.Time),
		slog.Int("gates", len(rs.FeatureGates)),
		slog.Int("configs", len(rs.DynamicConfigs)),
		slog.Int("layers", len(rs.LayerConfigs)),
		slog.String("duration", time.Since(start).String()),
	)
	return nil
}
