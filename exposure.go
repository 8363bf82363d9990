package vordr

import (
	"log/slog"

	"github.com/vordr-io/vordr-go/internal/evaluator"
)

// GateExposure records one feature gate check.
type GateExposure struct {
	Gate               string
	Value              bool
	RuleID             string
	Reason             string
	UserID             string
	SecondaryExposures []evaluator.SecondaryExposure
}

// ConfigExposure records one dynamic config or experiment read.
type ConfigExposure struct {
	Config             string
	RuleID             string
	Reason             string
	UserID             string
	SecondaryExposures []evaluator.SecondaryExposure
}

// LayerExposure records one layer parameter read. AllocatedExperiment
// is the delegate experiment owning the parameter, or empty when the
// layer itself served the value.
type LayerExposure struct {
	Layer               string
	Parameter           string
	RuleID              string
	Reason              string
	UserID              string
	AllocatedExperiment string
	SecondaryExposures  []evaluator.SecondaryExposure
}

// ExposureSink receives exposure events. Implementations must not
// block; delivery failures never affect evaluation results.
type ExposureSink interface {
	LogGateExposure(e GateExposure)
	LogConfigExposure(e ConfigExposure)
	LogLayerExposure(e LayerExposure)
}

// slogSink is the default sink: one debug line per exposure.
type slogSink struct {
	logger *slog.Logger
}

func (s *slogSink) LogGateExposure(e GateExposure) {
	s.logger.Debug("gate exposure",
		slog.String("gate", e.Gate),
		slog.Bool("value", e.Value),
		slog.String("rule_id", e.RuleID),
		slog.String("reason", e.Reason),
		slog.String("user_id", e.UserID),
	)
}

func (s *slogSink) LogConfigExposure(e ConfigExposure) {
	s.logger.Debug("config exposure",
		slog.String("config", e.Config),
		slog.String("rule_id", e.RuleID),
		slog.String("reason", e.Reason),
		slog.String("user_id", e.UserID),
	)
}

func (s *slogSink) LogLayerExposure(e LayerExposure) {
	s.logger.Debug("layer exposure",
		slog.String("layer", e.Layer),
		slog.String("parameter", e.Parameter),
		slog.String("rule_id", e.RuleID),
		slog.String("reason", e.Reason),
		slog.String("allocated_experiment", e.AllocatedExperiment),
		slog.String("user_id", e.UserID),
	)
}
