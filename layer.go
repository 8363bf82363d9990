package vordr

import (
	"slices"

	"github.com/vordr-io/vordr-go/internal/evaluator"
)

// Layer is the value object returned for layers. Parameter reads log a
// parameter exposure attributing the read to the delegate experiment
// when that experiment owns the parameter, and to the layer itself
// otherwise.
type Layer struct {
	Name      string
	RuleID    string
	GroupName string
	Details   EvaluationDetails

	value  map[string]any
	result *evaluator.Result
	onRead func(parameter string)
}

// Value returns the raw parameter map without logging exposures.
// Never nil.
func (l *Layer) Value() map[string]any {
	if l.value == nil {
		return map[string]any{}
	}
	return l.value
}

func (l *Layer) read(key string) (any, bool) {
	v, ok := l.value[key]
	if !ok {
		return nil, false
	}
	if l.onRead != nil {
		l.onRead(key)
	}
	return v, true
}

// GetString returns the named parameter, or fallback when absent or
// not a string. Reading an existing parameter logs its exposure.
func (l *Layer) GetString(key, fallback string) string {
	if raw, ok := l.read(key); ok {
		if v, ok := raw.(string); ok {
			return v
		}
	}
	return fallback
}

// GetNumber returns the named parameter, or fallback when absent or
// not numeric.
func (l *Layer) GetNumber(key string, fallback float64) float64 {
	raw, ok := l.read(key)
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// GetBool returns the named parameter, or fallback when absent or not
// a bool.
func (l *Layer) GetBool(key string, fallback bool) bool {
	if raw, ok := l.read(key); ok {
		if v, ok := raw.(bool); ok {
			return v
		}
	}
	return fallback
}

// GetSlice returns the named parameter, or fallback when absent or not
// an array.
func (l *Layer) GetSlice(key string, fallback []any) []any {
	if raw, ok := l.read(key); ok {
		if v, ok := raw.([]any); ok {
			return v
		}
	}
	return fallback
}

// GetMap returns the named parameter, or fallback when absent or not
// an object.
func (l *Layer) GetMap(key string, fallback map[string]any) map[string]any {
	if raw, ok := l.read(key); ok {
		if v, ok := raw.(map[string]any); ok {
			return v
		}
	}
	return fallback
}

// layerExposureFor builds the parameter exposure for one read,
// choosing the delegated or undelegated trail based on whether the
// delegate experiment declares the parameter explicit.
func layerExposureFor(name, userID, parameter string, result *evaluator.Result) LayerExposure {
	e := LayerExposure{
		Layer:     name,
		Parameter: parameter,
		RuleID:    result.RuleID,
		Reason:    string(result.Details.Reason),
		UserID:    userID,
	}

	if result.ConfigDelegate != "" && slices.Contains(result.ExplicitParameters, parameter) {
		e.AllocatedExperiment = result.ConfigDelegate
		e.SecondaryExposures = result.SecondaryExposures
	} else {
		e.SecondaryExposures = result.UndelegatedSecondaryExposures
	}
	return e
}
