package evaluator

import "time"

// Reason records the provenance of an evaluation result.
type Reason string

const (
	ReasonNetwork            Reason = "Network"
	ReasonBootstrap          Reason = "Bootstrap"
	ReasonInvalidBootstrap   Reason = "InvalidBootstrap"
	ReasonCache              Reason = "Cache"
	ReasonUnrecognized       Reason = "Unrecognized"
	ReasonUninitialized      Reason = "Uninitialized"
	ReasonUnsupported        Reason = "Unsupported"
	ReasonError              Reason = "Error"
	ReasonNetworkNotModified Reason = "NetworkNotModified"
)

// Details carries the provenance tag plus the timestamp of the data the
// result was computed from.
type Details struct {
	Time   int64  `json:"time"`
	Reason Reason `json:"reason"`
}

// SecondaryExposure records one nested gate check performed while
// evaluating some other spec. Trails accumulate in traversal order and
// are never reordered or deduplicated.
type SecondaryExposure struct {
	Gate      string `json:"gate"`
	GateValue string `json:"gateValue"`
	RuleID    string `json:"ruleID"`
}

// Result is the output of one spec evaluation. It is constructed once
// with all fields and not mutated afterwards; callers derive variants
// via the With* helpers, which return the updated value.
type Result struct {
	Value              bool                `json:"value"`
	RuleID             string              `json:"rule_id"`
	SecondaryExposures []SecondaryExposure `json:"secondary_exposures"`
	JSONValue          map[string]any      `json:"json_value"`
	ExplicitParameters []string            `json:"explicit_parameters"`
	ConfigDelegate     string              `json:"config_delegate,omitempty"`

	// UndelegatedSecondaryExposures preserves the trail gathered before
	// any delegation, so layer parameter exposure logging can pick the
	// correct trail per parameter.
	UndelegatedSecondaryExposures []SecondaryExposure `json:"undelegated_secondary_exposures"`

	IsExperimentGroup bool    `json:"is_experiment_group"`
	GroupName         string  `json:"group_name,omitempty"`
	Details           Details `json:"evaluation_details"`
}

// newResult builds a Result with both exposure trails set to the given
// trail; delegation overrides them separately.
func newResult(value bool, ruleID string, exposures []SecondaryExposure, jsonValue any, explicitParams []string) *Result {
	return &Result{
		Value:                         value,
		RuleID:                        ruleID,
		SecondaryExposures:            exposures,
		UndelegatedSecondaryExposures: exposures,
		JSONValue:                     JSONValue(jsonValue),
		ExplicitParameters:            explicitParams,
		Details: Details{
			Time:   time.Now().UnixMilli(),
			Reason: ReasonUninitialized,
		},
	}
}

// WithReason returns the result tagged with the given evaluation reason.
func (r *Result) WithReason(reason Reason) *Result {
	r.Details.Reason = reason
	return r
}

// WithTime returns the result stamped with the given data timestamp.
func (r *Result) WithTime(t int64) *Result {
	r.Details.Time = t
	return r
}
