package evalapi

import (
	"github.com/vordr-io/vordr-go/internal/evaluator"
)

// EvalRequest is the body of every evaluation endpoint: the spec name
// plus the user to evaluate for.
type EvalRequest struct {
	Name string          `json:"name"`
	User *evaluator.User `json:"user"`
}

// EvalResponse is the wire form of an evaluation result.
type EvalResponse struct {
	Name               string                          `json:"name"`
	Value              bool                            `json:"value"`
	JSONValue          map[string]any                  `json:"json_value,omitempty"`
	RuleID             string                          `json:"rule_id"`
	GroupName          string                          `json:"group_name,omitempty"`
	ConfigDelegate     string                          `json:"config_delegate,omitempty"`
	ExplicitParameters []string                        `json:"explicit_parameters,omitempty"`
	SecondaryExposures []evaluator.SecondaryExposure   `json:"secondary_exposures"`
	UndelegatedSecondaryExposures []evaluator.SecondaryExposure `json:"undelegated_secondary_exposures,omitempty"`
	IsExperimentGroup  bool                            `json:"is_experiment_group,omitempty"`
	Details            DetailsResponse                 `json:"evaluation_details"`
}

// DetailsResponse carries the provenance tag of the served data.
type DetailsResponse struct {
	Reason string `json:"reason"`
	Time   int64  `json:"time"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toEvalResponse(name string, result *evaluator.Result) EvalResponse {
	exposures := result.SecondaryExposures
	if exposures == nil {
		exposures = []evaluator.SecondaryExposure{}
	}

	return EvalResponse{
		Name:                          name,
		Value:                         result.Value,
		JSONValue:                     result.JSONValue,
		RuleID:                        result.RuleID,
		GroupName:                     result.GroupName,
		ConfigDelegate:                result.ConfigDelegate,
		ExplicitParameters:            result.ExplicitParameters,
		SecondaryExposures:            exposures,
		UndelegatedSecondaryExposures: result.UndelegatedSecondaryExposures,
		IsExperimentGroup:             result.IsExperimentGroup,
		Details: DetailsResponse{
			Reason: string(result.Details.Reason),
			Time:   result.Details.Time,
		},
	}
}
