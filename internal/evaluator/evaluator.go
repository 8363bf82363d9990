package evaluator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Evaluator is the entry point of the engine. It holds one immutable
// generation of parsed specs at a time; SetConfigSpecs swaps the whole
// generation atomically, so concurrent evaluations always see either
// the old or the new set, never a torn one. Evaluation performs no I/O
// and never blocks.
type Evaluator struct {
	set    atomic.Pointer[specSet]
	logger *slog.Logger
}

// New creates an Evaluator with an empty spec set.
func New(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Evaluator{logger: logger}
	e.set.Store(newSpecSet())
	return e
}

// SetConfigSpecs parses a fresh ruleset and installs it. Parsing is
// all-or-nothing: a single malformed spec rejects the whole update and
// the previous generation stays active.
func (e *Evaluator) SetConfigSpecs(featureGates, dynamicConfigs, layerConfigs []json.RawMessage) error {
	gates, err := parseSpecMap(featureGates)
	if err != nil {
		return fmt.Errorf("feature gates: %w", err)
	}
	configs, err := parseSpecMap(dynamicConfigs)
	if err != nil {
		return fmt.Errorf("dynamic configs: %w", err)
	}
	layers, err := parseSpecMap(layerConfigs)
	if err != nil {
		return fmt.Errorf("layer configs: %w", err)
	}

	e.set.Store(&specSet{
		featureGates:   gates,
		dynamicConfigs: configs,
		layerConfigs:   layers,
	})
	e.logger.Debug("config specs installed",
		slog.Int("gates", len(gates)),
		slog.Int("configs", len(configs)),
		slog.Int("layers", len(layers)),
	)
	return nil
}

// Reset drops the active spec set, returning the evaluator to its
// empty state.
func (e *Evaluator) Reset() {
	e.set.Store(newSpecSet())
}

// CheckGate evaluates the named feature gate for the user.
func (e *Evaluator) CheckGate(user *User, gateName string) *Result {
	set := e.set.Load()
	return e.evalConfigSpec(set, user, set.lookup(set.featureGates, gateName))
}

// GetConfig evaluates the named dynamic config or experiment.
func (e *Evaluator) GetConfig(user *User, configName string) *Result {
	set := e.set.Load()
	return e.evalConfigSpec(set, user, set.lookup(set.dynamicConfigs, configName))
}

// GetLayer evaluates the named layer, delegating to an allocated
// experiment when the matched rule carries a config delegate.
func (e *Evaluator) GetLayer(user *User, layerName string) *Result {
	set := e.set.Load()
	return e.evalConfigSpec(set, user, set.lookup(set.layerConfigs, layerName))
}

// evalConfigSpec handles the unknown-spec case and tags the result with
// the Network reason (evaluated against the currently held spec set)
// unless evaluation already produced a more specific one.
func (e *Evaluator) evalConfigSpec(set *specSet, user *User, spec *ConfigSpec) *Result {
	if spec == nil {
		return newResult(false, "", nil, nil, nil).WithReason(ReasonUnrecognized)
	}

	result := e.eval(set, user, spec)
	if result.Details.Reason == ReasonUninitialized {
		return result.WithReason(ReasonNetwork)
	}
	return result
}

// eval walks a spec's rules in order. The first rule whose conditions
// all pass determines the outcome; exposures accumulate across every
// rule evaluated on the way, in traversal order. An unsupported
// condition anywhere aborts the whole traversal and degrades to the
// spec's default value with the Unsupported reason.
func (e *Evaluator) eval(set *specSet, user *User, spec *ConfigSpec) *Result {
	if !spec.Enabled {
		return newResult(false, "disabled", nil, spec.DefaultValue, nil)
	}

	var exposures []SecondaryExposure

	for i := range spec.Rules {
		rule := &spec.Rules[i]
		ruleResult, err := e.evalRule(set, user, rule)
		if err != nil {
			return newResult(false, "default", exposures, spec.DefaultValue, spec.ExplicitParameters).
				WithReason(ReasonUnsupported)
		}

		exposures = append(exposures, ruleResult.SecondaryExposures...)

		if !ruleResult.Value {
			continue
		}

		if delegated := e.evalDelegate(set, user, rule, exposures); delegated != nil {
			return delegated
		}

		pass := e.evalPassPercent(user, rule, spec)
		value := spec.DefaultValue
		if pass {
			value = rule.ReturnValue
		}

		result := newResult(pass, ruleResult.RuleID, exposures, value, spec.ExplicitParameters)
		result.IsExperimentGroup = rule.IsExperimentGroup
		result.GroupName = rule.GroupName
		return result
	}

	return newResult(false, "default", exposures, spec.DefaultValue, spec.ExplicitParameters)
}

// evalRule evaluates every condition of a rule. There is deliberately
// no short-circuit: conditions after a failing one may still emit gate
// exposures, and the trail must be identical whether the rule passes
// or not.
func (e *Evaluator) evalRule(set *specSet, user *User, rule *Rule) (*Result, error) {
	pass := true
	var exposures []SecondaryExposure

	for i := range rule.Conditions {
		passes, condExposures, err := e.evalCondition(set, user, &rule.Conditions[i])
		if err != nil {
			return nil, err
		}
		if !passes {
			pass = false
		}
		exposures = append(exposures, condExposures...)
	}

	result := newResult(pass, rule.ID, exposures, rule.ReturnValue, nil)
	result.GroupName = rule.GroupName
	result.IsExperimentGroup = rule.IsExperimentGroup
	return result, nil
}

// evalDelegate re-evaluates the delegate config when the matched rule
// hands off to one. The delegate's own trail is prefixed with the
// exposures gathered so far, while the pre-delegation trail is kept
// separately for layer parameter logging. A delegate that does not
// resolve leaves the rule to return its own value.
func (e *Evaluator) evalDelegate(set *specSet, user *User, rule *Rule, exposures []SecondaryExposure) *Result {
	if rule.ConfigDelegate == "" {
		return nil
	}
	delegate := set.lookup(set.dynamicConfigs, rule.ConfigDelegate)
	if delegate == nil {
		return nil
	}

	result := e.eval(set, user, delegate)
	result.ConfigDelegate = rule.ConfigDelegate
	result.ExplicitParameters = delegate.ExplicitParameters
	result.UndelegatedSecondaryExposures = exposures
	result.SecondaryExposures = append(append([]SecondaryExposure{}, exposures...), result.SecondaryExposures...)
	return result
}

// evalPassPercent makes the final rollout decision for a matched rule.
// It is a pure function of (config salt, rule salt-or-id, unit id);
// identical inputs always bucket identically, across every SDK.
func (e *Evaluator) evalPassPercent(user *User, rule *Rule, spec *ConfigSpec) bool {
	if rule.PassPercentage >= 100 {
		return true
	}
	if rule.PassPercentage <= 0 {
		return false
	}
	bucket := passPercentageBucket(spec.Salt, rule.SaltOrID(), user.UnitID(rule.IDType))
	return float64(bucket) < rule.PassPercentage*100
}
