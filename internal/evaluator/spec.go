package evaluator

import (
	"encoding/json"
	"fmt"
)

// ConfigSpec is one parsed gate/config/layer definition from a
// distributed ruleset. Specs are immutable after parsing; a ruleset
// refresh produces a wholly new set that is swapped in atomically.
type ConfigSpec struct {
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	Salt               string   `json:"salt"`
	Enabled            bool     `json:"enabled"`
	DefaultValue       any      `json:"defaultValue"`
	Rules              []Rule   `json:"rules"`
	ExplicitParameters []string `json:"explicitParameters"`
}

// Rule is one ordered targeting rule within a spec.
type Rule struct {
	ID             string      `json:"id"`
	Salt           string      `json:"salt"`
	GroupName      string      `json:"groupName"`
	PassPercentage float64     `json:"passPercentage"`
	Conditions     []Condition `json:"conditions"`
	ReturnValue    any         `json:"returnValue"`
	IDType         string      `json:"idType"`
	ConfigDelegate string      `json:"configDelegate"`

	// IsExperimentGroup marks rules that represent experiment variants,
	// so exposure logging can distinguish allocation from plain targeting.
	IsExperimentGroup bool `json:"isExperimentGroup"`
}

// SaltOrID returns the string salted into pass-percentage bucketing.
// Older rulesets predate per-rule salts and fall back to the rule id.
func (r *Rule) SaltOrID() string {
	if r.Salt != "" {
		return r.Salt
	}
	return r.ID
}

// Condition is one predicate within a rule.
type Condition struct {
	Type             string         `json:"type"`
	TargetValue      any            `json:"targetValue"`
	Operator         string         `json:"operator"`
	Field            string         `json:"field"`
	IDType           string         `json:"idType"`
	AdditionalValues map[string]any `json:"additionalValues"`
}

// ParseSpec decodes a single raw spec definition. A spec without a name
// cannot be looked up and is rejected, which causes the whole ruleset
// ingestion to be discarded rather than installing a partial set.
func ParseSpec(raw json.RawMessage) (*ConfigSpec, error) {
	var spec ConfigSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("malformed config spec: %w", err)
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("config spec is missing a name")
	}
	return &spec, nil
}

// JSONValue coerces an arbitrary decoded value into the object payload
// carried by configs and layers. Legacy gate specs store a bare boolean
// here, which maps to an empty object.
func JSONValue(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// specSet is one immutable generation of parsed specs. Lookups try the
// DJB2-hashed name first because rulesets may ship with obscured
// identifiers, then the literal name as a compatibility fallback.
type specSet struct {
	featureGates   map[string]*ConfigSpec
	dynamicConfigs map[string]*ConfigSpec
	layerConfigs   map[string]*ConfigSpec
}

func newSpecSet() *specSet {
	return &specSet{
		featureGates:   map[string]*ConfigSpec{},
		dynamicConfigs: map[string]*ConfigSpec{},
		layerConfigs:   map[string]*ConfigSpec{},
	}
}

func (s *specSet) lookup(m map[string]*ConfigSpec, name string) *ConfigSpec {
	if spec, ok := m[DJB2(name)]; ok {
		return spec
	}
	return m[name]
}

func parseSpecMap(raws []json.RawMessage) (map[string]*ConfigSpec, error) {
	out := make(map[string]*ConfigSpec, len(raws))
	for _, raw := range raws {
		spec, err := ParseSpec(raw)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = spec
	}
	return out, nil
}
