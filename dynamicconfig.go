package vordr

// DynamicConfig is the value object returned for dynamic configs and
// experiments: a parameter bag plus the rule that served it. Typed
// getters fall back to the caller's default on missing keys and type
// mismatches, never on partial coercion.
type DynamicConfig struct {
	Name      string
	RuleID    string
	GroupName string
	Details   EvaluationDetails

	value map[string]any
}

// Value returns the raw parameter map. Never nil.
func (c *DynamicConfig) Value() map[string]any {
	if c.value == nil {
		return map[string]any{}
	}
	return c.value
}

// GetString returns the named parameter, or fallback when absent or
// not a string.
func (c *DynamicConfig) GetString(key, fallback string) string {
	if v, ok := c.value[key].(string); ok {
		return v
	}
	return fallback
}

// GetNumber returns the named parameter, or fallback when absent or
// not numeric. JSON numbers decode as float64.
func (c *DynamicConfig) GetNumber(key string, fallback float64) float64 {
	switch v := c.value[key].(type) {
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
func (c *DynamicConfig) GetBool(key string, fallback bool) bool {
	if v, ok := c.value[key].(bool); ok {
		return v
	}
	return fallback
}

// GetSlice returns the named parameter, or fallback when absent or not
// an array.
func (c *DynamicConfig) GetSlice(key string, fallback []any) []any {
	if v, ok := c.value[key].([]any); ok {
		return v
	}
	return fallback
}

// GetMap returns the named parameter, or fallback when absent or not
// an object.
func (c *DynamicConfig) GetMap(key string, fallback map[string]any) map[string]any {
	if v, ok := c.value[key].(map[string]any); ok {
		return v
	}
	return fallback
}
