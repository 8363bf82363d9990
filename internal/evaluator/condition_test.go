package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// condGate wraps a single condition in a 100% gate so tests exercise
// the full evaluation path.
func condGate(name string, cond map[string]any) map[string]any {
	return gateSpec(name, map[string]any{
		"id":             name + "_rule",
		"passPercentage": 100,
		"returnValue":    true,
		"conditions":     []map[string]any{cond},
	})
}

func evalCond(t *testing.T, user *User, cond map[string]any) *Result {
	t.Helper()

	e := newTestEvaluator(t, rawSpecs(t, condGate("probe", cond)), nil, nil)
	return e.CheckGate(user, "probe")
}

func TestCondition_Public(t *testing.T) {
	t.Parallel()

	res := evalCond(t, &User{}, map[string]any{"type": "public"})
	assert.True(t, res.Value)
}

func TestCondition_UserFieldLookupOrder(t *testing.T) {
	t.Parallel()

	cond := map[string]any{
		"type":        "user_field",
		"field":       "plan",
		"operator":    "any",
		"targetValue": []string{"pro"},
	}

	t.Run("resolves from custom bag", func(t *testing.T) {
		res := evalCond(t, &User{UserID: "u", Custom: map[string]any{"plan": "pro"}}, cond)
		assert.True(t, res.Value)
	})

	t.Run("falls back to lowercased custom key", func(t *testing.T) {
		upper := map[string]any{
			"type":        "user_field",
			"field":       "Plan",
			"operator":    "any",
			"targetValue": []string{"pro"},
		}
		res := evalCond(t, &User{UserID: "u", Custom: map[string]any{"plan": "pro"}}, upper)
		assert.True(t, res.Value)
	})

	t.Run("falls back to private attributes", func(t *testing.T) {
		res := evalCond(t, &User{UserID: "u", PrivateAttributes: map[string]any{"plan": "pro"}}, cond)
		assert.True(t, res.Value)
	})

	t.Run("custom wins over private", func(t *testing.T) {
		u := &User{
			UserID:            "u",
			Custom:            map[string]any{"plan": "free"},
			PrivateAttributes: map[string]any{"plan": "pro"},
		}
		res := evalCond(t, u, cond)
		assert.False(t, res.Value)
	})

	t.Run("top level field", func(t *testing.T) {
		emailCond := map[string]any{
			"type":        "user_field",
			"field":       "email",
			"operator":    "str_ends_with_any",
			"targetValue": []string{"@corp.example"},
		}
		res := evalCond(t, &User{UserID: "u", Email: "dev@corp.example"}, emailCond)
		assert.True(t, res.Value)
	})

	t.Run("missing everywhere does not match", func(t *testing.T) {
		res := evalCond(t, &User{UserID: "u"}, cond)
		assert.False(t, res.Value)
	})
}

func TestCondition_EnvironmentField(t *testing.T) {
	t.Parallel()

	cond := map[string]any{
		"type":        "environment_field",
		"field":       "Tier",
		"operator":    "any",
		"targetValue": []string{"staging"},
	}

	u := &User{UserID: "u", Environment: map[string]string{"tier": "staging"}}
	assert.True(t, evalCond(t, u, cond).Value, "environment key match is case insensitive")

	prod := &User{UserID: "u", Environment: map[string]string{"tier": "production"}}
	assert.False(t, evalCond(t, prod, cond).Value)
}

func TestCondition_CurrentTime(t *testing.T) {
	t.Parallel()

	res := evalCond(t, &User{UserID: "u"}, map[string]any{
		"type":        "current_time",
		"operator":    "after",
		"targetValue": "2020-01-01",
	})
	assert.True(t, res.Value)
}

func TestCondition_UserBucket(t *testing.T) {
	t.Parallel()

	// layer_salt.user-42 hashes to bucket 315 (reference vector).
	cond := func(op string, target any) map[string]any {
		return map[string]any{
			"type":             "user_bucket",
			"operator":         op,
			"targetValue":      target,
			"additionalValues": map[string]any{"salt": "layer_salt"},
		}
	}

	u := &User{UserID: "user-42"}
	assert.True(t, evalCond(t, u, cond("eq", 315)).Value)
	assert.True(t, evalCond(t, u, cond("lt", 1000)).Value, "bucket is always below the modulus")
	assert.False(t, evalCond(t, u, cond("eq", 316)).Value)
}

func TestCondition_UnitID(t *testing.T) {
	t.Parallel()

	cond := map[string]any{
		"type":        "unit_id",
		"idType":      "companyID",
		"operator":    "any",
		"targetValue": []string{"c-1"},
	}

	t.Run("custom id exact key", func(t *testing.T) {
		u := &User{UserID: "u", CustomIDs: map[string]string{"companyID": "c-1"}}
		assert.True(t, evalCond(t, u, cond).Value)
	})

	t.Run("custom id lowercased key", func(t *testing.T) {
		u := &User{UserID: "u", CustomIDs: map[string]string{"companyid": "c-1"}}
		assert.True(t, evalCond(t, u, cond).Value)
	})

	t.Run("userid idType selects UserID", func(t *testing.T) {
		byUser := map[string]any{
			"type":        "unit_id",
			"idType":      "userID",
			"operator":    "any",
			"targetValue": []string{"u-9"},
		}
		assert.True(t, evalCond(t, &User{UserID: "u-9"}, byUser).Value)
	})

	t.Run("missing custom id does not match", func(t *testing.T) {
		assert.False(t, evalCond(t, &User{UserID: "u"}, cond).Value)
	})
}

func TestCondition_FailGate(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(t, rawSpecs(t,
		gateSpec("dep_gate", publicRule("dep_rule", 100)),
		condGate("inverse", map[string]any{"type": "fail_gate", "targetValue": "dep_gate"}),
	), nil, nil)

	res := e.CheckGate(&User{UserID: "u"}, "inverse")

	assert.False(t, res.Value, "fail_gate negates a passing gate")
	require.Len(t, res.SecondaryExposures, 1)
	assert.Equal(t, "dep_gate", res.SecondaryExposures[0].Gate)
	assert.Equal(t, "true", res.SecondaryExposures[0].GateValue)
}

func TestCondition_NestedGateAgainstMissingGate(t *testing.T) {
	t.Parallel()

	res := evalCond(t, &User{UserID: "u"}, map[string]any{"type": "pass_gate", "targetValue": "ghost_gate"})

	assert.False(t, res.Value)
	require.Len(t, res.SecondaryExposures, 1)
	assert.Equal(t, SecondaryExposure{Gate: "ghost_gate", GateValue: "false", RuleID: ""}, res.SecondaryExposures[0])
}

func TestCondition_UnsupportedTypes(t *testing.T) {
	t.Parallel()

	for _, condType := range []string{"ip_based", "ua_based", "javascript", "some_future_type"} {
		t.Run(condType, func(t *testing.T) {
			res := evalCond(t, &User{UserID: "u"}, map[string]any{
				"type":        condType,
				"operator":    "any",
				"targetValue": []string{"x"},
			})

			assert.False(t, res.Value)
			assert.Equal(t, ReasonUnsupported, res.Details.Reason, "must fail closed, not resolve to a plain false")
		})
	}
}

func TestCondition_StringOperators(t *testing.T) {
	t.Parallel()

	user := &User{UserID: "u", Custom: map[string]any{"browserVersion": "11.4.2"}}

	tests := []struct {
		name string
		cond map[string]any
		want bool
	}{
		{
			name: "version_gte",
			cond: map[string]any{"type": "user_field", "field": "browserVersion", "operator": "version_gte", "targetValue": "11.4"},
			want: true,
		},
		{
			name: "version_lt fails",
			cond: map[string]any{"type": "user_field", "field": "browserVersion", "operator": "version_lt", "targetValue": "11.4"},
			want: false,
		},
		{
			name: "str_contains_any",
			cond: map[string]any{"type": "user_field", "field": "browserVersion", "operator": "str_contains_any", "targetValue": []string{".4."}},
			want: true,
		},
		{
			name: "str_contains_none",
			cond: map[string]any{"type": "user_field", "field": "browserVersion", "operator": "str_contains_none", "targetValue": []string{".9."}},
			want: true,
		},
		{
			name: "str_matches",
			cond: map[string]any{"type": "user_field", "field": "browserVersion", "operator": "str_matches", "targetValue": `^11\.`},
			want: true,
		},
		{
			name: "none rejects present value",
			cond: map[string]any{"type": "user_field", "field": "browserVersion", "operator": "none", "targetValue": []string{"11.4.2"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalCond(t, user, tt.cond).Value)
		})
	}
}
