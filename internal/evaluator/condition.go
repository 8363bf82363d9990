package evaluator

import (
	"strconv"
	"strings"
	"time"
)

// evalCondition evaluates one condition against the user. It is pure
// except for pass_gate/fail_gate, which recurse into the nested gate
// and record the lookup itself as a secondary exposure on top of the
// nested gate's own trail.
func (e *Evaluator) evalCondition(set *specSet, user *User, cond *Condition) (bool, []SecondaryExposure, error) {
	var value any

	switch strings.ToLower(cond.Type) {
	case "public":
		return true, nil, nil

	case "pass_gate", "fail_gate":
		gateName := coerceString(cond.TargetValue)
		gateResult := e.evalConfigSpec(set, user, set.lookup(set.featureGates, gateName))

		exposures := append([]SecondaryExposure{}, gateResult.SecondaryExposures...)
		exposures = append(exposures, SecondaryExposure{
			Gate:      gateName,
			GateValue: strconv.FormatBool(gateResult.Value),
			RuleID:    gateResult.RuleID,
		})

		passes := gateResult.Value
		if strings.ToLower(cond.Type) == "fail_gate" {
			passes = !passes
		}
		return passes, exposures, nil

	case "ip_based":
		// Would require IP geolocation (country, region) which this
		// engine cannot resolve locally.
		return false, nil, unsupported("condition", cond.Type)

	case "ua_based":
		// Would require user-agent parsing (os, browser).
		return false, nil, unsupported("condition", cond.Type)

	case "user_field":
		value, _ = userField(user, cond.Field)

	case "environment_field":
		value, _ = environmentField(user, cond.Field)

	case "current_time":
		value = time.Now().UnixMilli()

	case "user_bucket":
		salt := coerceString(cond.AdditionalValues["salt"])
		value = int64(userBucket(salt, user.UnitID(cond.IDType)))

	case "unit_id":
		if id := user.UnitID(cond.IDType); id != "" {
			value = id
		}

	case "javascript":
		// Arbitrary host-language execution is a permanent scope
		// exclusion, not a gap to fill.
		return false, nil, unsupported("condition", cond.Type)

	default:
		return false, nil, unsupported("condition", cond.Type)
	}

	passes, err := applyOperator(cond.Operator, value, cond.TargetValue)
	return passes, nil, err
}

// applyOperator compares a resolved value against the condition's
// target. Unknown operators and segment-list lookups (which need
// server-held data) are unsupported rather than false.
func applyOperator(operator string, value, target any) (bool, error) {
	switch strings.ToLower(operator) {
	// numeric
	case "gt":
		return numberCompare(value, target, func(a, b float64) bool { return a > b }), nil
	case "gte":
		return numberCompare(value, target, func(a, b float64) bool { return a >= b }), nil
	case "lt":
		return numberCompare(value, target, func(a, b float64) bool { return a < b }), nil
	case "lte":
		return numberCompare(value, target, func(a, b float64) bool { return a <= b }), nil

	// version
	case "version_gt":
		return versionCompareAgainst(value, target, func(res int) bool { return res > 0 }), nil
	case "version_gte":
		return versionCompareAgainst(value, target, func(res int) bool { return res >= 0 }), nil
	case "version_lt":
		return versionCompareAgainst(value, target, func(res int) bool { return res < 0 }), nil
	case "version_lte":
		return versionCompareAgainst(value, target, func(res int) bool { return res <= 0 }), nil
	case "version_eq":
		return versionCompareAgainst(value, target, func(res int) bool { return res == 0 }), nil
	case "version_neq":
		return versionCompareAgainst(value, target, func(res int) bool { return res != 0 }), nil

	// array membership
	case "any":
		return arrayAny(value, target, true, func(a, b string) bool { return a == b }), nil
	case "none":
		return !arrayAny(value, target, true, func(a, b string) bool { return a == b }), nil
	case "any_case_sensitive":
		return arrayAny(value, target, false, func(a, b string) bool { return a == b }), nil
	case "none_case_sensitive":
		return !arrayAny(value, target, false, func(a, b string) bool { return a == b }), nil

	// string
	case "str_starts_with_any":
		return arrayAny(value, target, true, strings.HasPrefix), nil
	case "str_ends_with_any":
		return arrayAny(value, target, true, strings.HasSuffix), nil
	case "str_contains_any":
		return arrayAny(value, target, true, strings.Contains), nil
	case "str_contains_none":
		return !arrayAny(value, target, true, strings.Contains), nil
	case "str_matches":
		return matchesRegex(value, target), nil

	// loose equality
	case "eq":
		return looseEqual(value, target), nil
	case "neq":
		return !looseEqual(value, target), nil

	// dates
	case "before":
		return dateCompare(value, target, func(a, b time.Time) bool { return a.Before(b) }), nil
	case "after":
		return dateCompare(value, target, func(a, b time.Time) bool { return a.After(b) }), nil
	case "on":
		return dateCompare(value, target, sameDay), nil

	case "in_segment_list", "not_in_segment_list":
		// Segment membership lives server-side.
		return false, unsupported("operator", operator)

	default:
		return false, unsupported("operator", operator)
	}
}
