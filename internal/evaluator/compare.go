package evaluator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxRegexSubjectLen caps the subject length for str_matches. Longer
// subjects fail the condition outright instead of being truncated and
// matched, bounding pathological regex cost.
const maxRegexSubjectLen = 1000

// coerceNumber converts a decoded JSON value to a float64 for the
// numeric operator family. Anything that does not coerce cleanly makes
// the comparison fail rather than guess.
func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// coerceString renders a value the way the ruleset author sees it.
// Whole-number floats print without a trailing ".0" so JSON numbers
// round-trip as "3", not "3.000000".
func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

// numberCompare applies fn to both sides coerced to numbers, failing on
// any non-numeric side.
func numberCompare(value, target any, fn func(a, b float64) bool) bool {
	if value == nil || target == nil {
		return false
	}
	a, okA := coerceNumber(value)
	b, okB := coerceNumber(target)
	if !okA || !okB {
		return false
	}
	return fn(a, b)
}

// versionCompare compares two version strings part-by-part, padding the
// shorter with zeros and stripping any "-suffix" extension first.
// Returns -1/0/1 and false when either side is malformed, in which case
// the operator as a whole fails.
func versionCompare(first, second string) (int, bool) {
	v1 := stripVersionExtension(first)
	v2 := stripVersionExtension(second)
	if v1 == "" || v2 == "" {
		return 0, false
	}

	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")
	n := len(parts1)
	if len(parts2) > n {
		n = len(parts2)
	}

	for i := 0; i < n; i++ {
		p1, p2 := "0", "0"
		if i < len(parts1) {
			p1 = parts1[i]
		}
		if i < len(parts2) {
			p2 = parts2[i]
		}
		n1, err1 := strconv.ParseFloat(p1, 64)
		n2, err2 := strconv.ParseFloat(p2, 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		if n1 < n2 {
			return -1, true
		}
		if n1 > n2 {
			return 1, true
		}
	}
	return 0, true
}

func stripVersionExtension(version string) string {
	if i := strings.Index(version, "-"); i >= 0 {
		return version[:i]
	}
	return version
}

// versionCompareAgainst coerces both sides to strings, runs
// versionCompare, and applies fn to the ordering.
func versionCompareAgainst(value, target any, fn func(res int) bool) bool {
	if value == nil || target == nil {
		return false
	}
	res, ok := versionCompare(coerceString(value), coerceString(target))
	if !ok {
		return false
	}
	return fn(res)
}

// arrayAny reports whether fn holds between value and any element of
// target, which must be an array. Case folding is applied to both sides
// when ignoreCase is set.
func arrayAny(value, target any, ignoreCase bool, fn func(a, b string) bool) bool {
	arr, ok := target.([]any)
	if !ok {
		return false
	}
	if value == nil {
		return false
	}
	a := coerceString(value)
	if ignoreCase {
		a = strings.ToLower(a)
	}
	for _, item := range arr {
		if item == nil {
			continue
		}
		b := coerceString(item)
		if ignoreCase {
			b = strings.ToLower(b)
		}
		if fn(a, b) {
			return true
		}
	}
	return false
}

// looseEqual implements the eq/neq operator: numeric comparison when
// both sides coerce to numbers, string-form comparison otherwise. Two
// absent values are equal; absent versus present is not.
func looseEqual(value, target any) bool {
	if value == nil || target == nil {
		return value == nil && target == nil
	}
	a, okA := coerceNumber(value)
	b, okB := coerceNumber(target)
	if okA && okB {
		return a == b
	}
	return coerceString(value) == coerceString(target)
}

// matchesRegex implements str_matches. Malformed patterns and oversized
// subjects fail the condition, they do not error out of evaluation.
func matchesRegex(value, target any) bool {
	subject := coerceString(value)
	if len(subject) >= maxRegexSubjectLen {
		return false
	}
	re, err := regexp.Compile(coerceString(target))
	if err != nil {
		return false
	}
	return re.MatchString(subject)
}

// dateLayouts are tried in order before falling back to epoch parsing.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate parses either side of a date operator: calendar date
// strings first, then a numeric epoch-milliseconds fallback.
func parseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t, true
			}
		}
		if ms, err := strconv.ParseFloat(strings.TrimSpace(d), 64); err == nil {
			return time.UnixMilli(int64(ms)), true
		}
		return time.Time{}, false
	case float64:
		return time.UnixMilli(int64(d)), true
	case int64:
		return time.UnixMilli(d), true
	case int:
		return time.UnixMilli(int64(d)), true
	default:
		return time.Time{}, false
	}
}

// dateCompare parses both sides and applies fn. Unparseable input on
// either side fails the comparison.
func dateCompare(value, target any, fn func(a, b time.Time) bool) bool {
	if value == nil || target == nil {
		return false
	}
	a, okA := parseDate(value)
	b, okB := parseDate(target)
	if !okA || !okB {
		return false
	}
	return fn(a, b)
}

// sameDay zeroes out time-of-day in UTC before comparing, implementing
// the "on" operator's day granularity.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
