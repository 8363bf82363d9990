package evaluator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		first  string
		second string
		want   int
		valid  bool
	}{
		{name: "equal after stripping extension", first: "1.2.3-beta", second: "1.2.3", want: 0, valid: true},
		{name: "zero padding makes 1.2 equal 1.2.0", first: "1.2", second: "1.2.0", want: 0, valid: true},
		{name: "smaller", first: "1.2.3", second: "1.3.0", want: -1, valid: true},
		{name: "larger", first: "2.0", second: "1.99.99", want: 1, valid: true},
		{name: "both extensions stripped", first: "4.8.0-prerelease", second: "4.8.0-hotfix", want: 0, valid: true},
		{name: "non numeric part is malformed", first: "1.x.3", second: "1.2.3", valid: false},
		{name: "empty side is malformed", first: "", second: "1.0", valid: false},
		{name: "extension only is malformed", first: "-beta", second: "1.0", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := versionCompare(tt.first, tt.second)

			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNumberCompare(t *testing.T) {
	t.Parallel()

	gt := func(a, b float64) bool { return a > b }

	assert.True(t, numberCompare(float64(10), float64(5), gt))
	assert.True(t, numberCompare("10", float64(5), gt), "numeric strings coerce")
	assert.True(t, numberCompare(float64(10), "5", gt))
	assert.False(t, numberCompare("ten", float64(5), gt), "non-numeric coercion fails the comparison")
	assert.False(t, numberCompare(nil, float64(5), gt))
	assert.False(t, numberCompare(float64(10), nil, gt))
}

func TestLooseEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  any
		target any
		want   bool
	}{
		{name: "same strings", value: "on", target: "on", want: true},
		{name: "number vs numeric string", value: float64(5), target: "5", want: true},
		{name: "different numbers", value: float64(5), target: float64(6), want: false},
		{name: "case sensitive strings", value: "On", target: "on", want: false},
		{name: "both absent", value: nil, target: nil, want: true},
		{name: "absent vs present", value: nil, target: "x", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looseEqual(tt.value, tt.target))
		})
	}
}

func TestArrayAny(t *testing.T) {
	t.Parallel()

	target := []any{"Alpha", "beta"}

	eq := func(a, b string) bool { return a == b }

	assert.True(t, arrayAny("ALPHA", target, true, eq), "case insensitive match")
	assert.False(t, arrayAny("ALPHA", target, false, eq), "case sensitive mismatch")
	assert.True(t, arrayAny("beta", target, false, eq))
	assert.False(t, arrayAny("gamma", target, true, eq))
	assert.False(t, arrayAny("alpha", "not-an-array", true, eq), "target must be an array")
	assert.False(t, arrayAny(nil, target, true, eq))
}

func TestMatchesRegex(t *testing.T) {
	t.Parallel()

	assert.True(t, matchesRegex("user@example.com", `@example\.com$`))
	assert.False(t, matchesRegex("user@other.com", `@example\.com$`))

	t.Run("malformed pattern fails closed", func(t *testing.T) {
		assert.False(t, matchesRegex("anything", `(unclosed`))
	})

	t.Run("oversized subject fails, not truncated and matched", func(t *testing.T) {
		long := strings.Repeat("a", 2000)
		assert.False(t, matchesRegex(long, `^a`))
	})
}

func TestDateCompare(t *testing.T) {
	t.Parallel()

	before := func(a, b int64) bool {
		got, _ := applyOperator("before", a, b)
		return got
	}

	t.Run("epoch millis compare", func(t *testing.T) {
		assert.True(t, before(1_000_000, 2_000_000))
		assert.False(t, before(2_000_000, 1_000_000))
	})

	t.Run("calendar string vs epoch fallback", func(t *testing.T) {
		got, err := applyOperator("after", "2024-06-01", "2024-01-01")
		assert.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("on compares at day granularity", func(t *testing.T) {
		got, err := applyOperator("on", "2024-06-01T23:59:00Z", "2024-06-01T00:01:00Z")
		assert.NoError(t, err)
		assert.True(t, got)

		got, err = applyOperator("on", "2024-06-02T00:01:00Z", "2024-06-01T23:59:00Z")
		assert.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("unparseable side fails", func(t *testing.T) {
		got, err := applyOperator("before", "not-a-date", "2024-01-01")
		assert.NoError(t, err)
		assert.False(t, got)
	})
}

func TestCoerceString_JSONNumbers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "3", coerceString(float64(3)), "whole floats print without decimals")
	assert.Equal(t, "3.5", coerceString(float64(3.5)))
	assert.Equal(t, "", coerceString(nil))
}
