// Package evaluator implements the local rule evaluation engine.
// Given an immutable set of parsed config specs and a user, it
// deterministically computes gate values, dynamic config payloads and
// layer assignments, reproducing the server's bucketing bit-for-bit.
package evaluator

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	// conditionSegmentCount is the modulus for pass-percentage bucketing.
	// Percentages carry two decimal places via x100 integer math, so the
	// bucket space is 10,000 wide.
	conditionSegmentCount = 10_000

	// userBucketCount is the modulus for user_bucket conditions.
	userBucketCount = 1_000
)

// BucketingHash maps an arbitrary string to an unsigned 64-bit integer:
// the first 8 bytes of the SHA-256 digest of the UTF-8 input, read
// big-endian. This is the interoperability contract shared by every SDK
// and the server; changing it would silently reshuffle all rollouts.
func BucketingHash(input string) uint64 {
	sum := sha256.Sum256([]byte(input))
	return binary.BigEndian.Uint64(sum[:8])
}

// passPercentageBucket returns the bucket (0-9999) a unit falls in for
// a given config salt and rule salt.
func passPercentageBucket(configSalt, ruleSalt, unitID string) uint64 {
	return BucketingHash(configSalt+"."+ruleSalt+"."+unitID) % conditionSegmentCount
}

// userBucket returns the bucket (0-999) used by user_bucket conditions.
func userBucket(salt, unitID string) uint64 {
	return BucketingHash(salt+"."+unitID) % userBucketCount
}

// DJB2 computes the 32-bit string hash the server uses to obscure
// gate/config/layer names in distributed rulesets. It mirrors the
// JavaScript implementation: h = h*31 + ch with signed 32-bit
// wraparound, rendered as the decimal string of the unsigned result.
// JavaScript iterates UTF-16 code units, so supplementary-plane
// characters contribute a surrogate pair, not a single code point.
func DJB2(value string) string {
	var hash int32
	for _, unit := range utf16.Encode([]rune(value)) {
		hash = hash*31 + int32(unit)
	}
	return strconv.FormatUint(uint64(uint32(hash)), 10)
}

// UserCacheKey derives the stable storage key for a user's cached
// record from its userID and customIDs. CustomID keys are sorted so the
// key is deterministic regardless of map iteration order.
func UserCacheKey(user *User) string {
	var b strings.Builder
	b.WriteString("userID:")
	if user != nil {
		b.WriteString(user.UserID)
	}

	if user != nil && len(user.CustomIDs) > 0 {
		keys := make([]string, 0, len(user.CustomIDs))
		for k := range user.CustomIDs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(";")
			b.WriteString(k)
			b.WriteString(":")
			b.WriteString(user.CustomIDs[k])
		}
	}

	return DJB2(b.String())
}

// UserHash produces a canonical hash of the full user object, used to
// decide whether a cached "since" timestamp still applies to the exact
// same user. encoding/json sorts map keys, so the representation is
// stable across processes.
func UserHash(user *User) string {
	if user == nil {
		return DJB2("null")
	}
	raw, err := json.Marshal(user.canonicalMap())
	if err != nil {
		return DJB2("null")
	}
	return DJB2(string(raw))
}
