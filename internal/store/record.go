// Package store holds per-user evaluation snapshots and drives the
// engine against the spec set belonging to the active identity. It
// reconciles bootstrap payloads, merges network updates, and persists a
// bounded multi-user cache through a byte-string storage adapter.
package store

import (
	"encoding/json"
	"time"
)

// internalStoreKey is the single adapter key the serialized multi-user
// cache lives under.
const internalStoreKey = "VORDR_INTERNAL_STORE_V1"

// MaxCachedUsers bounds how many user records the cache retains.
// Eviction keeps the most recently evaluated or updated records.
const MaxCachedUsers = 10

// Ruleset is the raw payload produced by a spec source or supplied as a
// bootstrap value: the three spec arrays plus server metadata. The
// engine treats the arrays as opaque until ConfigSpec parsing.
type Ruleset struct {
	HasUpdates     bool              `json:"has_updates"`
	Time           int64             `json:"time"`
	FeatureGates   []json.RawMessage `json:"feature_gates"`
	DynamicConfigs []json.RawMessage `json:"dynamic_configs"`
	LayerConfigs   []json.RawMessage `json:"layer_configs"`
	HashUsed       string            `json:"hash_used"`

	// EvaluatedKeys declares which identity a bootstrap payload was
	// generated for; absent on plain network responses.
	EvaluatedKeys map[string]any `json:"evaluated_keys,omitempty"`

	// User and SDKInfo are bootstrap-generator metadata.
	User    map[string]any    `json:"user,omitempty"`
	SDKInfo map[string]string `json:"sdk_info,omitempty"`
}

// UserRecord is one user's cached snapshot: the spec arrays it was
// served, the server's last-changed timestamp, and the local fetch
// timestamp. Records are replaced wholesale on each successful fetch.
type UserRecord struct {
	FeatureGates   []json.RawMessage `json:"feature_gates"`
	DynamicConfigs []json.RawMessage `json:"dynamic_configs"`
	LayerConfigs   []json.RawMessage `json:"layer_configs"`
	Time           int64             `json:"time"`
	EvaluationTime int64             `json:"evaluation_time"`

	// UserHash validates whether this record's Time still applies to the
	// exact user a "since" fetch is about to run for.
	UserHash string `json:"user_hash,omitempty"`

	HashUsed          string             `json:"hash_used,omitempty"`
	BootstrapMetadata *BootstrapMetadata `json:"bootstrap_metadata,omitempty"`
}

// BootstrapMetadata records where a bootstrapped snapshot came from.
type BootstrapMetadata struct {
	GeneratorSDKInfo map[string]string `json:"generator_sdk_info,omitempty"`
	User             map[string]any    `json:"user,omitempty"`
	LCUT             int64             `json:"lcut,omitempty"`
}

// freshness orders records for eviction: the most recently evaluated or
// server-updated record wins, whichever is later.
func (r *UserRecord) freshness() int64 {
	if r == nil {
		return 0
	}
	if r.EvaluationTime > r.Time {
		return r.EvaluationTime
	}
	return r.Time
}

func emptyRecord() *UserRecord {
	return &UserRecord{}
}

// recordFromRuleset converts a fetched payload into a cacheable record,
// stamping the local fetch time.
func recordFromRuleset(rs *Ruleset) *UserRecord {
	return &UserRecord{
		FeatureGates:   rs.FeatureGates,
		DynamicConfigs: rs.DynamicConfigs,
		LayerConfigs:   rs.LayerConfigs,
		Time:           rs.Time,
		EvaluationTime: time.Now().UnixMilli(),
		HashUsed:       rs.HashUsed,
	}
}
