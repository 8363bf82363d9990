package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/vordr-io/vordr-go/internal/evaluator"
	"github.com/vordr-io/vordr-go/internal/observability"
)

// Persistence is the byte-string storage contract the store persists
// through. Get returns (nil, nil) for a missing key. No atomicity is
// required beyond last-write-wins.
type Persistence interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Store is the evaluation cache. It tracks the active identity, keeps
// one UserRecord per recently seen user, and feeds the active record's
// spec set to the engine. All state is replaced by wholesale swap;
// readers always see a complete snapshot.
type Store struct {
	mu          sync.RWMutex
	persistence Persistence
	engine      *evaluator.Evaluator
	logger      *slog.Logger

	user         *evaluator.User
	userCacheKey string
	values       map[string]*UserRecord
	current      *UserRecord
	reason       evaluator.Reason
	loaded       bool
}

// New creates a Store for the given identity. A non-nil bootstrap
// payload is reconciled immediately; otherwise the last persisted
// snapshot for this identity is loaded. With neither, the store stays
// Uninitialized and evaluates against empty defaults.
func New(ctx context.Context, persistence Persistence, logger *slog.Logger, user *evaluator.User, bootstrap json.RawMessage) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		persistence:  persistence,
		engine:       evaluator.New(logger),
		logger:       logger,
		user:         user,
		userCacheKey: evaluator.UserCacheKey(user),
		values:       map[string]*UserRecord{},
		current:      emptyRecord(),
		reason:       evaluator.ReasonUninitialized,
	}

	if bootstrap != nil {
		s.Bootstrap(bootstrap)
	} else {
		s.loadFromStorage(ctx)
	}
	return s
}

// Loaded reports whether any snapshot (bootstrap, cache, or network)
// has been installed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Bootstrap installs a caller-provided payload. A payload evaluated for
// a different identity is still installed and usable (fail open), but
// the reason is downgraded to InvalidBootstrap so the mismatch is
// observable. A payload that fails to parse leaves the store loaded
// with empty defaults rather than erroring: callers assume the SDK is
// usable after bootstrapping.
func (s *Store) Bootstrap(payload json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true

	var rs Ruleset
	if err := json.Unmarshal(payload, &rs); err != nil {
		s.logger.Warn("discarding unparseable bootstrap payload", slog.String("error", err.Error()))
		return
	}

	reason := evaluator.ReasonBootstrap
	if !bootstrapMatchesUser(s.user, &rs) {
		reason = evaluator.ReasonInvalidBootstrap
	}

	record := recordFromRuleset(&rs)
	record.BootstrapMetadata = &BootstrapMetadata{
		GeneratorSDKInfo: rs.SDKInfo,
		User:             rs.User,
		LCUT:             rs.Time,
	}

	if err := s.installLocked(record); err != nil {
		s.logger.Warn("bootstrap ruleset rejected", slog.String("error", err.Error()))
		return
	}
	s.values[s.userCacheKey] = record
	s.reason = reason
}

// UpdateUser switches the active identity and swaps in that user's
// cached record, if any. The spec set visible to evaluations changes
// atomically with the identity.
func (s *Store) UpdateUser(user *evaluator.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = user
	s.userCacheKey = evaluator.UserCacheKey(user)
	s.setUserValuesFromCacheLocked()
}

// SaveRuleset merges a fetched ruleset for the given user. The active
// record is replaced only when that user still equals the current
// identity; a late-arriving response for a since-superseded user is
// cached but never clobbers current state. A no-updates response
// mutates nothing and surfaces as NetworkNotModified.
func (s *Store) SaveRuleset(ctx context.Context, forUser *evaluator.User, rs *Ruleset) error {
	requestedKey := evaluator.UserCacheKey(forUser)

	s.mu.Lock()
	if !rs.HasUpdates {
		if requestedKey == s.userCacheKey {
			s.reason = evaluator.ReasonNetworkNotModified
			s.loaded = true
		}
		s.mu.Unlock()
		return nil
	}

	record := recordFromRuleset(rs)
	if rs.Time > 0 {
		record.UserHash = evaluator.UserHash(forUser)
	}
	s.values[requestedKey] = record

	if requestedKey == s.userCacheKey {
		if err := s.installLocked(record); err != nil {
			delete(s.values, requestedKey)
			s.mu.Unlock()
			return err
		}
		s.reason = evaluator.ReasonNetwork
		s.loaded = true
	}

	snapshot := s.evictLocked()
	s.mu.Unlock()

	return s.writeSnapshot(ctx, snapshot)
}

// LastUpdateTime returns the server timestamp of the held record when
// it demonstrably belongs to the given user, so fetches can send a
// meaningful "since". A record for a different user yields zero.
func (s *Store) LastUpdateTime(user *evaluator.User) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current.UserHash != "" && s.current.UserHash == evaluator.UserHash(user) {
		return s.current.Time
	}
	return 0
}

// CheckGate evaluates the named gate for the active identity.
func (s *Store) CheckGate(name string) *evaluator.Result {
	return s.evaluate("gate", name, (*evaluator.Evaluator).CheckGate)
}

// GetConfig evaluates the named dynamic config or experiment.
func (s *Store) GetConfig(name string) *evaluator.Result {
	return s.evaluate("config", name, (*evaluator.Evaluator).GetConfig)
}

// GetLayer evaluates the named layer.
func (s *Store) GetLayer(name string) *evaluator.Result {
	return s.evaluate("layer", name, (*evaluator.Evaluator).GetLayer)
}

// Details returns the store-level provenance of held data.
func (s *Store) Details() evaluator.Details {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return evaluator.Details{Time: s.current.EvaluationTime, Reason: s.reason}
}

// evaluate snapshots identity, provenance and spec set under one read
// lock so an in-flight evaluation never mixes one user's identity with
// another user's specs. Evaluation itself performs no I/O and cannot
// block, so holding the read lock across it is safe.
func (s *Store) evaluate(kind, name string, eval func(*evaluator.Evaluator, *evaluator.User, string) *evaluator.Result) *evaluator.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := eval(s.engine, s.user, name)

	switch result.Details.Reason {
	case evaluator.ReasonNetwork:
		// The engine only knows it evaluated against the held set; the
		// store knows how that set was obtained.
		result = result.WithReason(s.reason)
	case evaluator.ReasonUnrecognized:
		if !s.loaded {
			result = result.WithReason(evaluator.ReasonUninitialized)
		}
	}
	result = result.WithTime(s.current.EvaluationTime)

	observability.EvaluationsTotal.WithLabelValues(kind, string(result.Details.Reason)).Inc()
	return result
}

// installLocked parses a record's spec arrays into the engine. Called
// with the write lock held.
func (s *Store) installLocked(record *UserRecord) error {
	if err := s.engine.SetConfigSpecs(record.FeatureGates, record.DynamicConfigs, record.LayerConfigs); err != nil {
		return err
	}
	s.current = record
	return nil
}

// loadFromStorage restores the persisted multi-user cache. A corrupt
// blob is discarded and removed; the store falls back to empty defaults
// and the fault never propagates.
func (s *Store) loadFromStorage(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() { s.loaded = true }()

	if s.persistence == nil {
		return
	}

	raw, err := s.persistence.Get(ctx, internalStoreKey)
	if err != nil || raw == nil {
		return
	}

	var values map[string]*UserRecord
	if err := json.Unmarshal(raw, &values); err != nil {
		s.logger.Warn("discarding corrupt cached store", slog.String("error", err.Error()))
		_ = s.persistence.Remove(ctx, internalStoreKey)
		return
	}

	s.values = values
	s.setUserValuesFromCacheLocked()
}

// setUserValuesFromCacheLocked activates the cached record for the
// current cache key, or resets to empty defaults when none exists.
func (s *Store) setUserValuesFromCacheLocked() {
	record, ok := s.values[s.userCacheKey]
	if !ok || record == nil {
		s.current = emptyRecord()
		s.reason = evaluator.ReasonUninitialized
		s.engine.Reset()
		return
	}

	if err := s.installLocked(record); err != nil {
		s.logger.Warn("cached record failed to parse, resetting", slog.String("error", err.Error()))
		delete(s.values, s.userCacheKey)
		s.current = emptyRecord()
		s.reason = evaluator.ReasonUninitialized
		s.engine.Reset()
		return
	}
	s.reason = evaluator.ReasonCache
}

// evictLocked trims the record map to MaxCachedUsers, keeping the
// records with the highest freshness (most recently evaluated or
// updated, not insertion order), and returns a copy for persisting.
// An empty-string or otherwise degenerate cache key participates like
// any other.
func (s *Store) evictLocked() map[string]*UserRecord {
	if len(s.values) > MaxCachedUsers {
		type entry struct {
			key    string
			record *UserRecord
		}
		entries := make([]entry, 0, len(s.values))
		for k, v := range s.values {
			entries = append(entries, entry{key: k, record: v})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].record.freshness() > entries[j].record.freshness()
		})

		trimmed := make(map[string]*UserRecord, MaxCachedUsers)
		for _, e := range entries[:MaxCachedUsers] {
			trimmed[e.key] = e.record
		}
		observability.StoreEvictionsTotal.Add(float64(len(entries) - MaxCachedUsers))
		s.values = trimmed
	}

	snapshot := make(map[string]*UserRecord, len(s.values))
	for k, v := range s.values {
		snapshot[k] = v
	}
	return snapshot
}

// writeSnapshot serializes the trimmed cache outside the lock so a slow
// adapter never blocks evaluations.
func (s *Store) writeSnapshot(ctx context.Context, snapshot map[string]*UserRecord) error {
	if s.persistence == nil {
		return nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.persistence.Set(ctx, internalStoreKey, raw)
}
