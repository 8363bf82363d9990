package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vordr-io/vordr-go/internal/store"
)

type fakeSource struct {
	mu      sync.Mutex
	ruleset *store.Ruleset
	err     error
	since   []int64
}

func (f *fakeSource) Fetch(_ context.Context, sinceTime int64) (*store.Ruleset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, sinceTime)
	if f.err != nil {
		return nil, f.err
	}
	return f.ruleset, nil
}

type fakeApplier struct {
	mu      sync.Mutex
	applied []*store.Ruleset
	err     error
	time    int64
}

func (f *fakeApplier) Apply(_ context.Context, rs *store.Ruleset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, rs)
	if rs.HasUpdates {
		f.time = rs.Time
	}
	return nil
}

func (f *fakeApplier) SinceTime() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.time
}

func (f *fakeApplier) appliedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

func TestService_SyncOnce(t *testing.T) {
	t.Parallel()

	t.Run("Should apply an updated ruleset and advance sinceTime", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{ruleset: &store.Ruleset{HasUpdates: true, Time: 500}}
		applier := &fakeApplier{}
		svc := New(nil, Config{Interval: time.Minute}, source, applier)

		require.NoError(t, svc.syncOnce(context.Background()))
		require.NoError(t, svc.syncOnce(context.Background()))

		assert.Equal(t, 2, applier.appliedCount())
		assert.Equal(t, []int64{0, 500}, source.since)
	})

	t.Run("Should forward not-modified without advancing sinceTime", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{ruleset: &store.Ruleset{HasUpdates: false}}
		applier := &fakeApplier{}
		svc := New(nil, Config{Interval: time.Minute}, source, applier)

		require.NoError(t, svc.syncOnce(context.Background()))
		require.NoError(t, svc.syncOnce(context.Background()))

		// The applier sees every freshness check, but the held data's
		// timestamp is unchanged.
		assert.Equal(t, 2, applier.appliedCount())
		assert.False(t, applier.applied[0].HasUpdates)
		assert.Equal(t, []int64{0, 0}, source.since)
	})

	t.Run("Should surface fetch errors", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{err: errors.New("boom")}
		svc := New(nil, Config{Interval: time.Minute}, source, &fakeApplier{})

		assert.Error(t, svc.syncOnce(context.Background()))
	})

	t.Run("Should surface apply errors", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{ruleset: &store.Ruleset{HasUpdates: true, Time: 500}}
		svc := New(nil, Config{Interval: time.Minute}, source, &fakeApplier{err: errors.New("reject")})

		assert.Error(t, svc.syncOnce(context.Background()))
	})
}

func TestService_Run(t *testing.T) {
	t.Parallel()

	t.Run("Should fetch immediately on startup and stop on cancel", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{ruleset: &store.Ruleset{HasUpdates: true, Time: 500}}
		applier := &fakeApplier{}
		svc := New(nil, Config{Interval: time.Hour}, source, applier)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx) }()

		assert.Eventually(t, func() bool {
			return applier.appliedCount() == 1
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		assert.NoError(t, <-done)
	})

	t.Run("Should fetch on Kick without waiting for the ticker", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{ruleset: &store.Ruleset{HasUpdates: true, Time: 500}}
		applier := &fakeApplier{}
		svc := New(nil, Config{Interval: time.Hour}, source, applier)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx) }()

		assert.Eventually(t, func() bool {
			return applier.appliedCount() == 1
		}, 2*time.Second, 10*time.Millisecond)

		svc.Kick()

		assert.Eventually(t, func() bool {
			return applier.appliedCount() == 2
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		assert.NoError(t, <-done)
	})

	t.Run("Should default a too-small interval", func(t *testing.T) {
		t.Parallel()

		svc := New(nil, Config{Interval: time.Millisecond}, &fakeSource{ruleset: &store.Ruleset{}}, &fakeApplier{})
		assert.Equal(t, 10*time.Second, svc.config.Interval)
	})
}
