// Package vordr is a local feature-flag and experimentation evaluation
// client. Rulesets are evaluated entirely in-process against a user
// identity; values arrive via bootstrap payloads, a persisted cache, or
// a background fetch, and every result carries the provenance of the
// data it was computed from.
package vordr

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vordr-io/vordr-go/internal/config"
	"github.com/vordr-io/vordr-go/internal/evaluator"
	"github.com/vordr-io/vordr-go/internal/store"
	"github.com/vordr-io/vordr-go/internal/transport"
)

// sdkKeyPrefix is the required prefix for client SDK keys. Server
// secrets must never be embedded in client deployments.
const sdkKeyPrefix = "client-"

// EvaluationDetails describes the provenance of the values the client
// currently evaluates against.
type EvaluationDetails struct {
	Reason string
	Time   int64
}

// Client evaluates feature gates, dynamic configs, experiments, and
// layers for one active user identity. Methods are safe for concurrent
// use. There is no global singleton; construct one Client per
// identity scope.
type Client struct {
	mu       sync.Mutex
	logger   *slog.Logger
	sink     ExposureSink
	tier     string
	stableID string
	sdkKey   string

	user  *User
	euser *evaluator.User
	store *store.Store

	specURL      string
	apiKey       string
	pollInterval time.Duration

	poller     *transport.Service
	cancelPoll context.CancelFunc
	pollDone   chan struct{}
	firstSync  chan struct{}

	shutdown bool
}

// New constructs a Client for the given user. The SDK key must carry
// the client key prefix unless LocalMode is set. Bootstrap values, if
// provided, are installed synchronously; otherwise the persisted cache
// for this identity is restored. No network activity happens until
// InitializeAsync.
func New(ctx context.Context, sdkKey string, user *User, opts *Options) (*Client, error) {
	if opts == nil {
		opts = &Options{}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if !opts.LocalMode && !strings.HasPrefix(sdkKey, sdkKeyPrefix) {
		return nil, invalidArgumentf("SDK key must start with %q", sdkKeyPrefix)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sink := opts.ExposureSink
	if sink == nil {
		sink = &slogSink{logger: logger}
	}

	c := &Client{
		logger:       logger,
		sink:         sink,
		tier:         opts.EnvironmentTier,
		sdkKey:       sdkKey,
		user:         user,
		pollInterval: opts.PollInterval,
		firstSync:    make(chan struct{}),
	}

	if !opts.LocalMode {
		c.specURL = opts.SpecURL
		c.apiKey = sdkKey
	}

	c.stableID = resolveStableID(ctx, opts.Storage, opts.OverrideStableID, logger)
	c.euser = user.toEvaluator(c.tier, c.stableID)
	c.store = store.New(ctx, opts.Storage, logger, c.euser, opts.BootstrapValues)

	return c, nil
}

// InitializeAsync starts the background fetch loop and waits up to
// timeout for the first ruleset to arrive. Hitting the timeout is not
// an error and changes nothing: the client keeps whatever bootstrap or
// cached values it already holds, and the fetch continues in the
// background.
func (c *Client) InitializeAsync(ctx context.Context, timeout time.Duration) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrShutdown
	}
	if c.specURL == "" || c.poller != nil {
		c.mu.Unlock()
		return nil
	}

	source := transport.NewHTTPSource(&config.SourceConfig{
		URL:    c.specURL,
		APIKey: c.apiKey,
	})
	c.poller = transport.New(c.logger, transport.Config{Interval: c.pollInterval}, source, &clientApplier{c: c})

	pollCtx, cancel := context.WithCancel(context.Background())
	c.cancelPoll = cancel
	c.pollDone = make(chan struct{})

	go func(p *transport.Service, done chan struct{}) {
		defer close(done)
		_ = p.Run(pollCtx)
	}(c.poller, c.pollDone)
	c.mu.Unlock()

	if timeout <= 0 {
		return nil
	}
	select {
	case <-c.firstSync:
	case <-time.After(timeout):
	case <-ctx.Done():
	}
	return nil
}

// SetBootstrapValues installs a caller-provided ruleset payload, as at
// construction time.
func (c *Client) SetBootstrapValues(payload json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}
	if len(payload) == 0 {
		return invalidArgumentf("bootstrap payload cannot be empty")
	}

	c.store.Bootstrap(payload)
	return nil
}

// UpdateUser switches the active identity. Cached values for the new
// user activate immediately; a fresh fetch is kicked off when the
// background loop is running.
func (c *Client) UpdateUser(user *User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}

	c.user = user
	c.euser = user.toEvaluator(c.tier, c.stableID)
	c.store.UpdateUser(c.euser)

	if c.poller != nil {
		c.poller.Kick()
	}
	return nil
}

// CheckGate evaluates the named feature gate for the active user and
// logs a gate exposure. Errors are returned only for misuse; engine
// faults yield false.
func (c *Client) CheckGate(name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return false, ErrShutdown
	}
	if name == "" {
		return false, invalidArgumentf("gate name cannot be empty")
	}

	var result *evaluator.Result
	guard(c.logger, "check_gate", func() {
		result = c.store.CheckGate(name)
	})
	if result == nil {
		return false, nil
	}

	userID := c.euser.UserID
	guard(c.logger, "gate_exposure", func() {
		c.sink.LogGateExposure(GateExposure{
			Gate:               name,
			Value:              result.Value,
			RuleID:             result.RuleID,
			Reason:             string(result.Details.Reason),
			UserID:             userID,
			SecondaryExposures: result.SecondaryExposures,
		})
	})

	return result.Value, nil
}

// GetConfig evaluates the named dynamic config and logs a config
// exposure.
func (c *Client) GetConfig(name string) (*DynamicConfig, error) {
	return c.getConfigImpl(name, "config")
}

// GetExperiment evaluates the named experiment. Experiments are
// dynamic configs whose rules represent experiment groups.
func (c *Client) GetExperiment(name string) (*DynamicConfig, error) {
	return c.getConfigImpl(name, "experiment")
}

func (c *Client) getConfigImpl(name, kind string) (*DynamicConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return nil, ErrShutdown
	}
	if name == "" {
		return nil, invalidArgumentf("%s name cannot be empty", kind)
	}

	var result *evaluator.Result
	guard(c.logger, "get_config", func() {
		result = c.store.GetConfig(name)
	})
	if result == nil {
		return &DynamicConfig{Name: name}, nil
	}

	userID := c.euser.UserID
	guard(c.logger, "config_exposure", func() {
		c.sink.LogConfigExposure(ConfigExposure{
			Config:             name,
			RuleID:             result.RuleID,
			Reason:             string(result.Details.Reason),
			UserID:             userID,
			SecondaryExposures: result.SecondaryExposures,
		})
	})

	return &DynamicConfig{
		Name:      name,
		RuleID:    result.RuleID,
		GroupName: result.GroupName,
		Details:   detailsOf(result),
		value:     result.JSONValue,
	}, nil
}

// GetLayer evaluates the named layer. No exposure is logged until a
// parameter is read; each parameter's first read logs one parameter
// exposure attributed to the experiment that owns it, if any.
func (c *Client) GetLayer(name string) (*Layer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return nil, ErrShutdown
	}
	if name == "" {
		return nil, invalidArgumentf("layer name cannot be empty")
	}

	var result *evaluator.Result
	guard(c.logger, "get_layer", func() {
		result = c.store.GetLayer(name)
	})
	if result == nil {
		return &Layer{Name: name}, nil
	}

	userID := c.euser.UserID
	var seenMu sync.Mutex
	seen := map[string]bool{}

	return &Layer{
		Name:      name,
		RuleID:    result.RuleID,
		GroupName: result.GroupName,
		Details:   detailsOf(result),
		value:     result.JSONValue,
		result:    result,
		onRead: func(parameter string) {
			seenMu.Lock()
			logged := seen[parameter]
			seen[parameter] = true
			seenMu.Unlock()
			if logged {
				return
			}
			guard(c.logger, "layer_exposure", func() {
				c.sink.LogLayerExposure(layerExposureFor(name, userID, parameter, result))
			})
		},
	}, nil
}

// EvaluationDetails reports the provenance of the currently held
// values.
func (c *Client) EvaluationDetails() EvaluationDetails {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.store.Details()
	return EvaluationDetails{Reason: string(d.Reason), Time: d.Time}
}

// Shutdown stops background work. The client rejects all further
// operations.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return nil
	}
	c.shutdown = true
	cancel := c.cancelPoll
	done := c.pollDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func detailsOf(result *evaluator.Result) EvaluationDetails {
	return EvaluationDetails{
		Reason: string(result.Details.Reason),
		Time:   result.Details.Time,
	}
}

// clientApplier feeds fetched rulesets into the store for whichever
// identity is active at apply time.
type clientApplier struct {
	c    *Client
	once sync.Once
}

func (a *clientApplier) Apply(ctx context.Context, rs *store.Ruleset) error {
	a.c.mu.Lock()
	user := a.c.euser
	s := a.c.store
	a.c.mu.Unlock()

	if err := s.SaveRuleset(ctx, user, rs); err != nil {
		return err
	}
	a.once.Do(func() { close(a.c.firstSync) })
	return nil
}

func (a *clientApplier) SinceTime() int64 {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	return a.c.store.LastUpdateTime(a.c.euser)
}
