package breaker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var ErrOpen = errors.New("circuit open")

type State int32

const (
	StateClosed State = iota + 1
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

type Config struct {
	Enabled                     bool
	FailureRateThresholdPercent int
	MinimumRequests             int
	EvaluationWindow            time.Duration
	OpenDuration                time.Duration
	HalfOpenMaxTrials           int
}

type Breaker struct {
	name          string
	now           func() time.Time
	onChange      func(name string, state State)
	state         atomic.Int32
	reqCount      atomic.Int32
	failCount     atomic.Int32
	windowStart   atomic.Int64
	openUntil     atomic.Int64
	trialInFlight atomic.Int32
	trialSuccess  atomic.Int32
	trialFail     atomic.Int32
	config        atomic.Value
}

type Option func(*Breaker)

func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

func OnStateChange(fn func(name string, state State)) Option {
	return func(b *Breaker) {
		b.onChange = fn
	}
}

func New(name string, cfg Config, opts ...Option) *Breaker {
	b := &Breaker{name: name, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	b.state.Store(int32(StateClosed))
	b.windowStart.Store(b.now().UnixNano())
	b.config.Store(cfg)
	return b
}

func (b *Breaker) UpdateConfig(cfg Config) {
	if b == nil {
		return
	}
	b.config.Store(cfg)
}

func (b *Breaker) State() State {
	if b == nil {
		return StateClosed
	}
	return State(b.state.Load())
}

// Do runs fn when the circuit admits it and reports the outcome. Context cancellation is not
// counted against the circuit.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if b == nil {
		return fn(ctx)
	}
	if _, ok, _ := b.Allow(); !ok {
		return ErrOpen
	}
	err := fn(ctx)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		b.release()
		return err
	}
	_, _ = b.Report(err == nil)
	return err
}

func (b *Breaker) Allow() (State, bool, error) {
	if b == nil {
		return StateClosed, true, errors.New("breaker is nil")
	}
	cfg, ok := b.loadConfig()
	if !ok {
		return StateClosed, true, errors.New("breaker config missing")
	}
	if !cfg.Enabled {
		return StateClosed, true, nil
	}

	now := b.now()
	state := State(b.state.Load())
	if state == StateClosed {
		return state, true, nil
	}
	if state == StateOpen {
		if now.UnixNano() < b.openUntil.Load() {
			return state, false, nil
		}
		if b.state.CompareAndSwap(int32(StateOpen), int32(StateHalfOpen)) {
			b.resetTrials()
			b.changed(StateHalfOpen)
		}
		state = State(b.state.Load())
	}
	if state == StateHalfOpen {
		return b.allowHalfOpen(cfg)
	}
	return StateClosed, true, errors.New("breaker state unknown")
}

func (b *Breaker) Report(success bool) (State, error) {
	if b == nil {
		return StateClosed, errors.New("breaker is nil")
	}
	cfg, ok := b.loadConfig()
	if !ok {
		return StateClosed, errors.New("breaker config missing")
	}
	if !cfg.Enabled {
		return StateClosed, nil
	}

	now := b.now()
	state := State(b.state.Load())
	switch state {
	case StateClosed:
		b.rotateWindow(cfg, now)
		b.reqCount.Add(1)
		if !success {
			b.failCount.Add(1)
		}
		b.maybeOpen(cfg, now)
	case StateHalfOpen:
		if b.trialInFlight.Load() > 0 {
			b.trialInFlight.Add(-1)
		}
		if !success {
			b.trialFail.Add(1)
			b.open(now, cfg)
			return StateOpen, nil
		}
		b.trialSuccess.Add(1)
		if b.trialFail.Load() == 0 && int(b.trialSuccess.Load()) >= maxTrials(cfg) {
			b.close(now)
		}
	case StateOpen:
		return state, nil
	default:
		return StateClosed, errors.New("breaker state unknown")
	}

	return State(b.state.Load()), nil
}

func (b *Breaker) release() {
	if State(b.state.Load()) == StateHalfOpen && b.trialInFlight.Load() > 0 {
		b.trialInFlight.Add(-1)
	}
}

func (b *Breaker) loadConfig() (Config, bool) {
	value := b.config.Load()
	if value == nil {
		return Config{}, false
	}
	config, ok := value.(Config)
	return config, ok
}

func maxTrials(cfg Config) int {
	if cfg.HalfOpenMaxTrials <= 0 {
		return 1
	}
	return cfg.HalfOpenMaxTrials
}

func (b *Breaker) allowHalfOpen(cfg Config) (State, bool, error) {
	if b.trialInFlight.Add(1) > int32(maxTrials(cfg)) {
		b.trialInFlight.Add(-1)
		return StateHalfOpen, false, nil
	}
	return StateHalfOpen, true, nil
}

func (b *Breaker) rotateWindow(cfg Config, now time.Time) {
	window := cfg.EvaluationWindow
	if window <= 0 {
		window = 10 * time.Second
	}
	start := b.windowStart.Load()
	if start == 0 || now.Sub(time.Unix(0, start)) > window {
		if b.windowStart.CompareAndSwap(start, now.UnixNano()) {
			b.reqCount.Store(0)
			b.failCount.Store(0)
		}
	}
}

func (b *Breaker) maybeOpen(cfg Config, now time.Time) {
	minRequests := cfg.MinimumRequests
	if minRequests <= 0 {
		minRequests = 1
	}
	reqCount := int(b.reqCount.Load())
	if reqCount < minRequests {
		return
	}
	threshold := cfg.FailureRateThresholdPercent
	if threshold <= 0 {
		return
	}
	failureRate := (int(b.failCount.Load()) * 100) / reqCount
	if failureRate >= threshold {
		b.open(now, cfg)
	}
}

func (b *Breaker) open(now time.Time, cfg Config) {
	openFor := cfg.OpenDuration
	if openFor <= 0 {
		openFor = 5 * time.Second
	}
	b.openUntil.Store(now.Add(openFor).UnixNano())
	if State(b.state.Swap(int32(StateOpen))) != StateOpen {
		b.changed(StateOpen)
	}
}

func (b *Breaker) close(now time.Time) {
	b.state.Store(int32(StateClosed))
	b.windowStart.Store(now.UnixNano())
	b.reqCount.Store(0)
	b.failCount.Store(0)
	b.resetTrials()
	b.changed(StateClosed)
}

func (b *Breaker) resetTrials() {
	b.trialInFlight.Store(0)
	b.trialSuccess.Store(0)
	b.trialFail.Store(0)
}

func (b *Breaker) changed(state State) {
	zap.L().Info("circuit state changed", zap.String("circuit", b.name), zap.Stringer("state", state))
	if b.onChange != nil {
		b.onChange(b.name, state)
	}
}
