// Package fallback presents the GPU-free substitute when the render pipeline cannot start.
// It pulses the overlay mark while waiting and then runs the same transition as the GPU path.
package fallback

import (
	"log/slog"
	"math"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/loop"
	"github.com/Carmen-Shannon/oxy-splash/engine/transition"
)

const (
	// DefaultPulsePeriod is one full pulse cycle.
	DefaultPulsePeriod = 1200 * time.Millisecond
	// DefaultMinLevel is the dimmest pulse level.
	DefaultMinLevel = 0.35
)

// Stage is the presentation writer of the fallback path.
type Stage interface {
	transition.Stage

	// SetPulse sets the substitute's brightness level in [0, 1].
	SetPulse(level float64)
}

// PulseLevel returns the pulse level t after the pulse started: 0.5 + 0.5*cos(2*pi*t/period)
// mapped into [minLevel, 1]. A non-positive period holds the level at 1.
//
// Parameters:
//   - t: the time since the pulse started
//   - period: the pulse period
//   - minLevel: the lowest level
//
// Returns:
//   - float64: the level in [minLevel, 1]
func PulseLevel(t, period time.Duration, minLevel float64) float64 {
	if period <= 0 {
		return 1
	}
	minLevel = common.Clamp(minLevel, 0, 1)
	wave := 0.5 + 0.5*math.Cos(2*math.Pi*t.Seconds()/period.Seconds())
	return minLevel + (1-minLevel)*wave
}

type presenter struct {
	loop   loop.Loop
	stage  Stage
	logger *slog.Logger

	period   time.Duration
	minLevel float64
	interval time.Duration

	transitionOpts []transition.ControllerBuilderOption
	controller     transition.Controller

	pulseStart time.Time
	stopPulse  loop.Cancel
	started    bool
}

// Presenter shows the substitute and drives the shared transition.
type Presenter interface {
	// Start shows the substitute at full level, starts the pulse and arms the transition.
	// Only the first call has an effect.
	Start()

	// Cancel stops the pulse and the transition without finishing.
	Cancel()

	// Transition returns the transition controller.
	Transition() transition.Controller
}

var _ Presenter = &presenter{}

// PresenterBuilderOption is a functional option applied to a Presenter during construction via New.
type PresenterBuilderOption func(*presenter)

// WithPulsePeriod sets the pulse period. Defaults to DefaultPulsePeriod.
//
// Parameters:
//   - d: one full pulse cycle
//
// Returns:
//   - PresenterBuilderOption: option function to apply
func WithPulsePeriod(d time.Duration) PresenterBuilderOption {
	return func(p *presenter) {
		p.period = d
	}
}

// WithMinLevel sets the dimmest pulse level. Defaults to DefaultMinLevel.
//
// Parameters:
//   - level: the lowest level, clamped to [0, 1]
//
// Returns:
//   - PresenterBuilderOption: option function to apply
func WithMinLevel(level float64) PresenterBuilderOption {
	return func(p *presenter) {
		p.minLevel = common.Clamp(level, 0, 1)
	}
}

// WithTransition passes options through to the transition controller so both paths share timing.
//
// Parameters:
//   - options: transition controller options
//
// Returns:
//   - PresenterBuilderOption: option function to apply
func WithTransition(options ...transition.ControllerBuilderOption) PresenterBuilderOption {
	return func(p *presenter) {
		p.transitionOpts = append(p.transitionOpts, options...)
	}
}

// WithPulseInterval sets the pulse update period. Defaults to transition.DefaultFadeInterval.
// Non-positive periods are ignored.
//
// Parameters:
//   - d: the update period
//
// Returns:
//   - PresenterBuilderOption: option function to apply
func WithPulseInterval(d time.Duration) PresenterBuilderOption {
	return func(p *presenter) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - PresenterBuilderOption: option function to apply
func WithLogger(l *slog.Logger) PresenterBuilderOption {
	return func(p *presenter) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates the fallback presenter. onDone is called exactly once when the transition completes.
//
// Parameters:
//   - l: the loop timers run on
//   - stage: the presentation writer
//   - onDone: the completion callback
//   - options: variadic list of PresenterBuilderOption functions
//
// Returns:
//   - Presenter: the presenter
func New(l loop.Loop, stage Stage, onDone func(), options ...PresenterBuilderOption) Presenter {
	p := &presenter{
		loop:      l,
		stage:     stage,
		logger:    slog.New(slog.DiscardHandler),
		period:    DefaultPulsePeriod,
		minLevel:  DefaultMinLevel,
		interval:  transition.DefaultFadeInterval,
		stopPulse: func() {},
	}
	for _, opt := range options {
		opt(p)
	}

	opts := append([]transition.ControllerBuilderOption{transition.WithLogger(p.logger)}, p.transitionOpts...)
	opts = append(opts, transition.WithOnStateChange(p.onTransitionState))
	p.controller = transition.New(l, stage, onDone, opts...)
	return p
}

func (p *presenter) Start() {
	if p.started {
		return
	}
	p.started = true
	p.pulseStart = p.loop.Now()
	p.stage.SetPulse(1)
	p.stopPulse = p.loop.Every(p.interval, p.pulse)
	p.controller.Start()
	p.logger.Debug("fallback presenter started", "pulse_period", p.period)
}

func (p *presenter) pulse() {
	p.stage.SetPulse(PulseLevel(p.loop.Now().Sub(p.pulseStart), p.period, p.minLevel))
}

// onTransitionState stops the pulse once the fade takes over the presentation state.
func (p *presenter) onTransitionState(s transition.State) {
	if s != transition.StateFading {
		return
	}
	p.stopPulse()
	p.stopPulse = func() {}
	p.stage.SetPulse(1)
}

func (p *presenter) Cancel() {
	p.stopPulse()
	p.stopPulse = func() {}
	p.controller.Cancel()
}

func (p *presenter) Transition() transition.Controller {
	return p.controller
}
