// Package transition runs the timed crossfade that hands the screen back to the host.
//
// The controller is the only writer of presentation state: surface opacity and the overlay
// mark style. It never touches the render pipeline.
package transition

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/loop"
)

// State is the controller lifecycle state.
type State int

const (
	// StateWaiting holds the splash for the configured delay.
	StateWaiting State = iota
	// StateFading advances the crossfade on a fixed period timer.
	StateFading
	// StateDone is terminal.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateFading:
		return "fading"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

const (
	// DefaultDelay is how long the loading screen stays fully visible before fading.
	DefaultDelay = 5000 * time.Millisecond
	// DefaultFadeDuration is the length of the fade.
	DefaultFadeDuration = 1500 * time.Millisecond
	// DefaultFadeInterval is the fade timer period.
	DefaultFadeInterval = 16 * time.Millisecond
)

// Stage receives presentation writes.
type Stage interface {
	// SetSurfaceOpacity sets the opacity of the visible surface.
	SetSurfaceOpacity(opacity float64)

	// SetOverlayStyle sets the overlay mark's presentation.
	SetOverlayStyle(style common.OverlayStyle)
}

type controller struct {
	loop   loop.Loop
	stage  Stage
	onDone func()
	logger *slog.Logger

	delay    time.Duration
	duration time.Duration
	interval time.Duration
	motion   Motion
	onState  func(State)

	started   bool
	state     State
	fadeStart time.Time
	progress  float64
	cancel    loop.Cancel
}

// Controller is the Waiting -> Fading -> Done state machine.
type Controller interface {
	// Start arms the delay timer. Only the first call has an effect.
	Start()

	// Cancel disarms every timer without finishing. OnDone will not be called.
	Cancel()

	// State returns the lifecycle state.
	State() State

	// Progress returns the last computed fade progress in [0, 1].
	Progress() float64
}

var _ Controller = &controller{}

// New creates a Waiting controller. onDone is called exactly once when the fade completes.
//
// Parameters:
//   - l: the loop timers run on
//   - stage: the presentation writer
//   - onDone: the completion callback
//   - options: variadic list of ControllerBuilderOption functions
//
// Returns:
//   - Controller: the controller
func New(l loop.Loop, stage Stage, onDone func(), options ...ControllerBuilderOption) Controller {
	c := &controller{
		loop:     l,
		stage:    stage,
		onDone:   onDone,
		logger:   slog.New(slog.DiscardHandler),
		delay:    DefaultDelay,
		duration: DefaultFadeDuration,
		interval: DefaultFadeInterval,
		motion:   DefaultMotion,
		cancel:   func() {},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *controller) Start() {
	if c.started {
		return
	}
	c.started = true
	c.logger.Debug("transition waiting", "delay", c.delay)
	c.cancel = c.loop.AfterFunc(c.delay, c.beginFade)
}

func (c *controller) beginFade() {
	if c.state != StateWaiting {
		return
	}
	c.fadeStart = c.loop.Now()
	c.setState(StateFading)
	c.apply(0)
	c.cancel = c.loop.Every(c.interval, c.tick)
}

func (c *controller) tick() {
	if c.state != StateFading {
		return
	}
	c.apply(Progress(c.loop.Now().Sub(c.fadeStart), c.duration))
	if c.progress < 1 {
		return
	}

	c.cancel()
	c.setState(StateDone)
	if c.onDone != nil {
		c.onDone()
	}
}

func (c *controller) apply(progress float64) {
	c.progress = progress
	c.stage.SetSurfaceOpacity(SurfaceOpacity(progress))
	c.stage.SetOverlayStyle(OverlayStyle(progress, c.motion))
}

func (c *controller) setState(s State) {
	c.state = s
	c.logger.Info("transition state", "state", s)
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *controller) Cancel() {
	c.cancel()
	c.cancel = func() {}
}

func (c *controller) State() State {
	return c.state
}

func (c *controller) Progress() float64 {
	return c.progress
}
