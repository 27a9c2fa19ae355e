package transition

import (
	"log/slog"
	"time"
)

// ControllerBuilderOption is a functional option applied to a Controller during construction via New.
type ControllerBuilderOption func(*controller)

// WithDelay sets how long the controller waits before fading. Defaults to DefaultDelay.
//
// Parameters:
//   - d: the delay
//
// Returns:
//   - ControllerBuilderOption: a function that applies the delay option to a Controller
func WithDelay(d time.Duration) ControllerBuilderOption {
	return func(c *controller) {
		c.delay = max(d, 0)
	}
}

// WithFadeDuration sets the crossfade duration. Defaults to DefaultFadeDuration.
//
// Parameters:
//   - d: the fade duration
//
// Returns:
//   - ControllerBuilderOption: a function that applies the fade duration option to a Controller
func WithFadeDuration(d time.Duration) ControllerBuilderOption {
	return func(c *controller) {
		c.duration = d
	}
}

// WithFadeInterval sets the fade timer period. Defaults to DefaultFadeInterval.
//
// Parameters:
//   - d: the period, ignored when not positive
//
// Returns:
//   - ControllerBuilderOption: a function that applies the interval option to a Controller
func WithFadeInterval(d time.Duration) ControllerBuilderOption {
	return func(c *controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMotion overrides the overlay exit motion. Defaults to DefaultMotion.
func WithMotion(m Motion) ControllerBuilderOption {
	return func(c *controller) {
		c.motion = m
	}
}

// WithOnStateChange registers fn to be called after every state change.
func WithOnStateChange(fn func(State)) ControllerBuilderOption {
	return func(c *controller) {
		c.onState = fn
	}
}

// WithLogger sets the logger used for state changes.
func WithLogger(l *slog.Logger) ControllerBuilderOption {
	return func(c *controller) {
		if l != nil {
			c.logger = l
		}
	}
}
