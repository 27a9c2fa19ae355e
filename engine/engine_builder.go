package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/engine/loop"
	"github.com/Carmen-Shannon/oxy-splash/engine/mark"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-splash/engine/transition"
	"github.com/Carmen-Shannon/oxy-splash/engine/window"
)

// LoaderBuilderOption is a functional option for configuring a Loader.
// Options are applied directly to the loader struct via the option-builder pattern.
type LoaderBuilderOption func(l *Loader)

// WithDelay sets how long the loading screen stays fully visible before the fade starts.
//
// Parameters:
//   - d: the delay (default 5s)
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithDelay(d time.Duration) LoaderBuilderOption {
	return func(l *Loader) {
		l.delay = d
	}
}

// WithFadeDuration sets the length of the fade.
//
// Parameters:
//   - d: the fade duration (default 1.5s)
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithFadeDuration(d time.Duration) LoaderBuilderOption {
	return func(l *Loader) {
		l.fadeDuration = d
	}
}

// WithFadeInterval sets the fade timer period.
//
// Parameters:
//   - d: the period (default 16ms)
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithFadeInterval(d time.Duration) LoaderBuilderOption {
	return func(l *Loader) {
		l.fadeInterval = d
	}
}

// WithMotion sets the overlay's fade-out motion.
//
// Parameters:
//   - m: the motion parameters
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithMotion(m transition.Motion) LoaderBuilderOption {
	return func(l *Loader) {
		l.motion = m
	}
}

// WithPulsePeriod sets the fallback pulse period.
//
// Parameters:
//   - d: the period (default 1.2s)
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithPulsePeriod(d time.Duration) LoaderBuilderOption {
	return func(l *Loader) {
		l.pulsePeriod = d
	}
}

// WithOnComplete sets the function called once when the loader finalizes.
//
// Parameters:
//   - fn: the completion callback
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithOnComplete(fn func()) LoaderBuilderOption {
	return func(l *Loader) {
		l.onComplete = fn
	}
}

// WithWindow sets the surface window. Without it the loader opens and owns its own window.
//
// Parameters:
//   - w: the surface window
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithWindow(w window.Window) LoaderBuilderOption {
	return func(l *Loader) {
		l.window = w
	}
}

// WithHost sets the host whose input state is locked while the loader is up.
// Defaults to window.NewHost on the surface window.
//
// Parameters:
//   - h: the host
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithHost(h window.Host) LoaderBuilderOption {
	return func(l *Loader) {
		l.host = h
	}
}

// WithStage sets the presentation stage instead of mounting the mark over the window.
//
// Parameters:
//   - s: the stage
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithStage(s window.Stage) LoaderBuilderOption {
	return func(l *Loader) {
		l.stage = s
	}
}

// WithMarkOptions configures the mark rendered for the default stage.
//
// Parameters:
//   - options: mark options
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithMarkOptions(options ...mark.MarkBuilderOption) LoaderBuilderOption {
	return func(l *Loader) {
		l.markOpts = append(l.markOpts, options...)
	}
}

// WithLogger sets the loader's logger. Defaults to Logger().
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithProfiling logs frame statistics once per second while the pipeline runs.
//
// Parameters:
//   - enabled: whether profiling is on
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithProfiling(enabled bool) LoaderBuilderOption {
	return func(l *Loader) {
		l.profiling = enabled
	}
}

// WithShaderSources replaces the embedded pass sources.
//
// Parameters:
//   - sources: the source set
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithShaderSources(sources shader.Sources) LoaderBuilderOption {
	return func(l *Loader) {
		l.sources = sources
	}
}

// WithForceSoftwareRenderer requests the software adapter when acquiring the context.
//
// Parameters:
//   - force: whether to force the software adapter
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithForceSoftwareRenderer(force bool) LoaderBuilderOption {
	return func(l *Loader) {
		l.rendererOpts = append(l.rendererOpts, renderer.WithForceSoftwareRenderer(force))
	}
}

// WithPresentMode sets the surface present mode. The owned event loop adds no pacing of its
// own in either mode.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithPresentMode(mode renderer.PresentMode) LoaderBuilderOption {
	return func(l *Loader) {
		l.presentMode = mode
		l.rendererOpts = append(l.rendererOpts, renderer.WithPresentMode(mode))
	}
}

// WithLoop runs the loader on an existing loop. The caller then drives the loop and
// Run returns immediately.
//
// Parameters:
//   - lp: the loop
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithLoop(lp loop.Loop) LoaderBuilderOption {
	return func(l *Loader) {
		l.loop = lp
	}
}

// WithBackend uses an already acquired backend instead of acquiring one from the window.
// The loader takes ownership and releases it on finalization.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithBackend(b renderer.Backend) LoaderBuilderOption {
	return func(l *Loader) {
		l.acquire = func(renderer.SurfaceSource, ...renderer.RendererBuilderOption) (renderer.Backend, error) {
			return b, nil
		}
	}
}

func withShaderValidator(v shader.Validator) LoaderBuilderOption {
	return func(l *Loader) {
		l.validator = v
	}
}
