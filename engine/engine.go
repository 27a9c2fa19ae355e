// Package engine is the loading screen loader. Init mounts the mark over the surface window,
// locks the host, and tries to bring up the three-pass GPU pipeline. If any part of the GPU
// setup fails the fallback presenter takes over. Both paths run the same transition and end
// in the same finalization: every GPU resource released, the overlay removed, the host state
// restored, the completion callback invoked and TopicLoaderComplete published.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/event"
	"github.com/Carmen-Shannon/oxy-splash/engine/fallback"
	"github.com/Carmen-Shannon/oxy-splash/engine/loop"
	"github.com/Carmen-Shannon/oxy-splash/engine/mark"
	"github.com/Carmen-Shannon/oxy-splash/engine/profiler"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-splash/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-splash/engine/transition"
	"github.com/Carmen-Shannon/oxy-splash/engine/window"
)

// ErrInit wraps setup failures that are not a context, framebuffer or shader error,
// including panics recovered from the native layer.
var ErrInit = errors.New("engine: init failed")

// AutoStartEnv disables auto start when set to "1".
const AutoStartEnv = "OXY_SPLASH_NO_AUTOSTART"

// SuppressAutoStart makes Init return an idle loader that starts on Start.
var SuppressAutoStart atomic.Bool

// Path reports which presentation path a loader took.
type Path int32

const (
	// PathNone means the loader has not started.
	PathNone Path = iota
	// PathGPU means the render pipeline is presenting.
	PathGPU
	// PathFallback means the GPU-free substitute is presenting.
	PathFallback
)

func (p Path) String() string {
	switch p {
	case PathGPU:
		return "gpu"
	case PathFallback:
		return "fallback"
	default:
		return "none"
	}
}

type acquireFunc func(src renderer.SurfaceSource, options ...renderer.RendererBuilderOption) (renderer.Backend, error)

// Loader is one loading screen. All of its state is touched only from the loop goroutine,
// except for Stop, Wait and Path.
type Loader struct {
	loop      loop.Loop
	ownedLoop loop.EventLoop
	logger    *slog.Logger

	delay        time.Duration
	fadeDuration time.Duration
	fadeInterval time.Duration
	motion       transition.Motion
	pulsePeriod  time.Duration
	onComplete   func()
	profiling    bool
	presentMode  renderer.PresentMode

	window      window.Window
	ownedWindow bool
	host        window.Host
	stage       window.Stage
	markOpts    []mark.MarkBuilderOption
	saved       window.ScrollState
	locked      bool

	sources      shader.Sources
	validator    shader.Validator
	rendererOpts []renderer.RendererBuilderOption
	acquire      acquireFunc

	backend    renderer.Backend
	targets    target.Set
	programs   map[string]renderer.Program
	graph      pipeline.Graph
	scheduler  scheduler.Scheduler
	controller transition.Controller
	presenter  fallback.Presenter

	started   bool
	finalized bool
	initErr   error
	path      atomic.Int32
	once      sync.Once
	done      chan struct{}
}

// Init creates a loader and, unless auto start is suppressed, starts it. Init must be called
// from the goroutine that drives the loop (the main thread for GLFW).
//
// Parameters:
//   - options: functional options for the loader
//
// Returns:
//   - *Loader: the loader
func Init(options ...LoaderBuilderOption) *Loader {
	l := &Loader{
		logger:       Logger(),
		delay:        transition.DefaultDelay,
		fadeDuration: transition.DefaultFadeDuration,
		fadeInterval: transition.DefaultFadeInterval,
		motion:       transition.DefaultMotion,
		pulsePeriod:  fallback.DefaultPulsePeriod,
		sources:      shader.DefaultSources(),
		acquire:      renderer.Acquire,
		done:         make(chan struct{}),
	}
	for _, opt := range options {
		opt(l)
	}

	if l.loop == nil {
		l.ownedLoop = loop.NewEventLoop(loop.WithPump(l.pump), loop.WithFrameLimit(frameLimitFor(l.presentMode)))
		l.loop = l.ownedLoop
	}

	if SuppressAutoStart.Load() || os.Getenv(AutoStartEnv) == "1" {
		l.logger.Debug("auto start suppressed")
		return l
	}
	l.Start()
	return l
}

// frameLimitFor returns the owned loop's frame limit in fps for a present mode, 0 for none.
// VSync paces in Present and Uncapped asks for no pacing. Any other mode gets a 60 fps cap.
func frameLimitFor(mode renderer.PresentMode) float64 {
	switch mode {
	case renderer.PresentModeVSync, renderer.PresentModeUncapped:
		return 0
	default:
		return 60
	}
}

func (l *Loader) pump() {
	if l.window != nil {
		l.window.ProcessMessages()
	}
}

// SetOnComplete replaces the completion callback. It has no effect after finalization.
//
// Parameters:
//   - fn: the completion callback
func (l *Loader) SetOnComplete(fn func()) {
	l.onComplete = fn
}

// Start mounts the presentation elements and starts one of the two paths. Only the first
// call has an effect, and none after Stop.
func (l *Loader) Start() {
	if l.started || l.finalized {
		return
	}
	l.started = true

	if l.window == nil {
		w, err := window.NewWindow(window.WithTitle("oxy"))
		if err != nil {
			l.logger.Warn("surface window unavailable", "err", err)
		} else {
			l.window = w
			l.ownedWindow = true
		}
	}

	if l.host == nil && l.window != nil {
		l.host = window.NewHost(l.window)
	}
	if l.host != nil {
		l.saved = l.host.SaveScroll()
		l.host.LockScroll()
		l.locked = true
	}

	if l.stage == nil {
		l.stage = l.mountStage()
	}

	if err := l.startGPU(); err != nil {
		l.initErr = err
		l.releaseGPU()
		l.logger.Warn("gpu path unavailable, engaging fallback", "err", err)
		l.startFallback()
		return
	}
	l.path.Store(int32(PathGPU))
	l.logger.Info("loader started", "path", PathGPU, "size", l.targets.Size())
}

// mountStage renders the mark and mounts it. A stage that cannot be mounted is replaced by
// one that discards writes so the loader still times out and finalizes.
func (l *Loader) mountStage() window.Stage {
	if l.window == nil {
		return &nopStage{}
	}
	m, err := mark.Render(l.markOpts...)
	if err != nil {
		l.logger.Warn("mark unavailable", "err", err)
		return &nopStage{}
	}
	s, err := window.NewStage(l.window, m, window.WithLogger(l.logger))
	if err != nil {
		l.logger.Warn("overlay unavailable", "err", err)
		return &nopStage{}
	}
	return s
}

func (l *Loader) transitionOptions() []transition.ControllerBuilderOption {
	return []transition.ControllerBuilderOption{
		transition.WithDelay(l.delay),
		transition.WithFadeDuration(l.fadeDuration),
		transition.WithFadeInterval(l.fadeInterval),
		transition.WithMotion(l.motion),
		transition.WithLogger(l.logger),
	}
}

// startGPU brings up the pipeline. Resources are stored as they are created so a failure
// part way through can be released by releaseGPU.
func (l *Loader) startGPU() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrInit, r)
		}
	}()

	if l.window == nil {
		return fmt.Errorf("%w: no surface window", renderer.ErrContextUnavailable)
	}

	backend, err := l.acquire(l.window, l.rendererOpts...)
	if err != nil {
		return classify(err)
	}
	l.backend = backend

	if c, ok := backend.Capability().(renderer.CapabilityUnsupported); ok {
		return fmt.Errorf("%w: %s", renderer.ErrContextUnavailable, c.Reason)
	}

	size := l.window.FramebufferSize().AtLeastOne()
	if backend.SurfaceSize() != size {
		backend.ConfigureSurface(size)
	}

	l.targets, err = target.Build(backend, size, target.WithLogger(l.logger))
	if err != nil {
		return classify(err)
	}

	compilerOpts := []shader.CompilerBuilderOption{shader.WithLogger(l.logger)}
	if l.validator != nil {
		compilerOpts = append(compilerOpts, shader.WithValidator(l.validator))
	}
	l.programs, err = shader.NewCompiler(backend, compilerOpts...).CompileAll(l.sources)
	if err != nil {
		return classify(err)
	}

	l.graph, err = pipeline.New(backend, l.targets, l.programs, pipeline.WithLogger(l.logger))
	if err != nil {
		return classify(err)
	}

	schedOpts := []scheduler.SchedulerBuilderOption{scheduler.WithLogger(l.logger)}
	if l.profiling {
		schedOpts = append(schedOpts, scheduler.WithProfiler(profiler.NewProfiler(l.logger, time.Second, l.loop.Now())))
	}
	l.scheduler = scheduler.New(l.loop, l.graph, schedOpts...)

	opts := append(l.transitionOptions(), transition.WithOnStateChange(func(s transition.State) {
		l.logger.Info("transition", "state", s)
	}))
	l.controller = transition.New(l.loop, l.stage, l.finalize, opts...)

	l.window.SetResizeCallback(l.resize)
	l.scheduler.Start()
	l.controller.Start()
	return nil
}

func (l *Loader) startFallback() {
	l.path.Store(int32(PathFallback))
	l.presenter = fallback.New(l.loop, l.stage, l.finalize,
		fallback.WithPulsePeriod(l.pulsePeriod),
		fallback.WithPulseInterval(l.fadeInterval),
		fallback.WithTransition(l.transitionOptions()...),
		fallback.WithLogger(l.logger),
	)
	l.presenter.Start()
	l.logger.Info("loader started", "path", PathFallback)
}

// classify keeps the typed setup errors and wraps everything else in ErrInit.
func classify(err error) error {
	var compileErr *shader.CompileError
	switch {
	case errors.Is(err, renderer.ErrContextUnavailable),
		errors.Is(err, renderer.ErrFramebufferIncomplete),
		errors.As(err, &compileErr):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrInit, err)
	}
}

// resize reconfigures the surface and rebuilds the targets before the next refresh.
func (l *Loader) resize(size common.Size) {
	if l.finalized || l.backend == nil || l.targets == nil {
		return
	}
	size = size.AtLeastOne()
	if l.targets.Working() != nil && size == l.targets.Size() {
		return
	}
	l.backend.ConfigureSurface(size)
	if err := l.targets.Rebuild(size); err != nil {
		l.logger.Warn("target rebuild failed", "size", size, "err", err)
		return
	}
	l.logger.Debug("targets rebuilt", "size", size, "generation", l.targets.Generation())
}

// releaseGPU releases every GPU resource the loader holds. The graph owns the programs once
// it exists.
func (l *Loader) releaseGPU() {
	if l.graph != nil {
		l.graph.Release()
	} else {
		for _, p := range l.programs {
			p.Release()
		}
	}
	if l.targets != nil {
		l.targets.Release()
	}
	if l.backend != nil {
		l.backend.Release()
	}
	l.graph, l.programs, l.targets, l.backend = nil, nil, nil, nil
}

// finalize tears the loader down. It runs once, on the loop goroutine.
func (l *Loader) finalize() {
	l.once.Do(func() {
		l.finalized = true
		if l.scheduler != nil {
			l.scheduler.Stop()
		}
		if l.controller != nil {
			l.controller.Cancel()
		}
		if l.presenter != nil {
			l.presenter.Cancel()
		}
		if l.window != nil {
			l.window.SetResizeCallback(nil)
		}
		l.releaseGPU()

		if l.stage != nil {
			l.stage.Unmount()
		}
		if l.ownedWindow {
			if err := l.window.Close(); err != nil {
				l.logger.Warn("window close failed", "err", err)
			}
		}
		if l.locked {
			l.host.RestoreScroll(l.saved)
			l.locked = false
		}

		l.logger.Info("loader finalized", "path", l.Path())
		if l.onComplete != nil {
			l.onComplete()
		}
		event.Publish(event.TopicLoaderComplete)
		close(l.done)
		if l.ownedLoop != nil {
			l.ownedLoop.Quit()
		}
	})
}

// Stop finalizes the loader early. It is safe to call from any goroutine and more than once.
func (l *Loader) Stop() {
	l.loop.Post(l.finalize)
}

// Run drives the loader's own event loop until finalization or ctx is cancelled. It must be
// called from the goroutine that called Init. With WithLoop it returns immediately.
//
// Parameters:
//   - ctx: cancels the loop
func (l *Loader) Run(ctx context.Context) {
	if l.ownedLoop == nil {
		return
	}
	l.ownedLoop.Run(ctx)
}

// Wait blocks until the loader has finalized or ctx is done.
//
// Parameters:
//   - ctx: bounds the wait
//
// Returns:
//   - error: ctx.Err() if ctx finished first
func (l *Loader) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed on finalization.
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Path reports which path the loader took.
func (l *Loader) Path() Path {
	return Path(l.path.Load())
}

// InitError returns the error that engaged the fallback, or nil.
func (l *Loader) InitError() error {
	return l.initErr
}

// nopStage discards presentation writes.
type nopStage struct {
	style common.OverlayStyle
}

var _ window.Stage = &nopStage{}

func (s *nopStage) SetSurfaceOpacity(float64) {}

func (s *nopStage) SetOverlayStyle(style common.OverlayStyle) {
	s.style = style
}

func (s *nopStage) SetPulse(float64) {}

func (s *nopStage) Style() common.OverlayStyle {
	return s.style
}

func (s *nopStage) Unmount() {}
