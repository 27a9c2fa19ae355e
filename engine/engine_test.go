package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/event"
	"github.com/Carmen-Shannon/oxy-splash/engine/loop/looptest"
	"github.com/Carmen-Shannon/oxy-splash/engine/mark"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-splash/engine/window"
	"github.com/Carmen-Shannon/oxy-splash/engine/window/windowtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const refresh = 16 * time.Millisecond

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	loop      *looptest.Loop
	backend   *renderertest.Backend
	window    *windowtest.Window
	host      *windowtest.Host
	stage     *windowtest.Stage
	completed int
	published int
	loader    *Loader
}

func newHarness(t *testing.T, backend *renderertest.Backend, options ...LoaderBuilderOption) *harness {
	t.Helper()
	h := &harness{
		loop:    looptest.New(epoch),
		backend: backend,
		window:  windowtest.NewWindow(1920, 1080),
		host:    windowtest.NewHost(),
		stage:   &windowtest.Stage{},
	}
	unsubscribe := event.Subscribe(event.TopicLoaderComplete, func() { h.published++ })
	t.Cleanup(unsubscribe)

	opts := []LoaderBuilderOption{
		WithLoop(h.loop),
		WithWindow(h.window),
		WithHost(h.host),
		WithStage(h.stage),
		WithOnComplete(func() { h.completed++ }),
		withShaderValidator(func(string) error { return nil }),
	}
	if backend != nil {
		opts = append(opts, WithBackend(backend))
	}
	h.loader = Init(append(opts, options...)...)
	return h
}

func drawLabels(calls []renderertest.Call) []string {
	labels := make([]string, len(calls))
	for i, c := range calls {
		labels[i] = c.Program
	}
	return labels
}

func TestGPUPathFrameZero(t *testing.T) {
	h := newHarness(t, renderertest.New(common.Size{Width: 1920, Height: 1080}))
	require.Equal(t, PathGPU, h.loader.Path())
	require.NoError(t, h.loader.InitError())
	assert.True(t, h.host.Locked)

	h.loop.Frame()

	draws := h.backend.Draws()
	require.Len(t, draws, 3)
	assert.Equal(t, []string{shader.PassA, shader.PassB, shader.PassImage}, drawLabels(draws))
	assert.Equal(t, []string{""}, draws[0].Inputs)
	assert.Equal(t, []string{"pass_a@0", "pass_b@0"}, draws[2].Inputs)
	assert.Equal(t, common.Size{Width: 640, Height: 360}, draws[1].OutputSize)
	assert.Equal(t, "image@0", h.backend.SurfaceContent())
	assert.Equal(t, 1, h.loop.PendingFrames(), "the scheduler requests the next refresh")
}

func TestGPUPathFinalizesOnce(t *testing.T) {
	h := newHarness(t, renderertest.New(common.Size{Width: 1920, Height: 1080}))
	saved := windowtest.NewHost().State

	h.loop.Run(6500*time.Millisecond, refresh)
	assert.Equal(t, 0, h.completed, "fade is still running at 6500ms")
	assert.Greater(t, h.backend.Frames(), 300)

	h.loop.Run(100*time.Millisecond, refresh)
	assert.Equal(t, 1, h.completed)
	assert.Equal(t, 1, h.published)
	assert.Equal(t, 0, h.backend.LiveTargets())
	assert.Equal(t, 0, h.backend.LivePrograms())
	assert.Equal(t, 1, h.backend.Releases())
	assert.Equal(t, 1, h.stage.Unmounted)
	assert.Equal(t, saved, h.host.State)
	assert.False(t, h.host.Locked)
	assert.Equal(t, 0.0, h.stage.SurfaceOpacity())
	assert.Equal(t, common.OverlayGone, h.stage.Style())

	frames := h.backend.Frames()
	h.loop.Run(time.Second, refresh)
	assert.Equal(t, frames, h.backend.Frames(), "no frames after finalization")
	assert.Equal(t, 1, h.completed)
	assert.Equal(t, 0, h.loop.ActiveTimers())

	select {
	case <-h.loader.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestFallbackWhenUnsupported(t *testing.T) {
	b := renderertest.NewUnsupported(common.Size{Width: 1920, Height: 1080}, "no sampled textures")
	h := newHarness(t, b)
	saved := windowtest.NewHost().State

	require.Equal(t, PathFallback, h.loader.Path())
	require.ErrorIs(t, h.loader.InitError(), renderer.ErrContextUnavailable)
	assert.Equal(t, 1, b.Releases(), "the unsupported context is released before the fallback starts")
	assert.Equal(t, 0, h.loop.PendingFrames())

	h.loop.Advance(6500 * time.Millisecond)
	assert.Equal(t, 0, h.completed)
	assert.NotEmpty(t, h.stage.Pulses)

	h.loop.Advance(10 * time.Millisecond)
	assert.Equal(t, 1, h.completed)
	assert.Equal(t, 1, h.published)
	assert.Equal(t, saved, h.host.State)
	assert.Equal(t, 1, h.stage.Unmounted)
	assert.Equal(t, 1.0, h.stage.Pulses[len(h.stage.Pulses)-1])
	assert.Equal(t, common.OverlayGone, h.stage.Style())

	h.loop.Advance(time.Second)
	assert.Equal(t, 1, h.completed)
	assert.Equal(t, 0, h.loop.ActiveTimers())
}

func TestFallbackOnInitFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *renderertest.Backend)
		check func(t *testing.T, err error)
	}{
		{
			name: "framebuffer incomplete",
			setup: func(b *renderertest.Backend) {
				b.FailTarget = func(label string, _ common.Size) bool { return label == target.Reduced }
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, renderer.ErrFramebufferIncomplete)
			},
		},
		{
			name: "compile error",
			setup: func(b *renderertest.Backend) {
				b.FailProgram = func(desc renderer.ProgramDescriptor) error {
					if desc.Label == shader.PassImage {
						return errors.New("link failed")
					}
					return nil
				}
			},
			check: func(t *testing.T, err error) {
				var compileErr *shader.CompileError
				require.ErrorAs(t, err, &compileErr)
				assert.Equal(t, shader.PassImage, compileErr.Pass)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := renderertest.New(common.Size{Width: 1920, Height: 1080})
			tt.setup(b)
			h := newHarness(t, b)

			assert.Equal(t, PathFallback, h.loader.Path())
			tt.check(t, h.loader.InitError())
			assert.Equal(t, 0, b.LiveTargets())
			assert.Equal(t, 0, b.LivePrograms())
			assert.Equal(t, 1, b.Releases())

			h.loop.Advance(7 * time.Second)
			assert.Equal(t, 1, h.completed)
		})
	}
}

func TestPanicDuringAcquireIsInitError(t *testing.T) {
	panicking := func(l *Loader) {
		l.acquire = func(renderer.SurfaceSource, ...renderer.RendererBuilderOption) (renderer.Backend, error) {
			panic("adapter lost")
		}
	}
	h := newHarness(t, nil, panicking)

	assert.Equal(t, PathFallback, h.loader.Path())
	assert.ErrorIs(t, h.loader.InitError(), ErrInit)
}

func TestInvalidSourcesAreInitErrors(t *testing.T) {
	src := shader.DefaultSources()
	src.Passes = src.Passes[:2]
	b := renderertest.New(common.Size{Width: 64, Height: 64})
	h := newHarness(t, b, WithShaderSources(src))

	assert.Equal(t, PathFallback, h.loader.Path())
	assert.ErrorIs(t, h.loader.InitError(), ErrInit)
	assert.Equal(t, 0, b.LivePrograms())
}

func TestResizeWhileRunning(t *testing.T) {
	h := newHarness(t, renderertest.New(common.Size{Width: 1920, Height: 1080}))
	h.loop.Frame()
	created := h.backend.TargetsCreated()

	h.window.Resize(common.Size{Width: 800, Height: 600})
	assert.Equal(t, []common.Size{{Width: 800, Height: 600}}, h.backend.Configures())
	assert.Equal(t, created+len(target.Names), h.backend.TargetsCreated())
	assert.Equal(t, len(target.Names), h.backend.LiveTargets())

	h.backend.ResetCalls()
	h.loop.Frame()
	draws := h.backend.Draws()
	require.Len(t, draws, 3)
	assert.Equal(t, common.Size{Width: 800, Height: 600}, draws[0].OutputSize)
	assert.Equal(t, common.Size{Width: 266, Height: 200}, draws[1].OutputSize)
	assert.Equal(t, common.Size{Width: 800, Height: 600}, draws[2].Viewport)
	assert.Equal(t, []string{""}, draws[0].Inputs, "history is blank after a rebuild")

	// Same size again is not a rebuild.
	h.window.Resize(common.Size{Width: 800, Height: 600})
	assert.Len(t, h.backend.Configures(), 1)
}

func TestResizeRetriesAfterFailedRebuild(t *testing.T) {
	h := newHarness(t, renderertest.New(common.Size{Width: 1920, Height: 1080}))
	h.loop.Frame()

	h.backend.FailTarget = func(label string, _ common.Size) bool { return label == target.History }
	h.window.Resize(common.Size{Width: 800, Height: 600})
	assert.Equal(t, 0, h.backend.LiveTargets())

	h.backend.FailTarget = nil
	h.window.Resize(common.Size{Width: 800, Height: 600})
	assert.Len(t, h.backend.Configures(), 2, "the same size is retried after a failed rebuild")
	assert.Equal(t, len(target.Names), h.backend.LiveTargets())

	h.backend.ResetCalls()
	h.loop.Frame()
	draws := h.backend.Draws()
	require.Len(t, draws, 3)
	assert.Equal(t, common.Size{Width: 800, Height: 600}, draws[0].OutputSize)
}

func TestMinimisedResizeClamps(t *testing.T) {
	h := newHarness(t, renderertest.New(common.Size{Width: 1920, Height: 1080}))

	h.window.Resize(common.Size{})
	assert.Equal(t, []common.Size{{Width: 1, Height: 1}}, h.backend.Configures())
	assert.Equal(t, len(target.Names), h.backend.LiveTargets())

	h.loop.Frame()
	assert.Len(t, h.backend.Draws(), 3)
}

func TestStopIsIdempotentAcrossGoroutines(t *testing.T) {
	h := newHarness(t, renderertest.New(common.Size{Width: 1920, Height: 1080}))
	h.loop.Frame()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.loader.Stop()
		}()
	}
	wg.Wait()
	h.loop.Drain()

	assert.Equal(t, 1, h.completed)
	assert.Equal(t, 1, h.published)
	assert.Equal(t, 1, h.backend.Releases())
	assert.Equal(t, 1, h.stage.Unmounted)
	assert.Len(t, h.host.Restore, 1)

	h.loader.Stop()
	h.loop.Run(7*time.Second, refresh)
	assert.Equal(t, 1, h.completed)
	assert.Equal(t, 0, h.loop.ActiveTimers())
}

func TestStopBeforeStart(t *testing.T) {
	SuppressAutoStart.Store(true)
	t.Cleanup(func() { SuppressAutoStart.Store(false) })

	h := newHarness(t, renderertest.New(common.Size{Width: 64, Height: 64}))
	h.loader.Stop()
	h.loop.Drain()
	h.loader.Start()

	assert.Equal(t, PathNone, h.loader.Path())
	assert.Equal(t, 1, h.completed)
	assert.Zero(t, h.host.Saves, "nothing was mounted")
	assert.Empty(t, h.host.Restore)
}

func TestSuppressedAutoStart(t *testing.T) {
	t.Setenv(AutoStartEnv, "1")

	h := newHarness(t, renderertest.New(common.Size{Width: 64, Height: 64}))
	assert.Equal(t, PathNone, h.loader.Path())
	assert.Zero(t, h.host.Saves)
	assert.Zero(t, h.loop.PendingFrames())

	var late int
	h.loader.SetOnComplete(func() { late++ })
	h.loader.Start()
	h.loader.Start()
	assert.Equal(t, PathGPU, h.loader.Path())
	assert.Equal(t, 1, h.host.Saves)

	h.loop.Run(7*time.Second, refresh)
	assert.Equal(t, 1, late)
	assert.Equal(t, 0, h.completed, "SetOnComplete replaces the option")
}

func TestCustomTiming(t *testing.T) {
	h := newHarness(t, renderertest.New(common.Size{Width: 64, Height: 64}),
		WithDelay(100*time.Millisecond),
		WithFadeDuration(160*time.Millisecond),
		WithFadeInterval(16*time.Millisecond),
	)

	h.loop.Run(250*time.Millisecond, refresh)
	assert.Equal(t, 0, h.completed)
	h.loop.Run(20*time.Millisecond, refresh)
	assert.Equal(t, 1, h.completed)
}

func TestWait(t *testing.T) {
	h := newHarness(t, renderertest.New(common.Size{Width: 64, Height: 64}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.loader.Wait(ctx), context.DeadlineExceeded)

	h.loader.Stop()
	h.loop.Drain()
	assert.NoError(t, h.loader.Wait(context.Background()))
}

func TestProfilingDoesNotChangeFrames(t *testing.T) {
	h := newHarness(t, renderertest.New(common.Size{Width: 64, Height: 64}), WithProfiling(true))
	h.loop.Run(time.Second, refresh)
	assert.Equal(t, 62, h.backend.Frames())
}

func TestHandoffLeavesSurfaceOpaque(t *testing.T) {
	tests := []struct {
		name    string
		backend *renderertest.Backend
		path    Path
	}{
		{"gpu", renderertest.New(common.Size{Width: 640, Height: 480}), PathGPU},
		{"fallback", renderertest.NewUnsupported(common.Size{Width: 640, Height: 480}, "no sampled textures"), PathFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := mark.Render(mark.WithSize(64, 24), mark.WithLevels(3), mark.WithWorkers(1))
			require.NoError(t, err)
			surface := windowtest.NewWindow(640, 480)
			overlay := windowtest.NewWindow(64, 24)
			st, err := window.NewStage(surface, m, window.WithOverlayWindow(overlay))
			require.NoError(t, err)

			lp := looptest.New(epoch)
			l := Init(
				WithLoop(lp),
				WithWindow(surface),
				WithHost(windowtest.NewHost()),
				WithStage(st),
				WithBackend(tt.backend),
				withShaderValidator(func(string) error { return nil }),
			)
			require.Equal(t, tt.path, l.Path())

			lp.Run(7*time.Second, refresh)
			select {
			case <-l.Done():
			default:
				t.Fatal("loader did not finalize")
			}

			assert.Contains(t, surface.Opacities, 0.0, "the surface fades out")
			assert.Equal(t, 1.0, surface.Opacity(), "the host window is opaque after handoff")
			assert.Equal(t, 0, surface.Closed)
			assert.Equal(t, 1, overlay.Closed)
			assert.NotEmpty(t, overlay.Contents)
		})
	}
}

func TestFrameLimitFollowsPresentMode(t *testing.T) {
	assert.Zero(t, frameLimitFor(renderer.PresentModeVSync), "vsync paces in Present")
	assert.Zero(t, frameLimitFor(renderer.PresentModeUncapped))
	assert.Equal(t, 60.0, frameLimitFor(renderer.PresentMode(99)))
}

func TestForeignWindowGetsEmptyHost(t *testing.T) {
	lp := looptest.New(epoch)
	b := renderertest.New(common.Size{Width: 64, Height: 64})
	l := Init(
		WithLoop(lp),
		WithWindow(windowtest.NewWindow(64, 64)),
		WithStage(&windowtest.Stage{}),
		WithBackend(b),
		withShaderValidator(func(string) error { return nil }),
	)
	require.NotNil(t, l.host)
	assert.Equal(t, window.ScrollState{}, l.host.SaveScroll())
	l.Stop()
	lp.Drain()
	assert.Equal(t, 1, b.Releases())
}
