// Package loop provides the cooperative single-goroutine scheduler that every loader component
// runs on. Two independent clocks feed it: the display refresh (RequestFrame) and wall-clock
// timers (AfterFunc, Every). Each callback runs to completion before the next one starts, so
// components never need locks to share state with each other.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Cancel disarms a timer. It is safe to call more than once and from inside the timer's own callback.
type Cancel func()

// Loop is the scheduling surface components depend on.
type Loop interface {
	// Now returns the loop's wall-clock time.
	//
	// Returns:
	//   - time.Time: the current time
	Now() time.Time

	// Post queues fn to run on the loop goroutine. Safe to call from any goroutine.
	//
	// Parameters:
	//   - fn: the callback to run
	Post(fn func())

	// AfterFunc runs fn once on the loop goroutine after d has elapsed.
	//
	// Parameters:
	//   - d: the delay before fn runs
	//   - fn: the callback to run
	//
	// Returns:
	//   - Cancel: disarms the timer; fn will not run once Cancel has returned
	AfterFunc(d time.Duration, fn func()) Cancel

	// Every runs fn on the loop goroutine every d until cancelled.
	//
	// Parameters:
	//   - d: the fixed period
	//   - fn: the callback to run
	//
	// Returns:
	//   - Cancel: disarms the timer; fn will not run once Cancel has returned
	Every(d time.Duration, fn func()) Cancel

	// RequestFrame schedules fn for the next display refresh. Callbacks requested while a
	// refresh is being dispatched run on the following refresh.
	//
	// Parameters:
	//   - fn: the refresh callback, receiving the refresh timestamp
	RequestFrame(fn func(now time.Time))
}

// eventLoop is the production Loop. Platform events are pumped once per iteration, then
// posted work runs, then pending refresh callbacks run. When the refresh callbacks present
// with vsync the iteration rate follows the display; otherwise frameLimit paces it.
type eventLoop struct {
	posted chan func()

	mu     sync.Mutex
	frames []func(now time.Time)

	pump         func()
	frameLimit   time.Duration
	idleInterval time.Duration

	quit     chan struct{}
	quitOnce sync.Once
}

var _ Loop = &eventLoop{}

// EventLoop is a Loop that can be driven by the owner of the OS main thread.
type EventLoop interface {
	Loop

	// Run dispatches callbacks until ctx is cancelled or Quit is called. It must be called
	// from the goroutine that owns the platform window.
	//
	// Parameters:
	//   - ctx: cancels the loop
	Run(ctx context.Context)

	// Quit stops Run after the current callback returns. Safe to call multiple times.
	Quit()
}

// NewEventLoop creates an EventLoop with the provided options.
//
// Parameters:
//   - options: functional options (platform pump, frame limit)
//
// Returns:
//   - EventLoop: the loop, not yet running
func NewEventLoop(options ...EventLoopBuilderOption) EventLoop {
	l := &eventLoop{
		posted:       make(chan func(), 256),
		pump:         func() {},
		frameLimit:   time.Second / 60,
		idleInterval: time.Second / 60,
		quit:         make(chan struct{}),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *eventLoop) Now() time.Time {
	return time.Now()
}

func (l *eventLoop) Post(fn func()) {
	select {
	case <-l.quit:
	case l.posted <- fn:
	}
}

func (l *eventLoop) AfterFunc(d time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

func (l *eventLoop) Every(d time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	done := make(chan struct{})
	var stopOnce sync.Once
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-l.quit:
				return
			case <-ticker.C:
				l.Post(func() {
					if !cancelled.Load() {
						fn()
					}
				})
			}
		}
	}()
	return func() {
		cancelled.Store(true)
		stopOnce.Do(func() { close(done) })
	}
}

func (l *eventLoop) RequestFrame(fn func(now time.Time)) {
	l.mu.Lock()
	l.frames = append(l.frames, fn)
	l.mu.Unlock()
}

func (l *eventLoop) Quit() {
	l.quitOnce.Do(func() {
		close(l.quit)
	})
}

func (l *eventLoop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.quit:
			return
		default:
		}

		start := time.Now()
		l.pump()
		l.drainPosted()

		l.mu.Lock()
		frames := l.frames
		l.frames = nil
		l.mu.Unlock()

		if len(frames) == 0 {
			// Nothing to render: sleep until posted work arrives or the idle interval
			// elapses so platform events keep being pumped.
			select {
			case <-ctx.Done():
				return
			case <-l.quit:
				return
			case fn := <-l.posted:
				fn()
			case <-time.After(l.idleInterval):
			}
			continue
		}

		now := time.Now()
		for _, fn := range frames {
			fn(now)
		}

		if l.frameLimit > 0 {
			if remaining := l.frameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// drainPosted runs every callback that is already queued without blocking.
func (l *eventLoop) drainPosted() {
	for {
		select {
		case fn := <-l.posted:
			fn()
		default:
			return
		}
	}
}
