// Package looptest provides a deterministic loop.Loop for tests. Time only moves when the
// test advances it, timers fire in due order, and refresh callbacks are dispatched on a
// simulated display clock.
package looptest

import (
	"sort"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/engine/loop"
)

type timer struct {
	due       time.Time
	period    time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// Loop is a manual loop.Loop. It is not safe for concurrent use except for Post.
type Loop struct {
	now    time.Time
	seq    int
	timers []*timer
	posted chan func()
	frames []func(now time.Time)

	// Refreshes counts dispatched refreshes that had at least one callback.
	Refreshes int
}

var _ loop.Loop = &Loop{}

// New creates a Loop whose clock starts at start.
func New(start time.Time) *Loop {
	return &Loop{now: start, posted: make(chan func(), 1024)}
}

func (l *Loop) Now() time.Time {
	return l.now
}

func (l *Loop) Post(fn func()) {
	l.posted <- fn
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) loop.Cancel {
	return l.add(d, 0, fn)
}

func (l *Loop) Every(d time.Duration, fn func()) loop.Cancel {
	return l.add(d, d, fn)
}

func (l *Loop) RequestFrame(fn func(now time.Time)) {
	l.frames = append(l.frames, fn)
}

// PendingFrames reports how many refresh callbacks are queued.
func (l *Loop) PendingFrames() int {
	return len(l.frames)
}

// ActiveTimers reports how many timers are still armed.
func (l *Loop) ActiveTimers() int {
	n := 0
	for _, t := range l.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func (l *Loop) add(d, period time.Duration, fn func()) loop.Cancel {
	l.seq++
	t := &timer{due: l.now.Add(d), period: period, seq: l.seq, fn: fn}
	l.timers = append(l.timers, t)
	return func() { t.cancelled = true }
}

// Drain runs posted callbacks until the queue is empty.
func (l *Loop) Drain() {
	for {
		select {
		case fn := <-l.posted:
			fn()
		default:
			return
		}
	}
}

// Frame dispatches one display refresh at the current time.
func (l *Loop) Frame() {
	l.Drain()
	frames := l.frames
	l.frames = nil
	if len(frames) > 0 {
		l.Refreshes++
	}
	for _, fn := range frames {
		fn(l.now)
	}
	l.Drain()
}

// Advance moves the clock forward by d, firing due timers in order. No refreshes happen.
func (l *Loop) Advance(d time.Duration) {
	l.Run(d, 0)
}

// Run moves the clock forward by d while dispatching a refresh every refresh interval
// (0 disables refreshes). Timers and refreshes due at the same instant fire timers first.
func (l *Loop) Run(d, refresh time.Duration) {
	end := l.now.Add(d)
	nextFrame := l.now.Add(refresh)
	l.Drain()
	for {
		t := l.nextTimer()
		frameDue := refresh > 0 && !nextFrame.After(end)
		timerDue := t != nil && !t.due.After(end)

		switch {
		case timerDue && (!frameDue || !t.due.After(nextFrame)):
			l.now = t.due
			if t.period > 0 {
				t.due = t.due.Add(t.period)
			} else {
				t.cancelled = true
			}
			t.fn()
			l.Drain()
		case frameDue:
			l.now = nextFrame
			nextFrame = nextFrame.Add(refresh)
			l.Frame()
		default:
			l.now = end
			l.Drain()
			return
		}
	}
}

func (l *Loop) nextTimer() *timer {
	live := l.timers[:0]
	for _, t := range l.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	l.timers = live
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].due.Equal(live[j].due) {
			return live[i].seq < live[j].seq
		}
		return live[i].due.Before(live[j].due)
	})
	return live[0]
}
