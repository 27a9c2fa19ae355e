// Package scheduler drives one pass graph execution per display refresh.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/engine/loop"
	"github.com/Carmen-Shannon/oxy-splash/engine/profiler"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/pipeline"
)

// State is the scheduler lifecycle state.
type State int

const (
	// StateIdle is the initial state. Ticks are ignored.
	StateIdle State = iota
	// StateRunning executes one frame per refresh.
	StateRunning
	// StateStopped is terminal. Ticks are ignored.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Executor runs one frame of the pass graph.
type Executor interface {
	Execute(state pipeline.FrameState) error
}

type scheduler struct {
	loop     loop.Loop
	exec     Executor
	logger   *slog.Logger
	profiler *profiler.Profiler

	state     State
	start     time.Time
	frame     uint32
	frameErrs int
}

// Scheduler owns the run/stop lifecycle of the refresh loop.
type Scheduler interface {
	// Start moves Idle to Running and requests the first refresh. No-op in any other state.
	Start()

	// Tick is the refresh callback. While Running it recomputes the elapsed time from the
	// wall clock, executes the graph with the current frame index, increments the index
	// and requests the next refresh.
	//
	// Parameters:
	//   - now: the refresh timestamp
	Tick(now time.Time)

	// Stop moves to Stopped immediately. The next scheduled tick is a no-op and no further
	// refresh is requested. Safe to call more than once and from any loop callback.
	Stop()

	// FrameIndex returns the index the next executed frame will use.
	FrameIndex() uint32

	// State returns the lifecycle state.
	State() State
}

var _ Scheduler = &scheduler{}

// SchedulerBuilderOption is a functional option applied to a Scheduler during construction via New.
type SchedulerBuilderOption func(*scheduler)

// WithLogger sets the logger used for lifecycle and frame errors.
//
// Parameters:
//   - l: the logger, ignored when nil
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithLogger(l *slog.Logger) SchedulerBuilderOption {
	return func(s *scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProfiler ticks p once per executed frame.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.profiler = p
	}
}

// New creates an Idle scheduler.
//
// Parameters:
//   - l: the loop refreshes are requested on
//   - exec: the frame executor, normally a pipeline.Graph
//   - options: variadic list of SchedulerBuilderOption functions
//
// Returns:
//   - Scheduler: the scheduler
func New(l loop.Loop, exec Executor, options ...SchedulerBuilderOption) Scheduler {
	s := &scheduler{
		loop:   l,
		exec:   exec,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scheduler) Start() {
	if s.state != StateIdle {
		return
	}
	s.state = StateRunning
	s.start = s.loop.Now()
	s.logger.Debug("frame scheduler started")
	s.loop.RequestFrame(s.Tick)
}

func (s *scheduler) Tick(now time.Time) {
	if s.state != StateRunning {
		return
	}

	elapsed := max(now.Sub(s.start), 0)
	if err := s.exec.Execute(pipeline.FrameState{Elapsed: elapsed, Frame: s.frame}); err != nil {
		// Per-frame failures are not recoverable; report the first one and keep ticking.
		if s.frameErrs == 0 {
			s.logger.Warn("frame failed", "frame", s.frame, "error", err)
		}
		s.frameErrs++
	}
	s.frame++

	if s.profiler != nil {
		s.profiler.Tick(now)
	}
	if s.state == StateRunning {
		s.loop.RequestFrame(s.Tick)
	}
}

func (s *scheduler) Stop() {
	if s.state == StateStopped {
		return
	}
	s.state = StateStopped
	s.logger.Debug("frame scheduler stopped", "frames", s.frame, "frame_errors", s.frameErrs)
}

func (s *scheduler) FrameIndex() uint32 {
	return s.frame
}

func (s *scheduler) State() State {
	return s.state
}
