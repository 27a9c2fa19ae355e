// Package target owns the off-screen render targets of the three-pass pipeline.
package target

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer"
)

// ReducedDivisor is the fixed downsample factor of the reduced target. The blur radius of the
// reduced pass body and the composite pass both assume this exact ratio.
const ReducedDivisor = 3

const (
	// Working is the full resolution generator output.
	Working = "working"
	// History holds the previous frame's working output.
	History = "history"
	// Reduced is the 1/ReducedDivisor scale blur input.
	Reduced = "reduced"
)

// Names lists the required targets in allocation order.
var Names = []string{Working, History, Reduced}

type set struct {
	backend    renderer.Backend
	logger     *slog.Logger
	size       common.Size
	generation uint64
	targets    map[string]renderer.Target
}

// Set is the full set of targets at the current surface size.
//
// A Set is owned by the loop goroutine; Rebuild completes before returning so a frame can
// never observe a partially rebuilt set.
type Set interface {
	// Target returns the current target with the given name, or nil if unknown or released.
	Target(name string) renderer.Target

	// Working returns the full resolution working target.
	Working() renderer.Target

	// History returns the full resolution history target.
	History() renderer.Target

	// Reduced returns the reduced resolution target.
	Reduced() renderer.Target

	// Size returns the full resolution size the set was last built at, or the zero size while
	// the set holds no targets.
	Size() common.Size

	// Generation returns the number of successful builds, starting at 1.
	Generation() uint64

	// Rebuild releases every target and allocates replacements at the new size.
	//
	// Parameters:
	//   - size: the new full resolution size (clamped to at least 1x1)
	//
	// Returns:
	//   - error: an error wrapping renderer.ErrFramebufferIncomplete naming the failed target
	Rebuild(size common.Size) error

	// Release frees every target and clears Size. Safe to call more than once.
	Release()
}

var _ Set = &set{}

// TargetSetBuilderOption is a functional option applied to a Set during Build.
type TargetSetBuilderOption func(*set)

// WithLogger sets the logger used for rebuild diagnostics.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - TargetSetBuilderOption: a function that applies the logger option to a Set
func WithLogger(l *slog.Logger) TargetSetBuilderOption {
	return func(s *set) {
		if l != nil {
			s.logger = l
		}
	}
}

// SizeOf returns the size of the named target for a full resolution size.
//
// Parameters:
//   - name: the target name
//   - full: the full resolution size
//
// Returns:
//   - common.Size: the target size
func SizeOf(name string, full common.Size) common.Size {
	full = full.AtLeastOne()
	if name == Reduced {
		return full.DividedBy(ReducedDivisor)
	}
	return full
}

// Build allocates every required target at the given size.
//
// Parameters:
//   - backend: the backend allocating the targets
//   - size: the full resolution size (clamped to at least 1x1)
//   - options: variadic list of TargetSetBuilderOption functions
//
// Returns:
//   - Set: the allocated set, nil on error
//   - error: an error wrapping renderer.ErrFramebufferIncomplete naming the failed target
func Build(backend renderer.Backend, size common.Size, options ...TargetSetBuilderOption) (Set, error) {
	s := &set{
		backend: backend,
		logger:  slog.New(slog.DiscardHandler),
		targets: make(map[string]renderer.Target, len(Names)),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.allocate(size); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *set) allocate(size common.Size) error {
	size = size.AtLeastOne()
	for _, name := range Names {
		t, err := s.backend.CreateTarget(name, SizeOf(name, size))
		if err != nil {
			s.Release()
			return fmt.Errorf("target %s: %w", name, err)
		}
		s.targets[name] = t
	}
	s.size = size
	s.generation++
	s.logger.Debug("render targets built",
		"generation", s.generation,
		"width", size.Width, "height", size.Height,
		"reduced", SizeOf(Reduced, size))
	return nil
}

func (s *set) Target(name string) renderer.Target {
	return s.targets[name]
}

func (s *set) Working() renderer.Target { return s.targets[Working] }
func (s *set) History() renderer.Target { return s.targets[History] }
func (s *set) Reduced() renderer.Target { return s.targets[Reduced] }

func (s *set) Size() common.Size {
	return s.size
}

func (s *set) Generation() uint64 {
	return s.generation
}

func (s *set) Rebuild(size common.Size) error {
	s.Release()
	return s.allocate(size)
}

func (s *set) Release() {
	for name, t := range s.targets {
		t.Release()
		delete(s.targets, name)
	}
	s.size = common.Size{}
}
