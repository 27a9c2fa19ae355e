// Package pipeline is the fixed three-pass execution plan run once per display refresh.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/target"
)

// Surface is the output name of a binding that renders into the visible surface.
const Surface = ""

// Binding is one pass of the plan: the program it runs, its input targets in sampler order,
// and its output target (or Surface).
type Binding struct {
	Pass   string
	Inputs []string
	Output string
}

// Copy is a full-size target to target copy.
type Copy struct {
	Src, Dst string
}

// Topology is the fixed pass order. It never changes at runtime.
var Topology = []Binding{
	{Pass: shader.PassA, Inputs: []string{target.History}, Output: target.Working},
	{Pass: shader.PassB, Inputs: []string{target.Working}, Output: target.Reduced},
	{Pass: shader.PassImage, Inputs: []string{target.Working, target.Reduced}, Output: Surface},
}

// Feedback is the copy run after the last pass so the next frame's generator reads this frame.
var Feedback = Copy{Src: target.Working, Dst: target.History}

// FrameState is the per-frame uniform input.
type FrameState struct {
	// Elapsed is the wall clock time since the scheduler started.
	Elapsed time.Duration
	// Frame is the frame index, starting at 0.
	Frame uint32
}

type graph struct {
	backend  renderer.Backend
	targets  target.Set
	programs map[string]renderer.Program
	logger   *slog.Logger
	released bool
}

// Graph executes the plan against the current targets.
type Graph interface {
	// Execute records and submits one frame: every binding in Topology order, then Feedback.
	// Targets are resolved from the Set on every call, so a rebuild between frames is picked up.
	//
	// Parameters:
	//   - state: the frame uniforms
	//
	// Returns:
	//   - error: the first backend error; the frame is still ended and presented
	Execute(state FrameState) error

	// Release frees every program. The target set is owned by the caller.
	Release()
}

var _ Graph = &graph{}

// GraphBuilderOption is a functional option applied to a Graph during construction via New.
type GraphBuilderOption func(*graph)

// WithLogger sets the logger used for frame errors.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - GraphBuilderOption: a function that applies the logger option to a Graph
func WithLogger(l *slog.Logger) GraphBuilderOption {
	return func(g *graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// New validates that every binding has a program with a matching input count and returns the graph.
// The graph takes ownership of programs.
//
// Parameters:
//   - backend: the backend frames are recorded on
//   - targets: the render targets
//   - programs: the linked programs keyed by pass name
//   - options: variadic list of GraphBuilderOption functions
//
// Returns:
//   - Graph: the graph, nil on error
//   - error: an error if a program is missing or binds the wrong number of inputs
func New(backend renderer.Backend, targets target.Set, programs map[string]renderer.Program, options ...GraphBuilderOption) (Graph, error) {
	for _, b := range Topology {
		p, ok := programs[b.Pass]
		if !ok || p == nil {
			return nil, fmt.Errorf("pipeline: no program for pass %s", b.Pass)
		}
		if p.SamplerCount() != len(b.Inputs) {
			return nil, fmt.Errorf("pipeline: pass %s samples %d inputs, binding has %d", b.Pass, p.SamplerCount(), len(b.Inputs))
		}
		want := renderer.OutputTarget
		if b.Output == Surface {
			want = renderer.OutputSurface
		}
		if p.Output() != want {
			return nil, fmt.Errorf("pipeline: pass %s linked against the wrong output", b.Pass)
		}
	}

	g := &graph{
		backend:  backend,
		targets:  targets,
		programs: programs,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

func (g *graph) Execute(state FrameState) error {
	if g.released {
		return renderer.ErrReleased
	}
	if err := g.backend.BeginFrame(); err != nil {
		return fmt.Errorf("pipeline: begin frame %d: %w", state.Frame, err)
	}
	defer g.backend.EndFrame()

	for _, b := range Topology {
		if err := g.draw(b, state); err != nil {
			return fmt.Errorf("pipeline: frame %d pass %s: %w", state.Frame, b.Pass, err)
		}
	}

	src, dst := g.targets.Target(Feedback.Src), g.targets.Target(Feedback.Dst)
	if src == nil || dst == nil {
		return fmt.Errorf("pipeline: frame %d feedback: %w", state.Frame, renderer.ErrReleased)
	}
	if err := g.backend.CopyTarget(src, dst); err != nil {
		return fmt.Errorf("pipeline: frame %d feedback: %w", state.Frame, err)
	}
	return nil
}

func (g *graph) draw(b Binding, state FrameState) error {
	inputs := make([]renderer.Target, len(b.Inputs))
	for i, name := range b.Inputs {
		t := g.targets.Target(name)
		if t == nil {
			return fmt.Errorf("input %s: %w", name, renderer.ErrReleased)
		}
		inputs[i] = t
	}

	var output renderer.Target
	viewport := g.backend.SurfaceSize()
	if b.Output != Surface {
		output = g.targets.Target(b.Output)
		if output == nil {
			return fmt.Errorf("output %s: %w", b.Output, renderer.ErrReleased)
		}
		viewport = output.Size()
	}

	return g.backend.DrawPass(renderer.DrawCall{
		Program:  g.programs[b.Pass],
		Inputs:   inputs,
		Output:   output,
		Viewport: viewport,
		Uniforms: common.FrameUniforms{
			Resolution: [2]float32{float32(viewport.Width), float32(viewport.Height)},
			Time:       common.Seconds(state.Elapsed),
			Frame:      state.Frame,
		},
	})
}

func (g *graph) Release() {
	if g.released {
		return
	}
	g.released = true
	for name, p := range g.programs {
		p.Release()
		delete(g.programs, name)
	}
}
