// Package renderertest provides an in-memory renderer.Backend for exercising the render pipeline
// without a GPU. Targets carry symbolic content: a draw writes "<program>@<frame>" into its
// output and a copy duplicates the source content, so tests can assert read-before-write order.
package renderertest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer"
)

// CallKind identifies an entry in the backend's call log.
type CallKind int

const (
	CallBegin CallKind = iota
	CallDraw
	CallCopy
	CallEnd
)

// Call is one recorded backend operation.
type Call struct {
	Kind CallKind
	// Program is the program label for draws.
	Program string
	// Inputs is the content of each bound input at the time of the draw.
	Inputs []string
	// InputLabels is the label of each bound input.
	InputLabels []string
	// Output is the output target label, or "surface".
	Output string
	// Viewport is the viewport the draw was issued with.
	Viewport common.Size
	// OutputSize is the size of the output the draw rendered into.
	OutputSize common.Size
	// Uniforms are the uniforms uploaded for the draw.
	Uniforms common.FrameUniforms
	// Src and Dst are the labels of a copy.
	Src, Dst string
}

// Target is a fake render target.
type Target struct {
	label    string
	size     common.Size
	content  string
	released bool
	owner    *Backend
}

func (t *Target) Label() string { return t.label }
func (t *Target) Size() common.Size { return t.size }
func (t *Target) Released() bool { return t.released }

// Content returns the symbolic content last written to the target. A fresh target is "".
func (t *Target) Content() string {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.content
}

func (t *Target) Release() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	t.owner.releasedTargets++
}

// Program is a fake linked program.
type Program struct {
	desc     renderer.ProgramDescriptor
	released bool
	owner    *Backend
}

func (p *Program) Label() string { return p.desc.Label }
func (p *Program) SamplerCount() int { return p.desc.SamplerCount }
func (p *Program) Output() renderer.OutputKind { return p.desc.Output }

// Descriptor returns the descriptor the program was linked from.
func (p *Program) Descriptor() renderer.ProgramDescriptor { return p.desc }

func (p *Program) Release() {
	p.owner.mu.Lock()
	defer p.owner.mu.Unlock()
	if p.released {
		return
	}
	p.released = true
	p.owner.releasedPrograms++
}

// Backend is a fake renderer.Backend. The zero value is not usable; use New.
type Backend struct {
	mu sync.Mutex

	capability renderer.Capability
	surface    common.Size

	// FailTarget, when set, makes CreateTarget fail for labels it returns true for.
	FailTarget func(label string, size common.Size) bool
	// FailProgram, when set, makes CreateProgram fail with the returned error when non-nil.
	FailProgram func(desc renderer.ProgramDescriptor) error
	// FailBeginFrame, when set, is returned from BeginFrame.
	FailBeginFrame error

	calls   []Call
	targets []*Target
	progs   []*Program

	surfaceContent   string
	inFrame          bool
	frames           int
	configures       []common.Size
	releasedTargets  int
	releasedPrograms int
	releases         int
}

var _ renderer.Backend = (*Backend)(nil)

// New returns a supported fake backend with the given surface size.
func New(surface common.Size) *Backend {
	return &Backend{capability: renderer.CapabilitySupported{}, surface: surface}
}

// NewUnsupported returns a fake backend whose capability check failed.
func NewUnsupported(surface common.Size, reason string) *Backend {
	return &Backend{capability: renderer.CapabilityUnsupported{Reason: reason}, surface: surface}
}

func (b *Backend) Capability() renderer.Capability { return b.capability }

func (b *Backend) SurfaceSize() common.Size {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface
}

func (b *Backend) ConfigureSurface(size common.Size) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surface = size.AtLeastOne()
	b.configures = append(b.configures, b.surface)
}

func (b *Backend) CreateTarget(label string, size common.Size) (renderer.Target, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.releases > 0 {
		return nil, renderer.ErrReleased
	}
	if size.Width < 1 || size.Height < 1 || (b.FailTarget != nil && b.FailTarget(label, size)) {
		return nil, fmt.Errorf("%w: %s", renderer.ErrFramebufferIncomplete, label)
	}
	t := &Target{label: label, size: size, owner: b}
	b.targets = append(b.targets, t)
	return t, nil
}

func (b *Backend) CreateProgram(desc renderer.ProgramDescriptor) (renderer.Program, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.releases > 0 {
		return nil, renderer.ErrReleased
	}
	if b.FailProgram != nil {
		if err := b.FailProgram(desc); err != nil {
			return nil, err
		}
	}
	p := &Program{desc: desc, owner: b}
	b.progs = append(b.progs, p)
	return p, nil
}

func (b *Backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.releases > 0 {
		return renderer.ErrReleased
	}
	if b.FailBeginFrame != nil {
		return b.FailBeginFrame
	}
	if b.inFrame {
		return errors.New("previous frame surface not yet presented")
	}
	b.inFrame = true
	b.calls = append(b.calls, Call{Kind: CallBegin})
	return nil
}

func (b *Backend) DrawPass(call renderer.DrawCall) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return renderer.ErrNoFrame
	}
	p, ok := call.Program.(*Program)
	if !ok || p.released {
		return fmt.Errorf("%w: program", renderer.ErrReleased)
	}
	if len(call.Inputs) != p.desc.SamplerCount {
		return fmt.Errorf("%s binds %d inputs, got %d", p.desc.Label, p.desc.SamplerCount, len(call.Inputs))
	}

	rec := Call{Kind: CallDraw, Program: p.desc.Label, Viewport: call.Viewport, Uniforms: call.Uniforms}
	for _, in := range call.Inputs {
		t, ok := in.(*Target)
		if !ok || t.released {
			return fmt.Errorf("%w: input", renderer.ErrReleased)
		}
		rec.Inputs = append(rec.Inputs, t.content)
		rec.InputLabels = append(rec.InputLabels, t.label)
	}

	content := fmt.Sprintf("%s@%d", p.desc.Label, call.Uniforms.Frame)
	if call.Output == nil {
		rec.Output = "surface"
		rec.OutputSize = b.surface
		b.surfaceContent = content
	} else {
		t, ok := call.Output.(*Target)
		if !ok || t.released {
			return fmt.Errorf("%w: output", renderer.ErrReleased)
		}
		rec.Output = t.label
		rec.OutputSize = t.size
		t.content = content
	}
	b.calls = append(b.calls, rec)
	return nil
}

func (b *Backend) CopyTarget(src, dst renderer.Target) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return renderer.ErrNoFrame
	}
	s, ok := src.(*Target)
	if !ok || s.released {
		return fmt.Errorf("%w: copy source", renderer.ErrReleased)
	}
	d, ok := dst.(*Target)
	if !ok || d.released {
		return fmt.Errorf("%w: copy destination", renderer.ErrReleased)
	}
	if s.size != d.size {
		return fmt.Errorf("copy %s -> %s: size mismatch", s.label, d.label)
	}
	d.content = s.content
	b.calls = append(b.calls, Call{Kind: CallCopy, Src: s.label, Dst: d.label})
	return nil
}

func (b *Backend) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return
	}
	b.inFrame = false
	b.frames++
	b.calls = append(b.calls, Call{Kind: CallEnd})
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releases++
	if b.releases > 1 {
		return
	}
	for _, t := range b.targets {
		if !t.released {
			t.released = true
			b.releasedTargets++
		}
	}
	for _, p := range b.progs {
		if !p.released {
			p.released = true
			b.releasedPrograms++
		}
	}
}

// Calls returns a copy of the call log.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Draws returns the draw entries of the call log.
func (b *Backend) Draws() []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Kind == CallDraw {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// Frames returns the number of completed frames.
func (b *Backend) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// SurfaceContent returns the symbolic content last presented.
func (b *Backend) SurfaceContent() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceContent
}

// Configures returns every size the surface was configured with.
func (b *Backend) Configures() []common.Size {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]common.Size(nil), b.configures...)
}

// LiveTargets returns the number of created targets not yet released.
func (b *Backend) LiveTargets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.targets) - b.releasedTargets
}

// LivePrograms returns the number of created programs not yet released.
func (b *Backend) LivePrograms() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.progs) - b.releasedPrograms
}

// TargetsCreated returns the number of targets ever created.
func (b *Backend) TargetsCreated() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.targets)
}

// Releases returns how many times Release was called.
func (b *Backend) Releases() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.releases
}
