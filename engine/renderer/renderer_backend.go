package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-splash/common"
)

var (
	// ErrContextUnavailable reports that the graphics context could not be acquired or does not
	// meet the required capability tier.
	ErrContextUnavailable = errors.New("renderer: graphics context unavailable")

	// ErrFramebufferIncomplete reports that a render target's texture or attachment view could
	// not be created or validated.
	ErrFramebufferIncomplete = errors.New("renderer: framebuffer incomplete")

	// ErrNoFrame reports a draw or copy issued outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("renderer: no frame in progress")

	// ErrReleased reports use of a backend, target or program after Release.
	ErrReleased = errors.New("renderer: resource released")
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting. The refresh loop
	// is paced by the display. This is the default.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// FirstTextureBinding is the binding of input slot 0. Binding 0 is the frame uniform block and
// binding 1 the shared filtering sampler; input slot i is bound at FirstTextureBinding+i.
const FirstTextureBinding = 2

// OutputKind selects the color attachment format a program is linked against.
type OutputKind int

const (
	// OutputTarget programs write into an off-screen RenderTarget.
	OutputTarget OutputKind = iota

	// OutputSurface programs write into the visible surface.
	OutputSurface
)

// Target is an off-screen color buffer: a texture plus the attachment view passes render into.
type Target interface {
	// Label returns the target's debug label.
	Label() string

	// Size returns the target's dimensions in pixels.
	Size() common.Size

	// Release frees the texture and its view. Safe to call more than once.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

// Program is an immutable linked vertex + fragment pair with its uniform and sampler handles resolved.
type Program interface {
	// Label returns the program's debug label.
	Label() string

	// SamplerCount returns the number of input textures the program samples.
	SamplerCount() int

	// Output returns the attachment kind the program was linked against.
	Output() OutputKind

	// Release frees the pipeline, layouts and uniform buffer. Safe to call more than once.
	Release()
}

// ProgramDescriptor is the fully assembled source handed to the backend for linking.
type ProgramDescriptor struct {
	// Label is the debug label, normally the pass name.
	Label string
	// VertexSource is the WGSL source of the vertex stage.
	VertexSource string
	// VertexEntryPoint is the vertex stage entry point.
	VertexEntryPoint string
	// FragmentSource is the assembled WGSL source of the fragment stage.
	FragmentSource string
	// FragmentEntryPoint is the fragment stage entry point.
	FragmentEntryPoint string
	// SamplerCount is the number of texture bindings following the uniform binding.
	SamplerCount int
	// Output selects the color attachment format.
	Output OutputKind
}

// DrawCall describes one full-screen pass.
type DrawCall struct {
	// Program is the linked program to draw with.
	Program Program
	// Inputs are bound to sampler slots 0..n-1 in order.
	Inputs []Target
	// Output is the target to render into; nil renders into the surface.
	Output Target
	// Viewport must equal the size of Output (or the surface when Output is nil).
	Viewport common.Size
	// Uniforms are uploaded to the program's uniform buffer before the draw.
	Uniforms common.FrameUniforms
}

// Backend is the GPU contract the render pipeline is written against. Every call happens on the
// loop goroutine; implementations do not need to be safe for concurrent use.
type Backend interface {
	// Capability returns the capability result computed once at acquisition.
	//
	// Returns:
	//   - Capability: CapabilitySupported or CapabilityUnsupported
	Capability() Capability

	// SurfaceSize returns the size the surface was last configured with.
	//
	// Returns:
	//   - common.Size: the surface size in pixels
	SurfaceSize() common.Size

	// ConfigureSurface reconfigures the swapchain for a new surface size.
	//
	// Parameters:
	//   - size: the new surface size in pixels (clamped to at least 1x1)
	ConfigureSurface(size common.Size)

	// CreateTarget allocates an off-screen color target cleared to transparent black.
	//
	// Parameters:
	//   - label: the target's debug label
	//   - size: the target size in pixels (each dimension >= 1)
	//
	// Returns:
	//   - Target: the allocated target
	//   - error: an error wrapping ErrFramebufferIncomplete if allocation or validation fails
	CreateTarget(label string, size common.Size) (Target, error)

	// CreateProgram links a program from assembled sources.
	//
	// Parameters:
	//   - desc: the assembled program sources and binding counts
	//
	// Returns:
	//   - Program: the linked program, nil on failure
	//   - error: the backend's diagnostic if the module or pipeline could not be created
	CreateProgram(desc ProgramDescriptor) (Program, error)

	// BeginFrame acquires the next surface image and starts recording a frame.
	//
	// Returns:
	//   - error: an error if the surface image could not be acquired
	BeginFrame() error

	// DrawPass records one full-screen pass into the current frame.
	//
	// Parameters:
	//   - call: the pass description
	//
	// Returns:
	//   - error: ErrNoFrame outside a frame, or a binding error
	DrawPass(call DrawCall) error

	// CopyTarget records a full-size copy of src into dst. Both must have equal sizes.
	//
	// Parameters:
	//   - src: the source target
	//   - dst: the destination target
	//
	// Returns:
	//   - error: ErrNoFrame outside a frame, or a size mismatch
	CopyTarget(src, dst Target) error

	// EndFrame submits the recorded frame and presents the surface image.
	EndFrame()

	// Release frees the device, surface and every backend-owned resource. Safe to call more than once.
	Release()
}
