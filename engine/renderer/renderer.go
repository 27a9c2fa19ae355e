package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// SurfaceSource is the window side of context acquisition.
type SurfaceSource interface {
	// SurfaceDescriptor returns the platform surface descriptor for the window.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// FramebufferSize returns the framebuffer size in device pixels.
	FramebufferSize() common.Size
}

// Acquire requests a WebGPU context for the window's surface and runs the capability probe.
//
// A context that was created but failed the probe is returned together with its
// CapabilityUnsupported result so the caller can log the reason before releasing it.
// Any failure to create the context, including a panic from the native layer, is reported as
// an error wrapping ErrContextUnavailable.
//
// Parameters:
//   - src: the window providing the surface
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Backend: the acquired backend, nil on error
//   - error: an error wrapping ErrContextUnavailable if no context could be created
func Acquire(src SurfaceSource, options ...RendererBuilderOption) (backend Backend, err error) {
	cfg := acquireConfig{presentMode: PresentModeVSync}
	for _, opt := range options {
		opt(&cfg)
	}

	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("%w: %v", ErrContextUnavailable, r)
		}
	}()

	desc := src.SurfaceDescriptor()
	if desc == nil {
		return nil, fmt.Errorf("%w: window has no surface", ErrContextUnavailable)
	}

	b, err := newWGPURendererBackend(desc, src.FramebufferSize().AtLeastOne(), cfg)
	if err != nil {
		return nil, err
	}
	return b, nil
}
