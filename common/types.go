// package common contains common types that are used throughout the loader. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types shared between the render pipeline, the transition and the host window layer.
package common

// Size is a pixel extent. Both dimensions are device pixels.
type Size struct {
	// Width is the horizontal extent in pixels.
	Width int
	// Height is the vertical extent in pixels.
	Height int
}

// AtLeastOne returns a copy of the size with each dimension clamped to a minimum of 1.
// Minimised windows report a 0x0 framebuffer, which no texture can be created with.
//
// Returns:
//   - Size: the clamped size
func (s Size) AtLeastOne() Size {
	return Size{Width: max(s.Width, 1), Height: max(s.Height, 1)}
}

// DividedBy returns the size divided by divisor on both axes, rounding down and clamping
// each dimension to a minimum of 1.
//
// Parameters:
//   - divisor: the integer divisor applied to both dimensions (must be > 0)
//
// Returns:
//   - Size: the reduced size
func (s Size) DividedBy(divisor int) Size {
	return Size{Width: max(s.Width/divisor, 1), Height: max(s.Height/divisor, 1)}
}

// OverlayStyle is the presentation state of the overlay mark.
// It is written only by the transition timer and read by the host window layer.
type OverlayStyle struct {
	// Opacity is in the range [0, 1].
	Opacity float64
	// OffsetX is the horizontal displacement of the mark in pixels.
	OffsetX float64
	// Blur is the blur radius applied to the mark in pixels.
	Blur float64
}

// OverlayVisible is the resting overlay style before the fade reaches the mark.
var OverlayVisible = OverlayStyle{Opacity: 1}

// OverlayGone is the clean terminal overlay style: no offset, no blur, zero opacity.
var OverlayGone = OverlayStyle{}

// FrameUniforms mirrors the WGSL FrameUniforms struct bound at @group(0) @binding(0) of every pass.
// Field order and sizes match the WGSL layout (vec2f, f32, u32 = 16 bytes).
type FrameUniforms struct {
	// Resolution is the size of the pass output in pixels.
	Resolution [2]float32
	// Time is the elapsed time since the pipeline started, in seconds.
	Time float32
	// Frame is the monotonic frame index, starting at 0.
	Frame uint32
}
