// Package window holds the host collaborators of the loader: the surface window the GPU
// presents to, the floating overlay carrying the mark, and the host lock that keeps the
// surface window from reacting to scroll and resize input while the loader is up.
package window

import (
	"image"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window is a platform window.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer is resized.
	// It is delivered from ProcessMessages.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer size (or nil to disable)
	SetResizeCallback(callback func(size common.Size))

	// SurfaceDescriptor returns the platform-specific surface descriptor for WebGPU surface creation.
	// Returns nil if the window has not been initialized.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the surface descriptor for this window
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// FramebufferSize returns the framebuffer size in device pixels.
	//
	// Returns:
	//   - common.Size: the framebuffer size
	FramebufferSize() common.Size

	// Bounds returns the window rectangle in screen coordinates.
	//
	// Returns:
	//   - image.Rectangle: the window position and size
	Bounds() image.Rectangle

	// SetPosition moves the window's top-left corner in screen coordinates.
	//
	// Parameters:
	//   - x, y: the new position
	SetPosition(x, y int)

	// SetOpacity sets the whole-window opacity in [0, 1].
	//
	// Parameters:
	//   - opacity: the opacity
	SetOpacity(opacity float64)

	// Opacity returns the whole-window opacity.
	//
	// Returns:
	//   - float64: the opacity in [0, 1], 1 for a closed window
	Opacity() float64

	// SetIcon replaces the window's taskbar and title bar icon.
	//
	// Parameters:
	//   - img: the image, nil restores the default
	SetIcon(img image.Image)

	// SetContent draws img stretched over the client area. Only windows created WithContent
	// draw it; the others ignore the call.
	//
	// Parameters:
	//   - img: the image, nil clears the client area to transparent
	SetContent(img image.Image)

	// IsRunning returns whether the window is still active.
	//
	// Returns:
	//   - bool: true if the window has not been closed
	IsRunning() bool

	// ProcessMessages pumps pending platform events without blocking.
	//
	// Returns:
	//   - bool: true if the window is still running
	ProcessMessages() bool

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: the width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: the height in pixels
	Height() int

	// Close destroys the window. Closing twice is a no-op.
	//
	// Returns:
	//   - error: error if the window was never initialized
	Close() error
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title     string
	width     int
	height    int
	minWidth  int
	minHeight int
	maxWidth  int
	maxHeight int

	decorated   bool
	floating    bool
	transparent bool
	visible     bool
	content     bool

	internalWindow any
	onResize       func(size common.Size)
}

var _ Window = &engineWindow{}

// NewWindow creates and opens a platform window with the provided options.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy",
		width:     1280,
		height:    720,
		minWidth:  1,
		minHeight: 1,
		decorated: true,
		visible:   true,
	}
	for _, opt := range options {
		opt(w)
	}

	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(size common.Size)) {
	w.onResize = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) FramebufferSize() common.Size {
	return common.Size{Width: w.width, Height: w.height}
}

func (w *engineWindow) Bounds() image.Rectangle {
	return platformBounds(w)
}

func (w *engineWindow) SetPosition(x, y int) {
	platformSetPosition(w, x, y)
}

func (w *engineWindow) SetOpacity(opacity float64) {
	platformSetOpacity(w, common.Clamp(opacity, 0, 1))
}

func (w *engineWindow) Opacity() float64 {
	return platformOpacity(w)
}

func (w *engineWindow) SetIcon(img image.Image) {
	platformSetIcon(w, img)
}

func (w *engineWindow) SetContent(img image.Image) {
	platformSetContent(w, img)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) ProcessMessages() bool {
	return platformProcessMessages(w)
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}
