package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the requested window size. The framebuffer may differ on high-DPI displays.
//
// Parameters:
//   - width: width in screen coordinates
//   - height: height in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
		w.height = height
	}
}

// WithMinSize sets the smallest size the user can resize the window to.
//
// Parameters:
//   - width: minimum width
//   - height: minimum height
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = width
		w.minHeight = height
	}
}

// WithMaxSize sets the largest size the user can resize the window to. Zero leaves it unbounded.
//
// Parameters:
//   - width: maximum width
//   - height: maximum height
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxWidth = width
		w.maxHeight = height
	}
}

// WithOverlay makes an undecorated, always-on-top content window with a transparent
// framebuffer, suitable for carrying the mark above the surface window.
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithOverlay() WindowBuilderOption {
	return func(w *engineWindow) {
		w.decorated = false
		w.floating = true
		w.transparent = true
		w.content = true
	}
}

// WithContent creates the window with an OpenGL context so SetContent can draw into it.
// A content window has no WebGPU surface.
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithContent() WindowBuilderOption {
	return func(w *engineWindow) {
		w.content = true
	}
}

// WithHidden creates the window without showing it.
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithHidden() WindowBuilderOption {
	return func(w *engineWindow) {
		w.visible = false
	}
}
