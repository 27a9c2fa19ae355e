package window

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

// ScrollState is the host window's input state saved before the loader locks it.
// It is comparable: a restore is correct when the state read afterwards equals the saved one.
type ScrollState struct {
	// Floating is the always-on-top attribute.
	Floating int
	// StickyKeys is the sticky keys input mode.
	StickyKeys int
	// StickyMouseButtons is the sticky mouse buttons input mode.
	StickyMouseButtons int
	// ScrollHandled reports whether a scroll callback was installed.
	ScrollHandled bool
}

// Host is the host application the loader sits on top of.
type Host interface {
	// SaveScroll reads the current host input state.
	//
	// Returns:
	//   - ScrollState: the saved state
	SaveScroll() ScrollState

	// LockScroll keeps the host from reacting to scroll input until RestoreScroll.
	LockScroll()

	// RestoreScroll writes a previously saved state back.
	//
	// Parameters:
	//   - state: the state returned by SaveScroll
	RestoreScroll(state ScrollState)
}

// glfwHost locks a GLFW window: scroll events are swallowed and the window floats above
// other windows while the loader is up.
type glfwHost struct {
	window *glfw.Window
	scroll glfw.ScrollCallback
	locked bool
}

var _ Host = &glfwHost{}

// nopHost is used for windows the package does not own.
type nopHost struct{}

func (nopHost) SaveScroll() ScrollState { return ScrollState{} }
func (nopHost) LockScroll() {}
func (nopHost) RestoreScroll(_ ScrollState) {}

// NewHost returns the Host for w. Windows not created by this package get a Host that
// saves and restores nothing.
//
// Parameters:
//   - w: the host window
//
// Returns:
//   - Host: the host lock
func NewHost(w Window) Host {
	gw := glfwHandle(w)
	if gw == nil {
		return nopHost{}
	}
	return &glfwHost{window: gw}
}

func (h *glfwHost) SaveScroll() ScrollState {
	// Setting a callback is the only way to read the current one back.
	prev := h.window.SetScrollCallback(nil)
	h.window.SetScrollCallback(prev)
	if !h.locked {
		h.scroll = prev
	}
	return ScrollState{
		Floating:           h.window.GetAttrib(glfw.Floating),
		StickyKeys:         h.window.GetInputMode(glfw.StickyKeysMode),
		StickyMouseButtons: h.window.GetInputMode(glfw.StickyMouseButtonsMode),
		ScrollHandled:      prev != nil,
	}
}

func (h *glfwHost) LockScroll() {
	prev := h.window.SetScrollCallback(func(_ *glfw.Window, _, _ float64) {})
	if !h.locked {
		h.scroll = prev
		h.locked = true
	}
	h.window.SetAttrib(glfw.Floating, glfw.True)
	h.window.SetInputMode(glfw.StickyKeysMode, glfw.False)
	h.window.SetInputMode(glfw.StickyMouseButtonsMode, glfw.False)
}

func (h *glfwHost) RestoreScroll(state ScrollState) {
	if state.ScrollHandled {
		h.window.SetScrollCallback(h.scroll)
	} else {
		h.window.SetScrollCallback(nil)
	}
	h.window.SetAttrib(glfw.Floating, state.Floating)
	h.window.SetInputMode(glfw.StickyKeysMode, state.StickyKeys)
	h.window.SetInputMode(glfw.StickyMouseButtonsMode, state.StickyMouseButtons)
	h.locked = false
}
