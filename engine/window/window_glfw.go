package window

import (
	"fmt"
	"image"
	"runtime"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	window  *glfw.Window
	content *glContent
	running bool
}

// openWindows counts live GLFW windows. GLFW is terminated when the last one closes.
// Every GLFW call happens on the main thread, so it needs no lock.
var openWindows int

func boolHint(v bool) int {
	if v {
		return glfw.True
	}
	return glfw.False
}

// newPlatformWindow creates the GLFW window and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if openWindows == 0 {
		if err := glfw.Init(); err != nil {
			return fmt.Errorf("failed to initialize GLFW: %v", err)
		}
	}

	glfw.DefaultWindowHints()
	if w.content {
		// Content windows draw a single texture with a core profile context.
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 3)
		glfw.WindowHint(glfw.ContextVersionMinor, 3)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	} else {
		// WebGPU provides its own graphics API, so disable OpenGL context creation.
		// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	}
	glfw.WindowHint(glfw.Decorated, boolHint(w.decorated))
	glfw.WindowHint(glfw.Floating, boolHint(w.floating))
	glfw.WindowHint(glfw.TransparentFramebuffer, boolHint(w.transparent))
	glfw.WindowHint(glfw.Visible, boolHint(w.visible))

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		if openWindows == 0 {
			glfw.Terminate()
		}
		return fmt.Errorf("failed to create GLFW window: %v", err)
	}
	openWindows++

	maxW, maxH := glfw.DontCare, glfw.DontCare
	if w.maxWidth > 0 {
		maxW = w.maxWidth
	}
	if w.maxHeight > 0 {
		maxH = w.maxHeight
	}
	win.SetSizeLimits(max(w.minWidth, 1), max(w.minHeight, 1), maxW, maxH)

	gw := &glfwWindow{
		window:  win,
		running: true,
	}
	if w.content {
		c, err := newGLContent(win)
		if err != nil {
			win.Destroy()
			openWindows--
			if openWindows == 0 {
				glfw.Terminate()
			}
			return err
		}
		gw.content = c
		c.draw(win)
		win.SetRefreshCallback(func(win *glfw.Window) {
			c.draw(win)
		})
	}
	w.internalWindow = gw

	// Use framebuffer size callback for pixel-accurate resize events.
	// On high-DPI displays (e.g., macOS Retina), framebuffer size differs from window size.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetFramebufferSizeCallback
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		if w.onResize != nil {
			w.onResize(common.Size{Width: width, Height: height})
		}
	})

	// Update stored dimensions to reflect actual framebuffer size (may differ from requested on high-DPI).
	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	return nil
}

// live returns the GLFW state of an open window, or nil once it is closed.
func live(w *engineWindow) *glfwWindow {
	if w.internalWindow == nil {
		return nil
	}
	gw := w.internalWindow.(*glfwWindow)
	if !gw.running {
		return nil
	}
	return gw
}

// glfwHandle returns the GLFW window behind w, or nil for a closed or foreign window.
func glfwHandle(w Window) *glfw.Window {
	ew, ok := w.(*engineWindow)
	if !ok {
		return nil
	}
	if gw := live(ew); gw != nil {
		return gw.window
	}
	return nil
}

// platformGetSurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW window.
// Uses the wgpuglfw bridge package which has per-platform implementations (Windows, X11, Wayland, macOS).
// Content windows own an OpenGL context and have no surface.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw := live(w)
	if gw == nil || gw.content != nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

func platformBounds(w *engineWindow) image.Rectangle {
	gw := live(w)
	if gw == nil {
		return image.Rectangle{}
	}
	x, y := gw.window.GetPos()
	width, height := gw.window.GetSize()
	return image.Rect(x, y, x+width, y+height)
}

func platformSetPosition(w *engineWindow, x, y int) {
	if gw := live(w); gw != nil {
		gw.window.SetPos(x, y)
	}
}

// platformSetOpacity sets the window opacity. Platforms without compositing ignore it.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetOpacity
func platformSetOpacity(w *engineWindow, opacity float64) {
	if gw := live(w); gw != nil {
		gw.window.SetOpacity(float32(opacity))
	}
}

// platformOpacity reads the window opacity back from GLFW.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.GetOpacity
func platformOpacity(w *engineWindow) float64 {
	gw := live(w)
	if gw == nil {
		return 1
	}
	return float64(gw.window.GetOpacity())
}

// platformSetContent uploads img to a content window and redraws it.
func platformSetContent(w *engineWindow, img image.Image) {
	gw := live(w)
	if gw == nil || gw.content == nil {
		return
	}
	gw.content.upload(gw.window, img)
	gw.content.draw(gw.window)
}

// platformSetIcon replaces the window icon. Wayland and macOS ignore window icons.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetIcon
func platformSetIcon(w *engineWindow, img image.Image) {
	gw := live(w)
	if gw == nil {
		return
	}
	if img == nil {
		gw.window.SetIcon(nil)
		return
	}
	gw.window.SetIcon([]image.Image{img})
}

// platformIsRunningCheck returns whether the GLFW window is still active.
// Returns false if the internal window is nil, the running flag is cleared, or GLFW reports ShouldClose.
//
// Parameters:
//   - w: the engineWindow to check
//
// Returns:
//   - bool: true if the window is still running
func platformIsRunningCheck(w *engineWindow) bool {
	gw := live(w)
	return gw != nil && !gw.window.ShouldClose()
}

// platformCloseWindow destroys the GLFW window, terminating GLFW after the last window.
//
// Parameters:
//   - w: the engineWindow to close
//
// Returns:
//   - error: error if the window is not initialized
func platformCloseWindow(w *engineWindow) error {
	if w.internalWindow == nil {
		return fmt.Errorf("window is not initialized")
	}
	gw := w.internalWindow.(*glfwWindow)
	if !gw.running {
		return nil
	}
	gw.running = false
	if gw.content != nil {
		gw.content.release(gw.window)
		gw.content = nil
	}
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	openWindows--
	if openWindows == 0 {
		glfw.Terminate()
	}
	return nil
}

// platformProcessMessages polls GLFW for pending events without blocking.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformProcessMessages(w *engineWindow) bool {
	if openWindows > 0 {
		glfw.PollEvents()
	}
	return platformIsRunningCheck(w)
}
