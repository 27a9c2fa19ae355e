// Package windowtest provides in-memory windows, hosts and stages for tests.
package windowtest

import (
	"image"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window is a window.Window that only records what is written to it.
type Window struct {
	Rect      image.Rectangle
	Size      common.Size
	Opacities []float64
	Positions []image.Point
	Icons     []image.Image
	Contents  []image.Image
	Closed    int

	onResize func(size common.Size)
}

var _ window.Window = &Window{}

// NewWindow creates a window at the origin whose framebuffer matches its screen size.
func NewWindow(width, height int) *Window {
	return &Window{
		Rect: image.Rect(0, 0, width, height),
		Size: common.Size{Width: width, Height: height},
	}
}

// Resize changes the framebuffer size and delivers the resize callback synchronously.
func (w *Window) Resize(size common.Size) {
	w.Size = size
	w.Rect.Max = w.Rect.Min.Add(image.Pt(size.Width, size.Height))
	if w.onResize != nil {
		w.onResize(size)
	}
}

// Opacity returns the last opacity written, or 1 if none was.
func (w *Window) Opacity() float64 {
	if len(w.Opacities) == 0 {
		return 1
	}
	return w.Opacities[len(w.Opacities)-1]
}

// Position returns the last position written, or the window origin.
func (w *Window) Position() image.Point {
	if len(w.Positions) == 0 {
		return w.Rect.Min
	}
	return w.Positions[len(w.Positions)-1]
}

func (w *Window) SetResizeCallback(callback func(size common.Size)) {
	w.onResize = callback
}

// SurfaceDescriptor returns nil: a fake window has no platform surface.
func (w *Window) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return nil
}

func (w *Window) FramebufferSize() common.Size {
	return w.Size
}

func (w *Window) Bounds() image.Rectangle {
	return w.Rect
}

func (w *Window) SetPosition(x, y int) {
	w.Positions = append(w.Positions, image.Pt(x, y))
}

func (w *Window) SetOpacity(opacity float64) {
	w.Opacities = append(w.Opacities, opacity)
}

func (w *Window) SetIcon(img image.Image) {
	w.Icons = append(w.Icons, img)
}

func (w *Window) SetContent(img image.Image) {
	w.Contents = append(w.Contents, img)
}

func (w *Window) IsRunning() bool {
	return w.Closed == 0
}

func (w *Window) ProcessMessages() bool {
	return w.IsRunning()
}

func (w *Window) Width() int {
	return w.Size.Width
}

func (w *Window) Height() int {
	return w.Size.Height
}

func (w *Window) Close() error {
	w.Closed++
	return nil
}

// Host is a window.Host holding its state in memory.
type Host struct {
	State   window.ScrollState
	Locked  bool
	Saves   int
	Locks   int
	Restore []window.ScrollState
}

var _ window.Host = &Host{}

// NewHost creates a host with a non-zero state so a missed restore is visible.
func NewHost() *Host {
	return &Host{State: window.ScrollState{Floating: 0, StickyKeys: 1, StickyMouseButtons: 1, ScrollHandled: true}}
}

func (h *Host) SaveScroll() window.ScrollState {
	h.Saves++
	return h.State
}

func (h *Host) LockScroll() {
	h.Locks++
	h.Locked = true
	h.State = window.ScrollState{Floating: 1}
}

func (h *Host) RestoreScroll(state window.ScrollState) {
	h.Restore = append(h.Restore, state)
	h.State = state
	h.Locked = false
}

// Stage is a window.Stage recording every write.
type Stage struct {
	Surface   []float64
	Overlay   []common.OverlayStyle
	Pulses    []float64
	Unmounted int
}

var _ window.Stage = &Stage{}

func (s *Stage) SetSurfaceOpacity(opacity float64) {
	s.Surface = append(s.Surface, opacity)
}

func (s *Stage) SetOverlayStyle(style common.OverlayStyle) {
	s.Overlay = append(s.Overlay, style)
}

func (s *Stage) SetPulse(level float64) {
	s.Pulses = append(s.Pulses, level)
}

func (s *Stage) Style() common.OverlayStyle {
	if len(s.Overlay) == 0 {
		return common.OverlayVisible
	}
	return s.Overlay[len(s.Overlay)-1]
}

func (s *Stage) Unmount() {
	s.Unmounted++
}

// SurfaceOpacity returns the last surface opacity written, or 1 if none was.
func (s *Stage) SurfaceOpacity() float64 {
	if len(s.Surface) == 0 {
		return 1
	}
	return s.Surface[len(s.Surface)-1]
}
