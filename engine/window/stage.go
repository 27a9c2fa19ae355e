package window

import (
	"image"
	"log/slog"
	"math"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/fallback"
	"github.com/Carmen-Shannon/oxy-splash/engine/mark"
)

// Stage is the set of presentation elements the loader inserts: the surface window and the
// overlay window carrying the mark. Only the transition and the fallback pulse write to it.
type Stage interface {
	fallback.Stage

	// Style returns the last overlay style written.
	//
	// Returns:
	//   - common.OverlayStyle: the overlay style
	Style() common.OverlayStyle

	// Unmount removes the overlay and gives the surface window back to its owner at the
	// opacity it had when the stage was mounted.
	Unmount()
}

type stage struct {
	surface Window
	overlay Window
	mark    *mark.Mark
	logger  *slog.Logger

	iconSize common.Size
	origin   image.Point
	restore  float64
	style    common.OverlayStyle
	pulse    float64
	level    *image.NRGBA
	mounted  bool
}

var _ Stage = &stage{}

// StageBuilderOption is a functional option for configuring a Stage.
type StageBuilderOption func(*stage)

// WithOverlayWindow uses w as the overlay instead of opening one.
//
// Parameters:
//   - w: the overlay window
//
// Returns:
//   - StageBuilderOption: option function to apply
func WithOverlayWindow(w Window) StageBuilderOption {
	return func(s *stage) {
		s.overlay = w
	}
}

// WithLogger sets the logger.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - StageBuilderOption: option function to apply
func WithLogger(l *slog.Logger) StageBuilderOption {
	return func(s *stage) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStage mounts the mark over the surface window. The overlay is centred on the surface,
// fully visible and unblurred, and draws the mark as its content. The surface is made opaque
// until Unmount.
//
// Parameters:
//   - surface: the window the GPU path presents to
//   - m: the rendered mark
//   - options: functional options
//
// Returns:
//   - Stage: the mounted stage
//   - error: error if the overlay window could not be opened
func NewStage(surface Window, m *mark.Mark, options ...StageBuilderOption) (Stage, error) {
	s := &stage{
		surface: surface,
		mark:    m,
		logger:  slog.New(slog.DiscardHandler),
		style:   common.OverlayVisible,
		pulse:   1,
	}
	for _, opt := range options {
		opt(s)
	}

	sharp := m.Levels[0].Bounds()
	s.iconSize = common.Size{Width: sharp.Dx(), Height: sharp.Dy()}
	if s.overlay == nil {
		w, err := NewWindow(
			WithTitle("oxy overlay"),
			WithSize(s.iconSize.Width, s.iconSize.Height),
			WithOverlay(),
		)
		if err != nil {
			return nil, err
		}
		s.overlay = w
	}

	bounds := surface.Bounds()
	center := image.Pt((bounds.Min.X+bounds.Max.X)/2, (bounds.Min.Y+bounds.Max.Y)/2)
	s.origin = center.Sub(image.Pt(s.iconSize.Width/2, s.iconSize.Height/2))
	s.mounted = true

	s.restore = surface.Opacity()
	surface.SetOpacity(1)
	s.overlay.SetIcon(m.Levels[0])
	s.apply()
	s.logger.Debug("stage mounted", "surface", bounds, "overlay", s.origin)
	return s, nil
}

func (s *stage) SetSurfaceOpacity(opacity float64) {
	if !s.mounted {
		return
	}
	s.surface.SetOpacity(opacity)
}

func (s *stage) SetOverlayStyle(style common.OverlayStyle) {
	s.style = style
	s.apply()
}

func (s *stage) SetPulse(level float64) {
	s.pulse = common.Clamp(level, 0, 1)
	s.apply()
}

func (s *stage) Style() common.OverlayStyle {
	return s.style
}

// apply pushes the style to the overlay. The content is redrawn only when the blur level
// changes; opacity goes through the window so the mark pixels stay opaque.
func (s *stage) apply() {
	if !s.mounted {
		return
	}
	if level := s.mark.Level(s.style.Blur); level != s.level {
		s.level = level
		s.overlay.SetContent(s.mark.Frame(common.OverlayStyle{Opacity: 1, Blur: s.style.Blur}, s.iconSize))
	}
	s.overlay.SetOpacity(s.style.Opacity * s.pulse)
	s.overlay.SetPosition(s.origin.X+int(math.Round(s.style.OffsetX)), s.origin.Y)
}

func (s *stage) Unmount() {
	if !s.mounted {
		return
	}
	s.mounted = false
	if err := s.overlay.Close(); err != nil {
		s.logger.Warn("overlay close failed", "err", err)
	}
	s.surface.SetOpacity(s.restore)
}
