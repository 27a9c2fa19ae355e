package transition

import (
	"math"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/common"
)

const (
	// SurfaceFadeEnd is the progress at which the surface is fully transparent.
	SurfaceFadeEnd = 0.6
	// OverlayFadeStart is the progress after which the overlay mark starts to fade.
	OverlayFadeStart = 0.4
)

// Motion shapes the overlay mark's exit.
type Motion struct {
	// Amplitude is the peak horizontal offset envelope in pixels.
	Amplitude float64
	// Cycles is the number of oscillations over the overlay fade.
	Cycles float64
	// MaxBlur is the peak blur envelope in pixels.
	MaxBlur float64
}

// DefaultMotion is the overlay exit used unless overridden.
var DefaultMotion = Motion{Amplitude: 24, Cycles: 2, MaxBlur: 12}

// Progress returns the fade progress at elapsed time since the fade started, clamped to [0, 1].
// A non-positive duration completes immediately.
//
// Parameters:
//   - elapsed: the time since the fade started
//   - duration: the fade duration
//
// Returns:
//   - float64: the progress in [0, 1]
func Progress(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		return 1
	}
	return common.Clamp(float64(elapsed)/float64(duration), 0, 1)
}

// SurfaceOpacity returns the surface opacity at progress: 1 - min(progress/0.6, 1).
//
// Parameters:
//   - progress: the fade progress in [0, 1]
//
// Returns:
//   - float64: the opacity in [0, 1]
func SurfaceOpacity(progress float64) float64 {
	return 1 - min(common.Clamp(progress, 0, 1)/SurfaceFadeEnd, 1)
}

// OverlayStyle returns the overlay mark style at progress. The mark is unchanged up to
// OverlayFadeStart, then fades linearly over its local fraction while the offset oscillates
// and the blur swells and settles, both vanishing at progress 1.
//
// Parameters:
//   - progress: the fade progress in [0, 1]
//   - m: the exit motion
//
// Returns:
//   - common.OverlayStyle: the style
func OverlayStyle(progress float64, m Motion) common.OverlayStyle {
	progress = common.Clamp(progress, 0, 1)
	if progress <= OverlayFadeStart {
		return common.OverlayVisible
	}
	if progress >= 1 {
		return common.OverlayGone
	}

	l := (progress - OverlayFadeStart) / (1 - OverlayFadeStart)
	env := l * (1 - l)
	return common.OverlayStyle{
		Opacity: 1 - l,
		OffsetX: m.Amplitude * env * math.Sin(2*math.Pi*m.Cycles*l),
		Blur:    4 * m.MaxBlur * env,
	}
}
