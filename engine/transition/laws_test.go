package transition

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	d := 1500 * time.Millisecond
	assert.Equal(t, 0.0, Progress(-time.Second, d))
	assert.Equal(t, 0.0, Progress(0, d))
	assert.InDelta(t, 0.5, Progress(750*time.Millisecond, d), 1e-9)
	assert.Equal(t, 1.0, Progress(d, d))
	assert.Equal(t, 1.0, Progress(2*d, d))
	assert.Equal(t, 1.0, Progress(0, 0))
}

func TestSurfaceOpacityLaw(t *testing.T) {
	assert.Equal(t, 1.0, SurfaceOpacity(0))
	assert.InDelta(t, 0.5, SurfaceOpacity(0.3), 1e-9)
	assert.Equal(t, 0.0, SurfaceOpacity(0.6))
	assert.Equal(t, 0.0, SurfaceOpacity(0.8))
	assert.Equal(t, 0.0, SurfaceOpacity(1))

	prev := SurfaceOpacity(0)
	for i := 1; i <= 1000; i++ {
		o := SurfaceOpacity(float64(i) / 1000)
		assert.LessOrEqual(t, o, prev)
		assert.GreaterOrEqual(t, o, 0.0)
		prev = o
	}
}

func TestOverlayFadeLaw(t *testing.T) {
	for i := 0; i <= 400; i++ {
		p := float64(i) / 1000
		assert.Equal(t, common.OverlayVisible, OverlayStyle(p, DefaultMotion), "progress %v", p)
	}

	prev := 1.0
	for i := 400; i <= 1000; i++ {
		s := OverlayStyle(float64(i)/1000, DefaultMotion)
		assert.LessOrEqual(t, s.Opacity, prev)
		assert.GreaterOrEqual(t, s.Blur, 0.0)
		assert.LessOrEqual(t, s.Blur, DefaultMotion.MaxBlur+1e-9)
		assert.LessOrEqual(t, abs(s.OffsetX), DefaultMotion.Amplitude/4+1e-9)
		prev = s.Opacity
	}

	assert.Equal(t, common.OverlayGone, OverlayStyle(1, DefaultMotion))
	assert.InDelta(t, 0.5, OverlayStyle(0.7, DefaultMotion).Opacity, 1e-9)
}

func TestOverlayConvergesToCleanState(t *testing.T) {
	s := OverlayStyle(0.9999, DefaultMotion)
	assert.InDelta(t, 0, s.Opacity, 1e-3)
	assert.InDelta(t, 0, s.OffsetX, 1e-2)
	assert.InDelta(t, 0, s.Blur, 1e-2)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
