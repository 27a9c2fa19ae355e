package fallback

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/loop/looptest"
	"github.com/Carmen-Shannon/oxy-splash/engine/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stage struct {
	pulses  []float64
	opacity []float64
	overlay []common.OverlayStyle
}

func (s *stage) SetPulse(level float64) { s.pulses = append(s.pulses, level) }
func (s *stage) SetSurfaceOpacity(o float64) { s.opacity = append(s.opacity, o) }
func (s *stage) SetOverlayStyle(st common.OverlayStyle) { s.overlay = append(s.overlay, st) }

func TestPulseLevel(t *testing.T) {
	period := time.Second
	assert.InDelta(t, 1.0, PulseLevel(0, period, 0.35), 1e-9)
	assert.InDelta(t, 0.35, PulseLevel(period/2, period, 0.35), 1e-9)
	assert.InDelta(t, 1.0, PulseLevel(period, period, 0.35), 1e-9)
	assert.Equal(t, 1.0, PulseLevel(123*time.Millisecond, 0, 0.35))

	for i := 0; i < 200; i++ {
		l := PulseLevel(time.Duration(i)*7*time.Millisecond, period, 0.35)
		assert.GreaterOrEqual(t, l, 0.35-1e-9)
		assert.LessOrEqual(t, l, 1.0+1e-9)
	}
}

func TestFallbackConvergesOnSameTransition(t *testing.T) {
	start := time.Unix(0, 0)
	l := looptest.New(start)
	st := &stage{}
	var doneAt []time.Duration
	p := New(l, st, func() { doneAt = append(doneAt, l.Now().Sub(start)) })
	p.Start()
	p.Start()

	l.Advance(transition.DefaultDelay - time.Millisecond)
	assert.Equal(t, transition.StateWaiting, p.Transition().State())
	pulses := len(st.pulses)
	assert.Greater(t, pulses, 300, "pulse runs on the 16 ms cadence while waiting")
	assert.Empty(t, st.opacity)

	l.Advance(5 * time.Second)
	require.Len(t, doneAt, 1)
	want := transition.DefaultDelay + transition.DefaultFadeDuration
	assert.GreaterOrEqual(t, doneAt[0], want)
	assert.LessOrEqual(t, doneAt[0], want+transition.DefaultFadeInterval)

	assert.Equal(t, pulses+1, len(st.pulses), "pulse stops when the fade begins")
	assert.Equal(t, 1.0, st.pulses[len(st.pulses)-1])
	assert.Equal(t, common.OverlayGone, st.overlay[len(st.overlay)-1])
	assert.Equal(t, 0, l.ActiveTimers())
}

func TestTransitionOptionsPassThrough(t *testing.T) {
	l := looptest.New(time.Unix(0, 0))
	done := 0
	p := New(l, &stage{}, func() { done++ },
		WithTransition(transition.WithDelay(100*time.Millisecond), transition.WithFadeDuration(100*time.Millisecond)),
		WithPulsePeriod(50*time.Millisecond),
		WithMinLevel(0.5))
	p.Start()
	l.Advance(250 * time.Millisecond)
	assert.Equal(t, 1, done)
}

func TestCancel(t *testing.T) {
	l := looptest.New(time.Unix(0, 0))
	done := 0
	p := New(l, &stage{}, func() { done++ })
	p.Start()
	l.Advance(time.Second)
	p.Cancel()
	l.Advance(10 * time.Second)
	assert.Equal(t, 0, done)
	assert.Equal(t, 0, l.ActiveTimers())
}

func TestPulseResetsOnlyWhenFadeBegins(t *testing.T) {
	l := looptest.New(time.Unix(0, 0))
	st := &stage{}
	p := New(l, st, func() {},
		WithTransition(transition.WithDelay(100*time.Millisecond), transition.WithFadeDuration(100*time.Millisecond)))
	p.Start()

	l.Advance(100 * time.Millisecond)
	require.Equal(t, transition.StateFading, p.Transition().State())
	atFade := len(st.pulses)
	assert.Equal(t, 1.0, st.pulses[atFade-1])

	l.Advance(time.Second)
	require.Equal(t, transition.StateDone, p.Transition().State())
	assert.Len(t, st.pulses, atFade, "finishing the fade writes no further pulse")
}
