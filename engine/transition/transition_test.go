package transition

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/loop/looptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stage struct {
	opacity []float64
	overlay []common.OverlayStyle
}

func (s *stage) SetSurfaceOpacity(o float64) { s.opacity = append(s.opacity, o) }
func (s *stage) SetOverlayStyle(st common.OverlayStyle) { s.overlay = append(s.overlay, st) }

func TestWaitsForDelay(t *testing.T) {
	l := looptest.New(time.Unix(0, 0))
	st := &stage{}
	c := New(l, st, nil)
	c.Start()

	l.Advance(DefaultDelay - time.Millisecond)
	assert.Equal(t, StateWaiting, c.State())
	assert.Empty(t, st.opacity)

	l.Advance(time.Millisecond)
	assert.Equal(t, StateFading, c.State())
	require.Len(t, st.opacity, 1)
	assert.Equal(t, 1.0, st.opacity[0])
}

func TestFadeCompletesOnceOnSchedule(t *testing.T) {
	start := time.Unix(0, 0)
	l := looptest.New(start)
	st := &stage{}
	var doneAt []time.Duration
	c := New(l, st, func() { doneAt = append(doneAt, l.Now().Sub(start)) })
	c.Start()
	c.Start()

	l.Advance(10 * time.Second)

	require.Len(t, doneAt, 1)
	want := DefaultDelay + DefaultFadeDuration
	assert.GreaterOrEqual(t, doneAt[0], want)
	assert.LessOrEqual(t, doneAt[0], want+DefaultFadeInterval)
	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, 1.0, c.Progress())
	assert.Equal(t, 0, l.ActiveTimers())

	assert.Equal(t, 0.0, st.opacity[len(st.opacity)-1])
	assert.Equal(t, common.OverlayGone, st.overlay[len(st.overlay)-1])
	for i := 1; i < len(st.opacity); i++ {
		assert.LessOrEqual(t, st.opacity[i], st.opacity[i-1])
	}
}

func TestCancelBeforeFade(t *testing.T) {
	l := looptest.New(time.Unix(0, 0))
	done := 0
	c := New(l, &stage{}, func() { done++ })
	c.Start()
	l.Advance(time.Second)
	c.Cancel()
	l.Advance(10 * time.Second)

	assert.Equal(t, 0, done)
	assert.Equal(t, StateWaiting, c.State())
	assert.Equal(t, 0, l.ActiveTimers())
}

func TestCancelMidFade(t *testing.T) {
	l := looptest.New(time.Unix(0, 0))
	done := 0
	c := New(l, &stage{}, func() { done++ }, WithDelay(0), WithFadeDuration(time.Second))
	c.Start()
	l.Advance(500 * time.Millisecond)
	require.Equal(t, StateFading, c.State())

	c.Cancel()
	c.Cancel()
	l.Advance(5 * time.Second)
	assert.Equal(t, 0, done)
	assert.Equal(t, 0, l.ActiveTimers())
}

func TestCustomTimingAndStateHook(t *testing.T) {
	l := looptest.New(time.Unix(0, 0))
	var states []State
	c := New(l, &stage{}, nil,
		WithDelay(100*time.Millisecond),
		WithFadeDuration(50*time.Millisecond),
		WithFadeInterval(10*time.Millisecond),
		WithOnStateChange(func(s State) { states = append(states, s) }))
	c.Start()
	l.Advance(150 * time.Millisecond)

	assert.Equal(t, []State{StateFading, StateDone}, states)
}

func TestZeroFadeDurationFinishesOnFirstTick(t *testing.T) {
	l := looptest.New(time.Unix(0, 0))
	done := 0
	c := New(l, &stage{}, func() { done++ }, WithDelay(0), WithFadeDuration(0))
	c.Start()
	l.Advance(DefaultFadeInterval)
	assert.Equal(t, 1, done)
	assert.Equal(t, StateDone, c.State())
}
