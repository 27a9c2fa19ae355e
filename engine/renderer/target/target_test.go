package target

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/renderertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeOf(t *testing.T) {
	tests := []struct {
		full    common.Size
		reduced common.Size
	}{
		{common.Size{Width: 1920, Height: 1080}, common.Size{Width: 640, Height: 360}},
		{common.Size{Width: 800, Height: 600}, common.Size{Width: 266, Height: 200}},
		{common.Size{Width: 2, Height: 1}, common.Size{Width: 1, Height: 1}},
		{common.Size{Width: 0, Height: 0}, common.Size{Width: 1, Height: 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.reduced, SizeOf(Reduced, tt.full))
		assert.Equal(t, tt.full.AtLeastOne(), SizeOf(Working, tt.full))
		assert.Equal(t, tt.full.AtLeastOne(), SizeOf(History, tt.full))
	}
}

func TestBuild(t *testing.T) {
	b := renderertest.New(common.Size{Width: 1920, Height: 1080})
	s, err := Build(b, common.Size{Width: 1920, Height: 1080})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), s.Generation())
	assert.Equal(t, common.Size{Width: 1920, Height: 1080}, s.Working().Size())
	assert.Equal(t, common.Size{Width: 1920, Height: 1080}, s.History().Size())
	assert.Equal(t, common.Size{Width: 640, Height: 360}, s.Reduced().Size())
	assert.Equal(t, 3, b.LiveTargets())

	for _, name := range Names {
		tgt := s.Target(name).(*renderertest.Target)
		assert.Empty(t, tgt.Content(), "%s must start blank", name)
	}
}

func TestRebuildReleasesPreviousGeneration(t *testing.T) {
	b := renderertest.New(common.Size{Width: 1920, Height: 1080})
	s, err := Build(b, common.Size{Width: 1920, Height: 1080})
	require.NoError(t, err)

	old := []renderer.Target{s.Working(), s.History(), s.Reduced()}
	require.NoError(t, s.Rebuild(common.Size{Width: 800, Height: 600}))

	for _, o := range old {
		assert.True(t, o.Released(), "%s from the previous generation must be released", o.Label())
	}
	assert.Equal(t, uint64(2), s.Generation())
	assert.Equal(t, common.Size{Width: 800, Height: 600}, s.Working().Size())
	assert.Equal(t, common.Size{Width: 266, Height: 200}, s.Reduced().Size())
	assert.Equal(t, 3, b.LiveTargets())
}

func TestRepeatedRebuildDoesNotLeak(t *testing.T) {
	b := renderertest.New(common.Size{Width: 640, Height: 480})
	s, err := Build(b, common.Size{Width: 640, Height: 480})
	require.NoError(t, err)

	sizes := []common.Size{{Width: 1, Height: 1}, {Width: 0, Height: 300}, {Width: 1280, Height: 720}, {Width: 5, Height: 2}}
	for i := 0; i < 25; i++ {
		sz := sizes[i%len(sizes)]
		require.NoError(t, s.Rebuild(sz))
		assert.Equal(t, 3, b.LiveTargets())
		for _, name := range Names {
			assert.Equal(t, SizeOf(name, sz), s.Target(name).Size())
		}
	}
	assert.Equal(t, 3*26, b.TargetsCreated())
}

func TestBuildFailureReleasesPartialSet(t *testing.T) {
	b := renderertest.New(common.Size{Width: 640, Height: 480})
	b.FailTarget = func(label string, _ common.Size) bool { return label == Reduced }

	s, err := Build(b, common.Size{Width: 640, Height: 480})
	assert.Nil(t, s)
	require.ErrorIs(t, err, renderer.ErrFramebufferIncomplete)
	assert.Contains(t, err.Error(), Reduced)
	assert.Equal(t, 0, b.LiveTargets())
}

func TestReleaseIsIdempotent(t *testing.T) {
	b := renderertest.New(common.Size{Width: 64, Height: 64})
	s, err := Build(b, common.Size{Width: 64, Height: 64})
	require.NoError(t, err)

	s.Release()
	s.Release()
	assert.Equal(t, 0, b.LiveTargets())
	assert.Nil(t, s.Working())
}

func TestFailedRebuildCanBeRetriedAtSameSize(t *testing.T) {
	b := renderertest.New(common.Size{Width: 640, Height: 480})
	s, err := Build(b, common.Size{Width: 640, Height: 480})
	require.NoError(t, err)

	b.FailTarget = func(label string, _ common.Size) bool { return label == History }
	require.ErrorIs(t, s.Rebuild(common.Size{Width: 640, Height: 480}), renderer.ErrFramebufferIncomplete)
	assert.Equal(t, common.Size{}, s.Size(), "a failed rebuild leaves no size behind")
	assert.Nil(t, s.Working())
	assert.Equal(t, 0, b.LiveTargets())

	b.FailTarget = nil
	require.NoError(t, s.Rebuild(common.Size{Width: 640, Height: 480}))
	assert.Equal(t, common.Size{Width: 640, Height: 480}, s.Size())
	assert.Equal(t, uint64(2), s.Generation())
	assert.Equal(t, 3, b.LiveTargets())
}
