package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSizeClamping(t *testing.T) {
	assert.Equal(t, Size{Width: 1, Height: 1}, Size{}.AtLeastOne())
	assert.Equal(t, Size{Width: 800, Height: 1}, Size{Width: 800, Height: -4}.AtLeastOne())

	assert.Equal(t, Size{Width: 640, Height: 360}, Size{Width: 1920, Height: 1080}.DividedBy(3))
	assert.Equal(t, Size{Width: 266, Height: 200}, Size{Width: 800, Height: 600}.DividedBy(3))
	assert.Equal(t, Size{Width: 1, Height: 1}, Size{Width: 2, Height: 1}.DividedBy(3))
}

func TestFrameUniformsLayout(t *testing.T) {
	u := FrameUniforms{Resolution: [2]float32{800, 600}, Time: 1.5, Frame: 7}
	assert.Len(t, StructToBytes(&u), 16)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.Equal(t, float32(0.25), Seconds(250*time.Millisecond))
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
