package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/stretchr/testify/assert"
)

func goodLimits() DeviceLimits {
	return DeviceLimits{
		MaxTextureDimension2D:            8192,
		MaxBindGroups:                    4,
		MaxSampledTexturesPerShaderStage: 16,
		MaxSamplersPerShaderStage:        16,
		MaxUniformBufferBindingSize:      65536,
	}
}

func TestProbeSupported(t *testing.T) {
	c := Probe(goodLimits(), DefaultRequirements(common.Size{Width: 1920, Height: 1080}))
	assert.True(t, Supported(c))
	assert.IsType(t, CapabilitySupported{}, c)
}

func TestProbeUnsupported(t *testing.T) {
	req := DefaultRequirements(common.Size{Width: 1920, Height: 1080})
	tests := []struct {
		name   string
		mutate func(*DeviceLimits)
		reason string
	}{
		{"software adapter", func(l *DeviceLimits) { l.Software = true }, "not hardware accelerated"},
		{"no bind groups", func(l *DeviceLimits) { l.MaxBindGroups = 0 }, "bind groups"},
		{"one sampled texture", func(l *DeviceLimits) { l.MaxSampledTexturesPerShaderStage = 1 }, "sampled textures"},
		{"no samplers", func(l *DeviceLimits) { l.MaxSamplersPerShaderStage = 0 }, "samplers"},
		{"tiny uniform", func(l *DeviceLimits) { l.MaxUniformBufferBindingSize = 8 }, "uniform binding size"},
		{"small textures", func(l *DeviceLimits) { l.MaxTextureDimension2D = 1024 }, "max texture dimension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := goodLimits()
			tt.mutate(&limits)
			c := Probe(limits, req)
			assert.False(t, Supported(c))
			u, ok := c.(CapabilityUnsupported)
			if assert.True(t, ok) {
				assert.Contains(t, u.Reason, tt.reason)
			}
		})
	}
}

func TestProbeAllowSoftware(t *testing.T) {
	limits := goodLimits()
	limits.Software = true
	req := DefaultRequirements(common.Size{Width: 640, Height: 480})
	req.AllowSoftware = true
	assert.True(t, Supported(Probe(limits, req)))
}
