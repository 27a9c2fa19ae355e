package renderer

import (
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-splash/common"
)

// Capability is the closed result of the capability tier check.
// It is either CapabilitySupported or CapabilityUnsupported.
type Capability interface {
	isCapability()
}

// CapabilitySupported reports that the context meets the required tier.
type CapabilitySupported struct{}

// CapabilityUnsupported reports that the context does not meet the required tier.
type CapabilityUnsupported struct {
	// Reason is a human readable description of the missing capability.
	Reason string
}

func (CapabilitySupported) isCapability() {}
func (CapabilityUnsupported) isCapability() {}

// Supported reports whether c is CapabilitySupported.
func Supported(c Capability) bool {
	_, ok := c.(CapabilitySupported)
	return ok
}

// DeviceLimits is the subset of adapter limits the capability tier depends on.
type DeviceLimits struct {
	MaxTextureDimension2D            uint32
	MaxBindGroups                    uint32
	MaxSampledTexturesPerShaderStage uint32
	MaxSamplersPerShaderStage        uint32
	MaxUniformBufferBindingSize      uint64
	// Software is true when the adapter is a CPU fallback implementation.
	Software bool
}

// Requirements is the capability tier the render pipeline needs.
type Requirements struct {
	// Surface is the initial surface size; full resolution targets are created at this size.
	Surface common.Size
	// SampledTextures is the maximum number of input textures any pass binds.
	SampledTextures uint32
	// AllowSoftware permits CPU fallback adapters.
	AllowSoftware bool
}

// DefaultRequirements returns the tier needed by the three-pass pipeline at the given surface size.
//
// Parameters:
//   - surface: the initial surface size
//
// Returns:
//   - Requirements: the requirements
func DefaultRequirements(surface common.Size) Requirements {
	return Requirements{Surface: surface, SampledTextures: 2}
}

// Probe checks limits against the requirements without touching the GPU.
//
// Parameters:
//   - limits: the adapter limits
//   - req: the required tier
//
// Returns:
//   - Capability: CapabilitySupported, or CapabilityUnsupported naming the first unmet requirement
func Probe(limits DeviceLimits, req Requirements) Capability {
	uniformSize := uint64(unsafe.Sizeof(common.FrameUniforms{}))
	longest := uint32(max(req.Surface.Width, req.Surface.Height, 1))

	switch {
	case limits.Software && !req.AllowSoftware:
		return CapabilityUnsupported{Reason: "adapter is not hardware accelerated"}
	case limits.MaxBindGroups < 1:
		return CapabilityUnsupported{Reason: "no bind groups available"}
	case limits.MaxSampledTexturesPerShaderStage < req.SampledTextures:
		return CapabilityUnsupported{Reason: fmt.Sprintf("need %d sampled textures per stage, have %d", req.SampledTextures, limits.MaxSampledTexturesPerShaderStage)}
	case limits.MaxSamplersPerShaderStage < 1:
		return CapabilityUnsupported{Reason: "no samplers available"}
	case limits.MaxUniformBufferBindingSize < uniformSize:
		return CapabilityUnsupported{Reason: fmt.Sprintf("uniform binding size %d below %d", limits.MaxUniformBufferBindingSize, uniformSize)}
	case limits.MaxTextureDimension2D < longest:
		return CapabilityUnsupported{Reason: fmt.Sprintf("surface dimension %d exceeds max texture dimension %d", longest, limits.MaxTextureDimension2D)}
	}
	return CapabilitySupported{}
}
