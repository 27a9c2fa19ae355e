package shader

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-splash/engine/renderer"
)

//go:embed assets/vertex.wgsl
var VertexSource string

//go:embed assets/common.wgsl
var CommonSource string

//go:embed assets/pass_a.wgsl
var PassASource string

//go:embed assets/pass_b.wgsl
var PassBSource string

//go:embed assets/image.wgsl
var ImageSource string

const (
	// PassA is the generator pass: history -> working.
	PassA = "pass_a"
	// PassB is the downsample pass: working -> reduced.
	PassB = "pass_b"
	// PassImage is the composite pass: working + reduced -> surface.
	PassImage = "image"
)

// MaxSamplers is the number of input texture slots a pass may bind.
const MaxSamplers = 2

// UniformBlock is the declaration prepended to every fragment unit. It mirrors common.FrameUniforms
// and the layout built by the backend: binding 0 uniforms, binding 1 the shared sampler, textures from 2.
const UniformBlock = `struct FrameUniforms {
    resolution: vec2<f32>,
    time: f32,
    frame: u32,
};

@group(0) @binding(0) var<uniform> uniforms: FrameUniforms;
@group(0) @binding(1) var input_sampler: sampler;
`

// entryPoint forwards the raster coordinate into the pass body.
const entryPoint = `@fragment
fn fs_main(@builtin(position) position: vec4<f32>) -> @location(0) vec4<f32> {
    return mainImage(position.xy);
}
`

// Stage names the step of compilation a CompileError came from.
type Stage string

const (
	StageAssemble Stage = "assemble"
	StageVertex   Stage = "vertex"
	StageFragment Stage = "fragment"
	StageLink     Stage = "link"
)

// CompileError reports a failed pass. No program is produced alongside it.
type CompileError struct {
	Pass        string
	Stage       Stage
	Diagnostics string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader: %s %s: %s", e.Pass, e.Stage, e.Diagnostics)
}

// Pass is the fragment body of one pass and the input names it samples.
type Pass struct {
	// Name is the pass name, used as the program label.
	Name string
	// Body is the pass WGSL. It must define fn mainImage(fragCoord: vec2<f32>) -> vec4<f32>.
	Body string
	// Samplers are the texture names bound to input slots 0..n-1.
	Samplers []string
	// Output selects whether the pass writes a target or the surface.
	Output renderer.OutputKind
}

// Sources is the complete source set for the three-pass pipeline.
type Sources struct {
	Vertex string
	Common string
	Passes []Pass
}

// DefaultSources returns the embedded pipeline sources.
func DefaultSources() Sources {
	return Sources{
		Vertex: VertexSource,
		Common: CommonSource,
		Passes: []Pass{
			{Name: PassA, Body: PassASource, Samplers: []string{"iChannel0"}, Output: renderer.OutputTarget},
			{Name: PassB, Body: PassBSource, Samplers: []string{"iChannel0"}, Output: renderer.OutputTarget},
			{Name: PassImage, Body: ImageSource, Samplers: []string{"iChannel0", "iChannel1"}, Output: renderer.OutputSurface},
		},
	}
}

// Pass returns the pass with the given name.
func (s Sources) Pass(name string) (Pass, bool) {
	i := slices.IndexFunc(s.Passes, func(p Pass) bool { return p.Name == name })
	if i < 0 {
		return Pass{}, false
	}
	return s.Passes[i], true
}

// Assemble concatenates the uniform block, one texture declaration per sampler name, the
// common library, the pass body and the fragment entry point into a single WGSL unit.
//
// Parameters:
//   - common: the shared WGSL library
//   - body: the pass body defining mainImage
//   - samplerNames: the texture names bound to input slots in order
//
// Returns:
//   - string: the assembled WGSL source
//   - error: an error if a sampler name is empty, duplicated, not an identifier, or there are more than MaxSamplers
func Assemble(common, body string, samplerNames []string) (string, error) {
	if len(samplerNames) > MaxSamplers {
		return "", fmt.Errorf("%d samplers requested, at most %d supported", len(samplerNames), MaxSamplers)
	}
	for i, name := range samplerNames {
		if !isIdent(name) {
			return "", fmt.Errorf("sampler %d: %q is not an identifier", i, name)
		}
		if slices.Index(samplerNames, name) != i {
			return "", fmt.Errorf("sampler %d: %q declared twice", i, name)
		}
	}

	var b strings.Builder
	b.WriteString(UniformBlock)
	for i, name := range samplerNames {
		fmt.Fprintf(&b, "@group(0) @binding(%d) var %s: texture_2d<f32>;\n", renderer.FirstTextureBinding+i, name)
	}
	b.WriteString("\n")
	b.WriteString(common)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(entryPoint)
	return b.String(), nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
