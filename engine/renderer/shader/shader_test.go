package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splash/engine/renderer/renderertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptAll(string) error { return nil }

func TestAssembleOrder(t *testing.T) {
	src, err := Assemble("fn lib() {}", "fn mainImage(fragCoord: vec2<f32>) -> vec4<f32> { return vec4<f32>(1.0); }", []string{"iChannel0", "iChannel1"})
	require.NoError(t, err)

	uniforms := strings.Index(src, "var<uniform> uniforms: FrameUniforms;")
	ch0 := strings.Index(src, "@group(0) @binding(2) var iChannel0: texture_2d<f32>;")
	ch1 := strings.Index(src, "@group(0) @binding(3) var iChannel1: texture_2d<f32>;")
	lib := strings.Index(src, "fn lib()")
	body := strings.Index(src, "fn mainImage(")
	entry := strings.Index(src, "@fragment")

	for _, i := range []int{uniforms, ch0, ch1, lib, body, entry} {
		require.GreaterOrEqual(t, i, 0)
	}
	assert.Less(t, uniforms, ch0)
	assert.Less(t, ch0, ch1)
	assert.Less(t, ch1, lib)
	assert.Less(t, lib, body)
	assert.Less(t, body, entry)
	assert.Contains(t, src, "return mainImage(position.xy);")
}

func TestAssembleRejectsBadSamplers(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{"too many", []string{"a", "b", "c"}},
		{"empty", []string{""}},
		{"not identifier", []string{"1abc"}},
		{"duplicate", []string{"iChannel0", "iChannel0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble("", "", tt.names)
			assert.Error(t, err)
		})
	}
}

func TestAssembleNoSamplers(t *testing.T) {
	src, err := Assemble("", "", nil)
	require.NoError(t, err)
	assert.NotContains(t, src, "texture_2d")
}

func TestCompileDescriptor(t *testing.T) {
	b := renderertest.New(common.Size{Width: 8, Height: 8})
	c := NewCompiler(b, WithValidator(acceptAll))

	pass, ok := DefaultSources().Pass(PassImage)
	require.True(t, ok)
	prog, err := c.Compile(VertexSource, CommonSource, pass)
	require.NoError(t, err)

	desc := prog.(*renderertest.Program).Descriptor()
	assert.Equal(t, PassImage, desc.Label)
	assert.Equal(t, 2, desc.SamplerCount)
	assert.Equal(t, renderer.OutputSurface, desc.Output)
	assert.Equal(t, "vs_main", desc.VertexEntryPoint)
	assert.Equal(t, "fs_main", desc.FragmentEntryPoint)
	assert.Contains(t, desc.FragmentSource, "fn hash_u32")
	assert.Contains(t, desc.FragmentSource, "const BLOOM")
}

func TestCompileValidationFailure(t *testing.T) {
	b := renderertest.New(common.Size{Width: 8, Height: 8})
	c := NewCompiler(b, WithValidator(func(src string) error {
		if strings.Contains(src, "broken") {
			return errors.New("1:1 unexpected token")
		}
		return nil
	}))

	prog, err := c.Compile(VertexSource, CommonSource, Pass{Name: "bad", Body: "broken", Samplers: []string{"iChannel0"}})
	assert.Nil(t, prog)
	ce, ok := AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, "bad", ce.Pass)
	assert.Equal(t, StageFragment, ce.Stage)
	assert.Equal(t, "1:1 unexpected token", ce.Diagnostics)
	assert.Equal(t, 0, b.LivePrograms())
}

func TestCompileLinkFailure(t *testing.T) {
	b := renderertest.New(common.Size{Width: 8, Height: 8})
	b.FailProgram = func(desc renderer.ProgramDescriptor) error {
		return errors.New("entry point fs_main not found")
	}
	c := NewCompiler(b, WithValidator(acceptAll))

	_, err := c.Compile(VertexSource, CommonSource, Pass{Name: PassA, Body: PassASource})
	ce, ok := AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, StageLink, ce.Stage)
	assert.Contains(t, ce.Error(), "entry point fs_main not found")
}

func TestCompileAll(t *testing.T) {
	b := renderertest.New(common.Size{Width: 8, Height: 8})
	programs, err := NewCompiler(b, WithValidator(acceptAll)).CompileAll(DefaultSources())
	require.NoError(t, err)
	assert.Len(t, programs, 3)
	for _, name := range []string{PassA, PassB, PassImage} {
		assert.NotNil(t, programs[name], name)
	}
	assert.Equal(t, 3, b.LivePrograms())
}

func TestCompileAllOneBrokenPassFailsAll(t *testing.T) {
	b := renderertest.New(common.Size{Width: 8, Height: 8})
	c := NewCompiler(b, WithValidator(func(src string) error {
		if strings.Contains(src, "const BLOOM") {
			return errors.New("unresolved identifier")
		}
		return nil
	}))

	programs, err := c.CompileAll(DefaultSources())
	assert.Nil(t, programs)
	ce, ok := AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, PassImage, ce.Pass)
	assert.Equal(t, 0, b.LivePrograms(), "programs linked before the failure must be released")
}

func TestCompileAllDuplicatePass(t *testing.T) {
	b := renderertest.New(common.Size{Width: 8, Height: 8})
	src := DefaultSources()
	src.Passes = append(src.Passes, src.Passes[0])

	_, err := NewCompiler(b, WithValidator(acceptAll)).CompileAll(src)
	ce, ok := AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, PassA, ce.Pass)
	assert.Equal(t, 0, b.LivePrograms())
}

func TestNagaValidatorRejectsGarbage(t *testing.T) {
	assert.Error(t, NagaValidator("fn main( {"))
}

func TestEmbeddedSourcesValidate(t *testing.T) {
	src := DefaultSources()
	require.NoError(t, NagaValidator(src.Vertex), "vertex")

	for _, p := range src.Passes {
		t.Run(p.Name, func(t *testing.T) {
			fragment, err := Assemble(src.Common, p.Body, p.Samplers)
			require.NoError(t, err)
			assert.NoError(t, NagaValidator(fragment))
		})
	}
}

func TestCompileAllWithNaga(t *testing.T) {
	b := renderertest.New(common.Size{Width: 64, Height: 64})
	programs, err := NewCompiler(b, WithValidator(NagaValidator)).CompileAll(DefaultSources())
	require.NoError(t, err)
	assert.Len(t, programs, 3)
}
