// Package shader assembles, validates and links the WGSL programs of the three-pass pipeline.
//
// Every fragment unit is built the same way: the fixed uniform block, one texture declaration per
// input name, the shared common library, the pass body and a generated entry point. The unit is
// validated by naga before it is handed to the backend, so a broken body is reported with naga's
// diagnostics instead of an opaque pipeline creation failure.
package shader

import (
	"errors"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-splash/engine/renderer"
	"github.com/gogpu/naga"
)

// Validator checks a complete WGSL module and returns its diagnostics as an error.
type Validator func(source string) error

// NagaValidator validates source by compiling it with the naga front end.
func NagaValidator(source string) error {
	_, err := naga.Compile(source)
	return err
}

type compiler struct {
	backend  renderer.Backend
	validate Validator
	logger   *slog.Logger
}

// Compiler links pass sources into backend programs.
type Compiler interface {
	// Compile assembles and links one pass.
	//
	// Parameters:
	//   - vertexSource: the shared vertex stage
	//   - commonSource: the shared fragment library
	//   - pass: the pass body, input names and output kind
	//
	// Returns:
	//   - renderer.Program: the linked program, nil on failure
	//   - error: a *CompileError carrying the full diagnostic text
	Compile(vertexSource, commonSource string, pass Pass) (renderer.Program, error)

	// CompileAll compiles every pass of the source set. A single failed pass fails the whole
	// set and every program linked before it is released.
	//
	// Parameters:
	//   - sources: the complete source set
	//
	// Returns:
	//   - map[string]renderer.Program: the programs keyed by pass name, nil on failure
	//   - error: the first *CompileError
	CompileAll(sources Sources) (map[string]renderer.Program, error)
}

var _ Compiler = &compiler{}

// CompilerBuilderOption is a functional option applied to a Compiler during construction via NewCompiler.
type CompilerBuilderOption func(*compiler)

// WithValidator replaces the naga validator. A nil validator disables validation.
//
// Parameters:
//   - v: the validator
//
// Returns:
//   - CompilerBuilderOption: a function that applies the validator option to a Compiler
func WithValidator(v Validator) CompilerBuilderOption {
	return func(c *compiler) {
		c.validate = v
	}
}

// WithLogger sets the logger used for assembly diagnostics.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - CompilerBuilderOption: a function that applies the logger option to a Compiler
func WithLogger(l *slog.Logger) CompilerBuilderOption {
	return func(c *compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompiler creates a Compiler linking against the given backend.
//
// Parameters:
//   - backend: the backend programs are linked on
//   - options: variadic list of CompilerBuilderOption functions
//
// Returns:
//   - Compiler: the compiler
func NewCompiler(backend renderer.Backend, options ...CompilerBuilderOption) Compiler {
	c := &compiler{
		backend:  backend,
		validate: NagaValidator,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *compiler) Compile(vertexSource, commonSource string, pass Pass) (renderer.Program, error) {
	fragment, err := Assemble(commonSource, pass.Body, pass.Samplers)
	if err != nil {
		return nil, &CompileError{Pass: pass.Name, Stage: StageAssemble, Diagnostics: err.Error()}
	}
	c.logger.Debug("assembled fragment unit", "pass", pass.Name, "samplers", pass.Samplers, "bytes", len(fragment))

	if c.validate != nil {
		if err := c.validate(vertexSource); err != nil {
			return nil, &CompileError{Pass: pass.Name, Stage: StageVertex, Diagnostics: err.Error()}
		}
		if err := c.validate(fragment); err != nil {
			return nil, &CompileError{Pass: pass.Name, Stage: StageFragment, Diagnostics: err.Error()}
		}
	}

	prog, err := c.backend.CreateProgram(renderer.ProgramDescriptor{
		Label:              pass.Name,
		VertexSource:       vertexSource,
		VertexEntryPoint:   "vs_main",
		FragmentSource:     fragment,
		FragmentEntryPoint: "fs_main",
		SamplerCount:       len(pass.Samplers),
		Output:             pass.Output,
	})
	if err != nil {
		return nil, &CompileError{Pass: pass.Name, Stage: StageLink, Diagnostics: err.Error()}
	}
	return prog, nil
}

func (c *compiler) CompileAll(sources Sources) (map[string]renderer.Program, error) {
	if len(sources.Passes) == 0 {
		return nil, &CompileError{Stage: StageAssemble, Diagnostics: "no passes"}
	}

	programs := make(map[string]renderer.Program, len(sources.Passes))
	for _, pass := range sources.Passes {
		if _, dup := programs[pass.Name]; dup {
			releaseAll(programs)
			return nil, &CompileError{Pass: pass.Name, Stage: StageAssemble, Diagnostics: "duplicate pass name"}
		}
		prog, err := c.Compile(sources.Vertex, sources.Common, pass)
		if err != nil {
			releaseAll(programs)
			return nil, err
		}
		programs[pass.Name] = prog
	}
	return programs, nil
}

func releaseAll(programs map[string]renderer.Program) {
	for _, p := range programs {
		p.Release()
	}
}

// AsCompileError extracts a *CompileError from err.
//
// Parameters:
//   - err: the error to inspect
//
// Returns:
//   - *CompileError: the compile error, or nil
//   - bool: true if err wraps a *CompileError
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
