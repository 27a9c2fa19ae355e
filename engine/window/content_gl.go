package window

import (
	"fmt"
	"image"
	"image/draw"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const contentVertexSource = `#version 330 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aUV;
out vec2 uv;
void main() {
	uv = aUV;
	gl_Position = vec4(aPos * 2.0 - 1.0, 0.0, 1.0);
}
` + "\x00"

// The upload is straight alpha; the transparent framebuffer is composited premultiplied.
const contentFragmentSource = `#version 330 core
in vec2 uv;
out vec4 color;
uniform sampler2D content;
void main() {
	vec4 c = texture(content, uv);
	color = vec4(c.rgb * c.a, c.a);
}
` + "\x00"

// glReady is set once go-gl has loaded its function pointers. It needs a current context.
var glReady bool

// glContent draws one image over the whole client area of a window created with an
// OpenGL context.
type glContent struct {
	program uint32
	vao     uint32
	vbo     uint32
	texture uint32
	last    *image.NRGBA
}

// newGLContent builds the quad, program and texture in win's context.
//
// go-gl/gl: https://pkg.go.dev/github.com/go-gl/gl/v3.3-core/gl
func newGLContent(win *glfw.Window) (*glContent, error) {
	win.MakeContextCurrent()
	if !glReady {
		if err := gl.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize OpenGL: %v", err)
		}
		glReady = true
	}
	glfw.SwapInterval(0)

	program, err := linkContentProgram()
	if err != nil {
		return nil, err
	}
	c := &glContent{program: program}

	// x, y, u, v with v flipped so row 0 of the image is the top of the window.
	vertices := []float32{
		0, 0, 0, 1,
		1, 0, 1, 1,
		1, 1, 1, 0,
		0, 0, 0, 1,
		1, 1, 1, 0,
		0, 1, 0, 0,
	}
	gl.GenVertexArrays(1, &c.vao)
	gl.GenBuffers(1, &c.vbo)
	gl.BindVertexArray(c.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, c.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(2*4))
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	gl.GenTextures(1, &c.texture)
	gl.BindTexture(gl.TEXTURE_2D, c.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.UseProgram(c.program)
	gl.Uniform1i(gl.GetUniformLocation(c.program, gl.Str("content\x00")), 0)
	gl.UseProgram(0)
	return c, nil
}

func compileContentShader(source string, kind uint32) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile content shader: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func linkContentProgram() (uint32, error) {
	vs, err := compileContentShader(contentVertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vs)
	fs, err := compileContentShader(contentFragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link content program: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

// toNRGBA returns img as a tightly packed NRGBA image with its origin at (0, 0).
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Rect, img, b.Min, draw.Src)
	return n
}

// upload replaces the texture. A nil image clears the content.
func (c *glContent) upload(win *glfw.Window, img image.Image) {
	win.MakeContextCurrent()
	if img == nil {
		c.last = nil
		return
	}
	c.last = toNRGBA(img)
	gl.BindTexture(gl.TEXTURE_2D, c.texture)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(gl.RGBA8), int32(c.last.Rect.Dx()), int32(c.last.Rect.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(c.last.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// draw clears to transparent and, if there is content, stretches it over the viewport.
func (c *glContent) draw(win *glfw.Window) {
	win.MakeContextCurrent()
	width, height := win.GetFramebufferSize()
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	if c.last != nil {
		gl.UseProgram(c.program)
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, c.texture)
		gl.BindVertexArray(c.vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		gl.BindVertexArray(0)
		gl.BindTexture(gl.TEXTURE_2D, 0)
		gl.UseProgram(0)
	}
	win.SwapBuffers()
}

func (c *glContent) release(win *glfw.Window) {
	win.MakeContextCurrent()
	gl.DeleteTextures(1, &c.texture)
	gl.DeleteBuffers(1, &c.vbo)
	gl.DeleteVertexArrays(1, &c.vao)
	gl.DeleteProgram(c.program)
	glfw.DetachCurrentContext()
}
