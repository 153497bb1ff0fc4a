// Package gpu defines the graphics device the engine renders through.
//
// All rendering code talks to a Device instead of calling OpenGL directly.
// GL is the production implementation; gputest provides a recording fake.
// A Device must only be used from the thread that owns the GL context.
package gpu

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// TextureTarget selects the binding point of a texture.
type TextureTarget int

const (
	Texture2D TextureTarget = iota
	TextureCubemap
)

// DepthFunc is the depth comparison used by the depth test.
type DepthFunc int

const (
	DepthLess DepthFunc = iota
	DepthLessEqual
)

// Filter is a texture minification/magnification filter.
type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

// Image is decoded pixel data ready for upload.
// Rows are tightly packed, Channels bytes per pixel.
type Image struct {
	Pixels   []byte
	Width    int
	Height   int
	Channels int
}

// Attrib describes one float vertex attribute inside an interleaved buffer.
type Attrib struct {
	Location uint32
	Size     int32 // components
	Offset   int   // in floats
}

// VertexArray is a VAO with its vertex and optional index buffer.
type VertexArray struct {
	VAO uint32
	VBO uint32
	EBO uint32
}

// FramebufferObjects are the handles making up an offscreen render target.
type FramebufferObjects struct {
	FBO          uint32
	Color        uint32
	DepthStencil uint32
}

// Device is the subset of the graphics API used by the engine.
type Device interface {
	// Programs
	CompileProgram(vertexSrc, fragmentSrc string) (uint32, error)
	DeleteProgram(program uint32)
	UseProgram(program uint32)
	UniformLocation(program uint32, name string) int32
	SetUniformInt(location int32, v int32)
	SetUniformFloat(location int32, v float32)
	SetUniformVec2(location int32, v mgl32.Vec2)
	SetUniformVec3(location int32, v mgl32.Vec3)
	SetUniformVec4(location int32, v mgl32.Vec4)
	SetUniformMat4(location int32, m mgl32.Mat4)

	// Textures
	CreateTexture2D(img *Image, filter Filter) (uint32, error)
	CreateCubemap(faces [6]*Image) (uint32, error)
	BindTexture(unit uint32, target TextureTarget, texture uint32)
	DeleteTexture(texture uint32)

	// Geometry
	CreateVertexArray(vertices []float32, stride int, attribs []Attrib, indices []uint32) VertexArray
	DeleteVertexArray(va VertexArray)
	DrawArrays(va VertexArray, count int32)
	DrawElements(va VertexArray, count int32)

	// Framebuffers
	CreateFramebuffer(width, height int32) (FramebufferObjects, error)
	ResizeFramebuffer(fb FramebufferObjects, width, height int32)
	DeleteFramebuffer(fb FramebufferObjects)
	BindFramebuffer(fbo uint32)
	ReadPixels(width, height int32) []byte

	// Fixed-function state
	Viewport(x, y, width, height int32)
	Clear(r, g, b, a float32)
	SetDepthTest(enabled bool)
	SetDepthFunc(fn DepthFunc)
}

var lastID atomic.Uint64

// NextID returns a process-unique identity for cache comparisons.
func NextID() uint64 {
	return lastID.Add(1)
}
