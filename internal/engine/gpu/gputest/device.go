// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"fmt"
	"regexp"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
)

// Call is one recorded device call.
type Call struct {
	Op   string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Op, c.Args)
}

// UniformSet records a uniform write with the program bound at the time.
type UniformSet struct {
	Program uint32
	Name    string
	Value   any
}

type program struct {
	sources   string
	locations map[string]int32
	names     map[int32]string
}

// Device records every call and hands out increasing handles.
// Uniforms exist only when declared in the program's GLSL source.
type Device struct {
	Calls    []Call
	Uniforms []UniformSet

	// CompileErr, when set, fails every CompileProgram call.
	CompileErr error
	// TextureErr, when set, fails every texture creation.
	TextureErr error

	nextHandle uint32
	programs   map[uint32]*program
	current    uint32
	live       map[uint32]string
	bound      uint32
}

// New returns an empty recording device.
func New() *Device {
	return &Device{
		programs: make(map[uint32]*program),
		live:     make(map[uint32]string),
	}
}

var _ gpu.Device = (*Device)(nil)

func (d *Device) record(op string, args ...any) {
	d.Calls = append(d.Calls, Call{Op: op, Args: args})
}

func (d *Device) handle(kind string) uint32 {
	d.nextHandle++
	d.live[d.nextHandle] = kind
	return d.nextHandle
}

func (d *Device) release(h uint32) {
	delete(d.live, h)
}

// Count returns how many calls with the given op were recorded.
func (d *Device) Count(op string) int {
	n := 0
	for _, c := range d.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Ops returns the op names of all recorded calls, in order.
func (d *Device) Ops() []string {
	ops := make([]string, len(d.Calls))
	for i, c := range d.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Filter returns the calls with the given op.
func (d *Device) Filter(op string) []Call {
	var out []Call
	for _, c := range d.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset drops recorded calls and uniform writes, keeping live resources.
func (d *Device) Reset() {
	d.Calls = nil
	d.Uniforms = nil
}

// Live returns the number of handles of the given kind not yet deleted.
// Kinds: "program", "texture", "vertexarray", "framebuffer".
func (d *Device) Live(kind string) int {
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// UniformsNamed returns every recorded write of the named uniform.
func (d *Device) UniformsNamed(name string) []UniformSet {
	var out []UniformSet
	for _, u := range d.Uniforms {
		if u.Name == name {
			out = append(out, u)
		}
	}
	return out
}

// BoundFramebuffer returns the framebuffer bound by the last BindFramebuffer.
func (d *Device) BoundFramebuffer() uint32 {
	return d.bound
}

func (d *Device) CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	d.record("CompileProgram")
	if d.CompileErr != nil {
		return 0, d.CompileErr
	}
	h := d.handle("program")
	d.programs[h] = &program{
		sources:   vertexSrc + "\n" + fragmentSrc,
		locations: make(map[string]int32),
		names:     make(map[int32]string),
	}
	return h, nil
}

func (d *Device) DeleteProgram(p uint32) {
	d.record("DeleteProgram", p)
	delete(d.programs, p)
	d.release(p)
}

func (d *Device) UseProgram(p uint32) {
	d.record("UseProgram", p)
	d.current = p
}

var arraySuffix = regexp.MustCompile(`\[\d+\]$`)

// UniformLocation resolves name against `uniform <type> <name>` declarations.
func (d *Device) UniformLocation(p uint32, name string) int32 {
	d.record("UniformLocation", p, name)
	prog, ok := d.programs[p]
	if !ok {
		return -1
	}
	if loc, ok := prog.locations[name]; ok {
		return loc
	}

	base := arraySuffix.ReplaceAllString(name, "")
	decl := regexp.MustCompile(`uniform\s+\w+\s+` + regexp.QuoteMeta(base) + `\s*(\[|;)`)
	if !decl.MatchString(prog.sources) {
		return -1
	}
	loc := int32(len(prog.locations))
	prog.locations[name] = loc
	prog.names[loc] = name
	return loc
}

func (d *Device) setUniform(op string, location int32, v any) {
	d.record(op, location, v)
	name := ""
	if prog, ok := d.programs[d.current]; ok {
		name = prog.names[location]
	}
	d.Uniforms = append(d.Uniforms, UniformSet{Program: d.current, Name: name, Value: v})
}

func (d *Device) SetUniformInt(location int32, v int32) {
	d.setUniform("SetUniformInt", location, v)
}

func (d *Device) SetUniformFloat(location int32, v float32) {
	d.setUniform("SetUniformFloat", location, v)
}

func (d *Device) SetUniformVec2(location int32, v mgl32.Vec2) {
	d.setUniform("SetUniformVec2", location, v)
}

func (d *Device) SetUniformVec3(location int32, v mgl32.Vec3) {
	d.setUniform("SetUniformVec3", location, v)
}

func (d *Device) SetUniformVec4(location int32, v mgl32.Vec4) {
	d.setUniform("SetUniformVec4", location, v)
}

func (d *Device) SetUniformMat4(location int32, m mgl32.Mat4) {
	d.setUniform("SetUniformMat4", location, m)
}

func (d *Device) CreateTexture2D(img *gpu.Image, filter gpu.Filter) (uint32, error) {
	d.record("CreateTexture2D", img.Width, img.Height, img.Channels)
	if d.TextureErr != nil {
		return 0, d.TextureErr
	}
	return d.handle("texture"), nil
}

func (d *Device) CreateCubemap(faces [6]*gpu.Image) (uint32, error) {
	d.record("CreateCubemap")
	if d.TextureErr != nil {
		return 0, d.TextureErr
	}
	return d.handle("texture"), nil
}

func (d *Device) BindTexture(unit uint32, target gpu.TextureTarget, texture uint32) {
	d.record("BindTexture", unit, target, texture)
}

func (d *Device) DeleteTexture(texture uint32) {
	d.record("DeleteTexture", texture)
	d.release(texture)
}

func (d *Device) CreateVertexArray(vertices []float32, stride int, attribs []gpu.Attrib, indices []uint32) gpu.VertexArray {
	d.record("CreateVertexArray", len(vertices)/stride, len(indices))
	va := gpu.VertexArray{VAO: d.handle("vertexarray")}
	va.VBO = va.VAO
	if len(indices) > 0 {
		va.EBO = va.VAO
	}
	return va
}

func (d *Device) DeleteVertexArray(va gpu.VertexArray) {
	d.record("DeleteVertexArray", va.VAO)
	d.release(va.VAO)
}

func (d *Device) DrawArrays(va gpu.VertexArray, count int32) {
	d.record("DrawArrays", va.VAO, count)
}

func (d *Device) DrawElements(va gpu.VertexArray, count int32) {
	d.record("DrawElements", va.VAO, count)
}

func (d *Device) CreateFramebuffer(width, height int32) (gpu.FramebufferObjects, error) {
	d.record("CreateFramebuffer", width, height)
	fbo := d.handle("framebuffer")
	return gpu.FramebufferObjects{FBO: fbo, Color: fbo + 1_000_000, DepthStencil: fbo + 2_000_000}, nil
}

func (d *Device) ResizeFramebuffer(fb gpu.FramebufferObjects, width, height int32) {
	d.record("ResizeFramebuffer", fb.FBO, width, height)
}

func (d *Device) DeleteFramebuffer(fb gpu.FramebufferObjects) {
	d.record("DeleteFramebuffer", fb.FBO)
	d.release(fb.FBO)
}

func (d *Device) BindFramebuffer(fbo uint32) {
	d.record("BindFramebuffer", fbo)
	d.bound = fbo
}

func (d *Device) ReadPixels(width, height int32) []byte {
	d.record("ReadPixels", width, height)
	return make([]byte, width*height*4)
}

func (d *Device) Viewport(x, y, width, height int32) {
	d.record("Viewport", x, y, width, height)
}

func (d *Device) Clear(r, g, b, a float32) {
	d.record("Clear", r, g, b, a)
}

func (d *Device) SetDepthTest(enabled bool) {
	d.record("SetDepthTest", enabled)
}

func (d *Device) SetDepthFunc(fn gpu.DepthFunc) {
	d.record("SetDepthFunc", fn)
}

// Program returns the GLSL source a program was linked from.
func (d *Device) Program(p uint32) string {
	if prog, ok := d.programs[p]; ok {
		return prog.sources
	}
	return ""
}

