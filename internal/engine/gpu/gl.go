package gpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/logger"
)

// GL is the OpenGL 4.1 core Device.
type GL struct{}

// NewGL loads the OpenGL function pointers for the current context.
func NewGL() (*GL, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl.Init: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.String("glsl", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION))),
	)

	return &GL{}, nil
}

// CompileProgram compiles and links a vertex/fragment pair.
func (d *GL) CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := infoLog(logLen, func(buf *uint8) { gl.GetProgramInfoLog(program, logLen, nil, buf) })
		gl.DeleteProgram(program)
		return 0, &StageError{Stage: "link", Log: log}
	}

	return program, nil
}

func compileShader(source string, shaderType uint32, stage string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := infoLog(logLen, func(buf *uint8) { gl.GetShaderInfoLog(shader, logLen, nil, buf) })
		gl.DeleteShader(shader)
		return 0, &StageError{Stage: stage, Log: log}
	}

	return shader, nil
}

func infoLog(length int32, read func(*uint8)) string {
	if length <= 0 {
		return ""
	}
	buf := make([]byte, length)
	read(&buf[0])
	return strings.TrimRight(string(buf), "\x00\n")
}

// StageError is a compile or link failure with the driver's info log.
type StageError struct {
	Stage string // "vertex", "fragment" or "link"
	Log   string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Log)
}

func (d *GL) DeleteProgram(program uint32) { gl.DeleteProgram(program) }
func (d *GL) UseProgram(program uint32)    { gl.UseProgram(program) }

func (d *GL) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *GL) SetUniformInt(location int32, v int32)       { gl.Uniform1i(location, v) }
func (d *GL) SetUniformFloat(location int32, v float32)   { gl.Uniform1f(location, v) }
func (d *GL) SetUniformVec2(location int32, v mgl32.Vec2) { gl.Uniform2f(location, v[0], v[1]) }
func (d *GL) SetUniformVec3(location int32, v mgl32.Vec3) { gl.Uniform3f(location, v[0], v[1], v[2]) }
func (d *GL) SetUniformVec4(location int32, v mgl32.Vec4) {
	gl.Uniform4f(location, v[0], v[1], v[2], v[3])
}
func (d *GL) SetUniformMat4(location int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

func pixelFormat(channels int) (internal int32, format uint32, err error) {
	switch channels {
	case 4:
		return gl.RGBA, gl.RGBA, nil
	case 3:
		return gl.RGB, gl.RGB, nil
	case 1:
		return gl.RED, gl.RED, nil
	default:
		return 0, 0, fmt.Errorf("unsupported channel count %d", channels)
	}
}

// CreateTexture2D uploads img with REPEAT wrapping and mipmaps.
func (d *GL) CreateTexture2D(img *Image, filter Filter) (uint32, error) {
	internal, format, err := pixelFormat(img.Channels)
	if err != nil {
		return 0, err
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(img.Width), int32(img.Height), 0,
		format, gl.UNSIGNED_BYTE, gl.Ptr(img.Pixels))
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	switch filter {
	case FilterNearest:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST_MIPMAP_NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	default:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return tex, nil
}

// CreateCubemap uploads six faces in +X, -X, +Y, -Y, +Z, -Z order.
func (d *GL) CreateCubemap(faces [6]*Image) (uint32, error) {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	for i, face := range faces {
		internal, format, err := pixelFormat(face.Channels)
		if err != nil {
			gl.DeleteTextures(1, &tex)
			return 0, fmt.Errorf("face %d: %w", i, err)
		}
		gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(i), 0, internal,
			int32(face.Width), int32(face.Height), 0, format, gl.UNSIGNED_BYTE, gl.Ptr(face.Pixels))
	}

	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)

	return tex, nil
}

func (d *GL) BindTexture(unit uint32, target TextureTarget, texture uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	if target == TextureCubemap {
		gl.BindTexture(gl.TEXTURE_CUBE_MAP, texture)
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, texture)
}

func (d *GL) DeleteTexture(texture uint32) { gl.DeleteTextures(1, &texture) }

// CreateVertexArray uploads interleaved float vertices and optional indices.
func (d *GL) CreateVertexArray(vertices []float32, stride int, attribs []Attrib, indices []uint32) VertexArray {
	var va VertexArray

	gl.GenVertexArrays(1, &va.VAO)
	gl.BindVertexArray(va.VAO)

	gl.GenBuffers(1, &va.VBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, va.VBO)
	if len(vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	}

	if len(indices) > 0 {
		gl.GenBuffers(1, &va.EBO)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, va.EBO)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}

	for _, a := range attribs {
		gl.VertexAttribPointerWithOffset(a.Location, a.Size, gl.FLOAT, false, int32(stride*4), uintptr(a.Offset*4))
		gl.EnableVertexAttribArray(a.Location)
	}

	gl.BindVertexArray(0)
	return va
}

func (d *GL) DeleteVertexArray(va VertexArray) {
	if va.EBO != 0 {
		gl.DeleteBuffers(1, &va.EBO)
	}
	if va.VBO != 0 {
		gl.DeleteBuffers(1, &va.VBO)
	}
	if va.VAO != 0 {
		gl.DeleteVertexArrays(1, &va.VAO)
	}
}

func (d *GL) DrawArrays(va VertexArray, count int32) {
	gl.BindVertexArray(va.VAO)
	gl.DrawArrays(gl.TRIANGLES, 0, count)
	gl.BindVertexArray(0)
}

func (d *GL) DrawElements(va VertexArray, count int32) {
	gl.BindVertexArray(va.VAO)
	gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

// CreateFramebuffer builds an FBO with an RGBA color texture and a
// depth-stencil renderbuffer.
func (d *GL) CreateFramebuffer(width, height int32) (FramebufferObjects, error) {
	var fb FramebufferObjects

	gl.GenFramebuffers(1, &fb.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.FBO)

	gl.GenTextures(1, &fb.Color)
	gl.BindTexture(gl.TEXTURE_2D, fb.Color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fb.Color, 0)

	gl.GenRenderbuffers(1, &fb.DepthStencil)
	gl.BindRenderbuffer(gl.RENDERBUFFER, fb.DepthStencil)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, width, height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, fb.DepthStencil)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		d.DeleteFramebuffer(fb)
		return FramebufferObjects{}, fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}

	return fb, nil
}

// ResizeFramebuffer reallocates attachment storage on the existing handles.
func (d *GL) ResizeFramebuffer(fb FramebufferObjects, width, height int32) {
	gl.BindTexture(gl.TEXTURE_2D, fb.Color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.BindRenderbuffer(gl.RENDERBUFFER, fb.DepthStencil)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, width, height)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
}

func (d *GL) DeleteFramebuffer(fb FramebufferObjects) {
	if fb.FBO != 0 {
		gl.DeleteFramebuffers(1, &fb.FBO)
	}
	if fb.Color != 0 {
		gl.DeleteTextures(1, &fb.Color)
	}
	if fb.DepthStencil != 0 {
		gl.DeleteRenderbuffers(1, &fb.DepthStencil)
	}
}

func (d *GL) BindFramebuffer(fbo uint32) { gl.BindFramebuffer(gl.FRAMEBUFFER, fbo) }

// ReadPixels reads RGBA rows from the bound framebuffer, bottom row first.
func (d *GL) ReadPixels(width, height int32) []byte {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, width, height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}

func (d *GL) Viewport(x, y, width, height int32) { gl.Viewport(x, y, width, height) }

func (d *GL) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT)
}

func (d *GL) SetDepthTest(enabled bool) {
	if enabled {
		gl.Enable(gl.DEPTH_TEST)
		return
	}
	gl.Disable(gl.DEPTH_TEST)
}

func (d *GL) SetDepthFunc(fn DepthFunc) {
	if fn == DepthLessEqual {
		gl.DepthFunc(gl.LEQUAL)
		return
	}
	gl.DepthFunc(gl.LESS)
}
