// Package shader loads GLSL programs and caches their uniform locations.
package shader

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/logger"
)

// Stage file extensions. A program named "model" is built from model.vs and model.fs.
const (
	VertexExt   = ".vs"
	FragmentExt = ".fs"
)

// SourceError reports a shader source file that could not be read.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("shader source %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// CompileError reports a compile or link failure with the driver log.
type CompileError struct {
	Program string
	Stage   string
	Log     string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("program %q: %s stage failed: %s", e.Program, e.Stage, e.Log)
}

// Program is a linked GPU program. It owns its handle; do not copy.
type Program struct {
	dev       gpu.Device
	handle    uint32
	id        uint64
	name      string
	locations map[string]int32
}

// Load builds the program <name>.vs + <name>.fs from fsys.
func Load(dev gpu.Device, fsys fs.FS, name string) (*Program, error) {
	return LoadStages(dev, fsys, name, name)
}

// LoadStages builds a program from <vertex>.vs and <fragment>.fs, allowing
// several programs to share one vertex stage.
func LoadStages(dev gpu.Device, fsys fs.FS, vertex, fragment string) (*Program, error) {
	vs, err := readSource(fsys, vertex+VertexExt)
	if err != nil {
		return nil, err
	}
	fsrc, err := readSource(fsys, fragment+FragmentExt)
	if err != nil {
		return nil, err
	}
	return Compile(dev, fragment, vs, fsrc)
}

func readSource(fsys fs.FS, path string) (string, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return "", &SourceError{Path: path, Err: err}
	}
	return string(data), nil
}

// Compile links a program from in-memory sources.
func Compile(dev gpu.Device, name, vertexSrc, fragmentSrc string) (*Program, error) {
	handle, err := dev.CompileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		var stageErr *gpu.StageError
		if errors.As(err, &stageErr) {
			return nil, &CompileError{Program: name, Stage: stageErr.Stage, Log: stageErr.Log}
		}
		return nil, &CompileError{Program: name, Stage: "link", Log: err.Error()}
	}

	logger.Debug("program linked", zap.String("program", name), zap.Uint32("handle", handle))

	return &Program{
		dev:       dev,
		handle:    handle,
		id:        gpu.NextID(),
		name:      name,
		locations: make(map[string]int32),
	}, nil
}

// ID identifies this program instance for cache comparisons.
// A relinked program always gets a new ID.
func (p *Program) ID() uint64 { return p.id }

// Name returns the fragment stage name the program was built from.
func (p *Program) Name() string { return p.name }

// Handle returns the native program handle, 0 after Destroy.
func (p *Program) Handle() uint32 { return p.handle }

// Use binds the program for subsequent draws and uniform writes.
func (p *Program) Use() {
	p.dev.UseProgram(p.handle)
}

// Destroy releases the GPU program. Safe to call more than once.
func (p *Program) Destroy() {
	if p.handle == 0 {
		return
	}
	p.dev.DeleteProgram(p.handle)
	p.handle = 0
}

// location returns the cached uniform location, -1 when the uniform is absent.
func (p *Program) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := p.dev.UniformLocation(p.handle, name)
	p.locations[name] = loc
	if loc < 0 {
		logger.Warn("uniform doesn't exist, might have been optimized out",
			zap.String("program", p.name), zap.String("uniform", name))
	}
	return loc
}

// HasUniform reports whether the linked program exposes the uniform.
func (p *Program) HasUniform(name string) bool {
	if loc, ok := p.locations[name]; ok {
		return loc >= 0
	}
	loc := p.dev.UniformLocation(p.handle, name)
	if loc >= 0 {
		p.locations[name] = loc
	}
	return loc >= 0
}

// The setters expect the program to be bound with Use. Unknown uniforms are ignored.

func (p *Program) SetInt(name string, v int32) {
	if loc := p.location(name); loc >= 0 {
		p.dev.SetUniformInt(loc, v)
	}
}

func (p *Program) SetFloat(name string, v float32) {
	if loc := p.location(name); loc >= 0 {
		p.dev.SetUniformFloat(loc, v)
	}
}

func (p *Program) SetVec2(name string, v mgl32.Vec2) {
	if loc := p.location(name); loc >= 0 {
		p.dev.SetUniformVec2(loc, v)
	}
}

func (p *Program) SetVec3(name string, v mgl32.Vec3) {
	if loc := p.location(name); loc >= 0 {
		p.dev.SetUniformVec3(loc, v)
	}
}

func (p *Program) SetVec4(name string, v mgl32.Vec4) {
	if loc := p.location(name); loc >= 0 {
		p.dev.SetUniformVec4(loc, v)
	}
}

func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	if loc := p.location(name); loc >= 0 {
		p.dev.SetUniformMat4(loc, m)
	}
}
