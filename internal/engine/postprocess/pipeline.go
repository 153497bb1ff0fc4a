// Package postprocess chains full-screen shader effects over the rendered frame.
package postprocess

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/engine/framebuffer"
	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/shader"
	"github.com/Faultbox/simple3d/internal/logger"
)

// ScreenTextureUnit is the texture unit effects sample the previous pass from.
const ScreenTextureUnit = 4

// VertexStage is the vertex shader shared by every effect.
const VertexStage = "postprocess"

// quadVertices is a full-screen quad as two triangles of (x, y, u, v).
var quadVertices = []float32{
	-1, 1, 0, 1,
	-1, -1, 0, 0,
	1, -1, 1, 0,
	-1, 1, 0, 1,
	1, -1, 1, 0,
	1, 1, 1, 1,
}

type effect struct {
	id      string
	program *shader.Program
	active  bool
}

// Pipeline renders the scene into offscreen framebuffers and composites the
// active effects in activation order, the last one onto the screen.
//
// One framebuffer is allocated per known effect at construction, so toggling
// effects never allocates; only Resize touches attachment storage.
type Pipeline struct {
	dev  gpu.Device
	fsys fs.FS

	ids     []string
	effects map[string]*effect
	order   []*effect

	framebuffers []*framebuffer.Framebuffer
	quad         gpu.VertexArray

	width, height int32
	screen        uint32
}

// New compiles one program per effect id and allocates the framebuffers.
// The fragment stage of effect id is read from strings.ToLower(id)+".fs".
func New(dev gpu.Device, fsys fs.FS, ids []string, width, height int32) (*Pipeline, error) {
	p := &Pipeline{
		dev:     dev,
		fsys:    fsys,
		effects: make(map[string]*effect, len(ids)),
		width:   width,
		height:  height,
	}

	for _, id := range ids {
		if _, dup := p.effects[id]; dup {
			p.Destroy()
			return nil, fmt.Errorf("postprocess %s: duplicate effect", id)
		}
		prog, err := p.compile(id)
		if err != nil {
			p.Destroy()
			return nil, err
		}
		p.ids = append(p.ids, id)
		p.effects[id] = &effect{id: id, program: prog}
	}

	for range ids {
		fb, err := framebuffer.New(dev, width, height)
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("postprocess framebuffer: %w", err)
		}
		p.framebuffers = append(p.framebuffers, fb)
	}

	p.quad = dev.CreateVertexArray(quadVertices, 4, []gpu.Attrib{
		{Location: 0, Size: 2, Offset: 0},
		{Location: 1, Size: 2, Offset: 2},
	}, nil)

	logger.Info("postprocess pipeline ready",
		zap.Strings("effects", p.ids),
		zap.Int32("width", width),
		zap.Int32("height", height))
	return p, nil
}

func (p *Pipeline) compile(id string) (*shader.Program, error) {
	prog, err := shader.LoadStages(p.dev, p.fsys, VertexStage, strings.ToLower(id))
	if err != nil {
		return nil, fmt.Errorf("postprocess %s: %w", id, err)
	}
	prog.Use()
	prog.SetInt("screenTexture", ScreenTextureUnit)
	p.updateSize(prog)
	return prog, nil
}

func (p *Pipeline) updateSize(prog *shader.Program) {
	if !prog.HasUniform("inverseScreenSize") {
		return
	}
	prog.Use()
	prog.SetVec3("inverseScreenSize", mgl32.Vec3{1 / float32(p.width), 1 / float32(p.height), 1})
}

func (p *Pipeline) lookup(id string) *effect {
	e, ok := p.effects[id]
	if !ok {
		panic(fmt.Sprintf("postprocess: unknown effect %q", id))
	}
	return e
}

// IDs returns every known effect in construction order.
func (p *Pipeline) IDs() []string { return slices.Clone(p.ids) }

// Active returns the active effects in draw order.
func (p *Pipeline) Active() []string {
	out := make([]string, len(p.order))
	for i, e := range p.order {
		out[i] = e.id
	}
	return out
}

// IsActive reports whether effect id is active. Unknown ids panic.
func (p *Pipeline) IsActive(id string) bool { return p.lookup(id).active }

// SetActive enables or disables effect id. Enabling appends it to the draw
// order; disabling removes it while keeping the others in order.
// Unknown ids panic.
func (p *Pipeline) SetActive(id string, active bool) {
	e := p.lookup(id)
	if e.active == active {
		return
	}
	e.active = active
	if active {
		p.order = append(p.order, e)
	} else {
		p.order = slices.DeleteFunc(p.order, func(o *effect) bool { return o == e })
	}
	logger.Debug("postprocess toggled", zap.String("effect", id), zap.Bool("active", active))
}

// SetScreen sets the framebuffer the last pass renders into. 0 is the
// window's default framebuffer.
func (p *Pipeline) SetScreen(fbo uint32) { p.screen = fbo }

// Screen returns the framebuffer the last pass renders into.
func (p *Pipeline) Screen() uint32 { return p.screen }

// Size returns the framebuffer size the pipeline renders at.
func (p *Pipeline) Size() (width, height int32) { return p.width, p.height }

// Start redirects the scene draw into the first framebuffer when any effect
// is active.
func (p *Pipeline) Start() {
	if len(p.order) == 0 {
		return
	}
	p.framebuffers[0].Bind()
}

// Finalize runs the active effects. Pass i reads framebuffer i and writes
// framebuffer i+1; the last pass writes the screen framebuffer.
func (p *Pipeline) Finalize() {
	if len(p.order) == 0 {
		return
	}

	p.dev.SetDepthTest(false)
	last := len(p.order) - 1
	for i := 0; i < last; i++ {
		p.framebuffers[i+1].Bind()
		p.dev.Clear(1, 1, 1, 1)
		p.draw(p.order[i], p.framebuffers[i])
	}

	p.dev.BindFramebuffer(p.screen)
	p.dev.Viewport(0, 0, p.width, p.height)
	p.dev.Clear(1, 1, 1, 1)
	p.draw(p.order[last], p.framebuffers[last])
}

func (p *Pipeline) draw(e *effect, input *framebuffer.Framebuffer) {
	e.program.Use()
	p.dev.BindTexture(ScreenTextureUnit, gpu.Texture2D, input.ColorTexture())
	p.dev.DrawArrays(p.quad, int32(len(quadVertices)/4))
}

// Resize reallocates attachment storage in place and updates the effects'
// inverseScreenSize. It is a no-op when the size is unchanged.
func (p *Pipeline) Resize(width, height int32) {
	if width == p.width && height == p.height {
		return
	}
	p.width, p.height = width, height
	for _, id := range p.ids {
		p.updateSize(p.effects[id].program)
	}
	for _, fb := range p.framebuffers {
		fb.Resize(width, height)
	}
	logger.Debug("postprocess resized", zap.Int32("width", width), zap.Int32("height", height))
}

// ReloadEffect recompiles effect id from its sources. On failure the
// previous program stays in use. Unknown ids panic.
func (p *Pipeline) ReloadEffect(id string) error {
	e := p.lookup(id)
	prog, err := p.compile(id)
	if err != nil {
		return err
	}
	e.program.Destroy()
	e.program = prog
	logger.Info("postprocess reloaded", zap.String("effect", id))
	return nil
}

// Destroy releases programs, framebuffers and the quad.
func (p *Pipeline) Destroy() {
	for _, e := range p.effects {
		e.program.Destroy()
	}
	for _, fb := range p.framebuffers {
		fb.Destroy()
	}
	if p.quad.VAO != 0 {
		p.dev.DeleteVertexArray(p.quad)
		p.quad = gpu.VertexArray{}
	}
}
