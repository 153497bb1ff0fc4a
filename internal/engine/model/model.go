package model

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/importer"
	"github.com/Faultbox/simple3d/internal/engine/shader"
	"github.com/Faultbox/simple3d/internal/engine/texture"
	"github.com/Faultbox/simple3d/internal/logger"
)

// Model owns the meshes, materials and textures of one imported file.
// Meshes reference materials and materials reference textures by index,
// so the slices may be appended to without invalidating references.
type Model struct {
	id   uint64
	path string

	textures  []*texture.Texture
	materials []*Material
	meshes    []*Mesh
	bounds    Bounds

	matrix    mgl32.Mat4
	completed bool
}

// Load imports the file at path and decodes its textures. It makes no GPU
// calls and may run on any goroutine; call Complete on the render thread
// before drawing.
func Load(imp importer.Importer, dec texture.Decoder, path string, cfg LoadConfig) (*Model, error) {
	start := time.Now()

	scene, err := imp.Import(path, cfg.Flags())
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}

	m := New(path, nil, nil, nil)

	b := builder{model: m, dir: filepath.Dir(path), index: make(map[string]int)}
	if err := b.loadTextures(scene.Materials, dec); err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	b.buildMaterials(scene.Materials)
	if scene.Root != nil {
		b.buildNode(scene, scene.Root)
	}

	logger.Info("model loaded",
		zap.String("path", path),
		zap.Int("meshes", len(m.meshes)),
		zap.Int("materials", len(m.materials)),
		zap.Int("textures", len(m.textures)),
		zap.Duration("took", time.Since(start)))
	return m, nil
}

// New assembles a model from already built parts. Mesh material indexes
// refer to materials and material texture slots refer to textures.
func New(path string, meshes []*Mesh, materials []*Material, textures []*texture.Texture) *Model {
	m := &Model{
		id:        gpu.NextID(),
		path:      path,
		textures:  textures,
		materials: materials,
		meshes:    meshes,
		bounds:    emptyBounds(),
		matrix:    mgl32.Ident4(),
	}
	for _, mesh := range meshes {
		m.bounds.Merge(mesh.Bounds())
	}
	return m
}

// builder converts an importer scene. Textures are collected and decoded
// first, then materials, then meshes.
type builder struct {
	model *Model
	dir   string
	// index maps a texture key to its position in model.textures.
	index map[string]int
	// fallback is the material index for meshes without one, nil until needed.
	fallback *int
}

func (b *builder) textureKey(ref importer.TextureRef) string {
	if ref.Embedded() || filepath.IsAbs(ref.Path) {
		return filepath.Clean(ref.Path)
	}
	return filepath.Clean(filepath.Join(b.dir, filepath.FromSlash(ref.Path)))
}

func (b *builder) loadTextures(materials []*importer.Material, dec texture.Decoder) error {
	for _, mat := range materials {
		for _, refs := range mat.Textures {
			for _, ref := range refs {
				key := b.textureKey(ref)
				if _, ok := b.index[key]; ok {
					continue
				}
				var t *texture.Texture
				if ref.Embedded() {
					t = texture.NewEmbedded(key, ref.Data)
				} else {
					t = texture.New2D(key)
				}
				b.index[key] = len(b.model.textures)
				b.model.textures = append(b.model.textures, t)
			}
		}
	}

	var errs error
	for _, t := range b.model.textures {
		errs = multierr.Append(errs, t.LoadData(dec))
	}
	return errs
}

func (b *builder) buildMaterials(materials []*importer.Material) {
	b.model.materials = make([]*Material, 0, len(materials))
	for _, src := range materials {
		mat := NewMaterial(src.Name)
		mat.AmbientColor = src.AmbientColor
		mat.DiffuseColor = src.DiffuseColor
		mat.SpecularColor = src.SpecularColor
		mat.EmissiveColor = src.EmissiveColor
		mat.Opacity = src.Opacity
		mat.Shininess = src.Shininess
		mat.ShininessStrength = src.ShininessStrength

		for role, refs := range src.Textures {
			for _, ref := range refs {
				uv := ref.UVChannel
				if uv >= MaxUVChannels {
					uv = 0
				}
				if uv < 0 {
					uv = -1
				}
				mat.Textures[role] = append(mat.Textures[role], TextureSlot{
					Texture:   b.index[b.textureKey(ref)],
					UVChannel: uv,
				})
			}
		}
		b.model.materials = append(b.model.materials, mat)
	}
}

func (b *builder) materialFor(idx int) int {
	if idx >= 0 && idx < len(b.model.materials) {
		return idx
	}
	if b.fallback == nil {
		i := len(b.model.materials)
		b.model.materials = append(b.model.materials, NewMaterial("default"))
		b.fallback = &i
	}
	return *b.fallback
}

func (b *builder) buildNode(scene *importer.Scene, node *importer.Node) {
	for _, idx := range node.Meshes {
		if idx < 0 || idx >= len(scene.Meshes) {
			logger.Warn("node references missing mesh", zap.String("node", node.Name), zap.Int("mesh", idx))
			continue
		}
		src := scene.Meshes[idx]
		mesh := NewMesh(vertices(src), src.Indices, b.materialFor(src.Material))
		b.model.bounds.Merge(mesh.Bounds())
		b.model.meshes = append(b.model.meshes, mesh)
	}
	for _, child := range node.Children {
		b.buildNode(scene, child)
	}
}

func vertices(src *importer.Mesh) []Vertex {
	out := make([]Vertex, len(src.Positions))
	for i := range out {
		v := &out[i]
		v.Position = src.Positions[i]
		if i < len(src.Normals) {
			v.Normal = src.Normals[i]
		}
		if i < len(src.Colors) {
			v.Color = src.Colors[i]
		}
		for ch := 0; ch < len(src.UVs) && ch < MaxUVChannels; ch++ {
			if i < len(src.UVs[ch]) {
				v.TexCoords[ch] = src.UVs[ch][i]
			}
		}
	}
	return out
}

// ID identifies the model for cache comparisons.
func (m *Model) ID() uint64 { return m.id }

// Path returns the file the model was loaded from.
func (m *Model) Path() string { return m.path }

// Meshes returns the meshes in node traversal order.
func (m *Model) Meshes() []*Mesh { return m.meshes }

// Materials returns the materials referenced by the meshes.
func (m *Model) Materials() []*Material { return m.materials }

// Textures returns the deduplicated textures.
func (m *Model) Textures() []*texture.Texture { return m.textures }

// Bounds returns the box around all meshes before the model transform.
func (m *Model) Bounds() Bounds { return m.bounds }

// Completed reports whether GPU resources were uploaded.
func (m *Model) Completed() bool { return m.completed }

// SetTransform updates the precomputed model matrix.
func (m *Model) SetTransform(t Transform) { m.matrix = t.Matrix() }

// Matrix returns the model matrix.
func (m *Model) Matrix() mgl32.Mat4 { return m.matrix }

// Complete uploads every texture, then every mesh. It must run on the
// render thread and panics when called twice. On error the model releases
// what it uploaded and must not be drawn.
func (m *Model) Complete(dev gpu.Device) error {
	if m.completed {
		panic(fmt.Sprintf("model %s: already completed", m.path))
	}
	m.completed = true

	for _, t := range m.textures {
		if err := t.Complete(dev); err != nil {
			m.Release()
			return fmt.Errorf("complete model %s: %w", m.path, err)
		}
	}
	for _, mesh := range m.meshes {
		mesh.Complete(dev)
	}
	return nil
}

// Draw renders every mesh with program. bind reports whether a mesh's
// material must be bound, so callers can skip a material that is still
// current. Meshes without a material draw with whatever is bound.
func (m *Model) Draw(p *shader.Program, bind func(*Material) bool) {
	for _, mesh := range m.meshes {
		if idx := mesh.Material(); idx >= 0 && idx < len(m.materials) {
			mat := m.materials[idx]
			if bind(mat) {
				mat.Use(p, m.textures)
			}
		}
		mesh.Draw()
	}
}

// Release frees every GPU resource. Safe to call more than once.
func (m *Model) Release() {
	for _, t := range m.textures {
		t.Release()
	}
	for _, mesh := range m.meshes {
		mesh.Release()
	}
}
