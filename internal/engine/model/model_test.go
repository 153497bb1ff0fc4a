package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/gpu/gputest"
	"github.com/Faultbox/simple3d/internal/engine/importer"
	"github.com/Faultbox/simple3d/internal/engine/shader"
	"github.com/Faultbox/simple3d/internal/engine/texture"
	"github.com/Faultbox/simple3d/internal/logger"
	"github.com/Faultbox/simple3d/res"
)

type fakeImporter struct {
	scene *importer.Scene
	err   error
	flags importer.Flags
}

func (f *fakeImporter) Import(path string, flags importer.Flags) (*importer.Scene, error) {
	f.flags = flags
	if f.err != nil {
		return nil, &importer.ParseError{Path: path, Err: f.err}
	}
	return f.scene, nil
}

type fakeDecoder struct {
	decoded []string
	fail    map[string]bool
}

func (d *fakeDecoder) Decode(path string, opts texture.DecodeOptions) (*gpu.Image, error) {
	d.decoded = append(d.decoded, path)
	if d.fail[path] {
		return nil, errors.New("corrupt image")
	}
	return &gpu.Image{Pixels: make([]byte, 4), Width: 1, Height: 1, Channels: 4}, nil
}

func (d *fakeDecoder) DecodeBytes(data []byte, opts texture.DecodeOptions) (*gpu.Image, error) {
	return d.Decode("<embedded>", opts)
}

func triangle(material int) *importer.Mesh {
	return &importer.Mesh{
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		UVs:       [][]mgl32.Vec2{{{0, 0}, {1, 0}, {0, 1}}},
		Material:  material,
	}
}

// sharedTextureScene has two materials referencing the same diffuse image
// through differently spelled relative paths.
func sharedTextureScene() *importer.Scene {
	brick := importer.NewMaterial("brick")
	brick.Textures[importer.RoleDiffuse] = []importer.TextureRef{{Path: "textures/wall.png", UVChannel: -1}}
	brick.Textures[importer.RoleSpecular] = []importer.TextureRef{{Path: "textures/wall_spec.png", UVChannel: 1}}

	mortar := importer.NewMaterial("mortar")
	mortar.EmissiveColor = mgl32.Vec3{0.5, 0.25, 0}
	mortar.Textures[importer.RoleDiffuse] = []importer.TextureRef{{Path: "./textures/../textures/wall.png", UVChannel: 12}}

	indexed := triangle(0)
	indexed.Indices = []uint32{0, 1, 2}
	return &importer.Scene{
		Root: &importer.Node{
			Meshes:   []int{0},
			Children: []*importer.Node{{Meshes: []int{1}}},
		},
		Meshes:    []*importer.Mesh{indexed, triangle(1)},
		Materials: []*importer.Material{brick, mortar},
	}
}

func TestTransformMatrix(t *testing.T) {
	tr := Transform{
		Translation: mgl32.Vec3{1, 2, 3},
		Rotation:    mgl32.Vec3{30, 45, 60},
		Scale:       mgl32.Vec3{2, 3, 4},
	}
	want := mgl32.Translate3D(1, 2, 3).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(60))).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(45))).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(30))).
		Mul4(mgl32.Scale3D(2, 3, 4))
	assert.True(t, tr.Matrix().ApproxEqual(want))

	// Scale, then rotate 90 degrees about Z, then translate.
	simple := Transform{Translation: mgl32.Vec3{1, 0, 0}, Rotation: mgl32.Vec3{0, 0, 90}, Scale: mgl32.Vec3{2, 2, 2}}
	p := mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, simple.Matrix())
	assert.True(t, p.ApproxEqualThreshold(mgl32.Vec3{1, 2, 0}, 1e-5), "got %v", p)

	assert.Equal(t, mgl32.Ident4(), IdentityTransform().Matrix())
}

func TestLoadFlags(t *testing.T) {
	imp := &fakeImporter{scene: &importer.Scene{Root: &importer.Node{}}}

	_, err := Load(imp, &fakeDecoder{}, "m.glb", LoadConfig{})
	require.NoError(t, err)
	assert.True(t, imp.flags.Has(importer.Triangulate|importer.GenSmoothNormals|importer.CalcTangentSpace|importer.PreTransformVertices))
	assert.False(t, imp.flags.Has(importer.FlipUVs))

	_, err = Load(imp, &fakeDecoder{}, "m.glb", LoadConfig{FlipUVs: true})
	require.NoError(t, err)
	assert.True(t, imp.flags.Has(importer.FlipUVs))
}

func TestLoadDeduplicatesTextures(t *testing.T) {
	dec := &fakeDecoder{}
	dir := filepath.Join("assets", "house")

	m, err := Load(&fakeImporter{scene: sharedTextureScene()}, dec, filepath.Join(dir, "house.gltf"), LoadConfig{})
	require.NoError(t, err)

	wall := filepath.Join(dir, "textures", "wall.png")
	assert.Equal(t, []string{wall, filepath.Join(dir, "textures", "wall_spec.png")}, dec.decoded)
	require.Len(t, m.Textures(), 2)
	assert.Equal(t, wall, m.Textures()[0].Key())

	brick, mortar := m.Materials()[0], m.Materials()[1]
	assert.Equal(t, []TextureSlot{{Texture: 0, UVChannel: -1}}, brick.Textures[importer.RoleDiffuse])
	assert.Equal(t, []TextureSlot{{Texture: 1, UVChannel: 1}}, brick.Textures[importer.RoleSpecular])
	assert.Equal(t, []TextureSlot{{Texture: 0, UVChannel: 0}}, mortar.Textures[importer.RoleDiffuse], "out of range UV channel falls back to 0")
	assert.Equal(t, mgl32.Vec3{0.5, 0.25, 0}, mortar.EmissiveColor)
	assert.Zero(t, mortar.SpecularColor)
	assert.NotEqual(t, brick.ID(), mortar.ID())

	dev := gputest.New()
	require.NoError(t, m.Complete(dev))
	assert.Equal(t, 2, dev.Count("CreateTexture2D"), "one upload per distinct path")
}

func TestLoadBuildsMeshesInNodeOrder(t *testing.T) {
	m, err := Load(&fakeImporter{scene: sharedTextureScene()}, &fakeDecoder{}, "house.gltf", LoadConfig{})
	require.NoError(t, err)

	require.Len(t, m.Meshes(), 2)
	assert.Equal(t, 0, m.Meshes()[0].Material())
	assert.Equal(t, 3, m.Meshes()[0].IndexCount())
	assert.Equal(t, 1, m.Meshes()[1].Material())
	assert.Zero(t, m.Meshes()[1].IndexCount())

	b := m.Bounds()
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, b.Min)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, b.Max)
}

func TestLoadFallbackMaterial(t *testing.T) {
	scene := &importer.Scene{
		Root:   &importer.Node{Meshes: []int{0, 1, 7}},
		Meshes: []*importer.Mesh{triangle(-1), triangle(3)},
	}

	m, err := Load(&fakeImporter{scene: scene}, &fakeDecoder{}, "bare.gltf", LoadConfig{})
	require.NoError(t, err)

	require.Len(t, m.Meshes(), 2, "missing mesh index skipped")
	require.Len(t, m.Materials(), 1)
	assert.Equal(t, 0, m.Meshes()[0].Material())
	assert.Equal(t, 0, m.Meshes()[1].Material())
	assert.Equal(t, float32(1), m.Materials()[0].Opacity)
}

func TestLoadParseError(t *testing.T) {
	imp := &fakeImporter{err: errors.New("unexpected end of JSON input")}

	_, err := Load(imp, &fakeDecoder{}, "broken.gltf", LoadConfig{})
	require.Error(t, err)

	var parseErr *importer.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), "unexpected end of JSON input")
}

func TestLoadAggregatesTextureErrors(t *testing.T) {
	dec := &fakeDecoder{fail: map[string]bool{
		filepath.Join("textures", "wall.png"):      true,
		filepath.Join("textures", "wall_spec.png"): true,
	}}

	_, err := Load(&fakeImporter{scene: sharedTextureScene()}, dec, "house.gltf", LoadConfig{})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(errors.Unwrap(err)), 2)
}

func TestModelCompleteTwicePanics(t *testing.T) {
	dev := gputest.New()
	m, err := Load(&fakeImporter{scene: sharedTextureScene()}, &fakeDecoder{}, "house.gltf", LoadConfig{})
	require.NoError(t, err)
	assert.Empty(t, dev.Calls, "loading makes no GPU calls")

	require.NoError(t, m.Complete(dev))
	assert.True(t, m.Completed())
	assert.Equal(t, 2, dev.Count("CreateVertexArray"))

	assert.Panics(t, func() { _ = m.Complete(dev) })

	m.Release()
	m.Release()
	assert.Zero(t, dev.Live("texture"))
	assert.Zero(t, dev.Live("vertexarray"))
}

func TestModelCompleteUploadFailure(t *testing.T) {
	dev := gputest.New()
	dev.TextureErr = errors.New("out of memory")
	m, err := Load(&fakeImporter{scene: sharedTextureScene()}, &fakeDecoder{}, "house.gltf", LoadConfig{})
	require.NoError(t, err)

	err = m.Complete(dev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
	assert.Zero(t, dev.Count("CreateVertexArray"))
}

func TestMeshCompleteAndDraw(t *testing.T) {
	dev := gputest.New()
	verts := []Vertex{{Position: mgl32.Vec3{1, 2, 3}}, {}, {}}

	indexed := NewMesh(verts, []uint32{0, 1, 2, 2, 1, 0}, 0)
	indexed.Complete(dev)
	arrays := NewCompletedMesh(dev, verts, nil)

	assert.Equal(t, []any{3, 6}, dev.Filter("CreateVertexArray")[0].Args)
	assert.Panics(t, func() { indexed.Complete(dev) })

	dev.Reset()
	indexed.Draw()
	arrays.Draw()
	require.Equal(t, []string{"DrawElements", "DrawArrays"}, dev.Ops())
	assert.Equal(t, int32(6), dev.Calls[0].Args[1])
	assert.Equal(t, int32(3), dev.Calls[1].Args[1])

	indexed.Release()
	indexed.Release()
	assert.Equal(t, 1, dev.Count("DeleteVertexArray"))
}

func TestInterleave(t *testing.T) {
	v := Vertex{
		Position: mgl32.Vec3{1, 2, 3},
		Normal:   mgl32.Vec3{4, 5, 6},
		Color:    mgl32.Vec3{7, 8, 9},
	}
	v.TexCoords[0] = mgl32.Vec2{10, 11}
	v.TexCoords[7] = mgl32.Vec2{24, 25}

	out := interleave([]Vertex{v})
	require.Len(t, out, VertexFloats)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, out[:11])
	assert.Equal(t, []float32{24, 25}, out[VertexFloats-2:])

	attribs := VertexAttribs()
	require.Len(t, attribs, 3+MaxUVChannels)
	assert.Equal(t, AttribUV0+7, attribs[len(attribs)-1].Location)
	assert.Equal(t, VertexFloats-2, attribs[len(attribs)-1].Offset)
}

const materialVS = `#version 410 core
uniform mat4 pv;
void main() {}
`

const materialFS = `#version 410 core
uniform sampler2D diffuseTextures[2];
uniform int diffuseUVChannels[2];
uniform int diffuseTexturesCount;
uniform sampler2D specularTextures[2];
uniform int specularUVChannels[2];
uniform int specularTexturesCount;
uniform vec3 diffuseColor;
uniform vec3 emissiveColor;
uniform float shininess;
void main() {}
`

func TestMaterialUse(t *testing.T) {
	dev := gputest.New()
	p, err := shader.Compile(dev, "model", materialVS, materialFS)
	require.NoError(t, err)
	p.Use()

	textures := make([]*texture.Texture, 3)
	for i := range textures {
		textures[i] = texture.New2D(filepath.Join("t", string(rune('a'+i))+".png"))
		require.NoError(t, textures[i].LoadData(&fakeDecoder{}))
		require.NoError(t, textures[i].Complete(dev))
	}

	mat := NewMaterial("painted")
	mat.DiffuseColor = mgl32.Vec3{1, 0, 0}
	mat.Textures[importer.RoleDiffuse] = []TextureSlot{{Texture: 2, UVChannel: -1}, {Texture: 0, UVChannel: 3}, {Texture: 1, UVChannel: -1}}
	mat.Textures[importer.RoleSpecular] = []TextureSlot{{Texture: 1, UVChannel: -1}}
	dev.Reset()

	mat.Use(p, textures)

	binds := dev.Filter("BindTexture")
	require.Len(t, binds, 3, "extra diffuse texture beyond the sampler array is skipped")
	assert.Equal(t, []any{uint32(0), gpu.Texture2D, textures[2].Handle()}, binds[0].Args)
	assert.Equal(t, []any{uint32(1), gpu.Texture2D, textures[0].Handle()}, binds[1].Args)
	assert.Equal(t, []any{uint32(2), gpu.Texture2D, textures[1].Handle()}, binds[2].Args)

	value := func(name string) any {
		sets := dev.UniformsNamed(name)
		require.Len(t, sets, 1, name)
		return sets[0].Value
	}
	assert.Equal(t, int32(0), value("diffuseTextures[0]"))
	assert.Equal(t, int32(1), value("diffuseTextures[1]"))
	assert.Equal(t, int32(2), value("specularTextures[0]"), "units continue across roles")
	assert.Equal(t, int32(0), value("diffuseUVChannels[0]"), "default channel is the slot position")
	assert.Equal(t, int32(3), value("diffuseUVChannels[1]"))
	assert.Equal(t, int32(2), value("diffuseTexturesCount"))
	assert.Equal(t, int32(1), value("specularTexturesCount"))
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, value("diffuseColor"))
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

func completeTextures(t *testing.T, dev gpu.Device, n int) []*texture.Texture {
	t.Helper()
	textures := make([]*texture.Texture, n)
	for i := range textures {
		textures[i] = texture.New2D(filepath.Join("t", string(rune('a'+i))+".png"))
		require.NoError(t, textures[i].LoadData(&fakeDecoder{}))
		require.NoError(t, textures[i].Complete(dev))
	}
	return textures
}

func TestMaterialUseLogsTruncatedRole(t *testing.T) {
	dev := gputest.New()
	p, err := shader.Compile(dev, "model", materialVS, materialFS)
	require.NoError(t, err)
	p.Use()
	textures := completeTextures(t, dev, 3)
	logs := observeLogs(t)

	mat := NewMaterial("layered")
	mat.Textures[importer.RoleSpecular] = []TextureSlot{{Texture: 0, UVChannel: -1}}
	mat.Use(p, textures)
	assert.Zero(t, logs.FilterMessage("texture role truncated").Len(), "nothing dropped")

	mat.Textures[importer.RoleDiffuse] = []TextureSlot{{Texture: 0, UVChannel: -1}, {Texture: 1, UVChannel: -1}, {Texture: 2, UVChannel: -1}}
	mat.Use(p, textures)

	entries := logs.FilterMessage("texture role truncated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "layered", fields["material"])
	assert.Equal(t, "diffuse", fields["role"])
	assert.Equal(t, int64(3), fields["textures"])
	assert.Equal(t, int64(MaxTexturesPerRole), fields["max"])
}

func TestModelShaderDeclaresEveryRole(t *testing.T) {
	dev := gputest.New()
	p, err := shader.Load(dev, res.Shaders, "model")
	require.NoError(t, err)
	defer p.Destroy()

	for role := importer.TextureRole(0); role < importer.RoleCount; role++ {
		for i := range MaxTexturesPerRole {
			assert.True(t, p.HasUniform(fmt.Sprintf("%sTextures[%d]", role, i)), "%s sampler %d", role, i)
			assert.True(t, p.HasUniform(fmt.Sprintf("%sUVChannels[%d]", role, i)), "%s channel %d", role, i)
		}
		assert.True(t, p.HasUniform(role.String()+"TexturesCount"), role.String())
	}
}
