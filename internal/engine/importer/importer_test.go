package importer

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quadBuffer packs a unit quad: 4 positions, 4 UVs, 6 uint16 indices.
func quadBuffer(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	positions := []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}
	uvs := []float32{0, 0, 1, 0, 1, 1, 0, 1}
	indices := []uint16{0, 1, 2, 0, 2, 3}
	for _, v := range []any{positions, uvs, indices} {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	require.Equal(t, 92, buf.Len())
	return buf.Bytes()
}

const quadDocument = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "outer", "mesh": 0, "translation": [1, 0, 0], "children": [1]},
    {"name": "inner", "mesh": 0, "scale": [2, 2, 2]}
  ],
  "meshes": [{"name": "quad", "primitives": [
    {"attributes": {"POSITION": 0, "TEXCOORD_0": 1}, "indices": 2, "material": 0},
    {"attributes": {"POSITION": 0, "TEXCOORD_0": 1}, "indices": 2, "material": 1}
  ]}],
  "materials": [
    {"name": "painted", "pbrMetallicRoughness": {"baseColorFactor": [1, 0.5, 0.25, 0.5], "baseColorTexture": {"index": 0}}},
    {"name": "plain", "pbrMetallicRoughness": {"baseColorTexture": {"index": 0, "texCoord": 1}}, "emissiveFactor": [0.2, 0.3, 0.4]}
  ],
  "textures": [{"source": 0}],
  "images": [%s],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 4, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5126, "count": 4, "type": "VEC2"},
    {"bufferView": 2, "componentType": 5123, "count": 6, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 48},
    {"buffer": 0, "byteOffset": 48, "byteLength": 32},
    {"buffer": 0, "byteOffset": 80, "byteLength": 12}%s
  ],
  "buffers": [%s]
}`

func writeGLTF(t *testing.T) string {
	t.Helper()
	data := quadBuffer(t)
	buffer := fmt.Sprintf(`{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}`,
		len(data), base64.StdEncoding.EncodeToString(data))
	doc := fmt.Sprintf(quadDocument, `{"uri": "textures/wood.png"}`, "", buffer)

	path := filepath.Join(t.TempDir(), "quad.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func pad4(b []byte, fill byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, fill)
	}
	return b
}

// writeGLB stores the quad with its image embedded in the binary chunk.
func writeGLB(t *testing.T) (string, []byte) {
	t.Helper()
	img := pngBytes(t)
	bin := append(quadBuffer(t), img...)
	bin = pad4(bin, 0)

	imageView := fmt.Sprintf(`,
    {"buffer": 0, "byteOffset": 92, "byteLength": %d}`, len(img))
	doc := fmt.Sprintf(quadDocument,
		`{"bufferView": 3, "mimeType": "image/png"}`, imageView,
		fmt.Sprintf(`{"byteLength": %d}`, len(bin)))
	js := pad4([]byte(doc), ' ')

	var out bytes.Buffer
	le := binary.LittleEndian
	require.NoError(t, binary.Write(&out, le, []uint32{0x46546C67, 2, uint32(12 + 8 + len(js) + 8 + len(bin))}))
	require.NoError(t, binary.Write(&out, le, []uint32{uint32(len(js)), 0x4E4F534A}))
	out.Write(js)
	require.NoError(t, binary.Write(&out, le, []uint32{uint32(len(bin)), 0x004E4942}))
	out.Write(bin)

	path := filepath.Join(t.TempDir(), "quad.glb")
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0644))
	return path, img
}

func TestImportHierarchy(t *testing.T) {
	path := writeGLTF(t)

	scene, err := NewGLTF().Import(path, Triangulate)
	require.NoError(t, err)

	require.Len(t, scene.Meshes, 2, "one mesh per primitive")
	assert.Equal(t, 0, scene.Meshes[0].Material)
	assert.Equal(t, 1, scene.Meshes[1].Material)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, scene.Meshes[0].Indices)
	assert.Empty(t, scene.Meshes[0].Normals, "normals only generated on request")

	require.Len(t, scene.Root.Children, 1)
	outer := scene.Root.Children[0]
	assert.Equal(t, "outer", outer.Name)
	assert.Equal(t, []int{0, 1}, outer.Meshes)
	require.Len(t, outer.Children, 1)
	assert.Equal(t, []int{0, 1}, outer.Children[0].Meshes)
}

func TestImportPreTransform(t *testing.T) {
	path := writeGLTF(t)

	scene, err := NewGLTF().Import(path, Triangulate|PreTransformVertices|GenSmoothNormals)
	require.NoError(t, err)

	require.Len(t, scene.Meshes, 4, "two instances of two primitives")
	assert.Equal(t, []int{0, 1, 2, 3}, scene.Root.Meshes)
	assert.Empty(t, scene.Root.Children)

	// outer: translate(1,0,0)
	assert.True(t, scene.Meshes[0].Positions[2].ApproxEqual(mgl32.Vec3{2, 1, 0}))
	// inner: translate(1,0,0) * scale(2)
	assert.True(t, scene.Meshes[2].Positions[2].ApproxEqual(mgl32.Vec3{3, 2, 0}))

	for _, n := range scene.Meshes[2].Normals {
		assert.True(t, n.ApproxEqual(mgl32.Vec3{0, 0, 1}), "normal %v", n)
	}
}

func TestImportFlipUVs(t *testing.T) {
	path := writeGLTF(t)

	plain, err := NewGLTF().Import(path, 0)
	require.NoError(t, err)
	flipped, err := NewGLTF().Import(path, FlipUVs|PreTransformVertices)
	require.NoError(t, err)

	require.Len(t, plain.Meshes[0].UVs, 1)
	assert.Equal(t, mgl32.Vec2{0, 0}, plain.Meshes[0].UVs[0][0])
	assert.Equal(t, mgl32.Vec2{0, 1}, flipped.Meshes[0].UVs[0][0])
	assert.Equal(t, mgl32.Vec2{0, 1}, flipped.Meshes[2].UVs[0][0], "instances are flipped once")
}

func TestImportMaterials(t *testing.T) {
	path := writeGLTF(t)

	scene, err := NewGLTF().Import(path, 0)
	require.NoError(t, err)
	require.Len(t, scene.Materials, 2)

	painted := scene.Materials[0]
	assert.Equal(t, "painted", painted.Name)
	assert.Equal(t, mgl32.Vec3{1, 0.5, 0.25}, painted.DiffuseColor)
	assert.Equal(t, float32(0.5), painted.Opacity)
	assert.Equal(t, []TextureRef{{Path: "textures/wood.png", UVChannel: 0}}, painted.Textures[RoleDiffuse])

	plain := scene.Materials[1]
	assert.Equal(t, mgl32.Vec3{0.2, 0.3, 0.4}, plain.EmissiveColor)
	assert.Equal(t, float32(1), plain.Opacity)
	require.Len(t, plain.Textures[RoleDiffuse], 1)
	assert.Equal(t, 1, plain.Textures[RoleDiffuse][0].UVChannel)
	assert.Empty(t, plain.Textures[RoleSpecular])
}

func TestImportGLBEmbeddedImage(t *testing.T) {
	path, img := writeGLB(t)

	scene, err := NewGLTF().Import(path, Triangulate|PreTransformVertices)
	require.NoError(t, err)

	refs := scene.Materials[0].Textures[RoleDiffuse]
	require.Len(t, refs, 1)
	assert.True(t, refs[0].Embedded())
	assert.Equal(t, filepath.Clean(path)+"#image0", refs[0].Path)
	assert.Equal(t, img, refs[0].Data)
	assert.Equal(t, refs[0].Path, scene.Materials[1].Textures[RoleDiffuse][0].Path)
}

func TestImportErrors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.gltf")
	require.NoError(t, os.WriteFile(broken, []byte(`{"asset": `), 0644))
	picture := filepath.Join(dir, "picture.gltf")
	require.NoError(t, os.WriteFile(picture, pngBytes(t), 0644))

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.gltf")},
		{"truncated json", broken},
		{"png renamed", picture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGLTF().Import(tt.path, Triangulate)
			require.Error(t, err)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.path, parseErr.Path)
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestImportRejectsBrokenNodeGraph(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"cycle",
			`{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}], "nodes": [{"children": [1]}, {"children": [0]}]}`,
			"own ancestor",
		},
		{
			"self child",
			`{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}], "nodes": [{"children": [0]}]}`,
			"own ancestor",
		},
		{
			"dangling child",
			`{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}], "nodes": [{"children": [5]}]}`,
			"node 5 out of range",
		},
		{
			"dangling root",
			`{"asset": {"version": "2.0"}, "scenes": [{"nodes": [3]}], "nodes": [{}]}`,
			"node 3 out of range",
		},
		{
			"dangling mesh",
			`{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}], "nodes": [{"mesh": 2}]}`,
			"mesh 2 out of range",
		},
	}
	for _, tt := range tests {
		for _, flags := range []Flags{Triangulate, Triangulate | PreTransformVertices} {
			t.Run(tt.name, func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "graph.gltf")
				require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0644))

				_, err := NewGLTF().Import(path, flags)
				require.Error(t, err)
				var parseErr *ParseError
				require.True(t, errors.As(err, &parseErr))
				assert.Contains(t, err.Error(), tt.want)
			})
		}
	}
}

func TestImportSharedChildIsNotACycle(t *testing.T) {
	doc := `{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0, 1]}], "nodes": [{"children": [2]}, {"children": [2]}, {"name": "leaf"}]}`
	path := filepath.Join(t.TempDir(), "shared.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	scene, err := NewGLTF().Import(path, Triangulate)
	require.NoError(t, err)
	require.Len(t, scene.Root.Children, 2)
	assert.Equal(t, "leaf", scene.Root.Children[1].Children[0].Name)
}

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0644))
		return p
	}

	glb, _ := writeGLB(t)
	f, err := DetectFormat(glb)
	require.NoError(t, err)
	assert.Equal(t, FormatGLB, f)

	renamed := write("scene.bin", mustRead(t, glb))
	f, err = DetectFormat(renamed)
	require.NoError(t, err)
	assert.Equal(t, FormatGLB, f, "binary header wins over extension")

	f, err = DetectFormat(write("scene.gltf", []byte(`  {"asset":{"version":"2.0"}}`)))
	require.NoError(t, err)
	assert.Equal(t, FormatGLTF, f)

	_, err = DetectFormat(write("model.obj", []byte("v 0 0 0\n")))
	assert.ErrorContains(t, err, "unsupported model extension")

	_, err = DetectFormat(write("texture.glb", pngBytes(t)))
	assert.ErrorContains(t, err, "image/png")

	_, err = DetectFormat(write("empty.glb", nil))
	assert.Error(t, err)
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestStripAndFan(t *testing.T) {
	assert.Equal(t, []uint32{0, 1, 2, 2, 1, 3, 2, 3, 4}, stripToTriangles([]uint32{0, 1, 2, 3, 4}))
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, fanToTriangles([]uint32{0, 1, 2, 3}))
	assert.Nil(t, stripToTriangles([]uint32{0, 1}))
	assert.Nil(t, fanToTriangles(nil))
}

func TestRoughnessToShininess(t *testing.T) {
	assert.Equal(t, float32(1024), roughnessToShininess(0))
	assert.Equal(t, float32(1), roughnessToShininess(1))
	assert.Greater(t, roughnessToShininess(0.3), roughnessToShininess(0.6))
}

func TestTextureRoleString(t *testing.T) {
	assert.Equal(t, "diffuseRoughness", RoleDiffuseRoughness.String())
	assert.Equal(t, "TextureRole(9)", TextureRole(9).String())
}
