package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/logger"
)

// GLTF imports glTF 2.0 files, both .gltf (external or data-URI buffers)
// and binary .glb.
type GLTF struct{}

// NewGLTF returns a glTF importer.
func NewGLTF() *GLTF { return &GLTF{} }

var _ Importer = (*GLTF)(nil)

// Import parses the file at path. Every failure is a *ParseError.
func (g *GLTF) Import(path string, flags Flags) (*Scene, error) {
	start := time.Now()

	format, err := DetectFormat(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	doc, err := gltf.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	c := &converter{doc: doc, path: path, flags: flags}
	scene, err := c.convert()
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	logger.Debug("model imported",
		zap.String("path", path),
		zap.Stringer("format", format),
		zap.Int("meshes", len(scene.Meshes)),
		zap.Int("materials", len(scene.Materials)),
		zap.Duration("took", time.Since(start)))
	return scene, nil
}

type converter struct {
	doc   *gltf.Document
	path  string
	flags Flags

	// prims maps a glTF mesh index to the converted primitives.
	prims [][]*Mesh
}

func (c *converter) convert() (*Scene, error) {
	scene := &Scene{}

	for _, m := range c.doc.Materials {
		scene.Materials = append(scene.Materials, c.material(m))
	}

	c.prims = make([][]*Mesh, len(c.doc.Meshes))
	for i, m := range c.doc.Meshes {
		for j, p := range m.Primitives {
			mesh, err := c.primitive(p)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", i, j, err)
			}
			if mesh == nil {
				continue
			}
			mesh.Name = m.Name
			c.prims[i] = append(c.prims[i], mesh)
		}
	}

	roots := c.rootNodes()
	onPath := make(map[int]bool)
	for _, n := range roots {
		if err := c.checkNode(n, onPath); err != nil {
			return nil, err
		}
	}

	if c.flags.Has(PreTransformVertices) {
		scene.Root = &Node{Name: "root"}
		for _, n := range roots {
			c.flatten(scene, n, mgl32.Ident4())
		}
		return scene, nil
	}

	// Without baking, each glTF mesh's primitives are added once and nodes
	// reference them by index.
	base := make([]int, len(c.prims))
	for i, prims := range c.prims {
		base[i] = len(scene.Meshes)
		scene.Meshes = append(scene.Meshes, prims...)
	}
	scene.Root = &Node{Name: "root"}
	for _, n := range roots {
		scene.Root.Children = append(scene.Root.Children, c.node(n, base))
	}
	return scene, nil
}

func (c *converter) rootNodes() []int {
	if len(c.doc.Scenes) > 0 {
		s := 0
		if c.doc.Scene != nil {
			s = int(*c.doc.Scene)
		}
		if s < len(c.doc.Scenes) {
			roots := make([]int, 0, len(c.doc.Scenes[s].Nodes))
			for _, n := range c.doc.Scenes[s].Nodes {
				roots = append(roots, int(n))
			}
			return roots
		}
	}

	// No scene: every node that is nobody's child is a root.
	child := make(map[int]bool)
	for _, n := range c.doc.Nodes {
		for _, ch := range n.Children {
			child[int(ch)] = true
		}
	}
	var roots []int
	for i := range c.doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// checkNode rejects out-of-range node and mesh indices and node cycles
// below idx, so node and flatten can recurse without checks. onPath holds
// the ancestors of idx.
func (c *converter) checkNode(idx int, onPath map[int]bool) error {
	if idx < 0 || idx >= len(c.doc.Nodes) {
		return fmt.Errorf("node %d out of range", idx)
	}
	if onPath[idx] {
		return fmt.Errorf("node %d is its own ancestor", idx)
	}
	n := c.doc.Nodes[idx]
	if n.Mesh != nil {
		if m := int(*n.Mesh); m < 0 || m >= len(c.prims) {
			return fmt.Errorf("node %d: mesh %d out of range", idx, m)
		}
	}

	onPath[idx] = true
	defer delete(onPath, idx)
	for _, ch := range n.Children {
		if err := c.checkNode(int(ch), onPath); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) node(idx int, base []int) *Node {
	n := c.doc.Nodes[idx]
	out := &Node{Name: n.Name}
	if n.Mesh != nil {
		m := int(*n.Mesh)
		for j := range c.prims[m] {
			out.Meshes = append(out.Meshes, base[m]+j)
		}
	}
	for _, ch := range n.Children {
		out.Children = append(out.Children, c.node(int(ch), base))
	}
	return out
}

// flatten appends world-space copies of every mesh under node idx.
func (c *converter) flatten(scene *Scene, idx int, parent mgl32.Mat4) {
	n := c.doc.Nodes[idx]
	world := parent.Mul4(localMatrix(n))
	if n.Mesh != nil {
		for _, m := range c.prims[int(*n.Mesh)] {
			scene.Root.Meshes = append(scene.Root.Meshes, len(scene.Meshes))
			scene.Meshes = append(scene.Meshes, transformed(m, world))
		}
	}
	for _, ch := range n.Children {
		c.flatten(scene, int(ch), world)
	}
}

func localMatrix(n *gltf.Node) mgl32.Mat4 {
	var mat mgl32.Mat4
	for i, v := range n.MatrixOrDefault() {
		mat[i] = float32(v)
	}
	if mat != mgl32.Ident4() {
		return mat
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

func (c *converter) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return c.doc.Accessors[idx], nil
}

// primitive converts one glTF primitive. Point and line primitives yield nil.
func (c *converter) primitive(p *gltf.Primitive) (*Mesh, error) {
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, errors.New("primitive has no POSITION attribute")
	}

	switch p.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		logger.Debug("skipping non-triangle primitive", zap.String("path", c.path))
		return nil, nil
	}

	acr, err := c.accessor(int(posIdx))
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(c.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	mesh := &Mesh{Material: -1, Positions: make([]mgl32.Vec3, len(positions))}
	for i, v := range positions {
		mesh.Positions[i] = mgl32.Vec3(v)
	}
	if p.Material != nil {
		mesh.Material = int(*p.Material)
	}

	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		acr, err := c.accessor(int(idx))
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
		mesh.Normals = make([]mgl32.Vec3, len(normals))
		for i, v := range normals {
			mesh.Normals[i] = mgl32.Vec3(v)
		}
	}

	if idx, ok := p.Attributes[gltf.COLOR_0]; ok {
		acr, err := c.accessor(int(idx))
		if err != nil {
			return nil, err
		}
		colors, err := readColors(c.doc, acr)
		if err != nil {
			return nil, fmt.Errorf("reading colors: %w", err)
		}
		mesh.Colors = colors
	}

	for ch := 0; ch < MaxUVChannels; ch++ {
		idx, ok := p.Attributes[fmt.Sprintf("TEXCOORD_%d", ch)]
		if !ok {
			break
		}
		acr, err := c.accessor(int(idx))
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading TEXCOORD_%d: %w", ch, err)
		}
		set := make([]mgl32.Vec2, len(uvs))
		for i, v := range uvs {
			set[i] = mgl32.Vec2(v)
		}
		mesh.UVs = append(mesh.UVs, set)
	}

	if p.Indices != nil {
		acr, err := c.accessor(int(*p.Indices))
		if err != nil {
			return nil, err
		}
		mesh.Indices, err = modeler.ReadIndices(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
	}

	if p.Mode != gltf.PrimitiveTriangles {
		if !c.flags.Has(Triangulate) {
			logger.Debug("skipping strip/fan primitive without triangulation", zap.String("path", c.path))
			return nil, nil
		}
		src := mesh.Indices
		if src == nil {
			src = sequence(len(mesh.Positions))
		}
		if p.Mode == gltf.PrimitiveTriangleStrip {
			mesh.Indices = stripToTriangles(src)
		} else {
			mesh.Indices = fanToTriangles(src)
		}
	}

	if len(mesh.Normals) == 0 && c.flags.Has(GenSmoothNormals) {
		smoothNormals(mesh)
	}
	if c.flags.Has(FlipUVs) {
		flipV(mesh)
	}
	return mesh, nil
}

func readColors(doc *gltf.Document, acr *gltf.Accessor) ([]mgl32.Vec3, error) {
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, err
	}
	var out []mgl32.Vec3
	switch v := data.(type) {
	case [][3]float32:
		out = make([]mgl32.Vec3, len(v))
		for i, c := range v {
			out[i] = mgl32.Vec3(c)
		}
	case [][4]float32:
		out = make([]mgl32.Vec3, len(v))
		for i, c := range v {
			out[i] = mgl32.Vec3{c[0], c[1], c[2]}
		}
	case [][3]uint8:
		out = make([]mgl32.Vec3, len(v))
		for i, c := range v {
			out[i] = mgl32.Vec3{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255}
		}
	case [][4]uint8:
		out = make([]mgl32.Vec3, len(v))
		for i, c := range v {
			out[i] = mgl32.Vec3{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255}
		}
	case [][3]uint16:
		out = make([]mgl32.Vec3, len(v))
		for i, c := range v {
			out[i] = mgl32.Vec3{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535}
		}
	case [][4]uint16:
		out = make([]mgl32.Vec3, len(v))
		for i, c := range v {
			out[i] = mgl32.Vec3{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535}
		}
	default:
		return nil, fmt.Errorf("unsupported color accessor %T", data)
	}
	return out, nil
}

// material maps a metallic-roughness material onto the Phong-style inputs
// the model shader expects.
func (c *converter) material(m *gltf.Material) *Material {
	out := NewMaterial(m.Name)

	pbr := m.PBRMetallicRoughness
	if pbr == nil {
		pbr = &gltf.PBRMetallicRoughness{}
	}
	base := pbr.BaseColorFactorOrDefault()
	out.DiffuseColor = mgl32.Vec3{float32(base[0]), float32(base[1]), float32(base[2])}
	out.AmbientColor = out.DiffuseColor.Mul(0.1)
	out.Opacity = float32(base[3])

	roughness := float32(pbr.RoughnessFactorOrDefault())
	metallic := float32(pbr.MetallicFactorOrDefault())
	out.Shininess = roughnessToShininess(roughness)
	out.SpecularColor = mgl32.Vec3{0.04, 0.04, 0.04}.Mul(1 - metallic).Add(out.DiffuseColor.Mul(metallic))
	out.ShininessStrength = 1

	e := m.EmissiveFactor
	out.EmissiveColor = mgl32.Vec3{float32(e[0]), float32(e[1]), float32(e[2])}

	if pbr.BaseColorTexture != nil {
		c.addTexture(out, RoleDiffuse, int(pbr.BaseColorTexture.Index), int(pbr.BaseColorTexture.TexCoord))
	}
	if pbr.MetallicRoughnessTexture != nil {
		t := pbr.MetallicRoughnessTexture
		c.addTexture(out, RoleMetalness, int(t.Index), int(t.TexCoord))
		c.addTexture(out, RoleDiffuseRoughness, int(t.Index), int(t.TexCoord))
	}
	if m.EmissiveTexture != nil {
		c.addTexture(out, RoleEmissive, int(m.EmissiveTexture.Index), int(m.EmissiveTexture.TexCoord))
	}
	if m.NormalTexture != nil && m.NormalTexture.Index != nil {
		c.addTexture(out, RoleNormals, int(*m.NormalTexture.Index), int(m.NormalTexture.TexCoord))
	}
	return out
}

// roughnessToShininess converts a GGX roughness to a Blinn-Phong exponent.
func roughnessToShininess(roughness float32) float32 {
	a := roughness * roughness
	if a < 1e-3 {
		a = 1e-3
	}
	s := 2/(a*a) - 2
	if s > 1024 {
		s = 1024
	}
	if s < 1 {
		s = 1
	}
	return s
}

func (c *converter) addTexture(m *Material, role TextureRole, texIdx, uvChannel int) {
	ref, ok := c.textureRef(texIdx)
	if !ok {
		return
	}
	ref.UVChannel = uvChannel
	m.Textures[role] = append(m.Textures[role], ref)
}

func (c *converter) textureRef(texIdx int) (TextureRef, bool) {
	if texIdx < 0 || texIdx >= len(c.doc.Textures) {
		return TextureRef{}, false
	}
	tex := c.doc.Textures[texIdx]
	if tex.Source == nil {
		return TextureRef{}, false
	}
	imgIdx := int(*tex.Source)
	if imgIdx >= len(c.doc.Images) {
		return TextureRef{}, false
	}
	img := c.doc.Images[imgIdx]
	key := fmt.Sprintf("%s#image%d", filepath.Clean(c.path), imgIdx)

	switch {
	case img.BufferView != nil:
		data, err := c.bufferViewBytes(int(*img.BufferView))
		if err != nil {
			logger.Warn("embedded image unreadable", zap.String("key", key), zap.Error(err))
			return TextureRef{}, false
		}
		return TextureRef{Path: key, Data: data}, true
	case img.IsEmbeddedResource():
		data, err := img.MarshalData()
		if err != nil {
			logger.Warn("data URI image unreadable", zap.String("key", key), zap.Error(err))
			return TextureRef{}, false
		}
		return TextureRef{Path: key, Data: data}, true
	case img.URI != "":
		return TextureRef{Path: img.URI}, true
	}
	return TextureRef{}, false
}

func (c *converter) bufferViewBytes(idx int) ([]byte, error) {
	if idx >= len(c.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", idx)
	}
	bv := c.doc.BufferViews[idx]
	if int(bv.Buffer) >= len(c.doc.Buffers) {
		return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
	}
	buf := c.doc.Buffers[bv.Buffer].Data
	start, end := int(bv.ByteOffset), int(bv.ByteOffset)+int(bv.ByteLength)
	if end > len(buf) {
		return nil, fmt.Errorf("buffer view %d exceeds buffer", idx)
	}
	data := make([]byte, end-start)
	copy(data, buf[start:end])
	return data, nil
}
