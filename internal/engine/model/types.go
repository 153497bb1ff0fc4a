// Package model holds imported models: meshes, materials and textures with
// a two-phase lifecycle (CPU load off the render thread, GPU completion on it).
package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/importer"
)

// MaxUVChannels is the fixed number of UV sets stored per vertex.
const MaxUVChannels = importer.MaxUVChannels

// Vertex is the interleaved vertex layout uploaded for every mesh.
// Unused UV channels stay zero.
type Vertex struct {
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	Color     mgl32.Vec3
	TexCoords [MaxUVChannels]mgl32.Vec2
}

// VertexFloats is the size of one Vertex in floats.
const VertexFloats = 3 + 3 + 3 + 2*MaxUVChannels

// Attribute locations. UV channel i is at AttribUV0+i.
const (
	AttribPosition uint32 = 0
	AttribNormal   uint32 = 1
	AttribColor    uint32 = 2
	AttribUV0      uint32 = 3
)

// VertexAttribs describes the Vertex layout to the device.
func VertexAttribs() []gpu.Attrib {
	attribs := []gpu.Attrib{
		{Location: AttribPosition, Size: 3, Offset: 0},
		{Location: AttribNormal, Size: 3, Offset: 3},
		{Location: AttribColor, Size: 3, Offset: 6},
	}
	for i := 0; i < MaxUVChannels; i++ {
		attribs = append(attribs, gpu.Attrib{Location: AttribUV0 + uint32(i), Size: 2, Offset: 9 + 2*i})
	}
	return attribs
}

// Transform is a translation, Euler rotation in degrees and scale.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Vec3
	Scale       mgl32.Vec3
}

// IdentityTransform leaves a model where the importer put it.
func IdentityTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix composes translate · rotateZ · rotateY · rotateX · scale, so
// vertices are scaled first and translated last.
func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z()).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(t.Rotation.Z()))).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(t.Rotation.Y()))).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(t.Rotation.X()))).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// emptyBounds is inverted so the first Extend sets both corners.
func emptyBounds() Bounds {
	const big = 1e30
	return Bounds{Min: mgl32.Vec3{big, big, big}, Max: mgl32.Vec3{-big, -big, -big}}
}

// Extend grows b to contain p.
func (b *Bounds) Extend(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

// Merge grows b to contain o.
func (b *Bounds) Merge(o Bounds) {
	if o.Empty() {
		return
	}
	b.Extend(o.Min)
	b.Extend(o.Max)
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool { return b.Min.X() > b.Max.X() }

// Center returns the box center.
func (b Bounds) Center() mgl32.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

// Size returns the box extent along each axis.
func (b Bounds) Size() mgl32.Vec3 { return b.Max.Sub(b.Min) }

// LoadConfig holds the caller-configurable import options.
type LoadConfig struct {
	FlipUVs bool
}

// baselineFlags are applied to every import.
const baselineFlags = importer.Triangulate | importer.GenSmoothNormals |
	importer.CalcTangentSpace | importer.PreTransformVertices

// Flags returns the importer flags for c.
func (c LoadConfig) Flags() importer.Flags {
	f := baselineFlags
	if c.FlipUVs {
		f |= importer.FlipUVs
	}
	return f
}
