// Package importer parses model files into a format-neutral scene graph.
//
// The graph mirrors what the model package needs and nothing more: nodes
// referencing meshes by index, meshes with per-vertex attribute arrays and
// a triangle index list, and materials with colors, scalars and per-role
// texture references. Importers never touch the GPU and are safe to run
// off the render thread.
package importer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxUVChannels is the number of texture coordinate sets kept per vertex.
const MaxUVChannels = 8

// Flags are post-processing steps applied while importing.
type Flags uint32

const (
	// Triangulate converts strips and fans to triangle lists.
	Triangulate Flags = 1 << iota
	// GenSmoothNormals computes per-vertex normals for meshes that have none.
	GenSmoothNormals
	// CalcTangentSpace requests tangent frames. Meshes carry no tangent
	// attribute, so the flag is accepted and ignored.
	CalcTangentSpace
	// PreTransformVertices bakes node transforms into vertex data and
	// flattens the hierarchy into the root node.
	PreTransformVertices
	// FlipUVs replaces v with 1-v in every UV channel.
	FlipUVs
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// TextureRole is the shading purpose of a material texture.
type TextureRole int

const (
	RoleDiffuse TextureRole = iota
	RoleSpecular
	RoleEmissive
	RoleNormals
	RoleMetalness
	RoleDiffuseRoughness

	RoleCount = 6
)

var roleNames = [RoleCount]string{"diffuse", "specular", "emissive", "normals", "metalness", "diffuseRoughness"}

// String returns the role's uniform name prefix.
func (r TextureRole) String() string {
	if r < 0 || int(r) >= RoleCount {
		return fmt.Sprintf("TextureRole(%d)", int(r))
	}
	return roleNames[r]
}

// Scene is an imported model.
type Scene struct {
	Root      *Node
	Meshes    []*Mesh
	Materials []*Material
}

// Node is one element of the scene hierarchy.
type Node struct {
	Name     string
	Meshes   []int
	Children []*Node
}

// Mesh is a triangle list with optional indices. Attribute slices are
// either empty or as long as Positions.
type Mesh struct {
	Name      string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Colors    []mgl32.Vec3
	// UVs holds up to MaxUVChannels coordinate sets.
	UVs      [][]mgl32.Vec2
	Indices  []uint32
	Material int // index into Scene.Materials, -1 when absent
}

// TextureRef points at a texture image.
type TextureRef struct {
	// Path is relative to the model file, or a unique key when Data is set.
	Path string
	// Data holds encoded image bytes embedded in the model file.
	Data []byte
	// UVChannel is the explicit coordinate set, or -1 when unspecified.
	UVChannel int
}

// Embedded reports whether the image bytes came from inside the model.
func (r TextureRef) Embedded() bool { return r.Data != nil }

// Material holds the shading inputs of one imported material.
type Material struct {
	Name              string
	AmbientColor      mgl32.Vec3
	DiffuseColor      mgl32.Vec3
	SpecularColor     mgl32.Vec3
	EmissiveColor     mgl32.Vec3
	Opacity           float32
	Shininess         float32
	ShininessStrength float32
	Textures          [RoleCount][]TextureRef
}

// NewMaterial returns a material with neutral defaults.
func NewMaterial(name string) *Material {
	return &Material{Name: name, Opacity: 1, ShininessStrength: 1}
}

// Importer parses a model file.
type Importer interface {
	Import(path string, flags Flags) (*Scene, error)
}

// ParseError carries the diagnostic of a failed import.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
