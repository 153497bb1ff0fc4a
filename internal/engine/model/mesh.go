package model

import (
	"fmt"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
)

// Mesh is a vertex list with optional indices and the index of its material
// in the owning Model. A Mesh owns its GPU buffers; do not copy.
type Mesh struct {
	vertices []Vertex
	indices  []uint32
	material int
	bounds   Bounds

	vertexCount int
	indexCount  int

	dev       gpu.Device
	va        gpu.VertexArray
	completed bool
}

// NewMesh builds a mesh from CPU data. material is an index into the owning
// Model's materials, or -1.
func NewMesh(vertices []Vertex, indices []uint32, material int) *Mesh {
	b := emptyBounds()
	for _, v := range vertices {
		b.Extend(v.Position)
	}
	return &Mesh{
		vertices:    vertices,
		indices:     indices,
		material:    material,
		bounds:      b,
		vertexCount: len(vertices),
		indexCount:  len(indices),
	}
}

// NewCompletedMesh builds and uploads a mesh in one step, for geometry
// created on the render thread.
func NewCompletedMesh(dev gpu.Device, vertices []Vertex, indices []uint32) *Mesh {
	m := NewMesh(vertices, indices, -1)
	m.Complete(dev)
	return m
}

// Material returns the material index, -1 when the mesh has none.
func (m *Mesh) Material() int { return m.material }

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return m.vertexCount }

// IndexCount returns the number of indices, 0 for non-indexed meshes.
func (m *Mesh) IndexCount() int { return m.indexCount }

// Bounds returns the bounding box of the vertex positions.
func (m *Mesh) Bounds() Bounds { return m.bounds }

// Completed reports whether GPU buffers exist.
func (m *Mesh) Completed() bool { return m.completed }

// Complete uploads the vertex and index data. It must run on the render
// thread and panics when the mesh was already completed.
func (m *Mesh) Complete(dev gpu.Device) {
	if m.completed {
		panic(fmt.Sprintf("mesh with %d vertices: already completed", m.vertexCount))
	}
	m.dev = dev
	m.va = dev.CreateVertexArray(interleave(m.vertices), VertexFloats, VertexAttribs(), m.indices)
	m.completed = true
	m.vertices = nil
	m.indices = nil
}

// Draw issues one draw call: indexed when the mesh has indices.
func (m *Mesh) Draw() {
	if m.indexCount > 0 {
		m.dev.DrawElements(m.va, int32(m.indexCount))
		return
	}
	m.dev.DrawArrays(m.va, int32(m.vertexCount))
}

// Release frees the GPU buffers. Safe to call more than once.
func (m *Mesh) Release() {
	if m.va.VAO == 0 {
		return
	}
	m.dev.DeleteVertexArray(m.va)
	m.va = gpu.VertexArray{}
}

func interleave(vertices []Vertex) []float32 {
	out := make([]float32, 0, len(vertices)*VertexFloats)
	for _, v := range vertices {
		out = append(out, v.Position[:]...)
		out = append(out, v.Normal[:]...)
		out = append(out, v.Color[:]...)
		for _, uv := range v.TexCoords {
			out = append(out, uv[:]...)
		}
	}
	return out
}
