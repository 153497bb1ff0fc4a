package renderer

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CachePair is the last value sent to the GPU and whether the latest update
// changed it.
type CachePair[T comparable] struct {
	Value   T
	Changed bool
}

// update runs apply and stores v when v differs from the cached value.
func (c *CachePair[T]) update(v T, apply func()) {
	if c.Changed = c.Value != v; !c.Changed {
		return
	}
	apply()
	c.Value = v
}

// Size is a framebuffer size in pixels.
type Size struct {
	Width, Height int32
}

type projectionView struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
}

const noID = ^uint64(0)

var noVec3 = mgl32.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}

// Cache holds the uniform values last written to the scene programs.
type Cache struct {
	ModelProgram   CachePair[uint64]
	Material       CachePair[uint64]
	ModelTransform CachePair[mgl32.Mat4]
	ProjectionView CachePair[projectionView]
	CameraPosition CachePair[mgl32.Vec3]
	LightPosition  CachePair[mgl32.Vec3]

	FramebufferSize CachePair[Size]
}

func newCache() Cache {
	var c Cache
	c.ModelProgram.Value = noID
	c.clear()
	return c
}

// clear forgets every uniform value so they are all rewritten. The program
// identity and framebuffer size are kept; they are what trigger a clear.
func (c *Cache) clear() {
	c.Material.Value = noID
	c.ModelTransform.Value = mgl32.Mat4{}
	c.ProjectionView.Value = projectionView{}
	c.CameraPosition.Value = noVec3
	c.LightPosition.Value = noVec3
}
