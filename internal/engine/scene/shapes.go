package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/simple3d/internal/engine/model"
)

// Light sphere tessellation.
const (
	lightRadius  = 0.1
	sphereStacks = 30
	sphereSector = 30
)

// sphere builds a UV sphere around the origin. Stacks run from the north
// pole (+Z) to the south pole; each ring repeats its first vertex so the
// texture seam has its own coordinates.
func sphere(radius float32, stacks, sectors int) ([]model.Vertex, []uint32) {
	vertices := make([]model.Vertex, 0, (stacks+1)*(sectors+1))
	stackStep := math32.Pi / float32(stacks)
	sectorStep := 2 * math32.Pi / float32(sectors)

	for i := 0; i <= stacks; i++ {
		stackAngle := math32.Pi/2 - float32(i)*stackStep
		xy := radius * math32.Cos(stackAngle)
		z := radius * math32.Sin(stackAngle)

		for j := 0; j <= sectors; j++ {
			sectorAngle := float32(j) * sectorStep
			pos := mgl32.Vec3{xy * math32.Cos(sectorAngle), xy * math32.Sin(sectorAngle), z}

			var v model.Vertex
			v.Position = pos
			v.Normal = pos.Mul(1 / radius)
			v.Color = mgl32.Vec3{1, 1, 1}
			v.TexCoords[0] = mgl32.Vec2{float32(j) / float32(sectors), float32(i) / float32(stacks)}
			vertices = append(vertices, v)
		}
	}

	var indices []uint32
	for i := 0; i < stacks; i++ {
		k1 := uint32(i * (sectors + 1))
		k2 := k1 + uint32(sectors) + 1
		for j := 0; j < sectors; j, k1, k2 = j+1, k1+1, k2+1 {
			// The pole rings collapse to a point, so skip their degenerate halves.
			if i != 0 {
				indices = append(indices, k1, k2, k1+1)
			}
			if i != stacks-1 {
				indices = append(indices, k1+1, k2, k2+1)
			}
		}
	}
	return vertices, indices
}

// skyboxPositions is a unit cube seen from inside, 12 triangles.
var skyboxPositions = [36]mgl32.Vec3{
	{-1, 1, -1}, {-1, -1, -1}, {1, -1, -1},
	{1, -1, -1}, {1, 1, -1}, {-1, 1, -1},

	{-1, -1, 1}, {-1, -1, -1}, {-1, 1, -1},
	{-1, 1, -1}, {-1, 1, 1}, {-1, -1, 1},

	{1, -1, -1}, {1, -1, 1}, {1, 1, 1},
	{1, 1, 1}, {1, 1, -1}, {1, -1, -1},

	{-1, -1, 1}, {-1, 1, 1}, {1, 1, 1},
	{1, 1, 1}, {1, -1, 1}, {-1, -1, 1},

	{-1, 1, -1}, {1, 1, -1}, {1, 1, 1},
	{1, 1, 1}, {-1, 1, 1}, {-1, 1, -1},

	{-1, -1, -1}, {-1, -1, 1}, {1, -1, -1},
	{1, -1, -1}, {-1, -1, 1}, {1, -1, 1},
}

func skybox() []model.Vertex {
	vertices := make([]model.Vertex, len(skyboxPositions))
	for i, p := range skyboxPositions {
		vertices[i].Position = p
	}
	return vertices
}
