package model

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/importer"
	"github.com/Faultbox/simple3d/internal/engine/shader"
	"github.com/Faultbox/simple3d/internal/engine/texture"
	"github.com/Faultbox/simple3d/internal/logger"
)

// MaxTexturesPerRole matches the sampler array size declared by the model
// shader. Extra textures of a role are ignored when binding.
const MaxTexturesPerRole = 2

// TextureSlot references a texture of the owning Model.
type TextureSlot struct {
	Texture int
	// UVChannel is the explicit coordinate set, or -1 to use the slot's
	// position within its role.
	UVChannel int
}

// Material is a set of per-role texture slots plus shading parameters.
type Material struct {
	id uint64

	Name              string
	AmbientColor      mgl32.Vec3
	DiffuseColor      mgl32.Vec3
	SpecularColor     mgl32.Vec3
	EmissiveColor     mgl32.Vec3
	Opacity           float32
	Shininess         float32
	ShininessStrength float32
	Textures          [importer.RoleCount][]TextureSlot
}

// NewMaterial returns a material with neutral defaults and a fresh identity.
func NewMaterial(name string) *Material {
	return &Material{
		id:                gpu.NextID(),
		Name:              name,
		Opacity:           1,
		ShininessStrength: 1,
	}
}

// ID identifies the material for cache comparisons.
func (m *Material) ID() uint64 { return m.id }

// Use binds the material into the current program. Textures get sequential
// units in role order, starting at 0 and shared across roles.
func (m *Material) Use(p *shader.Program, textures []*texture.Texture) {
	var unit int32
	for role := importer.TextureRole(0); role < importer.RoleCount; role++ {
		slots := m.Textures[role]
		if len(slots) > MaxTexturesPerRole {
			logger.Debug("texture role truncated",
				zap.String("material", m.Name),
				zap.Stringer("role", role),
				zap.Int("textures", len(slots)),
				zap.Int("max", MaxTexturesPerRole))
			slots = slots[:MaxTexturesPerRole]
		}
		for i, s := range slots {
			textures[s.Texture].Bind(uint32(unit))
			p.SetInt(fmt.Sprintf("%sTextures[%d]", role, i), unit)

			uv := s.UVChannel
			if uv < 0 {
				uv = i
			}
			p.SetInt(fmt.Sprintf("%sUVChannels[%d]", role, i), int32(uv))
			unit++
		}
	}

	p.SetVec3("ambientColor", m.AmbientColor)
	p.SetVec3("diffuseColor", m.DiffuseColor)
	p.SetVec3("specularColor", m.SpecularColor)
	p.SetVec3("emissiveColor", m.EmissiveColor)
	p.SetFloat("opacity", m.Opacity)
	p.SetFloat("shininess", m.Shininess)
	p.SetFloat("shininessStrength", m.ShininessStrength)
	for role := importer.TextureRole(0); role < importer.RoleCount; role++ {
		p.SetInt(role.String()+"TexturesCount", int32(min(len(m.Textures[role]), MaxTexturesPerRole)))
	}
}
