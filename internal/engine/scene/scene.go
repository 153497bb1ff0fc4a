// Package scene holds the renderable world: camera, the loaded model, the
// point light and the skybox, plus the programs that shade them.
package scene

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/engine/camera"
	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/model"
	"github.com/Faultbox/simple3d/internal/engine/shader"
	"github.com/Faultbox/simple3d/internal/engine/texture"
	"github.com/Faultbox/simple3d/internal/logger"
)

// Program names, resolved to <name>.vs and <name>.fs in the shader FS.
const (
	ModelProgram  = "model"
	LightProgram  = "light"
	SkyboxProgram = "skybox"
)

// SkyboxUnit is the texture unit the skybox cubemap is bound to.
const SkyboxUnit = 0

// Config locates the scene's on-disk resources.
type Config struct {
	Shaders   fs.FS
	SkyboxDir string
}

// Scene is owned by the render thread. Model is nil until the first load
// completes.
type Scene struct {
	Camera        *camera.Camera
	Model         *model.Model
	LightPosition mgl32.Vec3

	Light        *model.Mesh
	LightProgram *shader.Program

	Skybox        *model.Mesh
	SkyboxProgram *shader.Program
	SkyboxTexture *texture.Texture

	ModelProgram *shader.Program

	dev     gpu.Device
	shaders fs.FS
}

// New compiles the programs, builds the light and skybox meshes and loads
// the skybox cubemap. It must run on the render thread.
func New(dev gpu.Device, dec texture.Decoder, cfg Config) (*Scene, error) {
	s := &Scene{
		Camera:  camera.New(),
		dev:     dev,
		shaders: cfg.Shaders,
	}

	var err error
	if s.ModelProgram, err = shader.Load(dev, cfg.Shaders, ModelProgram); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	if s.LightProgram, err = shader.Load(dev, cfg.Shaders, LightProgram); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("scene: %w", err)
	}
	if s.SkyboxProgram, err = shader.Load(dev, cfg.Shaders, SkyboxProgram); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("scene: %w", err)
	}
	s.SkyboxProgram.Use()
	s.SkyboxProgram.SetInt("skybox", SkyboxUnit)

	if s.SkyboxTexture, err = texture.LoadCubemap(dev, dec, SkyboxPaths(cfg.SkyboxDir)); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("scene skybox: %w", err)
	}

	vertices, indices := sphere(lightRadius, sphereStacks, sphereSector)
	s.Light = model.NewCompletedMesh(dev, vertices, indices)
	s.Skybox = model.NewCompletedMesh(dev, skybox(), nil)

	logger.Info("scene ready", zap.String("skybox", cfg.SkyboxDir))
	return s, nil
}

// SkyboxPaths returns the six face images of dir in cubemap order.
func SkyboxPaths(dir string) [6]string {
	var paths [6]string
	for i, face := range texture.CubemapFaces {
		paths[i] = filepath.Join(dir, face+".jpg")
	}
	return paths
}

// SetModel installs m as the displayed model, releasing the previous one.
func (s *Scene) SetModel(m *model.Model) {
	if s.Model == m {
		return
	}
	if s.Model != nil {
		s.Model.Release()
	}
	s.Model = m
}

// ReloadModelProgram recompiles the model program from its sources. On
// failure the current program stays in use.
func (s *Scene) ReloadModelProgram() error {
	p, err := shader.Load(s.dev, s.shaders, ModelProgram)
	if err != nil {
		return err
	}
	s.ModelProgram.Destroy()
	s.ModelProgram = p
	logger.Info("model program reloaded", zap.Uint64("program", p.ID()))
	return nil
}

// Destroy releases every GPU resource the scene owns. Safe to call more than
// once.
func (s *Scene) Destroy() {
	s.SetModel(nil)
	for _, p := range []*shader.Program{s.ModelProgram, s.LightProgram, s.SkyboxProgram} {
		if p != nil {
			p.Destroy()
		}
	}
	for _, m := range []*model.Mesh{s.Light, s.Skybox} {
		if m != nil {
			m.Release()
		}
	}
	if s.SkyboxTexture != nil {
		s.SkyboxTexture.Release()
	}
}
