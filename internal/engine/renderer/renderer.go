// Package renderer draws a scene frame by frame, writing uniforms only when
// their values change.
package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/model"
	"github.com/Faultbox/simple3d/internal/engine/postprocess"
	"github.com/Faultbox/simple3d/internal/engine/scene"
	"github.com/Faultbox/simple3d/internal/logger"
)

// Projection parameters.
const (
	FieldOfView = 45.0 // degrees
	Near        = 0.1
	Far         = 100.0
)

// ClearColor is the background behind the skybox.
var ClearColor = mgl32.Vec4{0.01, 0.01, 0.01, 1}

// Renderer draws the model, the light marker and the skybox, in that order,
// through the postprocess pipeline.
type Renderer struct {
	dev      gpu.Device
	pipeline *postprocess.Pipeline

	// DrawLight shows the light position as a small sphere.
	DrawLight bool

	cache Cache
}

// New returns a renderer compositing through pipeline.
func New(dev gpu.Device, pipeline *postprocess.Pipeline) *Renderer {
	return &Renderer{
		dev:       dev,
		pipeline:  pipeline,
		DrawLight: true,
		cache:     newCache(),
	}
}

// Pipeline returns the postprocess pipeline frames are composited through.
func (r *Renderer) Pipeline() *postprocess.Pipeline { return r.pipeline }

// Render draws one frame of s at the given framebuffer size.
func (r *Renderer) Render(s *scene.Scene, width, height int32) {
	r.checkCache(s, Size{width, height})

	r.pipeline.Start()
	r.dev.SetDepthTest(true)
	r.dev.Clear(ClearColor[0], ClearColor[1], ClearColor[2], ClearColor[3])

	if s.Model != nil {
		s.ModelProgram.Use()
		s.Model.Draw(s.ModelProgram, r.bindMaterial)
	}
	if r.DrawLight {
		s.LightProgram.Use()
		s.Light.Draw()
	}
	r.drawSkybox(s)

	r.pipeline.Finalize()
	if len(r.pipeline.Active()) > 0 {
		// Effects sample from ScreenTextureUnit, which a material may also use.
		r.cache.Material.Value = noID
	}
}

// checkCache compares the frame's inputs against the cache and writes the
// uniforms whose values changed.
func (r *Renderer) checkCache(s *scene.Scene, size Size) {
	c := &r.cache
	projection := mgl32.Perspective(mgl32.DegToRad(FieldOfView), float32(size.Width)/float32(size.Height), Near, Far)
	view := s.Camera.ViewMatrix()

	c.ModelProgram.update(s.ModelProgram.ID(), c.clear)
	c.FramebufferSize.update(size, func() {
		c.clear()
		r.dev.Viewport(0, 0, size.Width, size.Height)
		r.pipeline.Resize(size.Width, size.Height)
		logger.Debug("framebuffer resized", zap.Int32("width", size.Width), zap.Int32("height", size.Height))
	})

	c.ProjectionView.update(projectionView{projection, view}, func() {
		pv := projection.Mul4(view)
		s.ModelProgram.Use()
		s.ModelProgram.SetMat4("pv", pv)
		s.LightProgram.Use()
		s.LightProgram.SetMat4("pv", pv)

		// The skybox follows the camera's rotation only.
		s.SkyboxProgram.Use()
		s.SkyboxProgram.SetMat4("pv", projection.Mul4(view.Mat3().Mat4()))
	})

	c.CameraPosition.update(s.Camera.Position(), func() {
		s.ModelProgram.Use()
		s.ModelProgram.SetVec3("cameraPosition", s.Camera.Position())
	})

	c.LightPosition.update(s.LightPosition, func() {
		s.ModelProgram.Use()
		s.ModelProgram.SetVec3("lightPosition", s.LightPosition)
		s.LightProgram.Use()
		s.LightProgram.SetMat4("model", mgl32.Translate3D(s.LightPosition.Elem()))
	})

	if s.Model != nil {
		c.ModelTransform.update(s.Model.Matrix(), func() {
			s.ModelProgram.Use()
			s.ModelProgram.SetMat4("model", s.Model.Matrix())
		})
	}
}

// bindMaterial reports whether mat differs from the last bound material.
func (r *Renderer) bindMaterial(mat *model.Material) bool {
	bind := false
	r.cache.Material.update(mat.ID(), func() { bind = true })
	return bind
}

func (r *Renderer) drawSkybox(s *scene.Scene) {
	r.dev.SetDepthFunc(gpu.DepthLessEqual)
	s.SkyboxProgram.Use()
	s.SkyboxTexture.Bind(scene.SkyboxUnit)
	s.Skybox.Draw()
	r.dev.SetDepthFunc(gpu.DepthLess)
}
