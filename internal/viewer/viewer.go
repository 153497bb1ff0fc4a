// Package viewer ties the scene, renderer and background model loading
// together and routes control panel events to them.
package viewer

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/engine/camera"
	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/importer"
	"github.com/Faultbox/simple3d/internal/engine/model"
	"github.com/Faultbox/simple3d/internal/engine/postprocess"
	"github.com/Faultbox/simple3d/internal/engine/renderer"
	"github.com/Faultbox/simple3d/internal/engine/scene"
	"github.com/Faultbox/simple3d/internal/engine/texture"
	"github.com/Faultbox/simple3d/internal/logger"
)

// Input is the per-frame key and mouse state.
type Input = camera.Input

type loadResult struct {
	path  string
	model *model.Model
	err   error
	took  time.Duration
}

// Viewer is driven by the render loop: ProcessInput then Render once per
// frame. Every method must be called from the render thread.
type Viewer struct {
	dev      gpu.Device
	scene    *scene.Scene
	renderer *renderer.Renderer
	imp      importer.Importer
	dec      texture.Decoder
	loadCfg  model.LoadConfig

	listener Listener

	// pending receives the single result of the latest LoadModel. A new
	// load replaces the channel, so results of abandoned loads are dropped.
	pending chan loadResult
}

// New returns a viewer. SetMediator must be called before the first frame.
func New(dev gpu.Device, s *scene.Scene, r *renderer.Renderer, imp importer.Importer, dec texture.Decoder, cfg model.LoadConfig) *Viewer {
	return &Viewer{
		dev:      dev,
		scene:    s,
		renderer: r,
		imp:      imp,
		dec:      dec,
		loadCfg:  cfg,
	}
}

// SetMediator sets who receives load and reload notifications.
func (v *Viewer) SetMediator(l Listener) { v.listener = l }

// Scene returns the scene the viewer draws.
func (v *Viewer) Scene() *scene.Scene { return v.scene }

// Renderer returns the renderer.
func (v *Viewer) Renderer() *renderer.Renderer { return v.renderer }

func (v *Viewer) mustHaveMediator() {
	if v.listener == nil {
		panic("viewer: mediator must be set before the first frame")
	}
}

// ProcessInput moves the camera.
func (v *Viewer) ProcessInput(in Input, dt float32) {
	v.mustHaveMediator()
	v.scene.Camera.Update(in, dt)
}

// Render installs a finished background load, then draws a frame. Nothing
// is drawn while the framebuffer has no area, as when the window is
// minimized.
func (v *Viewer) Render(width, height int32) {
	v.mustHaveMediator()
	v.poll()

	if width <= 0 || height <= 0 {
		return
	}
	v.renderer.Render(v.scene, width, height)
}

func (v *Viewer) poll() {
	select {
	case r := <-v.pending:
		v.pending = nil
		v.install(r)
	default:
	}
}

func (v *Viewer) install(r loadResult) {
	if r.err != nil {
		logger.Warn("model load failed", zap.String("path", r.path), zap.Error(r.err))
		v.listener.NotifyError(LoadModelFailed, r.err.Error())
		return
	}
	if err := r.model.Complete(v.dev); err != nil {
		logger.Warn("model upload failed", zap.String("path", r.path), zap.Error(err))
		v.listener.NotifyError(LoadModelFailed, err.Error())
		return
	}
	v.scene.SetModel(r.model)
	logger.Info("model installed", zap.String("path", r.path), zap.Duration("took", r.took))
	v.listener.Notify(ModelLoaded)
}

// Loading reports whether a background load has not been picked up yet.
func (v *Viewer) Loading() bool { return v.pending != nil }

// LoadModel releases the displayed model and starts importing path in the
// background with the current loading config. A load already in flight is
// left to finish and its result is discarded.
func (v *Viewer) LoadModel(path string) {
	v.scene.SetModel(nil)

	ch := make(chan loadResult, 1)
	v.pending = ch
	go load(ch, v.imp, v.dec, path, v.loadCfg)

	logger.Info("model load started", zap.String("path", path), zap.Bool("flipUVs", v.loadCfg.FlipUVs))
}

func load(ch chan<- loadResult, imp importer.Importer, dec texture.Decoder, path string, cfg model.LoadConfig) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			ch <- loadResult{path: path, err: fmt.Errorf("load model %s: %v", path, p)}
		}
	}()
	m, err := model.Load(imp, dec, path, cfg)
	ch <- loadResult{path: path, model: m, err: err, took: time.Since(start)}
}

// ReloadProgram recompiles the model program. On failure the mediator is
// notified and the current program stays in use.
func (v *Viewer) ReloadProgram() {
	if err := v.scene.ReloadModelProgram(); err != nil {
		logger.Warn("model program reload failed", zap.Error(err))
		v.listener.NotifyError(ReloadProgramFailed, err.Error())
	}
}

// ShaderChanged reloads the programs built from the named shader file.
// Only the model program and the postprocess effects are reloadable.
func (v *Viewer) ShaderChanged(name string) {
	stage := strings.TrimSuffix(path.Base(name), path.Ext(name))
	pipeline := v.renderer.Pipeline()

	switch stage {
	case scene.ModelProgram:
		v.ReloadProgram()
		return
	case postprocess.VertexStage:
		for _, id := range pipeline.IDs() {
			v.reloadEffect(id)
		}
		return
	}
	for _, id := range pipeline.IDs() {
		if strings.ToLower(id) == stage {
			v.reloadEffect(id)
			return
		}
	}
	logger.Debug("shader change ignored", zap.String("file", name))
}

func (v *Viewer) reloadEffect(id string) {
	if err := v.renderer.Pipeline().ReloadEffect(id); err != nil {
		logger.Warn("effect reload failed", zap.String("effect", id), zap.Error(err))
		v.listener.NotifyError(ReloadProgramFailed, err.Error())
	}
}

// SetPostprocessActive enables or disables an effect. Unknown ids panic.
func (v *Viewer) SetPostprocessActive(id string, active bool) {
	v.renderer.Pipeline().SetActive(id, active)
}

// SetModelTransform places the displayed model, if any.
func (v *Viewer) SetModelTransform(t model.Transform) {
	if v.scene.Model != nil {
		v.scene.Model.SetTransform(t)
	}
}

// SetCameraSettings updates camera speed and sensitivity.
func (v *Viewer) SetCameraSettings(s camera.Settings) { v.scene.Camera.SetSettings(s) }

// SetLightPosition moves the point light.
func (v *Viewer) SetLightPosition(p mgl32.Vec3) { v.scene.LightPosition = p }

// SetDrawLight shows or hides the light marker.
func (v *Viewer) SetDrawLight(draw bool) { v.renderer.DrawLight = draw }

// SetModelLoadingConfig sets the options used by later loads.
func (v *Viewer) SetModelLoadingConfig(cfg model.LoadConfig) { v.loadCfg = cfg }

// ModelLoadingConfig returns the options used by the next load.
func (v *Viewer) ModelLoadingConfig() model.LoadConfig { return v.loadCfg }
