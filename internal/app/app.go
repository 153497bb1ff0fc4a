// Package app assembles the viewer from configuration and drives it one
// frame at a time for the frontends.
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/config"
	"github.com/Faultbox/simple3d/internal/engine/camera"
	"github.com/Faultbox/simple3d/internal/engine/debug"
	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/importer"
	"github.com/Faultbox/simple3d/internal/engine/model"
	"github.com/Faultbox/simple3d/internal/engine/postprocess"
	"github.com/Faultbox/simple3d/internal/engine/renderer"
	"github.com/Faultbox/simple3d/internal/engine/scene"
	"github.com/Faultbox/simple3d/internal/engine/shader"
	"github.com/Faultbox/simple3d/internal/engine/texture"
	"github.com/Faultbox/simple3d/internal/logger"
	"github.com/Faultbox/simple3d/internal/viewer"
	"github.com/Faultbox/simple3d/res"
)

// shaderWatcher is the part of shader.Watcher the frame loop uses.
type shaderWatcher interface {
	Changed() <-chan struct{}
	Pending() []string
	Close() error
}

// App owns everything the render thread touches.
type App struct {
	dev gpu.Device

	scene    *scene.Scene
	pipeline *postprocess.Pipeline
	viewer   *viewer.Viewer
	mediator *viewer.Mediator
	capture  *debug.ScreenshotCapture
	watcher  shaderWatcher

	now       func() time.Time
	lastFrame time.Time
	// width and height are the size of the last frame drawn.
	width, height int32
}

// New builds the scene, postprocess pipeline, renderer and viewer. It must
// run on the render thread with a current GL context. A startup model in
// the config starts loading immediately.
func New(dev gpu.Device, dec texture.Decoder, imp importer.Importer, cfg *config.Config) (*App, error) {
	logger.Info("initializing viewer",
		zap.String("shaders", shaderSource(cfg)),
		zap.String("skybox", cfg.Viewer.SkyboxDir),
		zap.Strings("postprocesses", cfg.Viewer.Postprocesses))

	a := &App{
		dev:     dev,
		capture: debug.NewScreenshotCapture(cfg.Screenshots.Dir, cfg.Screenshots.Prefix),
		now:     time.Now,
	}

	shaders := shaderFS(cfg)

	var err error
	a.scene, err = scene.New(dev, dec, scene.Config{Shaders: shaders, SkyboxDir: cfg.Viewer.SkyboxDir})
	if err != nil {
		return nil, fmt.Errorf("create scene: %w", err)
	}

	a.pipeline, err = postprocess.New(dev, shaders, cfg.Viewer.Postprocesses,
		int32(cfg.Window.Width), int32(cfg.Window.Height))
	if err != nil {
		a.scene.Destroy()
		return nil, fmt.Errorf("create postprocess pipeline: %w", err)
	}

	loadCfg := model.LoadConfig{FlipUVs: cfg.Loading.FlipUVs}
	camSettings := camera.Settings{Speed: cfg.Camera.Speed, Sensitivity: cfg.Camera.Sensitivity}

	r := renderer.New(dev, a.pipeline)
	a.viewer = viewer.New(dev, a.scene, r, imp, dec, loadCfg)
	a.mediator = viewer.NewMediator(a.viewer, viewer.NewControls(cfg.Viewer.Postprocesses, camSettings, loadCfg))
	a.mediator.Screenshot = a.Screenshot
	a.mediator.Sync()

	if cfg.Viewer.WatchShaders {
		if cfg.Viewer.ShaderDir == "" {
			logger.Warn("shader watching needs a shader directory; using embedded shaders")
		} else if w, err := shader.Watch(cfg.Viewer.ShaderDir); err != nil {
			logger.Warn("shader hot reload disabled", zap.Error(err))
		} else {
			a.watcher = w
		}
	}

	if cfg.Viewer.Model != "" {
		a.mediator.Controls().ModelPath = cfg.Viewer.Model
		a.mediator.Handle(viewer.LoadModelRequested)
	}

	logger.Info("viewer initialized")
	return a, nil
}

func shaderFS(cfg *config.Config) fs.FS {
	if cfg.Viewer.ShaderDir == "" {
		return res.Shaders
	}
	return os.DirFS(cfg.Viewer.ShaderDir)
}

func shaderSource(cfg *config.Config) string {
	if cfg.Viewer.ShaderDir == "" {
		return "embedded"
	}
	return cfg.Viewer.ShaderDir
}

// Viewer returns the viewer.
func (a *App) Viewer() *viewer.Viewer { return a.viewer }

// Mediator returns the mediator the control panel drives.
func (a *App) Mediator() *viewer.Mediator { return a.mediator }

// Frame runs one iteration: shader reloads, camera input, then the draw at
// width x height pixels into the pipeline's screen framebuffer.
func (a *App) Frame(in camera.Input, width, height int32) {
	now := a.now()
	var dt float32
	if !a.lastFrame.IsZero() {
		dt = float32(now.Sub(a.lastFrame).Seconds())
	}
	a.lastFrame = now

	a.pollShaders()
	a.viewer.ProcessInput(in, dt)
	a.viewer.Render(width, height)
	a.width, a.height = width, height
}

func (a *App) pollShaders() {
	if a.watcher == nil {
		return
	}
	select {
	case <-a.watcher.Changed():
		for _, name := range a.watcher.Pending() {
			a.viewer.ShaderChanged(name)
		}
	default:
	}
}

// Screenshot saves the last frame drawn. Call it after Frame and before
// anything else draws over the frame.
func (a *App) Screenshot() (string, error) {
	if a.width <= 0 || a.height <= 0 {
		return "", errors.New("no frame has been drawn")
	}
	return a.capture.Capture(a.dev, a.pipeline.Screen(), a.width, a.height)
}

// Close releases GPU resources and stops the shader watcher.
func (a *App) Close() error {
	logger.Info("closing viewer")

	var err error
	if a.watcher != nil {
		err = multierr.Append(err, a.watcher.Close())
	}
	a.scene.Destroy()
	a.pipeline.Destroy()
	return err
}
