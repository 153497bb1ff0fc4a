package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/config"
	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/importer"
	"github.com/Faultbox/simple3d/internal/engine/input"
	"github.com/Faultbox/simple3d/internal/engine/texture"
	"github.com/Faultbox/simple3d/internal/engine/window"
	"github.com/Faultbox/simple3d/internal/logger"
	"github.com/Faultbox/simple3d/internal/viewer"
)

// RunLite opens a bare SDL window driven from the keyboard and blocks until
// it is closed or Escape is pressed.
//
//	1-9   toggle postprocess effect n
//	L     toggle the light marker
//	R     reload the model shaders
//	F12   screenshot
func RunLite(cfg *config.Config) error {
	win, err := window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer win.Close()

	dev, err := gpu.NewGL()
	if err != nil {
		return err
	}

	a, err := New(dev, texture.FileDecoder{}, importer.NewGLTF(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}()

	in := input.New()
	frames := 0
	fpsTimer := time.Now()

	logger.Info("starting render loop")
	for {
		if in.Update() || in.IsKeyPressed(sdl.SCANCODE_ESCAPE) {
			return nil
		}
		a.handleKeys(in)

		width, height := win.DrawableSize()
		a.Frame(in.Camera(), width, height)
		if in.IsKeyPressed(sdl.SCANCODE_F12) {
			a.mediator.Handle(viewer.ScreenshotRequested)
		}
		a.reportErrors()
		win.SwapBuffers()

		frames++
		if time.Since(fpsTimer) >= time.Second {
			win.SetTitle(fmt.Sprintf("%s - %d FPS%s", cfg.Window.Title, frames, a.status()))
			frames = 0
			fpsTimer = time.Now()
		}
	}
}

func (a *App) handleKeys(in *input.Input) {
	c := a.mediator.Controls()
	if n, ok := in.DigitPressed(); ok && n <= len(c.Postprocesses) {
		cb := &c.Postprocesses[n-1]
		cb.Value = !cb.Value
		a.mediator.Handle(viewer.PostprocessesChanged)
	}
	if in.IsKeyPressed(sdl.SCANCODE_L) {
		c.VisualizeLight.Value = !c.VisualizeLight.Value
		a.mediator.Handle(viewer.VisualizeLightChanged)
	}
	if in.IsKeyPressed(sdl.SCANCODE_R) {
		a.mediator.Handle(viewer.ReloadProgramRequested)
	}
}

// reportErrors logs what the panel would show in its popup.
func (a *App) reportErrors() {
	for {
		msg, ok := a.mediator.PopError()
		if !ok {
			return
		}
		logger.Error("viewer error", zap.String("message", msg))
	}
}

func (a *App) status() string {
	var parts []string
	if a.viewer.Loading() {
		parts = append(parts, "loading")
	}
	if active := a.pipeline.Active(); len(active) > 0 {
		parts = append(parts, strings.Join(active, "+"))
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}
