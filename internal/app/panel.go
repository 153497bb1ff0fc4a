package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/config"
	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/importer"
	"github.com/Faultbox/simple3d/internal/engine/texture"
	"github.com/Faultbox/simple3d/internal/engine/ui"
	"github.com/Faultbox/simple3d/internal/logger"
)

// RunPanel opens the ImGui window with the control panel and blocks until
// it is closed. The scene is drawn straight into the default framebuffer
// and the panel is composited over it by the backend.
func RunPanel(cfg *config.Config) error {
	backend, err := ui.NewBackend(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

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

	panel := ui.NewPanel(a.Mediator(), ui.NewModelPicker(), a.Viewer().Loading)

	logger.Info("starting render loop")
	backend.Run(func() {
		width, height := ui.FramebufferSize()
		a.Frame(ui.ReadInput(), width, height)
		panel.Draw()
	})
	return nil
}
