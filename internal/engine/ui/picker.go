package ui

import (
	"errors"

	"github.com/mitchellh/go-homedir"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/logger"
)

// FilePicker runs the native open dialog off the render thread. The
// dialog blocks, and window operations must stay on the main thread, so
// the chosen path is handed back through a channel drained by Poll.
type FilePicker struct {
	open    func() (string, error)
	results chan string
	busy    bool
}

// NewModelPicker returns a picker for model files.
func NewModelPicker() *FilePicker {
	return newFilePicker(func() (string, error) {
		return dialog.File().
			Filter("glTF models", "gltf", "glb").
			Filter("All Files", "*").
			Title("Load model").
			Load()
	})
}

func newFilePicker(open func() (string, error)) *FilePicker {
	return &FilePicker{open: open, results: make(chan string, 1)}
}

// Busy reports whether a dialog is open.
func (p *FilePicker) Busy() bool { return p.busy }

// Open shows the dialog. It is a no-op while one is already open.
func (p *FilePicker) Open() {
	if p.busy {
		return
	}
	p.busy = true
	go func() {
		path, err := p.open()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				logger.Warn("file dialog failed", zap.Error(err))
			}
			path = ""
		}
		p.results <- path
	}()
}

// Poll returns the chosen path once the dialog has closed. ok is false
// while the dialog is open, when none was opened, and when it was
// cancelled.
func (p *FilePicker) Poll() (path string, ok bool) {
	select {
	case path = <-p.results:
		p.busy = false
	default:
		return "", false
	}
	if path == "" {
		return "", false
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		logger.Warn("cannot expand path", zap.String("path", path), zap.Error(err))
		return path, true
	}
	return expanded, true
}
