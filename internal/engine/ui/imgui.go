// Package ui provides the ImGui frontend: the SDL backend, the control
// panel and the model file picker.
package ui

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/engine/camera"
	"github.com/Faultbox/simple3d/internal/logger"
)

// Backend wraps the ImGui SDL backend. The render callback runs on the
// main thread with the GL context current; ImGui draws over whatever the
// callback left in the default framebuffer.
type Backend struct {
	backend backend.Backend[sdlbackend.SDLWindowFlags]
}

// NewBackend creates the window and its GL context.
func NewBackend(title string, width, height int) (*Backend, error) {
	b := &Backend{}

	var err error
	b.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	b.backend.SetBgColor(imgui.NewVec4(0.01, 0.01, 0.01, 1.0))
	b.backend.CreateWindow(title, width, height)

	logger.Info("imgui backend created",
		zap.String("title", title),
		zap.Int("width", width),
		zap.Int("height", height))
	return b, nil
}

// Run starts the main loop. It returns when the window is closed.
func (b *Backend) Run(renderFunc func()) {
	b.backend.Run(renderFunc)
}

// SetWindowTitle updates the window title.
func (b *Backend) SetWindowTitle(title string) {
	b.backend.SetWindowTitle(title)
}

// FramebufferSize returns the drawable size in pixels. DisplaySize is in
// logical points, so HiDPI displays scale it by DisplayFramebufferScale.
func FramebufferSize() (width, height int32) {
	io := imgui.CurrentIO()
	size := io.DisplaySize()
	scale := io.DisplayFramebufferScale()
	return int32(size.X * scale.X), int32(size.Y * scale.Y)
}

// IsKeyPressed checks if a key was pressed this frame.
func IsKeyPressed(key imgui.Key) bool {
	return imgui.IsKeyChordPressed(imgui.KeyChord(key))
}

// ReadInput samples the camera keys and the right mouse button. Nothing is
// reported while an ImGui widget owns the keyboard or mouse.
func ReadInput() camera.Input {
	io := imgui.CurrentIO()
	var in camera.Input
	if !io.WantCaptureKeyboard() {
		in = cameraKeys(imgui.IsKeyDown)
	}
	if !io.WantCaptureMouse() && imgui.IsMouseDown(imgui.MouseButtonRight) {
		pos := imgui.MousePos()
		in.Look = true
		in.MouseX, in.MouseY = pos.X, pos.Y
	}
	return in
}

// cameraKeys maps W/S, A/D, Space and LeftCtrl to camera movement.
func cameraKeys(down func(imgui.Key) bool) camera.Input {
	return camera.Input{
		Forward: down(imgui.KeyW),
		Back:    down(imgui.KeyS),
		Left:    down(imgui.KeyA),
		Right:   down(imgui.KeyD),
		Up:      down(imgui.KeySpace),
		Down:    down(imgui.KeyLeftCtrl),
	}
}
