package viewer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/logger"
)

// Mediator applies control panel events to the viewer and collects the
// viewer's errors for display.
type Mediator struct {
	viewer   *Viewer
	controls *Controls

	// errors are shown one at a time, oldest first.
	errors []string

	// Screenshot handles ScreenshotRequested. It returns the written file.
	Screenshot func() (string, error)
}

// NewMediator wires a mediator between v and the panel state c.
func NewMediator(v *Viewer, c *Controls) *Mediator {
	m := &Mediator{viewer: v, controls: c}
	v.SetMediator(m)
	return m
}

// Controls returns the panel state.
func (m *Mediator) Controls() *Controls { return m.controls }

// Sync pushes every control value into the viewer. Call it once before the
// first frame.
func (m *Mediator) Sync() {
	m.Handle(PostprocessesChanged)
	m.Handle(LightingChanged)
	m.Handle(VisualizeLightChanged)
	m.Handle(CameraSettingsChanged)
	m.Handle(ModelLoadingConfigChanged)
}

// Handle applies a panel event.
func (m *Mediator) Handle(e GUIEvent) {
	c := m.controls
	switch e {
	case PostprocessesChanged:
		for _, cb := range c.Postprocesses {
			m.viewer.SetPostprocessActive(cb.Label, cb.Value)
		}
	case LightingChanged:
		m.viewer.SetLightPosition(c.LightPosition())
	case VisualizeLightChanged:
		m.viewer.SetDrawLight(c.VisualizeLight.Value)
	case ModelTransformChanged:
		m.viewer.SetModelTransform(c.ModelTransform())
	case ModelLoadingConfigChanged:
		m.viewer.SetModelLoadingConfig(c.LoadConfig())
	case CameraSettingsChanged:
		m.viewer.SetCameraSettings(c.CameraSettings())
	case LoadModelRequested:
		if c.ModelPath == "" {
			return
		}
		m.viewer.LoadModel(c.ModelPath)
	case ReloadProgramRequested:
		m.viewer.ReloadProgram()
	case ScreenshotRequested:
		if m.Screenshot == nil {
			return
		}
		if _, err := m.Screenshot(); err != nil {
			m.push(fmt.Sprintf("screenshot: %v", err))
		}
	default:
		panic(fmt.Sprintf("viewer: unhandled %v", e))
	}
}

// ResetLight restores the light sliders and applies them.
func (m *Mediator) ResetLight() {
	m.controls.Light.Reset()
	m.Handle(LightingChanged)
}

// ResetTransform restores the transform sliders and applies them.
func (m *Mediator) ResetTransform() {
	m.controls.Transform.Reset()
	m.Handle(ModelTransformChanged)
}

// ResetCamera restores the camera sliders and applies them.
func (m *Mediator) ResetCamera() {
	m.controls.Camera.Reset()
	m.Handle(CameraSettingsChanged)
}

// Notify reacts to viewer events. A freshly loaded model gets the current
// transform sliders.
func (m *Mediator) Notify(e Event) {
	switch e {
	case ModelLoaded:
		m.viewer.SetModelTransform(m.controls.ModelTransform())
	default:
		panic(fmt.Sprintf("viewer: unhandled %v", e))
	}
}

// NotifyError queues a viewer error for the error popup.
func (m *Mediator) NotifyError(kind ErrorKind, message string) {
	switch kind {
	case LoadModelFailed, ReloadProgramFailed:
		m.push(message)
	default:
		panic(fmt.Sprintf("viewer: unhandled %v", kind))
	}
	logger.Debug("error queued", zap.Stringer("kind", kind), zap.Int("pending", len(m.errors)))
}

func (m *Mediator) push(message string) {
	m.errors = append(m.errors, message)
}

// PopError returns the oldest pending error.
func (m *Mediator) PopError() (string, bool) {
	if len(m.errors) == 0 {
		return "", false
	}
	msg := m.errors[0]
	m.errors = m.errors[1:]
	return msg, true
}

// PendingErrors returns how many errors wait to be shown.
func (m *Mediator) PendingErrors() int { return len(m.errors) }
