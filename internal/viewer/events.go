package viewer

import "fmt"

// GUIEvent is raised by the control panel.
type GUIEvent int

const (
	PostprocessesChanged GUIEvent = iota
	LightingChanged
	VisualizeLightChanged
	ModelTransformChanged
	ModelLoadingConfigChanged
	CameraSettingsChanged
	LoadModelRequested
	ReloadProgramRequested
	ScreenshotRequested
)

var guiEventNames = [...]string{
	PostprocessesChanged:      "PostprocessesChanged",
	LightingChanged:           "LightingChanged",
	VisualizeLightChanged:     "VisualizeLightChanged",
	ModelTransformChanged:     "ModelTransformChanged",
	ModelLoadingConfigChanged: "ModelLoadingConfigChanged",
	CameraSettingsChanged:     "CameraSettingsChanged",
	LoadModelRequested:        "LoadModelRequested",
	ReloadProgramRequested:    "ReloadProgramRequested",
	ScreenshotRequested:       "ScreenshotRequested",
}

func (e GUIEvent) String() string {
	if e >= 0 && int(e) < len(guiEventNames) {
		return guiEventNames[e]
	}
	return fmt.Sprintf("GUIEvent(%d)", int(e))
}

// Event is raised by the viewer.
type Event int

const (
	ModelLoaded Event = iota
)

func (e Event) String() string {
	switch e {
	case ModelLoaded:
		return "ModelLoaded"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// ErrorKind tells which viewer operation failed.
type ErrorKind int

const (
	LoadModelFailed ErrorKind = iota
	ReloadProgramFailed
)

func (k ErrorKind) String() string {
	switch k {
	case LoadModelFailed:
		return "LoadModelFailed"
	case ReloadProgramFailed:
		return "ReloadProgramFailed"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Listener receives the viewer's notifications on the render thread.
type Listener interface {
	Notify(e Event)
	NotifyError(kind ErrorKind, message string)
}
