package ui

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/Faultbox/simple3d/internal/viewer"
)

const errorPopup = "Error"

// Panel draws the control window and the error popup. Every widget edits
// the mediator's Controls in place and raises the matching GUIEvent.
type Panel struct {
	mediator *viewer.Mediator
	picker   *FilePicker
	loading  func() bool

	// message is the error on display, empty when the popup is closed.
	message string
}

// NewPanel returns a panel driving m. loading reports whether a model
// load is in flight.
func NewPanel(m *viewer.Mediator, picker *FilePicker, loading func() bool) *Panel {
	return &Panel{mediator: m, picker: picker, loading: loading}
}

// Draw emits the widgets for this frame. Call it from the backend loop
// after the scene has been rendered.
func (p *Panel) Draw() {
	c := p.mediator.Controls()
	if path, ok := p.picker.Poll(); ok {
		c.ModelPath = path
		p.mediator.Handle(viewer.LoadModelRequested)
	}
	if IsKeyPressed(imgui.KeyF12) {
		p.mediator.Handle(viewer.ScreenshotRequested)
	}

	imgui.SetNextWindowPosV(imgui.NewVec2(10, 10), imgui.CondFirstUseEver, imgui.NewVec2(0, 0))
	imgui.SetNextWindowSizeV(imgui.NewVec2(340, 0), imgui.CondFirstUseEver)
	if imgui.BeginV("Controls", nil, imgui.WindowFlagsAlwaysAutoResize) {
		imgui.Text(fmt.Sprintf("%.1f FPS", imgui.CurrentIO().Framerate()))
		imgui.Separator()
		p.drawModel()
		p.drawPostprocesses()
		p.drawLight()
		p.drawTransform()
		p.drawCamera()
		imgui.Separator()
		if imgui.Button("Screenshot (F12)") {
			p.mediator.Handle(viewer.ScreenshotRequested)
		}
	}
	imgui.End()

	p.drawError()
}

func (p *Panel) drawModel() {
	c := p.mediator.Controls()
	if !imgui.CollapsingHeaderTreeNodeFlagsV("Model", imgui.TreeNodeFlagsDefaultOpen) {
		return
	}
	if imgui.Button("Load model") {
		p.picker.Open()
	}
	imgui.SameLine()
	if imgui.Button("Reload model shaders") {
		p.mediator.Handle(viewer.ReloadProgramRequested)
	}
	switch {
	case p.picker.Busy():
		imgui.Text("Choosing file...")
	case p.loading():
		imgui.Text("Loading " + c.ModelPath)
	case c.ModelPath != "":
		imgui.TextWrapped(c.ModelPath)
	}
	if checkbox(&c.FlipUVs) {
		p.mediator.Handle(viewer.ModelLoadingConfigChanged)
	}
}

func (p *Panel) drawPostprocesses() {
	c := p.mediator.Controls()
	if !imgui.CollapsingHeaderTreeNodeFlagsV("Postprocessing", imgui.TreeNodeFlagsDefaultOpen) {
		return
	}
	changed := false
	for i := range c.Postprocesses {
		if checkbox(&c.Postprocesses[i]) {
			changed = true
		}
	}
	if changed {
		p.mediator.Handle(viewer.PostprocessesChanged)
	}
}

func (p *Panel) drawLight() {
	c := p.mediator.Controls()
	if !imgui.CollapsingHeaderTreeNodeFlagsV("Lighting", imgui.TreeNodeFlagsDefaultOpen) {
		return
	}
	if sliders(c.Light) {
		p.mediator.Handle(viewer.LightingChanged)
	}
	if imgui.Button("Reset##light") {
		p.mediator.ResetLight()
	}
	if checkbox(&c.VisualizeLight) {
		p.mediator.Handle(viewer.VisualizeLightChanged)
	}
}

func (p *Panel) drawTransform() {
	c := p.mediator.Controls()
	if !imgui.CollapsingHeaderTreeNodeFlags("Model transform") {
		return
	}
	if sliders(c.Transform) {
		p.mediator.Handle(viewer.ModelTransformChanged)
	}
	if imgui.Button("Reset##transform") {
		p.mediator.ResetTransform()
	}
}

func (p *Panel) drawCamera() {
	c := p.mediator.Controls()
	if !imgui.CollapsingHeaderTreeNodeFlags("Camera") {
		return
	}
	imgui.Text("WASD move, Space/Ctrl up/down, hold right mouse to look")
	if sliders(c.Camera) {
		p.mediator.Handle(viewer.CameraSettingsChanged)
	}
	if imgui.Button("Reset##camera") {
		p.mediator.ResetCamera()
	}
}

// drawError shows pending errors one at a time.
func (p *Panel) drawError() {
	if p.message == "" {
		msg, ok := p.mediator.PopError()
		if !ok {
			return
		}
		p.message = msg
		imgui.OpenPopupStr(errorPopup)
	}

	center := imgui.MainViewport().Center()
	imgui.SetNextWindowPosV(center, imgui.CondAppearing, imgui.NewVec2(0.5, 0.5))
	if imgui.BeginPopupModalV(errorPopup, nil, imgui.WindowFlagsAlwaysAutoResize) {
		imgui.PushTextWrapPosV(480)
		imgui.TextUnformatted(p.message)
		imgui.PopTextWrapPos()
		imgui.Separator()
		if imgui.Button("OK") {
			p.message = ""
			imgui.CloseCurrentPopup()
		}
		imgui.EndPopup()
	}
}

func checkbox(cb *viewer.Checkbox) bool {
	return imgui.Checkbox(cb.Label, &cb.Value)
}

// sliders draws a group and reports whether any value changed.
func sliders(group viewer.Sliders) bool {
	changed := false
	for i := range group {
		s := &group[i]
		if imgui.SliderFloatV(s.Label, &s.Value, s.Min, s.Max, "%.2f", imgui.SliderFlagsNone) {
			changed = true
		}
	}
	return changed
}
