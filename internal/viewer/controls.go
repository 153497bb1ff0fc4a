package viewer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/simple3d/internal/engine/camera"
	"github.com/Faultbox/simple3d/internal/engine/model"
)

// Slider is a float control with a range and a reset value.
type Slider struct {
	Label   string
	Default float32
	Value   float32
	Min     float32
	Max     float32
}

// Checkbox is a boolean control.
type Checkbox struct {
	Label string
	Value bool
}

// Sliders is a group of sliders reset together.
type Sliders []Slider

// Reset restores every slider to its default.
func (s Sliders) Reset() {
	for i := range s {
		s[i].Value = s[i].Default
	}
}

func (s Sliders) vec3(from int) mgl32.Vec3 {
	return mgl32.Vec3{s[from].Value, s[from+1].Value, s[from+2].Value}
}

// Controls is the state behind the control panel. Widgets edit the values
// in place and raise a GUIEvent through the Mediator.
type Controls struct {
	Postprocesses  []Checkbox
	Light          Sliders
	VisualizeLight Checkbox
	Transform      Sliders
	FlipUVs        Checkbox
	Camera         Sliders

	// ModelPath is the file picked for LoadModelRequested.
	ModelPath string
}

// NewControls returns the panel defaults. Every effect starts off.
func NewControls(effects []string, cam camera.Settings, load model.LoadConfig) *Controls {
	c := &Controls{
		Light: Sliders{
			{Label: "Position X##light", Min: -100, Max: 100},
			{Label: "Position Y##light", Min: -100, Max: 100},
			{Label: "Position Z##light", Min: -100, Max: 100},
		},
		VisualizeLight: Checkbox{Label: "Visualize light position", Value: true},
		Transform: Sliders{
			{Label: "Position X", Min: -100, Max: 100},
			{Label: "Position Y", Min: -100, Max: 100},
			{Label: "Position Z", Min: -100, Max: 100},
			{Label: "Rotation X", Min: 0, Max: 360},
			{Label: "Rotation Y", Min: 0, Max: 360},
			{Label: "Rotation Z", Min: 0, Max: 360},
			{Label: "Scale X", Default: 1, Value: 1, Min: 0, Max: 100},
			{Label: "Scale Y", Default: 1, Value: 1, Min: 0, Max: 100},
			{Label: "Scale Z", Default: 1, Value: 1, Min: 0, Max: 100},
		},
		FlipUVs: Checkbox{Label: "Flip UVs", Value: load.FlipUVs},
		Camera: Sliders{
			{Label: "Speed", Default: cam.Speed, Value: cam.Speed, Min: 0.1, Max: 100},
			{Label: "Sensitivity", Default: cam.Sensitivity, Value: cam.Sensitivity, Min: 0.1, Max: 20},
		},
	}
	for _, id := range effects {
		c.Postprocesses = append(c.Postprocesses, Checkbox{Label: id})
	}
	return c
}

// LightPosition returns the light sliders as a position.
func (c *Controls) LightPosition() mgl32.Vec3 { return c.Light.vec3(0) }

// ModelTransform returns the transform sliders.
func (c *Controls) ModelTransform() model.Transform {
	return model.Transform{
		Translation: c.Transform.vec3(0),
		Rotation:    c.Transform.vec3(3),
		Scale:       c.Transform.vec3(6),
	}
}

// CameraSettings returns the camera sliders.
func (c *Controls) CameraSettings() camera.Settings {
	return camera.Settings{Speed: c.Camera[0].Value, Sensitivity: c.Camera[1].Value}
}

// LoadConfig returns the model loading checkboxes.
func (c *Controls) LoadConfig() model.LoadConfig {
	return model.LoadConfig{FlipUVs: c.FlipUVs.Value}
}
