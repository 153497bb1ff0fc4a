package viewer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/simple3d/internal/engine/camera"
	"github.com/Faultbox/simple3d/internal/engine/model"
)

func newMediator(t *testing.T) (*Mediator, *Viewer) {
	t.Helper()
	v := newViewer(t)
	c := NewControls(effects, camera.Settings{Speed: 3, Sensitivity: 7}, model.LoadConfig{})
	return NewMediator(v, c), v
}

func TestNewControlsDefaults(t *testing.T) {
	c := NewControls(effects, camera.DefaultSettings(), model.LoadConfig{FlipUVs: true})

	require.Len(t, c.Postprocesses, 3)
	for i, cb := range c.Postprocesses {
		assert.Equal(t, effects[i], cb.Label)
		assert.False(t, cb.Value)
	}
	assert.Equal(t, mgl32.Vec3{}, c.LightPosition())
	assert.True(t, c.VisualizeLight.Value)
	assert.Equal(t, model.IdentityTransform(), c.ModelTransform())
	assert.Equal(t, camera.DefaultSettings(), c.CameraSettings())
	assert.True(t, c.LoadConfig().FlipUVs)
}

func TestSyncPushesControls(t *testing.T) {
	m, v := newMediator(t)
	c := m.Controls()
	c.Postprocesses[2].Value = true
	c.Postprocesses[0].Value = true
	c.Light[1].Value = 4
	c.VisualizeLight.Value = false
	c.FlipUVs.Value = true

	m.Sync()

	assert.Equal(t, []string{"FXAA", "grayscale"}, v.Renderer().Pipeline().Active())
	assert.Equal(t, mgl32.Vec3{0, 4, 0}, v.Scene().LightPosition)
	assert.False(t, v.Renderer().DrawLight)
	assert.Equal(t, camera.Settings{Speed: 3, Sensitivity: 7}, v.Scene().Camera.Settings())
	assert.True(t, v.ModelLoadingConfig().FlipUVs)
}

func TestModelLoadedAppliesTransform(t *testing.T) {
	m, v := newMediator(t)
	m.Controls().Transform[0].Value = 5
	m.Controls().Transform[6].Value = 2

	v.LoadModel("box.gltf")
	f := &fixture{viewer: v}
	f.settle(t)

	require.NotNil(t, v.Scene().Model)
	want := model.Transform{
		Translation: mgl32.Vec3{5, 0, 0},
		Scale:       mgl32.Vec3{2, 1, 1},
	}.Matrix()
	assert.Equal(t, want, v.Scene().Model.Matrix())
}

func TestResetGroups(t *testing.T) {
	m, v := newMediator(t)
	c := m.Controls()

	c.Light[0].Value = 50
	m.Handle(LightingChanged)
	assert.Equal(t, mgl32.Vec3{50, 0, 0}, v.Scene().LightPosition)
	m.ResetLight()
	assert.Equal(t, mgl32.Vec3{}, v.Scene().LightPosition)

	c.Camera[0].Value = 80
	m.Handle(CameraSettingsChanged)
	m.ResetCamera()
	assert.Equal(t, camera.Settings{Speed: 3, Sensitivity: 7}, v.Scene().Camera.Settings())

	c.Transform[8].Value = 40
	m.ResetTransform()
	assert.Equal(t, float32(1), c.Transform[8].Value)
}

func TestLoadModelRequested(t *testing.T) {
	m, v := newMediator(t)

	m.Handle(LoadModelRequested)
	assert.False(t, v.Loading(), "no file picked")

	m.Controls().ModelPath = "box.gltf"
	m.Handle(LoadModelRequested)
	assert.True(t, v.Loading())
}

func TestErrorsAreQueuedInOrder(t *testing.T) {
	m, _ := newMediator(t)

	m.NotifyError(LoadModelFailed, "first")
	m.NotifyError(ReloadProgramFailed, "second")
	assert.Equal(t, 2, m.PendingErrors())

	msg, ok := m.PopError()
	assert.True(t, ok)
	assert.Equal(t, "first", msg)
	msg, _ = m.PopError()
	assert.Equal(t, "second", msg)
	_, ok = m.PopError()
	assert.False(t, ok)
}

func TestScreenshotRequested(t *testing.T) {
	m, _ := newMediator(t)

	m.Handle(ScreenshotRequested)
	assert.Zero(t, m.PendingErrors(), "no handler installed")

	calls := 0
	m.Screenshot = func() (string, error) {
		calls++
		return "", errors.New("disk full")
	}
	m.Handle(ScreenshotRequested)

	assert.Equal(t, 1, calls)
	msg, ok := m.PopError()
	require.True(t, ok)
	assert.Contains(t, msg, "disk full")
}

func TestUnknownEventsPanic(t *testing.T) {
	m, _ := newMediator(t)

	assert.Panics(t, func() { m.Handle(GUIEvent(99)) })
	assert.Panics(t, func() { m.Notify(Event(7)) })
	assert.Panics(t, func() { m.NotifyError(ErrorKind(5), "x") })
}

func TestEventNames(t *testing.T) {
	assert.Equal(t, "LoadModelRequested", LoadModelRequested.String())
	assert.Equal(t, "GUIEvent(42)", GUIEvent(42).String())
	assert.Equal(t, "ModelLoaded", ModelLoaded.String())
	assert.Equal(t, "ReloadProgramFailed", ReloadProgramFailed.String())
}
