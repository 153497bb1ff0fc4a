// Package camera provides the free-fly viewer camera.
package camera

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Pitch is kept inside ±MaxPitch degrees so the view never flips over the pole.
const MaxPitch = 89.0

// Settings tune movement and mouse look.
type Settings struct {
	Speed       float32 // units per second
	Sensitivity float32 // degrees per pixel per second
}

// DefaultSettings returns the settings the control panel starts with.
func DefaultSettings() Settings {
	return Settings{Speed: 2, Sensitivity: 5}
}

// Input is the per-frame key and mouse state the camera reacts to.
type Input struct {
	Forward, Back bool
	Left, Right   bool
	Up, Down      bool

	// Look is true while the look button is held; the cursor position is
	// only read then.
	Look           bool
	MouseX, MouseY float32
}

// Camera flies freely: keys move it along its axes and dragging with the
// look button held turns it.
type Camera struct {
	position mgl32.Vec3
	front    mgl32.Vec3
	up       mgl32.Vec3

	yaw   float32 // degrees
	pitch float32 // degrees

	settings Settings

	lastX, lastY float32
	firstLook    bool
}

// New returns a camera at (0, 0, 5) looking down -Z.
func New() *Camera {
	return &Camera{
		position:  mgl32.Vec3{0, 0, 5},
		front:     mgl32.Vec3{0, 0, -1},
		up:        mgl32.Vec3{0, 1, 0},
		yaw:       -90,
		settings:  DefaultSettings(),
		firstLook: true,
	}
}

// Position returns the camera position in world space.
func (c *Camera) Position() mgl32.Vec3 { return c.position }

// Front returns the normalized view direction.
func (c *Camera) Front() mgl32.Vec3 { return c.front }

// Yaw returns the heading in degrees, in [0, 360) once the camera has turned.
func (c *Camera) Yaw() float32 { return c.yaw }

// Pitch returns the elevation in degrees.
func (c *Camera) Pitch() float32 { return c.pitch }

// Settings returns the movement settings.
func (c *Camera) Settings() Settings { return c.settings }

// SetSettings replaces the movement settings.
func (c *Camera) SetSettings(s Settings) { c.settings = s }

// SetPosition moves the camera without changing its orientation.
func (c *Camera) SetPosition(p mgl32.Vec3) { c.position = p }

// ViewMatrix returns the view matrix for this camera.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.position, c.position.Add(c.front), c.up)
}

// Update applies one frame of input. dt is the frame time in seconds.
func (c *Camera) Update(in Input, dt float32) {
	step := c.settings.Speed * dt
	right := c.front.Cross(c.up).Normalize()

	if in.Forward {
		c.position = c.position.Add(c.front.Mul(step))
	}
	if in.Back {
		c.position = c.position.Sub(c.front.Mul(step))
	}
	if in.Left {
		c.position = c.position.Sub(right.Mul(step))
	}
	if in.Right {
		c.position = c.position.Add(right.Mul(step))
	}
	if in.Up {
		c.position = c.position.Add(c.up.Mul(step))
	}
	if in.Down {
		c.position = c.position.Sub(c.up.Mul(step))
	}

	if !in.Look {
		c.firstLook = true
		return
	}
	if c.firstLook {
		c.lastX, c.lastY = in.MouseX, in.MouseY
		c.firstLook = false
	}

	turn := c.settings.Sensitivity * dt
	dx := (in.MouseX - c.lastX) * turn
	dy := (c.lastY - in.MouseY) * turn // screen y grows downwards
	c.lastX, c.lastY = in.MouseX, in.MouseY

	c.yaw = math32.Mod(c.yaw+dx, 360)
	if c.yaw < 0 {
		c.yaw += 360
	}
	c.pitch = mgl32.Clamp(c.pitch+dy, -MaxPitch, MaxPitch)
	c.updateFront()
}

func (c *Camera) updateFront() {
	yaw := mgl32.DegToRad(c.yaw)
	pitch := mgl32.DegToRad(c.pitch)
	c.front = mgl32.Vec3{
		math32.Cos(yaw) * math32.Cos(pitch),
		math32.Sin(pitch),
		math32.Sin(yaw) * math32.Cos(pitch),
	}.Normalize()
}
