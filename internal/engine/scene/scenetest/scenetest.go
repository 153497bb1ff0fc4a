// Package scenetest builds scenes against a recording device for tests.
package scenetest

import (
	"testing"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/gpu/gputest"
	"github.com/Faultbox/simple3d/internal/engine/scene"
	"github.com/Faultbox/simple3d/internal/engine/texture"
	"github.com/Faultbox/simple3d/res"
)

// Decoder returns a 1x1 image for every request and records the paths.
type Decoder struct {
	Paths []string
}

func (d *Decoder) Decode(path string, opts texture.DecodeOptions) (*gpu.Image, error) {
	d.Paths = append(d.Paths, path)
	ch := opts.Channels
	if ch == 0 {
		ch = 4
	}
	return &gpu.Image{Pixels: make([]byte, ch), Width: 1, Height: 1, Channels: ch}, nil
}

func (d *Decoder) DecodeBytes(_ []byte, opts texture.DecodeOptions) (*gpu.Image, error) {
	return d.Decode("<bytes>", opts)
}

// New returns a scene using the embedded shaders. It is destroyed when the
// test ends.
func New(t testing.TB, dev *gputest.Device) *scene.Scene {
	t.Helper()
	s, err := scene.New(dev, &Decoder{}, scene.Config{Shaders: res.Shaders, SkyboxDir: "skybox"})
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	t.Cleanup(s.Destroy)
	return s
}
