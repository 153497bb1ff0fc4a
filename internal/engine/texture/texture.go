package texture

import (
	"fmt"
	"strings"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
)

// Kind is the texture binding target.
type Kind int

const (
	Kind2D Kind = iota
	KindCubemap
)

// CubemapFaces is the face order expected by NewCubemap.
var CubemapFaces = [6]string{"right", "left", "top", "bottom", "front", "back"}

// Texture is a 2D image or a six-face cubemap with a two-phase lifecycle:
// LoadData decodes on any goroutine, Complete uploads on the GL thread.
// A Texture owns its GPU handle; do not copy.
type Texture struct {
	kind    Kind
	paths   []string
	encoded []byte

	images []*gpu.Image

	dev       gpu.Device
	handle    uint32
	completed bool
}

// New2D describes a 2D texture read from path.
func New2D(path string) *Texture {
	return &Texture{kind: Kind2D, paths: []string{path}}
}

// NewEmbedded describes a 2D texture whose encoded bytes came from inside a
// model file. key identifies it for deduplication.
func NewEmbedded(key string, encoded []byte) *Texture {
	return &Texture{kind: Kind2D, paths: []string{key}, encoded: encoded}
}

// NewCubemap describes a cubemap from six face images in CubemapFaces order.
func NewCubemap(paths [6]string) *Texture {
	return &Texture{kind: KindCubemap, paths: paths[:]}
}

// Kind returns the binding target.
func (t *Texture) Kind() Kind { return t.kind }

// Key identifies the texture by its source path(s).
func (t *Texture) Key() string { return strings.Join(t.paths, "|") }

// Handle returns the GPU handle, 0 until Complete.
func (t *Texture) Handle() uint32 { return t.handle }

// Loaded reports whether CPU pixel data is ready for upload.
func (t *Texture) Loaded() bool { return len(t.images) > 0 }

// Completed reports whether the GPU upload happened.
func (t *Texture) Completed() bool { return t.completed }

// Image returns the decoded face i, nil before LoadData or after Complete.
func (t *Texture) Image(i int) *gpu.Image {
	if i >= len(t.images) {
		return nil
	}
	return t.images[i]
}

// LoadData decodes the source images. It never touches the GPU.
// 2D images are flipped to GL's bottom-up row order; cubemap faces are not
// and are forced to RGB.
func (t *Texture) LoadData(dec Decoder) error {
	if t.kind == KindCubemap {
		images := make([]*gpu.Image, 0, len(t.paths))
		for i, path := range t.paths {
			img, err := dec.Decode(path, DecodeOptions{Channels: 3})
			if err != nil {
				return fmt.Errorf("cubemap face %s (%s): %w", CubemapFaces[i], path, err)
			}
			images = append(images, img)
		}
		t.images = images
		return nil
	}

	opts := DecodeOptions{FlipVertically: true}
	var (
		img *gpu.Image
		err error
	)
	if t.encoded != nil {
		img, err = dec.DecodeBytes(t.encoded, opts)
	} else {
		img, err = dec.Decode(t.paths[0], opts)
	}
	if err != nil {
		return fmt.Errorf("texture %s: %w", t.paths[0], err)
	}
	t.images = []*gpu.Image{img}
	t.encoded = nil
	return nil
}

// Complete uploads the decoded pixels. It must run on the GL thread and
// panics when called twice.
func (t *Texture) Complete(dev gpu.Device) error {
	if t.completed {
		panic(fmt.Sprintf("texture %s: already completed", t.Key()))
	}
	if !t.Loaded() {
		return fmt.Errorf("texture %s: no pixel data loaded", t.Key())
	}

	var (
		handle uint32
		err    error
	)
	if t.kind == KindCubemap {
		var faces [6]*gpu.Image
		if len(t.images) != len(faces) {
			return fmt.Errorf("texture %s: cubemap needs 6 faces, have %d", t.Key(), len(t.images))
		}
		copy(faces[:], t.images)
		handle, err = dev.CreateCubemap(faces)
	} else {
		handle, err = dev.CreateTexture2D(t.images[0], gpu.FilterLinear)
	}
	if err != nil {
		return fmt.Errorf("uploading texture %s: %w", t.Key(), err)
	}

	t.dev = dev
	t.handle = handle
	t.completed = true
	t.images = nil
	return nil
}

// Bind binds the texture to a texture unit.
func (t *Texture) Bind(unit uint32) {
	target := gpu.Texture2D
	if t.kind == KindCubemap {
		target = gpu.TextureCubemap
	}
	t.dev.BindTexture(unit, target, t.handle)
}

// Release frees the GPU handle. Safe to call more than once.
func (t *Texture) Release() {
	if t.handle == 0 {
		return
	}
	t.dev.DeleteTexture(t.handle)
	t.handle = 0
}

// LoadCubemap decodes and uploads a cubemap in one step, for textures
// created on the GL thread at startup.
func LoadCubemap(dev gpu.Device, dec Decoder, paths [6]string) (*Texture, error) {
	t := NewCubemap(paths)
	if err := t.LoadData(dec); err != nil {
		return nil, err
	}
	if err := t.Complete(dev); err != nil {
		return nil, err
	}
	return t, nil
}
