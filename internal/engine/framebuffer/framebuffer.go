// Package framebuffer provides offscreen render targets.
package framebuffer

import (
	"fmt"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
)

// Framebuffer manages an offscreen render target with an RGBA color texture
// and a depth-stencil attachment.
type Framebuffer struct {
	dev    gpu.Device
	objs   gpu.FramebufferObjects
	width  int32
	height int32
}

// New creates a new framebuffer with the specified dimensions.
func New(dev gpu.Device, width, height int32) (*Framebuffer, error) {
	width, height = clamp(width, height)

	objs, err := dev.CreateFramebuffer(width, height)
	if err != nil {
		return nil, fmt.Errorf("creating framebuffer: %w", err)
	}

	return &Framebuffer{
		dev:    dev,
		objs:   objs,
		width:  width,
		height: height,
	}, nil
}

func clamp(width, height int32) (int32, int32) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

// Bind makes this framebuffer the current render target and sets the
// viewport to cover it.
func (fb *Framebuffer) Bind() {
	fb.dev.BindFramebuffer(fb.objs.FBO)
	fb.dev.Viewport(0, 0, fb.width, fb.height)
}

// ColorTexture returns the color attachment texture ID.
func (fb *Framebuffer) ColorTexture() uint32 {
	return fb.objs.Color
}

// FBO returns the underlying framebuffer object ID.
func (fb *Framebuffer) FBO() uint32 {
	return fb.objs.FBO
}

// Size returns the framebuffer dimensions.
func (fb *Framebuffer) Size() (width, height int32) {
	return fb.width, fb.height
}

// Resize reallocates the attachments if the dimensions changed.
// Handles stay the same.
func (fb *Framebuffer) Resize(width, height int32) {
	width, height = clamp(width, height)
	if width == fb.width && height == fb.height {
		return
	}

	fb.width = width
	fb.height = height
	fb.dev.ResizeFramebuffer(fb.objs, width, height)
}

// ReadPixels reads the color attachment as bottom-up RGBA rows and leaves
// the framebuffer bound.
func (fb *Framebuffer) ReadPixels() []byte {
	fb.dev.BindFramebuffer(fb.objs.FBO)
	return fb.dev.ReadPixels(fb.width, fb.height)
}

// Destroy releases all GPU resources. Safe to call more than once.
func (fb *Framebuffer) Destroy() {
	if fb.objs.FBO == 0 {
		return
	}
	fb.dev.DeleteFramebuffer(fb.objs)
	fb.objs = gpu.FramebufferObjects{}
}
