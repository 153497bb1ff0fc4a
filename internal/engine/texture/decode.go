// Package texture decodes images and manages 2D and cubemap GPU textures.
package texture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
)

// DecodeOptions controls pixel layout of a decoded image.
type DecodeOptions struct {
	FlipVertically bool
	// Channels forces the output channel count (1, 3 or 4). Zero keeps the
	// source layout: 1 for grayscale, 3 for opaque color, 4 otherwise.
	Channels int
}

// Decoder turns encoded image files into tightly packed pixels.
type Decoder interface {
	Decode(path string, opts DecodeOptions) (*gpu.Image, error)
	DecodeBytes(data []byte, opts DecodeOptions) (*gpu.Image, error)
}

// FileDecoder decodes PNG, JPEG, GIF, BMP, TIFF, WebP and TGA.
type FileDecoder struct{}

// Decode reads and decodes the file at path.
func (FileDecoder) Decode(path string, opts DecodeOptions) (*gpu.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f, opts)
}

// DecodeBytes decodes an in-memory encoded image.
func (FileDecoder) DecodeBytes(data []byte, opts DecodeOptions) (*gpu.Image, error) {
	return decode(bytes.NewReader(data), opts)
}

func decode(r io.Reader, opts DecodeOptions) (*gpu.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	out, err := Pixels(img, opts)
	if err != nil {
		return nil, fmt.Errorf("converting %s image: %w", format, err)
	}
	return out, nil
}

// Pixels converts img to packed 8-bit rows, top row first unless flipped.
func Pixels(img image.Image, opts DecodeOptions) (*gpu.Image, error) {
	channels := opts.Channels
	if channels == 0 {
		channels = nativeChannels(img)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &gpu.Image{Width: w, Height: h, Channels: channels, Pixels: make([]byte, w*h*channels)}

	switch channels {
	case 1:
		gray := image.NewGray(image.Rect(0, 0, w, h))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
		copyRows(out, gray.Pix, gray.Stride, 1, opts.FlipVertically)
	case 3, 4:
		nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
		copyRows(out, nrgba.Pix, nrgba.Stride, 4, opts.FlipVertically)
	default:
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	return out, nil
}

// copyRows packs src rows of srcBpp bytes per pixel into dst's channel layout.
func copyRows(dst *gpu.Image, src []byte, stride, srcBpp int, flip bool) {
	rowLen := dst.Width * dst.Channels
	for y := 0; y < dst.Height; y++ {
		sy := y
		if flip {
			sy = dst.Height - 1 - y
		}
		row := src[sy*stride:]
		d := dst.Pixels[y*rowLen : (y+1)*rowLen]
		if srcBpp == dst.Channels {
			copy(d, row[:rowLen])
			continue
		}
		for x := 0; x < dst.Width; x++ {
			copy(d[x*dst.Channels:(x+1)*dst.Channels], row[x*srcBpp:x*srcBpp+dst.Channels])
		}
	}
}

func nativeChannels(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return 3
	}
	return 4
}
