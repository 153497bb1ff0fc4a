package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/gpu/gputest"
)

// tgaFile builds a TGA with the given type, depth and descriptor byte.
func tgaFile(imageType, bpp, descriptor byte, w, h int, body []byte) []byte {
	hdr := make([]byte, tgaHeaderSize)
	hdr[2] = imageType
	hdr[12], hdr[13] = byte(w), byte(w>>8)
	hdr[14], hdr[15] = byte(h), byte(h>>8)
	hdr[16] = bpp
	hdr[17] = descriptor
	return append(hdr, body...)
}

func TestDecodeTGAUncompressedBottomUp(t *testing.T) {
	// 2x2, BGR, bottom row first: bottom = red, green; top = blue, white.
	body := []byte{
		0, 0, 255, 0, 255, 0,
		255, 0, 0, 255, 255, 255,
	}
	img, err := DecodeTGA(tgaFile(tgaTrueColor, 24, 0, 2, 2, body))
	require.NoError(t, err)

	nrgba, ok := img.(*image.NRGBA)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, nrgba.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, nrgba.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, nrgba.NRGBAAt(0, 1))
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, nrgba.NRGBAAt(1, 1))
}

func TestDecodeTGARLE(t *testing.T) {
	// 3x1 top-down BGRA: one run of 2 translucent red, one raw opaque blue.
	body := []byte{
		0x81, 0, 0, 255, 128,
		0x00, 255, 0, 0, 255,
	}
	img, err := DecodeTGA(tgaFile(tgaTrueColorRLE, 32, 0x20, 3, 1, body))
	require.NoError(t, err)

	nrgba := img.(*image.NRGBA)
	assert.Equal(t, color.NRGBA{255, 0, 0, 128}, nrgba.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 0, 0, 128}, nrgba.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, nrgba.NRGBAAt(2, 0))
}

func TestDecodeTGAGray(t *testing.T) {
	img, err := DecodeTGA(tgaFile(tgaGray, 8, 0x20, 2, 1, []byte{10, 200}))
	require.NoError(t, err)

	gray := img.(*image.Gray)
	assert.Equal(t, uint8(10), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(200), gray.GrayAt(1, 0).Y)
}

func TestDecodeTGAErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short header", []byte{0, 0, 2}},
		{"color mapped", func() []byte { d := tgaFile(tgaTrueColor, 24, 0, 1, 1, []byte{0, 0, 0}); d[1] = 1; return d }()},
		{"bad depth", tgaFile(tgaTrueColor, 16, 0, 1, 1, []byte{0, 0})},
		{"truncated pixels", tgaFile(tgaTrueColor, 24, 0, 2, 2, []byte{0, 0, 0})},
		{"truncated rle", tgaFile(tgaTrueColorRLE, 24, 0, 4, 1, []byte{0x81, 0, 0, 255})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTGA(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestTGAIsRegistered(t *testing.T) {
	data := tgaFile(tgaTrueColor, 24, 0x20, 1, 1, []byte{0, 255, 0})
	_, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "tga", format)
}

func TestPixelsChannelsAndFlip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	src.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	src.SetNRGBA(0, 1, color.NRGBA{0, 0, 255, 255})

	rgb, err := Pixels(src, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, rgb.Channels, "opaque images decode to RGB")
	assert.Equal(t, []byte{255, 0, 0, 0, 0, 255}, rgb.Pixels)

	flipped, err := Pixels(src, DecodeOptions{FlipVertically: true, Channels: 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 255, 255, 255, 0, 0, 255}, flipped.Pixels)

	src.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 10})
	rgba, err := Pixels(src, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, rgba.Channels)

	gray, err := Pixels(image.NewGray(image.Rect(0, 0, 3, 3)), DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, gray.Channels)
	assert.Len(t, gray.Pixels, 9)

	_, err = Pixels(src, DecodeOptions{Channels: 2})
	assert.Error(t, err)
}

func TestFileDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checker.png")
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	out, err := FileDecoder{}.Decode(path, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Width)
	assert.Equal(t, 2, out.Height)

	fromBytes, err := FileDecoder{}.DecodeBytes(buf.Bytes(), DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, out.Pixels, fromBytes.Pixels)

	_, err = FileDecoder{}.Decode(filepath.Join(t.TempDir(), "missing.png"), DecodeOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = FileDecoder{}.DecodeBytes([]byte("not an image"), DecodeOptions{})
	assert.ErrorIs(t, err, image.ErrFormat)
}

// stubDecoder returns a 1x1 image per call and records what it was asked.
type stubDecoder struct {
	paths []string
	opts  []DecodeOptions
	err   error
}

func (d *stubDecoder) Decode(path string, opts DecodeOptions) (*gpu.Image, error) {
	d.paths = append(d.paths, path)
	d.opts = append(d.opts, opts)
	if d.err != nil {
		return nil, d.err
	}
	ch := opts.Channels
	if ch == 0 {
		ch = 4
	}
	return &gpu.Image{Pixels: make([]byte, ch), Width: 1, Height: 1, Channels: ch}, nil
}

func (d *stubDecoder) DecodeBytes(data []byte, opts DecodeOptions) (*gpu.Image, error) {
	return d.Decode("<bytes>", opts)
}

func TestTextureTwoPhase(t *testing.T) {
	dev := gputest.New()
	dec := &stubDecoder{}
	tex := New2D("textures/wood.png")

	assert.False(t, tex.Loaded())
	require.NoError(t, tex.LoadData(dec))
	assert.True(t, tex.Loaded())
	assert.Zero(t, dev.Count("CreateTexture2D"), "LoadData must not touch the GPU")
	assert.True(t, dec.opts[0].FlipVertically)

	require.NoError(t, tex.Complete(dev))
	assert.NotZero(t, tex.Handle())
	assert.True(t, tex.Completed())
	assert.Nil(t, tex.Image(0), "pixels are dropped after upload")

	assert.Panics(t, func() { _ = tex.Complete(dev) })
	assert.Equal(t, 1, dev.Count("CreateTexture2D"))

	tex.Bind(3)
	bind := dev.Filter("BindTexture")
	require.Len(t, bind, 1)
	assert.Equal(t, []any{uint32(3), gpu.Texture2D, tex.Handle()}, bind[0].Args)

	tex.Release()
	tex.Release()
	assert.Equal(t, 1, dev.Count("DeleteTexture"))
	assert.Zero(t, dev.Live("texture"))
}

func TestTextureCompleteWithoutData(t *testing.T) {
	err := New2D("a.png").Complete(gputest.New())
	assert.Error(t, err)
}

func TestTextureLoadError(t *testing.T) {
	dec := &stubDecoder{err: errors.New("corrupt")}
	err := New2D("bad.png").LoadData(dec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.png")
	assert.Contains(t, err.Error(), "corrupt")
}

func TestEmbeddedTextureDecodesBytes(t *testing.T) {
	dec := &stubDecoder{}
	tex := NewEmbedded("duck.glb#image0", []byte{1, 2, 3})

	require.NoError(t, tex.LoadData(dec))
	assert.Equal(t, []string{"<bytes>"}, dec.paths)
	assert.Equal(t, "duck.glb#image0", tex.Key())
}

func TestLoadCubemap(t *testing.T) {
	dev := gputest.New()
	dec := &stubDecoder{}
	var paths [6]string
	for i, face := range CubemapFaces {
		paths[i] = filepath.Join("skybox", face+".jpg")
	}

	tex, err := LoadCubemap(dev, dec, paths)
	require.NoError(t, err)

	assert.Equal(t, KindCubemap, tex.Kind())
	assert.Equal(t, paths[:], dec.paths)
	for _, o := range dec.opts {
		assert.Equal(t, DecodeOptions{Channels: 3}, o)
	}
	assert.Equal(t, 1, dev.Count("CreateCubemap"))

	tex.Bind(0)
	assert.Equal(t, gpu.TextureCubemap, dev.Filter("BindTexture")[0].Args[1])
}
