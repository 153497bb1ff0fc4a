package debug

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/simple3d/internal/engine/gpu/gputest"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.UTC)
}

func TestGenerateFilename(t *testing.T) {
	sc := NewScreenshotCapture("shots", "simple3d")
	sc.now = fixedClock

	assert.Equal(t, filepath.Join("shots", "simple3d_2026-03-14_15-09-26.535.png"), sc.GenerateFilename())

	sc.SetOutputDir("")
	assert.Equal(t, "simple3d_2026-03-14_15-09-26.535.png", sc.GenerateFilename())
}

func TestCaptureFromPixelsFlipsRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	sc := NewScreenshotCapture(dir, "shot")

	// Bottom row red, top row blue, as GL returns them.
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	name, err := sc.CaptureFromPixels(pixels, 1, 2)
	require.NoError(t, err)

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, color.RGBAModel.Convert(color.RGBA{0, 0, 255, 255}), color.RGBAModel.Convert(img.At(0, 0)))
	assert.Equal(t, color.RGBAModel.Convert(color.RGBA{255, 0, 0, 255}), color.RGBAModel.Convert(img.At(0, 1)))
}

func TestCaptureFromPixelsSizeMismatch(t *testing.T) {
	sc := NewScreenshotCapture(t.TempDir(), "shot")
	_, err := sc.CaptureFromPixels(make([]byte, 7), 1, 2)
	assert.Error(t, err)
}

func TestCaptureReadsFramebuffer(t *testing.T) {
	dev := gputest.New()
	sc := NewScreenshotCapture(t.TempDir(), "shot")

	name, err := sc.Capture(dev, 42, 4, 3)
	require.NoError(t, err)

	assert.Equal(t, uint32(42), dev.BoundFramebuffer())
	assert.Equal(t, []any{int32(4), int32(3)}, dev.Filter("ReadPixels")[0].Args)
	assert.FileExists(t, name)
}
