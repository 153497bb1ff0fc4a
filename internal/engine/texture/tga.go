package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// TGA image types handled by the decoder.
const (
	tgaTrueColor    = 2
	tgaGray         = 3
	tgaTrueColorRLE = 10
	tgaGrayRLE      = 11
)

const tgaHeaderSize = 18

func init() {
	// '?' matches the variable ID length byte; color-mapped files are rejected.
	for _, magic := range []string{"?\x00\x02", "?\x00\x03", "?\x00\x0a", "?\x00\x0b"} {
		image.RegisterFormat("tga", magic, decodeTGAReader, decodeTGAConfig)
	}
}

type tgaHeader struct {
	idLength    int
	imageType   byte
	width       int
	height      int
	bpp         int
	topToBottom bool
}

func parseTGAHeader(data []byte) (tgaHeader, error) {
	if len(data) < tgaHeaderSize {
		return tgaHeader{}, errors.New("tga: header too short")
	}
	h := tgaHeader{
		idLength:    int(data[0]),
		imageType:   data[2],
		width:       int(data[12]) | int(data[13])<<8,
		height:      int(data[14]) | int(data[15])<<8,
		bpp:         int(data[16]),
		topToBottom: data[17]&0x20 != 0,
	}
	if data[1] != 0 {
		return h, errors.New("tga: color-mapped images not supported")
	}
	switch h.imageType {
	case tgaTrueColor, tgaTrueColorRLE:
		if h.bpp != 24 && h.bpp != 32 {
			return h, fmt.Errorf("tga: unsupported true-color depth %d", h.bpp)
		}
	case tgaGray, tgaGrayRLE:
		if h.bpp != 8 {
			return h, fmt.Errorf("tga: unsupported grayscale depth %d", h.bpp)
		}
	default:
		return h, fmt.Errorf("tga: unsupported image type %d", h.imageType)
	}
	if h.width == 0 || h.height == 0 {
		return h, errors.New("tga: empty image")
	}
	return h, nil
}

func decodeTGAConfig(r io.Reader) (image.Config, error) {
	var buf [tgaHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return image.Config{}, fmt.Errorf("tga: %w", err)
	}
	h, err := parseTGAHeader(buf[:])
	if err != nil {
		return image.Config{}, err
	}
	model := color.NRGBAModel
	if h.bpp == 8 {
		model = color.GrayModel
	}
	return image.Config{ColorModel: model, Width: h.width, Height: h.height}, nil
}

func decodeTGAReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tga: %w", err)
	}
	return DecodeTGA(data)
}

// DecodeTGA decodes uncompressed and RLE true-color or grayscale TGA data.
// True-color images decode to *image.NRGBA, grayscale to *image.Gray.
func DecodeTGA(data []byte) (image.Image, error) {
	h, err := parseTGAHeader(data)
	if err != nil {
		return nil, err
	}

	offset := tgaHeaderSize + h.idLength
	if offset > len(data) {
		return nil, errors.New("tga: truncated image ID")
	}
	src := data[offset:]
	bytesPerPixel := h.bpp / 8
	rle := h.imageType == tgaTrueColorRLE || h.imageType == tgaGrayRLE

	bounds := image.Rect(0, 0, h.width, h.height)
	var (
		pix    []byte
		stride int
		outBpp int
		result image.Image
	)
	if bytesPerPixel == 1 {
		gray := image.NewGray(bounds)
		pix, stride, outBpp, result = gray.Pix, gray.Stride, 1, gray
	} else {
		nrgba := image.NewNRGBA(bounds)
		pix, stride, outBpp, result = nrgba.Pix, nrgba.Stride, 4, nrgba
	}

	// put writes one source pixel (BGR[A] or gray) at linear index i.
	put := func(i int, px []byte) {
		x, y := i%h.width, i/h.width
		if !h.topToBottom {
			y = h.height - 1 - y
		}
		o := y*stride + x*outBpp
		if outBpp == 1 {
			pix[o] = px[0]
			return
		}
		pix[o], pix[o+1], pix[o+2], pix[o+3] = px[2], px[1], px[0], 255
		if bytesPerPixel == 4 {
			pix[o+3] = px[3]
		}
	}

	count := h.width * h.height
	if !rle {
		if len(src) < count*bytesPerPixel {
			return nil, errors.New("tga: truncated pixel data")
		}
		for i := 0; i < count; i++ {
			put(i, src[i*bytesPerPixel:])
		}
		return result, nil
	}

	i, pos := 0, 0
	for i < count {
		if pos >= len(src) {
			return nil, errors.New("tga: truncated RLE data")
		}
		packet := src[pos]
		pos++
		run := int(packet&0x7f) + 1

		if packet&0x80 != 0 {
			if pos+bytesPerPixel > len(src) {
				return nil, errors.New("tga: truncated RLE packet")
			}
			px := src[pos : pos+bytesPerPixel]
			pos += bytesPerPixel
			for ; run > 0 && i < count; run-- {
				put(i, px)
				i++
			}
			continue
		}

		for ; run > 0 && i < count; run-- {
			if pos+bytesPerPixel > len(src) {
				return nil, errors.New("tga: truncated raw packet")
			}
			put(i, src[pos:pos+bytesPerPixel])
			pos += bytesPerPixel
			i++
		}
	}

	return result, nil
}
