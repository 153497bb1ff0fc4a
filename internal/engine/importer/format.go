package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// Format is a supported model file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatGLTF
	FormatGLB
)

func (f Format) String() string {
	switch f {
	case FormatGLTF:
		return "gltf"
	case FormatGLB:
		return "glb"
	default:
		return "unknown"
	}
}

var glbType = filetype.NewType("glb", "model/gltf-binary")

func init() {
	filetype.AddMatcher(glbType, func(buf []byte) bool {
		return len(buf) >= 12 && bytes.HasPrefix(buf, []byte("glTF"))
	})
}

// sniffSize covers the longest magic filetype inspects.
const sniffSize = 262

// DetectFormat identifies a model file from its header, falling back to the
// extension for text formats.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	head = head[:n]

	kind, _ := filetype.Match(head)
	switch {
	case kind == glbType:
		return FormatGLB, nil
	case kind != filetype.Unknown:
		return FormatUnknown, fmt.Errorf("unsupported file type %s", describe(kind))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf":
		if bytes.HasPrefix(bytes.TrimSpace(head), []byte("{")) {
			return FormatGLTF, nil
		}
		return FormatUnknown, errors.New("gltf file is not JSON")
	case ".glb":
		return FormatUnknown, errors.New("glb file has no glTF header")
	}
	return FormatUnknown, fmt.Errorf("unsupported model extension %q", filepath.Ext(path))
}

func describe(t types.Type) string {
	if t.MIME.Value != "" {
		return t.MIME.Value
	}
	return t.Extension
}
