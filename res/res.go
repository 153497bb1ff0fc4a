// Package res embeds the default shader sources.
package res

import (
	"embed"
	"io/fs"
)

//go:embed shaders/*.vs shaders/*.fs
var embedded embed.FS

// Shaders is the shader directory: <name>.vs and <name>.fs per program.
var Shaders fs.FS

func init() {
	sub, err := fs.Sub(embedded, "shaders")
	if err != nil {
		panic(err)
	}
	Shaders = sub
}
