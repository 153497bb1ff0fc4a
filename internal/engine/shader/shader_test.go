package shader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/simple3d/internal/engine/gpu"
	"github.com/Faultbox/simple3d/internal/engine/gpu/gputest"
)

const flatVS = `#version 410 core
layout (location = 0) in vec3 aPosition;
uniform mat4 pv;
uniform mat4 model;
void main() { gl_Position = pv * model * vec4(aPosition, 1.0); }
`

const flatFS = `#version 410 core
out vec4 FragColor;
uniform vec3 color;
void main() { FragColor = vec4(color, 1.0); }
`

func shaderFS() fstest.MapFS {
	return fstest.MapFS{
		"flat.vs": {Data: []byte(flatVS)},
		"flat.fs": {Data: []byte(flatFS)},
		"only.vs": {Data: []byte(flatVS)},
	}
}

func TestLoad(t *testing.T) {
	dev := gputest.New()

	p, err := Load(dev, shaderFS(), "flat")
	require.NoError(t, err)

	assert.Equal(t, "flat", p.Name())
	assert.NotZero(t, p.Handle())
	assert.Contains(t, dev.Program(p.Handle()), "uniform vec3 color;")
}

func TestLoadMissingStage(t *testing.T) {
	dev := gputest.New()

	_, err := Load(dev, shaderFS(), "only")
	require.Error(t, err)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "only.fs", srcErr.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Zero(t, dev.Count("CompileProgram"), "nothing compiled when a stage is missing")
}

func TestCompileFailure(t *testing.T) {
	dev := gputest.New()
	dev.CompileErr = &gpu.StageError{Stage: "fragment", Log: "0:3: syntax error"}

	_, err := Load(dev, shaderFS(), "flat")

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "flat", compileErr.Program)
	assert.Equal(t, "fragment", compileErr.Stage)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestIdentityIsUnique(t *testing.T) {
	dev := gputest.New()

	a, err := Load(dev, shaderFS(), "flat")
	require.NoError(t, err)
	b, err := Load(dev, shaderFS(), "flat")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
}

func TestUniformLocationCache(t *testing.T) {
	dev := gputest.New()
	p, err := Load(dev, shaderFS(), "flat")
	require.NoError(t, err)
	p.Use()

	p.SetVec3("color", mgl32.Vec3{1, 0, 0})
	p.SetVec3("color", mgl32.Vec3{0, 1, 0})
	p.SetMat4("pv", mgl32.Ident4())

	assert.Equal(t, 2, dev.Count("UniformLocation"), "one lookup per distinct uniform")
	require.Len(t, dev.UniformsNamed("color"), 2)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, dev.UniformsNamed("color")[1].Value)
}

func TestMissingUniformIsNoop(t *testing.T) {
	dev := gputest.New()
	p, err := Load(dev, shaderFS(), "flat")
	require.NoError(t, err)
	p.Use()

	p.SetFloat("shininess", 32)
	p.SetFloat("shininess", 64)

	assert.Equal(t, 1, dev.Count("UniformLocation"))
	assert.Zero(t, dev.Count("SetUniformFloat"))
	assert.False(t, p.HasUniform("shininess"))
	assert.True(t, p.HasUniform("model"))
}

func TestDestroyIsIdempotent(t *testing.T) {
	dev := gputest.New()
	p, err := Load(dev, shaderFS(), "flat")
	require.NoError(t, err)

	p.Destroy()
	p.Destroy()

	assert.Equal(t, 1, dev.Count("DeleteProgram"))
	assert.Zero(t, p.Handle())
	assert.Zero(t, dev.Live("program"))
}

func TestWatcherSignalsShaderEdits(t *testing.T) {
	dir := t.TempDir()
	w, err := Watch(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.fs"), []byte(flatFS), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fxaa.fs"), []byte(flatFS), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.fs"), []byte(flatFS), 0644))

	seen := make(map[string]int)
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case <-w.Changed():
			for _, p := range w.Pending() {
				seen[filepath.Base(p)]++
			}
		case <-deadline:
			t.Fatalf("changes reported: %v, want model.fs and fxaa.fs", seen)
		}
	}

	assert.Contains(t, seen, "model.fs")
	assert.Contains(t, seen, "fxaa.fs")
	assert.NotContains(t, seen, "notes.txt")
}

func TestWatcherPendingCoalesces(t *testing.T) {
	w := &Watcher{notify: make(chan struct{}, 1), pending: make(map[string]struct{})}

	w.add("/s/model.fs")
	w.add("/s/fxaa.fs")
	w.add("/s/model.fs")

	select {
	case <-w.Changed():
	default:
		t.Fatal("no signal for pending changes")
	}
	assert.Equal(t, []string{"/s/fxaa.fs", "/s/model.fs"}, w.Pending())
	assert.Nil(t, w.Pending(), "drained")

	select {
	case <-w.Changed():
		t.Fatal("signal left over after a single drain")
	default:
	}
}
