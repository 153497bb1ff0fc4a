package config

import (
	"flag"
	"strings"
)

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagFullscreen   = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth        = flag.Int("width", 0, "Window width")
	flagHeight       = flag.Int("height", 0, "Window height")
	flagModel        = flag.String("model", "", "Model file to load at startup")
	flagShaders      = flag.String("shaders", "", "Shader directory (default: embedded shaders)")
	flagWatch        = flag.Bool("watch", false, "Reload shaders when files in -shaders change")
	flagSkybox       = flag.String("skybox", "", "Skybox texture directory")
	flagPostprocess  = flag.String("postprocess", "", "Comma-separated post-process effect names")
	flagFlipUVs      = flag.Bool("flip-uvs", false, "Flip texture V coordinates on import")
	flagScreenshotTo = flag.String("screenshots", "", "Screenshot output directory")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagModel != "" {
		cfg.Viewer.Model = *flagModel
	}
	if *flagShaders != "" {
		cfg.Viewer.ShaderDir = *flagShaders
	}
	if *flagWatch {
		cfg.Viewer.WatchShaders = true
	}
	if *flagSkybox != "" {
		cfg.Viewer.SkyboxDir = *flagSkybox
	}
	if *flagPostprocess != "" {
		cfg.Viewer.Postprocesses = splitList(*flagPostprocess)
	}
	if *flagFlipUVs {
		cfg.Loading.FlipUVs = true
	}
	if *flagScreenshotTo != "" {
		cfg.Screenshots.Dir = *flagScreenshotTo
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
