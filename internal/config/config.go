// Package config handles viewer configuration loading and management.
package config

// Config holds all viewer settings.
type Config struct {
	Window      WindowConfig     `yaml:"window"`
	Viewer      ViewerConfig     `yaml:"viewer"`
	Camera      CameraConfig     `yaml:"camera"`
	Loading     LoadingConfig    `yaml:"loading"`
	Logging     LoggingConfig    `yaml:"logging"`
	Screenshots ScreenshotConfig `yaml:"screenshots"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// ViewerConfig holds rendering resources and startup behaviour.
type ViewerConfig struct {
	ShaderDir     string   `yaml:"shader_dir"`    // Empty uses the embedded shaders
	WatchShaders  bool     `yaml:"watch_shaders"` // Reload the model shader when ShaderDir changes
	SkyboxDir     string   `yaml:"skybox_dir"`    // right/left/top/bottom/front/back.jpg
	Postprocesses []string `yaml:"postprocesses"` // Effect names, one <name>.fs each
	Model         string   `yaml:"model"`         // Loaded at startup when set
}

// CameraConfig holds the free-fly camera defaults.
type CameraConfig struct {
	Speed       float32 `yaml:"speed"`
	Sensitivity float32 `yaml:"sensitivity"`
}

// LoadingConfig holds model import options.
type LoadingConfig struct {
	FlipUVs bool `yaml:"flip_uvs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ScreenshotConfig holds screenshot output settings.
type ScreenshotConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Simple 3D Viewer",
			Width:  800,
			Height: 600,
			VSync:  true,
		},
		Viewer: ViewerConfig{
			SkyboxDir:     "res/textures/skybox",
			Postprocesses: []string{"FXAA", "inversion", "grayscale"},
		},
		Camera: CameraConfig{
			Speed:       2,
			Sensitivity: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Screenshots: ScreenshotConfig{
			Dir:    "screenshots",
			Prefix: "simple3d",
		},
	}
}
