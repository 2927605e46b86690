package app

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/zzxzzk115/vulkaninja"
	"github.com/zzxzzk115/vulkaninja/ui"
	"github.com/zzxzzk115/vulkaninja/window"
)

// Config is everything needed to open a window and render into it. It maps
// to a TOML document with window, ui and context tables:
//
//	vsync = false
//
//	[window]
//	width = 1280
//	height = 720
//	title = "demo"
//
//	[ui]
//	style = "gray"
//
//	[context]
//	validation = true
type Config struct {
	VSync bool `toml:"vsync"`

	Window  window.Config            `toml:"window"`
	UI      ui.Config                `toml:"ui"`
	Context vulkaninja.ContextConfig `toml:"context"`
}

func DefaultConfig() Config {
	return Config{
		VSync: true,
		Window: window.Config{
			Width:     1280,
			Height:    720,
			Title:     "vulkaninja",
			Resizable: true,
		},
		UI: ui.Config{
			Style:    ui.StyleVulkan,
			FontSize: 16,
		},
		Context: vulkaninja.DefaultContextConfig(),
	}
}

// ParseConfig reads a TOML document on top of DefaultConfig
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse app config")
	}
	return cfg, cfg.validate()
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), errors.Wrapf(err, "read app config %s", path)
	}
	return ParseConfig(data)
}

// validate normalizes the style name and rejects sizes GLFW cannot open
func (c *Config) validate() error {
	style, err := ui.ParseStyle(string(c.UI.Style))
	if err != nil {
		return err
	}
	c.UI.Style = style
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}
