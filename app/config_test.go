package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzxzzk115/vulkaninja/ui"
)

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
vsync = false

[window]
title = "demo"

[ui]
style = "Gray"

[context]
validation = true
ray_tracing = true
`))
	require.NoError(t, err)

	assert.False(t, cfg.VSync)
	assert.Equal(t, "demo", cfg.Window.Title)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.True(t, cfg.Window.Resizable)

	assert.Equal(t, ui.StyleGray, cfg.UI.Style)
	assert.Equal(t, float32(16), cfg.UI.FontSize)

	assert.True(t, cfg.Context.Validation)
	assert.True(t, cfg.Context.RayTracing)
	assert.Equal(t, "vulkaninja", cfg.Context.AppName)
	assert.Equal(t, uint32(100), cfg.Context.DescriptorCount)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte(`[ui]
style = "neon"`))
	assert.Error(t, err)

	_, err = ParseConfig([]byte(`[window]
width = 0`))
	assert.Error(t, err)

	_, err = ParseConfig([]byte(`vsync = `))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window]\nwidth = 640\nheight = 480\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 480, cfg.Window.Height)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
