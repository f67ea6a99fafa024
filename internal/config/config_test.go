package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, 0, cfg.WebcamDevice)
	assert.Equal(t, "sample_traffic_video.mp4", cfg.VideoPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("port: 6000\nvideoPath: clips/highway.mp4\nconfidence: 0.4\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	t.Setenv("PORT", "7000")
	t.Setenv("JPEG_QUALITY", "80")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "clips/highway.mp4", cfg.VideoPath)
	assert.InDelta(t, 0.4, cfg.Confidence, 1e-9)
	assert.Equal(t, 80, cfg.JPEGQuality)
	assert.Equal(t, 640, cfg.InputSize)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number"), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoad_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("WEBCAM_DEVICE", "abc")
	t.Setenv("CONFIDENCE", "high")

	cfg := Load()

	assert.Equal(t, 0, cfg.WebcamDevice)
	assert.InDelta(t, 0.25, cfg.Confidence, 1e-9)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"empty model", func(c *Config) { c.ModelPath = "" }},
		{"confidence above one", func(c *Config) { c.Confidence = 1.5 }},
		{"negative nms", func(c *Config) { c.NMSThreshold = -0.1 }},
		{"input not multiple of 32", func(c *Config) { c.InputSize = 100 }},
		{"jpeg quality zero", func(c *Config) { c.JPEGQuality = 0 }},
		{"negative buffer", func(c *Config) { c.StreamBuffer = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
