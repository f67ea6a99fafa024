package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Host              string  `yaml:"host"`
	Port              int     `yaml:"port"`
	ModelPath         string  `yaml:"modelPath"`
	VideoPath         string  `yaml:"videoPath"`
	WebcamDevice      int     `yaml:"webcamDevice"`
	Confidence        float64 `yaml:"confidence"`   // Minimalna pewnosc detekcji
	NMSThreshold      float64 `yaml:"nmsThreshold"` // Prog IoU dla NMS
	InputSize         int     `yaml:"inputSize"`    // Rozmiar wejscia sieci (kwadrat)
	JPEGQuality       int     `yaml:"jpegQuality"`
	StreamBuffer      int     `yaml:"streamBuffer"` // Ile klatek moze czekac na jednego klienta
	LogDirectory      string  `yaml:"logDir"`
	LogLevel          string  `yaml:"logLevel"`
	MetricsIntervalMs int     `yaml:"metricsIntervalMs"`
}

// Default returns the built-in configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              5000,
		ModelPath:         filepath.Join(".", "models", "yolov8n.onnx"),
		VideoPath:         "sample_traffic_video.mp4",
		WebcamDevice:      0,
		Confidence:        0.25,
		NMSThreshold:      0.7,
		InputSize:         640,
		JPEGQuality:       95,
		StreamBuffer:      4,
		LogDirectory:      filepath.Join(".", "logs"),
		LogLevel:          "info",
		MetricsIntervalMs: 1000,
	}
}

// Load builds the configuration from defaults, an optional .env file and the environment.
func Load() *Config {
	cfg, err := LoadFile("")
	if err != nil {
		// Without a YAML file the only failure source is a broken .env, fall back to plain env.
		cfg = Default()
		cfg.applyEnv()
	}
	return cfg
}

// LoadFile layers defaults, the YAML file at path (if non-empty), .env and environment
// variables, in that order of increasing precedence.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Host = getEnv("HOST", c.Host)
	c.Port = getEnvAsInt("PORT", c.Port)
	c.ModelPath = getEnv("MODEL_PATH", c.ModelPath)
	c.VideoPath = getEnv("VIDEO_PATH", c.VideoPath)
	c.WebcamDevice = getEnvAsInt("WEBCAM_DEVICE", c.WebcamDevice)
	c.Confidence = getEnvAsFloat("CONFIDENCE", c.Confidence)
	c.NMSThreshold = getEnvAsFloat("NMS_THRESHOLD", c.NMSThreshold)
	c.InputSize = getEnvAsInt("INPUT_SIZE", c.InputSize)
	c.JPEGQuality = getEnvAsInt("JPEG_QUALITY", c.JPEGQuality)
	c.StreamBuffer = getEnvAsInt("STREAM_BUFFER", c.StreamBuffer)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.MetricsIntervalMs = getEnvAsInt("METRICS_INTERVAL_MS", c.MetricsIntervalMs)
}

// Validate reports the first out-of-range value.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port: %d", c.Port)
	case c.ModelPath == "":
		return errors.New("model path cannot be empty")
	case c.Confidence < 0 || c.Confidence > 1:
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %f", c.Confidence)
	case c.NMSThreshold < 0 || c.NMSThreshold > 1:
		return fmt.Errorf("nms threshold must be between 0.0 and 1.0, got %f", c.NMSThreshold)
	case c.InputSize <= 0 || c.InputSize%32 != 0:
		return fmt.Errorf("input size must be a positive multiple of 32, got %d", c.InputSize)
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return fmt.Errorf("jpeg quality must be between 1 and 100, got %d", c.JPEGQuality)
	case c.StreamBuffer < 0:
		return fmt.Errorf("stream buffer cannot be negative, got %d", c.StreamBuffer)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
