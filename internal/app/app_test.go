package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"trafficserver/internal/config"
	"trafficserver/internal/logger"
	"trafficserver/internal/service/ai"
)

func TestNewApp_MissingModelIsFatal(t *testing.T) {
	cfg := config.Default()
	cfg.ModelPath = filepath.Join(t.TempDir(), "yolov8n.onnx")

	application, err := NewApp(cfg, logger.NewNop())
	assert.Nil(t, application)
	assert.ErrorIs(t, err, ai.ErrModelNotFound)
}
