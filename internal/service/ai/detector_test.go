package ai

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"trafficserver/internal/config"
	"trafficserver/internal/dto"
	"trafficserver/internal/logger"
)

func TestNewDetectorService_MissingModel(t *testing.T) {
	cfg := config.Default()
	cfg.ModelPath = filepath.Join(t.TempDir(), "absent.onnx")

	ds, err := NewDetectorService(cfg, logger.NewNop())
	assert.Nil(t, ds)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestDrawDetections_KeepsDimensionsAndInput(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC3)
	defer frame.Close()

	dets := []dto.DetectionResult{
		{ClassID: 2, Label: "car", Confidence: 0.9, X: 10, Y: 20, Width: 50, Height: 30},
		{ClassID: 0, Label: "person", Confidence: 0.6, X: 200, Y: 100, Width: 20, Height: 60},
	}

	annotated, err := DrawDetections(frame, dets, 1)
	require.NoError(t, err)
	defer annotated.Close()

	assert.Equal(t, frame.Rows(), annotated.Rows())
	assert.Equal(t, frame.Cols(), annotated.Cols())
	assert.Equal(t, frame.Type(), annotated.Type())
	// the input is left untouched
	assert.Equal(t, 0, gocv.CountNonZero(toGray(t, frame)))
	assert.Greater(t, gocv.CountNonZero(toGray(t, annotated)), 0)
}

func TestDetect_EmptyFrame(t *testing.T) {
	ds := &DetectorService{logger: logger.NewNop()}
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := ds.Detect(empty)
	assert.Error(t, err)
}

func toGray(t *testing.T, m gocv.Mat) gocv.Mat {
	t.Helper()
	gray := gocv.NewMat()
	t.Cleanup(func() { gray.Close() })
	require.NoError(t, gocv.CvtColor(m, &gray, gocv.ColorBGRToGray))
	return gray
}
