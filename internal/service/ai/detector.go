package ai

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"
	"trafficserver/internal/config"
	"trafficserver/internal/dto"
	"trafficserver/internal/logger"
)

// ErrModelNotFound is returned when the model file does not exist.
var ErrModelNotFound = errors.New("model file not found")

var (
	vehicleColor = color.RGBA{R: 255, G: 140, B: 0, A: 0}
	otherColor   = color.RGBA{R: 160, G: 160, B: 160, A: 0}
	bannerColor  = color.RGBA{R: 255, G: 255, B: 0, A: 0}
)

// Annotation is the outcome of running the detector on one frame.
// Frame is an annotated copy of the input and must be closed by the caller.
type Annotation struct {
	Frame        gocv.Mat
	Detections   []dto.DetectionResult
	VehicleCount int
	Elapsed      time.Duration
}

type DetectorService struct {
	net          gocv.Net
	mu           sync.Mutex
	modelPath    string
	inputSize    image.Point
	confidence   float32
	nmsThreshold float32
	logger       *logger.Logger
}

// NewDetectorService loads the YOLOv8 ONNX model. A missing or unreadable model is an
// error; callers are expected to treat it as fatal.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) (*DetectorService, error) {
	service := &DetectorService{
		modelPath:    cfg.ModelPath,
		inputSize:    image.Pt(cfg.InputSize, cfg.InputSize),
		confidence:   float32(cfg.Confidence),
		nmsThreshold: float32(cfg.NMSThreshold),
		logger:       logger,
	}

	if err := service.initializeNet(); err != nil {
		return nil, err
	}
	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized from %s", s.modelPath)
	return nil
}

// Detect runs the model on frame, counts vehicles and draws the detections on a copy.
func (s *DetectorService) Detect(frame gocv.Mat) (Annotation, error) {
	if frame.Empty() {
		return Annotation{}, fmt.Errorf("frame is empty")
	}

	start := time.Now()
	detections, err := s.detectObjects(frame)
	if err != nil {
		return Annotation{}, err
	}

	count := CountVehicles(detections)
	annotated, err := DrawDetections(frame, detections, count)
	if err != nil {
		return Annotation{}, err
	}

	return Annotation{
		Frame:        annotated,
		Detections:   detections,
		VehicleCount: count,
		Elapsed:      time.Since(start),
	}, nil
}

// detectObjects runs the forward pass and returns detections after NMS.
func (s *DetectorService) detectObjects(frame gocv.Mat) ([]dto.DetectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.net.Empty() {
		return nil, fmt.Errorf("detection network not initialized")
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, s.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	// YOLOv8 output shape: [1, 4+classes, anchors]
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	scaleX := float32(frame.Cols()) / float32(s.inputSize.X)
	scaleY := float32(frame.Rows()) / float32(s.inputSize.Y)
	candidates := decodeYOLOv8(data, dims[1], dims[2], scaleX, scaleY, s.confidence)
	if len(candidates) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.box
		scores[i] = c.score
	}

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	indices := gocv.NMSBoxes(boxes, scores, s.confidence, s.nmsThreshold)

	results := make([]dto.DetectionResult, 0, len(indices))
	for _, idx := range indices {
		c := candidates[idx]
		box := c.box.Intersect(bounds)
		if box.Empty() {
			continue
		}
		results = append(results, dto.DetectionResult{
			ClassID:    c.classID,
			Label:      ClassLabel(c.classID),
			Confidence: float64(c.score),
			X:          box.Min.X,
			Y:          box.Min.Y,
			Width:      box.Dx(),
			Height:     box.Dy(),
		})
	}

	s.logger.Debug("Detected %d object(s)", len(results))
	return results, nil
}

// DrawDetections renders boxes, labels and the vehicle count onto a clone of frame.
// The returned Mat has the same dimensions as frame and belongs to the caller.
func DrawDetections(frame gocv.Mat, detections []dto.DetectionResult, vehicles int) (gocv.Mat, error) {
	mat := frame.Clone()

	for _, detection := range detections {
		c := otherColor
		if IsVehicleClass(detection.ClassID) {
			c = vehicleColor
		}

		rect := image.Rect(detection.X, detection.Y, detection.X+detection.Width, detection.Y+detection.Height)
		if err := gocv.Rectangle(&mat, rect, c, 2); err != nil {
			mat.Close()
			return gocv.Mat{}, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s %.2f", detection.Label, detection.Confidence)
		pt := image.Pt(detection.X, max(detection.Y-5, 12))
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, c, 1); err != nil {
			mat.Close()
			return gocv.Mat{}, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	banner := fmt.Sprintf("Vehicles: %d", vehicles)
	if err := gocv.PutText(&mat, banner, image.Pt(15, 30), gocv.FontHersheySimplex, 0.8, bannerColor, 2); err != nil {
		mat.Close()
		return gocv.Mat{}, fmt.Errorf("failed to draw text: %w", err)
	}

	return mat, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}
