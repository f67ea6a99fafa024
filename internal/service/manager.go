package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
	"trafficserver/internal/config"
	"trafficserver/internal/dto"
	"trafficserver/internal/logger"
	"trafficserver/internal/monitor"
	"trafficserver/internal/service/ai"
	"trafficserver/internal/service/capture"
	"trafficserver/internal/service/stream"
)

// Detector annotates a single frame. *ai.DetectorService is the production implementation.
type Detector interface {
	Detect(frame gocv.Mat) (ai.Annotation, error)
	Close() error
}

// CountNotifier is told about every freshly computed vehicle count.
type CountNotifier interface {
	BroadcastCount(count int)
}

// run is one Idle→Running→Idle cycle with its own capture handle and subscribers.
type run struct {
	selector    capture.Selector
	handle      *capture.Handle
	broadcaster *stream.Broadcaster
	cancel      context.CancelFunc
	done        chan struct{}
}

// Manager owns the frame pipeline: at most one capture source is open at a time and a
// single producer goroutine feeds every attached consumer.
type Manager struct {
	detector     Detector
	opener       capture.Opener
	selectors    map[capture.Kind]capture.Selector
	jpegQuality  int
	streamBuffer int

	state    *State
	metrics  *monitor.Metrics
	notifier CountNotifier
	logger   *logger.Logger

	mu     sync.Mutex // chroni run
	active *run
}

func NewManager(detector Detector, opener capture.Opener, cfg *config.Config, metrics *monitor.Metrics, notifier CountNotifier, logger *logger.Logger) *Manager {
	return &Manager{
		detector: detector,
		opener:   opener,
		selectors: map[capture.Kind]capture.Selector{
			capture.Webcam: {Kind: capture.Webcam, Device: cfg.WebcamDevice},
			capture.Video:  {Kind: capture.Video, Path: cfg.VideoPath},
		},
		jpegQuality:  cfg.JPEGQuality,
		streamBuffer: cfg.StreamBuffer,
		state:        &State{},
		metrics:      metrics,
		notifier:     notifier,
		logger:       logger,
	}
}

// Attach subscribes the caller to the frame stream. When the pipeline is idle the
// selector for kind is opened and a new run starts; when it is already running the
// caller joins the existing run and kind is ignored.
func (m *Manager) Attach(kind capture.Kind) (*stream.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		if m.active.selector.Kind != kind {
			m.logger.Debug("Pipeline already running %s, ignoring requested %s", m.active.selector, kind)
		}
		return m.active.broadcaster.Subscribe(m.streamBuffer), nil
	}

	sel, ok := m.selectors[kind]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", kind)
	}

	src, err := m.opener.Open(sel)
	if err != nil {
		m.logger.Warning("Failed to open capture source %s: %v", sel, err)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		selector:    sel,
		handle:      capture.NewHandle(src),
		broadcaster: stream.NewBroadcaster(),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	sub := r.broadcaster.Subscribe(m.streamBuffer)

	m.active = r
	m.state.setRunning(sel)
	m.metrics.SetRunning(true)
	m.logger.Info("🎬 Pipeline started on %s", sel)

	go m.produce(ctx, r)
	return sub, nil
}

// Stop ends the current run and returns once the capture source has been released.
// Without a run it does nothing.
func (m *Manager) Stop() {
	m.mu.Lock()
	r := m.active
	m.mu.Unlock()

	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// Close stops the pipeline and releases the detector.
func (m *Manager) Close() error {
	m.Stop()
	return m.detector.Close()
}

func (m *Manager) VehicleCount() int {
	return m.state.VehicleCount()
}

func (m *Manager) LatestFrame() []byte {
	return m.state.LatestFrame()
}

func (m *Manager) Running() bool {
	return m.state.Running()
}

func (m *Manager) Status() dto.PipelineStatus {
	snap := m.state.snapshot()

	status := dto.PipelineStatus{
		Running: snap.running,
		Count:   snap.count,
		Frames:  snap.frames,
	}
	if snap.running {
		status.Source = snap.selector.String()
	}

	m.mu.Lock()
	if m.active != nil {
		status.Subscribers = m.active.broadcaster.Len()
	}
	m.mu.Unlock()
	return status
}

// produce is the read-detect-encode-publish loop of one run.
func (m *Manager) produce(ctx context.Context, r *run) {
	defer m.finish(r)

	frame := gocv.NewMat()
	defer frame.Close()

	for ctx.Err() == nil {
		if err := r.handle.Read(&frame); err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				m.logger.Info("Capture source %s reached end of stream", r.selector)
			} else {
				m.logger.Error("Error reading from %s: %v", r.selector, err)
			}
			return
		}

		data, count, err := m.process(frame)
		if err != nil {
			m.metrics.FrameFailed()
			m.logger.Error("Frame processing failed: %v", err)
			return
		}

		m.state.publish(data, count)
		if m.notifier != nil {
			m.notifier.BroadcastCount(count)
		}

		if err := r.broadcaster.Publish(ctx, data); err != nil {
			return
		}
	}
}

// process runs detection on frame and returns the annotated frame as JPEG.
func (m *Manager) process(frame gocv.Mat) ([]byte, int, error) {
	annotation, err := m.detector.Detect(frame)
	if err != nil {
		return nil, 0, fmt.Errorf("detection failed: %w", err)
	}
	defer annotation.Frame.Close()

	data, err := EncodeJPEG(annotation.Frame, m.jpegQuality)
	if err != nil {
		return nil, 0, err
	}

	m.metrics.FrameProcessed(annotation.VehicleCount, annotation.Elapsed)
	return data, annotation.VehicleCount, nil
}

// finish runs on every exit path of produce: release the source, go Idle and end
// all subscriptions of the run.
func (m *Manager) finish(r *run) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := r.handle.Release(); err != nil {
		m.logger.Warning("Error releasing capture source %s: %v", r.selector, err)
	}
	if m.active == r {
		m.active = nil
	}
	m.state.setIdle()
	m.metrics.SetRunning(false)
	r.broadcaster.CloseAll()
	r.cancel()
	close(r.done)

	m.logger.Info("🛑 Pipeline stopped, capture source %s released", r.selector)
}

// EncodeJPEG compresses mat into a standalone JPEG image.
func EncodeJPEG(mat gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	src := buf.GetBytes()
	data := make([]byte, len(src))
	copy(data, src)
	return data, nil
}
