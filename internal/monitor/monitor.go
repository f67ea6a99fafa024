package monitor

import (
	"context"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
	"trafficserver/internal/logger"
)

// Metrics holds the pipeline and process collectors exposed on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	framesProcessed  prometheus.Counter
	framesFailed     prometheus.Counter
	vehicleCount     prometheus.Gauge
	pipelineRunning  prometheus.Gauge
	activeStreams    prometheus.Gauge
	inferenceSeconds prometheus.Histogram
	memUsage         prometheus.Gauge
	cpuUsage         prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frames_processed_total",
			Help: "Total number of frames annotated and published",
		}),
		framesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frames_failed_total",
			Help: "Total number of frames that could not be annotated or encoded",
		}),
		vehicleCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vehicle_count",
			Help: "Vehicles detected in the most recent frame",
		}),
		pipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_running",
			Help: "1 while a capture source is attached",
		}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_streams",
			Help: "Number of connected video feed consumers",
		}),
		inferenceSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inference_duration_seconds",
			Help:    "Time spent detecting and annotating one frame",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		memUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_usage_megabytes",
			Help: "Memory usage in Megabytes",
		}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpu_usage_percent",
			Help: "CPU usage in percent",
		}),
	}

	m.registry.MustRegister(
		m.framesProcessed,
		m.framesFailed,
		m.vehicleCount,
		m.pipelineRunning,
		m.activeStreams,
		m.inferenceSeconds,
		m.memUsage,
		m.cpuUsage,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) FrameProcessed(vehicles int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.framesProcessed.Inc()
	m.vehicleCount.Set(float64(vehicles))
	m.inferenceSeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) FrameFailed() {
	if m == nil {
		return
	}
	m.framesFailed.Inc()
}

func (m *Metrics) SetRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.pipelineRunning.Set(1)
	} else {
		m.pipelineRunning.Set(0)
	}
}

func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.activeStreams.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.activeStreams.Dec()
}

// Run samples memory and CPU usage of this process every interval until ctx is done.
func (m *Metrics) Run(ctx context.Context, interval time.Duration, log *logger.Logger) error {
	if m == nil {
		<-ctx.Done()
		return nil
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		log.Warning("Process metrics disabled: %v", err)
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.sample(ctx, proc)
		}
	}
}

func (m *Metrics) sample(ctx context.Context, proc *process.Process) {
	if memInfo, err := proc.MemoryInfoWithContext(ctx); err == nil {
		m.memUsage.Set(float64(memInfo.RSS / 1024 / 1024))
	}
	if cpuPercent, err := proc.CPUPercentWithContext(ctx); err == nil {
		m.cpuUsage.Set(math.Round(cpuPercent*100) / 100)
	}
}
