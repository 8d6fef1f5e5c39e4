// Package metrics provides Prometheus metrics for the geosimplify pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage names used as the "stage" label.
const (
	StageMetadata = "metadata"
	StageLoad     = "load"
	StageTopology = "topology"
	StageSimplify = "simplify"
	StageOutput   = "output"
)

// Vertex phases used as the "phase" label.
const (
	PhaseInput      = "input"
	PhaseTopology   = "topology"
	PhaseSimplified = "simplified"
)

// Manager owns the pipeline metrics.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         *prometheus.Registry

	stageDuration   *prometheus.HistogramVec
	stageErrors     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	downloadBytes   prometheus.Counter
	features        prometheus.Gauge
	arcs            prometheus.Gauge
	sharedArcs      prometheus.Gauge
	vertices        *prometheus.GaugeVec
	runs            *prometheus.CounterVec
	lastSuccessUnix prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry the
// metrics are registered on a fresh private registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "geosimplify",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.ExponentialBuckets(0.005, 4, 9),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_seconds",
		Help:        "Duration of each pipeline stage in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.stageErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_errors_total",
		Help:        "Number of pipeline stages that failed",
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Outbound HTTP requests by host and status code",
		ConstLabels: m.constLabels,
	}, []string{"host", "status_code"})

	m.downloadBytes = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "download_bytes_total",
		Help:        "Bytes of boundary data downloaded",
		ConstLabels: m.constLabels,
	})

	m.features = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "features",
		Help:        "Number of features in the loaded geometry table",
		ConstLabels: m.constLabels,
	})

	m.arcs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "arcs",
		Help:        "Number of arcs in the topology",
		ConstLabels: m.constLabels,
	})

	m.sharedArcs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "shared_arcs",
		Help:        "Number of arcs referenced by more than one ring",
		ConstLabels: m.constLabels,
	})

	m.vertices = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "vertices",
		Help:        "Vertex count by pipeline phase",
		ConstLabels: m.constLabels,
	}, []string{"phase"})

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "runs_total",
		Help:        "Pipeline runs by final status",
		ConstLabels: m.constLabels,
	}, []string{"status"})

	m.lastSuccessUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_success_timestamp_seconds",
		Help:        "Unix time of the last successful run",
		ConstLabels: m.constLabels,
	})
}

// ObserveStage records the duration of a stage and, when err is non-nil,
// counts the failure.
func (m *Manager) ObserveStage(stage string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(stage).Inc()
	}
}

// RecordHTTPRequest counts an outbound request.
func (m *Manager) RecordHTTPRequest(host string, statusCode int) {
	m.httpRequests.WithLabelValues(host, fmt.Sprint(statusCode)).Inc()
}

// AddDownloadBytes adds n downloaded bytes.
func (m *Manager) AddDownloadBytes(n int64) {
	if n > 0 {
		m.downloadBytes.Add(float64(n))
	}
}

// SetFeatures sets the feature gauge.
func (m *Manager) SetFeatures(n int) { m.features.Set(float64(n)) }

// SetArcs sets the arc gauges.
func (m *Manager) SetArcs(total, shared int) {
	m.arcs.Set(float64(total))
	m.sharedArcs.Set(float64(shared))
}

// SetVertices sets the vertex gauge for a phase.
func (m *Manager) SetVertices(phase string, n int) {
	m.vertices.WithLabelValues(phase).Set(float64(n))
}

// RecordRun counts a finished run.
func (m *Manager) RecordRun(success bool) {
	if success {
		m.runs.WithLabelValues("success").Inc()
		m.lastSuccessUnix.SetToCurrentTime()
		return
	}
	m.runs.WithLabelValues("failure").Inc()
}

// Registry returns the registry the manager registers on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes all metrics of the manager's registry in the
// node_exporter textfile format.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}

// Default returns the process-wide manager.
func Default() *Manager { return globalManager }

// GetRegistry returns the custom Prometheus registry used by the default manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
