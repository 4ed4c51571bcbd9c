// Package metrics exposes Prometheus metrics for the frame loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swdee/go-posemon"
)

// Stage names a timed step of frame processing
type Stage string

const (
	StageEstimate Stage = "estimate"
	StageAssess   Stage = "assess"
	StageRender   Stage = "render"
)

// Manager owns the monitor's metrics and the registry they live on
type Manager struct {
	namespace       string
	subsystem       string
	angleBuckets    []float64
	durationBuckets []float64
	registry        *prometheus.Registry

	framesTotal   prometheus.Counter
	framesSkipped *prometheus.CounterVec
	assessments   *prometheus.CounterVec
	jointAngle    *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	lastAngle     *prometheus.GaugeVec
}

// NewManager creates the metrics on their own registry unless WithRegistry is
// given.  Angle buckets default to every 15 degrees up to 180.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "posemon",
		subsystem:       "monitor",
		angleBuckets:    prometheus.LinearBuckets(15, 15, 12),
		durationBuckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		registry:        prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.framesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_total",
		Help:      "Total number of video frames read",
	})

	m.framesSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_skipped_total",
		Help:      "Frames with no assessment by reason",
	}, []string{"reason"})

	m.assessments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assessments_total",
		Help:      "Frames assessed by joint and posture label",
	}, []string{"joint", "label"})

	m.jointAngle = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "joint_angle_degrees",
		Help:      "Distribution of measured joint angles",
		Buckets:   m.angleBuckets,
	}, []string{"joint"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_duration_seconds",
		Help:      "Time spent per frame processing stage",
		Buckets:   m.durationBuckets,
	}, []string{"stage"})

	m.lastAngle = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "joint_angle_last_degrees",
		Help:      "Most recently measured joint angle",
	}, []string{"joint"})

	m.registry.MustRegister(collectors.NewGoCollector())
}

// FrameRead counts a frame taken from the video source
func (m *Manager) FrameRead() {
	m.framesTotal.Inc()
}

// FrameSkipped counts a frame that produced no assessment
func (m *Manager) FrameSkipped(reason string) {
	m.framesSkipped.WithLabelValues(reason).Inc()
}

// Assessed records an emitted assessment
func (m *Manager) Assessed(a posemon.Assessment) {
	m.assessments.WithLabelValues(a.Joint, a.Label.Key()).Inc()
	m.jointAngle.WithLabelValues(a.Joint).Observe(a.Angle)
	m.lastAngle.WithLabelValues(a.Joint).Set(a.Angle)
}

// ObserveStage records the time taken by a processing stage
func (m *Manager) ObserveStage(s Stage, d time.Duration) {
	m.stageDuration.WithLabelValues(string(s)).Observe(d.Seconds())
}

// Registry returns the registry holding the metrics
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the metrics
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
