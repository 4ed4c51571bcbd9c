package monitor

import (
	"github.com/swdee/go-posemon"
	"github.com/swdee/go-posemon/logger"
	"github.com/swdee/go-posemon/metrics"
	"github.com/swdee/go-posemon/render"
	"github.com/swdee/go-posemon/video"
)

// Option configures a Monitor
type Option func(*Monitor)

// WithAssessor sets the joint and thresholds assessed, defaults to the left
// knee with the default thresholds
func WithAssessor(a *posemon.Assessor) Option {
	return func(m *Monitor) {
		if a != nil {
			m.assessor.Store(a)
		}
	}
}

// WithSinks adds sinks receiving every annotated frame
func WithSinks(sinks ...video.Sink) Option {
	return func(m *Monitor) {
		m.sinks = append(m.sinks, sinks...)
	}
}

// WithPublishers adds publishers notified of every assessment and skip
func WithPublishers(pubs ...Publisher) Option {
	return func(m *Monitor) {
		m.pubs = append(m.pubs, pubs...)
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		m.log = l
	}
}

// WithMetrics records frame and assessment metrics in mgr
func WithMetrics(mgr *metrics.Manager) Option {
	return func(m *Monitor) {
		m.metrics = mgr
	}
}

// WithSkeleton enables drawing the detected skeleton under the overlay
func WithSkeleton(on bool) Option {
	return func(m *Monitor) {
		m.skeleton = on
	}
}

// WithFonts sets the fonts of the angle and label overlay
func WithFonts(angle, label render.Font) Option {
	return func(m *Monitor) {
		m.angleFont = angle
		m.labelFont = label
	}
}
