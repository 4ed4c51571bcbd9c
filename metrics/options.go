package metrics

import "github.com/prometheus/client_golang/prometheus"

// Option configures a Manager
type Option func(*Manager)

// WithNamespace sets the metric namespace
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithSubsystem sets the metric subsystem
func WithSubsystem(s string) Option {
	return func(m *Manager) { m.subsystem = s }
}

// WithAngleBuckets sets the joint angle histogram buckets in degrees
func WithAngleBuckets(b []float64) Option {
	return func(m *Manager) { m.angleBuckets = b }
}

// WithDurationBuckets sets the frame stage duration buckets in seconds
func WithDurationBuckets(b []float64) Option {
	return func(m *Manager) { m.durationBuckets = b }
}

// WithRegistry sets the registry metrics are registered on and gathered from
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) { m.registry = r }
}
