package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metrics provides Prometheus metrics for scaffold and matrix operations.
// With metrics disabled every method is a no-op.
type Metrics struct {
	config MetricsConfig

	projectsGenerated *prometheus.CounterVec
	configsValidated  *prometheus.CounterVec
	checkFailures     *prometheus.CounterVec
	envCreateDuration prometheus.Histogram
	precommitDuration prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		config:   cfg,
		registry: registry,

		projectsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "projects_generated_total",
				Help:      "Total number of projects generated from blueprints",
			},
			[]string{"blueprint"},
		),
		configsValidated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "configurations_validated_total",
				Help:      "Total number of configurations validated, by outcome",
			},
			[]string{"status"},
		),
		checkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "check_failures_total",
				Help:      "Total number of check failures, by error class",
			},
			[]string{"class"},
		),
		envCreateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "env_create_duration_seconds",
				Help:      "Duration of environment creation",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		precommitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "precommit_duration_seconds",
				Help:      "Duration of pre-commit runs",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
			},
		),
	}

	registry.MustRegister(
		m.projectsGenerated,
		m.configsValidated,
		m.checkFailures,
		m.envCreateDuration,
		m.precommitDuration,
	)

	return m
}

// ProjectGenerated counts one generated project.
func (m *Metrics) ProjectGenerated(blueprint string) {
	if m.registry == nil {
		return
	}
	m.projectsGenerated.WithLabelValues(blueprint).Inc()
}

// ConfigValidated counts one validated configuration by outcome status
// (passed, failed).
func (m *Metrics) ConfigValidated(status string) {
	if m.registry == nil {
		return
	}
	m.configsValidated.WithLabelValues(status).Inc()
}

// CheckFailed counts one check failure by error class.
func (m *Metrics) CheckFailed(class string) {
	if m.registry == nil {
		return
	}
	m.checkFailures.WithLabelValues(class).Inc()
}

// ObserveEnvCreate records an environment creation duration.
func (m *Metrics) ObserveEnvCreate(d time.Duration) {
	if m.registry == nil {
		return
	}
	m.envCreateDuration.Observe(d.Seconds())
}

// ObservePrecommit records a pre-commit run duration.
func (m *Metrics) ObservePrecommit(d time.Duration) {
	if m.registry == nil {
		return
	}
	m.precommitDuration.Observe(d.Seconds())
}

// Handler returns the /metrics HTTP handler for the registry.
func (m *Metrics) Handler() (http.Handler, error) {
	if m.registry == nil {
		return nil, fmt.Errorf("metrics are disabled")
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}), nil
}

// Serve exposes /metrics on the configured listen address until the server
// fails. Intended to be run in a goroutine for the duration of a matrix
// run.
func (m *Metrics) Serve() error {
	if m.registry == nil || m.config.ListenAddress == "" {
		return fmt.Errorf("metrics serving is not configured")
	}
	handler, err := m.Handler()
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return http.ListenAndServe(m.config.ListenAddress, mux)
}

// CounterValue reads back a counter for summaries and tests.
func (m *Metrics) CounterValue(name string, labels map[string]string) (float64, error) {
	if m.registry == nil {
		return 0, fmt.Errorf("metrics are disabled")
	}

	families, err := m.registry.Gather()
	if err != nil {
		return 0, fmt.Errorf("failed to gather metrics: %w", err)
	}

	fullName := m.config.Namespace + "_" + name
	for _, family := range families {
		if family.GetName() != fullName {
			continue
		}
		for _, metric := range family.GetMetric() {
			if !labelsMatch(metric.GetLabel(), labels) {
				continue
			}
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %s%v not found", fullName, labels)
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, pair := range pairs {
		if want[pair.GetName()] != pair.GetValue() {
			return false
		}
	}
	return true
}
