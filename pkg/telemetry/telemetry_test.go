package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name: "unsupported exporter",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "jaeger"
			},
			wantErr: true,
		},
		{
			name:    "sampling rate out of range",
			mutate:  func(c *Config) { c.Tracing.SamplingRate = 1.5 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, Namespace: "dsforge"})

	m.ProjectGenerated("datascience")
	m.ProjectGenerated("datascience")
	m.ConfigValidated("passed")
	m.CheckFailed("missing_file")

	value, err := m.CounterValue("projects_generated_total", map[string]string{"blueprint": "datascience"})
	if err != nil {
		t.Fatalf("CounterValue failed: %v", err)
	}
	if value != 2 {
		t.Errorf("expected 2 projects generated, got %f", value)
	}

	value, err = m.CounterValue("check_failures_total", map[string]string{"class": "missing_file"})
	if err != nil {
		t.Fatalf("CounterValue failed: %v", err)
	}
	if value != 1 {
		t.Errorf("expected 1 check failure, got %f", value)
	}
}

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	// Should not panic.
	m.ProjectGenerated("datascience")
	m.ObserveEnvCreate(time.Second)
	m.ObservePrecommit(time.Second)

	if _, err := m.CounterValue("projects_generated_total", nil); err == nil {
		t.Error("expected error reading counters with metrics disabled")
	}
	if _, err := m.Handler(); err == nil {
		t.Error("expected error getting handler with metrics disabled")
	}
}

func TestTracerDisabled(t *testing.T) {
	cfg := DefaultConfig()
	tracer, err := NewTracer(cfg)
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	ctx, span := tracer.StartSpan(context.Background(), "test-span")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracer should produce non-recording spans")
	}
	span.End()

	if err := tracer.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestTracerRejectsUnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "otlp"

	if _, err := NewTracer(cfg); err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func TestEventsPublishAndSubscribe(t *testing.T) {
	events := NewEvents()

	var received []Event
	events.Subscribe(func(e Event) {
		received = append(received, e)
	})

	events.Publish(Event{Type: EventRunStarted, RunID: "run-1"})
	events.Publish(Event{Type: EventConfigPassed, RunID: "run-1", EnvName: "env-a"})

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	if received[0].Type != EventRunStarted {
		t.Errorf("unexpected first event type: %s", received[0].Type)
	}
	if received[0].Timestamp.IsZero() {
		t.Error("expected publish to stamp events")
	}
	if received[1].EnvName != "env-a" {
		t.Errorf("unexpected env name: %s", received[1].EnvName)
	}
}

func TestEventsPublishWithoutHandlers(t *testing.T) {
	events := NewEvents()
	// Should not panic.
	events.Publish(Event{Type: EventRunCompleted})
}

func TestLoggerContextRoundTrip(t *testing.T) {
	logger := NewLogger(LoggingConfig{Level: "debug", Format: "json"})
	logger = WithRunID(logger, "run-42")

	ctx := WithLogger(context.Background(), logger)
	got := LoggerFromContext(ctx)

	if got.GetLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %s", got.GetLevel())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
