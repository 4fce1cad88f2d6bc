// Package telemetry provides the observability plumbing for dsforge:
// structured logging (zerolog), Prometheus metrics, OpenTelemetry tracing,
// and progress events consumed by the CLI during matrix runs.
package telemetry
