// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes the observability infrastructure shared by the
// assembler, the HTTP API and the CLI: JSON logging on top of slog,
// Prometheus collectors, OpenTelemetry spans and instruments, health checks
// and graceful shutdown.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stderr)
//	logger.WithField("plugin", "Mid").Info("Namespace registered")
//
// Carry run context:
//
//	ctx = observability.WithRunID(ctx, runID)
//	observability.FromContext(ctx).Warn("Skipping front rule")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	start := time.Now()
//	// ... assemble
//	metrics.ObserveBuild(start, err)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "hub",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
//	ctx, span := observability.StartSpan(ctx, "assembly.build")
//	defer observability.EndSpan(span, err)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/assembly: Main producer of metrics and spans
package observability
