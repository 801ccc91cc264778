package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	// Assembly metrics
	assembliesTotal    metric.Int64Counter
	assemblyDuration   metric.Float64Histogram
	pluginsPerAssembly metric.Int64Histogram

	// Resolver cache metrics
	cacheHitsTotal   metric.Int64Counter
	cacheMissesTotal metric.Int64Counter

	// Snapshot storage metrics
	snapshotOperations metric.Int64Counter
	snapshotDuration   metric.Float64Histogram
}

// NewOTelMetrics creates instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	return NewOTelMetricsWithMeter(otel.Meter(TracerName))
}

// NewOTelMetricsWithMeter creates instruments on the given meter
func NewOTelMetricsWithMeter(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	m.assembliesTotal, err = meter.Int64Counter(
		"hub.assembly.builds",
		metric.WithDescription("Total number of container assemblies"),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assembly builds counter: %w", err)
	}

	m.assemblyDuration, err = meter.Float64Histogram(
		"hub.assembly.duration",
		metric.WithDescription("Container assembly duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assembly duration histogram: %w", err)
	}

	m.pluginsPerAssembly, err = meter.Int64Histogram(
		"hub.assembly.plugins",
		metric.WithDescription("Number of plugins applied per assembly"),
		metric.WithUnit("{plugin}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugins histogram: %w", err)
	}

	m.cacheHitsTotal, err = meter.Int64Counter(
		"hub.cache.hits",
		metric.WithDescription("Total number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	m.cacheMissesTotal, err = meter.Int64Counter(
		"hub.cache.misses",
		metric.WithDescription("Total number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	m.snapshotOperations, err = meter.Int64Counter(
		"hub.snapshot.operations",
		metric.WithDescription("Total number of registry snapshot operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot operations counter: %w", err)
	}

	m.snapshotDuration, err = meter.Float64Histogram(
		"hub.snapshot.duration",
		metric.WithDescription("Registry snapshot operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot duration histogram: %w", err)
	}

	return m, nil
}

// RecordAssembly records one container assembly
func (m *OTelMetrics) RecordAssembly(ctx context.Context, source string, plugins int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("registry.source", source),
		attribute.Bool("error", err != nil),
	}
	m.assembliesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.assemblyDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if err == nil {
		m.pluginsPerAssembly.Record(ctx, int64(plugins))
	}
}

// RecordCacheHit records a cache hit
func (m *OTelMetrics) RecordCacheHit(ctx context.Context, cacheType string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.type", cacheType)))
}

// RecordCacheMiss records a cache miss
func (m *OTelMetrics) RecordCacheMiss(ctx context.Context, cacheType string) {
	if m == nil {
		return
	}
	m.cacheMissesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.type", cacheType)))
}

// RecordSnapshotOperation records a snapshot store operation
func (m *OTelMetrics) RecordSnapshotOperation(ctx context.Context, operation, backend string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("backend", backend),
		attribute.Bool("error", err != nil),
	}
	m.snapshotOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.snapshotDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
