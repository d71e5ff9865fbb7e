package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordRegistration records a stored module or instance.
	RecordRegistration(ctx context.Context, kind string)

	// RecordConnect records a connect call and whether it had to wait.
	RecordConnect(ctx context.Context, deferred bool)

	// RecordResolution records a resolved connection and how long it waited.
	RecordResolution(ctx context.Context, waited time.Duration)

	// RecordDelivery records a subscription callback invocation.
	RecordDelivery(ctx context.Context, replay bool)

	// RecordRejection records an operation that failed with an error.
	RecordRejection(ctx context.Context, op string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	registrations metric.Int64Counter
	connects      metric.Int64Counter
	resolutions   metric.Int64Counter
	waitLatency   metric.Float64Histogram
	deliveries    metric.Int64Counter
	rejections    metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter("mediator"))
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates the engine instruments on meter.
func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	registrations, err := meter.Int64Counter("mediator.registrations",
		metric.WithDescription("Number of registered modules and instances"),
	)
	if err != nil {
		return nil, err
	}

	connects, err := meter.Int64Counter("mediator.connects",
		metric.WithDescription("Number of connect calls"),
	)
	if err != nil {
		return nil, err
	}

	resolutions, err := meter.Int64Counter("mediator.resolutions",
		metric.WithDescription("Number of connections resolved"),
	)
	if err != nil {
		return nil, err
	}

	waitLatency, err := meter.Float64Histogram("mediator.connect.wait_ms",
		metric.WithDescription("Time a deferred connection waited for its names"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("mediator.deliveries",
		metric.WithDescription("Number of subscription callback invocations"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter("mediator.rejections",
		metric.WithDescription("Number of operations rejected with an error"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		registrations: registrations,
		connects:      connects,
		resolutions:   resolutions,
		waitLatency:   waitLatency,
		deliveries:    deliveries,
		rejections:    rejections,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderWithProvider returns a MetricsRecorder bound to provider
// instead of the global one.
func NewMetricsRecorderWithProvider(provider metric.MeterProvider) (MetricsRecorder, error) {
	m, err := newOtelMetrics(provider.Meter("mediator"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRegistration records a registration.
func (m *otelMetrics) RecordRegistration(ctx context.Context, kind string) {
	m.registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordConnect records a connect call.
func (m *otelMetrics) RecordConnect(ctx context.Context, deferred bool) {
	m.connects.Add(ctx, 1, metric.WithAttributes(attribute.Bool("deferred", deferred)))
}

// RecordResolution records a resolved connection.
func (m *otelMetrics) RecordResolution(ctx context.Context, waited time.Duration) {
	m.resolutions.Add(ctx, 1)
	m.waitLatency.Record(ctx, float64(waited.Microseconds())/1000)
}

// RecordDelivery records a subscription delivery.
func (m *otelMetrics) RecordDelivery(ctx context.Context, replay bool) {
	m.deliveries.Add(ctx, 1, metric.WithAttributes(attribute.Bool("replay", replay)))
}

// RecordRejection records a rejected operation.
func (m *otelMetrics) RecordRejection(ctx context.Context, op string) {
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}
