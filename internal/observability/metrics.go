package observability

import (
	"context"
	"sync"

	"prepx/internal/config"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc", "":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// AttemptMetrics holds the instruments recorded on every answer submission
type AttemptMetrics struct {
	submitted   otelmetric.Int64Counter
	rateLimited otelmetric.Int64Counter
}

var (
	attemptMetrics     *AttemptMetrics
	attemptMetricsOnce sync.Once
)

// GetAttemptMetrics returns instruments bound to the global meter provider.
// Before SetupObservability runs (or with metrics disabled) they are no-ops.
func GetAttemptMetrics() *AttemptMetrics {
	attemptMetricsOnce.Do(func() {
		meter := otel.Meter("prepx")
		m := &AttemptMetrics{}
		// Instrument creation only fails on invalid names; keep the no-op on error.
		m.submitted, _ = meter.Int64Counter("prepx.attempts.submitted",
			otelmetric.WithDescription("Answer submissions accepted"))
		m.rateLimited, _ = meter.Int64Counter("prepx.attempts.rate_limited",
			otelmetric.WithDescription("Answer submissions rejected by the rate limiter"))
		attemptMetrics = m
	})
	return attemptMetrics
}

// RecordSubmitted counts an accepted submission
func (m *AttemptMetrics) RecordSubmitted(ctx context.Context, subject string, correct bool) {
	if m == nil || m.submitted == nil {
		return
	}
	m.submitted.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("subject", subject),
		attribute.Bool("correct", correct),
	))
}

// RecordRateLimited counts a rejected submission
func (m *AttemptMetrics) RecordRateLimited(ctx context.Context) {
	if m == nil || m.rateLimited == nil {
		return
	}
	m.rateLimited.Add(ctx, 1)
}
