package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/skillsenselab/statekit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the engine's metric instruments.
type Metrics struct {
	instanceTotal metric.Int64Counter
	queryTotal    metric.Int64Counter
	queryDuration metric.Float64Histogram
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	fanoutTotal   metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	instanceTotal, err := meter.Int64Counter("provider.instances.total",
		metric.WithDescription("Total provider instances created"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provider.instances.total counter: %w", err)
	}

	queryTotal, err := meter.Int64Counter("query.executions.total",
		metric.WithDescription("Total provider queries executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating query.executions.total counter: %w", err)
	}

	queryDuration, err := meter.Float64Histogram("query.duration",
		metric.WithDescription("Duration of provider query execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating query.duration histogram: %w", err)
	}

	cacheHits, err := meter.Int64Counter("query.cache.hits",
		metric.WithDescription("Query result cache hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating query.cache.hits counter: %w", err)
	}

	cacheMisses, err := meter.Int64Counter("query.cache.misses",
		metric.WithDescription("Query result cache misses"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating query.cache.misses counter: %w", err)
	}

	fanoutTotal, err := meter.Int64Counter("subscription.fanout.total",
		metric.WithDescription("Subscription handler invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating subscription.fanout.total counter: %w", err)
	}

	return &Metrics{
		instanceTotal: instanceTotal,
		queryTotal:    queryTotal,
		queryDuration: queryDuration,
		cacheHits:     cacheHits,
		cacheMisses:   cacheMisses,
		fanoutTotal:   fanoutTotal,
	}, nil
}

// RecordInstance records a provider instance creation.
func (m *Metrics) RecordInstance(ctx context.Context, provider string, static bool) {
	m.instanceTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("static", static),
	))
}

// RecordQuery records a query execution with its outcome and duration.
func (m *Metrics) RecordQuery(ctx context.Context, provider, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.queryTotal.Add(ctx, 1, attrs)
	m.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordCacheHit records a query-result cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context, provider string) {
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordCacheMiss records a query-result cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context, provider string) {
	m.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordFanout records subscription handler invocations.
func (m *Metrics) RecordFanout(ctx context.Context, publisher, subscriber string, count int64) {
	m.fanoutTotal.Add(ctx, count, metric.WithAttributes(
		attribute.String("publisher", publisher),
		attribute.String("subscriber", subscriber),
	))
}
