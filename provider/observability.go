package provider

import (
	"context"
	"time"

	"github.com/skillsenselab/statekit/logger"
	"github.com/skillsenselab/statekit/observability"
)

// WithHandlerTracing wraps a query handler so each invocation runs inside
// an OpenTelemetry span carrying the provider key and outcome.
func WithHandlerTracing(h QueryHandler, providerKey string) QueryHandler {
	return QueryHandlerFunc(func(query any, options QueryOptions, onResult func(value any)) {
		ctx, span := observability.StartSpan(context.Background(), observability.SpanQuery)
		observability.SetSpanAttribute(ctx, observability.AttrProvider, providerKey)
		h.HandleQuery(query, options, func(value any) {
			observability.SetSpanAttribute(ctx, observability.AttrStatus, "ok")
			span.End()
			onResult(value)
		})
	})
}

// WithHandlerMetrics wraps a query handler to record execution counts and
// durations.
func WithHandlerMetrics(h QueryHandler, m *Metrics, providerKey string) QueryHandler {
	if m == nil {
		return h
	}
	return QueryHandlerFunc(func(query any, options QueryOptions, onResult func(value any)) {
		start := time.Now()
		h.HandleQuery(query, options, func(value any) {
			m.RecordQuery(context.Background(), providerKey, "ok", time.Since(start))
			onResult(value)
		})
	})
}

// Metrics re-exports the observability metrics bundle so handler
// middleware callers don't need a second import.
type Metrics = observability.Metrics

// WithHandlerLogging wraps a query handler to log issue and completion at
// debug level.
func WithHandlerLogging(h QueryHandler, log *logger.Logger, providerKey string) QueryHandler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return QueryHandlerFunc(func(query any, options QueryOptions, onResult func(value any)) {
		start := time.Now()
		log.Debug("handler invoked", logger.Fields(logger.FieldProvider, providerKey))
		h.HandleQuery(query, options, func(value any) {
			log.Debug("handler completed", logger.Fields(
				logger.FieldProvider, providerKey,
				logger.FieldDuration, time.Since(start).Milliseconds(),
			))
			onResult(value)
		})
	})
}
