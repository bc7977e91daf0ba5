// Package metrics предоставляет метрики жизненного цикла на основе OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName имя meter по умолчанию
const MeterName = "potter-lifecycle"

// Metrics сборщик метрик жизненного цикла.
// Все методы безопасны для nil получателя.
type Metrics struct {
	meter             metric.Meter
	initsTotal        metric.Int64Counter
	disposesTotal     metric.Int64Counter
	eagerTotal        metric.Int64Counter
	initDuration      metric.Float64Histogram
	disposeDuration   metric.Float64Histogram
	errorsTotal       metric.Int64Counter
	nonBlockingActive metric.Int64UpDownCounter
}

// NewMetrics создает сборщик на глобальном MeterProvider
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithProvider(otel.GetMeterProvider())
}

// NewMetricsWithProvider создает сборщик на указанном MeterProvider
func NewMetricsWithProvider(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(MeterName)

	initsTotal, err := meter.Int64Counter(
		"lifecycle_inits_total",
		metric.WithDescription("Total number of component initializations"),
	)
	if err != nil {
		return nil, err
	}

	disposesTotal, err := meter.Int64Counter(
		"lifecycle_disposes_total",
		metric.WithDescription("Total number of component disposals"),
	)
	if err != nil {
		return nil, err
	}

	eagerTotal, err := meter.Int64Counter(
		"lifecycle_eager_injections_total",
		metric.WithDescription("Total number of eagerly constructed components"),
	)
	if err != nil {
		return nil, err
	}

	initDuration, err := meter.Float64Histogram(
		"lifecycle_init_duration_seconds",
		metric.WithDescription("Component initialization duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	disposeDuration, err := meter.Float64Histogram(
		"lifecycle_dispose_duration_seconds",
		metric.WithDescription("Component disposal duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"lifecycle_errors_total",
		metric.WithDescription("Total number of lifecycle errors"),
	)
	if err != nil {
		return nil, err
	}

	nonBlockingActive, err := meter.Int64UpDownCounter(
		"lifecycle_non_blocking_inits_active",
		metric.WithDescription("Number of non-blocking initializations in flight"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		meter:             meter,
		initsTotal:        initsTotal,
		disposesTotal:     disposesTotal,
		eagerTotal:        eagerTotal,
		initDuration:      initDuration,
		disposeDuration:   disposeDuration,
		errorsTotal:       errorsTotal,
		nonBlockingActive: nonBlockingActive,
	}, nil
}

// RecordInit записывает метрику инициализации
func (m *Metrics) RecordInit(ctx context.Context, component string, duration time.Duration, success, nonBlocking bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("component", component),
		attribute.Bool("success", success),
		attribute.Bool("non_blocking", nonBlocking),
	}

	m.initsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.initDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if !success {
		m.recordError(ctx, "init", component)
	}
}

// RecordDispose записывает метрику освобождения ресурсов
func (m *Metrics) RecordDispose(ctx context.Context, component string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("component", component),
		attribute.Bool("success", success),
	}

	m.disposesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.disposeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if !success {
		m.recordError(ctx, "dispose", component)
	}
}

// RecordEager записывает метрику принудительного создания
func (m *Metrics) RecordEager(ctx context.Context, component string, success bool) {
	if m == nil {
		return
	}
	m.eagerTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.Bool("success", success),
	))

	if !success {
		m.recordError(ctx, "eager", component)
	}
}

// NonBlockingStarted увеличивает счетчик активных неблокирующих инициализаций
func (m *Metrics) NonBlockingStarted(ctx context.Context, component string) {
	if m == nil {
		return
	}
	m.nonBlockingActive.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}

// NonBlockingFinished уменьшает счетчик активных неблокирующих инициализаций
func (m *Metrics) NonBlockingFinished(ctx context.Context, component string) {
	if m == nil {
		return
	}
	m.nonBlockingActive.Add(ctx, -1, metric.WithAttributes(attribute.String("component", component)))
}

func (m *Metrics) recordError(ctx context.Context, phase, component string) {
	m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("component", component),
	))
}
