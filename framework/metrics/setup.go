// Package metrics предоставляет функции для настройки системы метрик.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsConfig конфигурация метрик
type MetricsConfig struct {
	// ExporterType "prometheus" или "manual" (ручной reader для тестов и snapshot выгрузок)
	ExporterType  string
	ResourceAttrs map[string]string
	// SetGlobal регистрирует provider как глобальный
	SetGlobal bool
}

// Setup результат настройки метрик
type Setup struct {
	Provider *metric.MeterProvider
	Reader   metric.Reader
}

// SetupMetrics настраивает экспорт метрик
func SetupMetrics(config *MetricsConfig) (*Setup, error) {
	if config == nil {
		config = &MetricsConfig{
			ExporterType: "prometheus",
			SetGlobal:    true,
		}
	}

	var reader metric.Reader
	switch config.ExporterType {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		reader = exporter
	case "manual":
		reader = metric.NewManualReader()
	default:
		return nil, fmt.Errorf("unknown exporter type: %s", config.ExporterType)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(buildResourceAttributes(config.ResourceAttrs)...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(res),
	)

	if config.SetGlobal {
		otel.SetMeterProvider(provider)
	}

	return &Setup{Provider: provider, Reader: reader}, nil
}

// buildResourceAttributes строит resource attributes
func buildResourceAttributes(attrs map[string]string) []attribute.KeyValue {
	result := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, attribute.String(k, v))
	}
	return result
}

// ShutdownMetrics корректно завершает работу метрик
func ShutdownMetrics(ctx context.Context, setup *Setup) error {
	if setup == nil || setup.Provider == nil {
		return nil
	}

	return setup.Provider.Shutdown(ctx)
}
