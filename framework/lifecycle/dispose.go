package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/akriventsev/potter-lifecycle/framework/metrics"
)

// DisposeOptions параметры прохода освобождения ресурсов
type DisposeOptions struct {
	Debug   bool
	Log     LogFunc
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

func (o DisposeOptions) withDefaults() DisposeOptions {
	if o.Log == nil {
		o.Log = defaultLogFunc
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(TracerName)
	}
	return o
}

// AsyncDispose освобождает ресурсы всех включенных регистраций с директивой AsyncDispose.
//
// Порядок: AsyncDisposePriority по возрастанию, затем имя. Каждое освобождение
// ожидается; первая ошибка прерывает проход.
func AsyncDispose(ctx context.Context, registry Registry, opts DisposeOptions) error {
	opts = opts.withDefaults()

	entries := selectRegistrations(registry, func(r *Registration) bool {
		return r.AsyncDispose != nil
	})
	sortByPriority(entries, (*Registration).DisposePriority)

	ctx, span := opts.Tracer.Start(ctx, "lifecycle.asyncDispose",
		trace.WithAttributes(attribute.Int("lifecycle.entries", len(entries))))
	defer span.End()

	for _, reg := range entries {
		if err := disposeOne(ctx, registry, reg, opts); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	return nil
}

func disposeOne(ctx context.Context, registry Registry, reg *Registration, opts DisposeOptions) error {
	instance, err := registry.Resolve(reg.Name)
	if err != nil {
		return fmt.Errorf("asyncDispose: failed to resolve %s: %w", reg.Name, err)
	}

	invoke, err := resolveDispose(reg, instance)
	if err != nil {
		return err
	}

	if opts.Debug {
		opts.Log(fmt.Sprintf("asyncDispose: %s - started", reg.Name))
	}

	entryCtx, span := opts.Tracer.Start(ctx, "asyncDispose "+reg.Name,
		trace.WithAttributes(
			attribute.String("lifecycle.component", reg.Name),
			attribute.Int("lifecycle.priority", reg.DisposePriority()),
		))
	defer span.End()

	start := time.Now()
	err = invoke(entryCtx)
	opts.Metrics.RecordDispose(ctx, reg.Name, time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if opts.Debug {
		opts.Log(fmt.Sprintf("asyncDispose: %s - finished", reg.Name))
	}
	return nil
}
