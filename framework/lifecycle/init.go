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

// TracerName имя tracer по умолчанию
const TracerName = "potter-lifecycle"

// InitOptions параметры прохода инициализации
type InitOptions struct {
	// Debug включает сообщения "started"/"finished" в Log
	Debug bool
	// Log приемник отладочных сообщений (по умолчанию slog.Default())
	Log LogFunc
	// OnNonBlockingError получает ошибки неблокирующих инициализаций.
	// Если nil, такие ошибки не передаются вызывающему.
	OnNonBlockingError func(name string, err error)
	Logger             *slog.Logger
	Metrics            *metrics.Metrics
	Tracer             trace.Tracer
}

func (o InitOptions) withDefaults() InitOptions {
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

// AsyncInit выполняет инициализацию всех включенных регистраций с директивой AsyncInit.
//
// Порядок: AsyncInitPriority по возрастанию, затем имя. Блокирующие инициализации
// выполняются строго последовательно. Первая ошибка разрешения, проверки метода или
// блокирующей инициализации прерывает проход и возвращается без изменений.
// Неблокирующие инициализации запускаются в отдельных горутинах и не ожидаются.
func AsyncInit(ctx context.Context, registry Registry, opts InitOptions) error {
	opts = opts.withDefaults()

	entries := selectRegistrations(registry, func(r *Registration) bool {
		return r.AsyncInit != nil
	})
	sortByPriority(entries, (*Registration).InitPriority)

	ctx, span := opts.Tracer.Start(ctx, "lifecycle.asyncInit",
		trace.WithAttributes(attribute.Int("lifecycle.entries", len(entries))))
	defer span.End()

	for _, reg := range entries {
		if err := initOne(ctx, registry, reg, opts); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	return nil
}

// initOne инициализирует одну регистрацию
func initOne(ctx context.Context, registry Registry, reg *Registration, opts InitOptions) error {
	instance, err := registry.Resolve(reg.Name)
	if err != nil {
		return fmt.Errorf("asyncInit: failed to resolve %s: %w", reg.Name, err)
	}

	invoke, err := resolveInit(reg, instance, registry)
	if err != nil {
		return err
	}

	nonBlocking := reg.AsyncInit.NonBlocking
	if opts.Debug {
		opts.Log(fmt.Sprintf("asyncInit: %s - started", reg.Name))
	}

	entryCtx, span := opts.Tracer.Start(ctx, "asyncInit "+reg.Name,
		trace.WithAttributes(
			attribute.String("lifecycle.component", reg.Name),
			attribute.Int("lifecycle.priority", reg.InitPriority()),
			attribute.Bool("lifecycle.non_blocking", nonBlocking),
		))

	if nonBlocking {
		go runNonBlocking(context.WithoutCancel(entryCtx), span, reg.Name, invoke, opts)
		return nil
	}
	defer span.End()

	start := time.Now()
	err = invoke(entryCtx)
	opts.Metrics.RecordInit(ctx, reg.Name, time.Since(start), err == nil, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if opts.Debug {
		opts.Log(fmt.Sprintf("asyncInit: %s - finished", reg.Name))
	}
	return nil
}

// runNonBlocking выполняет неблокирующую инициализацию.
// Паника компонента превращается в ошибку, чтобы не завершать процесс.
func runNonBlocking(ctx context.Context, span trace.Span, name string, invoke invocation, opts InitOptions) {
	defer span.End()
	opts.Metrics.NonBlockingStarted(ctx, name)
	defer opts.Metrics.NonBlockingFinished(ctx, name)

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("asyncInit: %s panicked: %v", name, r)
			}
		}()
		return invoke(ctx)
	}()
	opts.Metrics.RecordInit(ctx, name, time.Since(start), err == nil, true)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		opts.Logger.Debug("non-blocking init failed", "component", name, "error", err)
		if opts.OnNonBlockingError != nil {
			opts.OnNonBlockingError(name, err)
		}
		return
	}

	if opts.Debug {
		opts.Log(fmt.Sprintf("asyncInit: %s - finished (non-blocking)", name))
	}
}
