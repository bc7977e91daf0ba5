// Package framework собирает жизненный цикл приложения поверх DI контейнера.
//
// Основные возможности:
//   - Упорядоченная асинхронная инициализация и освобождение ресурсов
//   - Принудительное создание (eager inject) зарегистрированных зависимостей
//   - Выборка экземпляров по тегам и предикатам
//   - Манифест конфигурации (YAML + окружение) с переопределением регистраций
//   - Трассировка и метрики на основе OpenTelemetry
//
// Пример использования:
//
//	manifest, err := config.Load("lifecycle.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app, err := framework.New(manifest, nil, os.Stderr)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pool, err := components.NewPostgresPool(pgConfig)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = app.RegisterComponent("db", pool)
//	if err := app.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Shutdown(context.Background())
package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/akriventsev/potter-lifecycle/framework/components"
	"github.com/akriventsev/potter-lifecycle/framework/config"
	"github.com/akriventsev/potter-lifecycle/framework/container"
	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
	"github.com/akriventsev/potter-lifecycle/framework/metrics"
	"github.com/akriventsev/potter-lifecycle/framework/observability"
)

// Version представляет версию фреймворка
const (
	Version = "1.0.0"
	Major   = 1
	Minor   = 0
	Patch   = 0
)

// TracingComponent имя регистрации менеджера трассировки
const TracingComponent = "tracing"

// tracingDisposePriority после всех компонентов, чтобы их спаны успели выгрузиться
const tracingDisposePriority = 1000

// Metadata содержит метаданные о фреймворке
type Metadata struct {
	Name        string
	Version     string
	Description string
	Author      string
	License     string
}

// GetMetadata возвращает метаданные фреймворка
func GetMetadata() Metadata {
	return Metadata{
		Name:        "Potter Lifecycle",
		Version:     Version,
		Description: "Lifecycle orchestration for dependency injection containers",
		Author:      "Potter Team",
		License:     "MIT",
	}
}

// App приложение: контейнер, манифест и менеджер жизненного цикла
type App struct {
	manifest  *config.Manifest
	container *container.Container
	logger    *slog.Logger
	tracing   *observability.TracingManager
	metrics   *metrics.Setup
	collector *metrics.Metrics

	mu      sync.Mutex
	manager *lifecycle.Manager
}

// New создает приложение по манифесту.
// nil manifest заменяется манифестом по умолчанию, nil контейнер создается заново,
// nil logOutput означает os.Stderr.
func New(manifest *config.Manifest, c *container.Container, logOutput io.Writer) (*App, error) {
	if manifest == nil {
		manifest = config.DefaultManifest()
	}
	if err := config.Validate(manifest); err != nil {
		return nil, err
	}
	if c == nil {
		c = container.NewContainer(nil)
	}
	if logOutput == nil {
		logOutput = os.Stderr
	}

	app := &App{
		manifest:  manifest,
		container: c,
		logger:    config.NewLogger(manifest.Logging, logOutput),
	}

	if manifest.Tracing.Enabled {
		tracing, err := observability.NewTracingManager(manifest.Tracing)
		if err != nil {
			return nil, err
		}
		err = c.RegisterValue(TracingComponent, tracing,
			container.WithAsyncInit(lifecycle.InitDefault()),
			container.WithAsyncInitPriority(core.PriorityCritical.Int()),
			container.WithAsyncDispose(lifecycle.DisposeDefault()),
			container.WithAsyncDisposePriority(tracingDisposePriority),
			container.WithTags("observability"),
		)
		if err != nil {
			return nil, err
		}
		app.tracing = tracing
	}

	if manifest.Metrics.Enabled {
		setup, err := metrics.SetupMetrics(&metrics.MetricsConfig{
			ExporterType:  manifest.Metrics.Exporter,
			ResourceAttrs: map[string]string{"service.name": manifest.Tracing.ServiceName},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to setup metrics: %w", err)
		}
		collector, err := metrics.NewMetricsWithProvider(setup.Provider)
		if err != nil {
			_ = metrics.ShutdownMetrics(context.Background(), setup)
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		app.metrics = setup
		app.collector = collector
	}

	return app, nil
}

// RegisterComponent регистрирует компонент с рекомендованными опциями
func (a *App) RegisterComponent(name string, component components.Lifecycle, opts ...container.Option) error {
	return components.Register(a.container, name, component, opts...)
}

// GetComponent возвращает экземпляр по имени
func (a *App) GetComponent(name string) (any, error) {
	return a.container.Resolve(name)
}

// Start применяет переопределения манифеста, создает менеджер и выполняет ExecuteInit.
// Регистрации после Start не учитываются валидацией strict boolean.
func (a *App) Start(ctx context.Context) error {
	manager, err := a.ensureManager()
	if err != nil {
		return err
	}

	a.logger.Info("starting lifecycle", "components", len(a.container.Names()))
	if err := manager.ExecuteInit(ctx); err != nil {
		a.logger.Error("lifecycle init failed", "error", err)
		return err
	}
	return nil
}

// Shutdown выполняет ExecuteDispose с таймаутом из манифеста и останавливает метрики
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	manager := a.manager
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.manifest.Lifecycle.ShutdownTimeout)
	defer cancel()

	var errs []error
	if manager != nil {
		a.logger.Info("stopping lifecycle")
		if err := manager.ExecuteDispose(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := metrics.ShutdownMetrics(ctx, a.metrics); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) ensureManager() (*lifecycle.Manager, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.manager != nil {
		return a.manager, nil
	}

	if err := config.Apply(a.manifest, a.container); err != nil {
		return nil, err
	}

	cfg := a.manifest.ManagerConfig(a.container, a.logger, a.collector)
	if a.tracing != nil {
		cfg.Tracer = a.tracing.Tracer()
	}

	manager, err := lifecycle.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	a.manager = manager
	return manager, nil
}

// Manager возвращает менеджер жизненного цикла (nil до Start)
func (a *App) Manager() *lifecycle.Manager {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.manager
}

// Container возвращает контейнер приложения
func (a *App) Container() *container.Container {
	return a.container
}

// Logger возвращает логгер приложения
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Health создает проверку здоровья по контейнеру приложения
func (a *App) Health() *observability.HealthChecker {
	return observability.NewHealthChecker(a.container, observability.DefaultHealthTimeout)
}

// Metrics возвращает настройки метрик (nil, если метрики выключены)
func (a *App) Metrics() *metrics.Setup {
	return a.metrics
}

// FrameworkVersion возвращает версию фреймворка
func FrameworkVersion() string {
	return Version
}
