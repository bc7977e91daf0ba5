package lifecycle

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/metrics"
)

// Config конфигурация менеджера жизненного цикла.
// Фиксируется при создании менеджера и больше не меняется.
type Config struct {
	// Registry реестр зависимостей
	Registry Registry `validate:"required"`
	// EagerInject включает принудительное создание в ExecuteInit
	EagerInject bool
	// AsyncInit включает инициализацию в ExecuteInit
	AsyncInit bool
	// AsyncDispose включает освобождение ресурсов в ExecuteDispose
	AsyncDispose bool
	// StrictBooleanEnforced требует, чтобы Enabled был bool или отсутствовал
	StrictBooleanEnforced bool
	// AllowRepeatedInits отключает пропуск повторного ExecuteInit
	AllowRepeatedInits bool
	// PreventDisposeWithoutInit пропускает ExecuteDispose без предшествующей инициализации
	PreventDisposeWithoutInit bool

	// Debug включает сообщения "asyncInit: {name} - ..."
	Debug bool
	// Log приемник отладочных сообщений
	Log LogFunc
	// OnNonBlockingError получает ошибки неблокирующих инициализаций
	OnNonBlockingError func(name string, err error)

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

// Manager фасад жизненного цикла поверх реестра.
// Не хранит изменяемого состояния: фаза хранится в реестре (PhaseStore).
type Manager struct {
	config Config
}

var validate = validator.New()

// NewManager создает менеджер и проверяет конфигурацию
func NewManager(config Config) (*Manager, error) {
	if err := validate.Struct(config); err != nil {
		return nil, core.Wrap(err, core.CodeConfigValidation, "invalid lifecycle manager config")
	}

	if config.StrictBooleanEnforced {
		if err := ValidateStrictBoolean(config.Registry); err != nil {
			return nil, err
		}
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Manager{config: config}, nil
}

// Registry возвращает реестр менеджера
func (m *Manager) Registry() Registry {
	return m.config.Registry
}

// ExecuteInit выполняет EagerInject (если включен), затем AsyncInit (если включен).
// Возвращается после завершения всех блокирующих инициализаций.
func (m *Manager) ExecuteInit(ctx context.Context) error {
	logger := m.config.Logger.With("run_id", uuid.NewString(), "phase", "init")
	store, hasStore := m.config.Registry.(PhaseStore)

	if !m.config.AllowRepeatedInits && hasStore && store.Phase() == core.PhaseInitialized {
		logger.Debug("skipping repeated init")
		return nil
	}

	if m.config.EagerInject {
		if err := eagerInject(ctx, m.config.Registry, m.config.Metrics); err != nil {
			logger.Debug("eager injection failed", "error", err)
			return err
		}
	}

	if m.config.AsyncInit {
		if err := AsyncInit(ctx, m.config.Registry, m.initOptions()); err != nil {
			logger.Debug("async init failed", "component", core.ComponentOf(err), "error", err)
			return err
		}
	}

	if hasStore {
		store.SetPhase(core.PhaseInitialized)
	}
	return nil
}

// ExecuteDispose выполняет AsyncDispose (если включен)
func (m *Manager) ExecuteDispose(ctx context.Context) error {
	logger := m.config.Logger.With("run_id", uuid.NewString(), "phase", "dispose")
	store, hasStore := m.config.Registry.(PhaseStore)

	if m.config.PreventDisposeWithoutInit && hasStore && store.Phase() != core.PhaseInitialized {
		logger.Debug("skipping dispose without init", "phase", store.Phase().String())
		return nil
	}

	if m.config.AsyncDispose {
		if err := AsyncDispose(ctx, m.config.Registry, m.disposeOptions()); err != nil {
			logger.Debug("async dispose failed", "component", core.ComponentOf(err), "error", err)
			return err
		}
	}

	if hasStore {
		store.SetPhase(core.PhaseDisposed)
	}
	return nil
}

// GetWithTags выборка по тегам в реестре менеджера
func (m *Manager) GetWithTags(tags []string) (map[string]any, error) {
	return GetWithTags(m.config.Registry, tags)
}

// GetByPredicate выборка по предикату в реестре менеджера
func (m *Manager) GetByPredicate(predicate func(instance any) bool) (map[string]any, error) {
	return GetByPredicate(m.config.Registry, predicate)
}

func (m *Manager) initOptions() InitOptions {
	return InitOptions{
		Debug:              m.config.Debug,
		Log:                m.config.Log,
		OnNonBlockingError: m.config.OnNonBlockingError,
		Logger:             m.config.Logger,
		Metrics:            m.config.Metrics,
		Tracer:             m.config.Tracer,
	}
}

func (m *Manager) disposeOptions() DisposeOptions {
	return DisposeOptions{
		Debug:   m.config.Debug,
		Log:     m.config.Log,
		Logger:  m.config.Logger,
		Metrics: m.config.Metrics,
		Tracer:  m.config.Tracer,
	}
}
