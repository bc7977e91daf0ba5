package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/akriventsev/potter-lifecycle/framework/container"
	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
	"github.com/akriventsev/potter-lifecycle/framework/metrics"
)

// Apply применяет переопределения компонентов к регистрациям контейнера.
// Имена сравниваются без учета регистра: viper приводит ключи к нижнему регистру.
// Ошибки по всем компонентам собираются в одну.
func Apply(m *Manifest, c *container.Container) error {
	names := make([]string, 0, len(m.Components))
	for name := range m.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, key := range names {
		override := m.Components[key]
		name, ok := matchName(c.Names(), key)
		if !ok {
			errs = append(errs, core.NewError(core.CodeDependencyNotFound,
				fmt.Sprintf("manifest overrides unknown component %s", key)))
			continue
		}
		if err := c.Update(name, override.apply); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func matchName(names []string, key string) (string, bool) {
	for _, name := range names {
		if name == key {
			return name, true
		}
	}
	for _, name := range names {
		if strings.EqualFold(name, key) {
			return name, true
		}
	}
	return "", false
}

func (o ComponentOverride) apply(reg *lifecycle.Registration) {
	if o.Enabled != nil {
		reg.Enabled = o.Enabled
	}
	if o.InitPriority != nil {
		reg.AsyncInitPriority = lifecycle.Priority(*o.InitPriority)
	}
	if o.DisposePriority != nil {
		reg.AsyncDisposePriority = lifecycle.Priority(*o.DisposePriority)
	}
	if o.NonBlocking != nil && reg.AsyncInit != nil {
		reg.AsyncInit.NonBlocking = *o.NonBlocking
	}
	for _, tag := range o.Tags {
		if !reg.HasTags([]string{tag}) {
			reg.Tags = append(reg.Tags, tag)
		}
	}
}

// NewLogger создает slog.Logger по настройкам логирования
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ManagerConfig строит конфигурацию менеджера из манифеста.
// logger получает отладочные сообщения и ошибки неблокирующих инициализаций; collector может быть nil.
func (m *Manifest) ManagerConfig(registry lifecycle.Registry, logger *slog.Logger, collector *metrics.Metrics) lifecycle.Config {
	config := lifecycle.Config{
		Registry:                  registry,
		EagerInject:               m.Lifecycle.EagerInject,
		AsyncInit:                 m.Lifecycle.AsyncInit,
		AsyncDispose:              m.Lifecycle.AsyncDispose,
		StrictBooleanEnforced:     m.Lifecycle.StrictBooleanEnforced,
		AllowRepeatedInits:        m.Lifecycle.AllowRepeatedInits,
		PreventDisposeWithoutInit: m.Lifecycle.PreventDisposeWithoutInit,
		Debug:                     m.Lifecycle.Debug,
		Logger:                    logger,
		Metrics:                   collector,
	}
	if logger != nil {
		config.Log = lifecycle.SlogSink(logger)
		config.OnNonBlockingError = func(name string, err error) {
			logger.Error("non-blocking init failed", "component", name, "error", err)
		}
	}
	return config
}
