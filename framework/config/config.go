// Package config загружает манифест жизненного цикла: флаги менеджера,
// переопределения регистраций, настройки логирования, трассировки и метрик.
//
// Приоритет источников (от высшего к низшему):
//  1. Переменные окружения (POTTER_LIFECYCLE_*), например POTTER_LIFECYCLE_LIFECYCLE_DEBUG=true
//  2. Файл манифеста (YAML)
//  3. Значения по умолчанию
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/observability"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "POTTER_LIFECYCLE"

// Manifest корневая конфигурация
type Manifest struct {
	Lifecycle  LifecycleConfig              `mapstructure:"lifecycle" yaml:"lifecycle"`
	Logging    LoggingConfig                `mapstructure:"logging" yaml:"logging"`
	Tracing    observability.TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
	Metrics    MetricsConfig                `mapstructure:"metrics" yaml:"metrics"`
	Components map[string]ComponentOverride `mapstructure:"components" yaml:"components,omitempty" validate:"dive"`
}

// LifecycleConfig флаги менеджера жизненного цикла
type LifecycleConfig struct {
	EagerInject               bool          `mapstructure:"eager_inject" yaml:"eager_inject"`
	AsyncInit                 bool          `mapstructure:"async_init" yaml:"async_init"`
	AsyncDispose              bool          `mapstructure:"async_dispose" yaml:"async_dispose"`
	StrictBooleanEnforced     bool          `mapstructure:"strict_boolean_enforced" yaml:"strict_boolean_enforced"`
	AllowRepeatedInits        bool          `mapstructure:"allow_repeated_inits" yaml:"allow_repeated_inits"`
	PreventDisposeWithoutInit bool          `mapstructure:"prevent_dispose_without_init" yaml:"prevent_dispose_without_init"`
	Debug                     bool          `mapstructure:"debug" yaml:"debug"`
	ShutdownTimeout           time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig настройки slog
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// MetricsConfig настройки метрик
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Exporter string `mapstructure:"exporter" yaml:"exporter" validate:"omitempty,oneof=prometheus manual"`
}

// ComponentOverride переопределение метаданных регистрации.
// Enabled хранит значение как есть: строгая проверка отклоняет не-bool значения.
type ComponentOverride struct {
	Enabled         any      `mapstructure:"enabled" yaml:"enabled,omitempty"`
	InitPriority    *int     `mapstructure:"init_priority" yaml:"init_priority,omitempty"`
	DisposePriority *int     `mapstructure:"dispose_priority" yaml:"dispose_priority,omitempty"`
	NonBlocking     *bool    `mapstructure:"non_blocking" yaml:"non_blocking,omitempty"`
	Tags            []string `mapstructure:"tags" yaml:"tags,omitempty" validate:"dive,required"`
}

// DefaultManifest возвращает манифест по умолчанию
func DefaultManifest() *Manifest {
	return &Manifest{
		Lifecycle: LifecycleConfig{
			EagerInject:     true,
			AsyncInit:       true,
			AsyncDispose:    true,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: observability.TracingConfig{
			ServiceName:  "potter-lifecycle",
			Exporter:     "stdout",
			SamplingRate: 1,
		},
		Metrics: MetricsConfig{
			Exporter: "prometheus",
		},
	}
}

// Load загружает манифест из файла и окружения.
// Пустой path или отсутствующий файл дают манифест по умолчанию с учетом окружения.
func Load(path string) (*Manifest, error) {
	v := viper.New()
	setupViper(v, path)

	if path != "" {
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
	}

	var m Manifest
	if err := v.Unmarshal(&m, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// setupViper регистрирует значения по умолчанию, чтобы переменные окружения
// переопределяли и ключи, отсутствующие в файле
func setupViper(v *viper.Viper, path string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultManifest()
	v.SetDefault("lifecycle.eager_inject", d.Lifecycle.EagerInject)
	v.SetDefault("lifecycle.async_init", d.Lifecycle.AsyncInit)
	v.SetDefault("lifecycle.async_dispose", d.Lifecycle.AsyncDispose)
	v.SetDefault("lifecycle.strict_boolean_enforced", d.Lifecycle.StrictBooleanEnforced)
	v.SetDefault("lifecycle.allow_repeated_inits", d.Lifecycle.AllowRepeatedInits)
	v.SetDefault("lifecycle.prevent_dispose_without_init", d.Lifecycle.PreventDisposeWithoutInit)
	v.SetDefault("lifecycle.debug", d.Lifecycle.Debug)
	v.SetDefault("lifecycle.shutdown_timeout", d.Lifecycle.ShutdownTimeout.String())
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.exporter_endpoint", d.Tracing.ExporterEndpoint)
	v.SetDefault("tracing.sampling_rate", d.Tracing.SamplingRate)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.exporter", d.Metrics.Exporter)

	if path != "" {
		v.SetConfigFile(path)
	}
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// decodeHooks преобразует строки вида "30s" в time.Duration
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

var validate = validator.New()

// Validate проверяет манифест
func Validate(m *Manifest) error {
	if err := validate.Struct(m); err != nil {
		return core.Wrap(err, core.CodeInvalidConfig, "invalid lifecycle manifest")
	}
	return nil
}

// Dump записывает манифест в YAML
func Dump(m *Manifest, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return enc.Close()
}

// Save записывает манифест в файл (0600: манифест может содержать секреты)
func Save(m *Manifest, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open manifest file: %w", err)
	}
	if err := Dump(m, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
