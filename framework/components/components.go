// Package components предоставляет инфраструктурные компоненты с жизненным циклом:
// пулы соединений с хранилищами, клиенты брокеров сообщений и серверы транспорта.
//
// Каждый компонент реализует core.AsyncInitializer и core.AsyncDisposer, поэтому
// регистрируется в контейнере с директивами по умолчанию:
//
//	pool, err := components.NewPostgresPool(components.PostgresConfig{DSN: dsn})
//	if err != nil {
//	    return err
//	}
//	err = components.Register(c, "db", pool)
//
// Рекомендованные приоритеты зависят от типа компонента: хранилища и брокеры
// инициализируются раньше транспорта и освобождаются после него.
package components

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/akriventsev/potter-lifecycle/framework/container"
	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
)

// Lifecycle компонент, пригодный для регистрации в контейнере
type Lifecycle interface {
	core.Component
	core.AsyncInitializer
	core.AsyncDisposer
}

// Server компонент, чей AsyncInit блокируется до остановки (обслуживание запросов).
// Такие компоненты регистрируются с неблокирующей инициализацией.
type Server interface {
	Lifecycle
	// Ready закрывается, когда сервер начал принимать соединения
	Ready() <-chan struct{}
}

var validate = validator.New()

func validateConfig(component string, config any) error {
	if err := validate.Struct(config); err != nil {
		return core.Wrap(err, core.CodeInvalidConfig, fmt.Sprintf("invalid %s config", component))
	}
	return nil
}

// DefaultOptions возвращает рекомендованные опции регистрации для компонента
func DefaultOptions(component Lifecycle) []container.Option {
	initDirective := lifecycle.InitDefault()
	if _, ok := component.(Server); ok {
		initDirective = initDirective.WithNonBlocking()
	}

	initPriority, disposePriority := core.PriorityHigh, core.PriorityLow
	if component.Type() == core.ComponentTypeTransport {
		initPriority, disposePriority = core.PriorityNormal, core.PriorityHigh
	}

	return []container.Option{
		container.WithAsyncInit(initDirective),
		container.WithAsyncInitPriority(initPriority.Int()),
		container.WithAsyncDispose(lifecycle.DisposeDefault()),
		container.WithAsyncDisposePriority(disposePriority.Int()),
		container.WithTags(string(component.Type()), component.Name()),
	}
}

// Register регистрирует компонент с рекомендованными опциями.
// Опции opts применяются после рекомендованных и могут их переопределить.
func Register(c *container.Container, name string, component Lifecycle, opts ...container.Option) error {
	return c.RegisterValue(name, component, append(DefaultOptions(component), opts...)...)
}

// NewModule оборачивает компонент в модуль контейнера
func NewModule(name string, component Lifecycle, opts ...container.Option) container.Module {
	return container.NewModule(name, func(c *container.Container) error {
		return Register(c, name, component, opts...)
	})
}
