// Package container предоставляет построитель для создания контейнера.
package container

import (
	"errors"
	"fmt"

	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
)

// ContainerBuilder построитель контейнера
type ContainerBuilder struct {
	config  *Config
	steps   []func(c *Container) error
	modules []string
}

// NewContainerBuilder создает новый построитель контейнера
func NewContainerBuilder(cfg *Config) *ContainerBuilder {
	return &ContainerBuilder{
		config: cfg,
	}
}

// WithConfig задает конфигурацию контейнера
func (b *ContainerBuilder) WithConfig(config *Config) *ContainerBuilder {
	b.config = config
	return b
}

// WithDefaults устанавливает значения по умолчанию
func (b *ContainerBuilder) WithDefaults() *ContainerBuilder {
	if b.config == nil {
		b.config = &Config{DefaultScope: ScopeSingleton}
	}
	return b
}

// WithFactory добавляет регистрацию с фабрикой
func (b *ContainerBuilder) WithFactory(name string, factory Factory, opts ...Option) *ContainerBuilder {
	b.steps = append(b.steps, func(c *Container) error {
		return c.Register(name, factory, opts...)
	})
	return b
}

// WithValue добавляет регистрацию готового значения
func (b *ContainerBuilder) WithValue(name string, value any, opts ...Option) *ContainerBuilder {
	b.steps = append(b.steps, func(c *Container) error {
		return c.RegisterValue(name, value, opts...)
	})
	return b
}

// WithModule добавляет модуль (набор регистраций)
func (b *ContainerBuilder) WithModule(module Module) *ContainerBuilder {
	b.modules = append(b.modules, module.Name())
	b.steps = append(b.steps, func(c *Container) error {
		if err := module.Register(c); err != nil {
			return fmt.Errorf("module %s: %w", module.Name(), err)
		}
		return nil
	})
	return b
}

// WithUpdate изменяет метаданные уже добавленной регистрации
func (b *ContainerBuilder) WithUpdate(name string, fn func(reg *lifecycle.Registration)) *ContainerBuilder {
	b.steps = append(b.steps, func(c *Container) error {
		return c.Update(name, fn)
	})
	return b
}

// Modules возвращает имена добавленных модулей
func (b *ContainerBuilder) Modules() []string {
	return b.modules
}

// Build создает контейнер. Ошибки всех шагов собираются вместе.
// Экземпляры не создаются: это задача lifecycle.Manager.
func (b *ContainerBuilder) Build() (*Container, error) {
	c := NewContainer(b.config)

	var errs []error
	for _, step := range b.steps {
		if err := step(c); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to build container: %w", errors.Join(errs...))
	}

	return c, nil
}

// BuildWithManager создает контейнер и менеджер жизненного цикла над ним.
// Поле Registry в config заполняется контейнером.
func (b *ContainerBuilder) BuildWithManager(config lifecycle.Config) (*Container, *lifecycle.Manager, error) {
	c, err := b.Build()
	if err != nil {
		return nil, nil, err
	}

	config.Registry = c
	manager, err := lifecycle.NewManager(config)
	if err != nil {
		return nil, nil, err
	}
	return c, manager, nil
}
