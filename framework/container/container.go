// Package container предоставляет DI контейнер для управления зависимостями.
//
// Контейнер реализует lifecycle.Registry и lifecycle.PhaseStore: хранит метаданные
// жизненного цикла каждой регистрации, создает экземпляры через фабрики и
// кэширует singleton экземпляры.
package container

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
)

// DependencyScope область видимости зависимостей
type DependencyScope string

const (
	ScopeSingleton DependencyScope = "singleton"
	ScopeTransient DependencyScope = "transient"
)

// Resolver разрешает зависимости по имени. Передается в фабрики.
type Resolver interface {
	Resolve(name string) (any, error)
}

// Factory создает экземпляр зависимости
type Factory func(r Resolver) (any, error)

// Config конфигурация контейнера
type Config struct {
	// DefaultScope область видимости для регистраций без WithScope
	DefaultScope DependencyScope
}

// entry регистрация в контейнере
type entry struct {
	registration *lifecycle.Registration
	factory      Factory
	scope        DependencyScope
}

// Container контейнер зависимостей
type Container struct {
	// Конфигурация
	Config *Config

	entries   map[string]*entry
	instances map[string]any
	// building singleton экземпляры, фабрика которых выполняется сейчас
	building map[string]*build
	phase    core.Phase
	mu       sync.RWMutex
}

// build создание singleton экземпляра; done закрывается по завершении фабрики
type build struct {
	done  chan struct{}
	value any
	err   error
}

// NewContainer создает новый контейнер
func NewContainer(config *Config) *Container {
	if config == nil {
		config = &Config{}
	}
	if config.DefaultScope == "" {
		config.DefaultScope = ScopeSingleton
	}

	return &Container{
		Config:    config,
		entries:   make(map[string]*entry),
		instances: make(map[string]any),
		building:  make(map[string]*build),
	}
}

// Register регистрирует фабрику с метаданными жизненного цикла
func (c *Container) Register(name string, factory Factory, opts ...Option) error {
	if name == "" {
		return core.NewError(core.CodeInvalidConfig, "registration name cannot be empty")
	}
	if factory == nil {
		return core.NewError(core.CodeInvalidConfig, fmt.Sprintf("factory for %s cannot be nil", name))
	}

	e := &entry{
		registration: &lifecycle.Registration{Name: name},
		factory:      factory,
		scope:        c.Config.DefaultScope,
	}
	for _, opt := range opts {
		opt(e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; exists {
		return core.NewError(core.CodeAlreadyExists, fmt.Sprintf("dependency %s already registered", name))
	}
	c.entries[name] = e
	return nil
}

// RegisterValue регистрирует готовое значение как singleton
func (c *Container) RegisterValue(name string, value any, opts ...Option) error {
	opts = append(opts, WithScope(ScopeSingleton))
	return c.Register(name, func(Resolver) (any, error) {
		return value, nil
	}, opts...)
}

// Update изменяет метаданные регистрации до создания менеджера
func (c *Container) Update(name string, fn func(reg *lifecycle.Registration)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[name]
	if !exists {
		return core.NewError(core.CodeDependencyNotFound, fmt.Sprintf("dependency %s not found", name))
	}
	reg := e.registration.Clone()
	fn(reg)
	reg.Name = name
	e.registration = reg
	return nil
}

// Registrations возвращает метаданные всех регистраций
func (c *Container) Registrations() map[string]*lifecycle.Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*lifecycle.Registration, len(c.entries))
	for name, e := range c.entries {
		result[name] = e.registration
	}
	return result
}

// Names возвращает отсортированные имена регистраций
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve возвращает экземпляр по имени, создавая его при первом обращении.
// Фабрики разных регистраций выполняются независимо: фабрика может обращаться к
// контейнеру напрямую. Конкурентные запросы одного singleton ждут единственную фабрику.
func (c *Container) Resolve(name string) (any, error) {
	return c.resolve(name, nil)
}

// IsResolved проверяет, создан ли singleton экземпляр
func (c *Container) IsResolved(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[name]
	return ok
}

// Cradle возвращает ленивое представление контейнера
func (c *Container) Cradle() lifecycle.Cradle {
	return cradle{c: c}
}

// Phase возвращает фазу жизненного цикла (реализация lifecycle.PhaseStore)
func (c *Container) Phase() core.Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// SetPhase устанавливает фазу жизненного цикла (реализация lifecycle.PhaseStore)
func (c *Container) SetPhase(phase core.Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = phase
}

func (c *Container) resolve(name string, path []string) (any, error) {
	c.mu.Lock()
	e, exists := c.entries[name]
	if !exists {
		c.mu.Unlock()
		return nil, core.NewError(core.CodeDependencyNotFound, fmt.Sprintf("dependency %s not found", name))
	}
	if instance, built := c.instances[name]; built {
		c.mu.Unlock()
		return instance, nil
	}
	if slices.Contains(path, name) {
		c.mu.Unlock()
		return nil, core.NewError(core.CodeCircularDependency,
			fmt.Sprintf("circular dependency detected: %s -> %s", strings.Join(path, " -> "), name))
	}
	if e.scope != ScopeSingleton {
		c.mu.Unlock()
		return c.construct(e, name, path)
	}
	if b, inProgress := c.building[name]; inProgress {
		c.mu.Unlock()
		<-b.done
		return b.value, b.err
	}
	b := &build{done: make(chan struct{})}
	c.building[name] = b
	c.mu.Unlock()

	b.value, b.err = c.construct(e, name, path)

	c.mu.Lock()
	if b.err == nil {
		c.instances[name] = b.value
	}
	delete(c.building, name)
	c.mu.Unlock()
	close(b.done)

	return b.value, b.err
}

// construct вызывает фабрику; паника фабрики возвращается как ошибка,
// чтобы ожидающие того же singleton не зависли
func (c *Container) construct(e *entry, name string, path []string) (value any, err error) {
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	next = append(next, name)

	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("failed to construct %s: factory panicked: %v", name, r)
		}
	}()

	value, err = e.factory(&resolution{c: c, path: next})
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s: %w", name, err)
	}
	return value, nil
}

// resolution Resolver для фабрик: хранит цепочку разрешения
type resolution struct {
	c    *Container
	path []string
}

func (r *resolution) Resolve(name string) (any, error) {
	return r.c.resolve(name, r.path)
}

// cradle ленивое представление контейнера
type cradle struct {
	c *Container
}

func (cr cradle) Get(name string) (any, error) {
	return cr.c.Resolve(name)
}

// Get[T] получает зависимость нужного типа
func Get[T any](r Resolver, key string) (T, error) {
	var zero T

	dep, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}

	typed, ok := dep.(T)
	if !ok {
		return zero, fmt.Errorf("dependency %s has wrong type %T", key, dep)
	}

	return typed, nil
}

// MustGet[T] как Get[T], но паникует при ошибке
func MustGet[T any](r Resolver, key string) T {
	v, err := Get[T](r, key)
	if err != nil {
		panic(err)
	}
	return v
}

// FromCradle[T] получает зависимость нужного типа из cradle
func FromCradle[T any](cr core.Cradle, key string) (T, error) {
	var zero T

	dep, err := cr.Get(key)
	if err != nil {
		return zero, err
	}

	typed, ok := dep.(T)
	if !ok {
		return zero, fmt.Errorf("dependency %s has wrong type %T", key, dep)
	}
	return typed, nil
}
