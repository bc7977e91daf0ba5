// Package container предоставляет систему модулей для DI контейнера.
package container

// Module набор связанных регистраций (например, слой хранения или транспорт)
type Module interface {
	// Name возвращает имя модуля
	Name() string
	// Register добавляет регистрации модуля в контейнер
	Register(c *Container) error
}

// ModuleFunc модуль из функции
type ModuleFunc struct {
	name     string
	register func(c *Container) error
}

// NewModule создает модуль из функции регистрации
func NewModule(name string, register func(c *Container) error) *ModuleFunc {
	return &ModuleFunc{name: name, register: register}
}

func (m *ModuleFunc) Name() string {
	return m.name
}

func (m *ModuleFunc) Register(c *Container) error {
	return m.register(c)
}

// ConditionalModule модуль, регистрируемый по условию
type ConditionalModule struct {
	Module
	condition func() bool
}

// NewConditionalModule создает условный модуль
func NewConditionalModule(module Module, condition func() bool) *ConditionalModule {
	return &ConditionalModule{
		Module:    module,
		condition: condition,
	}
}

// Register регистрирует модуль только если условие выполнено
func (m *ConditionalModule) Register(c *Container) error {
	if !m.condition() {
		return nil
	}
	return m.Module.Register(c)
}

// RegisterModules регистрирует модули по порядку, останавливаясь на первой ошибке
func (c *Container) RegisterModules(modules ...Module) error {
	for _, module := range modules {
		if err := module.Register(c); err != nil {
			return err
		}
	}
	return nil
}
