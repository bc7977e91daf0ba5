package container

import (
	"slices"

	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
)

// Option настраивает регистрацию
type Option func(e *entry)

// WithScope задает область видимости
func WithScope(scope DependencyScope) Option {
	return func(e *entry) {
		e.scope = scope
	}
}

// WithEnabled задает атрибут enabled. Значение хранится как есть,
// чтобы строгая проверка могла отклонить не-bool значения.
func WithEnabled(enabled any) Option {
	return func(e *entry) {
		e.registration.Enabled = enabled
	}
}

// WithAsyncInit задает директиву инициализации
func WithAsyncInit(d *lifecycle.InitDirective) Option {
	return func(e *entry) {
		e.registration.AsyncInit = d
	}
}

// WithAsyncInitPriority задает приоритет инициализации (меньше = раньше)
func WithAsyncInitPriority(priority int) Option {
	return func(e *entry) {
		e.registration.AsyncInitPriority = lifecycle.Priority(priority)
	}
}

// WithAsyncDispose задает директиву освобождения ресурсов
func WithAsyncDispose(d *lifecycle.DisposeDirective) Option {
	return func(e *entry) {
		e.registration.AsyncDispose = d
	}
}

// WithAsyncDisposePriority задает приоритет освобождения (меньше = раньше)
func WithAsyncDisposePriority(priority int) Option {
	return func(e *entry) {
		e.registration.AsyncDisposePriority = lifecycle.Priority(priority)
	}
}

// WithEagerInject задает директиву принудительного создания
func WithEagerInject(d *lifecycle.EagerDirective) Option {
	return func(e *entry) {
		e.registration.EagerInject = d
	}
}

// WithTags добавляет теги
func WithTags(tags ...string) Option {
	return func(e *entry) {
		for _, tag := range tags {
			if !slices.Contains(e.registration.Tags, tag) {
				e.registration.Tags = append(e.registration.Tags, tag)
			}
		}
	}
}

// WithRegistration копирует готовые метаданные (имя берется из Register)
func WithRegistration(reg lifecycle.Registration) Option {
	return func(e *entry) {
		name := e.registration.Name
		e.registration = reg.Clone()
		e.registration.Name = name
	}
}
