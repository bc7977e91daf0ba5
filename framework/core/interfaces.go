// Package core предоставляет базовые интерфейсы и типы для всех компонентов фреймворка.
package core

import "context"

// Имена методов жизненного цикла по умолчанию
const (
	DefaultInitMethod    = "AsyncInit"
	DefaultDisposeMethod = "AsyncDispose"
)

// Component базовый интерфейс для именованных компонентов
type Component interface {
	// Name возвращает имя компонента
	Name() string
	// Type возвращает тип компонента
	Type() ComponentType
}

// Cradle ленивое представление реестра: значения разрешаются при обращении
type Cradle interface {
	// Get возвращает разрешенный экземпляр по имени регистрации
	Get(name string) (any, error)
}

// AsyncInitializer компонент с асинхронной инициализацией по умолчанию.
// Cradle дает доступ к соседним зависимостям.
type AsyncInitializer interface {
	AsyncInit(ctx context.Context, cradle Cradle) error
}

// AsyncDisposer компонент с асинхронным освобождением ресурсов по умолчанию
type AsyncDisposer interface {
	AsyncDispose(ctx context.Context) error
}

// HealthCheckable интерфейс для проверки здоровья компонентов
type HealthCheckable interface {
	// HealthCheck проверяет здоровье компонента
	HealthCheck(ctx context.Context) error
}
