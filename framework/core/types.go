// Package core предоставляет базовые типы для всех компонентов фреймворка.
package core

import "fmt"

// ComponentType enum для типов компонентов
type ComponentType string

const (
	ComponentTypeStorage   ComponentType = "storage"
	ComponentTypeMessaging ComponentType = "messaging"
	ComponentTypeTransport ComponentType = "transport"
	ComponentTypeService   ComponentType = "service"
)

// Priority тип для приоритетов инициализации и освобождения (меньше = раньше)
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityDefault  Priority = 1
	PriorityHigh     Priority = 10
	PriorityNormal   Priority = 50
	PriorityLow      Priority = 100
)

// Int возвращает приоритет как int
func (p Priority) Int() int {
	return int(p)
}

// String реализует fmt.Stringer
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityDefault:
		return "default"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Phase фаза жизненного цикла реестра
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitialized
	PhaseDisposed
)

// String реализует fmt.Stringer
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitialized:
		return "initialized"
	case PhaseDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}
