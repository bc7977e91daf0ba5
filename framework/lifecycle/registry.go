package lifecycle

import (
	"log/slog"

	"github.com/akriventsev/potter-lifecycle/framework/core"
)

const (
	defaultInitMethod    = core.DefaultInitMethod
	defaultDisposeMethod = core.DefaultDisposeMethod
)

// Cradle ленивое представление реестра по именам
type Cradle = core.Cradle

// Registry граница с реестром зависимостей.
// Оркестратор только читает метаданные и разрешает экземпляры.
type Registry interface {
	// Registrations возвращает метаданные всех регистраций по имени
	Registrations() map[string]*Registration
	// Resolve возвращает (и при первом обращении создает) экземпляр
	Resolve(name string) (any, error)
	// Cradle возвращает ленивое представление реестра
	Cradle() Cradle
}

// PhaseStore опциональное расширение реестра для хранения фазы жизненного цикла.
// Используется защитами от повторной инициализации и освобождения без инициализации.
type PhaseStore interface {
	Phase() core.Phase
	SetPhase(phase core.Phase)
}

// LogFunc приемник отладочных сообщений
type LogFunc func(msg string)

// SlogSink возвращает приемник, пишущий в logger на уровне info
func SlogSink(logger *slog.Logger) LogFunc {
	return func(msg string) {
		logger.Info(msg)
	}
}

func defaultLogFunc(msg string) {
	slog.Default().Info(msg)
}
