// Package testing предоставляет утилиты для тестирования компонентов с жизненным циклом.
package testing

import (
	"slices"
	"sync"
	"time"
)

// Recorder потокобезопасный журнал событий. Передается в компоненты,
// чтобы проверять порядок вызовов без глобальных переменных.
type Recorder struct {
	mu     sync.Mutex
	events []string
	notify chan struct{}
}

// NewRecorder создает пустой журнал
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Record добавляет событие
func (r *Recorder) Record(event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events возвращает копию журнала
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Contains проверяет наличие события
func (r *Recorder) Contains(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, event)
}

// WaitFor ждет появления события до истечения timeout
func (r *Recorder) WaitFor(event string, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if r.Contains(event) {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return r.Contains(event)
		}
	}
}

// Sink возвращает приемник сообщений, пишущий в журнал.
// Совместим с lifecycle.LogFunc.
func (r *Recorder) Sink() func(msg string) {
	return r.Record
}
