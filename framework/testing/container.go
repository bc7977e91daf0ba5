package testing

import (
	"testing"

	"github.com/akriventsev/potter-lifecycle/framework/container"
	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
)

// NewTestContainer создает тестовый контейнер с дефолтными настройками.
// Если сборка контейнера завершается с ошибкой, тест завершается с t.Fatalf
func NewTestContainer(t *testing.T, configure func(b *container.ContainerBuilder)) *container.Container {
	t.Helper()

	builder := container.NewContainerBuilder(&container.Config{}).
		WithDefaults()
	if configure != nil {
		configure(builder)
	}

	cnt, err := builder.Build()
	if err != nil {
		t.Fatalf("failed to build test container: %v", err)
	}
	return cnt
}

// NewTestManager создает менеджер со всеми фазами и отладочными сообщениями в журнале.
// configure может поправить конфигурацию до создания менеджера.
func NewTestManager(t *testing.T, registry lifecycle.Registry, configure func(cfg *lifecycle.Config)) (*lifecycle.Manager, *Recorder) {
	t.Helper()

	log := NewRecorder()
	cfg := lifecycle.Config{
		Registry:     registry,
		EagerInject:  true,
		AsyncInit:    true,
		AsyncDispose: true,
		Debug:        true,
		Log:          log.Sink(),
	}
	if configure != nil {
		configure(&cfg)
	}

	manager, err := lifecycle.NewManager(cfg)
	if err != nil {
		t.Fatalf("failed to create test manager: %v", err)
	}
	return manager, log
}
