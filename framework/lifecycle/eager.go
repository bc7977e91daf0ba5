package lifecycle

import (
	"context"
	"fmt"

	"github.com/akriventsev/potter-lifecycle/framework/metrics"
)

// EagerInject принудительно создает все включенные регистрации с директивой EagerInject.
// Регистрации обрабатываются в порядке имен, каждая ровно один раз. Если директива
// задает метод, он вызывается после создания экземпляра.
func EagerInject(ctx context.Context, registry Registry) error {
	return eagerInject(ctx, registry, nil)
}

func eagerInject(ctx context.Context, registry Registry, m *metrics.Metrics) error {
	entries := selectRegistrations(registry, func(r *Registration) bool {
		return r.EagerInject != nil
	})
	sortByName(entries)

	for _, reg := range entries {
		instance, err := registry.Resolve(reg.Name)
		if err != nil {
			m.RecordEager(ctx, reg.Name, false)
			return fmt.Errorf("eagerInject: failed to resolve %s: %w", reg.Name, err)
		}

		if reg.EagerInject.Method != "" {
			invoke, err := lookupMethod(instance, reg.EagerInject.Method, reg.Name, nil)
			if err != nil {
				m.RecordEager(ctx, reg.Name, false)
				return err
			}
			if err := invoke(ctx); err != nil {
				m.RecordEager(ctx, reg.Name, false)
				return err
			}
		}
		m.RecordEager(ctx, reg.Name, true)
	}

	return nil
}
