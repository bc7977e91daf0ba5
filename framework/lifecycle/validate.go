package lifecycle

import (
	"sort"

	"github.com/akriventsev/potter-lifecycle/framework/core"
)

// ValidateStrictBoolean проверяет, что атрибут Enabled каждой регистрации
// либо отсутствует, либо является bool. Регистрации проверяются в порядке имен;
// возвращается ошибка CONFIG_VALIDATION для первой нарушающей.
func ValidateStrictBoolean(registry Registry) error {
	all := registry.Registrations()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		reg := all[name]
		if reg == nil || reg.Enabled == nil {
			continue
		}
		if _, ok := reg.Enabled.(bool); !ok {
			return core.NewConfigValidationError(name, reg.Enabled)
		}
	}
	return nil
}
