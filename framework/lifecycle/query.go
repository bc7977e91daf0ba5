package lifecycle

import "fmt"

// GetWithTags возвращает экземпляры включенных регистраций, содержащих все теги.
// Пустой результат не является ошибкой.
func GetWithTags(registry Registry, tags []string) (map[string]any, error) {
	entries := selectRegistrations(registry, func(r *Registration) bool {
		return r.HasTags(tags)
	})

	result := make(map[string]any, len(entries))
	for _, reg := range entries {
		instance, err := registry.Resolve(reg.Name)
		if err != nil {
			return nil, fmt.Errorf("getWithTags: failed to resolve %s: %w", reg.Name, err)
		}
		result[reg.Name] = instance
	}
	return result, nil
}

// GetByPredicate разрешает ВСЕ включенные регистрации и возвращает те,
// для которых predicate вернул true. Побочный эффект: создаются все компоненты.
func GetByPredicate(registry Registry, predicate func(instance any) bool) (map[string]any, error) {
	entries := selectRegistrations(registry, func(*Registration) bool { return true })
	sortByName(entries)

	result := make(map[string]any)
	for _, reg := range entries {
		instance, err := registry.Resolve(reg.Name)
		if err != nil {
			return nil, fmt.Errorf("getByPredicate: failed to resolve %s: %w", reg.Name, err)
		}
		if predicate(instance) {
			result[reg.Name] = instance
		}
	}
	return result, nil
}

// GetWithTagsAs[T] как GetWithTags, но оставляет только экземпляры типа T
func GetWithTagsAs[T any](registry Registry, tags []string) (map[string]T, error) {
	found, err := GetWithTags(registry, tags)
	if err != nil {
		return nil, err
	}
	result := make(map[string]T, len(found))
	for name, instance := range found {
		if typed, ok := instance.(T); ok {
			result[name] = typed
		}
	}
	return result, nil
}

// GetByType[T] возвращает все включенные экземпляры, реализующие T
func GetByType[T any](registry Registry) (map[string]T, error) {
	found, err := GetByPredicate(registry, func(instance any) bool {
		_, ok := instance.(T)
		return ok
	})
	if err != nil {
		return nil, err
	}
	result := make(map[string]T, len(found))
	for name, instance := range found {
		result[name] = instance.(T)
	}
	return result, nil
}
