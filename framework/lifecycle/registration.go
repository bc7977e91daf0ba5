// Package lifecycle управляет асинхронной инициализацией, освобождением ресурсов и
// выборкой компонентов поверх реестра зависимостей.
//
// Реестр (DI контейнер) отвечает за регистрацию, создание и разрешение зависимостей.
// Пакет lifecycle только читает метаданные регистраций и вызывает методы жизненного
// цикла в детерминированном порядке: сначала по приоритету, затем по имени.
//
// Пример использования:
//
//	manager, err := lifecycle.NewManager(lifecycle.Config{
//	    Registry:     c,
//	    EagerInject:  true,
//	    AsyncInit:    true,
//	    AsyncDispose: true,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := manager.ExecuteInit(ctx); err != nil {
//	    return err
//	}
//	defer manager.ExecuteDispose(ctx)
package lifecycle

import (
	"context"
	"slices"
	"sort"
	"strings"
)

// DefaultPriority приоритет инициализации и освобождения по умолчанию
const DefaultPriority = 1

// InitHook пользовательская функция инициализации
type InitHook func(ctx context.Context, instance any, registry Registry) error

// DisposeHook пользовательская функция освобождения ресурсов
type DisposeHook func(ctx context.Context, instance any) error

// InitDirective директива инициализации.
//
// Пустая директива вызывает метод по умолчанию (AsyncInit), Method задает имя метода,
// Func задает функцию. NonBlocking запускает инициализацию без ожидания результата.
type InitDirective struct {
	Method      string
	Func        InitHook
	NonBlocking bool
}

// InitDefault вызывает AsyncInit на разрешенном экземпляре
func InitDefault() *InitDirective {
	return &InitDirective{}
}

// InitMethod вызывает метод с указанным именем
func InitMethod(name string) *InitDirective {
	return &InitDirective{Method: name}
}

// InitFunc вызывает fn(ctx, instance, registry)
func InitFunc(fn InitHook) *InitDirective {
	return &InitDirective{Func: fn}
}

// WithNonBlocking возвращает копию директивы в неблокирующем режиме
func (d *InitDirective) WithNonBlocking() *InitDirective {
	cp := *d
	cp.NonBlocking = true
	return &cp
}

// method возвращает эффективное имя метода
func (d *InitDirective) method() string {
	if d.Method == "" {
		return defaultInitMethod
	}
	return d.Method
}

// DisposeDirective директива освобождения ресурсов
type DisposeDirective struct {
	Method string
	Func   DisposeHook
}

// DisposeDefault вызывает AsyncDispose на разрешенном экземпляре
func DisposeDefault() *DisposeDirective {
	return &DisposeDirective{}
}

// DisposeMethod вызывает метод с указанным именем
func DisposeMethod(name string) *DisposeDirective {
	return &DisposeDirective{Method: name}
}

// DisposeFunc вызывает fn(ctx, instance)
func DisposeFunc(fn DisposeHook) *DisposeDirective {
	return &DisposeDirective{Func: fn}
}

func (d *DisposeDirective) method() string {
	if d.Method == "" {
		return defaultDisposeMethod
	}
	return d.Method
}

// EagerDirective директива принудительного создания.
// Пустой Method означает только создание экземпляра.
type EagerDirective struct {
	Method string
}

// EagerConstruct только создает экземпляр
func EagerConstruct() *EagerDirective {
	return &EagerDirective{}
}

// EagerMethod создает экземпляр и вызывает метод без аргументов
func EagerMethod(name string) *EagerDirective {
	return &EagerDirective{Method: name}
}

// Registration метаданные жизненного цикла зарегистрированного компонента.
//
// Enabled: nil (атрибут отсутствует, компонент включен), true или false.
// Значения другого типа приходят из конфигурационных файлов и отклоняются
// только в строгом режиме.
type Registration struct {
	Name                 string
	Enabled              any
	AsyncInit            *InitDirective
	AsyncInitPriority    *int
	AsyncDispose         *DisposeDirective
	AsyncDisposePriority *int
	EagerInject          *EagerDirective
	Tags                 []string
}

// IsEnabled возвращает false только для явного Enabled == false
func (r *Registration) IsEnabled() bool {
	enabled, ok := r.Enabled.(bool)
	return !ok || enabled
}

// InitPriority возвращает приоритет инициализации (по умолчанию 1)
func (r *Registration) InitPriority() int {
	if r.AsyncInitPriority == nil {
		return DefaultPriority
	}
	return *r.AsyncInitPriority
}

// DisposePriority возвращает приоритет освобождения (по умолчанию 1)
func (r *Registration) DisposePriority() int {
	if r.AsyncDisposePriority == nil {
		return DefaultPriority
	}
	return *r.AsyncDisposePriority
}

// HasTags проверяет, что регистрация содержит все запрошенные теги
func (r *Registration) HasTags(tags []string) bool {
	for _, tag := range tags {
		if !slices.Contains(r.Tags, tag) {
			return false
		}
	}
	return true
}

// Clone возвращает глубокую копию метаданных
func (r *Registration) Clone() *Registration {
	cp := *r
	if r.AsyncInit != nil {
		d := *r.AsyncInit
		cp.AsyncInit = &d
	}
	if r.AsyncDispose != nil {
		d := *r.AsyncDispose
		cp.AsyncDispose = &d
	}
	if r.EagerInject != nil {
		d := *r.EagerInject
		cp.EagerInject = &d
	}
	if r.AsyncInitPriority != nil {
		p := *r.AsyncInitPriority
		cp.AsyncInitPriority = &p
	}
	if r.AsyncDisposePriority != nil {
		p := *r.AsyncDisposePriority
		cp.AsyncDisposePriority = &p
	}
	cp.Tags = slices.Clone(r.Tags)
	return &cp
}

// Priority возвращает указатель на приоритет для полей AsyncInitPriority/AsyncDisposePriority
func Priority(p int) *int {
	return &p
}

// selectRegistrations выбирает включенные регистрации, удовлетворяющие фильтру
func selectRegistrations(registry Registry, filter func(*Registration) bool) []*Registration {
	all := registry.Registrations()
	result := make([]*Registration, 0, len(all))
	for name, reg := range all {
		if reg == nil || !reg.IsEnabled() || !filter(reg) {
			continue
		}
		// Имя берется из ключа реестра
		if reg.Name != name {
			reg = reg.Clone()
			reg.Name = name
		}
		result = append(result, reg)
	}
	return result
}

// sortByPriority сортирует по приоритету, затем по имени
func sortByPriority(regs []*Registration, priority func(*Registration) int) {
	sort.SliceStable(regs, func(i, j int) bool {
		pi, pj := priority(regs[i]), priority(regs[j])
		if pi != pj {
			return pi < pj
		}
		return strings.Compare(regs[i].Name, regs[j].Name) < 0
	})
}

// sortByName сортирует по имени
func sortByName(regs []*Registration) {
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].Name < regs[j].Name
	})
}
