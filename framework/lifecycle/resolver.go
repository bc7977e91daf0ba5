package lifecycle

import (
	"context"
	"fmt"
	"reflect"

	"github.com/akriventsev/potter-lifecycle/framework/core"
)

// invocation подготовленный вызов метода жизненного цикла
type invocation func(ctx context.Context) error

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	cradleType  = reflect.TypeOf((*core.Cradle)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// resolveInit проверяет директиву инициализации и готовит вызов.
// Никаких побочных эффектов до возврата invocation.
func resolveInit(reg *Registration, instance any, registry Registry) (invocation, error) {
	d := reg.AsyncInit
	if d.Func != nil {
		fn := d.Func
		return func(ctx context.Context) error {
			return fn(ctx, instance, registry)
		}, nil
	}

	if d.Method == "" {
		if initializer, ok := instance.(core.AsyncInitializer); ok {
			cradle := registry.Cradle()
			return func(ctx context.Context) error {
				return initializer.AsyncInit(ctx, cradle)
			}, nil
		}
	}

	return lookupMethod(instance, d.method(), reg.Name, registry.Cradle())
}

// resolveDispose проверяет директиву освобождения и готовит вызов
func resolveDispose(reg *Registration, instance any) (invocation, error) {
	d := reg.AsyncDispose
	if d.Func != nil {
		fn := d.Func
		return func(ctx context.Context) error {
			return fn(ctx, instance)
		}, nil
	}

	if d.Method == "" {
		if disposer, ok := instance.(core.AsyncDisposer); ok {
			return disposer.AsyncDispose, nil
		}
	}

	return lookupMethod(instance, d.method(), reg.Name, nil)
}

// lookupMethod находит экспортируемый метод по имени и проверяет сигнатуру.
//
// Поддерживаемые сигнатуры:
//
//	func()
//	func() error
//	func(context.Context) error
//	func(context.Context, Cradle) error   // только если cradle != nil
func lookupMethod(instance any, method, component string, cradle core.Cradle) (invocation, error) {
	if instance == nil {
		return nil, core.NewMissingMethodError(method, component)
	}

	m := reflect.ValueOf(instance).MethodByName(method)
	if !m.IsValid() {
		return nil, core.NewMissingMethodError(method, component)
	}

	t := m.Type()
	if t.NumOut() > 1 || (t.NumOut() == 1 && t.Out(0) != errorType) || t.IsVariadic() {
		return nil, unsupportedSignature(method, component, t)
	}

	var withCtx, withCradle bool
	switch t.NumIn() {
	case 0:
	case 1:
		if t.In(0) != contextType {
			return nil, unsupportedSignature(method, component, t)
		}
		withCtx = true
	case 2:
		if t.In(0) != contextType || t.In(1) != cradleType || cradle == nil {
			return nil, unsupportedSignature(method, component, t)
		}
		withCtx, withCradle = true, true
	default:
		return nil, unsupportedSignature(method, component, t)
	}

	return func(ctx context.Context) error {
		args := make([]reflect.Value, 0, 2)
		if withCtx {
			args = append(args, reflect.ValueOf(&ctx).Elem())
		}
		if withCradle {
			args = append(args, reflect.ValueOf(&cradle).Elem())
		}
		out := m.Call(args)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}, nil
}

func unsupportedSignature(method, component string, t reflect.Type) error {
	err := core.NewError(core.CodeMissingMethod,
		fmt.Sprintf("method %s on dependency %s has unsupported signature %s", method, component, t))
	err.Component = component
	return err
}
