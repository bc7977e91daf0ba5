// Package core предоставляет систему ошибок фреймворка.
package core

import (
	"fmt"
	"runtime"
	"strings"
)

// Коды ошибок фреймворка
const (
	CodeDependencyNotFound   = "DEPENDENCY_NOT_FOUND"
	CodeCircularDependency   = "CIRCULAR_DEPENDENCY"
	CodeAlreadyExists        = "ALREADY_EXISTS"
	CodeInvalidConfig        = "INVALID_CONFIG"
	CodeConfigValidation     = "CONFIG_VALIDATION"
	CodeMissingMethod        = "MISSING_METHOD"
	CodeInitializationFailed = "INITIALIZATION_FAILED"
	CodeDisposeFailed        = "DISPOSE_FAILED"
)

// Сентинелы для errors.Is: сравнение идет по коду ошибки.
var (
	ErrDependencyNotFound   = &FrameworkError{Code: CodeDependencyNotFound}
	ErrCircularDependency   = &FrameworkError{Code: CodeCircularDependency}
	ErrAlreadyExists        = &FrameworkError{Code: CodeAlreadyExists}
	ErrInvalidConfig        = &FrameworkError{Code: CodeInvalidConfig}
	ErrConfigValidation     = &FrameworkError{Code: CodeConfigValidation}
	ErrMissingMethod        = &FrameworkError{Code: CodeMissingMethod}
	ErrInitializationFailed = &FrameworkError{Code: CodeInitializationFailed}
	ErrDisposeFailed        = &FrameworkError{Code: CodeDisposeFailed}
)

// FrameworkError базовый тип ошибки фреймворка
type FrameworkError struct {
	Code       string
	Message    string
	Component  string
	Cause      error
	StackTrace string
}

// Error реализует интерфейс error
func (e *FrameworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap возвращает причину ошибки
func (e *FrameworkError) Unwrap() error {
	return e.Cause
}

// Is проверяет, соответствует ли ошибка коду
func (e *FrameworkError) Is(target error) bool {
	if t, ok := target.(*FrameworkError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext добавляет контекст к ошибке
func (e *FrameworkError) WithContext(context string) *FrameworkError {
	return &FrameworkError{
		Code:       e.Code,
		Message:    fmt.Sprintf("%s: %s", context, e.Message),
		Component:  e.Component,
		Cause:      e.Cause,
		StackTrace: e.StackTrace,
	}
}

// NewError создает новую ошибку фреймворка
func NewError(code, message string) *FrameworkError {
	return &FrameworkError{
		Code:       code,
		Message:    message,
		StackTrace: captureStackTrace(),
	}
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code, message string) *FrameworkError {
	if err == nil {
		return nil
	}
	return &FrameworkError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStackTrace(),
	}
}

// NewConfigValidationError ошибка строгой проверки атрибута enabled
func NewConfigValidationError(component string, value any) *FrameworkError {
	err := NewError(CodeConfigValidation,
		fmt.Sprintf("invalid config for %s: enabled must be a boolean, got %T (%v)", component, value, value))
	err.Component = component
	return err
}

// NewMissingMethodError ошибка отсутствующего метода жизненного цикла
func NewMissingMethodError(method, component string) *FrameworkError {
	err := NewError(CodeMissingMethod,
		fmt.Sprintf("method %s does not exist on dependency %s", method, component))
	err.Component = component
	return err
}

// ComponentOf возвращает имя компонента из цепочки ошибок
func ComponentOf(err error) string {
	for err != nil {
		if fe, ok := err.(*FrameworkError); ok && fe.Component != "" {
			return fe.Component
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// captureStackTrace захватывает stack trace
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// Убираем первые несколько строк (сама функция captureStackTrace)
	lines := strings.Split(stack, "\n")
	if len(lines) > 4 {
		lines = lines[4:]
	}
	return strings.Join(lines, "\n")
}
