package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestPriority_String(t *testing.T) {
	cases := map[Priority]string{
		PriorityCritical: "critical",
		PriorityDefault:  "default",
		PriorityHigh:     "high",
		PriorityLow:      "low",
		Priority(7):      "priority(7)",
	}
	for p, expected := range cases {
		if p.String() != expected {
			t.Errorf("Expected %s, got %s", expected, p.String())
		}
	}
}

func TestPhase_String(t *testing.T) {
	if PhaseInitialized.String() != "initialized" {
		t.Errorf("Expected initialized, got %s", PhaseInitialized.String())
	}
	if Phase(42).String() != "unknown" {
		t.Errorf("Expected unknown, got %s", Phase(42).String())
	}
}

func TestFrameworkError_Is(t *testing.T) {
	err := NewMissingMethodError("Start", "db")

	if !errors.Is(err, ErrMissingMethod) {
		t.Error("Expected error to match ErrMissingMethod")
	}
	if errors.Is(err, ErrConfigValidation) {
		t.Error("Expected error not to match ErrConfigValidation")
	}

	wrapped := fmt.Errorf("init pass: %w", err)
	if !errors.Is(wrapped, ErrMissingMethod) {
		t.Error("Expected wrapped error to match ErrMissingMethod")
	}
	if ComponentOf(wrapped) != "db" {
		t.Errorf("Expected component db, got %q", ComponentOf(wrapped))
	}
}

func TestFrameworkError_Error(t *testing.T) {
	err := NewMissingMethodError("Start", "db")
	expected := "[MISSING_METHOD] method Start does not exist on dependency db"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	cause := errors.New("boom")
	wrapped := Wrap(cause, CodeInitializationFailed, "init of db failed")
	if !errors.Is(wrapped, cause) {
		t.Error("Expected wrapped error to unwrap to cause")
	}
	if wrapped.Error() != "[INITIALIZATION_FAILED] init of db failed: boom" {
		t.Errorf("Unexpected message: %s", wrapped.Error())
	}
	if Wrap(nil, CodeInitializationFailed, "x") != nil {
		t.Error("Expected Wrap(nil) to return nil")
	}
}

func TestNewConfigValidationError(t *testing.T) {
	err := NewConfigValidationError("dependency1", "yes")
	if !errors.Is(err, ErrConfigValidation) {
		t.Error("Expected error to match ErrConfigValidation")
	}
	if err.Component != "dependency1" {
		t.Errorf("Expected component dependency1, got %s", err.Component)
	}
	expected := "[CONFIG_VALIDATION] invalid config for dependency1: enabled must be a boolean, got string (yes)"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestFrameworkError_WithContext(t *testing.T) {
	err := NewError(CodeInvalidConfig, "registry is required").WithContext("manager")
	if err.Message != "manager: registry is required" {
		t.Errorf("Unexpected message: %s", err.Message)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("Expected code to be preserved")
	}
}
