package container

import (
	"context"
	"errors"
	"testing"

	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
)

func TestContainerBuilder_Build(t *testing.T) {
	storage := NewModule("storage", func(c *Container) error {
		return c.RegisterValue("db", &service{name: "db"}, WithTags("storage"))
	})

	c, err := NewContainerBuilder(nil).
		WithDefaults().
		WithValue("config", "cfg").
		WithModule(storage).
		WithFactory("svc", func(r Resolver) (any, error) {
			db, err := Get[*service](r, "db")
			if err != nil {
				return nil, err
			}
			return &service{name: "svc:" + db.name}, nil
		}).
		Build()
	if err != nil {
		t.Fatalf("Failed to build: %v", err)
	}

	svc, err := Get[*service](c, "svc")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if svc.name != "svc:db" {
		t.Errorf("Expected svc:db, got %s", svc.name)
	}
}

func TestContainerBuilder_CollectsErrors(t *testing.T) {
	_, err := NewContainerBuilder(nil).
		WithValue("dup", 1).
		WithValue("dup", 2).
		WithUpdate("missing", func(*lifecycle.Registration) {}).
		Build()

	if !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("Expected ALREADY_EXISTS in %v", err)
	}
	if !errors.Is(err, core.ErrDependencyNotFound) {
		t.Errorf("Expected DEPENDENCY_NOT_FOUND in %v", err)
	}
}

func TestContainerBuilder_ConditionalModule(t *testing.T) {
	module := NewConditionalModule(NewModule("cache", func(c *Container) error {
		return c.RegisterValue("cache", &service{})
	}), func() bool { return false })

	b := NewContainerBuilder(nil).WithModule(module)
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Failed to build: %v", err)
	}
	if len(c.Names()) != 0 {
		t.Errorf("Expected no registrations, got %v", c.Names())
	}
	if len(b.Modules()) != 1 || b.Modules()[0] != "cache" {
		t.Errorf("Unexpected modules %v", b.Modules())
	}
}

func TestContainerBuilder_BuildWithManager(t *testing.T) {
	_, manager, err := NewContainerBuilder(nil).
		WithValue("svc", &service{}, WithEnabled("yes")).
		BuildWithManager(lifecycle.Config{StrictBooleanEnforced: true})
	if !errors.Is(err, core.ErrConfigValidation) {
		t.Fatalf("Expected CONFIG_VALIDATION, got %v", err)
	}
	if manager != nil {
		t.Error("Manager must not be created on validation failure")
	}

	c, manager, err := NewContainerBuilder(nil).
		WithValue("svc", &service{}, WithEagerInject(lifecycle.EagerConstruct())).
		BuildWithManager(lifecycle.Config{EagerInject: true})
	if err != nil {
		t.Fatalf("Failed to build: %v", err)
	}
	if err := manager.ExecuteInit(context.Background()); err != nil {
		t.Fatalf("ExecuteInit failed: %v", err)
	}
	if !c.IsResolved("svc") {
		t.Error("Expected svc to be eagerly resolved")
	}
}
