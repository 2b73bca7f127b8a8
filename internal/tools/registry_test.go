package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func noopHandler(_ context.Context, _ json.RawMessage) (string, error) {
	return "ok", nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(Definition{Name: "view_cart", Handler: noopHandler}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	def, err := reg.Lookup("view_cart")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if def.Name != "view_cart" {
		t.Errorf("Lookup name = %q, want view_cart", def.Name)
	}

	if _, err := reg.Lookup("nope"); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("Lookup unknown = %v, want ErrUnknownTool", err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(Definition{Name: "place_order", Handler: noopHandler}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := reg.Register(Definition{Name: "place_order", Handler: noopHandler})
	if !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("duplicate Register = %v, want ErrDuplicateTool", err)
	}
}

func TestRegistryRejectsInvalidDefinitions(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(Definition{Handler: noopHandler}); !errors.Is(err, ErrEmptyToolName) {
		t.Errorf("empty name = %v, want ErrEmptyToolName", err)
	}
	if err := reg.Register(Definition{Name: "no_handler"}); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler = %v, want ErrNilHandler", err)
	}
}

func TestRegistrySensitivity(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(Definition{Name: "place_order", Handler: noopHandler, Sensitive: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(Definition{Name: "view_cart", Handler: noopHandler}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !reg.IsSensitive("place_order") {
		t.Error("place_order should be sensitive")
	}
	if reg.IsSensitive("view_cart") {
		t.Error("view_cart should not be sensitive")
	}
	if reg.IsSensitive("unknown") {
		t.Error("unknown names should not be sensitive")
	}
}

func TestRegistryDefinitionsPreserveOrder(t *testing.T) {
	reg := NewRegistry()
	names := []string{"check_customer_exists", "get_menu_items", "add_to_cart"}
	for _, n := range names {
		if err := reg.Register(Definition{Name: n, Handler: noopHandler}); err != nil {
			t.Fatalf("Register %q: %v", n, err)
		}
	}

	defs := reg.Definitions()
	if len(defs) != len(names) {
		t.Fatalf("Definitions len = %d, want %d", len(defs), len(names))
	}
	for i, n := range names {
		if defs[i].Name != n {
			t.Errorf("Definitions[%d] = %q, want %q", i, defs[i].Name, n)
		}
	}
}

func TestMarkSensitive(t *testing.T) {
	defs := []Definition{
		{Name: "view_cart", Handler: noopHandler},
		{Name: "place_order", Handler: noopHandler},
	}

	marked := MarkSensitive(defs, []string{"place_order"})
	if marked[0].Sensitive {
		t.Error("view_cart should remain safe")
	}
	if !marked[1].Sensitive {
		t.Error("place_order should be marked sensitive")
	}
	if defs[1].Sensitive {
		t.Error("original slice must not be mutated")
	}
}
