package registry

import (
	"sort"
	"testing"
)

func TestBaseRegistry_Register(t *testing.T) {
	r := NewBaseRegistry[string]()

	if err := r.Register("a", "alpha"); err != nil {
		t.Fatalf("Register() error = %v, want nil", err)
	}

	if err := r.Register("", "empty"); err == nil {
		t.Error("Register() with empty name should fail")
	}

	if err := r.Register("a", "again"); err == nil {
		t.Error("Register() with duplicate name should fail")
	}
}

func TestBaseRegistry_Get(t *testing.T) {
	r := NewBaseRegistry[int]()
	_ = r.Register("one", 1)

	got, ok := r.Get("one")
	if !ok || got != 1 {
		t.Errorf("Get(one) = %v, %v, want 1, true", got, ok)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) should return false")
	}
}

func TestBaseRegistry_Names(t *testing.T) {
	r := NewBaseRegistry[int]()
	_ = r.Register("b", 2)
	_ = r.Register("a", 1)

	names := r.Names()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}

	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
}
