package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("test")

	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	v, err := c.Get(ctx, "k")
	if err != nil || v != "v" {
		t.Fatalf("get = (%q, %v)", v, err)
	}
}

func TestMemoryDeleteReportsExistence(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	existed, err := c.Delete(ctx, "k")
	if err != nil || existed {
		t.Fatalf("delete on empty = (%v, %v), want (false, nil)", existed, err)
	}

	_ = c.Set(ctx, "k", "v", 0)
	existed, err = c.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("delete existing = (%v, %v), want (true, nil)", existed, err)
	}
}

func TestMemorySetNX(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	ok, err := c.SetNX(ctx, "lock", "owner-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX = (%v, %v)", ok, err)
	}
	ok, err = c.SetNX(ctx, "lock", "owner-2", time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetNX must not win, got (%v, %v)", ok, err)
	}

	// El valor sigue siendo del primer owner.
	v, _ := c.Get(ctx, "lock")
	if v != "owner-1" {
		t.Fatalf("lock value = %q", v)
	}
}

func TestMemoryDeleteIfEquals(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	deleted, err := c.DeleteIfEquals(ctx, "lock", "owner-1")
	if err != nil || deleted {
		t.Fatalf("delete-if-equals on empty = (%v, %v), want (false, nil)", deleted, err)
	}

	_ = c.Set(ctx, "lock", "owner-1", 0)

	deleted, err = c.DeleteIfEquals(ctx, "lock", "owner-2")
	if err != nil || deleted {
		t.Fatalf("mismatched value must not delete, got (%v, %v)", deleted, err)
	}
	if v, _ := c.Get(ctx, "lock"); v != "owner-1" {
		t.Fatalf("lock value = %q, want owner-1", v)
	}

	deleted, err = c.DeleteIfEquals(ctx, "lock", "owner-1")
	if err != nil || !deleted {
		t.Fatalf("matching value must delete, got (%v, %v)", deleted, err)
	}
}

func TestNewFactory(t *testing.T) {
	c, err := New(Config{Driver: "memory", Prefix: "p"})
	if err != nil || c == nil {
		t.Fatalf("New memory = (%v, %v)", c, err)
	}
	_ = c.Close()

	c, err = New(Config{}) // driver vacío cae a memory
	if err != nil || c == nil {
		t.Fatalf("New default = (%v, %v)", c, err)
	}
	_ = c.Close()
}
