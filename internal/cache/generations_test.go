package cache

import (
	"context"
	"errors"
	"testing"
)

func TestGenerationNamespacing(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	v1 := NewGeneration(c, "api", "v1.0.0")
	v2 := NewGeneration(c, "api", "v1.1.0")

	if err := v1.Set(ctx, "/api/products", []byte("old"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := v2.Set(ctx, "/api/products", []byte("new"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := v1.Get(ctx, "/api/products")
	if err != nil || string(got) != "old" {
		t.Errorf("v1 Get = %q, %v", got, err)
	}
	got, err = v2.Get(ctx, "/api/products")
	if err != nil || string(got) != "new" {
		t.Errorf("v2 Get = %q, %v", got, err)
	}
}

func TestActivateRetiresOldGenerations(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	oldAPI := NewGeneration(c, "api", "v1.0.0")
	newAPI := NewGeneration(c, "api", "v1.1.0")
	oldStatic := NewGeneration(c, "static", "v1.0.0")
	newStatic := NewGeneration(c, "static", "v1.1.0")

	oldAPI.Set(ctx, "/api/products", []byte("a"), 0)
	newAPI.Set(ctx, "/api/products", []byte("b"), 0)
	oldStatic.Set(ctx, "/app.css", []byte("c"), 0)
	newStatic.Set(ctx, "/app.css", []byte("d"), 0)
	// An unrelated namespace must survive activation untouched.
	c.Set(ctx, "session:abc", []byte("e"), 0)

	removed, err := Activate(ctx, c, newAPI, newStatic)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	if _, err := oldAPI.Get(ctx, "/api/products"); !errors.Is(err, ErrCacheMiss) {
		t.Error("old api generation survived activation")
	}
	if _, err := oldStatic.Get(ctx, "/app.css"); !errors.Is(err, ErrCacheMiss) {
		t.Error("old static generation survived activation")
	}
	if got, err := newAPI.Get(ctx, "/api/products"); err != nil || string(got) != "b" {
		t.Errorf("current api generation lost: %q, %v", got, err)
	}
	if got, err := c.Get(ctx, "session:abc"); err != nil || string(got) != "e" {
		t.Errorf("unrelated key lost: %q, %v", got, err)
	}
}

func TestGenerationPurge(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	gen := NewGeneration(c, "api", "v1.0.0")
	gen.Set(ctx, "/a", []byte("1"), 0)
	gen.Set(ctx, "/b", []byte("2"), 0)
	c.Set(ctx, "other", []byte("3"), 0)

	if err := gen.Purge(ctx); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, err := gen.Get(ctx, "/a"); !errors.Is(err, ErrCacheMiss) {
		t.Error("purged entry survived")
	}
	if _, err := c.Get(ctx, "other"); err != nil {
		t.Errorf("unrelated key purged: %v", err)
	}
}
