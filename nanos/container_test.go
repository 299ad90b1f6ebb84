package nanos

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestContainer_EndToEnd(t *testing.T) {
	c := New()
	if err := c.Push(1, "two"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if _, err := c.Set("id", 3); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := c.Set("status", "ok"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	assert.Equal(t, c.String(), "[(1 two id=3 status=ok)]")

	parsed, err := Parse(c.String())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	assert.Equal(t, parsed.At("status"), "ok")
	assert.Equal(t, parsed.At(0), int64(1))
	assert.Equal(t, parsed.Keys(), []string{"0", "1", "id", "status"})
}

func TestContainer_GetAndAt(t *testing.T) {
	c, err := From("a", "b", "c")
	if err != nil {
		t.Fatalf("From failed: %v", err)
	}

	v, ok := c.Get(1)
	assert.Equal(t, ok, true)
	assert.Equal(t, v, "b")

	assert.Equal(t, c.At(-1), "c")
	assert.Equal(t, c.At("2"), "c")
	assert.Equal(t, c.Has(-3), true)
	assert.Equal(t, c.Has(-4), false)

	_, ok = c.Get(-4)
	assert.Equal(t, ok, false)
	assert.Equal(t, IsUndefined(c.At("missing")), true)
	assert.Equal(t, c.At("missing", WithDefault("dflt")), "dflt")
}

func TestContainer_GetPath(t *testing.T) {
	inner := New()
	inner.Set("leaf", "v")
	c := New()
	c.Set("mid", inner)
	c.Set("scalar", 5)

	assert.Equal(t, c.At(Path{"mid", "leaf"}), "v")
	assert.Equal(t, c.At([]string{"mid", "leaf"}), "v")
	assert.Equal(t, c.At(Path{"mid", "nope"}, WithDefault(0)), 0)
	assert.Equal(t, c.At(Path{"scalar", "leaf"}, WithDefault(0)), 0)
	assert.Equal(t, c.Has(Path{}), false)
}

func TestContainer_SetNilKeyUsesNext(t *testing.T) {
	c := New()
	c.Set(nil, "first")
	c.Set(5, "sparse")
	c.Set(nil, "after")

	assert.Equal(t, c.Keys(), []string{"0", "5", "6"})
	assert.Equal(t, c.Next(), 7)
}

func TestContainer_SetExistingKeepsPosition(t *testing.T) {
	c := New()
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	assert.Equal(t, c.Keys(), []string{"a", "b"})
	assert.Equal(t, c.At("a"), 3)
}

func TestContainer_SetInsert(t *testing.T) {
	c := New()
	c.Set("a", 1)
	c.Set("b", 2, Insert())
	assert.Equal(t, c.Keys(), []string{"b", "a"})
}

func TestContainer_SetUnderflow(t *testing.T) {
	c := New()
	if _, err := c.Set(-1, "x"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestContainer_SetEmptyDeletes(t *testing.T) {
	c, _ := From("a", "b")
	if _, err := c.Set(1, Empty); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	assert.Equal(t, c.Keys(), []string{"0"})
	assert.Equal(t, c.Next(), 2)

	c.Set(4, Empty)
	assert.Equal(t, c.Next(), 5)
	assert.Equal(t, c.Len(), 1)
}

func TestContainer_Delete(t *testing.T) {
	c, _ := From("a", "b")
	c.Set("n", 1)

	v, err := c.Delete("n")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	assert.Equal(t, v, 1)

	v, err = c.Delete("n")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	assert.Equal(t, IsUndefined(v), true)

	c.Delete(-1)
	assert.Equal(t, c.Keys(), []string{"0"})
	assert.Equal(t, c.Next(), 2)
}

func TestContainer_SetNext(t *testing.T) {
	c, _ := From("a", "b", "c")
	c.Set("x", 1)

	if err := c.SetNext(1); err != nil {
		t.Fatalf("SetNext failed: %v", err)
	}
	assert.Equal(t, c.Keys(), []string{"0", "x"})
	assert.Equal(t, c.Next(), 1)

	if err := c.SetNext(4); err != nil {
		t.Fatalf("SetNext failed: %v", err)
	}
	assert.Equal(t, c.String(), "[(a x=1 @e @e @e)]")

	if err := c.SetNext(-1); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestContainer_KeyViews(t *testing.T) {
	c := New()
	c.Set("a", 1)
	c.Push("x", "y")
	c.Set("b", 2)

	assert.Equal(t, c.IndexKeys(), []string{"0", "1"})
	assert.Equal(t, c.NamedKeys(), []string{"a", "b"})
	assert.Equal(t, c.Values(), []any{1, "x", "y", 2})

	entries := c.Entries()
	assert.Equal(t, len(entries), 4)
	assert.Equal(t, entries[0].Key, "a")
	assert.Equal(t, entries[2].Value, "y")
}

func TestContainer_Clear(t *testing.T) {
	c, _ := From(1, 2)
	c.Set("a", 3)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	assert.Equal(t, c.Len(), 0)
	assert.Equal(t, c.Next(), 0)
}

func TestContainer_Clone(t *testing.T) {
	c, _ := From(1, 2)
	c.Lock(0)
	clone := c.Clone()

	assert.Equal(t, clone.Keys(), c.Keys())
	assert.Equal(t, clone.IsLocked(0), false)

	clone.Set(0, 9)
	assert.Equal(t, c.At(0), 1)
}

func TestContainer_Transform(t *testing.T) {
	c := NewWithOptions(Options{Transform: true})
	c.Set("list", []any{1, 2})
	c.Set("map", map[string]any{"k": "v"})
	c.Set("bytes", []byte("raw"))

	list, ok := c.At("list").(*Container)
	if !ok {
		t.Fatalf("expected nested container, got %T", c.At("list"))
	}
	assert.Equal(t, list.Next(), 2)

	m, ok := c.At("map").(*Container)
	if !ok {
		t.Fatalf("expected nested container, got %T", c.At("map"))
	}
	assert.Equal(t, m.At("k"), "v")

	if _, ok := c.At("bytes").([]byte); !ok {
		t.Errorf("expected []byte to stay opaque, got %T", c.At("bytes"))
	}

	plain := New()
	plain.Set("list", []any{1, 2})
	if _, ok := plain.At("list").([]any); !ok {
		t.Errorf("expected untransformed slice, got %T", plain.At("list"))
	}
}

func TestContainer_OpaqueMaps(t *testing.T) {
	c := NewWithOptions(Options{OpaqueMaps: true})
	m := map[string]any{"k": 1}
	if err := c.Push(m); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	assert.Equal(t, c.Keys(), []string{"0"})
}

func TestContainer_Options(t *testing.T) {
	c := New()
	if err := c.SetOptions(Options{OpaqueSets: true}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	assert.Equal(t, c.Options().OpaqueSets, true)

	c.Freeze()
	if err := c.SetOptions(Options{}); !errors.Is(err, ErrFrozen) {
		t.Errorf("expected ErrFrozen, got %v", err)
	}
}
