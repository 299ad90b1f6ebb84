package nanos

import (
	"iter"
	"slices"
)

// Callbacks receive the value, its key and the container. They may mutate
// the container: every traversal walks a snapshot of the key sequence and
// skips keys deleted along the way.

// snapshot returns a copy of the key sequence for iteration.
func (c *Container) snapshot() []string {
	c.rio.Depend()
	return slices.Clone(c.seq.keys)
}

// All returns an iterator over key/value pairs in key order.
func (c *Container) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range c.snapshot() {
			v, ok := c.storage[k]
			if !ok {
				continue
			}
			if !yield(k, c.final(v)) {
				return
			}
		}
	}
}

// ForEach calls fn for every entry.
func (c *Container) ForEach(fn func(v any, k string, c *Container)) {
	for k, v := range c.All() {
		fn(v, k, c)
	}
}

// Filter returns a new container holding the entries for which fn returns
// true, under their original keys.
func (c *Container) Filter(fn func(v any, k string, c *Container) bool) *Container {
	out := c.newChild()
	for _, k := range c.snapshot() {
		raw, ok := c.storage[k]
		if !ok {
			continue
		}
		if v := c.final(raw); fn(v, k, c) {
			out.storage[k] = v
			out.seq.add(k, false)
		}
	}
	return out
}

// find walks the snapshot forward or backward and returns the first match.
func (c *Container) find(fn func(v any, k string, c *Container) bool, last bool) (string, any, bool) {
	keys := c.snapshot()
	if last {
		slices.Reverse(keys)
	}
	for _, k := range keys {
		raw, ok := c.storage[k]
		if !ok {
			continue
		}
		if v := c.final(raw); fn(v, k, c) {
			return k, v, true
		}
	}
	return "", Undefined, false
}

// Find returns the first value satisfying fn, or Undefined.
func (c *Container) Find(fn func(v any, k string, c *Container) bool) (any, bool) {
	_, v, ok := c.find(fn, false)
	return v, ok
}

// FindKey returns the first key whose entry satisfies fn.
func (c *Container) FindKey(fn func(v any, k string, c *Container) bool) (string, bool) {
	k, _, ok := c.find(fn, false)
	return k, ok
}

// FindLast returns the last value satisfying fn, or Undefined.
func (c *Container) FindLast(fn func(v any, k string, c *Container) bool) (any, bool) {
	_, v, ok := c.find(fn, true)
	return v, ok
}

// FindLastKey returns the last key whose entry satisfies fn.
func (c *Container) FindLastKey(fn func(v any, k string, c *Container) bool) (string, bool) {
	k, _, ok := c.find(fn, true)
	return k, ok
}
