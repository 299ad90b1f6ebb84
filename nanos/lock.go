package nanos

import "fmt"

// Lock makes the values of the given keys immutable. Locking any index
// key also disables Pop, Shift, Unshift and Reverse.
func (c *Container) Lock(keys ...any) error {
	var ks []string
	for _, key := range keys {
		k, ok, err := keyString(key, c.seq.next)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %v is before index 0", ErrInvalidKey, key)
		}
		ks = append(ks, k)
	}
	if c.frozen || len(ks) == 0 {
		return nil
	}
	c.rio.Batch(func() {
		for _, k := range ks {
			c.locked[k] = true
			if IsIndexKey(k) {
				c.lockedIndices = true
			}
		}
		c.rio.Changed()
	})
	return nil
}

// LockAll locks every current value. With andNew, keys added later are
// locked as they are created.
func (c *Container) LockAll(andNew bool) {
	if c.frozen {
		return
	}
	c.rio.Batch(func() {
		for _, k := range c.seq.keys {
			c.locked[k] = true
			if IsIndexKey(k) {
				c.lockedIndices = true
			}
		}
		if andNew {
			c.lockNew = true
		}
		c.rio.Changed()
	})
}

// LockKeys freezes the key set: no key may be added or removed. Values of
// unlocked keys can still change.
func (c *Container) LockKeys() {
	if c.lockedKeySet {
		return
	}
	c.lockedKeySet = true
	c.rio.Changed()
}

// Freeze locks the key set and every value, and makes the container's
// options, adapter, next and redaction immutable. It cannot be undone.
func (c *Container) Freeze() {
	if c.frozen {
		return
	}
	c.rio.Batch(func() {
		c.LockKeys()
		c.LockAll(true)
		c.frozen = true
	})
}

// DeepFreeze freezes the container and every nested container.
func (c *Container) DeepFreeze() {
	c.Freeze()
	for _, k := range c.seq.keys {
		if child, ok := c.final(c.storage[k]).(*Container); ok {
			child.DeepFreeze()
		}
	}
}

// IsLocked reports whether the value of key is locked.
func (c *Container) IsLocked(key any) bool {
	c.rio.Depend()
	k, ok, err := keyString(key, c.seq.next)
	if err != nil || !ok {
		return false
	}
	return c.locked[k]
}

// KeysLocked reports whether the key set is locked.
func (c *Container) KeysLocked() bool {
	c.rio.Depend()
	return c.lockedKeySet
}

// IsFrozen reports whether Freeze has been called.
func (c *Container) IsFrozen() bool {
	c.rio.Depend()
	return c.frozen
}

// Redact marks entries to be left out of serialized output. true redacts
// everything, any index key redacts all index values, and names redact
// those named keys. Programmatic access is unaffected.
func (c *Container) Redact(keys ...any) error {
	if c.frozen {
		return frozenErr("redact")
	}
	var (
		all, indices bool
		names        []string
	)
	for _, key := range keys {
		if b, ok := key.(bool); ok {
			all = all || b
			continue
		}
		k, ok, err := keyString(key, c.seq.next)
		if err != nil {
			return err
		}
		if !ok || IsIndexKey(k) {
			indices = true
			continue
		}
		names = append(names, k)
	}
	c.rio.Batch(func() {
		c.redactAll = c.redactAll || all
		c.redactIndices = c.redactIndices || indices
		for _, k := range names {
			if c.redacted == nil {
				c.redacted = make(map[string]bool)
			}
			c.redacted[k] = true
		}
		c.rio.Changed()
	})
	return nil
}

// IsRedacted reports whether the entry for key is redacted.
func (c *Container) IsRedacted(key any) bool {
	c.rio.Depend()
	k, ok, err := keyString(key, c.seq.next)
	if err != nil || !ok {
		return false
	}
	return c.isRedacted(k)
}

func (c *Container) isRedacted(k string) bool {
	if c.redactAll {
		return true
	}
	if IsIndexKey(k) {
		return c.redactIndices
	}
	return c.redacted[k]
}

// Redacted reports whether the whole container is redacted.
func (c *Container) Redacted() bool {
	c.rio.Depend()
	return c.redactAll
}
