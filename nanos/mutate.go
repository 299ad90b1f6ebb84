package nanos

// checkMerge validates a Push or Unshift before anything is changed.
func (c *Container) checkMerge(op string, ins []input) error {
	if len(ins) == 0 {
		return nil
	}
	if c.frozen {
		return frozenErr(op)
	}
	if c.lockedKeySet {
		return lockedErr(op, "")
	}
	for _, in := range ins {
		for _, k := range in.namedKeys() {
			if c.locked[k] {
				return lockedErr(op, k)
			}
		}
	}
	return nil
}

// checkRenumber validates operations that remove or renumber indices.
func (c *Container) checkRenumber(op string) error {
	if c.frozen {
		return frozenErr(op)
	}
	if c.lockedKeySet {
		return lockedErr(op, "")
	}
	if c.lockedIndices {
		return lockedErr(op, "")
	}
	return nil
}

func (c *Container) classifyAll(items []any) []input {
	ins := make([]input, len(items))
	for i, item := range items {
		ins[i] = classify(item, c.opts)
	}
	return ins
}

// Push appends items. A scalar takes the next index. Slices and sets are
// merged with their indices offset from Next, holes preserved. Maps, Pairs
// and containers contribute their named keys directly and their index keys
// offset the same way.
func (c *Container) Push(items ...any) error {
	ins := c.classifyAll(items)
	if err := c.checkMerge("push", ins); err != nil {
		return err
	}
	c.rio.Batch(func() {
		for _, in := range ins {
			c.pushItem(in)
		}
	})
	return nil
}

func (c *Container) pushItem(in input) {
	offset := c.seq.next
	if in.kind == scalarInput {
		c.set(indexKey(offset), in.value, false)
		return
	}
	for _, e := range in.entries {
		if e.index >= 0 {
			c.set(indexKey(offset+e.index), e.value, false)
		} else {
			c.set(e.key, e.value, false)
		}
	}
	if end := offset + in.size; end > c.seq.next {
		c.seq.next = end
		c.rio.Changed()
	}
}

// Unshift prepends items. The first argument ends up frontmost; each item
// is prepended as a unit and existing indices move up to make room.
func (c *Container) Unshift(items ...any) error {
	ins := c.classifyAll(items)
	if err := c.checkMerge("unshift", ins); err != nil {
		return err
	}
	if len(ins) > 0 && c.lockedIndices {
		return lockedErr("unshift", "")
	}
	c.rio.Batch(func() {
		for i := len(ins) - 1; i >= 0; i-- {
			c.unshiftItem(ins[i])
		}
	})
	return nil
}

func (c *Container) unshiftItem(in input) {
	old := c.seq.next
	c.renumber(0, old, in.size)
	c.seq.next = old + in.size
	if in.kind == scalarInput {
		c.set("0", in.value, true)
		return
	}
	// Later entries go in first so each earlier one lands in front of them.
	for i := len(in.entries) - 1; i >= 0; i-- {
		e := in.entries[i]
		if e.index >= 0 {
			c.set(indexKey(e.index), e.value, true)
		} else {
			c.set(e.key, e.value, true)
		}
	}
}

// renumber shifts stored index values in [from, to) by by.
func (c *Container) renumber(from, to, by int) {
	if by == 0 || from >= to {
		return
	}
	c.seq.renumber(from, to, by, func(src, dst string) {
		c.storage[dst] = c.storage[src]
		delete(c.storage, src)
		if c.locked[src] {
			c.locked[dst] = true
			delete(c.locked, src)
		}
	})
	c.rio.Changed()
}

// Pop removes and returns the value of the highest index key. Next becomes
// that index. It returns Undefined when there are no index keys.
func (c *Container) Pop() (any, error) {
	if err := c.checkRenumber("pop"); err != nil {
		return nil, err
	}
	last := c.seq.lastIndex()
	if last < 0 {
		return Undefined, nil
	}
	k := indexKey(last)
	v := c.storage[k]
	c.rio.Batch(func() {
		c.remove(k)
		c.seq.next = last
	})
	return c.final(v), nil
}

// Shift removes and returns the value at index 0 (Undefined for a hole)
// and moves every other index down by one. It returns Undefined without
// changing anything when there are no index keys.
func (c *Container) Shift() (any, error) {
	if err := c.checkRenumber("shift"); err != nil {
		return nil, err
	}
	if !c.seq.hasIndex() {
		return Undefined, nil
	}
	v, ok := c.storage["0"]
	c.rio.Batch(func() {
		if ok {
			c.remove("0")
		}
		c.renumber(1, c.seq.next, -1)
	})
	if !ok {
		return Undefined, nil
	}
	return c.final(v), nil
}

// Reverse reverses the container in place. Index i becomes Next-1-i and
// named keys mirror their position.
func (c *Container) Reverse() error {
	if err := c.checkRenumber("reverse"); err != nil {
		return err
	}
	c.rio.Batch(func() {
		moved := make(map[string]any, len(c.storage))
		c.seq.reverse(func(src, dst string) {
			moved[dst] = c.storage[src]
		})
		for k, v := range c.storage {
			if !IsIndexKey(k) {
				moved[k] = v
			}
		}
		c.storage = moved
		c.rio.Changed()
	})
	return nil
}
