package nanos

import (
	"fmt"
	"slices"
)

// Options control how container-like values are ingested.
type Options struct {
	// OpaqueMaps stores maps as plain values instead of converting them.
	OpaqueMaps bool
	// OpaqueSets stores Set values as plain values instead of converting them.
	OpaqueSets bool
	// Transform converts slices, sets and maps stored with Set into nested
	// containers.
	Transform bool
	// AutoReactive gives nested containers created by this container an
	// adapter obtained from RIO.Create.
	AutoReactive bool
}

// Container is an ordered collection of index-keyed and named values.
//
// Index keys ("0", "1", ...) always appear in ascending numeric order in
// the key sequence; named keys may be interleaved anywhere. A Container is
// not safe for concurrent use.
type Container struct {
	seq     keySeq
	storage map[string]any

	lockedKeySet  bool
	lockedIndices bool
	locked        map[string]bool
	lockNew       bool
	frozen        bool

	redactAll     bool
	redactIndices bool
	redacted      map[string]bool

	opts Options
	rio  RIO
}

// New returns an empty container with default options.
func New() *Container {
	return NewWithOptions(Options{})
}

// NewWithOptions returns an empty container.
func NewWithOptions(opts Options) *Container {
	return &Container{
		storage: make(map[string]any),
		locked:  make(map[string]bool),
		opts:    opts,
		rio:     nopRIO{},
	}
}

// From returns a new container populated as if by Push(items...).
func From(items ...any) (*Container, error) {
	c := New()
	if err := c.Push(items...); err != nil {
		return nil, err
	}
	return c, nil
}

// newChild creates a nested container sharing this container's options.
func (c *Container) newChild() *Container {
	child := NewWithOptions(c.opts)
	if c.opts.AutoReactive && !isNop(c.rio) {
		child.rio = c.rio.Create()
	}
	return child
}

// ============================================================
// Accessors
// ============================================================

// Options returns the ingestion options.
func (c *Container) Options() Options {
	return c.opts
}

// SetOptions replaces the ingestion options.
func (c *Container) SetOptions(opts Options) error {
	if c.frozen {
		return frozenErr("options")
	}
	c.opts = opts
	return nil
}

// RIO returns the attached reactive adapter, or nil.
func (c *Container) RIO() RIO {
	if isNop(c.rio) {
		return nil
	}
	return c.rio
}

// SetRIO attaches a reactive adapter. nil detaches.
func (c *Container) SetRIO(r RIO) error {
	if c.frozen {
		return frozenErr("rio")
	}
	if r == nil {
		r = nopRIO{}
	}
	c.rio = r
	return nil
}

func (c *Container) extended() (ExtendedRIO, bool) {
	x, ok := c.rio.(ExtendedRIO)
	return x, ok
}

// Next returns one more than the highest assigned index.
func (c *Container) Next() int {
	c.rio.Depend()
	return c.seq.next
}

// SetNext moves the index high-water mark. Lowering it deletes every index
// entry at or above n.
func (c *Container) SetNext(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: next %d", ErrInvalidKey, n)
	}
	if n == c.seq.next {
		return nil
	}
	if c.frozen {
		return frozenErr("next")
	}
	if c.lockedKeySet {
		return lockedErr("next", "")
	}
	for _, k := range c.seq.keys {
		if v, ok := indexValue(k); ok && v >= n && c.locked[k] {
			return lockedErr("next", k)
		}
	}
	c.rio.Batch(func() {
		for _, k := range c.seq.truncate(n) {
			delete(c.storage, k)
			delete(c.locked, k)
		}
		c.rio.Changed()
	})
	return nil
}

// Len returns the number of stored entries.
func (c *Container) Len() int {
	c.rio.Depend()
	return len(c.seq.keys)
}

// Keys returns a copy of the key sequence.
func (c *Container) Keys() []string {
	c.rio.Depend()
	return slices.Clone(c.seq.keys)
}

// IndexKeys returns the index keys in order.
func (c *Container) IndexKeys() []string {
	c.rio.Depend()
	var out []string
	for _, k := range c.seq.keys {
		if IsIndexKey(k) {
			out = append(out, k)
		}
	}
	return out
}

// NamedKeys returns the named keys in order.
func (c *Container) NamedKeys() []string {
	c.rio.Depend()
	var out []string
	for _, k := range c.seq.keys {
		if !IsIndexKey(k) {
			out = append(out, k)
		}
	}
	return out
}

// Values returns the values in key order.
func (c *Container) Values() []any {
	c.rio.Depend()
	out := make([]any, 0, len(c.seq.keys))
	for _, k := range c.seq.keys {
		out = append(out, c.final(c.storage[k]))
	}
	return out
}

// Entries returns the key/value pairs in key order.
func (c *Container) Entries() Pairs {
	c.rio.Depend()
	out := make(Pairs, 0, len(c.seq.keys))
	for _, k := range c.seq.keys {
		out = append(out, Pair{Key: k, Value: c.final(c.storage[k])})
	}
	return out
}

// ============================================================
// Reads
// ============================================================

type getOptions struct {
	def any
	raw bool
}

// GetOption configures At.
type GetOption func(*getOptions)

// WithDefault sets the value At returns on a miss.
func WithDefault(v any) GetOption {
	return func(o *getOptions) { o.def = v }
}

// Raw makes At return the stored value without unwrapping reactive values.
func Raw() GetOption {
	return func(o *getOptions) { o.raw = true }
}

// final unwraps a reactive value through an extended adapter.
func (c *Container) final(v any) any {
	if x, ok := c.extended(); ok && x.IsReactive(v) {
		return x.Get(v)
	}
	return v
}

// asPath reports whether key is a key path.
func asPath(key any) ([]any, bool) {
	switch p := key.(type) {
	case Path:
		return p, true
	case []any:
		return p, true
	case []string:
		out := make([]any, len(p))
		for i, s := range p {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func (c *Container) lookup(key any, raw bool) (any, bool) {
	c.rio.Depend()
	k, ok, err := keyString(key, c.seq.next)
	if err != nil || !ok {
		return Undefined, false
	}
	v, ok := c.storage[k]
	if !ok {
		return Undefined, false
	}
	if raw {
		return v, true
	}
	return c.final(v), true
}

// Get returns the value for key and whether it was found. key may be a
// string, an integer (negative values count back from Next) or a path.
func (c *Container) Get(key any) (any, bool) {
	return c.get(key, false)
}

func (c *Container) get(key any, raw bool) (any, bool) {
	path, isPath := asPath(key)
	if !isPath {
		return c.lookup(key, raw)
	}
	if len(path) == 0 {
		return Undefined, false
	}
	cur := c
	for i, step := range path {
		v, ok := cur.lookup(step, raw && i == len(path)-1)
		if !ok {
			return Undefined, false
		}
		if i == len(path)-1 {
			return v, true
		}
		next, isContainer := v.(*Container)
		if !isContainer {
			return Undefined, false
		}
		cur = next
	}
	return Undefined, false
}

// At returns the value for key, or the default (Undefined unless
// WithDefault is given) on a miss.
func (c *Container) At(key any, opts ...GetOption) any {
	o := getOptions{def: Undefined}
	for _, opt := range opts {
		opt(&o)
	}
	if v, ok := c.get(key, o.raw); ok {
		return v
	}
	return o.def
}

// Has reports whether key is present.
func (c *Container) Has(key any) bool {
	_, ok := c.get(key, true)
	return ok
}

// ============================================================
// Writes
// ============================================================

type setOptions struct {
	insert bool
}

// SetOption configures Set.
type SetOption func(*setOptions)

// Insert places a new key at the earliest valid position instead of the
// latest.
func Insert() SetOption {
	return func(o *setOptions) { o.insert = true }
}

// checkSet returns the error a set of key k would produce.
func (c *Container) checkSet(op, k string) error {
	if c.frozen {
		return frozenErr(op)
	}
	if c.locked[k] {
		return lockedErr(op, k)
	}
	if _, exists := c.storage[k]; !exists && c.lockedKeySet {
		return lockedErr(op, "")
	}
	return nil
}

// Set stores value under key and returns the value actually stored. A nil
// key means Next.
func (c *Container) Set(key, value any, opts ...SetOption) (any, error) {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	if key == nil {
		key = c.seq.next
	}
	k, ok, err := keyString(key, c.seq.next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %v is before index 0", ErrInvalidKey, key)
	}
	if err := c.checkSet("set", k); err != nil {
		return nil, err
	}
	if _, exists := c.storage[k]; exists && IsEmpty(value) {
		return c.Delete(k)
	}
	var stored any
	c.rio.Batch(func() {
		stored = c.set(k, value, o.insert)
	})
	return stored, nil
}

// set stores without lock checks.
func (c *Container) set(k string, value any, insert bool) any {
	_, exists := c.storage[k]
	if IsEmpty(value) {
		if exists {
			c.remove(k)
		}
		if v, ok := indexValue(k); ok && v >= c.seq.next {
			c.seq.next = v + 1
			c.rio.Changed()
		}
		return Empty
	}
	value = c.ingest(value)
	x, isExtended := c.extended()
	if isExtended {
		value = x.OnSet(c, k, value)
	}
	c.storage[k] = value
	switch {
	case !exists:
		c.seq.add(k, insert)
		if c.lockNew {
			c.locked[k] = true
			if IsIndexKey(k) {
				c.lockedIndices = true
			}
		}
		c.rio.Changed()
	case !isExtended:
		c.rio.Changed()
	}
	return value
}

// ingest applies the Transform option to a value about to be stored.
func (c *Container) ingest(v any) any {
	if !c.opts.Transform {
		return v
	}
	in := classify(v, c.opts)
	if in.kind != indexedInput && in.kind != keyedInput {
		return v
	}
	child := c.newChild()
	child.pushItem(in)
	return child
}

// Delete removes key and returns its value, or Undefined if absent.
func (c *Container) Delete(key any) (any, error) {
	if c.frozen {
		return nil, frozenErr("delete")
	}
	if c.lockedKeySet {
		return nil, lockedErr("delete", "")
	}
	k, ok, err := keyString(key, c.seq.next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Undefined, nil
	}
	v, exists := c.storage[k]
	if !exists {
		return Undefined, nil
	}
	if c.locked[k] {
		return nil, lockedErr("delete", k)
	}
	c.rio.Batch(func() { c.remove(k) })
	return c.final(v), nil
}

// remove drops k without lock checks.
func (c *Container) remove(k string) {
	delete(c.storage, k)
	delete(c.locked, k)
	c.seq.remove(k)
	c.rio.Changed()
}

// Clear removes every entry and resets Next to 0.
func (c *Container) Clear() error {
	if err := c.checkClear("clear"); err != nil {
		return err
	}
	c.rio.Batch(func() {
		c.reset()
		c.rio.Changed()
	})
	return nil
}

func (c *Container) checkClear(op string) error {
	if c.frozen {
		return frozenErr(op)
	}
	if c.lockedKeySet {
		return lockedErr(op, "")
	}
	for _, k := range c.seq.keys {
		if c.locked[k] {
			return lockedErr(op, k)
		}
	}
	return nil
}

func (c *Container) reset() {
	c.seq = keySeq{}
	c.storage = make(map[string]any)
}

// Clone returns an unlocked shallow copy: nested containers are shared.
func (c *Container) Clone() *Container {
	c.rio.Depend()
	out := NewWithOptions(c.opts)
	out.seq = keySeq{keys: slices.Clone(c.seq.keys), next: c.seq.next}
	for k, v := range c.storage {
		out.storage[k] = c.final(v)
	}
	return out
}

// String returns the SLID text with redacted entries omitted.
func (c *Container) String() string {
	return EmitWithOptions(c, EmitOptions{Redact: RedactOmit})
}

// SLID returns the SLID text using opts.
func (c *Container) SLID(opts EmitOptions) string {
	return EmitWithOptions(c, opts)
}
