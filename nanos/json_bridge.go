package nanos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ============================================================
// Snapshot JSON
// ============================================================
//
// A container marshals to {"type":"@NANOS@","next":N,"pairs":[k1,v1,...]}.
// Index keys are JSON integers and named keys are strings. Undefined has no
// JSON form and is written as null.

// SnapshotType is the type tag of the snapshot shape.
const SnapshotType = "@NANOS@"

// Snapshot is the canonical JSON shape of a container.
type Snapshot struct {
	Type  string `json:"type" jsonschema:"enum=@NANOS@"`
	Next  int    `json:"next" jsonschema:"minimum=0,description=One more than the highest index"`
	Pairs []any  `json:"pairs" jsonschema:"description=Alternating keys and values in container order"`
}

// ToJSON returns the snapshot of c.
func (c *Container) ToJSON() Snapshot {
	c.rio.Depend()
	pairs := make([]any, 0, 2*len(c.seq.keys))
	for _, k := range c.seq.keys {
		if n, ok := indexValue(k); ok {
			pairs = append(pairs, n)
		} else {
			pairs = append(pairs, k)
		}
		pairs = append(pairs, jsonValue(c.final(c.storage[k])))
	}
	return Snapshot{Type: SnapshotType, Next: c.seq.next, Pairs: pairs}
}

func jsonValue(v any) any {
	switch v.(type) {
	case Undef, EmptySlot:
		return nil
	}
	return v
}

// MarshalJSON implements json.Marshaler.
func (c *Container) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToJSON())
}

// UnmarshalJSON implements json.Unmarshaler. It replaces the contents of c.
func (c *Container) UnmarshalJSON(data []byte) error {
	if c.storage == nil {
		*c = *New()
	}
	var raw struct {
		Type  string            `json:"type"`
		Next  int               `json:"next"`
		Pairs []json.RawMessage `json:"pairs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != SnapshotType {
		return fmt.Errorf("%w: type %q, want %s", ErrMalformed, raw.Type, SnapshotType)
	}
	pairs := make([]any, len(raw.Pairs))
	for i, r := range raw.Pairs {
		v, err := c.decodeJSON(r)
		if err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
		pairs[i] = v
	}
	return c.FromPairs(raw.Next, pairs)
}

// decodeJSON decodes one pairs element. Nested snapshots become nested
// containers; numbers become int64, *big.Int or float64.
func (c *Container) decodeJSON(r json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(r)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(trimmed, &probe); err == nil && probe.Type == SnapshotType {
			child := c.newChild()
			if err := child.UnmarshalJSON(trimmed); err != nil {
				return nil, err
			}
			return child, nil
		}
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeJSON(v), nil
}

// normalizeJSON replaces json.Number values throughout v.
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if n, err := x.Int64(); err == nil {
			return n
		}
		if !strings.ContainsAny(s, ".eE") {
			if n, ok := new(big.Int).SetString(s, 10); ok {
				return n
			}
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalizeJSON(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeJSON(x[k])
		}
		return x
	}
	return v
}

// FromPairs replaces the contents of c with a flat key/value sequence and
// raises Next to at least next. Keys are strings or integers.
func (c *Container) FromPairs(next int, pairs []any) error {
	if len(pairs)%2 != 0 {
		return fmt.Errorf("%w: odd number of pair elements (%d)", ErrMalformed, len(pairs))
	}
	keys := make([]string, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok, err := keyString(pairs[i], 0)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: negative key %v", ErrInvalidKey, pairs[i])
		}
		keys = append(keys, k)
	}
	if err := c.checkClear("load"); err != nil {
		return err
	}
	c.rio.Batch(func() {
		c.reset()
		for i, k := range keys {
			c.set(k, pairs[2*i+1], false)
		}
		if next > c.seq.next {
			c.seq.next = next
		}
		c.rio.Changed()
	})
	return nil
}

// ============================================================
// Plain trees
// ============================================================

// ArrayMode selects how ToObject renders a level.
type ArrayMode uint8

const (
	// ArrayAuto renders a level as a slice when it has no named keys.
	ArrayAuto ArrayMode = iota
	// ArrayAlways renders every level as a slice, dropping named keys.
	ArrayAlways
	// ArrayNever renders every level as an ordered map.
	ArrayNever
)

// ObjectOptions configures ToObject.
type ObjectOptions struct {
	Array ArrayMode
}

// ToObject materializes c as a plain tree. Object levels are ordered maps
// keyed by the container keys; array levels are []any of length Next with
// nil for holes.
func (c *Container) ToObject(opts ObjectOptions) any {
	c.rio.Depend()
	asArray := opts.Array == ArrayAlways
	if opts.Array == ArrayAuto {
		asArray = !slices.ContainsFunc(c.seq.keys, func(k string) bool { return !IsIndexKey(k) })
	}
	if asArray {
		out := make([]any, c.seq.next)
		for _, k := range c.seq.keys {
			if n, ok := indexValue(k); ok {
				out[n] = objectValue(c.final(c.storage[k]), opts)
			}
		}
		return out
	}
	om := orderedmap.New[string, any]()
	for _, k := range c.seq.keys {
		om.Set(k, objectValue(c.final(c.storage[k]), opts))
	}
	return om
}

func objectValue(v any, opts ObjectOptions) any {
	switch x := v.(type) {
	case *Container:
		return x.ToObject(opts)
	case Undef, EmptySlot:
		return nil
	}
	return v
}

// SnapshotSchema returns the JSON Schema of the snapshot shape.
func SnapshotSchema() ([]byte, error) {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.Reflect(&Snapshot{})
	return json.MarshalIndent(schema, "", "  ")
}
