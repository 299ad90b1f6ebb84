package nanos

import (
	"reflect"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// inputKind classifies a value handed to Push, Unshift, Set (with
// Transform) or FromValue.
type inputKind uint8

const (
	scalarInput inputKind = iota
	indexedInput
	keyedInput
	containerInput
)

// entry is one normalized key/value of a container-like input. index is -1
// for named entries.
type entry struct {
	key   string
	index int
	value any
}

// input is the normalized form of a value. size is the number of index
// slots the input spans, holes included.
type input struct {
	kind    inputKind
	entries []entry
	size    int
	value   any
}

// classify normalizes v once so the merge code only deals with entries.
func classify(v any, opts Options) input {
	switch x := v.(type) {
	case *Container:
		if x == nil {
			return input{kind: scalarInput, value: nil, size: 1}
		}
		in := input{kind: containerInput, size: x.seq.next}
		for _, k := range x.seq.keys {
			in.entries = append(in.entries, newEntry(k, x.final(x.storage[k])))
		}
		return in
	case Set:
		if opts.OpaqueSets {
			break
		}
		return indexed([]any(x))
	case []any:
		return indexed(x)
	case []byte:
		break
	case Pairs:
		return keyedPairs(x)
	case map[string]any:
		if opts.OpaqueMaps {
			break
		}
		names := make([]string, 0, len(x))
		for k := range x {
			names = append(names, k)
		}
		slices.Sort(names)
		in := input{kind: keyedInput}
		for _, k := range names {
			in.add(newEntry(k, x[k]))
		}
		return in
	case *orderedmap.OrderedMap[string, any]:
		if opts.OpaqueMaps || x == nil {
			break
		}
		in := input{kind: keyedInput}
		for p := x.Oldest(); p != nil; p = p.Next() {
			in.add(newEntry(p.Key, p.Value))
		}
		return in
	default:
		if in, ok := classifyReflect(v, opts); ok {
			return in
		}
	}
	return input{kind: scalarInput, value: v, size: 1}
}

// classifyReflect handles typed slices and string-keyed maps.
func classifyReflect(v any, opts Options) (input, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return input{}, false
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return indexed(items), true
	case reflect.Map:
		if opts.OpaqueMaps || rv.Type().Key().Kind() != reflect.String {
			return input{}, false
		}
		names := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			names = append(names, k.String())
		}
		slices.Sort(names)
		in := input{kind: keyedInput}
		for _, k := range names {
			in.add(newEntry(k, rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()))
		}
		return in, true
	}
	return input{}, false
}

func indexed(items []any) input {
	in := input{kind: indexedInput, size: len(items)}
	for i, item := range items {
		if IsEmpty(item) {
			continue
		}
		in.entries = append(in.entries, entry{index: i, value: item})
	}
	return in
}

func keyedPairs(pairs Pairs) input {
	in := input{kind: keyedInput}
	for _, p := range pairs {
		k, ok, err := keyString(p.Key, 0)
		if err != nil || !ok {
			continue
		}
		in.add(newEntry(k, p.Value))
	}
	return in
}

func newEntry(k string, v any) entry {
	if n, ok := indexValue(k); ok {
		return entry{key: k, index: n, value: v}
	}
	return entry{key: k, index: -1, value: v}
}

func (in *input) add(e entry) {
	if e.index >= in.size {
		in.size = e.index + 1
	}
	in.entries = append(in.entries, e)
}

// namedKeys returns the named keys the input would introduce.
func (in *input) namedKeys() []string {
	var out []string
	for _, e := range in.entries {
		if e.index < 0 {
			out = append(out, e.key)
		}
	}
	return out
}

// isContainerLike reports whether v would be merged rather than stored.
func isContainerLike(v any, opts Options) bool {
	k := classify(v, opts).kind
	return k == indexedInput || k == keyedInput
}

// FromValue builds a container from a Go value. Slices, sets and maps are
// converted recursively; any other value becomes the single item at index 0.
func FromValue(v any) *Container {
	if c, ok := v.(*Container); ok && c != nil {
		return c
	}
	c := NewWithOptions(Options{Transform: true})
	c.pushItem(classify(v, c.opts))
	return c
}
