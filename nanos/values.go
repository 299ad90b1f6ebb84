package nanos

// Undef is the type of Undefined.
type Undef struct{}

// String implements fmt.Stringer.
func (Undef) String() string { return "undefined" }

// Undefined is returned for misses and is written as @u.
var Undefined = Undef{}

// EmptySlot is the type of Empty.
type EmptySlot struct{}

// String implements fmt.Stringer.
func (EmptySlot) String() string { return "empty" }

// Empty marks a hole. Inside a slice passed to Push or Unshift it consumes
// one index without storing anything; it is written as @e.
var Empty = EmptySlot{}

// Set is an ordered collection of distinct elements. Unless the container
// has OpaqueSets, a Set is merged like a slice.
type Set []any

// Pair is a single key/value entry of a Pairs input.
type Pair struct {
	Key   any
	Value any
}

// Pairs is an ordered, map-like input. Keys may be strings or integers.
type Pairs []Pair

// Path is a key path for Get and At.
type Path []any

// IsUndefined reports whether v is Undefined.
func IsUndefined(v any) bool {
	_, ok := v.(Undef)
	return ok
}

// IsEmpty reports whether v is the hole marker.
func IsEmpty(v any) bool {
	_, ok := v.(EmptySlot)
	return ok
}
