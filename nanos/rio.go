package nanos

// RIO is a reactive-interface object: the adapter that connects a container
// to an external dependency-tracking system.
//
// A container calls Depend on every read, Changed after every structural
// mutation, and wraps bulk mutations in Batch so observers see a single
// notification. Create returns the adapter for a nested container that the
// container builds itself.
type RIO interface {
	Batch(fn func())
	Changed()
	Create() RIO
	Depend()
}

// ExtendedRIO additionally wraps stored values. OnSet sees every value
// before it is stored and returns what to store; reads unwrap reactive
// values with Get unless the caller asks for the raw value.
type ExtendedRIO interface {
	RIO
	Get(v any) any
	IsReactive(v any) bool
	OnSet(c *Container, key string, v any) any
}

// nopRIO is used when no adapter is attached.
type nopRIO struct{}

func (nopRIO) Batch(fn func()) { fn() }
func (nopRIO) Changed()        {}
func (nopRIO) Create() RIO     { return nopRIO{} }
func (nopRIO) Depend()         {}

func isNop(r RIO) bool {
	_, ok := r.(nopRIO)
	return ok
}
