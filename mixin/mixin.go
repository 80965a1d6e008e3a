package mixin

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"
)

// Func extends base into a new class that can stand in wherever base is expected.
// Returning an error aborts the chain it is applied in.
type Func func(base *Class) (*Class, error)

// Mixin is a Func with a reference identity, which is what the cache is keyed by.
// Build one with Define or Trait and reuse the returned pointer.
type Mixin struct {
	id   uuid.UUID
	name string
	fn   Func
}

// collected counts mixins reclaimed by the garbage collector. Cache tables
// compare it against the value they last swept at.
var collected atomic.Uint64

// Define wraps fn into a new mixin. Every call returns a distinct identity,
// even for the same fn.
func Define(name string, fn Func) *Mixin {
	if fn == nil {
		panic("mixin.Define: nil func")
	}
	m := &Mixin{id: uuid.New(), name: name, fn: fn}
	runtime.AddCleanup(m, func(struct{}) { collected.Add(1) }, struct{}{})
	return m
}

// Trait defines a mixin that extends its base with a class named
// "name(base)" carrying opts.
func Trait(name string, opts ...ClassOption) *Mixin {
	return Define(name, func(base *Class) (*Class, error) {
		return base.Extend(fmt.Sprintf("%s(%s)", name, base.Name()), opts...), nil
	})
}

func (m *Mixin) ID() uuid.UUID { return m.id }
func (m *Mixin) Name() string  { return m.name }

func (m *Mixin) String() string {
	if m == nil {
		return "<nil>"
	}
	return m.name
}
