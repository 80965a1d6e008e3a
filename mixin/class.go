package mixin

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"
	"github.com/on-the-ground/mixin_ive_go/shared/helper"
)

var (
	// ErrAbstract is returned when instantiating an abstract class, or a class
	// that leaves an abstract method unimplemented.
	ErrAbstract = errors.New("cannot instantiate abstract class")

	// ErrNoMethod is returned when a method name does not resolve on an object's class.
	ErrNoMethod = errors.New("no such method")
)

// Method is a member function. self is the receiving object.
type Method func(self *Object, args ...any) (any, error)

// Class is a constructor identity: an opaque handle compared by pointer only.
// Two classes with the same name and members are still different classes.
//
// Classes are immutable once created and safe for concurrent use.
type Class struct {
	id       uuid.UUID
	name     string
	super    *Class
	abstract bool

	methods  map[string]Method
	virtuals []string
	fields   map[string]any
	init     func(*Object) error

	// origin is the mixin that produced this class, set once by the composer.
	origin atomic.Pointer[weak.Pointer[Mixin]]

	// tables holds this class's per-store cache tables (*Store -> *table).
	// Owning them here is what lets a table be collected together with its base.
	tables sync.Map
}

// ClassOption configures a class at creation time.
type ClassOption func(*Class)

// Abstract marks the class as non-instantiable on its own.
func Abstract() ClassOption {
	return func(c *Class) { c.abstract = true }
}

// WithMethod defines or overrides a method.
func WithMethod(name string, m Method) ClassOption {
	return func(c *Class) { c.methods[name] = m }
}

// WithAbstractMethod declares a method that some subclass has to implement
// before the class can be instantiated.
func WithAbstractMethod(name string) ClassOption {
	return func(c *Class) { c.virtuals = append(c.virtuals, name) }
}

// WithField declares a field and its default value.
func WithField(name string, value any) ClassOption {
	return func(c *Class) { c.fields[name] = value }
}

// WithInit sets the initializer run by New after the super class initializers.
func WithInit(fn func(*Object) error) ClassOption {
	return func(c *Class) { c.init = fn }
}

// NewClass creates a root class.
func NewClass(name string, opts ...ClassOption) *Class {
	return newClass(name, nil, opts)
}

// Extend creates a subclass of c.
// The subclass is concrete unless Abstract is passed, but it still cannot be
// instantiated while an inherited abstract method is unimplemented.
func (c *Class) Extend(name string, opts ...ClassOption) *Class {
	return newClass(name, c, opts)
}

func newClass(name string, super *Class, opts []ClassOption) *Class {
	c := &Class{
		id:      uuid.New(),
		name:    name,
		super:   super,
		methods: map[string]Method{},
		fields:  map[string]any{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Class) ID() uuid.UUID    { return c.id }
func (c *Class) Name() string     { return c.name }
func (c *Class) Super() *Class    { return c.super }
func (c *Class) IsAbstract() bool { return c.abstract || len(c.unimplemented()) > 0 }

func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.name
}

// Is reports whether c is ancestor or derives from it.
func (c *Class) Is(ancestor *Class) bool {
	for k := c; k != nil; k = k.super {
		if k == ancestor {
			return true
		}
	}
	return false
}

// Includes reports whether a class produced by m appears in c's lineage.
func (c *Class) Includes(m *Mixin) bool {
	if m == nil {
		return false
	}
	for k := c; k != nil; k = k.super {
		if wp := k.origin.Load(); wp != nil && wp.Value() == m {
			return true
		}
	}
	return false
}

// Lineage returns the class names from c up to its root.
func (c *Class) Lineage() []string {
	var names []string
	for k := c; k != nil; k = k.super {
		names = append(names, k.name)
	}
	return names
}

// Lookup resolves a method, nearest definition first.
// It returns the class that defines it.
func (c *Class) Lookup(name string) (Method, *Class, bool) {
	for k := c; k != nil; k = k.super {
		if m, ok := k.methods[name]; ok {
			return m, k, true
		}
	}
	return nil, nil, false
}

// Methods returns the sorted names of all methods that resolve on c.
func (c *Class) Methods() []string {
	seen := map[string]struct{}{}
	for k := c; k != nil; k = k.super {
		for name := range k.methods {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (c *Class) unimplemented() []string {
	var missing []string
	for k := c; k != nil; k = k.super {
		for _, name := range k.virtuals {
			if _, _, ok := c.Lookup(name); !ok && !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
		}
	}
	return missing
}

// markOrigin records m as the producer of c unless one is already recorded.
func (c *Class) markOrigin(m *Mixin) {
	wp := weak.Make(m)
	c.origin.CompareAndSwap(nil, &wp)
}

// lineage from root to c.
func (c *Class) rootFirst() []*Class {
	var chain []*Class
	for k := c; k != nil; k = k.super {
		chain = append(chain, k)
	}
	slices.Reverse(chain)
	return chain
}

// New instantiates c. Field defaults are copied from the root down, so a
// subclass default replaces its ancestors'. Initializers then run root first.
func (c *Class) New() (*Object, error) {
	if c.abstract {
		return nil, fmt.Errorf("%w: %s", ErrAbstract, c.name)
	}
	if missing := c.unimplemented(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s does not implement %v", ErrAbstract, c.name, missing)
	}

	obj := &Object{class: c, fields: map[string]any{}}
	chain := c.rootFirst()
	for _, k := range chain {
		for name, v := range k.fields {
			obj.fields[name] = v
		}
	}
	for _, k := range chain {
		if k.init == nil {
			continue
		}
		if err := k.init(obj); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// Object is an instance of a Class.
type Object struct {
	class *Class

	mu     sync.RWMutex
	fields map[string]any
}

func (o *Object) Class() *Class { return o.class }

// InstanceOf reports whether o's class is c or derives from it.
func (o *Object) InstanceOf(c *Class) bool { return o.class.Is(c) }

func (o *Object) Get(name string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.fields[name]
	return v, ok
}

func (o *Object) Set(name string, v any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fields[name] = v
}

// Call invokes the method that resolves nearest to o's class.
func (o *Object) Call(name string, args ...any) (any, error) {
	m, _, ok := o.class.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoMethod, o.class.name, name)
	}
	return m(o, args...)
}

// CallSuper invokes name as resolved from the super class of from, which is
// normally the class whose method is making the call.
func (o *Object) CallSuper(from *Class, name string, args ...any) (any, error) {
	if from == nil {
		return nil, fmt.Errorf("%w: super of nil class for %s", ErrNoMethod, name)
	}
	if from.super == nil {
		return nil, fmt.Errorf("%w: %s has no super for %s", ErrNoMethod, from.name, name)
	}
	m, _, ok := from.super.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: super(%s).%s", ErrNoMethod, from.name, name)
	}
	return m(o, args...)
}

// Field returns a field of o as T. ok is false when the field is absent or of another type.
func Field[T any](o *Object, name string) (T, bool) {
	return helper.GetTypedValueOf2[T](func() (any, bool) {
		return o.Get(name)
	})
}

// CallAs calls a method and asserts its result to T.
func CallAs[T any](o *Object, name string, args ...any) (T, error) {
	return helper.GetTypedValueOf[T](func() (any, error) {
		return o.Call(name, args...)
	})
}

// MustField is Field that panics when the field is absent or of another type.
func MustField[T any](o *Object, name string) T {
	return helper.MustGetTypedValue[T](func() (any, error) {
		v, ok := o.Get(name)
		if !ok {
			return nil, fmt.Errorf("no field %s on %s", name, o.class.name)
		}
		return v, nil
	})
}

// MustCallAs is CallAs that panics on a call error or a result of another type.
func MustCallAs[T any](o *Object, name string, args ...any) T {
	return helper.MustGetTypedValue[T](func() (any, error) {
		return o.Call(name, args...)
	})
}
