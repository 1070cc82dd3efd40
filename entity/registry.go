package entity

import (
	"fmt"
	"reflect"
	"sync"
)

// Binding pairs the descriptor of a record type with its binder.
type Binding struct {
	Descriptor *Descriptor
	Binder     Binder
}

// Registry caches one Binding per record type. Lookups are safe for
// concurrent use; a missing type is described exactly once, even when many
// goroutines ask for it at the same time.
type Registry struct {
	mu      sync.RWMutex
	entries map[reflect.Type]*entry
}

// entry is the binding slot of one type, filled once.
type entry struct {
	once sync.Once
	b    *Binding
	err  error
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[reflect.Type]*entry)}
}

// Default is the process-wide registry used by For and Register.
var Default = NewRegistry()

// Register records an explicit binding for t. It fails if t is already
// bound, so a binding never changes once observed.
func (r *Registry) Register(t reflect.Type, b *Binding) error {
	t = indirect(t)
	if b == nil || b.Descriptor == nil || b.Binder == nil {
		return fmt.Errorf("entity: register %s: incomplete binding", t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[t]; ok {
		return fmt.Errorf("entity: register %s: already registered", t)
	}
	e := &entry{b: b}
	e.once.Do(func() {})
	r.entries[t] = e
	return nil
}

// Lookup returns the binding of t, describing the struct type through
// reflection on first use when it was not registered explicitly. A type
// that fails to describe is not cached.
func (r *Registry) Lookup(t reflect.Type) (*Binding, error) {
	t = indirect(t)
	r.mu.RLock()
	e, ok := r.entries[t]
	r.mu.RUnlock()
	if !ok {
		r.mu.Lock()
		if e, ok = r.entries[t]; !ok {
			e = &entry{}
			r.entries[t] = e
		}
		r.mu.Unlock()
	}
	e.once.Do(func() {
		d, sb, err := Describe(t)
		if err != nil {
			e.err = err
			return
		}
		e.b = &Binding{Descriptor: d, Binder: sb}
	})
	if e.err != nil {
		r.mu.Lock()
		if r.entries[t] == e {
			delete(r.entries, t)
		}
		r.mu.Unlock()
		return nil, e.err
	}
	return e.b, nil
}

// Register records an explicit binding for T in the Default registry.
func Register[T any](d *Descriptor, b Binder) error {
	return Default.Register(reflect.TypeFor[T](), &Binding{Descriptor: d, Binder: b})
}

// MustRegister is like Register but panics on error.
// Generated binding code calls it from init functions.
func MustRegister[T any](d *Descriptor, b Binder) {
	if err := Register[T](d, b); err != nil {
		panic(err)
	}
}

// For returns the binding of T from the Default registry.
func For[T any]() (*Binding, error) {
	return Default.Lookup(reflect.TypeFor[T]())
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
