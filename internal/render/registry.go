package render

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// DefaultName is the reserved name of the default engine slot.
const DefaultName = "default"

// Registry maps engine names to engines. It is safe for concurrent use.
// The DefaultName slot always holds a non-nil engine.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates a registry whose default slot holds def.
// A nil def falls back to the passthrough engine.
func NewRegistry(def Engine) *Registry {
	if isNil(def) {
		def = NewPassthrough()
	}
	return &Registry{
		engines: map[string]Engine{DefaultName: def},
	}
}

// Default returns the engine bound to the default slot. Never nil.
func (r *Registry) Default() Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engines[DefaultName]
}

// Get returns the engine registered under name, or nil if there is none.
// A blank name is an error wrapping ErrInvalidArgument.
func (r *Registry) Get(name string) (Engine, error) {
	e, _, err := r.Lookup(name)
	return e, err
}

// Lookup is Get with an explicit found flag.
func (r *Registry) Lookup(name string) (Engine, bool, error) {
	if err := checkName("get", name); err != nil {
		return nil, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok, nil
}

// Set binds name to e, replacing any previous binding. A nil e, including a
// typed nil pointer, removes the binding; removing the default engine is
// rejected with ErrClearDefault.
func (r *Registry) Set(name string, e Engine) error {
	if err := checkName("set", name); err != nil {
		return err
	}
	absent := isNil(e)
	if absent && name == DefaultName {
		return fmt.Errorf("set %q: %w", name, ErrClearDefault)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if absent {
		delete(r.engines, name)
		return nil
	}
	r.engines[name] = e
	return nil
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bindings, the default slot included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

// isNil catches both a nil interface and an interface holding a nil pointer,
// map, slice, func or chan.
func isNil(e Engine) bool {
	if e == nil {
		return true
	}
	switch v := reflect.ValueOf(e); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func checkName(op, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s %q: %w", op, name, ErrBlankName)
	}
	return nil
}

var (
	processOnce     sync.Once
	processRegistry *Registry
)

// Process returns the process-wide registry, creating it and its default
// engine on first use.
func Process() *Registry {
	processOnce.Do(func() {
		processRegistry = NewRegistry(NewPassthrough())
	})
	return processRegistry
}

// Default returns the default engine of the process-wide registry.
func Default() Engine {
	return Process().Default()
}

// Get looks name up in the process-wide registry.
func Get(name string) (Engine, error) {
	return Process().Get(name)
}

// Set binds name to e in the process-wide registry.
func Set(name string, e Engine) error {
	return Process().Set(name, e)
}

// Names lists the engines in the process-wide registry.
func Names() []string {
	return Process().Names()
}
