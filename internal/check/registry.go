package check

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrInvalidCheck is returned for malformed registration metadata.
var ErrInvalidCheck = errors.New("invalid check")

// Option configures a check at registration.
type Option func(*Check)

// Tags sets the check's tags. Accepts lists and comma-separated strings.
func Tags(tags ...string) Option {
	return func(c *Check) { c.Tags = ParseTags(tags...).Sorted() }
}

// OnTable marks the check as operating on the whole table.
func OnTable() Option {
	return func(c *Check) { c.OnTable = true }
}

// Defaults sets the default parameters.
func Defaults(p Params) Option {
	return func(c *Check) { c.Defaults = p.Merge(nil) }
}

// Registry holds checks in registration order.
type Registry struct {
	mu     sync.RWMutex
	checks []*Check
	byName map[string]*Check
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Check)}
}

// Register adds fn under name and returns fn unchanged so it stays callable
// on its own. Malformed metadata fails immediately with ErrInvalidCheck.
func (r *Registry) Register(fn Func, name string, opts ...Option) (Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: %q has no function", ErrInvalidCheck, name)
	}
	if !utf8.ValidString(name) || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name %q", ErrInvalidCheck, name)
	}
	c := &Check{Name: name, Defaults: Params{}, fn: fn}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.Tags) == 0 {
		return nil, fmt.Errorf("%w: %q has no tags", ErrInvalidCheck, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("%w: %q already registered", ErrInvalidCheck, name)
	}
	c.ID = len(r.checks)
	r.checks = append(r.checks, c)
	r.byName[name] = c
	return fn, nil
}

// MustRegister is Register that panics on error, for startup wiring.
func (r *Registry) MustRegister(fn Func, name string, opts ...Option) Func {
	f, err := r.Register(fn, name, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Lookup returns a check by name.
func (r *Registry) Lookup(name string) (*Check, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Len returns the number of registered checks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.checks)
}

// All returns every check in registration order.
func (r *Registry) All() []*Check {
	return r.Select(nil, nil)
}

// Select returns, in registration order, the checks whose tags intersect
// include (or include is empty) and do not intersect exclude (or exclude
// is empty). No match is an empty result, not an error.
func (r *Registry) Select(include, exclude TagSet) []*Check {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Check, 0, len(r.checks))
	for _, c := range r.checks {
		if len(include) > 0 && !include.Intersects(c.Tags) {
			continue
		}
		if len(exclude) > 0 && exclude.Intersects(c.Tags) {
			continue
		}
		out = append(out, c)
	}
	return out
}
