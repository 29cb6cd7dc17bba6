package conneg

import (
	"fmt"
)

// Registry holds the resources of an application. It is built once at
// startup and is read-only afterwards, so any number of requests may be
// dispatched against it concurrently.
type Registry struct {
	roots []*Resource
	all   []*Resource
	names map[string]*Resource
}

// NewRegistry validates and compiles the given root resources along with
// every sub-resource reachable through their locators. A resource must only
// be added to a single registry.
func NewRegistry(roots ...*Resource) (*Registry, error) {
	reg := &Registry{names: map[string]*Resource{}}
	rootSet := map[*Resource]bool{}
	for _, r := range roots {
		if r == nil {
			return nil, fmt.Errorf("nil resource")
		}
		rootSet[r] = true
	}

	visited := map[*Resource]bool{}
	var visit func(r, parent *Resource) error
	visit = func(r, parent *Resource) error {
		if visited[r] {
			return nil
		}
		visited[r] = true

		if existing, ok := reg.names[r.Name]; ok && existing != r {
			return fmt.Errorf("duplicate resource name %s", r.Name)
		}
		if err := r.compile(len(reg.all)); err != nil {
			return err
		}
		if !rootSet[r] {
			r.parent = parent
		} else {
			r.parent = nil
		}
		reg.names[r.Name] = r
		reg.all = append(reg.all, r)

		for _, op := range r.Operations {
			if op.SubResource != nil {
				if err := visit(op.SubResource, r); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, r := range roots {
		if visited[r] {
			continue
		}
		if err := visit(r, nil); err != nil {
			return nil, err
		}
	}
	for _, r := range reg.all {
		if rootSet[r] {
			reg.roots = append(reg.roots, r)
		}
	}
	return reg, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(roots ...*Resource) *Registry {
	reg, err := NewRegistry(roots...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Roots returns the root resources in registration order.
func (r *Registry) Roots() []*Resource {
	return r.roots
}

// Resources returns every root and sub-resource.
func (r *Registry) Resources() []*Resource {
	return r.all
}

// Resource returns the named resource or nil.
func (r *Registry) Resource(name string) *Resource {
	return r.names[name]
}
