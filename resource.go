package conneg

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/conneg/negotiation"
	"github.com/danielgtaylor/conneg/uritemplate"
)

// DefaultMethod is the method sentinel for operations that accept any HTTP
// method.
const DefaultMethod = "DefaultMethod"

// Operation describes a single resource method or sub-resource locator.
// Fields are set at declaration time; once the operation is part of a
// `Registry` it must not be modified.
type Operation struct {
	// Name identifies the operation within its resource, e.g. `getWidget`.
	Name string

	// Method is the HTTP method this operation handles. It is empty for
	// sub-resource locators and `DefaultMethod` to handle every method.
	Method string

	// Path is the operation template relative to the resource path. An empty
	// path is the resource itself.
	Path string

	// Consumes and Produces list the accepted request and response media
	// types in order of preference. Empty means `*/*`.
	Consumes []string
	Produces []string

	// SubResource is the resource a sub-resource locator hands off to. It must
	// be set exactly when Method is empty.
	SubResource *Resource

	// Handler serves requests dispatched to a resource method.
	Handler http.Handler

	resource *Resource
	template *uritemplate.Template
	consumes []negotiation.MediaType
	produces []negotiation.MediaType
	index    int
}

// IsLocator reports whether the operation is a sub-resource locator rather
// than a terminal resource method.
func (o *Operation) IsLocator() bool {
	return o.Method == ""
}

// Resource returns the resource declaring the operation.
func (o *Operation) Resource() *Resource {
	return o.resource
}

// Template returns the compiled operation path template.
func (o *Operation) Template() *uritemplate.Template {
	return o.template
}

// ConsumeTypes returns the parsed consumes list, never empty.
func (o *Operation) ConsumeTypes() []negotiation.MediaType {
	return o.consumes
}

// ProduceTypes returns the parsed produces list, never empty.
func (o *Operation) ProduceTypes() []negotiation.MediaType {
	return o.produces
}

func (o *Operation) String() string {
	method := o.Method
	if method == "" {
		method = "LOCATOR"
	}
	owner := ""
	if o.resource != nil {
		owner = o.resource.Name + "."
	}
	return fmt.Sprintf("%s%s (%s %s)", owner, o.Name, method, o.template)
}

// Resource is a set of operations under a common path template. Root
// resources are matched against the request path directly; sub-resources
// are only reached through a locator.
type Resource struct {
	// Name identifies the resource, e.g. `widgets`.
	Name string

	// Path is the resource template. It is ignored for sub-resources, which
	// are matched from the locator's remaining path.
	Path string

	Operations []*Operation

	template *uritemplate.Template
	parent   *Resource
	index    int
}

// Template returns the compiled resource template.
func (r *Resource) Template() *uritemplate.Template {
	return r.template
}

// Parent returns the resource whose locator leads here, or nil for roots.
func (r *Resource) Parent() *Resource {
	return r.parent
}

// IsRoot reports whether the resource is matched against request paths
// directly.
func (r *Resource) IsRoot() bool {
	return r.parent == nil
}

// AllowedMethods returns the distinct declared methods of the resource's
// terminal operations in declaration order.
func (r *Resource) AllowedMethods() []string {
	var out []string
	seen := map[string]bool{}
	for _, op := range r.Operations {
		if op.IsLocator() || op.Method == DefaultMethod || seen[op.Method] {
			continue
		}
		seen[op.Method] = true
		out = append(out, op.Method)
	}
	return out
}

// compile validates the declaration and builds the templates and media type
// lists.
func (r *Resource) compile(index int) error {
	r.index = index

	if r.Name == "" {
		return fmt.Errorf("resource at %q: missing name", r.Path)
	}

	var err error
	if r.template, err = uritemplate.New(r.Path); err != nil {
		return fmt.Errorf("resource %s: %w", r.Name, err)
	}

	names := map[string]bool{}
	for i, op := range r.Operations {
		if op == nil {
			return fmt.Errorf("resource %s: operation %d is nil", r.Name, i)
		}
		if op.Name == "" {
			prefix := strings.ToLower(op.Method)
			if prefix == "" {
				prefix = "locator"
			}
			op.Name = fmt.Sprintf("%s-%d", prefix, i)
		}
		if names[op.Name] {
			return fmt.Errorf("resource %s: duplicate operation %s", r.Name, op.Name)
		}
		names[op.Name] = true

		op.resource = r
		op.index = i
		op.Method = strings.ToUpper(op.Method)
		if op.Method == strings.ToUpper(DefaultMethod) {
			op.Method = DefaultMethod
		}

		if op.IsLocator() != (op.SubResource != nil) {
			return fmt.Errorf("resource %s: operation %s: a sub-resource locator needs an empty method and a sub-resource", r.Name, op.Name)
		}

		if op.template, err = uritemplate.New(op.Path); err != nil {
			return fmt.Errorf("resource %s: operation %s: %w", r.Name, op.Name, err)
		}
		if op.consumes, err = mediaTypes(op.Consumes); err != nil {
			return fmt.Errorf("resource %s: operation %s: consumes: %w", r.Name, op.Name, err)
		}
		if op.produces, err = mediaTypes(op.Produces); err != nil {
			return fmt.Errorf("resource %s: operation %s: produces: %w", r.Name, op.Name, err)
		}
	}
	return nil
}

// mediaTypes parses declared media types, each entry may itself be a comma
// separated list. Nothing declared means `*/*`.
func mediaTypes(declared []string) ([]negotiation.MediaType, error) {
	var out []negotiation.MediaType
	for _, d := range declared {
		if strings.TrimSpace(d) == "" {
			continue
		}
		list, err := negotiation.ParseList(d)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	if len(out) == 0 {
		out = []negotiation.MediaType{negotiation.All}
	}
	return out, nil
}
