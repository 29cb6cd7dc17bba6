// Package manifest declares resources in YAML instead of Go code. Each
// operation may carry a static response, which makes a manifest enough to
// run a mock service:
//
//	resources:
//	  - name: widgets
//	    path: /widgets/{id}
//	    operations:
//	      - method: GET
//	        produces: application/json
//	        response:
//	          body: '{"id": "{id}"}'
package manifest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode"

	"github.com/danielgtaylor/casing"
	"github.com/danielgtaylor/conneg"
	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"
)

// Response is a static response for an operation. Path variables written as
// `{name}` in the body are replaced with their values.
type Response struct {
	Status  int               `mapstructure:"status"`
	Headers map[string]string `mapstructure:"headers"`
	Body    string            `mapstructure:"body"`
}

// Operation declares a resource method, or a sub-resource locator when
// Locator names an entry of `Manifest.Subresources`.
type Operation struct {
	Name     string    `mapstructure:"name"`
	Method   string    `mapstructure:"method"`
	Path     string    `mapstructure:"path"`
	Consumes []string  `mapstructure:"consumes"`
	Produces []string  `mapstructure:"produces"`
	Locator  string    `mapstructure:"locator"`
	Response *Response `mapstructure:"response"`
}

// Resource declares a root resource or a sub-resource.
type Resource struct {
	Name       string      `mapstructure:"name"`
	Path       string      `mapstructure:"path"`
	Operations []Operation `mapstructure:"operations"`
}

// Manifest is the document root.
type Manifest struct {
	Resources    []Resource `mapstructure:"resources"`
	Subresources []Resource `mapstructure:"subresources"`
}

// Parse decodes a YAML manifest. Unknown keys and a manifest without root
// resources are errors. Single values are
// accepted where lists are expected, so `produces: application/json` works.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	m := &Manifest{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           m,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if len(m.Resources) == 0 {
		return nil, errors.New("manifest: no resources")
	}
	return m, nil
}

// Load reads and parses a manifest file.
func Load(filename string) (*Manifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Registry builds the resources and validates them.
func (m *Manifest) Registry() (*conneg.Registry, error) {
	subs := map[string]*conneg.Resource{}
	for _, s := range m.Subresources {
		if _, ok := subs[s.Name]; ok {
			return nil, fmt.Errorf("manifest: duplicate subresource %s", s.Name)
		}
		subs[s.Name] = &conneg.Resource{Name: s.Name}
	}
	for _, s := range m.Subresources {
		ops, err := operations(s, subs)
		if err != nil {
			return nil, err
		}
		subs[s.Name].Operations = ops
	}

	roots := make([]*conneg.Resource, 0, len(m.Resources))
	for _, r := range m.Resources {
		ops, err := operations(r, subs)
		if err != nil {
			return nil, err
		}
		roots = append(roots, &conneg.Resource{Name: r.Name, Path: r.Path, Operations: ops})
	}
	return conneg.NewRegistry(roots...)
}

func operations(r Resource, subs map[string]*conneg.Resource) ([]*conneg.Operation, error) {
	ops := make([]*conneg.Operation, 0, len(r.Operations))
	names := map[string]bool{}
	for i, o := range r.Operations {
		op := &conneg.Operation{
			Name:     o.Name,
			Method:   o.Method,
			Path:     o.Path,
			Consumes: o.Consumes,
			Produces: o.Produces,
		}

		if o.Locator != "" {
			if o.Method != "" || o.Response != nil {
				return nil, fmt.Errorf("manifest: resource %s: locator %s cannot have a method or response", r.Name, o.Locator)
			}
			if op.SubResource = subs[o.Locator]; op.SubResource == nil {
				return nil, fmt.Errorf("manifest: resource %s: unknown subresource %s", r.Name, o.Locator)
			}
		} else if o.Method == "" {
			return nil, fmt.Errorf("manifest: resource %s: operation %d needs a method or a locator", r.Name, i)
		}

		if op.Name == "" {
			op.Name = DefaultName(o.Method, o.Path)
			if names[op.Name] {
				op.Name = fmt.Sprintf("%s%d", op.Name, i)
			}
		}
		names[op.Name] = true

		if o.Response != nil {
			op.Handler = o.Response
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// DefaultName derives an operation name from its method and path, e.g.
// `getWidgetsId` for `GET /widgets/{id}`. Locators have no method and are
// named after their path.
func DefaultName(method, path string) string {
	if method == "" {
		method = "locator"
	}
	words := strings.FieldsFunc(method+" "+path, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return casing.LowerCamel(strings.Join(words, " "))
}

func (r *Response) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	for k, v := range r.Headers {
		w.Header().Set(k, v)
	}

	body := r.Body
	if ex := conneg.ExchangeFrom(req.Context()); ex != nil {
		for name, values := range ex.Vars {
			if len(values) > 0 {
				body = strings.ReplaceAll(body, "{"+name+"}", values[0])
			}
		}
	}

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	io.WriteString(w, body)
}
