package conneg

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	shops := shopsResource()
	widgets := widgetsResource()
	reg, err := NewRegistry(shops, widgets)
	require.NoError(t, err)

	assert.Equal(t, []*Resource{shops, widgets}, reg.Roots())
	require.Len(t, reg.Resources(), 3)
	assert.Equal(t, "items", reg.Resources()[1].Name)

	items := reg.Resource("items")
	require.NotNil(t, items)
	assert.False(t, items.IsRoot())
	assert.Same(t, shops, items.Parent())
	assert.True(t, shops.IsRoot())
	assert.Nil(t, reg.Resource("missing"))
}

func TestRegistrySharedSubresource(t *testing.T) {
	shared := &Resource{Name: "shared", Operations: []*Operation{{Method: http.MethodGet}}}
	a := &Resource{Name: "a", Path: "/a", Operations: []*Operation{{Path: "/s", SubResource: shared}}}
	b := &Resource{Name: "b", Path: "/b", Operations: []*Operation{{Path: "/s", SubResource: shared}}}

	reg, err := NewRegistry(a, b)
	require.NoError(t, err)
	assert.Len(t, reg.Resources(), 3)

	d := NewDispatcher(reg, Config{})
	for _, path := range []string{"/a/s", "/b/s"} {
		sel, _, err := dispatch(d, http.MethodGet, path, "", "")
		require.NoError(t, err, path)
		assert.Same(t, shared, sel.Operation.Resource())
	}
}

func TestRegistryErrors(t *testing.T) {
	for _, item := range []struct {
		name  string
		roots []*Resource
	}{
		{"nil resource", []*Resource{nil}},
		{"missing name", []*Resource{{Path: "/x"}}},
		{"bad template", []*Resource{{Name: "x", Path: "/x/{id"}}},
		{"duplicate resource", []*Resource{{Name: "x", Path: "/a"}, {Name: "x", Path: "/b"}}},
		{"duplicate operation", []*Resource{{Name: "x", Operations: []*Operation{
			{Name: "get", Method: http.MethodGet},
			{Name: "get", Method: http.MethodPut},
		}}}},
		{"locator without target", []*Resource{{Name: "x", Operations: []*Operation{{Path: "/sub"}}}}},
		{"method with target", []*Resource{{Name: "x", Operations: []*Operation{
			{Method: http.MethodGet, SubResource: &Resource{Name: "y"}},
		}}}},
		{"nil operation", []*Resource{{Name: "x", Operations: []*Operation{nil}}}},
		{"bad consumes", []*Resource{{Name: "x", Operations: []*Operation{
			{Method: http.MethodPost, Consumes: []string{"json"}},
		}}}},
		{"bad produces", []*Resource{{Name: "x", Operations: []*Operation{
			{Method: http.MethodGet, Produces: []string{"text/plain;a=\"b"}},
		}}}},
		{"bad operation template", []*Resource{{Name: "x", Operations: []*Operation{
			{Method: http.MethodGet, Path: "/{}"},
		}}}},
	} {
		t.Run(item.name, func(t *testing.T) {
			_, err := NewRegistry(item.roots...)
			assert.Error(t, err)
		})
	}

	assert.Panics(t, func() {
		MustNewRegistry(&Resource{})
	})
}
