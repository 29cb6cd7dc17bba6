package conntest

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/conneg"
	"github.com/stretchr/testify/assert"
)

func notesResource() *conneg.Resource {
	return &conneg.Resource{
		Name: "notes",
		Path: "/notes",
		Operations: []*conneg.Operation{
			{Name: "create", Method: http.MethodPost, Consumes: []string{"text/plain"}, Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				w.WriteHeader(http.StatusCreated)
				fmt.Fprintf(w, "created %s", body)
			})},
			{Name: "get", Method: http.MethodGet, Path: "/{id}", Produces: []string{"text/plain", "application/json"}, Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ex := conneg.ExchangeFrom(r.Context())
				fmt.Fprintf(w, "%s %s", ex.ContentType, conneg.PathValue(r, "id"))
			})},
			{Name: "replace", Method: http.MethodPut, Path: "/{id}"},
			{Name: "patch", Method: http.MethodPatch, Path: "/{id}"},
			{Name: "delete", Method: http.MethodDelete, Path: "/{id}"},
		},
	}
}

func TestRequests(t *testing.T) {
	_, api := New(t, conneg.Config{}, notesResource())
	assert.NotNil(t, api.Dispatcher().Registry().Resource("notes"))

	resp := api.Post("/notes", "Content-Type: text/plain", strings.NewReader("hello"))
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "created hello", resp.Body.String())

	resp = api.Get("/notes/1", "Accept: application/json")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json 1", resp.Body.String())

	assert.Equal(t, http.StatusNoContent, api.Put("/notes/1").Code)
	assert.Equal(t, http.StatusNoContent, api.Patch("/notes/1").Code)
	assert.Equal(t, http.StatusNoContent, api.Delete("/notes/1").Code)

	resp = api.Options("/notes/1")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "DELETE, GET, HEAD, OPTIONS, PATCH, PUT", resp.Header().Get("Allow"))

	resp = api.Do("PURGE", "/notes/1")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

func TestBadArgs(t *testing.T) {
	_, api := New(t, conneg.Config{}, notesResource())
	assert.Panics(t, func() {
		api.Get("/notes/1", 1234)
	})
}

type fatalRecorder struct {
	*testing.T
	msg string
}

func (f *fatalRecorder) Fatalf(format string, args ...any) {
	f.msg = fmt.Sprintf(format, args...)
}

func TestInvalidResources(t *testing.T) {
	tb := &fatalRecorder{T: t}
	router, api := New(tb, conneg.Config{}, &conneg.Resource{Name: "bad", Path: "/{"})
	assert.Nil(t, router)
	assert.Nil(t, api)
	assert.Contains(t, tb.msg, "invalid resources")
}
