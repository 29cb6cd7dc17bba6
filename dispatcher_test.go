package conneg

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(w http.ResponseWriter, r *http.Request) {
	ex := ExchangeFrom(r.Context())
	inv, _ := ex.Current()
	fmt.Fprintf(w, "%s %s", inv.Operation.Name, PathValue(r, "id"))
}

func handlerResource() *Resource {
	return &Resource{
		Name: "widgets",
		Path: "/widgets",
		Operations: []*Operation{
			{Name: "get", Method: http.MethodGet, Path: "/{id}", Produces: []string{"application/json", "text/plain"}, Handler: http.HandlerFunc(echoHandler)},
			{Name: "replace", Method: http.MethodPut, Path: "/{id}", Consumes: jsonOnly, Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			})},
			{Name: "touch", Method: http.MethodPost, Path: "/{id}"},
		},
	}
}

func serve(d http.Handler, method, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, h := range headers {
		parts := strings.SplitN(h, ":", 2)
		req.Header.Add(parts[0], strings.TrimSpace(parts[1]))
	}
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)
	return w
}

func TestServeHTTP(t *testing.T) {
	d := newTestDispatcher(t, Config{}, handlerResource())

	w := serve(d, http.MethodGet, "/widgets/42", "Accept: text/plain")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, "get 42", w.Body.String())

	w = serve(d, http.MethodGet, "/widgets/42")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	w = serve(d, http.MethodPut, "/widgets/42", "Content-Type: application/json")
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = serve(d, http.MethodPost, "/widgets/42")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestServeHead(t *testing.T) {
	d := newTestDispatcher(t, Config{}, handlerResource())

	w := serve(d, http.MethodHead, "/widgets/42", "Accept: text/plain")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Body.String())
}

func TestServeOptions(t *testing.T) {
	d := newTestDispatcher(t, Config{}, handlerResource())

	w := serve(d, http.MethodOptions, "/widgets/42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "GET, HEAD, OPTIONS, POST, PUT", w.Header().Get("Allow"))
	assert.Empty(t, w.Body.String())

	w = serve(d, "options", "/widgets/42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "GET, HEAD, OPTIONS, POST, PUT", w.Header().Get("Allow"))

	// Other failures are still reported for OPTIONS.
	w = serve(d, http.MethodOptions, "/nothing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeProblem(t *testing.T) {
	d := newTestDispatcher(t, Config{}, handlerResource())

	w := serve(d, http.MethodDelete, "/widgets/42")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "GET, HEAD, OPTIONS, POST, PUT", w.Header().Get("Allow"))

	var model ErrorModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &model))
	assert.Equal(t, http.StatusMethodNotAllowed, model.Status)
	assert.Equal(t, "Method Not Allowed", model.Title)
	assert.Contains(t, model.Detail, "HTTP Method: DELETE")

	w = serve(d, http.MethodPut, "/widgets/42", "Content-Type: text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Empty(t, w.Header().Get("Allow"))

	w = serve(d, http.MethodGet, "/widgets/42", "Accept: image/png")
	assert.Equal(t, http.StatusNotAcceptable, w.Code)
	// JSON is the default when no format is acceptable.
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	w = serve(d, http.MethodPut, "/widgets/42", "Content-Type: nonsense")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServeFaultMessage(t *testing.T) {
	d := newTestDispatcher(t, Config{ReportFaultMessage: true}, handlerResource())

	w := serve(d, http.MethodPut, "/widgets/42", "Content-Type: text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Supported content types: application/json")
}

func TestServeCustomFormats(t *testing.T) {
	plain := Format{
		Marshal: func(w io.Writer, v any) error {
			_, err := fmt.Fprint(w, v.(error).Error())
			return err
		},
	}
	d := newTestDispatcher(t, Config{
		Formats:       map[string]Format{"text/plain": plain},
		DefaultFormat: "text/plain",
	}, handlerResource())

	w := serve(d, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "No root resource")
}

func TestServeMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	d := newTestDispatcher(t, Config{Metrics: metrics}, handlerResource())

	serve(d, http.MethodGet, "/widgets/1")
	serve(d, http.MethodGet, "/widgets/2")
	serve(d, http.MethodGet, "/missing")
	serve(d, http.MethodOptions, "/widgets/1")

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.dispatchTotal.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dispatchTotal.WithLabelValues("404")))

	families, err := registry.Gather()
	require.NoError(t, err)
	names := []string{}
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "conneg_selection_duration_seconds")
	assert.Contains(t, names, "conneg_dispatch_total")
}
