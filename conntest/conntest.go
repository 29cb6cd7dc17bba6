// Package conntest provides testing utilities for dispatchers. Requests go
// through a `chi` router using the standard library `http.Request` and
// `http.ResponseWriter` types.
package conntest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"strings"

	"github.com/danielgtaylor/conneg"
	"github.com/danielgtaylor/conneg/adapters/conchi"
	"github.com/go-chi/chi/v5"
)

// TB is a subset of the `testing.TB` interface used by the test API and
// implemented by the `*testing.T` and `*testing.B` structs.
type TB interface {
	Helper()
	Log(args ...any)
	Logf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// TestAPI dispatches requests to registered resources and logs each
// request and response.
type TestAPI interface {
	// Dispatcher returns the dispatcher under test.
	Dispatcher() *conneg.Dispatcher

	// Do a request against the API. Args, if provided, should be string headers
	// like `Content-Type: application/json` or an `io.Reader` for the request
	// body. Anything else will panic.
	Do(method, path string, args ...any) *httptest.ResponseRecorder

	// Get performs a GET request against the API.
	Get(path string, args ...any) *httptest.ResponseRecorder

	// Post performs a POST request against the API.
	Post(path string, args ...any) *httptest.ResponseRecorder

	// Put performs a PUT request against the API.
	Put(path string, args ...any) *httptest.ResponseRecorder

	// Patch performs a PATCH request against the API.
	Patch(path string, args ...any) *httptest.ResponseRecorder

	// Delete performs a DELETE request against the API.
	Delete(path string, args ...any) *httptest.ResponseRecorder

	// Options performs an OPTIONS request against the API.
	Options(path string, args ...any) *httptest.ResponseRecorder
}

type testAPI struct {
	router     chi.Router
	dispatcher *conneg.Dispatcher
	tb         TB
}

func (a *testAPI) Dispatcher() *conneg.Dispatcher {
	return a.dispatcher
}

func (a *testAPI) Do(method, path string, args ...any) *httptest.ResponseRecorder {
	a.tb.Helper()
	var b io.Reader
	for _, arg := range args {
		if reader, ok := arg.(io.Reader); ok {
			b = reader
			break
		} else if _, ok := arg.(string); ok {
			// do nothing
		} else {
			panic("unsupported argument type, expected string header or io.Reader body")
		}
	}

	req, _ := http.NewRequest(method, path, b)
	for _, arg := range args {
		if s, ok := arg.(string); ok {
			parts := strings.Split(s, ":")
			req.Header.Add(parts[0], strings.TrimSpace(strings.Join(parts[1:], ":")))
		}
	}
	resp := httptest.NewRecorder()

	bytes, _ := httputil.DumpRequest(req, b != nil)
	a.tb.Log("Making request:\n" + strings.TrimSpace(string(bytes)))

	a.router.ServeHTTP(resp, req)

	bytes, _ = httputil.DumpResponse(resp.Result(), resp.Body.Len() > 0)
	a.tb.Log("Got response:\n" + strings.TrimSpace(string(bytes)))

	return resp
}

func (a *testAPI) Get(path string, args ...any) *httptest.ResponseRecorder {
	a.tb.Helper()
	return a.Do(http.MethodGet, path, args...)
}

func (a *testAPI) Post(path string, args ...any) *httptest.ResponseRecorder {
	a.tb.Helper()
	return a.Do(http.MethodPost, path, args...)
}

func (a *testAPI) Put(path string, args ...any) *httptest.ResponseRecorder {
	a.tb.Helper()
	return a.Do(http.MethodPut, path, args...)
}

func (a *testAPI) Patch(path string, args ...any) *httptest.ResponseRecorder {
	a.tb.Helper()
	return a.Do(http.MethodPatch, path, args...)
}

func (a *testAPI) Delete(path string, args ...any) *httptest.ResponseRecorder {
	a.tb.Helper()
	return a.Do(http.MethodDelete, path, args...)
}

func (a *testAPI) Options(path string, args ...any) *httptest.ResponseRecorder {
	a.tb.Helper()
	return a.Do(http.MethodOptions, path, args...)
}

// New creates a test API dispatching to the given root resources. Invalid
// resources fail the test immediately.
//
//	func TestMyResource(t *testing.T) {
//		_, api := conntest.New(t, conneg.Config{}, myResource)
//		resp := api.Get("/widgets/42", "Accept: application/json")
//		assert.Equal(t, http.StatusOK, resp.Code)
//	}
func New(tb TB, config conneg.Config, roots ...*conneg.Resource) (chi.Router, TestAPI) {
	tb.Helper()
	reg, err := conneg.NewRegistry(roots...)
	if err != nil {
		tb.Fatalf("invalid resources: %v", err)
		return nil, nil
	}
	return Wrap(tb, conneg.NewDispatcher(reg, config))
}

// Wrap creates a test API around an existing dispatcher.
func Wrap(tb TB, d *conneg.Dispatcher) (chi.Router, TestAPI) {
	r := chi.NewRouter()
	conchi.Mount(r, "/", d)
	return r, &testAPI{router: r, dispatcher: d, tb: tb}
}
