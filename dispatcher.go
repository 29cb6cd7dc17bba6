package conneg

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/danielgtaylor/conneg/negotiation"
	"go.uber.org/zap"
)

// maxLocatorDepth bounds sub-resource locator chains.
const maxLocatorDepth = 16

// Dispatcher is an `http.Handler` which routes requests to the operations of
// a registry using path, method and media type negotiation.
type Dispatcher struct {
	registry   *Registry
	selector   *Selector
	config     Config
	log        *zap.Logger
	formats    map[string]Format
	formatKeys []string
}

// NewDispatcher creates a dispatcher for the registry.
func NewDispatcher(registry *Registry, config Config) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		selector: NewSelector(config),
		config:   config,
		log:      config.logger(),
		formats:  config.Formats,
	}
	if d.formats == nil {
		d.formats = DefaultFormats
	}

	def := config.DefaultFormat
	if def == "" {
		def = "application/json"
	}
	if _, ok := d.formats[def]; ok {
		d.formatKeys = append(d.formatKeys, def)
	}
	var keys []string
	for k := range d.formats {
		// Short names like `json` only serve as suffix lookups.
		if k != def && strings.Contains(k, "/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	d.formatKeys = append(d.formatKeys, keys...)
	return d
}

// Registry returns the resources served by the dispatcher.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Selector returns the selector used for each hop.
func (d *Dispatcher) Selector() *Selector {
	return d.selector
}

// Dispatch selects the terminal operation for a request, following
// sub-resource locators. Every selected operation is pushed onto ex. The
// returned error carries the response status.
func (d *Dispatcher) Dispatch(ex *Exchange, contentType, accept string) (*Selection, error) {
	defer d.config.Metrics.observeSelection(time.Now())

	acceptTypes, err := negotiation.ParseList(accept)
	if err != nil {
		return nil, Error406NotAcceptable(fmt.Sprintf("invalid Accept: %v", err))
	}
	negotiation.Sort(acceptTypes, negotiation.QParam)

	matches := d.selector.SelectResources(d.registry.Roots(), ex.Path, ex.Method)
	if len(matches) == 0 {
		msg := fmt.Sprintf("No root resource matching request path %q is found, Relative Path: %s, HTTP Method: %s.", ex.RequestURI, ex.Path, ex.Method)
		if !strings.EqualFold(ex.Method, http.MethodOptions) {
			d.log.Warn(msg, zap.String("id", ex.ID), zap.Int("status", http.StatusNotFound))
		}
		return nil, Error404NotFound(msg)
	}

	for depth := 0; ; depth++ {
		sel, err := d.selector.SelectOperation(ex, matches, ex.Method, contentType, acceptTypes)
		if err != nil {
			return nil, err
		}
		if !sel.Operation.IsLocator() {
			return sel, nil
		}
		if depth >= maxLocatorDepth {
			d.log.Error("sub-resource locators nested too deeply", zap.String("id", ex.ID), zap.Stringer("operation", sel.Operation))
			return nil, Error500InternalServerError(fmt.Sprintf("sub-resource locators nested deeper than %d", maxLocatorDepth))
		}
		matches = []Match{{Resource: sel.Operation.SubResource, Vars: sel.Vars, Remainder: sel.Remainder}}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	discard bool
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.discard {
		return len(b), nil
	}
	return r.ResponseWriter.Write(b)
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ex := NewExchange(r.Method, r.RequestURI, r.URL.Path)
	sel, err := d.Dispatch(ex, r.Header.Get("Content-Type"), strings.Join(r.Header.Values("Accept"), ","))

	status := http.StatusOK
	defer func() {
		d.log.Debug("Request",
			zap.String("id", ex.ID),
			zap.String("http.method", r.Method),
			zap.String("http.url", r.URL.String()),
			zap.Int("http.status_code", status),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	if err != nil {
		var model *ErrorModel
		if strings.EqualFold(r.Method, http.MethodOptions) && errors.As(err, &model) && model.Status == http.StatusMethodNotAllowed {
			w.Header().Set("Allow", strings.Join(model.Allow, ", "))
			w.WriteHeader(status)
			d.config.Metrics.countDispatch(status)
			return
		}
		status = Status(err)
		d.WriteErr(w, r, err)
		return
	}

	if ct := ex.ContentType; ct != "" && !strings.Contains(ct, "*") {
		w.Header().Set("Content-Type", ct)
	}

	rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK, discard: r.Method == http.MethodHead}
	if h := sel.Operation.Handler; h != nil {
		h.ServeHTTP(rw, r.WithContext(WithExchange(r.Context(), ex)))
	} else {
		rw.WriteHeader(http.StatusNoContent)
	}
	status = rw.status
	d.config.Metrics.countDispatch(status)
}

// WriteErr writes err as a response. Errors without a status become 500s.
// 405 responses carry the `Allow` header.
func (d *Dispatcher) WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	var model *ErrorModel
	if !errors.As(err, &model) {
		model = NewError(Status(err), err.Error())
	}
	if len(model.Allow) > 0 {
		w.Header().Set("Allow", strings.Join(model.Allow, ", "))
	}
	d.config.Metrics.countDispatch(model.Status)

	if d.config.ReportFaultMessage {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(model.Status)
		if r.Method != http.MethodHead {
			io.WriteString(w, model.Error())
		}
		return
	}

	if len(d.formatKeys) == 0 {
		w.WriteHeader(model.Status)
		return
	}
	ct := negotiation.SelectQValue(strings.Join(r.Header.Values("Accept"), ","), d.formatKeys)
	if ct == "" {
		ct = d.formatKeys[0]
	}
	w.Header().Set("Content-Type", model.ContentType(ct))
	w.WriteHeader(model.Status)
	if r.Method == http.MethodHead {
		return
	}
	if err := d.formats[ct].Marshal(w, model); err != nil {
		d.log.Error("could not write error", zap.Error(err), zap.String("content-type", ct))
	}
}
