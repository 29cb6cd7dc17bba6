package conneg

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/conneg/uritemplate"
	"github.com/google/uuid"
)

type contextKey string

var exchangeKey contextKey = "conneg/exchange"

// Invocation is a dispatched operation together with its template variable
// values, ordered as the resource template variables followed by the
// operation template variables.
type Invocation struct {
	Operation *Operation
	Values    []string
	Vars      uritemplate.Vars
}

// Exchange is the per-request dispatch state. It is created fresh for every
// request and owned by the goroutine serving it.
type Exchange struct {
	// ID correlates log entries for the request.
	ID string

	Method     string
	RequestURI string
	Path       string

	// ContentType is the negotiated response media type, without quality
	// parameters. It is empty until a resource method is selected.
	ContentType string

	// Vars accumulates template variables across locator hops.
	Vars uritemplate.Vars

	stack []Invocation
}

// NewExchange starts dispatch state for a request.
func NewExchange(method, requestURI, path string) *Exchange {
	if path == "" {
		path = "/"
	}
	return &Exchange{
		ID:         uuid.NewString(),
		Method:     method,
		RequestURI: requestURI,
		Path:       path,
		Vars:       uritemplate.Vars{},
	}
}

// Push records a selected operation.
func (e *Exchange) Push(inv Invocation) {
	e.stack = append(e.stack, inv)
	if e.Vars == nil {
		e.Vars = uritemplate.Vars{}
	}
	for k, values := range inv.Vars {
		e.Vars[k] = values
	}
}

// Stack returns the selected operations, outermost locator first.
func (e *Exchange) Stack() []Invocation {
	return e.stack
}

// Current returns the most recently selected operation.
func (e *Exchange) Current() (Invocation, bool) {
	if len(e.stack) == 0 {
		return Invocation{}, false
	}
	return e.stack[len(e.stack)-1], true
}

// WithExchange returns a copy of ctx carrying the exchange.
func WithExchange(ctx context.Context, ex *Exchange) context.Context {
	return context.WithValue(ctx, exchangeKey, ex)
}

// ExchangeFrom returns the exchange of a dispatched request, or nil.
func ExchangeFrom(ctx context.Context) *Exchange {
	ex, _ := ctx.Value(exchangeKey).(*Exchange)
	return ex
}

// PathValue returns the first value of a path template variable for a
// dispatched request.
func PathValue(r *http.Request, name string) string {
	if ex := ExchangeFrom(r.Context()); ex != nil {
		return ex.Vars.Get(name)
	}
	return ""
}
