package conneg

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/danielgtaylor/conneg/negotiation"
	"github.com/danielgtaylor/conneg/uritemplate"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// methodWildcard matches every declared method. It is used to find out which
// methods a path supports.
const methodWildcard = "*"

// Match is a resource whose template matched the request path, together
// with the extracted variables and the part of the path still to match.
type Match struct {
	Resource  *Resource
	Vars      uritemplate.Vars
	Remainder string
}

// Selection is the operation chosen for a request.
type Selection struct {
	Operation *Operation
	Vars      uritemplate.Vars

	// Remainder is the path left after the operation template. Locators pass
	// it on to their sub-resource.
	Remainder string

	// ContentType is the negotiated response type including its quality
	// parameters. It is the zero value for locators.
	ContentType negotiation.MediaType
}

// Selector implements resource and operation selection. It holds no
// per-request state and may be shared between goroutines.
type Selector struct {
	config Config
	rules  negotiation.Rules
	log    *zap.Logger
}

// NewSelector creates a selector using the given configuration.
func NewSelector(config Config) *Selector {
	return &Selector{
		config: config,
		rules:  negotiation.Rules{PartialSubtypes: config.PartialSubtypeCheck},
		log:    config.logger(),
	}
}

// Rules returns the media type rules in effect.
func (s *Selector) Rules() negotiation.Rules {
	return s.rules
}

// SelectResources matches path against the templates of the given resources.
// It returns the most specific matches: every resource whose template
// compares equal to the best one. Nil means nothing matched.
func (s *Selector) SelectResources(resources []*Resource, path, method string) []Match {
	if ce := s.log.Check(zap.DebugLevel, "matching resources"); ce != nil {
		names := make([]string, len(resources))
		for i, r := range resources {
			names[i] = r.Name
		}
		ce.Write(zap.String("path", path), zap.Strings("resources", names))
	}

	if len(resources) == 1 {
		vars := uritemplate.Vars{}
		remainder, ok := resources[0].template.Match(path, vars)
		if !ok {
			return nil
		}
		return []Match{{Resource: resources[0], Vars: vars, Remainder: remainder}}
	}

	var candidates []Match
	for _, r := range resources {
		vars := uritemplate.Vars{}
		if remainder, ok := r.template.Match(path, vars); ok {
			candidates = append(candidates, Match{Resource: r, Vars: vars, Remainder: remainder})
			s.log.Debug("resource matched", zap.String("resource", r.Name), zap.String("template", r.template.Value()))
		} else {
			s.log.Debug("resource did not match", zap.String("resource", r.Name), zap.String("path", path))
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	accepting := make(map[*Resource]int, len(candidates))
	for _, c := range candidates {
		accepting[c.Resource] = acceptingOperations(c, method)
	}
	slices.SortStableFunc(candidates, func(a, b Match) int {
		if result := uritemplate.Compare(a.Resource.template, b.Resource.template); result != 0 {
			return result
		}
		if result := descendingInt(accepting[a.Resource], accepting[b.Resource]); result != 0 {
			return result
		}
		return ascendingInt(a.Resource.index, b.Resource.index)
	})

	best := candidates[0].Resource.template
	out := candidates[:1]
	for _, c := range candidates[1:] {
		if uritemplate.Compare(best, c.Resource.template) != 0 {
			break
		}
		out = append(out, c)
	}
	return out
}

// acceptingOperations counts the resource methods of a matched resource that
// fully consume the path and accept the request method.
func acceptingOperations(m Match, method string) int {
	count := 0
	for _, op := range m.Resource.Operations {
		if op.IsLocator() || !matchMethod(op.Method, method) {
			continue
		}
		if remainder, ok := op.template.Match(currentPath(m.Remainder), nil); ok && uritemplate.IsFinal(remainder) {
			count++
		}
	}
	return count
}

type candidate struct {
	op        *Operation
	vars      uritemplate.Vars
	remainder string
	final     bool
}

// SelectOperation picks the operation of the matched resources that handles
// the request. Each operation must match the remaining path, the method,
// the request content type and at least one accepted type; the best of those
// wins. On success the negotiated response type and the invocation are
// recorded on ex. Otherwise the returned error is an `*ErrorModel` with
// status 404, 405, 415 or 406, whichever stage nothing got past first, or
// 400 for an unparsable content type.
func (s *Selector) SelectOperation(ex *Exchange, matches []Match, method, contentType string, accept []negotiation.MediaType) (*Selection, error) {
	requestType := negotiation.All
	if strings.TrimSpace(contentType) != "" {
		var err error
		if requestType, err = negotiation.Parse(contentType); err != nil {
			return nil, Error400BadRequest(fmt.Sprintf("invalid Content-Type: %v", err))
		}
	}
	if len(accept) == 0 {
		accept = []negotiation.MediaType{negotiation.All}
	}
	noBody := strings.EqualFold(method, http.MethodGet) || strings.EqualFold(method, http.MethodHead)
	requestTypes := []negotiation.MediaType{requestType}

	var candidates []candidate
	var consumable, producible []negotiation.MediaType
	pathMatched, methodMatched, consumeMatched := 0, 0, 0
	resourceMethodsAdded := false

	for _, m := range matches {
		path := currentPath(m.Remainder)
		s.log.Debug("matching operations", zap.String("resource", m.Resource.Name), zap.String("path", path))

		for _, op := range m.Resource.Operations {
			added := false
			vars := m.Vars.Clone()
			if remainder, ok := op.template.Match(path, vars); ok {
				c := candidate{op: op, vars: vars, remainder: remainder, final: uritemplate.IsFinal(remainder)}

				if op.IsLocator() {
					candidates = append(candidates, c)
					added = true
				} else if c.final {
					pathMatched++
					if matchMethod(op.Method, method) {
						methodMatched++
						consumable = append(consumable, op.consumes...)
						if noBody || s.rules.Intersects(op.consumes, requestTypes) {
							consumeMatched++
							producible = append(producible, op.produces...)
							for _, a := range accept {
								if s.rules.Intersects(op.produces, []negotiation.MediaType{a}) {
									candidates = append(candidates, c)
									added = true
									resourceMethodsAdded = true
									break
								}
							}
						}
					}
				}
			}

			if ce := s.log.Check(zap.DebugLevel, "operation"); ce != nil {
				if added {
					ce.Message = "operation selected possibly"
					ce.Write(zap.Stringer("operation", op))
				} else {
					ce.Message = "operation did not match"
					ce.Write(
						zap.Stringer("operation", op),
						zap.String("path", path),
						zap.String("method", method),
						zap.String("contentType", requestType.String()),
						zap.Strings("consumes", negotiation.Strings(op.consumes)),
						zap.Strings("accept", negotiation.Strings(accept)),
						zap.Strings("produces", negotiation.Strings(op.produces)),
					)
				}
			}
		}
	}

	if resourceMethodsAdded && !s.config.KeepSubresourceCandidates {
		kept := candidates[:0]
		for _, c := range candidates {
			if c.op.IsLocator() && c.final {
				continue
			}
			kept = append(kept, c)
		}
		candidates = kept
	}

	if len(candidates) > 0 {
		slices.SortStableFunc(candidates, func(a, b candidate) int {
			return s.compareOperations(a.op, b.op, method, noBody, requestType, accept)
		})
		return s.selected(ex, candidates[0], method, accept), nil
	}

	// The stage matched the least number of times determines the status, in
	// the order path, method, consumes, produces.
	var status int
	switch {
	case pathMatched == 0:
		status = http.StatusNotFound
	case methodMatched == 0:
		status = http.StatusMethodNotAllowed
	case consumeMatched == 0:
		status = http.StatusUnsupportedMediaType
	default:
		status = http.StatusNotAcceptable
	}

	msg := noMatchMessage(ex, matches, status, method, requestType, accept, consumable, producible)
	if !strings.EqualFold(method, http.MethodOptions) {
		fields := []zap.Field{zap.Int("status", status)}
		if ex != nil {
			fields = append(fields, zap.String("id", ex.ID))
		}
		s.log.Warn(msg, fields...)
	}

	switch status {
	case http.StatusNotFound:
		return nil, Error404NotFound(msg)
	case http.StatusMethodNotAllowed:
		return nil, Error405MethodNotAllowed(msg, AllowedMethods(matches))
	case http.StatusUnsupportedMediaType:
		return nil, Error415UnsupportedMediaType(msg)
	}
	return nil, Error406NotAcceptable(msg)
}

func (s *Selector) selected(ex *Exchange, c candidate, method string, accept []negotiation.MediaType) *Selection {
	op := c.op
	if headViaGet(op.Method, method) {
		s.log.Info("GET operation serves HEAD request", zap.String("resource", op.resource.Name), zap.String("operation", op.Name))
	}
	s.log.Debug("operation selected", zap.Stringer("operation", op))

	sel := &Selection{Operation: op, Vars: c.vars, Remainder: c.remainder}
	if !op.IsLocator() {
		types := s.rules.IntersectSorted(accept, op.produces, negotiation.IntersectOptions{AddRequiredParams: true})
		if len(types) > 0 {
			sel.ContentType = types[0]
		}
	}

	if ex != nil {
		if !op.IsLocator() && len(sel.ContentType.Type) > 0 {
			ex.ContentType = sel.ContentType.Format(negotiation.QParam, negotiation.QSParam)
		}
		var values []string
		if op.resource.IsRoot() {
			values = c.vars.Values(op.resource.template.Variables())
		}
		values = append(values, c.vars.Values(op.template.Variables())...)
		ex.Push(Invocation{Operation: op, Values: values, Vars: c.vars})
	}
	return sel
}

// compareOperations is the total order over accepted candidates: template
// specificity first, then resource methods before locators, then the method
// match quality, then consumes and produces ranking. Ties keep declaration
// order.
func (s *Selector) compareOperations(a, b *Operation, method string, noBody bool, ct negotiation.MediaType, accept []negotiation.MediaType) int {
	if result := uritemplate.Compare(a.template, b.template); result != 0 {
		return result
	}

	aLocator, bLocator := a.IsLocator(), b.IsLocator()
	if !aLocator && bLocator {
		return -1
	}
	if aLocator && !bLocator {
		return 1
	}

	if !aLocator {
		if result := ascendingInt(methodRank(a.Method, method), methodRank(b.Method, method)); result != 0 {
			return result
		}
		if !noBody {
			if result := s.rules.CompareConsumes(a.consumes, b.consumes, ct); result != 0 {
				return result
			}
		}
	}
	return s.rules.CompareProduces(a.produces, b.produces, accept)
}

// methodRank is lower for better method matches: a literal match, then a
// GET serving HEAD, then `DefaultMethod`.
func methodRank(declared, method string) int {
	switch {
	case strings.EqualFold(declared, method):
		return 0
	case headViaGet(declared, method):
		return 1
	}
	return 2
}

func matchMethod(declared, method string) bool {
	if method == methodWildcard {
		return true
	}
	return strings.EqualFold(declared, method) || headViaGet(declared, method) || declared == DefaultMethod
}

// headViaGet reports whether a GET operation may serve a HEAD request.
func headViaGet(declared, method string) bool {
	return strings.EqualFold(method, http.MethodHead) && declared == http.MethodGet
}

func currentPath(remainder string) string {
	if remainder == "" {
		return "/"
	}
	return remainder
}

// AllowedMethods returns the sorted values of the `Allow` header for the
// matched resources: the methods of every resource method that fully
// consumes the remaining path, plus OPTIONS, plus HEAD if GET is allowed.
func AllowedMethods(matches []Match) []string {
	set := map[string]bool{http.MethodOptions: true}
	for _, m := range matches {
		path := currentPath(m.Remainder)
		for _, op := range m.Resource.Operations {
			if op.IsLocator() || op.Method == DefaultMethod {
				continue
			}
			if remainder, ok := op.template.Match(path, nil); ok && uritemplate.IsFinal(remainder) && matchMethod(op.Method, methodWildcard) {
				set[op.Method] = true
			}
		}
	}
	if set[http.MethodGet] {
		set[http.MethodHead] = true
	}

	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func noMatchMessage(ex *Exchange, matches []Match, status int, method string, ct negotiation.MediaType, accept, consumable, producible []negotiation.MediaType) string {
	requestURI := ""
	if ex != nil {
		requestURI = ex.RequestURI
	}

	var sb strings.Builder
	if len(matches) > 0 && !matches[0].Resource.IsRoot() {
		sb.WriteString("No subresource method found")
	} else {
		sb.WriteString("No operation matching request path")
	}
	relative := "/"
	if len(matches) > 0 {
		relative = currentPath(matches[0].Remainder)
	}
	fmt.Fprintf(&sb, " %q is found, Relative Path: %s, HTTP Method: %s, ContentType: %s, Accept: %s.",
		requestURI, relative, method, ct, strings.Join(negotiation.Strings(accept), ","))

	switch status {
	case http.StatusUnsupportedMediaType:
		fmt.Fprintf(&sb, " Supported content types: %s.", strings.Join(negotiation.Strings(consumable), ","))
	case http.StatusNotAcceptable:
		fmt.Fprintf(&sb, " Available representations: %s.", strings.Join(negotiation.Strings(producible), ","))
	}
	return sb.String()
}

func ascendingInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func descendingInt(a, b int) int {
	return -ascendingInt(a, b)
}
