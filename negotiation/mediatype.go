package negotiation

import (
	"errors"
	"fmt"
	"strings"
)

// Names of the synthetic parameters used while ranking media types. They are
// never sent on the wire unless explicitly requested.
const (
	QParam        = "q"
	QSParam       = "qs"
	DistanceParam = "d"
	CharsetParam  = "charset"
)

// Wildcard is the media type wildcard token.
const Wildcard = "*"

// All is the `*/*` media type. It is what an absent Accept header or an
// undeclared consumes/produces list means.
var All = MediaType{Type: Wildcard, Subtype: Wildcard}

// ErrMalformed is wrapped by every parse failure.
var ErrMalformed = errors.New("malformed media type")

// MalformedError describes a media type string which could not be parsed.
type MalformedError struct {
	Value  string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformed, e.Value, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

// Param is a single media type parameter.
type Param struct {
	Name  string
	Value string
}

// Params is an ordered set of media type parameters. Lookups are
// case-insensitive on the name; insertion order is kept for output.
type Params []Param

// Get returns the value of the named parameter and whether it was present.
func (p Params) Get(name string) (string, bool) {
	for _, param := range p {
		if strings.EqualFold(param.Name, name) {
			return param.Value, true
		}
	}
	return "", false
}

// Has reports whether the named parameter is present.
func (p Params) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// With returns a copy of the params with name set to value, replacing any
// existing value in place.
func (p Params) With(name, value string) Params {
	out := make(Params, 0, len(p)+1)
	replaced := false
	for _, param := range p {
		if strings.EqualFold(param.Name, name) {
			if !replaced {
				out = append(out, Param{param.Name, value})
				replaced = true
			}
			continue
		}
		out = append(out, param)
	}
	if !replaced {
		out = append(out, Param{name, value})
	}
	return out
}

// Without returns a copy of the params without any of the given names.
func (p Params) Without(names ...string) Params {
	if len(names) == 0 {
		return p
	}
	out := make(Params, 0, len(p))
outer:
	for _, param := range p {
		for _, n := range names {
			if strings.EqualFold(param.Name, n) {
				continue outer
			}
		}
		out = append(out, param)
	}
	return out
}

// MediaType is an immutable `type/subtype;name=value` value. Type and subtype
// are either literal tokens or the `*` wildcard. A subtype like `*+json` or
// `vnd.foo+*` is a composite wildcard.
type MediaType struct {
	Type    string
	Subtype string
	Params  Params
}

// New returns a media type without parameters.
func New(typ, subtype string) MediaType {
	return MediaType{Type: typ, Subtype: subtype}
}

// IsWildcardType reports whether the type is `*`.
func (m MediaType) IsWildcardType() bool {
	return m.Type == Wildcard
}

// IsWildcardSubtype reports whether the subtype is `*`.
func (m MediaType) IsWildcardSubtype() bool {
	return m.Subtype == Wildcard
}

// hasWildcardSubtype also counts composite wildcards like `*+json`.
func (m MediaType) hasWildcardSubtype() bool {
	return strings.Contains(m.Subtype, Wildcard)
}

// Param returns the value of the named parameter, or an empty string.
func (m MediaType) Param(name string) string {
	v, _ := m.Params.Get(name)
	return v
}

// WithParam returns a copy with the parameter set.
func (m MediaType) WithParam(name, value string) MediaType {
	m.Params = m.Params.With(name, value)
	return m
}

// Equal compares type and subtype case-insensitively and the parameters as
// a set with case-insensitive names.
func (m MediaType) Equal(other MediaType) bool {
	if !strings.EqualFold(m.Type, other.Type) || !strings.EqualFold(m.Subtype, other.Subtype) {
		return false
	}
	if len(m.Params) != len(other.Params) {
		return false
	}
	for _, p := range m.Params {
		v, ok := other.Params.Get(p.Name)
		if !ok || v != p.Value {
			return false
		}
	}
	return true
}

// Essence returns the `type/subtype` part only.
func (m MediaType) Essence() string {
	return m.Type + "/" + m.Subtype
}

// String returns the wire form including all parameters.
func (m MediaType) String() string {
	return m.Format()
}

// Format returns the wire form, leaving out any parameter named in omit.
// This is used to drop the `q`, `qs` and `d` parameters before a negotiated
// type is sent back to a client.
func (m MediaType) Format(omit ...string) string {
	var sb strings.Builder
	sb.WriteString(m.Type)
	sb.WriteByte('/')
	sb.WriteString(m.Subtype)
	for _, p := range m.Params.Without(omit...) {
		sb.WriteByte(';')
		sb.WriteString(p.Name)
		sb.WriteByte('=')
		sb.WriteString(p.Value)
	}
	return sb.String()
}

// Strings formats each media type, as used in diagnostic messages.
func Strings(types []MediaType, omit ...string) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.Format(omit...)
	}
	return out
}
