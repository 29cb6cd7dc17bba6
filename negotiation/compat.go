package negotiation

import (
	"strconv"
	"strings"
)

// Rules decides media type compatibility. The zero value applies the strict
// composite subtype check.
type Rules struct {
	// PartialSubtypes relaxes the composite subtype check so that a plain
	// subtype may match one side of a `+` composite, e.g. `json` matches
	// `vnd.foo+json`.
	PartialSubtypes bool
}

// IntersectOptions controls what an intersection carries forward.
type IntersectOptions struct {
	// AddRequiredParams copies parameters from the required type that the
	// user type does not already have.
	AddRequiredParams bool

	// AddDistance sets the `d` parameter to the number of wildcard components
	// of the required type that were resolved by the user type.
	AddDistance bool
}

// Compatible reports whether a and b can describe the same representation.
// It is symmetric.
func Compatible(a, b MediaType) bool {
	return Rules{}.Compatible(a, b)
}

// Compatible reports whether a and b can describe the same representation,
// including the composite subtype rules and shared parameter values.
func (r Rules) Compatible(a, b MediaType) bool {
	return r.typesCompatible(a, b) && paramsCompatible(a, b)
}

func (r Rules) typesCompatible(a, b MediaType) bool {
	if a.Type == Wildcard || b.Type == Wildcard {
		return true
	}
	if !strings.EqualFold(a.Type, b.Type) {
		return false
	}
	if a.Subtype == Wildcard || b.Subtype == Wildcard || strings.EqualFold(a.Subtype, b.Subtype) {
		return true
	}
	return r.compositeSubtypes(a.Subtype, b.Subtype)
}

// splitSubtype splits a composite subtype around the first `+`.
func splitSubtype(subtype string) (before, after string, ok bool) {
	i := strings.IndexByte(subtype, '+')
	if i < 0 {
		return "", "", false
	}
	return subtype[:i], subtype[i+1:], true
}

func (r Rules) compositeSubtypes(sub1, sub2 string) bool {
	before1, after1, composite1 := splitSubtype(sub1)
	before2, after2, composite2 := splitSubtype(sub2)
	leadingWildcard := strings.HasPrefix(sub1, Wildcard) || strings.HasPrefix(sub2, Wildcard)
	trailingWildcard := strings.HasSuffix(sub1, Wildcard) || strings.HasSuffix(sub2, Wildcard)

	if !r.PartialSubtypes {
		if !composite1 || !composite2 {
			return false
		}
		if strings.EqualFold(after1, after2) && leadingWildcard {
			return true
		}
		return strings.EqualFold(before1, before2) && trailingWildcard
	}

	if !composite1 && !composite2 {
		return false
	}

	// A plain subtype may stand for either half of the composite one.
	if !composite1 && (strings.EqualFold(after2, sub1) || strings.EqualFold(before2, sub1)) {
		return true
	}
	if !composite2 && (strings.EqualFold(after1, sub2) || strings.EqualFold(before1, sub2)) {
		return true
	}
	if !composite1 || !composite2 {
		return false
	}
	if strings.EqualFold(after1, after2) && leadingWildcard {
		return true
	}
	return strings.EqualFold(before1, before2) && trailingWildcard
}

// isRankingParam reports whether the parameter only exists for ranking and
// must not influence compatibility.
func isRankingParam(name string) bool {
	return strings.EqualFold(name, QParam) || strings.EqualFold(name, QSParam) ||
		strings.EqualFold(name, DistanceParam)
}

func stripQuotes(v string) string {
	if len(v) > 1 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		return v[1 : len(v)-1]
	}
	return v
}

// paramsCompatible requires every parameter present on both sides with a
// value to agree. Charset values compare case-insensitively.
func paramsCompatible(a, b MediaType) bool {
	for _, p := range a.Params {
		if p.Value == "" || isRankingParam(p.Name) {
			continue
		}
		other, ok := b.Params.Get(p.Name)
		if !ok || other == "" {
			continue
		}
		v1, v2 := stripQuotes(p.Value), stripQuotes(other)
		if v1 == v2 {
			continue
		}
		if strings.EqualFold(p.Name, CharsetParam) && strings.EqualFold(v1, v2) {
			continue
		}
		return false
	}
	return true
}

// Intersect returns the more specific of two compatible types. Literal
// type and subtype of required win over wildcards; parameters come from
// user, so a client's `q` is carried forward.
func Intersect(required, user MediaType, opts IntersectOptions) MediaType {
	requiredTypeWildcard := required.Type == Wildcard
	requiredSubtypeWildcard := required.hasWildcardSubtype()

	out := MediaType{Type: required.Type, Subtype: required.Subtype}
	if requiredTypeWildcard {
		out.Type = user.Type
	}
	if requiredSubtypeWildcard {
		out.Subtype = user.Subtype
	}

	out.Params = append(Params(nil), user.Params...)
	if opts.AddRequiredParams {
		for _, p := range required.Params {
			if !out.Params.Has(p.Name) {
				out.Params = append(out.Params, p)
			}
		}
	}
	if opts.AddDistance {
		distance := 0
		if requiredTypeWildcard {
			distance++
		}
		if requiredSubtypeWildcard {
			distance++
		}
		out.Params = out.Params.With(DistanceParam, strconv.Itoa(distance))
	}
	return out
}

// IntersectAll intersects every compatible pair, required types in the outer
// loop and user types in the inner one. The result keeps that order and
// holds no duplicates.
func (r Rules) IntersectAll(required, user []MediaType, opts IntersectOptions) []MediaType {
	var out []MediaType
	r.each(required, user, func(req, usr MediaType) bool {
		mt := Intersect(req, usr, opts)
		for _, existing := range out {
			if existing.Equal(mt) {
				return true
			}
		}
		out = append(out, mt)
		return true
	})
	return out
}

// Intersects reports whether any pair of required and user types is
// compatible. It stops at the first compatible pair.
func (r Rules) Intersects(required, user []MediaType) bool {
	found := false
	r.each(required, user, func(MediaType, MediaType) bool {
		found = true
		return false
	})
	return found
}

// each calls fn for every compatible pair until fn returns false.
func (r Rules) each(required, user []MediaType, fn func(req, usr MediaType) bool) {
	for _, req := range required {
		for _, usr := range user {
			if !r.Compatible(req, usr) {
				continue
			}
			if !fn(req, usr) {
				return
			}
		}
	}
}
