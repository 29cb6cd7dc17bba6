package negotiation

import (
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// QualityFactor parses a `q` or `qs` value. A missing value is 1, a leading
// `.` is read as `0.`, and anything unparsable also falls back to 1 so that
// a bad parameter never blocks negotiation.
func QualityFactor(q string) float64 {
	q = strings.TrimSpace(q)
	if q == "" {
		return 1
	}
	if q[0] == '.' {
		q = "0" + q
	}
	f, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return 1
	}
	return f
}

// CompareQuality orders by the named quality parameter, highest first.
func CompareQuality(a, b MediaType, param string) int {
	q1 := QualityFactor(a.Param(param))
	q2 := QualityFactor(b.Param(param))
	switch {
	case q1 > q2:
		return -1
	case q1 < q2:
		return 1
	}
	return 0
}

// Compare orders media types by specificity: literal types before wildcard
// types, then literal subtypes before wildcard subtypes. If qparam is not
// empty the named quality parameter breaks ties, highest first. A negative
// result means a ranks ahead of b.
func Compare(a, b MediaType, qparam string) int {
	aWild, bWild := a.IsWildcardType(), b.IsWildcardType()
	if aWild && !bWild {
		return 1
	}
	if !aWild && bWild {
		return -1
	}

	aWild, bWild = a.hasWildcardSubtype(), b.hasWildcardSubtype()
	if aWild && !bWild {
		return 1
	}
	if !aWild && bWild {
		return -1
	}

	if qparam != "" {
		return CompareQuality(a, b, qparam)
	}
	return 0
}

// CompareQualityAndDistance breaks ties between equally specific types by
// client quality, then server quality, then (optionally) the computed
// distance with lower distances first.
func CompareQualityAndDistance(a, b MediaType, checkDistance bool) int {
	result := CompareQuality(a, b, QParam)
	if result == 0 {
		result = CompareQuality(a, b, QSParam)
	}
	if result == 0 && checkDistance {
		d1 := distance(a)
		d2 := distance(b)
		switch {
		case d1 < d2:
			result = -1
		case d1 > d2:
			result = 1
		}
	}
	return result
}

func distance(m MediaType) int {
	d, err := strconv.Atoi(m.Param(DistanceParam))
	if err != nil {
		return 0
	}
	return d
}

// Sort sorts types in place by Compare with the given quality parameter and
// returns them. The sort is stable so declaration order breaks ties.
func Sort(types []MediaType, qparam string) []MediaType {
	slices.SortStableFunc(types, func(a, b MediaType) int {
		return Compare(a, b, qparam)
	})
	return types
}

// IntersectSorted intersects required and user types, then ranks the result
// by specificity, quality and optionally distance. The best match is first.
func (r Rules) IntersectSorted(required, user []MediaType, opts IntersectOptions) []MediaType {
	all := r.IntersectAll(required, user, opts)
	slices.SortStableFunc(all, func(a, b MediaType) int {
		if result := Compare(a, b, ""); result != 0 {
			return result
		}
		return CompareQualityAndDistance(a, b, opts.AddDistance)
	})
	return all
}

// CompareSorted walks two ranked lists pairwise and returns the first
// non-zero Compare result. When one list is a prefix of the other the
// shorter one ranks first.
func CompareSorted(a, b []MediaType, qparam string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if result := Compare(a[i], b[i], qparam); result != 0 {
			return result
		}
	}
	return compareLen(len(a), len(b))
}

func compareLen(l1, l2 int) int {
	switch {
	case l1 < l2:
		return -1
	case l1 > l2:
		return 1
	}
	return 0
}

// CompareConsumes ranks two consumes lists against a request content type.
// Lists with more than one entry are first narrowed to the entries that are
// compatible with ct.
func (r Rules) CompareConsumes(a, b []MediaType, ct MediaType) int {
	return CompareSorted(r.compatibleWith(a, ct), r.compatibleWith(b, ct), "")
}

func (r Rules) compatibleWith(types []MediaType, ct MediaType) []MediaType {
	if len(types) == 1 {
		return types
	}
	var out []MediaType
	for _, t := range types {
		if r.Compatible(t, ct) {
			out = append(out, t)
		}
	}
	return out
}

// CompareProduces ranks two produces lists by how well they satisfy the
// accepted types: each list is intersected with accept and ranked, then
// the results are compared entry by entry including quality and distance.
func (r Rules) CompareProduces(a, b []MediaType, accept []MediaType) int {
	opts := IntersectOptions{AddRequiredParams: true, AddDistance: true}
	actual1 := r.IntersectSorted(a, accept, opts)
	actual2 := r.IntersectSorted(b, accept, opts)
	for i := 0; i < len(actual1) && i < len(actual2); i++ {
		result := Compare(actual1[i], actual2[i], "")
		if result == 0 {
			result = CompareQualityAndDistance(actual1[i], actual2[i], true)
		}
		if result != 0 {
			return result
		}
	}
	return compareLen(len(actual1), len(actual2))
}
