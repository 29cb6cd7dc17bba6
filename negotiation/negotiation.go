// Package negotiation implements HTTP media type handling for content
// negotiation: parsing Content-Type and Accept values, deciding whether two
// media types are compatible (including vendor `+suffix` subtypes),
// intersecting them and ranking the results by specificity and quality.
package negotiation

// SelectQValue selects and returns the best value from the allowed set of
// media types given an Accept header. Each allowed value takes the quality
// of the most specific Accept entry matching it, so `*/*` only applies to
// values nothing more specific mentions. The *first* item in allowed is
// preferred if there is a tie. If nothing matches, or the header cannot be
// parsed, returns an empty string.
func SelectQValue(header string, allowed []string) string {
	accept, err := ParseList(header)
	if err != nil {
		return ""
	}

	best := ""
	bestQ := 0.0
	for _, name := range allowed {
		offered, err := Parse(name)
		if err != nil {
			continue
		}

		q := 0.0
		specific := -1
		for _, a := range accept {
			if !Compatible(a, offered) {
				continue
			}
			if s := specificity(a); s > specific {
				specific = s
				q = QualityFactor(a.Param(QParam))
			}
		}

		if q > bestQ {
			bestQ = q
			best = name
		}
	}
	return best
}

// specificity counts literal components: 2 for `type/sub`, 1 for `type/*`.
func specificity(m MediaType) int {
	s := 0
	if !m.IsWildcardType() {
		s++
	}
	if !m.hasWildcardSubtype() {
		s++
	}
	return s
}
