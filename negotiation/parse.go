package negotiation

import "strings"

// Parse parses a single media type like `application/json; charset=utf-8`.
// A lone `*` is accepted as `*/*`. Quoted parameter values are kept with
// their quotes so they can be written back unchanged.
func Parse(value string) (MediaType, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return MediaType{}, &MalformedError{value, "empty value"}
	}

	primary := s
	rest := ""
	if i := strings.IndexByte(s, ';'); i >= 0 {
		primary = s[:i]
		rest = s[i+1:]
	}
	primary = strings.TrimSpace(primary)

	var mt MediaType
	if primary == Wildcard {
		mt = All
	} else {
		slash := strings.IndexByte(primary, '/')
		if slash < 0 {
			return MediaType{}, &MalformedError{value, "missing '/' separator"}
		}
		mt.Type = strings.TrimSpace(primary[:slash])
		mt.Subtype = strings.TrimSpace(primary[slash+1:])
		if mt.Type == "" || mt.Subtype == "" {
			return MediaType{}, &MalformedError{value, "empty type or subtype"}
		}
		if strings.ContainsAny(mt.Subtype, "/ \t\"") || strings.ContainsAny(mt.Type, " \t\"") {
			return MediaType{}, &MalformedError{value, "invalid character in type"}
		}
	}

	params, err := parseParams(value, rest)
	if err != nil {
		return MediaType{}, err
	}
	mt.Params = params
	return mt, nil
}

// MustParse is like Parse but panics on error. It is meant for static
// declarations.
func MustParse(value string) MediaType {
	mt, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return mt
}

func parseParams(original, s string) (Params, error) {
	var params Params
	for len(s) > 0 {
		// Name runs up to '=' or the next ';'.
		end := strings.IndexAny(s, "=;")
		if end < 0 {
			if name := strings.TrimSpace(s); name != "" {
				params = append(params, Param{name, ""})
			}
			break
		}
		name := strings.TrimSpace(s[:end])
		if s[end] == ';' {
			if name != "" {
				params = append(params, Param{name, ""})
			}
			s = s[end+1:]
			continue
		}
		if name == "" {
			return nil, &MalformedError{original, "parameter without a name"}
		}

		s = strings.TrimLeft(s[end+1:], " \t")
		var val string
		if strings.HasPrefix(s, `"`) {
			closing := closingQuote(s)
			if closing < 0 {
				return nil, &MalformedError{original, "unterminated quoted parameter " + name}
			}
			val = s[:closing+1]
			s = s[closing+1:]
			if i := strings.IndexByte(s, ';'); i >= 0 {
				s = s[i+1:]
			} else {
				s = ""
			}
		} else {
			if i := strings.IndexByte(s, ';'); i >= 0 {
				val = s[:i]
				s = s[i+1:]
			} else {
				val = s
				s = ""
			}
			val = strings.TrimSpace(val)
		}
		params = append(params, Param{name, val})
	}
	return params, nil
}

// closingQuote returns the index of the quote closing the quoted string at
// the start of s, honoring backslash escapes, or -1.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// ParseList parses a comma separated header value such as Accept. Commas
// inside quoted parameter values do not split. An empty value means the
// header was absent and yields `[*/*]`.
func ParseList(value string) ([]MediaType, error) {
	if strings.TrimSpace(value) == "" {
		return []MediaType{All}, nil
	}

	var types []MediaType
	start := 0
	inQuotes := false
	for i := 0; i <= len(value); i++ {
		if i < len(value) {
			c := value[i]
			if inQuotes {
				if c == '\\' && i+1 < len(value) {
					i++
				} else if c == '"' {
					inQuotes = false
				}
				continue
			}
			if c == '"' {
				inQuotes = true
				continue
			}
			if c != ',' {
				continue
			}
		} else if inQuotes {
			return nil, &MalformedError{value, "unterminated quoted parameter"}
		}

		part := strings.TrimSpace(value[start:i])
		start = i + 1
		if part == "" {
			continue
		}
		mt, err := Parse(part)
		if err != nil {
			return nil, err
		}
		types = append(types, mt)
	}

	if len(types) == 0 {
		return []MediaType{All}, nil
	}
	return types, nil
}

// MustParseList is like ParseList but panics on error.
func MustParseList(values ...string) []MediaType {
	var out []MediaType
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		list, err := ParseList(v)
		if err != nil {
			panic(err)
		}
		out = append(out, list...)
	}
	if len(out) == 0 {
		out = []MediaType{All}
	}
	return out
}
