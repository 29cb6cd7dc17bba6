// Package uritemplate implements the path templates used to match resources
// and operations, e.g. `/widgets/{id}` or `/files/{path: .+}`. Matching
// extracts variable values and reports the unmatched remainder of the path
// so that sub-resources can continue matching from there.
package uritemplate

import (
	"fmt"
	"regexp"
	"strings"
)

// defaultVarPattern matches a single path segment.
const defaultVarPattern = "([^/]+?)"

// finalGroup matches whatever follows the template.
const finalGroup = "(/.*)?"

var varNamePattern = regexp.MustCompile(`^\s*(\w[\w.-]*)\s*(?::(.*))?$`)

// Template is a compiled path template. It is immutable and safe for
// concurrent use.
type Template struct {
	value    string
	literals string
	vars     []string
	custom   []string
	pattern  string
	re       *regexp.Regexp
}

// New compiles a template. A missing leading slash is added and an empty
// template becomes `/`.
func New(template string) (*Template, error) {
	value := strings.TrimSpace(template)
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}

	t := &Template{value: value}
	var literals, pattern strings.Builder

	parts, err := tokenize(value)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		if !part.variable {
			literals.WriteString(part.text)
			pattern.WriteString(regexp.QuoteMeta(part.text))
			continue
		}

		m := varNamePattern.FindStringSubmatch(part.text)
		if m == nil {
			return nil, fmt.Errorf("template %q: invalid variable {%s}", value, part.text)
		}
		name := m[1]
		t.vars = append(t.vars, name)
		if expr := strings.TrimSpace(m[2]); expr != "" {
			if _, err := regexp.Compile(expr); err != nil {
				return nil, fmt.Errorf("template %q: variable %s: %w", value, name, err)
			}
			t.custom = append(t.custom, name)
			pattern.WriteString("(" + nonCapturing(expr) + ")")
		} else {
			pattern.WriteString(defaultVarPattern)
		}
	}

	t.literals = literals.String()
	p := strings.TrimSuffix(pattern.String(), "/")
	t.pattern = p + finalGroup
	t.re, err = regexp.Compile("^" + t.pattern + "$")
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", value, err)
	}
	return t, nil
}

// MustNew is like New but panics on error.
func MustNew(template string) *Template {
	t, err := New(template)
	if err != nil {
		panic(err)
	}
	return t
}

// Value returns the template as declared, with its leading slash.
func (t *Template) Value() string {
	return t.value
}

func (t *Template) String() string {
	return t.value
}

// Variables returns the variable names in declaration order.
func (t *Template) Variables() []string {
	return t.vars
}

// CustomVariables returns the names of variables declared with a regular
// expression.
func (t *Template) CustomVariables() []string {
	return t.custom
}

// Literals returns the template text outside of variables.
func (t *Template) Literals() string {
	return t.literals
}

// Pattern returns the regular expression source used for matching.
func (t *Template) Pattern() string {
	return t.pattern
}

// Match matches path against the template. On success the variable values
// are added to vars (when not nil) and the unmatched remainder is returned.
// A fully consumed path has the remainder `/`. Matrix parameters are ignored
// if the raw path does not match.
func (t *Template) Match(path string, vars Vars) (string, bool) {
	m := t.re.FindStringSubmatch(path)
	if m == nil {
		if !strings.Contains(path, ";") {
			return "", false
		}
		m = t.re.FindStringSubmatch(StripMatrixParams(path))
		if m == nil {
			return "", false
		}
	}

	if vars != nil {
		for i, name := range t.vars {
			vars.Add(name, m[i+1])
		}
	}

	remainder := m[len(m)-1]
	if remainder == "" || strings.HasPrefix(remainder, "/;") {
		remainder = "/"
	}
	return remainder, true
}

// IsFinal reports whether a match remainder means the whole path was
// consumed.
func IsFinal(remainder string) bool {
	return remainder == "" || remainder == "/"
}

// StripMatrixParams removes `;name=value` matrix parameters from every path
// segment.
func StripMatrixParams(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if j := strings.IndexByte(s, ';'); j >= 0 {
			segments[i] = s[:j]
		}
	}
	return strings.Join(segments, "/")
}

// Compare orders templates from most to least specific: more literal
// characters first, then more variables, then more regex variables, then
// by pattern text so the order is total.
func Compare(t1, t2 *Template) int {
	if result := descending(len(t1.literals), len(t2.literals)); result != 0 {
		return result
	}
	if result := descending(len(t1.vars), len(t2.vars)); result != 0 {
		return result
	}
	if result := descending(len(t1.custom), len(t2.custom)); result != 0 {
		return result
	}
	return strings.Compare(t1.pattern, t2.pattern)
}

func descending(a, b int) int {
	switch {
	case a < b:
		return 1
	case a > b:
		return -1
	}
	return 0
}

type token struct {
	text     string
	variable bool
}

// tokenize splits a template into literal and `{...}` variable parts. Braces
// nest so that regex quantifiers like `{2,3}` stay inside their variable.
func tokenize(template string) ([]token, error) {
	var tokens []token
	depth := 0
	start := 0
	for i := 0; i < len(template); i++ {
		switch template[i] {
		case '{':
			if depth == 0 {
				if i > start {
					tokens = append(tokens, token{text: template[start:i]})
				}
				start = i + 1
			}
			depth++
		case '}':
			if depth == 0 {
				return nil, fmt.Errorf("template %q: unbalanced '}'", template)
			}
			depth--
			if depth == 0 {
				tokens = append(tokens, token{text: template[start:i], variable: true})
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("template %q: unterminated variable", template)
	}
	if start < len(template) {
		tokens = append(tokens, token{text: template[start:]})
	}
	return tokens, nil
}

// nonCapturing rewrites capturing groups in a user expression as
// non-capturing so group indexes line up with the template variables.
func nonCapturing(expr string) string {
	var sb strings.Builder
	inClass := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '\\' && i+1 < len(expr):
			sb.WriteByte(c)
			i++
			sb.WriteByte(expr[i])
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '(' && !inClass && (i+1 >= len(expr) || expr[i+1] != '?'):
			sb.WriteString("(?:")
			continue
		case c == '(' && !inClass && (strings.HasPrefix(expr[i+1:], "?P<") || strings.HasPrefix(expr[i+1:], "?<")):
			// Named groups capture too.
			if end := strings.IndexByte(expr[i:], '>'); end > 0 {
				sb.WriteString("(?:")
				i += end
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
