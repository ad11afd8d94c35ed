package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingVariable matches any *MissingVariableError.
var ErrMissingVariable = errors.New("missing template variable")

// MissingVariableError reports a placeholder that had no value at format time.
type MissingVariableError struct {
	Template string
	Name     string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("prompt %s: no value supplied for {%s}", e.Template, e.Name)
}

func (e *MissingVariableError) Is(target error) bool {
	return target == ErrMissingVariable
}

// part is either literal text or a placeholder name.
type part struct {
	text     string
	variable string
}

// Template is a parsed prompt with {name} placeholders. Literal braces are
// written as {{ and }}.
type Template struct {
	name  string
	parts []part
	vars  []string
}

// New parses text into a Template.
func New(name, text string) (*Template, error) {
	t := &Template{name: name}
	seen := make(map[string]bool)

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, part{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '{' && i+1 < len(text) && text[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(text) && text[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("prompt %s: unclosed placeholder at offset %d", name, i)
			}
			v := text[i+1 : i+1+end]
			if !validName(v) {
				return nil, fmt.Errorf("prompt %s: invalid placeholder %q at offset %d", name, v, i)
			}
			flush()
			t.parts = append(t.parts, part{variable: v})
			if !seen[v] {
				seen[v] = true
				t.vars = append(t.vars, v)
			}
			i += end + 1
		case c == '}':
			return nil, fmt.Errorf("prompt %s: single '}' at offset %d", name, i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

// MustNew is like New but panics on a malformed template. It is meant for
// package-level template constants.
func MustNew(name, text string) *Template {
	t, err := New(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Name() string { return t.name }

// Variables lists placeholder names in order of first appearance.
func (t *Template) Variables() []string {
	out := make([]string, len(t.vars))
	copy(out, t.vars)
	return out
}

// Format substitutes every placeholder. Values are inserted verbatim.
func (t *Template) Format(values map[string]string) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if p.variable == "" {
			b.WriteString(p.text)
			continue
		}
		v, ok := values[p.variable]
		if !ok {
			return "", &MissingVariableError{Template: t.name, Name: p.variable}
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
