package template

import (
	"fmt"
	"regexp"
)

// Template is a named pair of subject and body strings with {{placeholder}}
// markers. Templates are loaded once from configuration and are read-only.
type Template struct {
	Name    string
	Subject string
	Body    string
}

// Rendered is the result of filling a template: a subject and body ready to
// send.
type Rendered struct {
	Subject string
	Body    string
}

// MissingPlaceholderError reports a placeholder that has no value in the
// rendering context.
type MissingPlaceholderError struct {
	Template string
	Key      string
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("template %q: no value for placeholder %q", e.Template, e.Key)
}

// placeholderPattern matches {{name}} with optional inner whitespace.
// Placeholder names are identifiers; anything else is left verbatim.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Render substitutes context values into the template's subject and body.
// The subject is rendered first, so with multiple missing keys the error
// names the first one in document order.
func Render(t Template, context map[string]string) (Rendered, error) {
	subject, err := substitute(t.Name, t.Subject, context)
	if err != nil {
		return Rendered{}, err
	}
	body, err := substitute(t.Name, t.Body, context)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Subject: subject, Body: body}, nil
}

func substitute(name, s string, context map[string]string) (string, error) {
	var missing *MissingPlaceholderError
	out := placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholderPattern.FindStringSubmatch(m)[1]
		val, ok := context[key]
		if !ok {
			if missing == nil {
				missing = &MissingPlaceholderError{Template: name, Key: key}
			}
			return m
		}
		return val
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}

// Placeholders returns the distinct placeholder names used by the template,
// in document order (subject first). Configuration validation uses this to
// check templates against the context keys the orchestrator provides.
func Placeholders(t Template) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, s := range []string{t.Subject, t.Body} {
		for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				keys = append(keys, m[1])
			}
		}
	}
	return keys
}
