package composition

import (
	"regexp"
	"strings"
)

// templatePattern matches "${name}" placeholders. Names follow Go
// identifier rules, which also admits the reserved _last binding.
var templatePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandArgs substitutes every "${name}" placeholder in args with the
// output of the named binding. Nested objects and arrays are walked
// recursively; non-string values pass through untouched. The input map
// is never mutated, so the same expression can be re-expanded on retry.
//
// A placeholder that references an unbound variable fails with an
// ArgTemplateError naming the tool and the variable.
func ExpandArgs(ec *Context, toolName string, args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	expanded, err := expandValue(ec, toolName, args)
	if err != nil {
		return nil, err
	}
	return expanded.(map[string]any), nil
}

func expandValue(ec *Context, toolName string, v any) (any, error) {
	switch value := v.(type) {
	case string:
		return expandString(ec, toolName, value)
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, inner := range value {
			expanded, err := expandValue(ec, toolName, inner)
			if err != nil {
				return nil, err
			}
			out[key] = expanded
		}
		return out, nil
	case []any:
		out := make([]any, len(value))
		for i, inner := range value {
			expanded, err := expandValue(ec, toolName, inner)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}

func expandString(ec *Context, toolName, s string) (string, error) {
	matches := templatePattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		name := s[m[2]:m[3]]
		bound, ok := ec.Lookup(name)
		if !ok {
			return "", &ArgTemplateError{Tool: toolName, Var: name}
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(bound.Output)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}
