package composition

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Condition is a boolean predicate evaluated against the bindings of a
// Context. Conditions inspect a subject variable (the reserved _last
// binding unless Var names another) and never execute tools themselves.
//
// Evaluation either answers definitively or fails: a malformed pattern
// or an unparsable subject yields a ConditionError rather than silently
// picking a branch.
type Condition interface {
	Eval(ec *Context) (bool, error)
}

// Success is true when the subject result reports success.
type Success struct {
	// Var names the subject binding. Empty means _last.
	Var string
}

// Contains is true when the value at Path inside the subject's output
// contains Value as a substring.
type Contains struct {
	Var   string
	Path  string
	Value string
}

// Matches is true when the value at Path inside the subject's output
// matches the regular expression Pattern.
type Matches struct {
	Var     string
	Path    string
	Pattern string
}

// And is true when every child condition is true. An empty And is true.
type And struct {
	All []Condition
}

// Or is true when at least one child condition is true. An empty Or is
// false.
type Or struct {
	Any []Condition
}

// Eval implements Condition.
func (c Success) Eval(ec *Context) (bool, error) {
	subject, err := conditionSubject(ec, c.Var)
	if err != nil {
		return false, err
	}
	return subject.Success, nil
}

// Eval implements Condition.
func (c Contains) Eval(ec *Context) (bool, error) {
	subject, err := conditionSubject(ec, c.Var)
	if err != nil {
		return false, err
	}
	value, found, err := extractPath(subject.Output, c.Path)
	if err != nil {
		return false, &ConditionError{Cond: "contains", Err: err}
	}
	if !found {
		return false, nil
	}
	return strings.Contains(value, c.Value), nil
}

// Eval implements Condition.
func (c Matches) Eval(ec *Context) (bool, error) {
	re, err := regexp.Compile(c.Pattern)
	if err != nil {
		return false, &ConditionError{Cond: "matches", Err: fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)}
	}
	subject, err := conditionSubject(ec, c.Var)
	if err != nil {
		return false, err
	}
	value, found, err := extractPath(subject.Output, c.Path)
	if err != nil {
		return false, &ConditionError{Cond: "matches", Err: err}
	}
	if !found {
		return false, nil
	}
	return re.MatchString(value), nil
}

// Eval implements Condition.
func (c And) Eval(ec *Context) (bool, error) {
	for _, inner := range c.All {
		ok, err := inner.Eval(ec)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Eval implements Condition.
func (c Or) Eval(ec *Context) (bool, error) {
	for _, inner := range c.Any {
		ok, err := inner.Eval(ec)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// conditionSubject resolves the binding a condition inspects. An unbound
// _last resolves to an empty successful result so conditions can run
// before any step has executed; any other unbound name is an evaluation
// error.
func conditionSubject(ec *Context, name string) (Result, error) {
	if name == "" {
		name = LastBinding
	}
	if value, ok := ec.Lookup(name); ok {
		return value, nil
	}
	if name == LastBinding {
		return successResult("{}"), nil
	}
	return Result{}, &ConditionError{Cond: "subject", Err: &UnboundVariableError{Name: name}}
}

// extractPath walks a dot-separated path through a JSON payload and
// renders the value it lands on as a string. Numeric segments index
// arrays. An empty path returns the payload verbatim. A missing key or
// out-of-range index reports found=false; a non-empty path into a
// payload that is not valid JSON is an error.
func extractPath(payload, path string) (value string, found bool, err error) {
	if path == "" {
		return payload, true, nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return "", false, fmt.Errorf("subject is not valid JSON: %w", err)
	}

	current := parsed
	for _, segment := range strings.Split(path, ".") {
		if index, convErr := strconv.Atoi(segment); convErr == nil {
			list, ok := current.([]any)
			if !ok || index < 0 || index >= len(list) {
				return "", false, nil
			}
			current = list[index]
			continue
		}
		object, ok := current.(map[string]any)
		if !ok {
			return "", false, nil
		}
		current, ok = object[segment]
		if !ok {
			return "", false, nil
		}
	}

	return valueAsString(current), true, nil
}

// valueAsString renders a decoded JSON value: strings unquoted,
// everything else in its JSON form.
func valueAsString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}
