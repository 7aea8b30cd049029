package tool

import (
	"fmt"
	"strings"
)

// ErrToolNotFound is returned when a tool call references an unregistered tool.
type ErrToolNotFound struct {
	Name string
}

// Error returns a formatted error message including the tool name.
func (e *ErrToolNotFound) Error() string {
	return fmt.Sprintf("tool: not found: %s", e.Name)
}

// ErrToolAlreadyRegistered is returned when registering a tool with a duplicate name.
type ErrToolAlreadyRegistered struct {
	Name string
}

// Error returns a formatted error message including the duplicate tool name.
func (e *ErrToolAlreadyRegistered) Error() string {
	return fmt.Sprintf("tool: already registered: %s", e.Name)
}

// ErrInvalidRegistration is returned for registrations with an empty name
// or a nil handler.
type ErrInvalidRegistration struct {
	Name   string
	Reason string
}

// Error returns a formatted error message including the reason.
func (e *ErrInvalidRegistration) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("tool: invalid registration: %s", e.Reason)
	}
	return fmt.Sprintf("tool: invalid registration for %s: %s", e.Name, e.Reason)
}

// ErrToolExecution wraps errors from tool handler execution.
type ErrToolExecution struct {
	Name string
	Err  error
}

// Error returns a formatted error message including the tool name and cause.
func (e *ErrToolExecution) Error() string {
	return fmt.Sprintf("tool: %s execution failed: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ErrToolExecution) Unwrap() error {
	return e.Err
}

// ErrInvalidArguments is returned when tool call arguments fail schema
// validation. Violations holds one message per failed constraint.
type ErrInvalidArguments struct {
	Name       string
	Violations []string
}

// Error returns a formatted error message including all violations.
func (e *ErrInvalidArguments) Error() string {
	return fmt.Sprintf("tool: invalid arguments for %s: %s", e.Name, strings.Join(e.Violations, "; "))
}
