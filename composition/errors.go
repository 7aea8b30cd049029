package composition

import (
	"fmt"
	"time"
)

// UnboundVariableError reports a Var reference (or condition subject)
// that is not bound in any enclosing scope.
type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("composition: unbound variable: %s", e.Name)
}

// ArgTemplateError reports a "${name}" placeholder in a Call's arguments
// that references an unbound variable.
type ArgTemplateError struct {
	Tool string
	Var  string
}

func (e *ArgTemplateError) Error() string {
	return fmt.Sprintf("composition: args for %s reference unbound variable ${%s}", e.Tool, e.Var)
}

// ConditionError reports that a Choice condition could not be evaluated.
// The executor fails the Choice rather than guessing a branch.
type ConditionError struct {
	// Cond identifies the condition kind ("contains", "matches", ...).
	Cond string
	Err  error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("composition: evaluating %s condition: %v", e.Cond, e.Err)
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}

// RetryExhaustedError reports that a Retry node failed on every attempt.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("composition: retry exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}

// ParallelError reports a Parallel node with WaitAny whose branches all
// failed. Failures holds one outcome per branch, ordered by branch
// index; entries with a nil Err failed softly (the tool ran but reported
// an error).
type ParallelError struct {
	Failures []StepOutcome
}

func (e *ParallelError) Error() string {
	return fmt.Sprintf("composition: no parallel branch succeeded (%d branches)", len(e.Failures))
}

// Unwrap returns the lowest-index hard error among the failures, if any.
func (e *ParallelError) Unwrap() error {
	for _, f := range e.Failures {
		if f.Err != nil {
			return f.Err
		}
	}
	return nil
}

// ApprovalDeniedError reports that a gated call was refused. Within a
// composition the denial fails the call; the agent loop folds it back to
// the model as an erroring tool result rather than stopping the turn.
type ApprovalDeniedError struct {
	Tool   string
	Reason string
}

func (e *ApprovalDeniedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("composition: approval denied for %s", e.Tool)
	}
	return fmt.Sprintf("composition: approval denied for %s: %s", e.Tool, e.Reason)
}

// ApprovalTimeoutError reports that no approval decision arrived in
// time. Treated like a denial, with a distinguishable type.
type ApprovalTimeoutError struct {
	Tool    string
	Timeout time.Duration
}

func (e *ApprovalTimeoutError) Error() string {
	return fmt.Sprintf("composition: approval for %s timed out after %s", e.Tool, e.Timeout)
}
