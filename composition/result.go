package composition

// LastBinding is the reserved variable name that always holds the result
// of the most recently completed expression. It is rebound after every
// sequence step and after each top-level Execute call, so downstream
// steps and conditions can reference "${_last}" without an explicit Let.
const LastBinding = "_last"

// Result is the value produced by evaluating an expression.
type Result struct {
	// Success reports whether the expression completed successfully.
	// A tool that runs but reports an error yields Success=false without
	// a hard error; hard errors are returned separately by Execute.
	Success bool

	// Output is the textual payload of the result. For a Call this is
	// the tool's output; for aggregate nodes it summarizes the outcome.
	Output string

	// Steps holds per-step (Sequence) or per-branch (Parallel) outcomes
	// for aggregate nodes, ordered by declaration index. Nil for leaf
	// expressions.
	Steps []StepOutcome
}

// StepOutcome records the outcome of a single step or branch inside an
// aggregate result. Index is the declaration position, which is stable
// even when parallel branches complete out of order.
type StepOutcome struct {
	Index   int
	Name    string
	Output  string
	Success bool
	Err     error
}

func successResult(output string) Result {
	return Result{Success: true, Output: output}
}

func failureResult(output string) Result {
	return Result{Success: false, Output: output}
}
