package composition

import (
	"time"

	"github.com/bigduu/conductor/retry"
)

// Expr is an expression tree node. The seven concrete kinds are Call,
// Sequence, Parallel, Choice, Retry, Let, and Var. Each node owns its
// children; trees are acyclic and safe to evaluate without copying.
type Expr interface {
	isExpr()
}

func (*Call) isExpr()     {}
func (*Sequence) isExpr() {}
func (*Parallel) isExpr() {}
func (*Choice) isExpr()   {}
func (*Retry) isExpr()    {}
func (*Let) isExpr()      {}
func (*Var) isExpr()      {}

// Call invokes a single registered tool. Any "${name}" placeholders in
// Args are substituted from the context before the tool runs.
type Call struct {
	// Tool is the registry name, matched case-sensitively.
	Tool string
	// Args are the tool arguments prior to placeholder expansion.
	Args map[string]any
	// Timeout bounds this call's execution. Zero means no deadline
	// beyond whatever the surrounding context imposes.
	Timeout time.Duration
	// ID, when set, is used as the tool-call ID instead of a generated
	// one. The agent loop sets it so events and approval requests
	// correlate with the model's own tool-call ID.
	ID string
}

// Sequence executes steps in declared order.
type Sequence struct {
	Steps []Expr
	// FailFast stops at the first failing step. A hard error propagates
	// immediately; a tool-reported failure ends the sequence with that
	// step's result. When false, every step runs and errors are folded
	// into the per-step outcomes.
	FailFast bool
	// RequireAll makes a non-fail-fast sequence report failure unless
	// every step succeeded. Ignored when FailFast is true.
	RequireAll bool
}

// WaitMode selects the completion policy for a Parallel node.
type WaitMode string

const (
	// WaitAll waits for every branch and succeeds only if all do.
	WaitAll WaitMode = "all"
	// WaitAny returns on the first successful branch.
	WaitAny WaitMode = "any"
	// WaitN returns once N branches have succeeded.
	WaitN WaitMode = "n"
)

// Wait configures how a Parallel node resolves.
type Wait struct {
	Mode WaitMode
	// N is the success threshold for WaitN.
	N int
	// CancelRemaining cancels still-running branches once a WaitN quorum
	// is satisfied; when false, stragglers run to completion. WaitAny
	// always cancels on the first success. Cancellation is cooperative:
	// a branch observes it at its own suspension points.
	CancelRemaining bool
}

// WaitForAll waits for every branch to complete.
func WaitForAll() Wait {
	return Wait{Mode: WaitAll}
}

// WaitForAny returns on the first success and cancels the remaining
// branches.
func WaitForAny() Wait {
	return Wait{Mode: WaitAny, CancelRemaining: true}
}

// WaitForN returns once n branches succeed and cancels the remaining
// branches. Construct a Wait literal with CancelRemaining false to let
// stragglers run to completion instead.
func WaitForN(n int) Wait {
	return Wait{Mode: WaitN, N: n, CancelRemaining: true}
}

// Parallel executes branches concurrently. Each branch evaluates in a
// forked context, so bindings made inside one branch are not visible to
// its siblings or to the enclosing scope.
type Parallel struct {
	Branches []Expr
	Wait     Wait
}

// Choice evaluates a condition against the current context and executes
// the matching branch. A missing Else turns a false condition into a
// successful no-op.
type Choice struct {
	Condition Condition
	Then      Expr
	Else      Expr
}

// Retry re-executes Expr until it succeeds or MaxAttempts is exhausted.
// Both hard errors and tool-reported failures count as failed attempts.
type Retry struct {
	Expr        Expr
	MaxAttempts int
	// Backoff supplies the delay schedule between attempts. The
	// MaxAttempts on this node is authoritative; Backoff.MaxAttempts is
	// ignored.
	Backoff retry.Config
}

// Let evaluates Value, binds it to Var in a child scope, and evaluates
// Body in that scope. The binding does not leak to the parent scope.
type Let struct {
	Var   string
	Value Expr
	Body  Expr
}

// Var resolves a variable bound by an enclosing Let (or the reserved
// _last binding) and yields its value unchanged.
type Var struct {
	Name string
}

// NewCall builds a Call expression.
func NewCall(toolName string, args map[string]any) *Call {
	return &Call{Tool: toolName, Args: args}
}

// WithTimeout sets a per-call deadline.
func (c *Call) WithTimeout(d time.Duration) *Call {
	c.Timeout = d
	return c
}

// NewSequence builds a fail-fast sequence.
func NewSequence(steps ...Expr) *Sequence {
	return &Sequence{Steps: steps, FailFast: true}
}

// NewParallel builds a parallel node that waits for every branch.
func NewParallel(branches ...Expr) *Parallel {
	return &Parallel{Branches: branches, Wait: WaitForAll()}
}

// WithWait overrides the completion policy.
func (p *Parallel) WithWait(w Wait) *Parallel {
	p.Wait = w
	return p
}

// NewChoice builds a conditional without an else branch.
func NewChoice(cond Condition, then Expr) *Choice {
	return &Choice{Condition: cond, Then: then}
}

// WithElse sets the branch taken when the condition is false.
func (c *Choice) WithElse(e Expr) *Choice {
	c.Else = e
	return c
}

// NewRetry builds a retry node with a fixed one-second delay between
// attempts. Set Backoff for a different schedule.
func NewRetry(expr Expr, maxAttempts int) *Retry {
	return &Retry{
		Expr:        expr,
		MaxAttempts: maxAttempts,
		Backoff:     retry.Fixed(maxAttempts, time.Second),
	}
}

// NewLet builds a variable binding expression.
func NewLet(name string, value, body Expr) *Let {
	return &Let{Var: name, Value: value, Body: body}
}

// NewVar builds a variable reference.
func NewVar(name string) *Var {
	return &Var{Name: name}
}

// exprName reports the expression kind for traces and events.
func exprName(e Expr) string {
	switch e.(type) {
	case *Call:
		return "call"
	case *Sequence:
		return "sequence"
	case *Parallel:
		return "parallel"
	case *Choice:
		return "choice"
	case *Retry:
		return "retry"
	case *Let:
		return "let"
	case *Var:
		return "var"
	default:
		return "unknown"
	}
}
