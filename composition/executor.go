package composition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	ai "github.com/bigduu/conductor"
	"github.com/bigduu/conductor/event"
	"github.com/bigduu/conductor/retry"
	"github.com/bigduu/conductor/tool"
)

// ApproverFunc decides a single gated call. It blocks until a decision
// is available; reason accompanies a denial. Returning an error (for
// example an ApprovalTimeoutError) aborts the call with that error
// instead of a plain denial.
type ApproverFunc func(ctx context.Context, call ai.ToolCall) (approved bool, reason string, err error)

// Executor evaluates expression trees against a tool registry.
//
// An Executor is stateless across evaluations and safe for concurrent
// use; all per-evaluation state lives in the Context.
type Executor struct {
	registry       *tool.Registry
	approver       ApproverFunc
	events         chan<- event.Event
	maxConcurrency int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithApprover installs the decision function for tools registered with
// RequiresApproval. Without one, every gated call is denied.
func WithApprover(fn ApproverFunc) ExecutorOption {
	return func(e *Executor) {
		e.approver = fn
	}
}

// WithEventChannel mirrors execution events (tool calls, steps,
// approvals, retries) to ch. Sends never block; events are dropped when
// the channel is full.
func WithEventChannel(ch chan<- event.Event) ExecutorOption {
	return func(e *Executor) {
		e.events = ch
	}
}

// WithMaxConcurrency caps how many parallel branches run at once.
// Zero or negative means no cap.
func WithMaxConcurrency(n int) ExecutorOption {
	return func(e *Executor) {
		e.maxConcurrency = n
	}
}

// NewExecutor creates an executor bound to a tool registry.
func NewExecutor(registry *tool.Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute evaluates an expression tree. The result of a successful
// evaluation is bound to _last in ec, so consecutive Execute calls on
// one context chain naturally.
//
// A Result with Success=false is a tool-reported failure, not an error;
// hard failures (unknown tools, unbound variables, denied approvals,
// exhausted retries, cancellation) return a non-nil error instead.
func (e *Executor) Execute(ctx context.Context, expr Expr, ec *Context) (Result, error) {
	if ec == nil {
		ec = NewContext()
	}
	res, err := e.eval(ctx, expr, ec)
	if err == nil {
		ec.BindLast(res)
	}
	return res, err
}

func (e *Executor) eval(ctx context.Context, expr Expr, ec *Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res, err := e.evalNode(ctx, expr, ec)
	ec.logStep(exprName(expr), res, err)
	return res, err
}

func (e *Executor) evalNode(ctx context.Context, expr Expr, ec *Context) (Result, error) {
	switch n := expr.(type) {
	case *Call:
		return e.evalCall(ctx, n, ec)
	case *Sequence:
		return e.evalSequence(ctx, n, ec)
	case *Parallel:
		return e.evalParallel(ctx, n, ec)
	case *Choice:
		return e.evalChoice(ctx, n, ec)
	case *Retry:
		return e.evalRetry(ctx, n, ec)
	case *Let:
		return e.evalLet(ctx, n, ec)
	case *Var:
		return e.evalVar(n, ec)
	case nil:
		return Result{}, errors.New("composition: nil expression")
	default:
		return Result{}, fmt.Errorf("composition: unsupported expression type %T", expr)
	}
}

func (e *Executor) evalCall(ctx context.Context, n *Call, ec *Context) (Result, error) {
	if e.registry == nil {
		return Result{}, errors.New("composition: executor has no tool registry")
	}

	args, err := ExpandArgs(ec, n.Tool, n.Args)
	if err != nil {
		return Result{}, err
	}
	if _, ok := e.registry.GetTool(n.Tool); !ok {
		return Result{}, &tool.ErrToolNotFound{Name: n.Tool}
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return Result{}, fmt.Errorf("composition: encoding args for %s: %w", n.Tool, err)
	}
	id := n.ID
	if id == "" {
		id = uuid.NewString()
	}
	call := ai.ToolCall{
		ID:        id,
		Name:      n.Tool,
		Arguments: string(payload),
	}

	if e.registry.RequiresApproval(n.Tool) {
		if err := e.approve(ctx, call); err != nil {
			return Result{}, err
		}
	}

	e.emit(ctx, event.Event{Type: event.ToolCallStart, ToolCall: &call})

	callCtx := ctx
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}

	tr, err := e.registry.Execute(callCtx, call)
	if err != nil {
		return Result{}, err
	}
	// The surrounding composition being cancelled outranks whatever the
	// tool managed to return.
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	e.emit(ctx, event.Event{Type: event.ToolCallResult, ToolCall: &call, ToolResult: &tr})

	return Result{Success: !tr.IsError, Output: tr.Content}, nil
}

// approve routes a gated call through the approval gate. Approval is
// scoped to this one call; it never grants standing approval for the
// tool.
func (e *Executor) approve(ctx context.Context, call ai.ToolCall) error {
	e.emit(ctx, event.Event{Type: event.ApprovalRequested, RequestID: call.ID, ToolCall: &call})

	if e.approver == nil {
		reason := "no approver configured"
		e.emit(ctx, event.Event{Type: event.ToolCallRejected, RequestID: call.ID, ToolCall: &call, Message: reason})
		return &ApprovalDeniedError{Tool: call.Name, Reason: reason}
	}

	approved, reason, err := e.approver(ctx, call)
	if err != nil {
		return err
	}
	if !approved {
		e.emit(ctx, event.Event{Type: event.ToolCallRejected, RequestID: call.ID, ToolCall: &call, Message: reason})
		return &ApprovalDeniedError{Tool: call.Name, Reason: reason}
	}

	e.emit(ctx, event.Event{Type: event.ToolCallApproved, RequestID: call.ID, ToolCall: &call})
	return nil
}

func (e *Executor) evalSequence(ctx context.Context, n *Sequence, ec *Context) (Result, error) {
	if len(n.Steps) == 0 {
		return successResult("empty sequence"), nil
	}

	outcomes := make([]StepOutcome, 0, len(n.Steps))
	var last Result

	for i, step := range n.Steps {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		name := exprName(step)
		e.emit(ctx, event.Event{Type: event.StepStart, Step: i, StepName: name})

		res, err := e.eval(ctx, step, ec)
		if err != nil {
			if n.FailFast {
				return Result{}, err
			}
			res = failureResult(err.Error())
			outcomes = append(outcomes, StepOutcome{Index: i, Name: name, Output: res.Output, Err: err})
			ec.BindLast(res)
			last = res
			e.emit(ctx, event.Event{Type: event.StepEnd, Step: i, StepName: name, Error: err})
			continue
		}

		outcomes = append(outcomes, StepOutcome{Index: i, Name: name, Output: res.Output, Success: res.Success})
		ec.BindLast(res)
		last = res
		e.emit(ctx, event.Event{Type: event.StepEnd, Step: i, StepName: name})

		// Tool-reported failure stops a fail-fast sequence with that
		// step's result; later steps are never attempted.
		if n.FailFast && !res.Success {
			last.Steps = outcomes
			return last, nil
		}
	}

	last.Steps = outcomes
	if n.RequireAll {
		for _, o := range outcomes {
			if !o.Success {
				last.Success = false
				break
			}
		}
	}
	return last, nil
}

func (e *Executor) evalParallel(ctx context.Context, n *Parallel, ec *Context) (Result, error) {
	if len(n.Branches) == 0 {
		return successResult("empty parallel"), nil
	}

	wait := n.Wait
	if wait.Mode == "" {
		wait.Mode = WaitAll
	}
	if wait.Mode == WaitN {
		if wait.N < 1 {
			return Result{}, errors.New("composition: parallel wait requires n of at least 1")
		}
		if wait.N > len(n.Branches) {
			return Result{}, fmt.Errorf("composition: parallel wait n=%d exceeds %d branches", wait.N, len(n.Branches))
		}
	}

	e.emit(ctx, event.Event{Type: event.ParallelStart, Message: fmt.Sprintf("%d branches", len(n.Branches))})

	branchCtx, cancel := context.WithCancel(ctx)

	var sem chan struct{}
	if e.maxConcurrency > 0 {
		sem = make(chan struct{}, e.maxConcurrency)
	}

	// Buffered to branch count: stragglers after an early return still
	// complete their send and are collected by the GC, never leaked.
	done := make(chan StepOutcome, len(n.Branches))

	for i, branch := range n.Branches {
		go func(index int, br Expr) {
			name := exprName(br)
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-branchCtx.Done():
					done <- StepOutcome{Index: index, Name: name, Err: branchCtx.Err()}
					return
				}
			}
			res, err := e.eval(branchCtx, br, ec.Fork())
			done <- StepOutcome{
				Index:   index,
				Name:    name,
				Output:  res.Output,
				Success: err == nil && res.Success,
				Err:     err,
			}
		}(i, branch)
	}

	total := len(n.Branches)
	var res Result
	var err error
	var consumed int
	switch wait.Mode {
	case WaitAny:
		res, consumed, err = collectAny(done, total)
	case WaitN:
		res, consumed, err = collectN(wait, done, total)
	default:
		res, err = collectAll(done, total)
		consumed = total
	}

	// Any always cancels on first success. WaitN honors CancelRemaining:
	// when it is false, stragglers keep their context until they finish,
	// drained by a goroutine that releases it afterwards.
	if remaining := total - consumed; remaining > 0 && wait.Mode == WaitN && !wait.CancelRemaining {
		go func() {
			for i := 0; i < remaining; i++ {
				<-done
			}
			cancel()
		}()
	} else {
		cancel()
	}

	e.emit(ctx, event.Event{Type: event.ParallelEnd, Error: err})
	return res, err
}

// collectAll waits for every branch. A hard branch error surfaces as the
// error of the lowest failing index; otherwise the aggregate preserves
// one outcome per branch index and succeeds only if all branches did.
func collectAll(done <-chan StepOutcome, total int) (Result, error) {
	outcomes := make([]StepOutcome, total)
	for i := 0; i < total; i++ {
		bo := <-done
		outcomes[bo.Index] = bo
	}

	for _, o := range outcomes {
		if o.Err != nil {
			return Result{}, o.Err
		}
	}

	outputs := make([]string, total)
	firstFailure := -1
	for i, o := range outcomes {
		outputs[i] = o.Output
		if !o.Success && firstFailure < 0 {
			firstFailure = i
		}
	}

	if firstFailure >= 0 {
		res := failureResult(outcomes[firstFailure].Output)
		res.Steps = outcomes
		return res, nil
	}

	aggregate, err := json.Marshal(outputs)
	if err != nil {
		return Result{}, fmt.Errorf("composition: aggregating parallel outputs: %w", err)
	}
	return Result{Success: true, Output: string(aggregate), Steps: outcomes}, nil
}

// collectAny returns on the first successful branch. If every branch
// fails, the aggregate error carries one outcome per branch. The second
// return counts outcomes consumed from the channel.
func collectAny(done <-chan StepOutcome, total int) (Result, int, error) {
	failures := make([]StepOutcome, 0, total)
	for i := 0; i < total; i++ {
		bo := <-done
		if bo.Err == nil && bo.Success {
			return Result{Success: true, Output: bo.Output, Steps: []StepOutcome{bo}}, i + 1, nil
		}
		failures = append(failures, bo)
	}

	sort.Slice(failures, func(a, b int) bool { return failures[a].Index < failures[b].Index })
	return Result{}, total, &ParallelError{Failures: failures}
}

// collectN returns once the success threshold is met. Falling short
// surfaces the lowest-index hard error if one occurred, otherwise a
// soft failure describing the shortfall. The second return counts
// outcomes consumed from the channel.
func collectN(wait Wait, done <-chan StepOutcome, total int) (Result, int, error) {
	successes := make([]StepOutcome, 0, wait.N)
	all := make([]StepOutcome, 0, total)

	for i := 0; i < total; i++ {
		bo := <-done
		all = append(all, bo)
		if bo.Err != nil || !bo.Success {
			continue
		}
		successes = append(successes, bo)
		if len(successes) < wait.N {
			continue
		}

		sort.Slice(successes, func(a, b int) bool { return successes[a].Index < successes[b].Index })
		outputs := make([]string, len(successes))
		for j, s := range successes {
			outputs[j] = s.Output
		}
		aggregate, err := json.Marshal(outputs)
		if err != nil {
			return Result{}, i + 1, fmt.Errorf("composition: aggregating parallel outputs: %w", err)
		}
		return Result{Success: true, Output: string(aggregate), Steps: successes}, i + 1, nil
	}

	sort.Slice(all, func(a, b int) bool { return all[a].Index < all[b].Index })
	for _, o := range all {
		if o.Err != nil {
			return Result{}, total, o.Err
		}
	}
	res := failureResult(fmt.Sprintf("only %d of %d branches succeeded; required %d", len(successes), total, wait.N))
	res.Steps = all
	return res, total, nil
}

func (e *Executor) evalChoice(ctx context.Context, n *Choice, ec *Context) (Result, error) {
	if n.Condition == nil {
		return Result{}, errors.New("composition: choice requires a condition")
	}
	if n.Then == nil {
		return Result{}, errors.New("composition: choice requires a then branch")
	}

	ok, err := n.Condition.Eval(ec)
	if err != nil {
		return Result{}, err
	}

	if ok {
		e.emit(ctx, event.Event{Type: event.RouteSelected, RouteName: "then"})
		return e.eval(ctx, n.Then, ec)
	}
	if n.Else != nil {
		e.emit(ctx, event.Event{Type: event.RouteSelected, RouteName: "else"})
		return e.eval(ctx, n.Else, ec)
	}

	e.emit(ctx, event.Event{Type: event.StepSkipped, StepName: "choice"})
	return successResult("condition not met"), nil
}

func (e *Executor) evalRetry(ctx context.Context, n *Retry, ec *Context) (Result, error) {
	if n.Expr == nil {
		return Result{}, errors.New("composition: retry requires an expr")
	}
	attempts := n.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if attempt > 0 {
			e.emit(ctx, event.Event{Type: event.RetryAttempt, Attempt: attempt + 1, Error: lastErr})
		}

		res, err := e.eval(ctx, n.Expr, ec)
		if err == nil && res.Success {
			return res, nil
		}

		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// Cancellation of the surrounding composition is not a
			// retryable failure.
			return Result{}, err
		case err != nil:
			lastErr = err
		default:
			lastErr = errors.New(res.Output)
		}

		if attempt+1 < attempts {
			if err := backoffWait(ctx, n.Backoff, attempt); err != nil {
				return Result{}, err
			}
		}
	}

	return Result{}, &RetryExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// backoffWait sleeps for the configured delay, returning early if the
// composition is cancelled.
func backoffWait(ctx context.Context, cfg retry.Config, attempt int) error {
	delay := cfg.Delay(attempt)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) evalLet(ctx context.Context, n *Let, ec *Context) (Result, error) {
	if n.Var == "" {
		return Result{}, errors.New("composition: let requires a var name")
	}
	if n.Value == nil || n.Body == nil {
		return Result{}, errors.New("composition: let requires value and body expressions")
	}

	value, err := e.eval(ctx, n.Value, ec)
	if err != nil {
		return Result{}, err
	}

	scope := ec.Child()
	scope.Bind(n.Var, value)
	scope.BindLast(value)
	return e.eval(ctx, n.Body, scope)
}

func (e *Executor) evalVar(n *Var, ec *Context) (Result, error) {
	if value, ok := ec.Lookup(n.Name); ok {
		return value, nil
	}
	return Result{}, &UnboundVariableError{Name: n.Name}
}

func (e *Executor) emit(ctx context.Context, ev event.Event) {
	if e.events != nil {
		event.Emit(e.events, ev)
	}
	event.Forward(ctx, ev)
}
