package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	ai "github.com/bigduu/conductor"
	"github.com/bigduu/conductor/chat"
	"github.com/bigduu/conductor/composition"
	"github.com/bigduu/conductor/event"
	"github.com/bigduu/conductor/tool"
)

// Loop drives autonomous tool-calling turns: stream a model response,
// dispatch its tool calls through the composition executor, feed the
// results back, and repeat until the model answers without tools.
//
// Gated calls block on the approval broker, tools may suspend the turn
// with a clarification question, and agentic results can queue
// follow-up actions without an LLM round-trip. The machine tracks
// which phase the conversation is in.
type Loop struct {
	client         chat.Client
	registry       *tool.Registry
	executor       *composition.Executor
	machine        *Machine
	approvals      *ApprovalBroker
	clarifications *ClarificationBroker
	conversationID string
	execOpts       []composition.ExecutorOption
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithApprovalBroker shares an approval broker with the loop. Without
// one the loop creates its own.
func WithApprovalBroker(b *ApprovalBroker) LoopOption {
	return func(l *Loop) {
		l.approvals = b
	}
}

// WithClarificationBroker shares a clarification broker with the loop.
func WithClarificationBroker(b *ClarificationBroker) LoopOption {
	return func(l *Loop) {
		l.clarifications = b
	}
}

// WithMachine shares a state machine with the loop. Engines pass the
// per-conversation machine so state survives across turns.
func WithMachine(m *Machine) LoopOption {
	return func(l *Loop) {
		l.machine = m
	}
}

// WithConversationID stamps approval and clarification requests with
// the owning conversation.
func WithConversationID(id string) LoopOption {
	return func(l *Loop) {
		l.conversationID = id
	}
}

// WithExecutorOptions passes extra options to the loop's composition
// executor, for example composition.WithMaxConcurrency.
func WithExecutorOptions(opts ...composition.ExecutorOption) LoopOption {
	return func(l *Loop) {
		l.execOpts = append(l.execOpts, opts...)
	}
}

// New creates a Loop over a chat client and tool registry.
func New(client chat.Client, registry *tool.Registry, opts ...LoopOption) *Loop {
	l := &Loop{
		client:   client,
		registry: registry,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.machine == nil {
		l.machine = NewMachine()
	}
	if l.approvals == nil {
		l.approvals = NewApprovalBroker()
	}
	if l.clarifications == nil {
		l.clarifications = NewClarificationBroker()
	}

	execOpts := append([]composition.ExecutorOption{composition.WithApprover(l.approve)}, l.execOpts...)
	l.executor = composition.NewExecutor(registry, execOpts...)
	return l
}

// Machine returns the loop's state machine.
func (l *Loop) Machine() *Machine {
	return l.machine
}

// Approvals returns the loop's approval broker.
func (l *Loop) Approvals() *ApprovalBroker {
	return l.approvals
}

// Clarifications returns the loop's clarification broker.
func (l *Loop) Clarifications() *ClarificationBroker {
	return l.clarifications
}

// Executor returns the loop's composition executor, for registering the
// compose tool or running expressions directly.
func (l *Loop) Executor() *composition.Executor {
	return l.executor
}

// Run executes one turn and blocks until it finishes. The returned
// Result carries the final response, the full message history, and the
// termination reason; Result.Error is also returned for convenience.
func (l *Loop) Run(ctx context.Context, messages []ai.Message, opts ...Option) (*Result, error) {
	options := ApplyOptions(opts...)

	result := &Result{messages: append([]ai.Message(nil), messages...)}
	prev := options.MessageSink
	options.MessageSink = func(msgs []ai.Message) {
		if prev != nil {
			prev(msgs)
		}
		result.messages = msgs
	}

	eventCh := event.NewChannel()
	go l.run(ctx, messages, eventCh, options)

	var lastResponse *ai.Response
	var usage ai.Usage

	for ev := range eventCh {
		if ev.Step > result.Steps {
			result.Steps = ev.Step
		}
		switch ev.Type {
		case event.MessageEnd:
			if ev.Response != nil {
				usage.InputTokens += ev.Response.Usage.InputTokens
				usage.OutputTokens += ev.Response.Usage.OutputTokens
				lastResponse = ev.Response
			}

		case event.RunEnd:
			result.Response = ev.Response
			result.Termination = TerminationReason(ev.Message)
			if result.Response == nil {
				result.Response = lastResponse
			}

		case event.RunError:
			result.Error = ev.Error
			result.Termination = TerminationReason(ev.Message)
			if result.Termination == "" {
				result.Termination = TerminationError
			}
		}
	}

	result.TotalUsage = usage
	return result, result.Error
}

// RunStream executes one turn and returns its event stream. The
// channel is closed when the turn completes or fails; callers should
// drain it.
func (l *Loop) RunStream(ctx context.Context, messages []ai.Message, opts ...Option) <-chan event.Event {
	eventCh := event.NewChannel()
	go l.run(ctx, messages, eventCh, ApplyOptions(opts...))
	return eventCh
}

func (l *Loop) run(ctx context.Context, messages []ai.Message, eventCh chan<- event.Event, options *Options) {
	defer close(eventCh)

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}
	// Executor events (tool calls, approvals, composition steps) and
	// state changes surface on the run's stream through the context.
	ctx = event.WithForwardChannel(ctx, eventCh)

	t := &turn{
		loop:    l,
		options: options,
		eventCh: eventCh,
		history: append([]ai.Message(nil), messages...),
	}
	t.execute(ctx)
}

// transition moves the machine and mirrors the change onto the run's
// event stream.
func (l *Loop) transition(ctx context.Context, to State) error {
	from := l.machine.State()
	if err := l.machine.To(to); err != nil {
		return err
	}
	event.Forward(ctx, event.Event{Type: event.StateChanged, From: string(from), To: string(to)})
	return nil
}

// approve adapts the approval broker to the executor's callback. The
// machine parks in awaiting_approval for the decision and lands in
// tool_execution however it resolves; denial and timeout become the
// call's failure, never the turn's.
func (l *Loop) approve(ctx context.Context, call ai.ToolCall) (bool, string, error) {
	if err := l.transition(ctx, StateAwaitingApproval); err != nil {
		return false, "", err
	}

	def, _ := l.registry.GetTool(call.Name)
	dec, reqErr := l.approvals.Request(ctx, ApprovalRequest{
		ID:             call.ID,
		ConversationID: l.conversationID,
		Call:           call,
		Tool:           def,
	})

	if err := l.transition(ctx, StateToolExecution); err != nil {
		return false, "", err
	}
	if reqErr != nil {
		return false, "", reqErr
	}
	return dec.Approved, dec.Reason, nil
}

// turn is the per-run state: the history being built, the step
// counter, and the stream everything reports to.
type turn struct {
	loop    *Loop
	options *Options
	eventCh chan<- event.Event
	history []ai.Message
	step    int
}

func (t *turn) execute(ctx context.Context) {
	event.Send(t.eventCh, event.Event{Type: event.RunStart})
	if err := t.loop.transition(ctx, StateAwaitingLLM); err != nil {
		t.fail(ctx, err, TerminationError)
		return
	}

	for {
		if err := ctx.Err(); err != nil {
			t.fail(ctx, err, cancelReason(err))
			return
		}
		if t.options.MaxSteps > 0 && t.step >= t.options.MaxSteps {
			t.fail(ctx, ErrMaxStepsReached, TerminationMaxSteps)
			return
		}
		t.step++

		event.Emit(t.eventCh, event.Event{Type: event.LoopIteration, Step: t.step, Iteration: t.step})

		// Tools are snapshotted per round; registry changes apply from
		// the next iteration.
		chatOpts := append([]ai.Option{ai.WithTools(t.loop.registry.Tools())}, t.options.ChatOptions...)

		response, err := t.streamStep(ctx, chatOpts)
		if err != nil {
			t.fail(ctx, err, cancelReason(err))
			return
		}

		if t.options.StopPredicate != nil && t.options.StopPredicate(t.step, response) {
			t.finish(ctx, response, TerminationCustom)
			return
		}
		if len(response.ToolCalls) == 0 {
			t.finish(ctx, response, TerminationComplete)
			return
		}

		t.append(ai.Message{
			ID:        ai.GenerateMessageID(),
			Role:      ai.RoleAssistant,
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		if err := t.processBatch(ctx, response.ToolCalls); err != nil {
			var depthErr *LoopDepthError
			if errors.As(err, &depthErr) {
				t.fail(ctx, err, TerminationLoopDepth)
				return
			}
			t.fail(ctx, err, cancelReason(err))
			return
		}

		if err := t.loop.transition(ctx, StateAwaitingLLM); err != nil {
			t.fail(ctx, err, TerminationError)
			return
		}
	}
}

// streamStep runs one model round, forwarding the stream with a
// step-scoped message ID. The machine enters streaming_response when
// the first stream event arrives.
func (t *turn) streamStep(ctx context.Context, chatOpts []ai.Option) (*ai.Response, error) {
	streamCh, err := t.loop.client.ChatStream(ctx, t.history, chatOpts...)
	if err != nil {
		return nil, err
	}

	messageID := fmt.Sprintf("msg_%d_%d", t.step, time.Now().UnixNano())
	started := false
	var response *ai.Response

	start := func() error {
		if started {
			return nil
		}
		started = true
		if err := t.loop.transition(ctx, StateStreamingResponse); err != nil {
			return err
		}
		event.Emit(t.eventCh, event.Event{Type: event.MessageStart, Step: t.step, MessageID: messageID})
		return nil
	}

	for ev := range streamCh {
		switch ev.Type {
		case event.RunError:
			return nil, ev.Error

		case event.MessageStart:
			if err := start(); err != nil {
				return nil, err
			}

		case event.MessageDelta:
			if err := start(); err != nil {
				return nil, err
			}
			event.Emit(t.eventCh, event.Event{
				Type:      event.MessageDelta,
				Step:      t.step,
				MessageID: messageID,
				Delta:     ev.Delta,
			})

		case event.MessageEnd:
			if err := start(); err != nil {
				return nil, err
			}
			event.Emit(t.eventCh, event.Event{
				Type:      event.MessageEnd,
				Step:      t.step,
				MessageID: messageID,
				Response:  ev.Response,
			})
			response = ev.Response
		}
	}

	if response == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("agent: stream ended without a response")
	}
	return response, nil
}

// processBatch executes one round's tool calls and applies their
// agentic side effects. Fully ungated batches may run in parallel; a
// batch with a gated call or a compose dispatch runs sequentially.
func (t *turn) processBatch(ctx context.Context, calls []ai.ToolCall) error {
	hasGated := false
	hasCompose := false
	for _, tc := range calls {
		if tc.Name == ComposeToolName {
			hasCompose = true
		}
		if t.loop.registry.RequiresApproval(tc.Name) {
			hasGated = true
		}
	}

	first := StateToolExecution
	if hasGated {
		first = StateAwaitingApproval
	}
	if err := t.loop.transition(ctx, first); err != nil {
		return err
	}

	var results []ai.ToolResult
	var err error
	if t.options.ParallelToolCalls && len(calls) > 1 && !hasGated && !hasCompose {
		results, err = t.dispatchParallel(ctx, calls)
	} else {
		results, err = t.dispatchSequential(ctx, calls)
	}
	if err != nil {
		return err
	}

	// A gated call that failed before its approval ran leaves the
	// machine parked; normalize before the post-execution phases.
	if t.loop.machine.State() == StateAwaitingApproval {
		if err := t.loop.transition(ctx, StateToolExecution); err != nil {
			return err
		}
	}

	outcome := t.scanResults(results)
	t.append(ai.NewToolResultMessage(outcome.results...))

	if outcome.clarify != nil {
		return t.awaitClarification(ctx, *outcome.clarify)
	}
	if len(outcome.queue) > 0 {
		return t.runSubActions(ctx, outcome.queue)
	}
	return nil
}

func (t *turn) dispatchSequential(ctx context.Context, calls []ai.ToolCall) ([]ai.ToolResult, error) {
	results := make([]ai.ToolResult, len(calls))
	for i, tc := range calls {
		res, err := t.dispatchCall(ctx, tc)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func (t *turn) dispatchParallel(ctx context.Context, calls []ai.ToolCall) ([]ai.ToolResult, error) {
	results := make([]ai.ToolResult, len(calls))
	errs := make([]error, len(calls))
	var wg sync.WaitGroup

	for i, tc := range calls {
		wg.Add(1)
		go func(idx int, call ai.ToolCall) {
			defer wg.Done()
			results[idx], errs[idx] = t.dispatchCall(ctx, call)
		}(i, tc)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// dispatchCall routes one tool call through the composition executor.
// Executor failures, including denied approvals, come back as erroring
// results the model sees; only run cancellation is a hard error.
func (t *turn) dispatchCall(ctx context.Context, tc ai.ToolCall) (ai.ToolResult, error) {
	if err := ctx.Err(); err != nil {
		return ai.ToolResult{}, err
	}

	args, err := parseCallArgs(tc)
	if err != nil {
		return errorResult(tc.ID, err), nil
	}

	execCtx := ctx
	if t.options.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, t.options.HandlerTimeout)
		defer cancel()
	}

	expr := &composition.Call{ID: tc.ID, Tool: tc.Name, Args: args}
	res, err := t.loop.executor.Execute(execCtx, expr, composition.NewContext())
	if err != nil {
		if ctx.Err() != nil {
			return ai.ToolResult{}, ctx.Err()
		}
		return errorResult(tc.ID, err), nil
	}
	return ai.ToolResult{ToolCallID: tc.ID, Content: res.Output, IsError: !res.Success}, nil
}

// batchOutcome is what a scanned batch leaves behind: the rewritten
// results, at most one pending question (the first wins), and queued
// sub-actions.
type batchOutcome struct {
	results []ai.ToolResult
	clarify *pendingClarification
	queue   []queuedAction
}

type pendingClarification struct {
	toolCallID string
	question   string
	options    []string
}

type queuedAction struct {
	call  ai.ToolCall
	depth int
}

func (t *turn) scanResults(results []ai.ToolResult) batchOutcome {
	out := batchOutcome{results: results}
	for i := range results {
		agentic, ok := Parse(results[i].Content)
		if !ok {
			continue
		}
		foldAgentic(&results[i], agentic)

		switch agentic.Kind {
		case KindNeedClarification:
			if out.clarify == nil {
				out.clarify = &pendingClarification{
					toolCallID: results[i].ToolCallID,
					question:   agentic.Question,
					options:    agentic.Options,
				}
			}
		case KindNeedMoreActions:
			for _, action := range agentic.Actions {
				out.queue = append(out.queue, queuedAction{call: action, depth: 1})
			}
		}
	}
	return out
}

// foldAgentic rewrites an agentic payload into the text the model sees.
func foldAgentic(res *ai.ToolResult, agentic AgenticResult) {
	switch agentic.Kind {
	case KindSuccess:
		res.Content = agentic.Result
		res.IsError = false
	case KindError:
		res.Content = "Error: " + agentic.Error
		res.IsError = true
	case KindNeedClarification:
		res.Content = "Clarification needed: " + agentic.Question
		res.IsError = false
	case KindNeedMoreActions:
		res.Content = fmt.Sprintf("Need more actions: %s (%d actions pending)", agentic.Reason, len(agentic.Actions))
		res.IsError = false
	}
}

// awaitClarification suspends the turn on a question. An answer joins
// the history as a user message; a timeout or explicit cancellation
// becomes an erroring tool result and the turn continues either way.
func (t *turn) awaitClarification(ctx context.Context, pc pendingClarification) error {
	req := ClarificationRequest{
		ID:             uuid.NewString(),
		ConversationID: t.loop.conversationID,
		ToolCallID:     pc.toolCallID,
		Question:       pc.question,
		Options:        pc.options,
	}

	event.Emit(t.eventCh, event.Event{
		Type:      event.ClarificationRequested,
		Step:      t.step,
		RequestID: req.ID,
		Question:  req.Question,
		Choices:   req.Options,
	})
	if err := t.loop.transition(ctx, StateAwaitingClarification); err != nil {
		return err
	}

	ans, err := t.loop.clarifications.Request(ctx, req)
	if err != nil {
		var timeout *ClarificationTimeoutError
		if errors.As(err, &timeout) {
			t.rewriteToolResult(pc.toolCallID, "clarification timed out", true)
			return nil
		}
		return err
	}

	event.Emit(t.eventCh, event.Event{
		Type:      event.ClarificationAnswered,
		Step:      t.step,
		RequestID: req.ID,
		Message:   ans.Answer,
	})

	if ans.Cancelled {
		t.rewriteToolResult(pc.toolCallID, "clarification cancelled by user", true)
		return nil
	}

	t.append(ai.NewUserMessage(ans.Answer))
	return nil
}

// runSubActions drains the agentic work queue without an LLM
// round-trip. Nested need_more_actions extend the queue one level
// deeper; exceeding the depth or processed limit fails the turn.
func (t *turn) runSubActions(ctx context.Context, queue []queuedAction) error {
	processed := 0

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.depth > t.options.MaxAutoDepth {
			return &LoopDepthError{Depth: item.depth, Max: t.options.MaxAutoDepth}
		}
		processed++
		if processed > MaxSubActions {
			return &LoopDepthError{Processed: processed, Max: MaxSubActions}
		}

		tc := item.call
		if tc.ID == "" {
			tc.ID = uuid.NewString()
		}

		res, err := t.dispatchCall(ctx, tc)
		if err != nil {
			return err
		}

		agentic, ok := Parse(res.Content)
		if !ok {
			t.append(ai.NewToolResultMessage(res))
			continue
		}
		foldAgentic(&res, agentic)
		t.append(ai.NewToolResultMessage(res))

		switch agentic.Kind {
		case KindNeedClarification:
			// The question outranks whatever is still queued.
			return t.awaitClarification(ctx, pendingClarification{
				toolCallID: tc.ID,
				question:   agentic.Question,
				options:    agentic.Options,
			})
		case KindNeedMoreActions:
			for _, action := range agentic.Actions {
				queue = append(queue, queuedAction{call: action, depth: item.depth + 1})
			}
		}
	}
	return nil
}

// finish completes the turn with a final response.
func (t *turn) finish(ctx context.Context, response *ai.Response, reason TerminationReason) {
	if response != nil && response.Content != "" {
		t.append(ai.NewAssistantMessage(response.Content, nil))
	}
	if err := t.loop.transition(ctx, StateCompleted); err != nil {
		t.fail(ctx, err, TerminationError)
		return
	}
	event.Send(t.eventCh, event.Event{
		Type:     event.RunEnd,
		Step:     t.step,
		Response: response,
		Message:  string(reason),
	})
}

// fail ends the turn with an error.
func (t *turn) fail(ctx context.Context, err error, reason TerminationReason) {
	_ = t.loop.transition(ctx, StateFailed)
	event.Send(t.eventCh, event.Event{
		Type:    event.RunError,
		Step:    t.step,
		Error:   err,
		Message: string(reason),
	})
}

// append adds a message to the turn history and notifies the sink.
func (t *turn) append(msg ai.Message) {
	t.history = append(t.history, msg)
	t.notifySink()
}

// rewriteToolResult replaces the recorded result for a tool call. The
// clarification placeholder is rewritten in place on timeout or
// cancellation: providers reject a second result for the same call ID.
func (t *turn) rewriteToolResult(toolCallID, content string, isError bool) {
	for i := len(t.history) - 1; i >= 0; i-- {
		msg := &t.history[i]
		if msg.Role != ai.RoleTool {
			continue
		}
		for j := range msg.ToolResults {
			if msg.ToolResults[j].ToolCallID == toolCallID {
				msg.ToolResults[j].Content = content
				msg.ToolResults[j].IsError = isError
				t.notifySink()
				return
			}
		}
	}
}

func (t *turn) notifySink() {
	if t.options.MessageSink != nil {
		t.options.MessageSink(append([]ai.Message(nil), t.history...))
	}
}

func parseCallArgs(tc ai.ToolCall) (map[string]any, error) {
	if strings.TrimSpace(tc.Arguments) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return nil, fmt.Errorf("agent: parsing arguments for %s: %w", tc.Name, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func errorResult(callID string, err error) ai.ToolResult {
	return ai.ToolResult{ToolCallID: callID, Content: "Error: " + err.Error(), IsError: true}
}

func cancelReason(err error) TerminationReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return TerminationTimeout
	case errors.Is(err, context.Canceled):
		return TerminationCancelled
	default:
		return TerminationError
	}
}
