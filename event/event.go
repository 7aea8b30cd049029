// Package event provides a unified event system for streaming responses
// across the client, composition, agent, and engine packages. The event
// types are designed for 1:1 mapping with the AG-UI protocol.
package event

import (
	"time"

	ai "github.com/bigduu/conductor"
)

// Type identifies the kind of event.
type Type string

// Run lifecycle events
const (
	// RunStart fires when execution begins (agent turn or chat stream).
	RunStart Type = "run_start"

	// RunEnd fires when execution completes successfully.
	RunEnd Type = "run_end"

	// RunError fires when an unrecoverable error occurs.
	RunError Type = "run_error"

	// StateChanged fires on every agent state machine transition.
	StateChanged Type = "state_changed"
)

// Message lifecycle events
const (
	// MessageStart fires when an assistant message begins.
	MessageStart Type = "message_start"

	// MessageDelta fires for each streaming token.
	MessageDelta Type = "message_delta"

	// MessageEnd fires when an assistant message completes.
	MessageEnd Type = "message_end"
)

// Tool call lifecycle events
const (
	// ToolCallStart fires when a tool call begins (contains tool name).
	ToolCallStart Type = "tool_call_start"

	// ToolCallArgs fires with tool call arguments.
	ToolCallArgs Type = "tool_call_args"

	// ToolCallEnd fires when tool call transmission is complete.
	ToolCallEnd Type = "tool_call_end"

	// ToolCallResult fires with the tool execution result.
	ToolCallResult Type = "tool_call_result"

	// ToolCallExecuting fires before tool handler execution begins.
	ToolCallExecuting Type = "tool_call_executing"
)

// Human-in-the-loop events
const (
	// ApprovalRequested fires when a gated tool call needs a decision.
	ApprovalRequested Type = "approval_requested"

	// ToolCallApproved fires when a tool call is approved.
	ToolCallApproved Type = "tool_call_approved"

	// ToolCallRejected fires when a tool call is rejected.
	ToolCallRejected Type = "tool_call_rejected"

	// ClarificationRequested fires when the agent needs an answer from the
	// user before it can continue.
	ClarificationRequested Type = "clarification_requested"

	// ClarificationAnswered fires when the user's answer is routed back in.
	ClarificationAnswered Type = "clarification_answered"
)

// Composition execution events
const (
	// StepStart fires when a composition step begins.
	StepStart Type = "step_start"

	// StepEnd fires when a composition step completes.
	StepEnd Type = "step_end"

	// StepSkipped fires when a step is skipped (e.g., choice routing).
	StepSkipped Type = "step_skipped"

	// ParallelStart fires when parallel execution begins.
	ParallelStart Type = "parallel_start"

	// ParallelEnd fires when parallel execution completes.
	ParallelEnd Type = "parallel_end"

	// RouteSelected fires when a choice branch is chosen.
	RouteSelected Type = "route_selected"

	// RetryAttempt fires at the start of each retry attempt.
	RetryAttempt Type = "retry_attempt"

	// LoopIteration fires at the start of each agent loop iteration.
	LoopIteration Type = "loop_iteration"
)

// Event represents an observable occurrence during streaming execution.
// This unified type is used by the client, composition, agent, and engine
// packages.
type Event struct {
	// Type identifies the kind of event.
	Type Type

	// MessageID identifies the message for Start/Delta/End correlation.
	MessageID string

	// Delta contains streaming content for MessageDelta events.
	Delta string

	// Response contains the complete response for MessageEnd and RunEnd events.
	Response *ai.Response

	// ToolCall contains the tool call for tool-related events.
	ToolCall *ai.ToolCall

	// ToolResult contains the result for ToolCallResult events.
	ToolResult *ai.ToolResult

	// RequestID correlates ApprovalRequested and ClarificationRequested
	// events with their submitted decisions.
	RequestID string

	// Question is the clarification question for ClarificationRequested events.
	Question string

	// Choices contains suggested answers for ClarificationRequested events.
	Choices []string

	// From and To carry the states for StateChanged events.
	From string
	To   string

	// Step is the current iteration number (1-indexed) for agent events.
	Step int

	// StepName identifies the step for composition events.
	StepName string

	// RouteName identifies the selected branch for RouteSelected events.
	RouteName string

	// Iteration is the loop iteration (1-indexed) for LoopIteration events.
	Iteration int

	// Attempt is the attempt number (1-indexed) for RetryAttempt events.
	Attempt int

	// Error contains the error for RunError events.
	Error error

	// Message contains additional context (e.g., rejection reason, termination reason).
	Message string

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emit sends an event with timestamp to the channel (non-blocking).
func Emit(ch chan<- Event, e Event) {
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
		// Channel full - don't block
	}
}

// Send delivers an event with timestamp, blocking until the channel
// accepts it. Run lifecycle events use it: a full buffer must not drop
// the event that ends the stream.
func Send(ch chan<- Event, e Event) {
	e.Timestamp = time.Now()
	ch <- e
}

// NewChannel creates a buffered event channel with standard capacity.
func NewChannel() chan Event {
	return make(chan Event, 100)
}
