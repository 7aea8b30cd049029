package agent

import (
	ai "github.com/bigduu/conductor"
)

// TerminationReason describes why a run ended.
type TerminationReason string

const (
	// TerminationComplete means the model produced a final response.
	TerminationComplete TerminationReason = "complete"

	// TerminationMaxSteps means the step budget ran out mid-turn.
	TerminationMaxSteps TerminationReason = "max_steps"

	// TerminationTimeout means the run timeout elapsed.
	TerminationTimeout TerminationReason = "timeout"

	// TerminationCancelled means the context was cancelled.
	TerminationCancelled TerminationReason = "cancelled"

	// TerminationError means the run failed with an error.
	TerminationError TerminationReason = "error"

	// TerminationLoopDepth means agentic sub-actions exceeded a limit.
	TerminationLoopDepth TerminationReason = "loop_depth"

	// TerminationCustom means a StopPredicate ended the run.
	TerminationCustom TerminationReason = "custom"
)

// Result is the outcome of a completed run.
type Result struct {
	// Response is the final model response, when the run produced one.
	Response *ai.Response

	// Steps is the number of LLM rounds used.
	Steps int

	// Termination says why the run ended.
	Termination TerminationReason

	// TotalUsage sums token usage across every round.
	TotalUsage ai.Usage

	// Error is the run error, if any.
	Error error

	messages []ai.Message
}

// Messages returns the full conversation history, including the input
// messages and everything the run appended.
func (r *Result) Messages() []ai.Message {
	out := make([]ai.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// MessageCount reports how many messages the history holds.
func (r *Result) MessageCount() int {
	return len(r.messages)
}

// LastMessages returns up to n trailing messages from the history.
func (r *Result) LastMessages(n int) []ai.Message {
	if n <= 0 || len(r.messages) == 0 {
		return nil
	}
	if n > len(r.messages) {
		n = len(r.messages)
	}
	out := make([]ai.Message, n)
	copy(out, r.messages[len(r.messages)-n:])
	return out
}
