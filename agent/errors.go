package agent

import (
	"errors"
	"fmt"
)

// ErrMaxStepsReached is returned when a turn uses up its step budget
// before the model produces a final response. The turn fails rather
// than silently truncating.
var ErrMaxStepsReached = errors.New("agent: max steps reached")

// ErrNoPendingRequest is returned by the brokers when a decision or
// answer arrives for an unknown or already-resolved request ID.
var ErrNoPendingRequest = errors.New("agent: no pending request")

// InvalidTransitionError reports a state change the machine's table
// does not allow. The machine state is unchanged.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("agent: invalid transition %s -> %s", e.From, e.To)
}

// LoopDepthError reports that agentic sub-action execution exceeded a
// limit: either the queue nesting depth or the total number of
// sub-actions processed in one turn.
type LoopDepthError struct {
	// Depth is the nesting depth reached, when the depth limit tripped.
	Depth int
	// Processed is the number of sub-actions executed, when the
	// processed limit tripped.
	Processed int
	// Max is the limit that was exceeded.
	Max int
}

func (e *LoopDepthError) Error() string {
	if e.Processed > 0 {
		return fmt.Sprintf("agent: sub-action limit exceeded: %d processed (max %d)", e.Processed, e.Max)
	}
	return fmt.Sprintf("agent: auto-loop depth %d exceeds max %d", e.Depth, e.Max)
}
