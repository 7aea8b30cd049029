package agent

import (
	"sync"
	"time"
)

// State identifies where a conversation's agent loop currently is.
type State string

const (
	// StateIdle is the rest state between turns.
	StateIdle State = "idle"

	// StateAwaitingLLM means a request to the model is in flight but no
	// content has arrived yet.
	StateAwaitingLLM State = "awaiting_llm"

	// StateStreamingResponse means assistant content is streaming in.
	StateStreamingResponse State = "streaming_response"

	// StateAwaitingApproval means a gated tool call is blocked on a
	// human decision.
	StateAwaitingApproval State = "awaiting_approval"

	// StateAwaitingClarification means a tool asked the user a question
	// and the loop is blocked on the answer.
	StateAwaitingClarification State = "awaiting_clarification"

	// StateToolExecution means tool calls are running.
	StateToolExecution State = "tool_execution"

	// StateCompleted means the turn finished with a final response.
	StateCompleted State = "completed"

	// StateFailed means the turn ended with an error.
	StateFailed State = "failed"
)

// transitions is the allowed-move table. Self-transitions are always
// permitted and recorded; they are how sub-action recursion re-enters
// tool_execution.
var transitions = map[State]map[State]struct{}{
	StateIdle: {
		StateAwaitingLLM: {},
	},
	StateAwaitingLLM: {
		StateStreamingResponse: {},
		StateFailed:            {},
	},
	StateStreamingResponse: {
		StateCompleted:        {},
		StateAwaitingApproval: {},
		StateToolExecution:    {},
		StateFailed:           {},
	},
	StateAwaitingApproval: {
		StateToolExecution: {},
		StateAwaitingLLM:   {},
		StateFailed:        {},
	},
	StateAwaitingClarification: {
		StateAwaitingLLM: {},
		StateFailed:      {},
	},
	StateToolExecution: {
		StateAwaitingLLM:           {},
		StateAwaitingApproval:      {},
		StateAwaitingClarification: {},
		StateFailed:                {},
	},
	StateCompleted: {
		StateIdle:        {},
		StateAwaitingLLM: {},
	},
	StateFailed: {
		StateIdle:        {},
		StateAwaitingLLM: {},
	},
}

// maxTransitionHistory bounds the per-machine transition log.
const maxTransitionHistory = 50

// Transition records one accepted state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Machine tracks the loop state for one conversation. It is safe for
// concurrent use. A fresh machine starts in StateIdle.
type Machine struct {
	mu      sync.Mutex
	state   State
	history []Transition
}

// NewMachine creates a machine in StateIdle.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// To moves the machine to the given state. Illegal moves return an
// *InvalidTransitionError and leave the state unchanged. Legal moves,
// including self-transitions, are appended to the history.
func (m *Machine) To(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	if from != to {
		allowed, ok := transitions[from]
		if !ok {
			return &InvalidTransitionError{From: from, To: to}
		}
		if _, ok := allowed[to]; !ok {
			return &InvalidTransitionError{From: from, To: to}
		}
	}

	m.state = to
	m.history = append(m.history, Transition{From: from, To: to, At: time.Now()})
	if len(m.history) > maxTransitionHistory {
		m.history = m.history[1:]
	}
	return nil
}

// History returns a copy of the recorded transitions, oldest first.
// At most the last 50 transitions are retained.
func (m *Machine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}
