package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	ai "github.com/bigduu/conductor"
	"github.com/bigduu/conductor/composition"
)

// DefaultApprovalTimeout is how long a gated call waits for a decision
// before it is treated as denied.
const DefaultApprovalTimeout = 5 * time.Minute

// ApprovalRequest describes a gated tool call waiting for a decision.
type ApprovalRequest struct {
	// ID is the tool call ID; decisions are routed by it.
	ID string

	// ConversationID identifies the conversation the call belongs to.
	ConversationID string

	// Call is the pending tool call.
	Call ai.ToolCall

	// Tool is the registered tool definition, when available.
	Tool ai.Tool
}

// ApprovalDecision resolves one pending request.
type ApprovalDecision struct {
	RequestID string
	Approved  bool
	Reason    string
}

// ApprovalBroker routes human decisions to blocked tool calls. A
// request registers a decision channel under its ID and waits; Decide
// resolves exactly one pending request. Each request accepts at most
// one decision: the pending entry is removed when the decision lands,
// so a second decision for the same ID returns ErrNoPendingRequest.
type ApprovalBroker struct {
	mu        sync.Mutex
	pending   map[string]chan ApprovalDecision
	timeout   time.Duration
	onRequest func(ApprovalRequest)
}

// ApprovalBrokerOption configures an ApprovalBroker.
type ApprovalBrokerOption func(*ApprovalBroker)

// WithApprovalTimeout sets how long Request waits before treating the
// call as denied.
func WithApprovalTimeout(d time.Duration) ApprovalBrokerOption {
	return func(b *ApprovalBroker) {
		b.timeout = d
	}
}

// WithOnRequest installs a callback invoked for every incoming request,
// after it is registered and before Request blocks. Engines use it to
// surface the request to the frontend.
func WithOnRequest(fn func(ApprovalRequest)) ApprovalBrokerOption {
	return func(b *ApprovalBroker) {
		b.onRequest = fn
	}
}

// NewApprovalBroker creates a broker with a 5 minute decision timeout.
func NewApprovalBroker(opts ...ApprovalBrokerOption) *ApprovalBroker {
	b := &ApprovalBroker{
		pending: make(map[string]chan ApprovalDecision),
		timeout: DefaultApprovalTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Request registers the call and blocks until a decision arrives, the
// timeout elapses, or ctx is cancelled. A timeout returns a
// *composition.ApprovalTimeoutError so callers can distinguish it from
// an explicit denial; cancellation returns the context error.
func (b *ApprovalBroker) Request(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error) {
	ch := make(chan ApprovalDecision, 1)

	b.mu.Lock()
	if _, exists := b.pending[req.ID]; exists {
		b.mu.Unlock()
		return ApprovalDecision{}, fmt.Errorf("agent: approval request %s already pending", req.ID)
	}
	b.pending[req.ID] = ch
	b.mu.Unlock()

	if b.onRequest != nil {
		b.onRequest(req)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case dec := <-ch:
		return dec, nil
	case <-timer.C:
		b.remove(req.ID)
		return ApprovalDecision{}, &composition.ApprovalTimeoutError{Tool: req.Call.Name, Timeout: b.timeout}
	case <-ctx.Done():
		b.remove(req.ID)
		return ApprovalDecision{}, ctx.Err()
	}
}

// Decide resolves the pending request named by the decision. Unknown or
// already-resolved IDs return ErrNoPendingRequest and have no effect.
func (b *ApprovalBroker) Decide(dec ApprovalDecision) error {
	b.mu.Lock()
	ch, ok := b.pending[dec.RequestID]
	if ok {
		delete(b.pending, dec.RequestID)
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: approval %s", ErrNoPendingRequest, dec.RequestID)
	}
	ch <- dec
	return nil
}

// Approve resolves a pending request as approved.
func (b *ApprovalBroker) Approve(requestID string) error {
	return b.Decide(ApprovalDecision{RequestID: requestID, Approved: true})
}

// Reject resolves a pending request as denied with a reason.
func (b *ApprovalBroker) Reject(requestID, reason string) error {
	return b.Decide(ApprovalDecision{RequestID: requestID, Approved: false, Reason: reason})
}

// PendingCount reports how many requests are waiting for a decision.
func (b *ApprovalBroker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// HasPending reports whether the given request is waiting.
func (b *ApprovalBroker) HasPending(requestID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[requestID]
	return ok
}

func (b *ApprovalBroker) remove(requestID string) {
	b.mu.Lock()
	delete(b.pending, requestID)
	b.mu.Unlock()
}
