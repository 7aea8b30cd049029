package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultClarificationTimeout is how long the loop waits for an answer
// before giving the model a timed-out result instead.
const DefaultClarificationTimeout = 5 * time.Minute

// ClarificationRequest is a question a tool needs answered before the
// turn can continue.
type ClarificationRequest struct {
	// ID routes the answer back; generated when empty.
	ID string

	// ConversationID identifies the conversation the question belongs to.
	ConversationID string

	// ToolCallID is the call that raised the question.
	ToolCallID string

	// Question is the text shown to the user.
	Question string

	// Options are suggested answers, if the tool provided any.
	Options []string
}

// ClarificationAnswer resolves one pending question.
type ClarificationAnswer struct {
	RequestID string
	Answer    string
	// Cancelled marks an explicit refusal to answer.
	Cancelled bool
}

// ClarificationTimeoutError reports that no answer arrived in time.
// The loop folds it into an erroring tool result; it never fails the
// turn.
type ClarificationTimeoutError struct {
	ToolCallID string
	Timeout    time.Duration
}

func (e *ClarificationTimeoutError) Error() string {
	return fmt.Sprintf("agent: clarification for call %s timed out after %s", e.ToolCallID, e.Timeout)
}

// ClarificationBroker routes user answers to a loop blocked on a
// question. It mirrors ApprovalBroker: one pending entry per request
// ID, removed when the answer lands, so each question accepts exactly
// one answer.
type ClarificationBroker struct {
	mu         sync.Mutex
	pending    map[string]chan ClarificationAnswer
	timeout    time.Duration
	onQuestion func(ClarificationRequest)
}

// ClarificationBrokerOption configures a ClarificationBroker.
type ClarificationBrokerOption func(*ClarificationBroker)

// WithClarificationTimeout sets how long Request waits for an answer.
func WithClarificationTimeout(d time.Duration) ClarificationBrokerOption {
	return func(b *ClarificationBroker) {
		b.timeout = d
	}
}

// WithOnQuestion installs a callback invoked for every incoming
// question, after it is registered and before Request blocks.
func WithOnQuestion(fn func(ClarificationRequest)) ClarificationBrokerOption {
	return func(b *ClarificationBroker) {
		b.onQuestion = fn
	}
}

// NewClarificationBroker creates a broker with a 5 minute answer
// timeout.
func NewClarificationBroker(opts ...ClarificationBrokerOption) *ClarificationBroker {
	b := &ClarificationBroker{
		pending: make(map[string]chan ClarificationAnswer),
		timeout: DefaultClarificationTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Request registers the question and blocks until an answer arrives,
// the timeout elapses, or ctx is cancelled. A timeout returns a
// *ClarificationTimeoutError; cancellation returns the context error.
func (b *ClarificationBroker) Request(ctx context.Context, req ClarificationRequest) (ClarificationAnswer, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ch := make(chan ClarificationAnswer, 1)

	b.mu.Lock()
	if _, exists := b.pending[req.ID]; exists {
		b.mu.Unlock()
		return ClarificationAnswer{}, fmt.Errorf("agent: clarification request %s already pending", req.ID)
	}
	b.pending[req.ID] = ch
	b.mu.Unlock()

	if b.onQuestion != nil {
		b.onQuestion(req)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case ans := <-ch:
		return ans, nil
	case <-timer.C:
		b.remove(req.ID)
		return ClarificationAnswer{}, &ClarificationTimeoutError{ToolCallID: req.ToolCallID, Timeout: b.timeout}
	case <-ctx.Done():
		b.remove(req.ID)
		return ClarificationAnswer{}, ctx.Err()
	}
}

// Answer resolves the pending question named by the answer. Unknown or
// already-answered IDs return ErrNoPendingRequest and have no effect.
func (b *ClarificationBroker) Answer(ans ClarificationAnswer) error {
	b.mu.Lock()
	ch, ok := b.pending[ans.RequestID]
	if ok {
		delete(b.pending, ans.RequestID)
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: clarification %s", ErrNoPendingRequest, ans.RequestID)
	}
	ch <- ans
	return nil
}

// PendingCount reports how many questions are waiting for an answer.
func (b *ClarificationBroker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// HasPending reports whether the given question is waiting.
func (b *ClarificationBroker) HasPending(requestID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[requestID]
	return ok
}

func (b *ClarificationBroker) remove(requestID string) {
	b.mu.Lock()
	delete(b.pending, requestID)
	b.mu.Unlock()
}
