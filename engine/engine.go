package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	ai "github.com/bigduu/conductor"
	"github.com/bigduu/conductor/agent"
	"github.com/bigduu/conductor/chat"
	"github.com/bigduu/conductor/store"
	"github.com/bigduu/conductor/tool"
)

// ErrConversationBusy is returned when a conversation already has an
// active turn. Each conversation processes one message at a time.
var ErrConversationBusy = errors.New("engine: conversation busy")

// Config holds engine configuration. Client is required; everything
// else has a working default.
type Config struct {
	// Client is the chat client turns run against.
	Client chat.Client

	// Registry is the tool registry. A nil registry gets a fresh empty one.
	Registry *tool.Registry

	// Store persists conversations. A nil store keeps them in memory.
	Store store.Adapter

	// Logger receives engine logs. The zero value disables them.
	Logger zerolog.Logger

	// SystemPrompt seeds new conversations, when set.
	SystemPrompt string

	// RunOptions are applied to every turn, e.g. agent.WithMaxSteps.
	RunOptions []agent.Option

	// ApprovalTimeout overrides the approval broker's decision timeout.
	ApprovalTimeout time.Duration

	// ClarificationTimeout overrides the clarification broker's answer
	// timeout.
	ClarificationTimeout time.Duration
}

// Engine hosts conversations and exposes the chat application surface:
// process a message, answer approval and clarification requests, and
// manage the tool registry. Conversations are isolated from each other;
// brokers are shared so request IDs route regardless of which
// conversation raised them.
type Engine struct {
	client         chat.Client
	registry       *tool.Registry
	conversations  *store.Conversations
	approvals      *agent.ApprovalBroker
	clarifications *agent.ClarificationBroker
	logger         zerolog.Logger
	systemPrompt   string
	runOpts        []agent.Option

	mu       sync.Mutex
	sessions map[string]*session
}

// session is the per-conversation state the engine keeps between turns:
// the loop's state machine and, while a turn runs, its cancel handle.
type session struct {
	machine *agent.Machine
	cancel  context.CancelFunc
}

// New creates an Engine from the given configuration.
func New(cfg Config) (*Engine, error) {
	if cfg.Client == nil {
		return nil, errors.New("engine: chat client is required")
	}

	registry := cfg.Registry
	if registry == nil {
		registry = tool.NewRegistry()
	}

	var approvalOpts []agent.ApprovalBrokerOption
	if cfg.ApprovalTimeout > 0 {
		approvalOpts = append(approvalOpts, agent.WithApprovalTimeout(cfg.ApprovalTimeout))
	}
	var clarifyOpts []agent.ClarificationBrokerOption
	if cfg.ClarificationTimeout > 0 {
		clarifyOpts = append(clarifyOpts, agent.WithClarificationTimeout(cfg.ClarificationTimeout))
	}

	return &Engine{
		client:         cfg.Client,
		registry:       registry,
		conversations:  store.NewConversations(cfg.Store),
		approvals:      agent.NewApprovalBroker(approvalOpts...),
		clarifications: agent.NewClarificationBroker(clarifyOpts...),
		logger:         cfg.Logger,
		systemPrompt:   cfg.SystemPrompt,
		runOpts:        cfg.RunOptions,
		sessions:       make(map[string]*session),
	}, nil
}

// Registry returns the engine's tool registry, for mounting external
// tool sources.
func (e *Engine) Registry() *tool.Registry {
	return e.registry
}

// SubmitApproval routes a human decision to the tool call blocked on it.
// Unknown or already-resolved request IDs return
// agent.ErrNoPendingRequest and have no effect on any turn.
func (e *Engine) SubmitApproval(requestID string, approved bool, reason string) error {
	return e.approvals.Decide(agent.ApprovalDecision{
		RequestID: requestID,
		Approved:  approved,
		Reason:    reason,
	})
}

// SubmitClarification routes a user answer to the turn blocked on the
// question. Unknown or already-answered request IDs return
// agent.ErrNoPendingRequest and have no effect on any turn.
func (e *Engine) SubmitClarification(requestID, answer string) error {
	return e.clarifications.Answer(agent.ClarificationAnswer{
		RequestID: requestID,
		Answer:    answer,
	})
}

// CancelClarification dismisses a pending question without answering
// it. The waiting turn sees a cancelled result and continues.
func (e *Engine) CancelClarification(requestID string) error {
	return e.clarifications.Answer(agent.ClarificationAnswer{
		RequestID: requestID,
		Cancelled: true,
	})
}

// RegisterTool adds a tool to the engine's registry. It is visible from
// the next loop iteration; rounds already in flight keep their snapshot.
func (e *Engine) RegisterTool(t ai.Tool, h tool.Handler) error {
	return e.registry.Register(t, h)
}

// UnregisterTool removes a tool from the engine's registry.
func (e *Engine) UnregisterTool(name string) {
	e.registry.Unregister(name)
}

// History returns the stored message history for a conversation. A
// missing conversation returns store.ErrKeyNotFound.
func (e *Engine) History(ctx context.Context, conversationID string) ([]ai.Message, error) {
	conv, err := e.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

// Conversations lists all stored conversations, most recently updated
// first.
func (e *Engine) Conversations(ctx context.Context) ([]store.Conversation, error) {
	return e.conversations.List(ctx)
}

// DeleteConversation removes a conversation's stored record and session
// state. A conversation with an active turn cannot be deleted.
func (e *Engine) DeleteConversation(ctx context.Context, conversationID string) error {
	e.mu.Lock()
	if sess, ok := e.sessions[conversationID]; ok {
		if sess.cancel != nil {
			e.mu.Unlock()
			return ErrConversationBusy
		}
		delete(e.sessions, conversationID)
	}
	e.mu.Unlock()

	return e.conversations.Delete(ctx, conversationID)
}

// Abort cancels the active turn for a conversation. It reports whether
// a turn was running.
func (e *Engine) Abort(conversationID string) bool {
	e.mu.Lock()
	var cancel context.CancelFunc
	if sess, ok := e.sessions[conversationID]; ok {
		cancel = sess.cancel
	}
	e.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// IsRunning reports whether a conversation has an active turn.
func (e *Engine) IsRunning(conversationID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[conversationID]
	return ok && sess.cancel != nil
}

// claim marks the conversation busy and returns its session. The cancel
// handle doubles as the busy flag; release clears it.
func (e *Engine) claim(id string, cancel context.CancelFunc) (*session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions[id]
	if !ok {
		sess = &session{machine: agent.NewMachine()}
		e.sessions[id] = sess
	}
	if sess.cancel != nil {
		return nil, ErrConversationBusy
	}
	sess.cancel = cancel
	return sess, nil
}

// release clears the busy flag and cancels the turn context.
func (e *Engine) release(id string) {
	e.mu.Lock()
	var cancel context.CancelFunc
	if sess, ok := e.sessions[id]; ok {
		cancel = sess.cancel
		sess.cancel = nil
	}
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
