package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	ai "github.com/bigduu/conductor"
	"github.com/bigduu/conductor/agent"
	"github.com/bigduu/conductor/event"
	"github.com/bigduu/conductor/store"
)

// maxTitleRunes bounds titles derived from the first user message.
const maxTitleRunes = 64

// ProcessMessage appends a user message to the conversation and runs
// one agent turn, streaming its events to the returned channel. The
// channel closes when the turn finishes; by then the conversation is
// persisted. A conversation processes one message at a time: a second
// call while a turn is active returns ErrConversationBusy.
//
// Cancelling ctx aborts the turn. The suspended phases (approval,
// clarification) resolve through SubmitApproval and SubmitClarification
// while the stream stays open.
func (e *Engine) ProcessMessage(ctx context.Context, conversationID, text string) (<-chan event.Event, error) {
	if conversationID == "" {
		return nil, errors.New("engine: conversation ID is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("engine: message text is required")
	}

	turnCtx, cancel := context.WithCancel(ctx)
	sess, err := e.claim(conversationID, cancel)
	if err != nil {
		cancel()
		return nil, err
	}

	conv, err := e.prepare(ctx, conversationID, text)
	if err != nil {
		e.release(conversationID)
		return nil, err
	}

	out := event.NewChannel()
	go e.runTurn(turnCtx, sess, conv, out)
	return out, nil
}

// prepare loads or creates the conversation and persists the incoming
// user message before the turn starts.
func (e *Engine) prepare(ctx context.Context, id, text string) (store.Conversation, error) {
	conv, err := e.conversations.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		conv = store.Conversation{ID: id, CreatedAt: time.Now().UTC()}
		if e.systemPrompt != "" {
			conv.Messages = []ai.Message{ai.NewSystemMessage(e.systemPrompt)}
		}
		e.logger.Debug().Str("conversation_id", id).Msg("Conversation created")
	case err != nil:
		return store.Conversation{}, err
	}

	conv.Messages = append(conv.Messages, ai.NewUserMessage(text))
	if conv.Title == "" {
		conv.Title = deriveTitle(text)
	}

	if err := e.conversations.Put(ctx, conv); err != nil {
		return store.Conversation{}, err
	}
	return conv, nil
}

// runTurn drives one agent turn, forwarding its events to out and
// persisting the conversation at phase boundaries. It releases the
// conversation and closes out when the turn ends.
func (e *Engine) runTurn(ctx context.Context, sess *session, conv store.Conversation, out chan<- event.Event) {
	defer close(out)
	defer e.release(conv.ID)

	logger := e.logger.With().Str("conversation_id", conv.ID).Logger()
	logger.Info().Int("messages", len(conv.Messages)).Str("state", string(sess.machine.State())).Msg("Turn started")

	tracker := &historyTracker{messages: conv.Messages}

	loop := agent.New(e.client, e.registry,
		agent.WithMachine(sess.machine),
		agent.WithApprovalBroker(e.approvals),
		agent.WithClarificationBroker(e.clarifications),
		agent.WithConversationID(conv.ID),
	)

	opts := append([]agent.Option(nil), e.runOpts...)
	opts = append(opts, agent.WithMessageSink(tracker.update))

	for ev := range loop.RunStream(ctx, conv.Messages, opts...) {
		e.observe(&conv, sess, tracker, ev, logger)

		select {
		case out <- ev:
		default:
			// Buffer full. Wait for the caller unless it went away;
			// either way keep draining so the history still lands.
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		}
	}

	e.save(&conv, sess, tracker, logger)
	logger.Info().Str("state", string(sess.machine.State())).Msg("Turn finished")
}

// observe reacts to one turn event: log it and save at phase
// boundaries. State changes mark phase boundaries; suspension events
// are saved so a pending question survives a restart.
func (e *Engine) observe(conv *store.Conversation, sess *session, tracker *historyTracker, ev event.Event, logger zerolog.Logger) {
	switch ev.Type {
	case event.StateChanged:
		logger.Debug().Str("from", ev.From).Str("to", ev.To).Msg("State changed")
		e.save(conv, sess, tracker, logger)

	case event.ApprovalRequested:
		name := ""
		if ev.ToolCall != nil {
			name = ev.ToolCall.Name
		}
		logger.Info().Str("request_id", ev.RequestID).Str("tool", name).Msg("Approval requested")
		e.save(conv, sess, tracker, logger)

	case event.ClarificationRequested:
		logger.Info().Str("request_id", ev.RequestID).Msg("Clarification requested")
		e.save(conv, sess, tracker, logger)

	case event.RunError:
		logger.Warn().Err(ev.Error).Str("reason", ev.Message).Msg("Turn failed")
	}
}

// save persists the conversation when its history or state changed
// since the last save. Failures are logged and never fail the turn.
// Saves use a background context so a dropped caller cannot lose
// history.
func (e *Engine) save(conv *store.Conversation, sess *session, tracker *historyTracker, logger zerolog.Logger) {
	messages, changed := tracker.snapshot()
	state := string(sess.machine.State())
	if !changed && conv.State == state {
		return
	}

	if changed {
		conv.Messages = messages
	}
	conv.State = state

	if err := e.conversations.Put(context.Background(), *conv); err != nil {
		logger.Warn().Err(err).Msg("Conversation save failed")
	}
}

// historyTracker mirrors the loop's history for phase-boundary saves.
// The loop's message sink runs on the turn goroutine while saves run on
// the pump, so access is locked.
type historyTracker struct {
	mu       sync.Mutex
	messages []ai.Message
	dirty    bool
}

func (h *historyTracker) update(messages []ai.Message) {
	h.mu.Lock()
	h.messages = messages
	h.dirty = true
	h.mu.Unlock()
}

// snapshot returns the latest history and whether it changed since the
// previous snapshot.
func (h *historyTracker) snapshot() ([]ai.Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	dirty := h.dirty
	h.dirty = false
	return h.messages, dirty
}

// deriveTitle turns the first user message into a conversation title:
// its first line, truncated.
func deriveTitle(text string) string {
	title := strings.TrimSpace(text)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		runes := []rune(title)
		title = string(runes[:maxTitleRunes]) + "..."
	}
	return title
}
