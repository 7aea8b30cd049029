package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	ai "github.com/bigduu/conductor"
)

// Conversation is one persisted chat session: the history the agent loop
// built plus the machine state it parked in.
type Conversation struct {
	ID        string       `json:"id"`
	Title     string       `json:"title,omitempty"`
	Messages  []ai.Message `json:"messages"`
	State     string       `json:"state,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Conversations is a typed view over an Adapter, one record per
// conversation ID.
type Conversations struct {
	adapter Adapter
}

// NewConversations wraps an adapter. A nil adapter gets a fresh
// in-memory one.
func NewConversations(adapter Adapter) *Conversations {
	if adapter == nil {
		adapter = NewMemoryAdapter()
	}
	return &Conversations{adapter: adapter}
}

// Get retrieves a conversation by ID. A missing ID returns
// ErrKeyNotFound.
func (c *Conversations) Get(ctx context.Context, id string) (Conversation, error) {
	raw, ok, err := c.adapter.Get(ctx, id)
	if err != nil {
		return Conversation{}, err
	}
	if !ok {
		return Conversation{}, ErrKeyNotFound
	}

	var conv Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return Conversation{}, &SerializationError{Key: id, Err: err}
	}
	return conv, nil
}

// Put stores the conversation under its ID, stamping UpdatedAt and
// filling CreatedAt on first write.
func (c *Conversations) Put(ctx context.Context, conv Conversation) error {
	if conv.ID == "" {
		return errors.New("store: conversation has no ID")
	}

	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	raw, err := json.Marshal(conv)
	if err != nil {
		return &SerializationError{Key: conv.ID, Err: err}
	}
	return c.adapter.Set(ctx, conv.ID, raw)
}

// Delete removes a conversation. Deleting a missing ID is not an error.
func (c *Conversations) Delete(ctx context.Context, id string) error {
	return c.adapter.Delete(ctx, id)
}

// List returns all conversations, most recently updated first.
func (c *Conversations) List(ctx context.Context) ([]Conversation, error) {
	data, err := c.adapter.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Conversation, 0, len(data))
	for id, raw := range data {
		var conv Conversation
		if err := json.Unmarshal(raw, &conv); err != nil {
			return nil, &SerializationError{Key: id, Err: err}
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Len returns the number of stored conversations.
func (c *Conversations) Len(ctx context.Context) (int, error) {
	return c.adapter.Len(ctx)
}

// Adapter returns the underlying adapter.
func (c *Conversations) Adapter() Adapter {
	return c.adapter
}
