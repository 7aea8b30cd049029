package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/bigduu/conductor"
)

func TestConversations_PutGet(t *testing.T) {
	ctx := context.Background()
	conversations := NewConversations(nil)

	conv := Conversation{
		ID:    "conv_1",
		Title: "Weather chat",
		Messages: []ai.Message{
			ai.NewUserMessage("What's the weather?"),
			ai.NewAssistantMessage("Sunny.", nil),
		},
		State: "completed",
	}
	require.NoError(t, conversations.Put(ctx, conv))

	got, err := conversations.Get(ctx, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, "conv_1", got.ID)
	assert.Equal(t, "Weather chat", got.Title)
	assert.Equal(t, "completed", got.State)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, ai.RoleUser, got.Messages[0].Role)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestConversations_GetMissing(t *testing.T) {
	conversations := NewConversations(nil)

	_, err := conversations.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestConversations_PutRequiresID(t *testing.T) {
	conversations := NewConversations(nil)

	err := conversations.Put(context.Background(), Conversation{Title: "no id"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ID")
}

func TestConversations_PutPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	conversations := NewConversations(nil)

	require.NoError(t, conversations.Put(ctx, Conversation{ID: "conv_1"}))
	first, err := conversations.Get(ctx, "conv_1")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	first.Title = "renamed"
	require.NoError(t, conversations.Put(ctx, first))

	second, err := conversations.Get(ctx, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(second.CreatedAt))
}

func TestConversations_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	conversations := NewConversations(nil)

	require.NoError(t, conversations.Put(ctx, Conversation{ID: "old"}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, conversations.Put(ctx, Conversation{ID: "mid"}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, conversations.Put(ctx, Conversation{ID: "new"}))

	list, err := conversations.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "mid", list[1].ID)
	assert.Equal(t, "old", list[2].ID)
}

func TestConversations_Delete(t *testing.T) {
	ctx := context.Background()
	conversations := NewConversations(nil)

	require.NoError(t, conversations.Put(ctx, Conversation{ID: "conv_1"}))
	require.NoError(t, conversations.Delete(ctx, "conv_1"))

	_, err := conversations.Get(ctx, "conv_1")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	length, err := conversations.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
}

func TestConversations_FileBacked(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	adapter, err := NewFileAdapter(dir)
	require.NoError(t, err)
	conversations := NewConversations(adapter)

	conv := Conversation{
		ID:       "conv_1",
		Messages: []ai.Message{ai.NewUserMessage("persist me")},
		State:    "idle",
	}
	require.NoError(t, conversations.Put(ctx, conv))

	// A fresh adapter over the same directory sees the conversation.
	reopened, err := NewFileAdapter(dir)
	require.NoError(t, err)
	got, err := NewConversations(reopened).Get(ctx, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, "persist me", got.Messages[0].Content)
	assert.Equal(t, "idle", got.State)
}
