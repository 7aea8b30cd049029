package agui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	ai "github.com/bigduu/conductor"
)

func TestToMessage(t *testing.T) {
	t.Run("assistant with tool calls", func(t *testing.T) {
		msg := ToMessage(events.Message{
			ID:   "m1",
			Role: RoleAssistant,
			ToolCalls: []events.ToolCall{{
				ID:   "call-1",
				Type: "function",
				Function: events.Function{
					Name:      "read_file",
					Arguments: `{"path":"a.txt"}`,
				},
			}},
		})

		assert.Equal(t, ai.RoleAssistant, msg.Role)
		require.Len(t, msg.ToolCalls, 1)
		assert.Equal(t, "call-1", msg.ToolCalls[0].ID)
		assert.Equal(t, "read_file", msg.ToolCalls[0].Name)
	})

	t.Run("tool result message", func(t *testing.T) {
		msg := ToMessage(events.Message{
			ID:         "m2",
			Role:       RoleTool,
			Content:    strPtr("file contents"),
			ToolCallID: strPtr("call-1"),
		})

		assert.Equal(t, ai.RoleTool, msg.Role)
		require.Len(t, msg.ToolResults, 1)
		assert.Equal(t, "call-1", msg.ToolResults[0].ToolCallID)
		assert.Equal(t, "file contents", msg.ToolResults[0].Content)
	})

	t.Run("unknown role falls back to user", func(t *testing.T) {
		msg := ToMessage(events.Message{Role: "developer", Content: strPtr("hi")})
		assert.Equal(t, ai.RoleUser, msg.Role)
	})
}

func TestFromMessage(t *testing.T) {
	t.Run("keeps message ID", func(t *testing.T) {
		out := FromMessage(ai.Message{ID: "m1", Role: ai.RoleUser, Content: "hello"})
		assert.Equal(t, "m1", out.ID)
		assert.Equal(t, RoleUser, out.Role)
		require.NotNil(t, out.Content)
		assert.Equal(t, "hello", *out.Content)
	})

	t.Run("generates missing ID", func(t *testing.T) {
		out := FromMessage(ai.Message{Role: ai.RoleAssistant, Content: "hi"})
		assert.NotEmpty(t, out.ID)
	})

	t.Run("tool result rides content and tool call ID", func(t *testing.T) {
		out := FromMessage(ai.Message{
			Role: ai.RoleTool,
			ToolResults: []ai.ToolResult{{
				ToolCallID: "call-1",
				Content:    "done",
			}},
		})
		require.NotNil(t, out.ToolCallID)
		assert.Equal(t, "call-1", *out.ToolCallID)
		require.NotNil(t, out.Content)
		assert.Equal(t, "done", *out.Content)
	})

	t.Run("round trip preserves conversation shape", func(t *testing.T) {
		history := []ai.Message{
			ai.NewSystemMessage("be helpful"),
			ai.NewUserMessage("lint the repo"),
			ai.NewAssistantMessage("", []ai.ToolCall{{ID: "c1", Name: "lint", Arguments: "{}"}}),
		}

		back := ToMessages(FromMessages(history))
		require.Len(t, back, len(history))
		assert.Equal(t, ai.RoleSystem, back[0].Role)
		assert.Equal(t, "lint the repo", back[1].Content)
		require.Len(t, back[2].ToolCalls, 1)
		assert.Equal(t, "lint", back[2].ToolCalls[0].Name)
	})
}
