package conductor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleConstants(t *testing.T) {
	assert.Equal(t, Role("user"), RoleUser)
	assert.Equal(t, Role("assistant"), RoleAssistant)
	assert.Equal(t, Role("system"), RoleSystem)
	assert.Equal(t, Role("tool"), RoleTool)
}

func TestGenerateMessageID(t *testing.T) {
	id1 := GenerateMessageID()
	id2 := GenerateMessageID()

	assert.True(t, strings.HasPrefix(id1, "msg-"))
	assert.True(t, strings.HasPrefix(id2, "msg-"))
	assert.NotEqual(t, id1, id2)
}

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello")

	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "Hello", msg.Content)
	assert.NotEmpty(t, msg.ID)
	assert.Empty(t, msg.ToolCalls)
	assert.Empty(t, msg.ToolResults)
}

func TestNewAssistantMessage(t *testing.T) {
	t.Run("content only", func(t *testing.T) {
		msg := NewAssistantMessage("Hi there", nil)

		assert.Equal(t, RoleAssistant, msg.Role)
		assert.Equal(t, "Hi there", msg.Content)
		assert.Empty(t, msg.ToolCalls)
	})

	t.Run("with tool calls", func(t *testing.T) {
		calls := []ToolCall{
			{ID: "call_1", Name: "get_weather", Arguments: `{"city":"NYC"}`},
		}
		msg := NewAssistantMessage("", calls)

		assert.Equal(t, RoleAssistant, msg.Role)
		assert.Len(t, msg.ToolCalls, 1)
		assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
		assert.Equal(t, "get_weather", msg.ToolCalls[0].Name)
	})
}

func TestNewSystemMessage(t *testing.T) {
	msg := NewSystemMessage("You are a helpful assistant.")

	assert.Equal(t, RoleSystem, msg.Role)
	assert.Equal(t, "You are a helpful assistant.", msg.Content)
}

func TestNewToolResultMessage(t *testing.T) {
	msg := NewToolResultMessage(
		ToolResult{ToolCallID: "call_1", Content: "72F", IsError: false},
		ToolResult{ToolCallID: "call_2", Content: "Error: not found", IsError: true},
	)

	assert.Equal(t, RoleTool, msg.Role)
	assert.Len(t, msg.ToolResults, 2)
	assert.Equal(t, "call_1", msg.ToolResults[0].ToolCallID)
	assert.True(t, msg.ToolResults[1].IsError)
}

func TestResponseStruct(t *testing.T) {
	t.Run("creates response with content", func(t *testing.T) {
		resp := Response{
			Content:      "Hello!",
			FinishReason: "stop",
			Usage: Usage{
				InputTokens:  10,
				OutputTokens: 5,
			},
		}
		assert.Equal(t, "Hello!", resp.Content)
		assert.Equal(t, "stop", resp.FinishReason)
		assert.Equal(t, 10, resp.Usage.InputTokens)
		assert.Equal(t, 5, resp.Usage.OutputTokens)
	})

	t.Run("creates response with tool calls", func(t *testing.T) {
		resp := Response{
			FinishReason: "tool_calls",
			ToolCalls: []ToolCall{
				{ID: "call_1", Name: "search"},
			},
		}
		assert.Len(t, resp.ToolCalls, 1)
	})
}

func TestStreamEventStruct(t *testing.T) {
	t.Run("creates delta event", func(t *testing.T) {
		event := StreamEvent{
			Delta: "Hello",
			Done:  false,
		}
		assert.Equal(t, "Hello", event.Delta)
		assert.False(t, event.Done)
		assert.Nil(t, event.Response)
		assert.Nil(t, event.Err)
	})

	t.Run("creates done event with response", func(t *testing.T) {
		event := StreamEvent{
			Done: true,
			Response: &Response{
				Content:      "Complete message",
				FinishReason: "stop",
			},
		}
		assert.True(t, event.Done)
		assert.NotNil(t, event.Response)
		assert.Equal(t, "Complete message", event.Response.Content)
	})

	t.Run("creates error event", func(t *testing.T) {
		event := StreamEvent{
			Err: assert.AnError,
		}
		assert.NotNil(t, event.Err)
	})
}
