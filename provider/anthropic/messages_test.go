package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/bigduu/conductor"
)

func TestConvertMessages(t *testing.T) {
	msgs, system := convertMessages([]ai.Message{
		{Role: ai.RoleSystem, Content: "be helpful"},
		{Role: ai.RoleUser, Content: "what's the weather?"},
		{Role: ai.RoleAssistant, Content: "checking", ToolCalls: []ai.ToolCall{
			{ID: "toolu_01", Name: "get_weather", Arguments: `{"city":"Tokyo"}`},
		}},
		ai.NewToolResultMessage(ai.ToolResult{ToolCallID: "toolu_01", Content: "sunny"}),
	})

	require.Len(t, system, 1)
	assert.Equal(t, "be helpful", system[0].Text)

	require.Len(t, msgs, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)

	// text block plus tool_use block
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	assert.Len(t, msgs[1].Content, 2)

	// tool results travel as a user message
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	assert.Len(t, msgs[2].Content, 1)
}

func TestConvertMessages_SkipsEmpty(t *testing.T) {
	msgs, system := convertMessages([]ai.Message{
		{Role: ai.RoleUser, Content: ""},
		{Role: ai.RoleSystem, Content: ""},
		{Role: ai.RoleAssistant, Content: ""},
	})
	assert.Empty(t, msgs)
	assert.Empty(t, system)
}

func TestExtractContent(t *testing.T) {
	content, calls := extractContent([]anthropic.ContentBlockUnion{
		{Type: "text", Text: "Let me check. "},
		{Type: "tool_use", ID: "toolu_01", Name: "get_weather", Input: []byte(`{"city":"Tokyo"}`)},
		{Type: "text", Text: "One moment."},
	})

	assert.Equal(t, "Let me check. One moment.", content)
	require.Len(t, calls, 1)
	assert.Equal(t, "toolu_01", calls[0].ID)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.JSONEq(t, `{"city":"Tokyo"}`, calls[0].Arguments)
}

func TestConvertTools(t *testing.T) {
	params := convertTools([]ai.Tool{{
		Name:        "get_weather",
		Description: "Get current weather",
		Parameters:  []byte(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
	}})

	require.Len(t, params, 1)
	tool := params[0].OfTool
	require.NotNil(t, tool)
	assert.Equal(t, "get_weather", tool.Name)
	assert.Equal(t, []string{"city"}, tool.InputSchema.Required)

	props, ok := tool.InputSchema.Properties.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")
}
