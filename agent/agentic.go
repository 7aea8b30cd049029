package agent

import (
	"encoding/json"
	"strings"

	ai "github.com/bigduu/conductor"
)

// MaxSubActions bounds how many queued sub-actions one turn may execute
// before the loop fails with a LoopDepthError.
const MaxSubActions = 64

// Kind discriminates agentic result payloads.
type Kind string

const (
	// KindSuccess carries a final result for the call.
	KindSuccess Kind = "success"

	// KindError reports a tool-level failure the model should see.
	KindError Kind = "error"

	// KindNeedClarification asks the user a question before the tool can
	// finish its job.
	KindNeedClarification Kind = "need_clarification"

	// KindNeedMoreActions requests follow-up tool calls without an LLM
	// round-trip.
	KindNeedMoreActions Kind = "need_more_actions"
)

// AgenticResult is the structured payload a tool may return instead of
// plain text. The wire shape is adjacently tagged JSON:
//
//	{"type": "need_clarification", "data": {"question": "..."}}
//
// Tools produce these with the Success, Error, NeedClarification, and
// NeedMoreActions constructors; the loop recognizes them with Parse.
type AgenticResult struct {
	Kind Kind

	// Result is the final content for KindSuccess.
	Result string

	// Error is the failure text for KindError.
	Error string

	// Question and Options belong to KindNeedClarification.
	Question string
	Options  []string

	// Reason and Actions belong to KindNeedMoreActions.
	Reason  string
	Actions []ai.ToolCall
}

type agenticEnvelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

type successData struct {
	Result string `json:"result"`
}

type errorData struct {
	Error string `json:"error"`
}

type clarificationData struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

type moreActionsData struct {
	Actions []wireAction `json:"actions"`
	Reason  string       `json:"reason"`
}

// wireAction is a tool call as tools write it: arguments may be a JSON
// object or a pre-encoded string.
type wireAction struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Success encodes a final result payload.
func Success(result string) string {
	return encodeAgentic(KindSuccess, successData{Result: result})
}

// Error encodes a tool-level failure payload.
func Error(message string) string {
	return encodeAgentic(KindError, errorData{Error: message})
}

// NeedClarification encodes a question for the user, with optional
// suggested answers.
func NeedClarification(question string, options ...string) string {
	return encodeAgentic(KindNeedClarification, clarificationData{Question: question, Options: options})
}

// NeedMoreActions encodes follow-up tool calls the loop should execute
// before returning to the model.
func NeedMoreActions(reason string, actions ...ai.ToolCall) string {
	wire := make([]wireAction, len(actions))
	for i, a := range actions {
		wire[i] = wireAction{ID: a.ID, Name: a.Name, Arguments: encodeActionArgs(a.Arguments)}
	}
	return encodeAgentic(KindNeedMoreActions, moreActionsData{Actions: wire, Reason: reason})
}

func encodeAgentic(kind Kind, data any) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	out, err := json.Marshal(agenticEnvelope{Type: kind, Data: raw})
	if err != nil {
		return ""
	}
	return string(out)
}

func encodeActionArgs(args string) json.RawMessage {
	if args == "" {
		return nil
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	quoted, err := json.Marshal(args)
	if err != nil {
		return nil
	}
	return quoted
}

// Parse inspects tool result content for an agentic payload. Content
// that does not start with '{', fails to decode, or carries an unknown
// type is a plain result and returns ok=false.
func Parse(content string) (AgenticResult, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return AgenticResult{}, false
	}

	var env agenticEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return AgenticResult{}, false
	}

	switch env.Type {
	case KindSuccess:
		var d successData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return AgenticResult{}, false
		}
		return AgenticResult{Kind: KindSuccess, Result: d.Result}, true

	case KindError:
		var d errorData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return AgenticResult{}, false
		}
		return AgenticResult{Kind: KindError, Error: d.Error}, true

	case KindNeedClarification:
		var d clarificationData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return AgenticResult{}, false
		}
		return AgenticResult{Kind: KindNeedClarification, Question: d.Question, Options: d.Options}, true

	case KindNeedMoreActions:
		var d moreActionsData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return AgenticResult{}, false
		}
		actions := make([]ai.ToolCall, len(d.Actions))
		for i, a := range d.Actions {
			actions[i] = ai.ToolCall{ID: a.ID, Name: a.Name, Arguments: decodeActionArgs(a.Arguments)}
		}
		return AgenticResult{Kind: KindNeedMoreActions, Reason: d.Reason, Actions: actions}, true

	default:
		return AgenticResult{}, false
	}
}

func decodeActionArgs(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	// Tools may double-encode arguments as a JSON string.
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
