package agui

import (
	"errors"

	ai "github.com/bigduu/conductor"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
)

// RunAgentInput is the AG-UI protocol request for running an agent.
// It mirrors the protocol specification and is transport-agnostic.
type RunAgentInput struct {
	ThreadID       string           `json:"thread_id"`
	RunID          string           `json:"run_id"`
	Messages       []events.Message `json:"messages"`
	State          any              `json:"state,omitempty"`
	ForwardedProps any              `json:"forwarded_props,omitempty"`
}

// PreparedInput contains validated and converted input ready for a run.
type PreparedInput struct {
	ThreadID string
	RunID    string
	Messages []ai.Message
}

// ErrNoMessages is returned when the input contains no messages.
var ErrNoMessages = errors.New("no messages provided")

// Prepare validates the input and converts it to conductor types.
// Returns ErrNoMessages if Messages is empty.
func (r *RunAgentInput) Prepare() (*PreparedInput, error) {
	messages := ToMessages(r.Messages)
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	return &PreparedInput{
		ThreadID: r.ThreadID,
		RunID:    r.RunID,
		Messages: messages,
	}, nil
}

// LastUserText returns the content of the most recent user message, or
// an empty string when there is none. Engines that key turns off the
// latest user message use this to extract it from a full AG-UI history.
func (p *PreparedInput) LastUserText() string {
	for i := len(p.Messages) - 1; i >= 0; i-- {
		if p.Messages[i].Role == ai.RoleUser {
			return p.Messages[i].Content
		}
	}
	return ""
}
