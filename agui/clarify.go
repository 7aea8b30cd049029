package agui

import (
	"encoding/json"

	"github.com/bigduu/conductor/agent"
)

// ClarificationInput is a user's answer from the AG-UI frontend,
// resolving a clarification_requested activity. Cancelled marks an
// explicit refusal to answer.
type ClarificationInput struct {
	RequestID string `json:"requestId"`
	Answer    string `json:"answer,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// ParseClarificationInput parses a clarification answer from JSON.
func ParseClarificationInput(data []byte) (*ClarificationInput, error) {
	var input ClarificationInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// ToAnswer converts the input to an agent.ClarificationAnswer.
func (c *ClarificationInput) ToAnswer() agent.ClarificationAnswer {
	return agent.ClarificationAnswer{
		RequestID: c.RequestID,
		Answer:    c.Answer,
		Cancelled: c.Cancelled,
	}
}

// HandleClarification routes a clarification input to the broker.
func HandleClarification(broker *agent.ClarificationBroker, input *ClarificationInput) error {
	return broker.Answer(input.ToAnswer())
}

// HandleClarificationJSON routes a JSON-encoded clarification input to
// the broker.
func HandleClarificationJSON(broker *agent.ClarificationBroker, data []byte) error {
	input, err := ParseClarificationInput(data)
	if err != nil {
		return err
	}
	return HandleClarification(broker, input)
}
