package agui

import (
	"encoding/json"

	"github.com/bigduu/conductor/agent"
)

// ApprovalInput is an approval decision from the AG-UI frontend,
// answering an approval_requested activity.
type ApprovalInput struct {
	RequestID string `json:"requestId"`
	Approved  bool   `json:"approved"`
	Reason    string `json:"reason,omitempty"`
}

// ParseApprovalInput parses an approval decision from JSON.
func ParseApprovalInput(data []byte) (*ApprovalInput, error) {
	var input ApprovalInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Decision converts the input to an agent.ApprovalDecision.
func (a *ApprovalInput) Decision() agent.ApprovalDecision {
	return agent.ApprovalDecision{
		RequestID: a.RequestID,
		Approved:  a.Approved,
		Reason:    a.Reason,
	}
}

// HandleApproval routes an approval input to the broker.
func HandleApproval(broker *agent.ApprovalBroker, input *ApprovalInput) error {
	return broker.Decide(input.Decision())
}

// HandleApprovalJSON routes a JSON-encoded approval input to the broker.
func HandleApprovalJSON(broker *agent.ApprovalBroker, data []byte) error {
	input, err := ParseApprovalInput(data)
	if err != nil {
		return err
	}
	return HandleApproval(broker, input)
}
