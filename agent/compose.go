package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	ai "github.com/bigduu/conductor"
	"github.com/bigduu/conductor/composition"
	"github.com/bigduu/conductor/tool"
)

// ComposeToolName is the registry name of the builtin composition
// dispatch. A batch containing it always executes sequentially.
const ComposeToolName = "compose"

const composeDescription = "Execute a composition expression tree: sequence, parallel, " +
	"choice, retry, let/var, and tool calls combined into one plan. " +
	"Pass the expression as JSON under the \"expression\" key."

var composeSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"expression": {
			"type": "object",
			"description": "Composition expression tree in the JSON wire format."
		}
	},
	"required": ["expression"]
}`)

type composeArgs struct {
	Expression json.RawMessage `json:"expression"`
}

// ComposeTool exposes the composition executor to the model as a
// registered tool. The handler decodes the expression from the call
// arguments and evaluates it against a fresh context; inner gated calls
// still pass through the executor's approval gate, and execution events
// surface on the run's event stream.
func ComposeTool(x *composition.Executor) tool.Registration {
	return tool.Registration{
		Tool: ai.Tool{
			Name:        ComposeToolName,
			Description: composeDescription,
			Parameters:  composeSchema,
		},
		Handler: func(ctx context.Context, call ai.ToolCall) (string, error) {
			var args composeArgs
			if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
				return "", fmt.Errorf("compose: parsing arguments: %w", err)
			}
			if len(args.Expression) == 0 {
				return "", errors.New("compose: missing expression")
			}

			expr, err := composition.UnmarshalExpr(args.Expression)
			if err != nil {
				return "", err
			}

			res, err := x.Execute(ctx, expr, composition.NewContext())
			if err != nil {
				return "", err
			}
			if !res.Success {
				return "", errors.New(res.Output)
			}
			return res.Output, nil
		},
	}
}
