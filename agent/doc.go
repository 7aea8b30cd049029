// Package agent implements the autonomous tool-orchestration loop.
//
// A [Loop] runs one conversation turn at a time: it streams a model
// response, dispatches the model's tool calls through the composition
// executor, feeds results back into the history, and repeats until the
// model answers without tools or a limit trips.
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("search", "Search the workspace", searchHandler),
//	    tool.GatedFunc("delete_file", "Delete a file", deleteHandler),
//	)
//	loop := agent.New(client, registry)
//
//	result, err := loop.Run(ctx, []ai.Message{ai.NewUserMessage("clean up old logs")})
//
// # Approval
//
// Tools registered with RequiresApproval suspend the loop in
// awaiting_approval until a decision arrives on the [ApprovalBroker].
// A denial is reported to the model as an erroring tool result; it
// never aborts the turn. Timeouts behave as denials with a
// distinguishable reason.
//
//	go func() {
//	    for ev := range loop.RunStream(ctx, messages) {
//	        if ev.Type == event.ApprovalRequested {
//	            loop.Approvals().Approve(ev.RequestID)
//	        }
//	    }
//	}()
//
// # Agentic results
//
// A tool may return a structured payload instead of plain text: a
// final result, an error, a clarification question that suspends the
// turn until the user answers, or follow-up actions executed without
// an LLM round-trip. See [Parse] and the [Success], [Error],
// [NeedClarification], and [NeedMoreActions] constructors.
//
// # State
//
// Each conversation has a [Machine] tracking its phase (idle,
// awaiting_llm, streaming_response, awaiting_approval,
// awaiting_clarification, tool_execution, completed, failed). Only
// moves in the transition table are accepted; illegal moves error and
// leave the state unchanged.
package agent
