package agui

import (
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/bigduu/conductor/event"
)

// Custom event names used for conductor events that have no AG-UI
// equivalent. Frontends receive them as CUSTOM events with a typed
// value payload.
const (
	CustomStateChanged           = "state_changed"
	CustomApprovalRequested      = "approval_requested"
	CustomClarificationRequested = "clarification_requested"
	CustomClarificationAnswered  = "clarification_answered"
	CustomRouteSelected          = "route_selected"
	CustomLoopIteration          = "loop_iteration"
	CustomRetryAttempt           = "retry_attempt"
)

// Mapper converts conductor events to AG-UI events. With the unified
// event system this is a 1:1 mapping: each conductor event maps to at
// most one AG-UI event.
//
// Create a new Mapper for each run. A Mapper is not safe for
// concurrent use.
type Mapper struct {
	threadID string
	runID    string
}

// NewMapper creates a Mapper for a single run. Empty IDs are generated.
func NewMapper(threadID, runID string) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if runID == "" {
		runID = events.GenerateRunID()
	}
	return &Mapper{
		threadID: threadID,
		runID:    runID,
	}
}

// ThreadID returns the thread ID for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// RunID returns the run ID for this mapper.
func (m *Mapper) RunID() string {
	return m.runID
}

// RunStarted returns a RUN_STARTED event.
func (m *Mapper) RunStarted() events.Event {
	return events.NewRunStartedEvent(m.threadID, m.runID)
}

// RunFinished returns a RUN_FINISHED event.
func (m *Mapper) RunFinished() events.Event {
	return events.NewRunFinishedEvent(m.threadID, m.runID)
}

// RunError returns a RUN_ERROR event.
func (m *Mapper) RunError(err error) events.Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return events.NewRunErrorEvent(msg)
}

// MapEvent converts one conductor event to an AG-UI event. Events with
// no AG-UI equivalent return nil.
func (m *Mapper) MapEvent(e event.Event) events.Event {
	switch e.Type {
	// Run lifecycle
	case event.RunStart:
		return m.RunStarted()
	case event.RunEnd:
		return m.RunFinished()
	case event.RunError:
		if e.Error == nil && e.Message != "" {
			return events.NewRunErrorEvent(e.Message)
		}
		return m.RunError(e.Error)
	case event.StateChanged:
		return events.NewCustomEvent(CustomStateChanged, events.WithValue(map[string]any{
			"from": e.From,
			"to":   e.To,
		}))

	// Message lifecycle
	case event.MessageStart:
		return events.NewTextMessageStartEvent(
			e.MessageID,
			events.WithRole(RoleAssistant),
		)
	case event.MessageDelta:
		return events.NewTextMessageContentEvent(e.MessageID, e.Delta)
	case event.MessageEnd:
		return events.NewTextMessageEndEvent(e.MessageID)

	// Tool call lifecycle
	case event.ToolCallStart:
		if e.ToolCall == nil {
			return nil
		}
		return events.NewToolCallStartEvent(e.ToolCall.ID, e.ToolCall.Name)
	case event.ToolCallArgs:
		if e.ToolCall == nil {
			return nil
		}
		return events.NewToolCallArgsEvent(e.ToolCall.ID, e.ToolCall.Arguments)
	case event.ToolCallEnd:
		if e.ToolCall == nil {
			return nil
		}
		return events.NewToolCallEndEvent(e.ToolCall.ID)
	case event.ToolCallResult:
		if e.ToolCall == nil || e.ToolResult == nil {
			return nil
		}
		messageID := events.GenerateMessageID()
		return events.NewToolCallResultEvent(messageID, e.ToolCall.ID, e.ToolResult.Content)

	// Human-in-the-loop suspensions surface as CUSTOM activities; the
	// approve/deny outcomes are already visible through the tool result
	// that follows them.
	case event.ApprovalRequested:
		value := map[string]any{"request_id": e.RequestID}
		if e.ToolCall != nil {
			value["tool"] = e.ToolCall.Name
			value["arguments"] = e.ToolCall.Arguments
		}
		return events.NewCustomEvent(CustomApprovalRequested, events.WithValue(value))
	case event.ClarificationRequested:
		return events.NewCustomEvent(CustomClarificationRequested, events.WithValue(map[string]any{
			"request_id": e.RequestID,
			"question":   e.Question,
			"options":    e.Choices,
		}))
	case event.ClarificationAnswered:
		return events.NewCustomEvent(CustomClarificationAnswered, events.WithValue(map[string]any{
			"request_id": e.RequestID,
			"answer":     e.Message,
		}))
	case event.ToolCallApproved, event.ToolCallRejected, event.ToolCallExecuting:
		return nil

	// Composition execution
	case event.StepStart:
		return events.NewStepStartedEvent(e.StepName)
	case event.StepEnd, event.StepSkipped:
		// Skipped steps are immediately done.
		return events.NewStepFinishedEvent(e.StepName)
	case event.ParallelStart:
		return events.NewStepStartedEvent(parallelStepName)
	case event.ParallelEnd:
		return events.NewStepFinishedEvent(parallelStepName)
	case event.RouteSelected:
		return events.NewCustomEvent(CustomRouteSelected, events.WithValue(map[string]any{
			"route": e.RouteName,
		}))
	case event.RetryAttempt:
		return events.NewCustomEvent(CustomRetryAttempt, events.WithValue(map[string]any{
			"attempt": e.Attempt,
		}))
	case event.LoopIteration:
		return events.NewCustomEvent(CustomLoopIteration, events.WithValue(map[string]any{
			"iteration": e.Iteration,
		}))

	default:
		return nil
	}
}

// parallelStepName labels parallel execution in AG-UI step events,
// which require a step name.
const parallelStepName = "parallel"

// MapStream maps a conductor event stream to an AG-UI event stream,
// dropping events without an AG-UI equivalent. The returned channel
// closes when the input channel closes.
func (m *Mapper) MapStream(in <-chan event.Event) <-chan events.Event {
	out := make(chan events.Event)
	go func() {
		defer close(out)
		for e := range in {
			if mapped := m.MapEvent(e); mapped != nil {
				out <- mapped
			}
		}
	}()
	return out
}
