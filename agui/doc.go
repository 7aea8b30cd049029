// Package agui bridges conductor to the AG-UI protocol.
//
// AG-UI (Agent-User Interface) is an open, event-based protocol for
// connecting AI agents to user-facing applications. This package maps
// engine events to AG-UI events for SSE frontends and parses frontend
// inputs (approval decisions, clarification answers) back into broker
// submissions.
//
// # Event mapping
//
// Create a [Mapper] per run and feed it the engine's event stream:
//
//	mapper := agui.NewMapper(threadID, runID)
//	for ev := range mapper.MapStream(events) {
//	    writeSSE(w, ev)
//	}
//
// Run, message, and tool-call lifecycle events map 1:1 onto their AG-UI
// counterparts. Events without a protocol equivalent - approval and
// clarification requests, state transitions, retry attempts - surface
// as CUSTOM events so frontends can render them as activities.
//
// # Frontend inputs
//
// [HandleApprovalJSON] and [HandleClarificationJSON] decode frontend
// payloads and route them to the engine's brokers:
//
//	mux.HandleFunc("POST /v1/approvals/{id}", func(w http.ResponseWriter, r *http.Request) {
//	    body, _ := io.ReadAll(r.Body)
//	    if err := agui.HandleApprovalJSON(broker, body); err != nil { ... }
//	})
//
// # Thread safety
//
// A Mapper is not safe for concurrent use; create one per run. The
// conversion and input helpers are stateless and safe to share.
package agui
