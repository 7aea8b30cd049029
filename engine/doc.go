// Package engine hosts conversations and runs agent turns against them.
//
// An [Engine] owns the pieces one chat application needs: a chat
// client, a tool registry, the approval and clarification brokers, and
// a conversation store. [Engine.ProcessMessage] appends a user message
// and streams one turn's events; the other methods resolve suspended
// phases and manage tools and history.
//
//	eng, err := engine.New(engine.Config{
//	    Client:   client.New(client.Config{APIKeys: keys, DefaultModel: "anthropic/claude-sonnet-4-5"}),
//	    Registry: registry,
//	    Store:    store.NewFileAdapter(dir),
//	    Logger:   logger,
//	})
//
//	events, err := eng.ProcessMessage(ctx, conversationID, "archive last week's reports")
//	for ev := range events {
//	    switch ev.Type {
//	    case event.ApprovalRequested:
//	        // surface to the user; later:
//	        // eng.SubmitApproval(ev.RequestID, true, "")
//	    case event.MessageDelta:
//	        fmt.Print(ev.Delta)
//	    }
//	}
//
// # Concurrency
//
// Conversations are independent: each has its own state machine and
// history, and turns in different conversations run concurrently. One
// conversation processes one message at a time; a second
// ProcessMessage while a turn is active returns [ErrConversationBusy].
//
// # Persistence
//
// The conversation is saved whenever its history or state changes, at
// phase boundaries: after the user message is appended, on every state
// transition, when a turn suspends on an approval or clarification,
// and when the turn ends. Save failures are logged and never fail the
// turn.
package engine
