// Package conductor provides the core types for an autonomous
// tool-orchestration engine embedded in LLM chat applications.
//
// The root package defines the shared vocabulary: messages, tool
// descriptors, chat requests and responses, and the categorized error
// taxonomy. The behavior lives in the subpackages:
//
//   - composition: a declarative expression tree (Call, Sequence, Parallel,
//     Choice, Retry, Let, Var) evaluated against a tool registry with
//     scoped variable bindings.
//   - tool: a thread-safe registry of named tools with JSON-schema
//     parameter validation and built-in file/http tools.
//   - agent: the conversation turn loop - a state machine driving
//     LLM rounds, tool execution, approval gating, and agentic results.
//   - engine: the embeddable conversation engine exposing ProcessMessage,
//     SubmitApproval, SubmitClarification, and dynamic tool registration.
//   - client + provider/*: a unified chat client over the Anthropic,
//     OpenAI, and Google SDKs with retry on transient failures.
//   - store: conversation persistence behind a small adapter interface.
//   - mcp: mounting tools from MCP servers into the registry.
//   - agui: AG-UI protocol bridging for SSE frontends.
//
// # Quick start
//
// Register tools, build an engine, and process a message:
//
//	registry := tool.NewRegistry()
//	tool.MustBindTo(registry, "get_weather", "Get current weather",
//	    func(ctx context.Context, args WeatherArgs) (string, error) {
//	        return fmt.Sprintf(`{"temp": 72, "location": %q}`, args.Location), nil
//	    })
//
//	eng, err := engine.New(engine.Config{
//	    Client:   llmClient,
//	    Registry: registry,
//	    Store:    store.NewMemoryAdapter(),
//	})
//
//	events, err := eng.ProcessMessage(ctx, conversationID, "What's the weather in Paris?")
//	for e := range events {
//	    switch e.Type {
//	    case event.MessageDelta:
//	        fmt.Print(e.Delta)
//	    case event.ApprovalRequested:
//	        // surface e.RequestID to the user, then eng.SubmitApproval(...)
//	    }
//	}
//
// # Compositions
//
// Tool calls can be composed declaratively and executed as one unit:
//
//	expr := composition.NewSequence(
//	    composition.NewCall("fetch_orders", map[string]any{"status": "open"}),
//	    composition.NewCall("summarize", map[string]any{"data": "${_last}"}),
//	)
//	result, err := exec.Execute(ctx, expr, composition.NewContext())
//
// # Errors
//
// Errors carry a category (transient, permanent, user input) so callers
// can decide between retrying, failing, or asking the user to fix input.
// Use IsTransient, IsPermanent, and IsUserInput for classification.
package conductor
