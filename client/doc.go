// Package client provides a unified multi-provider chat client.
//
// The Client wraps provider-specific implementations and provides:
//
//   - Prefix routing: "anthropic/...", "openai/...", and "google/..." model
//     identifiers select the backend automatically
//   - Multi-provider support: Configure all providers at once, use any model
//   - Automatic retries: Built-in exponential backoff for transient errors
//   - Event emission: Observable operations via channel
//
// Client implements [github.com/bigduu/conductor/chat.Client], the interface
// the agent and engine packages consume.
//
// # Basic Usage
//
// Create a client with API keys and a default model:
//
//	c := client.New(client.Config{
//	    APIKeys: client.APIKeys{
//	        Anthropic: os.Getenv("ANTHROPIC_API_KEY"),
//	        OpenAI:    os.Getenv("OPENAI_API_KEY"),
//	    },
//	    DefaultModel: "anthropic/claude-sonnet-4-5",
//	})
//
//	resp, err := c.Chat(ctx, []ai.Message{
//	    {Role: ai.RoleUser, Content: "Hello!"},
//	})
//
// # Model Routing
//
// The model's provider prefix determines the backend:
//
//	// Uses the default model (routes to Anthropic)
//	resp, _ := c.Chat(ctx, messages)
//
//	// Override with GPT-5.2 (routes to OpenAI)
//	resp, _ := c.Chat(ctx, messages, ai.WithModel("openai/gpt-5.2"))
//
//	// Override with Gemini (routes to Google)
//	resp, _ := c.Chat(ctx, messages, ai.WithModel("google/gemini-2.5-flash"))
//
// Unqualified names like "claude-haiku-4-5" borrow the default model's
// provider. Providers always receive the bare model name.
//
// # Streaming
//
// ChatStream returns lifecycle events rather than raw chunks:
//
//	events, err := c.ChatStream(ctx, messages)
//	if err != nil {
//	    return err
//	}
//	for ev := range events {
//	    switch ev.Type {
//	    case event.MessageDelta:
//	        fmt.Print(ev.Delta)
//	    case event.MessageEnd:
//	        fmt.Println()
//	        return nil
//	    case event.RunError:
//	        return ev.Error
//	    }
//	}
//
// # Retry Configuration
//
// The client automatically retries transient errors (rate limits, timeouts, 5xx errors).
// Customize retry behavior:
//
//	c := client.New(client.Config{
//	    APIKeys: client.APIKeys{OpenAI: os.Getenv("OPENAI_API_KEY")},
//	    DefaultModel: "openai/gpt-5.2",
//	    Retry: &retry.Config{
//	        MaxAttempts:  5,
//	        InitialDelay: 500 * time.Millisecond,
//	        MaxDelay:     30 * time.Second,
//	    },
//	})
//
// # Events
//
// Observe operations via an event channel:
//
//	events := make(chan client.Event, 100)
//	c := client.New(client.Config{
//	    APIKeys: client.APIKeys{OpenAI: os.Getenv("OPENAI_API_KEY")},
//	    DefaultModel: "openai/gpt-5.2",
//	    Events:  events,
//	})
//
//	go func() {
//	    for e := range events {
//	        fmt.Printf("[%s] %s took %v\n", e.Type, e.Operation, e.Duration)
//	    }
//	}()
package client
