// Package openai provides an OpenAI API client implementing [conductor.ChatProvider].
//
// This package wraps the official OpenAI Go SDK to provide GPT model access
// through the conductor unified interface.
//
// # Supported Features
//
//   - Chat completions (streaming and non-streaming)
//   - Tool/function calling
//
// # Available Models
//
//   - [GPT52]: Flagship model (recommended default)
//   - [GPT52Pro]: Enhanced reasoning capabilities
//   - [GPT51], [GPT51Mini], [GPT51Codex]: Previous generation
//   - [O3], [O3Mini], [O4Mini]: Reasoning-optimized models
//
// # Basic Usage
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"))
//
//	messages := []conductor.Message{
//	    {Role: conductor.RoleSystem, Content: "You are a helpful assistant."},
//	    {Role: conductor.RoleUser, Content: "Hello!"},
//	}
//
//	resp, err := client.Chat(ctx, messages)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.Content)
//
// # Model Selection
//
// Set a default model at client creation:
//
//	client := openai.New(apiKey, openai.WithModel(openai.GPT51Mini))
//
// Or per-request:
//
//	resp, err := client.Chat(ctx, messages, conductor.WithModel(string(openai.O4Mini)))
//
// # Streaming
//
//	stream, err := client.ChatStream(ctx, messages)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range stream {
//	    if event.Err != nil {
//	        log.Fatal(event.Err)
//	    }
//	    if !event.Done {
//	        fmt.Print(event.Delta)
//	    }
//	}
//
// # Tool Calling
//
// Pass tool definitions per request; calls requested by the model come back
// on [conductor.Response.ToolCalls]:
//
//	resp, err := client.Chat(ctx, messages, conductor.WithTools(registry.Tools()))
//	for _, call := range resp.ToolCalls {
//	    fmt.Println(call.Name, call.Arguments)
//	}
package openai
