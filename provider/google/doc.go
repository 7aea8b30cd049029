// Package google provides a Google Gemini API client implementing [conductor.ChatProvider].
//
// This package wraps the Google GenAI SDK to provide Gemini model access
// through the conductor unified interface.
//
// # Supported Features
//
//   - Chat completions (streaming and non-streaming)
//   - Tool/function calling
//
// # Available Models
//
//   - [Gemini3Pro]: Latest flagship model
//   - [Gemini3DeepThink]: Enhanced reasoning capabilities
//   - [Gemini25Pro]: Previous generation flagship
//   - [Gemini25Flash]: Fast and cost-effective (recommended default)
//   - [Gemini25FlashLite]: Most cost-effective option
//
// # Basic Usage
//
//	client, err := google.New(ctx, os.Getenv("GEMINI_API_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	messages := []conductor.Message{
//	    {Role: conductor.RoleUser, Content: "Hello!"},
//	}
//
//	resp, err := client.Chat(ctx, messages)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.Content)
//
// # Tool Call Identifiers
//
// Gemini function calls carry no call ID on the wire, so the client
// synthesizes one from the part index and function name. The scheme is
// reversed automatically when tool results are sent back.
package google
