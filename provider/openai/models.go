package openai

// Model pricing last verified: December 14, 2025
// Source: https://platform.openai.com/docs/pricing

// ChatModel represents an OpenAI chat/completion model.
type ChatModel string

const (
	// GPT-5.2 Series (Latest - December 2025)
	GPT52    ChatModel = "gpt-5.2"     // Flagship model
	GPT52Pro ChatModel = "gpt-5.2-pro" // Enhanced reasoning

	// GPT-5.1 Series
	GPT51      ChatModel = "gpt-5.1"
	GPT51Mini  ChatModel = "gpt-5.1-mini"
	GPT51Codex ChatModel = "gpt-5.1-codex" // Optimized for code

	// GPT-5 Series
	GPT5     ChatModel = "gpt-5"
	GPT5Mini ChatModel = "gpt-5-mini"
	GPT5Nano ChatModel = "gpt-5-nano"
	GPT5Pro  ChatModel = "gpt-5-pro"

	// O-Series Reasoning Models
	O3     ChatModel = "o3"
	O3Mini ChatModel = "o3-mini"
	O4Mini ChatModel = "o4-mini"

	// DefaultChatModel is the recommended default model.
	DefaultChatModel ChatModel = GPT52
)

// ChatModelPricing contains pricing per million tokens (USD).
type ChatModelPricing struct {
	InputPerMillion       float64
	OutputPerMillion      float64
	CachedInputPerMillion float64 // For cached prompts
}

// Pricing returns the pricing for this model.
func (m ChatModel) Pricing() ChatModelPricing {
	switch m {
	case GPT52:
		return ChatModelPricing{InputPerMillion: 1.75, OutputPerMillion: 14.00, CachedInputPerMillion: 0.175}
	case GPT52Pro:
		return ChatModelPricing{InputPerMillion: 3.50, OutputPerMillion: 28.00, CachedInputPerMillion: 0.35}
	case GPT51:
		return ChatModelPricing{InputPerMillion: 1.25, OutputPerMillion: 10.00, CachedInputPerMillion: 0.125}
	case GPT51Mini:
		return ChatModelPricing{InputPerMillion: 0.30, OutputPerMillion: 1.25, CachedInputPerMillion: 0.03}
	case GPT51Codex:
		return ChatModelPricing{InputPerMillion: 1.25, OutputPerMillion: 10.00, CachedInputPerMillion: 0.125}
	case GPT5:
		return ChatModelPricing{InputPerMillion: 1.25, OutputPerMillion: 10.00, CachedInputPerMillion: 0.125}
	case GPT5Mini:
		return ChatModelPricing{InputPerMillion: 0.25, OutputPerMillion: 1.00, CachedInputPerMillion: 0.025}
	case GPT5Nano:
		return ChatModelPricing{InputPerMillion: 0.10, OutputPerMillion: 0.40, CachedInputPerMillion: 0.01}
	case GPT5Pro:
		return ChatModelPricing{InputPerMillion: 2.50, OutputPerMillion: 20.00, CachedInputPerMillion: 0.25}
	case O3:
		return ChatModelPricing{InputPerMillion: 2.00, OutputPerMillion: 16.00, CachedInputPerMillion: 0.20}
	case O3Mini:
		return ChatModelPricing{InputPerMillion: 0.50, OutputPerMillion: 2.00, CachedInputPerMillion: 0.05}
	case O4Mini:
		return ChatModelPricing{InputPerMillion: 0.50, OutputPerMillion: 2.00, CachedInputPerMillion: 0.05}
	default:
		return ChatModelPricing{}
	}
}

// String returns the model identifier string.
func (m ChatModel) String() string { return string(m) }
