package conductor

import "strings"

// Provider identifies an AI provider.
type Provider string

// String returns the provider identifier.
func (p Provider) String() string { return string(p) }

// Supported providers.
const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
)

// ParseModel splits a provider-qualified model identifier such as
// "anthropic/claude-sonnet-4-5" into its provider and bare model name.
// Identifiers without a qualifier return an empty Provider; callers fall
// back to their configured default.
func ParseModel(model string) (Provider, string) {
	before, after, found := strings.Cut(model, "/")
	if !found {
		return "", model
	}
	switch Provider(before) {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle:
		return Provider(before), after
	default:
		return "", model
	}
}
