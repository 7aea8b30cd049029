package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	ai "github.com/bigduu/conductor"
	"github.com/bigduu/conductor/chat"
	"github.com/bigduu/conductor/event"
	"github.com/bigduu/conductor/provider/anthropic"
	"github.com/bigduu/conductor/provider/google"
	"github.com/bigduu/conductor/provider/openai"
	"github.com/bigduu/conductor/retry"
)

// APIKeys holds API keys for different providers.
// Only configure keys for providers you intend to use.
type APIKeys struct {
	Anthropic string
	OpenAI    string
	Google    string
}

// Config holds configuration for creating a unified client.
type Config struct {
	// APIKeys contains authentication keys for each provider.
	// Only configure keys for providers you intend to use.
	APIKeys APIKeys

	// DefaultModel is the provider-qualified model used when a request does
	// not specify one, e.g. "anthropic/claude-sonnet-4-5". Its prefix also
	// resolves unqualified model names passed via WithModel.
	DefaultModel string

	// Retry configures retry behavior for transient errors.
	// If nil, uses the default configuration (10 attempts with exponential backoff).
	Retry *retry.Config

	// Events is an optional channel for receiving client operation events.
	// Events are sent non-blocking; if the channel is full, events are dropped.
	Events chan<- Event
}

// ErrMissingAPIKey is returned when a model is used but no API key
// is configured for that model's provider.
type ErrMissingAPIKey struct {
	Provider string
	Model    string
}

func (e *ErrMissingAPIKey) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("no API key configured for %s (required by model %q)", e.Provider, e.Model)
	}
	return fmt.Sprintf("no API key configured for %s", e.Provider)
}

// ErrNoModel is returned when no model is specified and no default is configured.
type ErrNoModel struct {
	Operation string
}

func (e *ErrNoModel) Error() string {
	return fmt.Sprintf("no model specified for %s: set client.Config.DefaultModel or use conductor.WithModel()", e.Operation)
}

// ErrUnknownProvider is returned when a model identifier cannot be routed
// to a supported provider.
type ErrUnknownProvider struct {
	Model string
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("cannot route model %q: unknown provider prefix (expected %q, %q, or %q)",
		e.Model, ai.ProviderAnthropic, ai.ProviderOpenAI, ai.ProviderGoogle)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDefaultTemperature sets the default temperature for chat requests.
// Per-request options override this default.
func WithDefaultTemperature(t float64) ClientOption {
	return func(c *Client) {
		c.defaultChatOpts = append(c.defaultChatOpts, ai.WithTemperature(t))
	}
}

// WithDefaultMaxTokens sets the default max tokens for chat requests.
// Per-request options override this default.
func WithDefaultMaxTokens(n int) ClientOption {
	return func(c *Client) {
		c.defaultChatOpts = append(c.defaultChatOpts, ai.WithMaxTokens(n))
	}
}

// WithDefaultChatOptions sets default options for all chat requests.
// Per-request options override these defaults.
func WithDefaultChatOptions(opts ...ai.Option) ClientOption {
	return func(c *Client) {
		c.defaultChatOpts = append(c.defaultChatOpts, opts...)
	}
}

// Client is a unified chat client that routes requests to the provider
// named by the model's prefix. Provider clients are lazily initialized
// when first needed.
type Client struct {
	apiKeys         APIKeys
	defaultModel    string
	retryConfig     retry.Config
	events          chan<- Event
	defaultChatOpts []ai.Option

	// Lazy-initialized providers (protected by mutex)
	mu              sync.RWMutex
	anthropicClient *anthropic.Client
	openaiClient    *openai.Client
	googleClient    *google.Client
	googleInitErr   error
}

var _ chat.Client = (*Client)(nil)

// New creates a unified client with the given configuration.
// Provider clients are lazily initialized when first needed based on the model used.
// Optional ClientOption arguments configure default behaviors like temperature.
func New(cfg Config, opts ...ClientOption) *Client {
	retryConfig := retry.DefaultConfig()
	if cfg.Retry != nil {
		retryConfig = *cfg.Retry
	}

	c := &Client{
		apiKeys:      cfg.APIKeys,
		defaultModel: cfg.DefaultModel,
		retryConfig:  retryConfig,
		events:       cfg.Events,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getAnthropicClient returns the Anthropic client, initializing it if needed.
func (c *Client) getAnthropicClient() (*anthropic.Client, error) {
	c.mu.RLock()
	if c.anthropicClient != nil {
		defer c.mu.RUnlock()
		return c.anthropicClient, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.anthropicClient != nil {
		return c.anthropicClient, nil
	}

	if c.apiKeys.Anthropic == "" {
		return nil, &ErrMissingAPIKey{Provider: "anthropic"}
	}

	c.anthropicClient = anthropic.New(c.apiKeys.Anthropic)
	return c.anthropicClient, nil
}

// getOpenAIClient returns the OpenAI client, initializing it if needed.
func (c *Client) getOpenAIClient() (*openai.Client, error) {
	c.mu.RLock()
	if c.openaiClient != nil {
		defer c.mu.RUnlock()
		return c.openaiClient, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.openaiClient != nil {
		return c.openaiClient, nil
	}

	if c.apiKeys.OpenAI == "" {
		return nil, &ErrMissingAPIKey{Provider: "openai"}
	}

	c.openaiClient = openai.New(c.apiKeys.OpenAI)
	return c.openaiClient, nil
}

// getGoogleClient returns the Google client, initializing it if needed.
func (c *Client) getGoogleClient(ctx context.Context) (*google.Client, error) {
	c.mu.RLock()
	if c.googleClient != nil {
		defer c.mu.RUnlock()
		return c.googleClient, nil
	}
	if c.googleInitErr != nil {
		defer c.mu.RUnlock()
		return nil, c.googleInitErr
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.googleClient != nil {
		return c.googleClient, nil
	}
	if c.googleInitErr != nil {
		return nil, c.googleInitErr
	}

	if c.apiKeys.Google == "" {
		return nil, &ErrMissingAPIKey{Provider: "google"}
	}

	client, err := google.New(ctx, c.apiKeys.Google)
	if err != nil {
		c.googleInitErr = fmt.Errorf("failed to initialize Google client: %w", err)
		return nil, c.googleInitErr
	}

	c.googleClient = client
	return c.googleClient, nil
}

// resolveModel picks the model for a request and splits it into provider
// and bare model name. An empty requested model falls back to the
// configured default; an unqualified name borrows the default's provider.
func (c *Client) resolveModel(requested, operation string) (ai.Provider, string, error) {
	model := requested
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return "", "", &ErrNoModel{Operation: operation}
	}

	provider, bare := ai.ParseModel(model)
	if provider == "" {
		if strings.Contains(model, "/") {
			return "", "", &ErrUnknownProvider{Model: model}
		}
		provider, _ = ai.ParseModel(c.defaultModel)
		if provider == "" {
			return "", "", &ErrUnknownProvider{Model: model}
		}
	}
	return provider, bare, nil
}

// getChatProvider returns the chat provider for the given provider key.
// The bare model name is only used to give key errors their full context.
func (c *Client) getChatProvider(ctx context.Context, provider ai.Provider, model string) (ai.ChatProvider, error) {
	qualified := string(provider) + "/" + model

	var (
		p   ai.ChatProvider
		err error
	)
	switch provider {
	case ai.ProviderAnthropic:
		p, err = c.getAnthropicClient()
	case ai.ProviderOpenAI:
		p, err = c.getOpenAIClient()
	case ai.ProviderGoogle:
		p, err = c.getGoogleClient(ctx)
	default:
		err = &ErrUnknownProvider{Model: qualified}
	}
	if err != nil {
		var missing *ErrMissingAPIKey
		if errors.As(err, &missing) {
			missing.Model = qualified
		}
		return nil, err
	}
	return p, nil
}

// Chat sends a conversation and returns a complete response.
// The model can be specified via WithModel option, or the default model is used.
// Automatically retries on transient errors according to the client's retry configuration.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	// Prepend default options so per-request options override them
	opts = append(c.defaultChatOpts, opts...)
	options := ai.ApplyOptions(opts...)

	provider, model, err := c.resolveModel(options.Model, "chat")
	if err != nil {
		return nil, err
	}

	chatProvider, err := c.getChatProvider(ctx, provider, model)
	if err != nil {
		return nil, err
	}

	// The provider receives the bare model name without its routing prefix.
	opts = append(opts, ai.WithModel(model))

	start := time.Now()
	emit(c.events, Event{
		Type:      EventRequestStart,
		Operation: "chat",
		Provider:  provider,
		Model:     model,
	})

	// Create retry events channel if client events are enabled
	var retryEvents chan retry.Event
	if c.events != nil {
		retryEvents = make(chan retry.Event, 10)
		go c.forwardRetryEvents(retryEvents, "chat", provider, model)
	}

	resp, err := retry.DoWithEvents(ctx, c.retryConfig, retryEvents, func() (*ai.Response, error) {
		return chatProvider.Chat(ctx, messages, opts...)
	})

	if retryEvents != nil {
		close(retryEvents)
	}

	if err != nil {
		emit(c.events, Event{
			Type:      EventRequestError,
			Operation: "chat",
			Provider:  provider,
			Model:     model,
			Duration:  time.Since(start),
			Error:     err,
		})
		return nil, err
	}

	var usage *ai.Usage
	if resp != nil {
		usage = &resp.Usage
	}
	emit(c.events, Event{
		Type:      EventRequestComplete,
		Operation: "chat",
		Provider:  provider,
		Model:     model,
		Duration:  time.Since(start),
		Usage:     usage,
	})
	return resp, nil
}

// ChatStream sends a conversation and returns a channel of lifecycle
// events: MessageStart, a MessageDelta per token, and MessageEnd carrying
// the complete response. A failure mid-stream surfaces as RunError and
// closes the channel.
//
// The model can be specified via WithModel option, or the default model is
// used. Establishing the stream is automatically retried on transient
// errors; events already flowing are not.
func (c *Client) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan event.Event, error) {
	// Prepend default options so per-request options override them
	opts = append(c.defaultChatOpts, opts...)
	options := ai.ApplyOptions(opts...)

	provider, model, err := c.resolveModel(options.Model, "chat_stream")
	if err != nil {
		return nil, err
	}

	chatProvider, err := c.getChatProvider(ctx, provider, model)
	if err != nil {
		return nil, err
	}

	// The provider receives the bare model name without its routing prefix.
	opts = append(opts, ai.WithModel(model))

	start := time.Now()
	emit(c.events, Event{
		Type:      EventRequestStart,
		Operation: "chat_stream",
		Provider:  provider,
		Model:     model,
	})

	// Create retry events channel if client events are enabled
	var retryEvents chan retry.Event
	if c.events != nil {
		retryEvents = make(chan retry.Event, 10)
		go c.forwardRetryEvents(retryEvents, "chat_stream", provider, model)
	}

	// Retry covers establishing the stream, not events once it is open.
	raw, err := retry.DoStreamWithEvents(ctx, c.retryConfig, retryEvents, func() (<-chan ai.StreamEvent, error) {
		return chatProvider.ChatStream(ctx, messages, opts...)
	})

	if retryEvents != nil {
		close(retryEvents)
	}

	if err != nil {
		emit(c.events, Event{
			Type:      EventRequestError,
			Operation: "chat_stream",
			Provider:  provider,
			Model:     model,
			Duration:  time.Since(start),
			Error:     err,
		})
		return nil, err
	}

	out := event.NewChannel()
	go c.streamEvents(ctx, raw, out, "chat_stream", provider, model, start)
	return out, nil
}

// streamEvents converts a provider's raw stream into lifecycle events and
// closes out when the stream ends. Request telemetry is emitted once the
// final response or an error is known.
func (c *Client) streamEvents(ctx context.Context, raw <-chan ai.StreamEvent, out chan<- event.Event, operation string, provider ai.Provider, model string, start time.Time) {
	defer close(out)

	send := func(e event.Event) bool {
		e.Timestamp = time.Now()
		select {
		case out <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	messageID := ai.GenerateMessageID()
	if !send(event.Event{Type: event.MessageStart, MessageID: messageID}) {
		return
	}

	var response *ai.Response
	for ev := range raw {
		switch {
		case ev.Err != nil:
			emit(c.events, Event{
				Type:      EventRequestError,
				Operation: operation,
				Provider:  provider,
				Model:     model,
				Duration:  time.Since(start),
				Error:     ev.Err,
			})
			send(event.Event{Type: event.RunError, MessageID: messageID, Error: ev.Err})
			return
		case ev.Done:
			response = ev.Response
		case ev.Delta != "":
			if !send(event.Event{Type: event.MessageDelta, MessageID: messageID, Delta: ev.Delta}) {
				return
			}
		}
	}

	if response == nil {
		err := ai.NewTransientError("client: stream ended without a final response", 0, nil)
		emit(c.events, Event{
			Type:      EventRequestError,
			Operation: operation,
			Provider:  provider,
			Model:     model,
			Duration:  time.Since(start),
			Error:     err,
		})
		send(event.Event{Type: event.RunError, MessageID: messageID, Error: err})
		return
	}

	emit(c.events, Event{
		Type:      EventRequestComplete,
		Operation: operation,
		Provider:  provider,
		Model:     model,
		Duration:  time.Since(start),
		Usage:     &response.Usage,
	})
	send(event.Event{Type: event.MessageEnd, MessageID: messageID, Response: response})
}

// forwardRetryEvents reads from a retry events channel and forwards events
// to the client's event channel as EventRetry events.
func (c *Client) forwardRetryEvents(retryEvents <-chan retry.Event, operation string, provider ai.Provider, model string) {
	for re := range retryEvents {
		reCopy := re // Copy to avoid pointer issues
		emit(c.events, Event{
			Type:       EventRetry,
			Operation:  operation,
			Provider:   provider,
			Model:      model,
			RetryEvent: &reCopy,
		})
	}
}
