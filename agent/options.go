package agent

import (
	"time"

	ai "github.com/bigduu/conductor"
)

// StopPredicate decides whether the loop should stop after a response.
// Return true to terminate with TerminationCustom.
type StopPredicate func(step int, response *ai.Response) bool

// Options configures a single run.
type Options struct {
	// MaxSteps bounds the number of LLM rounds in one turn. Exceeding it
	// fails the turn with ErrMaxStepsReached. Zero means no limit.
	MaxSteps int

	// MaxAutoDepth bounds how deeply need_more_actions results may nest
	// within one turn.
	MaxAutoDepth int

	// Timeout bounds the whole run. Zero means no timeout.
	Timeout time.Duration

	// HandlerTimeout bounds each tool dispatch.
	HandlerTimeout time.Duration

	// ParallelToolCalls executes fully ungated batches concurrently.
	// Batches with gated calls or a compose dispatch always run
	// sequentially.
	ParallelToolCalls bool

	// StopPredicate, when set, is checked after every response.
	StopPredicate StopPredicate

	// ChatOptions are passed through to every chat request.
	ChatOptions []ai.Option

	// MessageSink, when set, receives a snapshot of the conversation
	// history after every change. Engines use it to persist at phase
	// boundaries.
	MessageSink func(messages []ai.Message)
}

// Option configures a run.
type Option func(*Options)

// WithMaxSteps bounds the number of LLM rounds in one turn.
func WithMaxSteps(n int) Option {
	return func(o *Options) {
		o.MaxSteps = n
	}
}

// WithMaxAutoDepth bounds need_more_actions nesting within one turn.
func WithMaxAutoDepth(n int) Option {
	return func(o *Options) {
		o.MaxAutoDepth = n
	}
}

// WithTimeout bounds the whole run.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithHandlerTimeout bounds each tool dispatch.
func WithHandlerTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.HandlerTimeout = d
	}
}

// WithParallelToolCalls toggles concurrent execution of fully ungated
// batches.
func WithParallelToolCalls(enabled bool) Option {
	return func(o *Options) {
		o.ParallelToolCalls = enabled
	}
}

// WithStopPredicate installs a custom termination check.
func WithStopPredicate(p StopPredicate) Option {
	return func(o *Options) {
		o.StopPredicate = p
	}
}

// WithChatOptions passes chat options through to every request.
func WithChatOptions(opts ...ai.Option) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, opts...)
	}
}

// WithModel sets the model for every request.
func WithModel(model string) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, ai.WithModel(model))
	}
}

// WithMaxTokens sets the token limit for every request.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, ai.WithMaxTokens(n))
	}
}

// WithTemperature sets the sampling temperature for every request.
func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, ai.WithTemperature(t))
	}
}

// WithMessageSink installs a history observer called after every
// change to the conversation.
func WithMessageSink(fn func(messages []ai.Message)) Option {
	return func(o *Options) {
		o.MessageSink = fn
	}
}

// ApplyOptions builds an Options with defaults, then applies opts.
//
// Defaults: MaxSteps 10, MaxAutoDepth 8, HandlerTimeout 30s, parallel
// tool calls enabled.
func ApplyOptions(opts ...Option) *Options {
	options := &Options{
		MaxSteps:          10,
		MaxAutoDepth:      8,
		HandlerTimeout:    30 * time.Second,
		ParallelToolCalls: true,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
