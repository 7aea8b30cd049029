package event

import "context"

// forwardChannelKey is the context key for the forward channel.
type forwardChannelKey struct{}

// WithForwardChannel returns a new context carrying an event channel.
// Nested executions (composition steps, sub-agents, tool handlers) emit
// progress events to this channel so they surface on the outer stream.
func WithForwardChannel(ctx context.Context, ch chan<- Event) context.Context {
	return context.WithValue(ctx, forwardChannelKey{}, ch)
}

// ForwardChannelFromContext retrieves the forward channel from the context.
// Returns nil if no channel is attached.
func ForwardChannelFromContext(ctx context.Context) chan<- Event {
	if v := ctx.Value(forwardChannelKey{}); v != nil {
		return v.(chan<- Event)
	}
	return nil
}

// Forward emits the event to the context's forward channel, if any.
// It is safe to call with a context that carries no channel.
func Forward(ctx context.Context, e Event) {
	if ch := ForwardChannelFromContext(ctx); ch != nil {
		Emit(ch, e)
	}
}
