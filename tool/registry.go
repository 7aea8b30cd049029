package tool

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	ai "github.com/bigduu/conductor"
)

// registeredTool combines a tool definition with its handler and,
// when validation is enabled, the compiled parameter schema.
type registeredTool struct {
	tool    ai.Tool
	handler Handler
	schema  *gojsonschema.Schema
}

// Registry manages registered tools and their handlers.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]registeredTool
	validate bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithValidation enables JSON Schema validation of tool call arguments.
// Registered parameter schemas are compiled once at registration time;
// Execute then checks every call's arguments before invoking the handler.
func WithValidation() RegistryOption {
	return func(r *Registry) {
		r.validate = true
	}
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools: make(map[string]registeredTool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool with its handler to the registry.
// The first registration of a name wins: a duplicate name returns
// ErrToolAlreadyRegistered and leaves the existing tool untouched.
// Registrations with an empty name or nil handler are rejected.
func (r *Registry) Register(tool ai.Tool, handler Handler) error {
	if tool.Name == "" {
		return &ErrInvalidRegistration{Reason: "empty tool name"}
	}
	if handler == nil {
		return &ErrInvalidRegistration{Name: tool.Name, Reason: "nil handler"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return &ErrToolAlreadyRegistered{Name: tool.Name}
	}

	rt := registeredTool{
		tool:    tool,
		handler: handler,
	}

	if r.validate && len(tool.Parameters) > 0 {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(tool.Parameters))
		if err != nil {
			return &ErrInvalidRegistration{Name: tool.Name, Reason: "invalid parameter schema: " + err.Error()}
		}
		rt.schema = schema
	}

	r.tools[tool.Name] = rt
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(tool ai.Tool, handler Handler) {
	if err := r.Register(tool, handler); err != nil {
		panic(err)
	}
}

// Unregister removes a tool from the registry.
// It is a no-op if the tool is not registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get retrieves a handler by tool name.
// Returns the handler and true if found, or nil and false if not found.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return rt.handler, true
}

// GetTool retrieves a tool definition by name.
// Returns the tool and true if found, or empty tool and false if not found.
func (r *Registry) GetTool(name string) (ai.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tools[name]
	if !ok {
		return ai.Tool{}, false
	}
	return rt.tool, true
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// RequiresApproval reports whether the named tool is approval-gated.
// Unknown tools report false.
func (r *Registry) RequiresApproval(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tools[name]
	return ok && rt.tool.RequiresApproval
}

// Tools returns all registered tool definitions sorted by name.
// The deterministic order keeps provider prompts stable across runs.
func (r *Registry) Tools() []ai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]ai.Tool, 0, len(r.tools))
	for _, rt := range r.tools {
		tools = append(tools, rt.tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Names returns the names of all registered tools sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs the handler for a tool call and returns a ToolResult.
// If the tool is not found, returns ErrToolNotFound.
// Argument validation failures and handler errors are captured in
// ToolResult.IsError with the message as content, allowing the model
// to recover; they are not returned as Go errors.
func (r *Registry) Execute(ctx context.Context, call ai.ToolCall) (ai.ToolResult, error) {
	r.mu.RLock()
	rt, ok := r.tools[call.Name]
	r.mu.RUnlock()

	if !ok {
		return ai.ToolResult{}, &ErrToolNotFound{Name: call.Name}
	}

	// Models sometimes omit arguments for zero-parameter tools; handlers
	// and the validator both see an empty object.
	if call.Arguments == "" {
		call.Arguments = "{}"
	}

	if rt.schema != nil {
		if err := validateArguments(rt.schema, call); err != nil {
			return ai.ToolResult{
				ToolCallID: call.ID,
				Content:    err.Error(),
				IsError:    true,
			}, nil
		}
	}

	content, err := rt.handler(ctx, call)
	if err != nil {
		// Return error as tool result so model can potentially recover
		return ai.ToolResult{
			ToolCallID: call.ID,
			Content:    err.Error(),
			IsError:    true,
		}, nil
	}

	return ai.ToolResult{
		ToolCallID: call.ID,
		Content:    content,
		IsError:    false,
	}, nil
}

// validateArguments checks the call's JSON arguments against the compiled schema.
func validateArguments(schema *gojsonschema.Schema, call ai.ToolCall) error {
	result, err := schema.Validate(gojsonschema.NewStringLoader(call.Arguments))
	if err != nil {
		return &ErrInvalidArguments{Name: call.Name, Violations: []string{err.Error()}}
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}
		return &ErrInvalidArguments{Name: call.Name, Violations: violations}
	}
	return nil
}

// Registration holds a tool and its handler for fluent registration.
type Registration struct {
	Tool    ai.Tool
	Handler Handler
}

// Func creates a Registration with automatic schema generation from the typed handler.
// Panics if schema generation fails.
//
// Example:
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("weather", "Get weather", func(ctx context.Context, args WeatherArgs) (string, error) {
//	        return getWeather(args.Location), nil
//	    }),
//	)
func Func[T any](name, description string, fn TypedHandler[T]) Registration {
	schema := MustSchemaFor[T]()
	return Registration{
		Tool: ai.Tool{
			Name:        name,
			Description: description,
			Parameters:  schema,
		},
		Handler: typedToHandler(fn),
	}
}

// GatedFunc is like Func but marks the tool as requiring approval.
// Every call to a gated tool is routed through the approval broker
// before the handler runs.
func GatedFunc[T any](name, description string, fn TypedHandler[T]) Registration {
	reg := Func(name, description, fn)
	reg.Tool.RequiresApproval = true
	return reg
}

// WithHandler creates a Registration from a Handler and schema.
// Use this when you have a pre-built Handler implementation.
func WithHandler(name, description string, schema json.RawMessage, h Handler) Registration {
	return Registration{
		Tool: ai.Tool{
			Name:        name,
			Description: description,
			Parameters:  schema,
		},
		Handler: h,
	}
}

// WithTool creates a Registration from an existing Tool and Handler.
// Use this when you have pre-built tool definitions.
func WithTool(t ai.Tool, h Handler) Registration {
	return Registration{
		Tool:    t,
		Handler: h,
	}
}

// Add registers one or more tools to the registry.
// Panics if any tool is already registered.
// Returns the registry for fluent chaining.
func (r *Registry) Add(regs ...Registration) *Registry {
	for _, reg := range regs {
		r.MustRegister(reg.Tool, reg.Handler)
	}
	return r
}

// typedToHandler wraps a TypedHandler in an argument-unmarshaling Handler.
func typedToHandler[T any](fn TypedHandler[T]) Handler {
	return func(ctx context.Context, call ai.ToolCall) (string, error) {
		var args T
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", err
		}
		return fn(ctx, args)
	}
}
