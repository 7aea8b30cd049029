package composition

import (
	"sync"
	"time"
)

// Context carries variable bindings and the accumulated execution trace
// through one composition evaluation. Bindings resolve through parent
// scopes: a Let body runs in a Child context whose bindings shadow, but
// never mutate, the enclosing scope.
//
// A Context is owned by a single evaluation. Parallel branches each
// receive a Fork, a flattened snapshot whose writes do not propagate
// back; only the shared execution trace is visible across forks.
type Context struct {
	mu       sync.RWMutex
	parent   *Context
	bindings map[string]Result
	trace    *executionTrace
}

// NewContext creates an empty root context.
func NewContext() *Context {
	return &Context{
		bindings: make(map[string]Result),
		trace:    &executionTrace{},
	}
}

// Bind sets a variable in this scope, shadowing any parent binding of
// the same name.
func (c *Context) Bind(name string, value Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[name] = value
}

// Lookup resolves a variable, checking enclosing scopes when the name is
// not bound locally.
func (c *Context) Lookup(name string) (Result, bool) {
	c.mu.RLock()
	value, ok := c.bindings[name]
	c.mu.RUnlock()
	if ok {
		return value, true
	}
	if c.parent != nil {
		return c.parent.Lookup(name)
	}
	return Result{}, false
}

// BindLast rebinds the reserved _last variable in this scope.
func (c *Context) BindLast(value Result) {
	c.Bind(LastBinding, value)
}

// Last returns the current _last binding.
func (c *Context) Last() (Result, bool) {
	return c.Lookup(LastBinding)
}

// Child creates a nested scope. Bindings made in the child shadow the
// parent but are discarded when the child goes out of scope; the
// execution trace is shared.
func (c *Context) Child() *Context {
	return &Context{
		parent:   c,
		bindings: make(map[string]Result),
		trace:    c.trace,
	}
}

// Fork creates an independent copy for a parallel branch. The fork sees
// a flattened snapshot of all bindings visible here, but writes to the
// fork never reach the original. The execution trace is shared so branch
// steps still appear in the overall trace.
func (c *Context) Fork() *Context {
	return &Context{
		bindings: c.Bindings(),
		trace:    c.trace,
	}
}

// Bindings returns a flattened copy of every visible binding, with inner
// scopes taking precedence over outer ones.
func (c *Context) Bindings() map[string]Result {
	var flat map[string]Result
	if c.parent != nil {
		flat = c.parent.Bindings()
	} else {
		flat = make(map[string]Result)
	}
	c.mu.RLock()
	for name, value := range c.bindings {
		flat[name] = value
	}
	c.mu.RUnlock()
	return flat
}

// TraceEntry records one evaluated expression in the execution trace.
type TraceEntry struct {
	// Node is the expression kind ("call", "sequence", ...).
	Node string
	// Output is the result payload, empty when Err is set.
	Output string
	// Success mirrors the result's Success flag.
	Success bool
	// Err holds the hard error that aborted the node, if any.
	Err error
	// Timestamp is when the node finished.
	Timestamp time.Time
}

// Trace returns a copy of the execution trace accumulated so far,
// including entries contributed by parallel branches.
func (c *Context) Trace() []TraceEntry {
	return c.trace.snapshot()
}

func (c *Context) logStep(node string, res Result, err error) {
	c.trace.append(TraceEntry{
		Node:      node,
		Output:    res.Output,
		Success:   res.Success,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// executionTrace is shared by all scopes and forks of one evaluation.
// Parallel branches append concurrently.
type executionTrace struct {
	mu      sync.Mutex
	entries []TraceEntry
}

func (t *executionTrace) append(e TraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

func (t *executionTrace) snapshot() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
