// Package composition provides a declarative expression language for
// composing tool calls into sequential, parallel, conditional, and
// retried workflows.
//
// An expression tree is built from seven node kinds: Call invokes a
// registered tool, Sequence runs steps in order, Parallel fans out
// branches, Choice picks a branch from a condition, Retry re-executes a
// failing subtree, Let binds a result to a named variable, and Var reads
// a bound variable back out.
//
// Expressions are plain data. They can be constructed in code:
//
//	expr := composition.NewSequence(
//		composition.NewLet("page",
//			composition.NewCall("http_fetch", map[string]any{"url": "https://example.com"}),
//			composition.NewCall("write_file", map[string]any{
//				"path":    "page.html",
//				"content": "${page}",
//			}),
//		),
//	)
//
// or decoded from JSON via UnmarshalExpr:
//
//	{
//	  "type": "sequence",
//	  "steps": [
//	    {"type": "call", "tool": "read_file", "args": {"path": "notes.txt"}},
//	    {
//	      "type": "retry",
//	      "expr": {"type": "call", "tool": "summarize", "args": {"text": "${_last}"}},
//	      "max_attempts": 3
//	    }
//	  ]
//	}
//
// Evaluation is handled by an Executor bound to a tool.Registry. Results
// flow through a Context: every completed top-level expression and every
// sequence step rebinds the _last variable, Let introduces a child scope
// that shadows without mutating its parent, and ${name} placeholders in
// Call arguments are substituted from the context before the tool runs.
//
// Tools registered with RequiresApproval are held at an approval gate.
// The Executor's ApproverFunc decides each gated call individually; a
// denial fails the call without running the tool.
package composition
