// Package tool provides the tool registry and handler infrastructure for
// the conductor engine.
//
// This package includes:
//   - Registry and Handler types for tool management
//   - Function binding with automatic schema generation from struct tags
//   - Optional JSON Schema validation of tool call arguments
//   - Approval gating for tools that must not run unattended
//   - Built-in tools for common operations (file, HTTP)
//
// # Basic Usage
//
// Define tool arguments as a struct with tags, then use Bind or BindTo:
//
//	type WeatherArgs struct {
//	    Location string `json:"location" desc:"City name" required:"true"`
//	    Unit     string `json:"unit" desc:"Temperature unit" enum:"celsius,fahrenheit"`
//	}
//
//	// Create tool and handler
//	t, h := tool.MustBind("get_weather", "Get current weather",
//	    func(ctx context.Context, args WeatherArgs) (string, error) {
//	        return fmt.Sprintf(`{"temp": 72, "location": %q}`, args.Location), nil
//	    })
//
//	// Register to a registry
//	registry := tool.NewRegistry()
//	registry.MustRegister(t, h)
//
// # Supported Struct Tags
//
// The following tags are supported for schema generation:
//
//	json:"name"      - Property name (required for inclusion)
//	desc:"text"      - Description for the model
//	required:"true"  - Mark field as required
//	enum:"a,b,c"     - Allowed values (comma-separated)
//
// # Argument Validation
//
// With NewRegistry(tool.WithValidation()) every Execute call checks the
// call arguments against the registered parameter schema before the
// handler runs. Violations come back as an IsError ToolResult so the
// model can correct itself and retry.
//
// # Approval Gating
//
// Tools registered with RequiresApproval set (via BindGated, GatedFunc,
// or a Tool literal) are never executed directly by the agent loop;
// each invocation first goes through the approval broker.
//
// # Built-in Tools
//
// File tools (rooted at a workspace directory):
//   - read_file: Read file contents
//   - write_file: Write content to a file (gated)
//   - list_dir: List directory contents
//
// HTTP tool:
//   - http_fetch: Fetch a URL over GET
//
// # Using Built-in Tools
//
//	registry := tool.NewRegistry()
//
//	// Register file tools rooted at a workspace
//	registry.Add(tool.FileTools("/workspace")...)
//
//	// Register the HTTP fetch tool
//	registry.Add(tool.HTTPFetch())
package tool
