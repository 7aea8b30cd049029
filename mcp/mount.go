package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	ai "github.com/bigduu/conductor"
	"github.com/bigduu/conductor/tool"
)

// MountConfig describes an MCP server to mount. Exactly one transport
// must be set: Command (stdio subprocess) or URL (SSE).
type MountConfig struct {
	// Name labels the mount in logs.
	Name string

	// Command is the MCP server executable for the stdio transport.
	Command string

	// Args are passed to the stdio server executable.
	Args []string

	// Env is the stdio server's environment, in os.Environ form.
	Env []string

	// URL is the base URL of an SSE MCP server.
	URL string

	// Gated names the remote tools that require approval before every
	// call.
	Gated []string

	// GateAll gates every tool the server exposes.
	GateAll bool

	// Logger receives mount lifecycle logs. The zero value disables them.
	Logger zerolog.Logger
}

// gated reports whether a remote tool must be approval-gated.
func (cfg MountConfig) gated(name string) bool {
	if cfg.GateAll {
		return true
	}
	for _, g := range cfg.Gated {
		if g == name {
			return true
		}
	}
	return false
}

// Mounted is a live connection to a mounted MCP server. Its tools stay
// registered until Close or Refresh removes them.
type Mounted struct {
	name     string
	client   *client.Client
	registry *tool.Registry
	cfg      MountConfig
	logger   zerolog.Logger

	mu    sync.Mutex
	tools []string
}

// Mount connects to an MCP server and registers its tools into the
// registry, each behind a proxy handler that forwards calls over the
// connection. Remote names are registered as-is; a collision with an
// already-registered tool fails the whole mount. Tools named in
// cfg.Gated, or all of them under cfg.GateAll, require approval like
// any gated local tool.
func Mount(ctx context.Context, registry *tool.Registry, cfg MountConfig) (*Mounted, error) {
	var c *client.Client
	var err error

	switch {
	case cfg.Command != "" && cfg.URL != "":
		return nil, errors.New("mcp: config sets both Command and URL")
	case cfg.Command != "":
		c, err = client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	case cfg.URL != "":
		c, err = client.NewSSEMCPClient(cfg.URL)
	default:
		return nil, errors.New("mcp: config needs Command or URL")
	}
	if err != nil {
		return nil, fmt.Errorf("mcp: creating client for %s: %w", cfg.Name, err)
	}

	return MountClient(ctx, registry, c, cfg)
}

// MountClient mounts an existing MCP client, typically an in-process
// one. The client is initialized and its tools registered; the mount
// owns the connection from then on, and closes it if setup fails part
// way.
func MountClient(ctx context.Context, registry *tool.Registry, c *client.Client, cfg MountConfig) (*Mounted, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("mcp: starting client for %s: %w", cfg.Name, err)
	}

	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "conductor-mcp-client",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp: initializing %s: %w", cfg.Name, err)
	}

	m := &Mounted{
		name:     cfg.Name,
		client:   c,
		registry: registry,
		cfg:      cfg,
		logger:   cfg.Logger.With().Str("server", cfg.Name).Logger(),
	}

	if err := m.register(ctx); err != nil {
		c.Close()
		return nil, err
	}

	m.logger.Info().Int("tools", len(m.tools)).Msg("Mounted MCP server")
	return m, nil
}

// register lists the server's tools and registers them all, rolling
// back on the first failure so a mount is all-or-nothing.
func (m *Mounted) register(ctx context.Context) error {
	result, err := m.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("mcp: listing tools for %s: %w", m.name, err)
	}

	registered := make([]string, 0, len(result.Tools))
	for _, remote := range result.Tools {
		t := FromMCPTool(remote)
		t.RequiresApproval = m.cfg.gated(t.Name)

		if err := m.registry.Register(t, m.proxy(t.Name)); err != nil {
			for _, name := range registered {
				m.registry.Unregister(name)
			}
			return fmt.Errorf("mcp: registering %s from %s: %w", t.Name, m.name, err)
		}
		registered = append(registered, t.Name)
		m.logger.Debug().Str("tool", t.Name).Bool("gated", t.RequiresApproval).Msg("Registered remote tool")
	}
	sort.Strings(registered)

	m.mu.Lock()
	m.tools = registered
	m.mu.Unlock()
	return nil
}

// proxy builds the handler that forwards a registered tool's calls to
// the remote server. Remote tool failures come back as handler errors,
// which the registry folds into erroring results the model sees.
func (m *Mounted) proxy(name string) tool.Handler {
	return func(ctx context.Context, call ai.ToolCall) (string, error) {
		result, err := m.client.CallTool(ctx, ToMCPCallToolRequest(call))
		if err != nil {
			return "", fmt.Errorf("mcp: calling %s on %s: %w", name, m.name, err)
		}

		res := FromMCPCallToolResult(call.ID, result)
		if res.IsError {
			return "", errors.New(res.Content)
		}
		return res.Content, nil
	}
}

// Name returns the mount's label.
func (m *Mounted) Name() string {
	return m.name
}

// Tools returns the names this mount currently has registered, sorted.
func (m *Mounted) Tools() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tools...)
}

// Refresh re-synchronizes the registry with the server's current tool
// list. Existing registrations are replaced, so schema changes take
// effect; the agent loop snapshots tools per round and picks the new
// set up on its next iteration.
func (m *Mounted) Refresh(ctx context.Context) error {
	m.unregister()
	return m.register(ctx)
}

// Close unregisters the mount's tools and closes the connection.
func (m *Mounted) Close() error {
	m.unregister()
	err := m.client.Close()
	m.logger.Info().Msg("Unmounted MCP server")
	return err
}

func (m *Mounted) unregister() {
	m.mu.Lock()
	tools := m.tools
	m.tools = nil
	m.mu.Unlock()

	for _, name := range tools {
		m.registry.Unregister(name)
	}
}
