// Package mcp integrates Model Context Protocol servers with the tool
// registry, in both directions.
//
// # Mounting MCP servers
//
// Mount connects to an MCP server and registers its tools into a
// registry, so the agent loop can call them like any local tool:
//
//	mounted, err := mcp.Mount(ctx, engine.Registry(), mcp.MountConfig{
//	    Name:    "filesystem",
//	    Command: "./mcp-fs-server",
//	    Args:    []string{"--root", "/data"},
//	    Gated:   []string{"write_file", "delete_file"},
//	})
//	if err != nil {
//	    log.Fatal().Err(err).Msg("mount failed")
//	}
//	defer mounted.Close()
//
// Gated tools go through the approval flow before every call, exactly
// like local tools registered with tool.GatedFunc. Close unregisters
// the mount's tools and disconnects.
//
// # Serving tools over MCP
//
// The reverse direction exposes a registry as an MCP server, so other
// MCP clients can use tools defined here:
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("weather", "Get weather", weatherHandler),
//	)
//	if err := mcp.ServeStdio(registry); err != nil {
//	    log.Fatal().Err(err).Msg("serve failed")
//	}
package mcp
