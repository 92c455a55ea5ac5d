// Package mcp provides a Model Context Protocol surface for the sweeper server.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions proxying the REST API
//   - A text rendering of board rectangles
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - board_stats: Sections generated, extents and demoted mines
//   - fetch_tiles: Render a rectangle of the board, one row per line
//   - random_open_position: A random open tile
//   - list_cursors: Every connected cursor
//   - get_cursor: One cursor by connection id
//   - list_configs: Available board configurations
//
// The tools are read-only. Playing happens over the websocket session.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	apiServer.Handle("/mcp", client.Handler())
package mcp
