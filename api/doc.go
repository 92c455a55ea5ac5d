// Package api provides the HTTP REST surface of the sweeper server.
//
// The api package implements:
//   - Read-only board and cursor inspection
//   - Board configuration listing, retrieval, creation and cache refresh
//   - WebSocket upgrade into a live game session
//
// Endpoints:
//
// Board:
//   - GET /api/board/stats - Section count, extents and demoted mines
//   - GET /api/board/tiles?start_x=&start_y=&end_x=&end_y=[&decode=true] - Tiles of a rectangle
//   - GET /api/board/random-open - A random open tile
//
// Cursors:
//   - GET /api/cursors - All connected cursors
//   - GET /api/cursors/{id} - One cursor by connection id
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - POST /api/configs - Validate and save a configuration
//   - POST /api/configs/refresh - Re-read configurations from disk
//   - GET /api/configs/schema - JSON schema of a configuration
//   - GET /api/configs/{name} - Get specific configuration
//
// WebSocket:
//   - GET /session?view_width=&view_height= - Upgrade to a game connection
//
// Health:
//   - GET /health - Health check endpoint
//
// Saved and refreshed configurations take effect on the next start; the
// running board keeps the one it was created with.
//
// Coordinates follow the board convention: start is the north-west corner
// (smallest x, largest y) and end the south-east one, both inclusive.
//
// Usage:
//
//	srv := api.NewServer(b, registry, configs, hub, api.Options{})
//	srv.Handle("/mcp", mcpHandler)
//	http.ListenAndServe(":8080", srv)
//
// Error Handling:
//
// Errors are returned as JSON {"error": "message"} with the matching HTTP
// status: 400 for bad input (including rectangles over the fetch limit), 404 for unknown resources, 422 for a stored
// configuration that fails validation.
package api
