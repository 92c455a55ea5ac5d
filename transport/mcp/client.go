package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/infinite-sweeper/api"
	"github.com/wricardo/infinite-sweeper/game/board"
	"github.com/wricardo/infinite-sweeper/game/config"
	"github.com/wricardo/infinite-sweeper/game/cursor"
)

// maxRenderSide bounds each side of a fetch_tiles render
const maxRenderSide = 80

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Infinite Sweeper",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Infinite Sweeper - MCP Interface

This is a read-only view of a shared, infinite minesweeper board. Every
request is proxied to the REST API server.

COORDINATES:
x grows to the east, y grows to the north. A rectangle is given by its
north-west corner (start_x, start_y) and its south-east corner (end_x, end_y).

AVAILABLE TOOLS:
- board_stats: Generated sections, board extents and demoted mines
- fetch_tiles: Render a rectangle of the board as text
- random_open_position: A random open tile, where new players spawn
- list_cursors: Every connected player
- get_cursor: One player by connection id
- list_configs: Available board configurations

LEGEND (fetch_tiles):
  #  closed tile
  .  open tile with no neighboring mine
  1-8 open tile with that many neighboring mines
  *  exploded mine
  R Y B P  flag of that color`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_stats",
		Description: "Get board statistics: generated sections, extents and demoted mines",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleBoardStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "fetch_tiles",
		Description: fmt.Sprintf("Render the tiles of a rectangle as text, one row per line from north to south (at most %d tiles per side)", maxRenderSide),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"start_x": map[string]interface{}{
					"type":        "integer",
					"description": "West edge (inclusive)",
				},
				"start_y": map[string]interface{}{
					"type":        "integer",
					"description": "North edge (inclusive)",
				},
				"end_x": map[string]interface{}{
					"type":        "integer",
					"description": "East edge (inclusive)",
				},
				"end_y": map[string]interface{}{
					"type":        "integer",
					"description": "South edge (inclusive)",
				},
			},
			Required: []string{"start_x", "start_y", "end_x", "end_y"},
		},
	}, c.handleFetchTiles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "random_open_position",
		Description: "Get a random open tile of the board",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleRandomOpen)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_cursors",
		Description: "List every connected cursor",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListCursors)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_cursor",
		Description: "Get details of a specific cursor",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"conn_id": map[string]interface{}{
					"type":        "string",
					"description": "Connection id of the cursor",
				},
			},
			Required: []string{"conn_id"},
		},
	}, c.handleGetCursor)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available board configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Handler serves single JSON-RPC messages over HTTP POST
func (c *Client) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
}

// apiCall makes an HTTP call to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) handleBoardStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats board.Stats
	if err := c.apiCall(ctx, http.MethodGet, "/api/board/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e := stats.Extents
	result := fmt.Sprintf("Board Statistics:\n\n"+
		"Sections generated: %d (%dx%d tiles each)\n"+
		"Mine ratio: %.2f\n"+
		"Section extents: x %d..%d, y %d..%d\n"+
		"Mines demoted while linking: %d\n",
		stats.Sections, stats.SectionLength, stats.SectionLength,
		stats.MineRatio,
		e.MinX, e.MaxX, e.MinY, e.MaxY,
		stats.Demoted)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleFetchTiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	var coords [4]int
	for i, name := range []string{"start_x", "start_y", "end_x", "end_y"} {
		v, ok := intArg(args, name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("%s is required and must be an integer", name)), nil
		}
		coords[i] = v
	}

	rect := board.Rect{
		Start: board.Point{X: coords[0], Y: coords[1]},
		End:   board.Point{X: coords[2], Y: coords[3]},
	}
	if !rect.Valid() {
		return mcp.NewToolResultError("start must be the north-west corner and end the south-east corner"), nil
	}
	if rect.Width() > maxRenderSide || rect.Height() > maxRenderSide {
		return mcp.NewToolResultError(fmt.Sprintf("rectangle is %dx%d, at most %d tiles per side can be rendered",
			rect.Width(), rect.Height(), maxRenderSide)), nil
	}

	query := url.Values{}
	query.Set("start_x", strconv.Itoa(rect.Start.X))
	query.Set("start_y", strconv.Itoa(rect.Start.Y))
	query.Set("end_x", strconv.Itoa(rect.End.X))
	query.Set("end_y", strconv.Itoa(rect.End.Y))

	var resp api.TilesResponse
	if err := c.apiCall(ctx, http.MethodGet, "/api/board/tiles?"+query.Encode(), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rendered, err := renderTiles(resp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(rendered), nil
}

func (c *Client) handleRandomOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p board.Point
	if err := c.apiCall(ctx, http.MethodGet, "/api/board/random-open", nil, &p); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Open tile at %s", p)), nil
}

func (c *Client) handleListCursors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count   int             `json:"count"`
		Cursors []cursor.Cursor `json:"cursors"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/cursors", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText("No cursors connected"), nil
	}

	result := fmt.Sprintf("Connected Cursors (%d):\n\n", resp.Count)
	for _, cur := range resp.Cursors {
		result += "• " + formatCursor(cur) + "\n"
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetCursor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	connID, _ := args["conn_id"].(string)
	if connID == "" {
		return mcp.NewToolResultError("conn_id is required"), nil
	}

	var cur cursor.Cursor
	if err := c.apiCall(ctx, http.MethodGet, "/api/cursors/"+url.PathEscape(connID), nil, &cur); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCursor(cur)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []config.ConfigInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(configs) == 0 {
		return mcp.NewToolResultText("No configurations available"), nil
	}

	result := "Available Configurations:\n\n"
	for _, cfg := range configs {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Sections: %dx%d, Mine ratio: %.2f\n\n",
			cfg.Name, cfg.ConfigID, cfg.Description, cfg.SectionLength, cfg.SectionLength, cfg.MineRatio)
	}
	return mcp.NewToolResultText(result), nil
}

// intArg reads an integral JSON number argument
func intArg(args map[string]interface{}, name string) (int, bool) {
	f, ok := args[name].(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func formatCursor(c cursor.Cursor) string {
	s := fmt.Sprintf("%s %s at %s, view ±%dx±%d", c.ConnID, c.Color, c.Position, c.Width, c.Height)
	if c.Pointer != nil {
		s += fmt.Sprintf(", pointing at %s", *c.Pointer)
	}
	if c.ReviveAt != nil {
		s += fmt.Sprintf(", dead until %s", c.ReviveAt.Format(time.RFC3339))
	}
	return s
}

// renderTiles draws a fetched rectangle using the legend in the server
// instructions. Closed tiles never reveal what they hold.
func renderTiles(resp api.TilesResponse) (string, error) {
	data, err := board.TilesFromString(resp.Tiles)
	if err != nil {
		return "", err
	}
	if len(data) != resp.Width*resp.Height {
		return "", fmt.Errorf("%w: expected %d tiles, got %d", board.ErrInvalidDataLength, resp.Width*resp.Height, len(data))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Tiles %s to %s (%dx%d):\n\n", resp.StartP, resp.EndP, resp.Width, resp.Height)
	for row := range resp.Height {
		for col := range resp.Width {
			t, err := board.DecodeTile(data[row*resp.Width+col])
			if err != nil {
				return "", err
			}
			sb.WriteByte(tileChar(t))
		}
		fmt.Fprintf(&sb, "  y=%d\n", resp.StartP.Y-row)
	}
	return sb.String(), nil
}

func tileChar(t board.Tile) byte {
	switch {
	case t.IsFlag:
		return t.Color[0]
	case !t.IsOpen:
		return '#'
	case t.IsMine:
		return '*'
	case t.Number > 0:
		return byte('0' + t.Number)
	default:
		return '.'
	}
}
