package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rahulYUV/metromap.io/game/engine"
	"github.com/rahulYUV/metromap.io/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
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
		"MetroMap",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`MetroMap - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Build a metro network on a procedurally generated grid city. Place stations
near demand, connect them with colored lines, run trains and carry the
passengers that spawn around your stations. Fares earn money; construction
and running trains cost money.

AVAILABLE TOOLS:
- create_session: Start a new city (optional seed, terrain, tuning)
- list_sessions / get_session: Session management
- game_state: Full snapshot (stations, lines, trains, passengers)
- map_view: ASCII rendering of the city and network
- place_station / remove_station: Station management
- start_line, add_station_to_line, complete_line, cancel_line: Line drawing
- add_train / remove_train: Fleet management
- pause / resume / set_speed: Clock control (speed 1, 2 or 4)
- advance: Step the simulation forward
- game_instructions: Full rules reference

NOTE: Rejected actions are normal gameplay (not enough money, invalid
placement). The tool output explains why, so read it before retrying.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with an optional seed, terrain and tuning",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Map seed; identical seeds produce identical cities (optional, random when omitted)",
				},
				"terrain": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"river", "archipelago"},
					"description": "Terrain style (optional, the seed decides when omitted)",
				},
				"tuning": map[string]interface{}{
					"type":        "string",
					"description": "Name of the tuning to use (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to retrieve",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Views
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state: clock, money, stations, lines, trains and passengers",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "map_view",
		Description: "ASCII rendering of the map: water, demand density and station labels",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMapView)

	// Station management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_station",
		Description: "Place a station at a grid vertex. Costs money; rejected on water, off-grid, too close to another station or when funds are short.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Vertex X coordinate (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Vertex Y coordinate (0-based)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handlePlaceStation)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_station",
		Description: "Remove a station. Rejected while any line serves it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"station_id": map[string]interface{}{
					"type":        "string",
					"description": "Station ID (its vertex key, e.g. \"5,7\")",
				},
			},
			Required: []string{"session_id", "station_id"},
		},
	}, c.handleRemoveStation)

	// Line drawing
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_line",
		Description: "Begin drawing a new line of the given color from a station",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"color": map[string]interface{}{
					"type":        "string",
					"description": "Line color (each color may be used once; see tuning for the palette)",
				},
				"station_id": map[string]interface{}{
					"type":        "string",
					"description": "Station the line starts from",
				},
			},
			Required: []string{"session_id", "color", "station_id"},
		},
	}, c.handleStartLine)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_station_to_line",
		Description: "Extend the line being drawn to another station. Adding the first station again closes the line into a loop.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"station_id": map[string]interface{}{
					"type":        "string",
					"description": "Station to append to the draft line",
				},
			},
			Required: []string{"session_id", "station_id"},
		},
	}, c.handleAddStationToLine)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "complete_line",
		Description: "Finalize the line being drawn. Pays construction cost and puts the first train on it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleCompleteLine)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cancel_line",
		Description: "Discard the line being drawn without paying anything",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleCancelLine)

	// Fleet management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_train",
		Description: "Add a train to a completed line (up to the per-line maximum)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"line_id": map[string]interface{}{
					"type":        "string",
					"description": "Line to add the train to",
				},
			},
			Required: []string{"session_id", "line_id"},
		},
	}, c.handleAddTrain)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_train",
		Description: "Remove a train from its line. Every line keeps at least one train.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"train_id": map[string]interface{}{
					"type":        "string",
					"description": "Train to remove",
				},
			},
			Required: []string{"session_id", "train_id"},
		},
	}, c.handleRemoveTrain)

	// Clock control
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "pause",
		Description: "Pause the simulation clock",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handlePause)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "resume",
		Description: "Resume the simulation clock",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleResume)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_speed",
		Description: "Set the simulation speed multiplier. Only 1, 2 and 4 are accepted; anything else is rejected, not clamped.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"speed": map[string]interface{}{
					"type":        "integer",
					"enum":        []int{1, 2, 4},
					"description": "Speed multiplier",
				},
			},
			Required: []string{"session_id", "speed"},
		},
	}, c.handleSetSpeed)

	// Simulation
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "advance",
		Description: "Advance the simulation by a wall-clock slice and report what happened",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"dt_ms": map[string]interface{}{
					"type":        "number",
					"description": "Wall-clock milliseconds to simulate (default 250)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleAdvance)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
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

// apiText fetches a plain-text endpoint (the map view). Error responses are
// still JSON and are surfaced the same way as apiCall.
func (c *Client) apiText(path string) (string, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		if json.Unmarshal(data, &errResp) == nil {
			if msg, ok := errResp["error"]; ok {
				return "", fmt.Errorf("%s", msg)
			}
		}
		return "", fmt.Errorf("API error: %d", resp.StatusCode)
	}

	return string(data), nil
}

// dispatchAction posts one wire-form action and returns the outcome.
func (c *Client) dispatchAction(sessionID, actionType string, payload map[string]interface{}) (*service.ActionOutcome, error) {
	body := map[string]interface{}{"type": actionType}
	if payload != nil {
		body["payload"] = payload
	}

	var outcome service.ActionOutcome
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/actions", sessionID), body, &outcome)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})

	body := map[string]interface{}{}
	if seed, ok := args["seed"].(float64); ok && seed != 0 {
		body["seed"] = int64(seed)
	}
	if terrain, _ := args["terrain"].(string); terrain != "" {
		body["terrain"] = terrain
	}
	if tuning, _ := args["tuning"].(string); tuning != "" {
		body["tuning"] = tuning
	}

	var session service.SessionInfo
	err := c.apiCall("POST", "/api/sessions", body, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nTuning: %s\n\n%s",
		session.ID, session.TuningName, formatStateSummary(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Tuning: %s, Created: %s)\n",
			s.ID, s.TuningName, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var session service.SessionInfo
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s", sessionID), nil, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Session: %s\nTuning: %s\nCreated: %s\n\n%s",
		session.ID, session.TuningName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatStateSummary(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var snapshot service.Snapshot
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &snapshot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snapshot)), nil
}

func (c *Client) handleMapView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	view, err := c.apiText(fmt.Sprintf("/api/sessions/%s/map", sessionID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(view), nil
}

func (c *Client) handlePlaceStation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)

	outcome, err := c.dispatchAction(sessionID, engine.ActionPlaceStation, map[string]interface{}{
		"x": int(x),
		"y": int(y),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("place_station", outcome)), nil
}

func (c *Client) handleRemoveStation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	stationID, _ := args["station_id"].(string)

	outcome, err := c.dispatchAction(sessionID, engine.ActionRemoveStation, map[string]interface{}{
		"station_id": stationID,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("remove_station", outcome)), nil
}

func (c *Client) handleStartLine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	color, _ := args["color"].(string)
	stationID, _ := args["station_id"].(string)

	outcome, err := c.dispatchAction(sessionID, engine.ActionStartLine, map[string]interface{}{
		"color":      color,
		"station_id": stationID,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("start_line", outcome)), nil
}

func (c *Client) handleAddStationToLine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	stationID, _ := args["station_id"].(string)

	outcome, err := c.dispatchAction(sessionID, engine.ActionAddStationToLine, map[string]interface{}{
		"station_id": stationID,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("add_station_to_line", outcome)), nil
}

func (c *Client) handleCompleteLine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	outcome, err := c.dispatchAction(sessionID, engine.ActionCompleteLine, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("complete_line", outcome)), nil
}

func (c *Client) handleCancelLine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	outcome, err := c.dispatchAction(sessionID, engine.ActionCancelLine, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("cancel_line", outcome)), nil
}

func (c *Client) handleAddTrain(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	lineID, _ := args["line_id"].(string)

	outcome, err := c.dispatchAction(sessionID, engine.ActionAddTrain, map[string]interface{}{
		"line_id": lineID,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("add_train", outcome)), nil
}

func (c *Client) handleRemoveTrain(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	trainID, _ := args["train_id"].(string)

	outcome, err := c.dispatchAction(sessionID, engine.ActionRemoveTrain, map[string]interface{}{
		"train_id": trainID,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("remove_train", outcome)), nil
}

func (c *Client) handlePause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	outcome, err := c.dispatchAction(sessionID, engine.ActionPause, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("pause", outcome)), nil
}

func (c *Client) handleResume(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	outcome, err := c.dispatchAction(sessionID, engine.ActionResume, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("resume", outcome)), nil
}

func (c *Client) handleSetSpeed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	speed, _ := args["speed"].(float64)

	outcome, err := c.dispatchAction(sessionID, engine.ActionSetSpeed, map[string]interface{}{
		"speed": int(speed),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutcome("set_speed", outcome)), nil
}

func (c *Client) handleAdvance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	body := map[string]interface{}{}
	if dtMs, ok := args["dt_ms"].(float64); ok && dtMs > 0 {
		body["dt_ms"] = dtMs
	}

	var outcome service.TickOutcome
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/advance", sessionID), body, &outcome)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if len(outcome.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range outcome.Events {
			b.WriteString(fmt.Sprintf("- %s: %s\n", event.Type, event.Message))
		}
		b.WriteString("\n")
	}
	b.WriteString(formatSnapshot(outcome.Snapshot))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🚇 MetroMap - Complete Instructions

GAME OBJECTIVE:
Grow a profitable metro network. Passengers spawn around stations and want
to reach other stations; carry them and collect fares before running costs
eat your budget.

THE MAP:
The city is a grid of land and water tiles generated from a seed. Every
tile carries residential and office demand densities. Stations sit on grid
vertices (tile corners); a vertex is buildable when at least one touching
tile is land. In the ASCII map view:
- '~' water
- ' ' '.' '+' '#' land, from empty to dense
- 'A'..'Z' station labels

STATIONS:
- place_station costs money and must respect spacing: no two stations on
  the same or orthogonally adjacent vertices.
- Stations near demand attract passengers. The catchment radius and spawn
  rates come from the tuning.
- remove_station refunds nothing and is rejected while a line serves it.

LINES:
- start_line with an unused color from any station, then
  add_station_to_line repeatedly; routes bend at most once per segment
  (horizontal, vertical or 45-degree diagonals). Water is fine: trains
  cross it on bridges.
- Re-adding the first station closes a loop. complete_line pays the
  construction cost (per track unit) and starts the first train free.
- Lines are immutable once completed. cancel_line abandons a draft.

TRAINS:
- add_train puts another train on a line up to the per-line maximum;
  remove_train takes one off but every line keeps at least one.
- Trains stop at every station, drop riders whose next waypoint is there
  and board waiting riders up to capacity, first queued first served.

PASSENGERS AND MONEY:
- Passengers pick reachable destinations and route by fewest hops,
  transfers allowed where lines share stations.
- Each delivered passenger pays a flat fare. Running trains bleeds money
  per simulated minute. Spawn rates follow the clock: morning and evening
  rush multiply them, night almost silences them.

CLOCK:
- One wall-clock second simulates one in-game minute at speed 1.
- pause/resume stop and restart the clock; set_speed accepts 1, 2 or 4
  only. The 'advance' tool steps time explicitly when the server's own
  tick loop is disabled.

SESSION MANAGEMENT:
- Sessions are independent cities with independent clocks and budgets.
- Identical seeds with identical tunings replay identically, so record
  seeds for interesting maps.

STRATEGY HINTS:
- Read map_view first and put early stations on '#' clusters.
- Loops serve commuters in both directions without reversing.
- Watch the rejected-action messages; they name the violated rule.

Good luck, and mind the gap! 🚇`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func clockString(clock float64) string {
	mins := int(clock)
	day := mins/1440 + 1
	return fmt.Sprintf("day %d %02d:%02d", day, (mins/60)%24, mins%60)
}

// formatStateSummary is the one-line view used where the full snapshot
// would be noise.
func formatStateSummary(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	paused := ""
	if state.Paused {
		paused = " [paused]"
	}
	return fmt.Sprintf("%s | money $%.0f | speed x%d%s | stations %d | lines %d | passengers %d",
		clockString(state.Clock), state.Money, state.Speed, paused,
		len(state.Stations), len(state.Lines), len(state.Passengers))
}

func formatSnapshot(s *service.Snapshot) string {
	if s == nil || s.GameState == nil {
		return "No game state available"
	}
	state := s.GameState

	var b strings.Builder
	b.WriteString(formatStateSummary(state))
	b.WriteString("\n")

	if len(state.Stations) > 0 {
		b.WriteString(fmt.Sprintf("\nStations (%d):\n", len(state.Stations)))
		for _, st := range state.Stations {
			b.WriteString(fmt.Sprintf("- %s [%s] at (%d,%d), %d waiting\n",
				st.Label, st.ID, st.V.X, st.V.Y, len(st.Queue)))
		}
	}

	if len(state.Lines) > 0 {
		b.WriteString(fmt.Sprintf("\nLines (%d):\n", len(state.Lines)))
		for _, l := range state.Lines {
			shape := ""
			if l.Loop {
				shape = " (loop)"
			}
			b.WriteString(fmt.Sprintf("- %s [%s]: %s%s, %d trains\n",
				l.Color, l.ID, strings.Join(l.Stations, " > "), shape, len(l.Trains)))
		}
	}

	if s.Draft != nil {
		b.WriteString(fmt.Sprintf("\nDraft line: %s through %s (not completed)\n",
			s.Draft.Color, strings.Join(s.Draft.Stations, " > ")))
	}

	if len(s.Trains) > 0 {
		b.WriteString(fmt.Sprintf("\nTrains (%d):\n", len(s.Trains)))
		for _, tr := range s.Trains {
			b.WriteString(fmt.Sprintf("- %s [%s line] at (%.1f,%.1f) %s, %d riders\n",
				tr.TrainID, tr.Color, tr.X, tr.Y, tr.State, tr.Riders))
		}
	}

	return b.String()
}

func formatOutcome(tool string, outcome *service.ActionOutcome) string {
	if !outcome.Result.Success {
		return fmt.Sprintf("✗ %s rejected: %s", tool, outcome.Result.Error)
	}

	response := fmt.Sprintf("✓ %s accepted\n", tool)
	if outcome.Snapshot != nil {
		response += "\n" + formatSnapshot(outcome.Snapshot)
	}
	return response
}
