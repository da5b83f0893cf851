// Package mcp provides a Model Context Protocol interface for the metro
// simulation.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for every game action
//   - Session-aware command execution
//
// The client is deliberately thin: every tool proxies to the REST API, so
// an MCP agent and a browser watching the websocket see exactly the same
// sessions. Nothing in this package touches the engine directly.
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - create_session, get_session, list_sessions: session management
//   - game_state: full snapshot with stations, lines, trains, passengers
//   - map_view: ASCII rendering of the city and network
//   - place_station, remove_station: station management
//   - start_line, add_station_to_line, complete_line, cancel_line: line drawing
//   - add_train, remove_train: fleet management
//   - pause, resume, set_speed: clock control
//   - advance: step the simulation explicitly
//   - game_instructions: full rules reference
//
// Rejected actions (invalid placement, short funds, bad speed) come back as
// normal tool output with the engine's rejection reason, not as transport
// errors. Transport errors are reserved for unreachable servers and
// missing sessions.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
