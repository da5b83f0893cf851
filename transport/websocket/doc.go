// Package websocket provides push-only WebSocket transport for live map
// watching.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Snapshot broadcasting after every accepted action and simulation tick
//   - Tick event fan-out (passenger spawns, completed journeys, hour changes)
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections, grouped by session ID. All session bookkeeping
// happens on the hub's Run goroutine; HTTP handlers and the tick loop hand
// messages to the hub over channels, so no caller needs a lock.
//
// Message Protocol:
//
// The protocol is push only. Inbound frames are discarded; mutations go
// through the HTTP API. Outbound messages are JSON envelopes:
//
//	{"session_id": "...", "event": "snapshot", "snapshot": {...}}
//	{"session_id": "...", "event": "game_event", "data": {...}}
//
// Session Integration:
//
// Clients specify their session ID via query parameter (?session=<uuid>)
// when establishing the connection. Snapshots and events are broadcast only
// to clients watching the same session.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	// after a successful action or tick:
//	hub.BroadcastSnapshot(sessionID, snapshot)
//
// Slow consumers are disconnected rather than allowed to stall the hub.
package websocket
