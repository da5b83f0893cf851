// Package api provides the HTTP REST surface for the metro simulation.
//
// The api package implements:
//   - Session management endpoints
//   - Action dispatch and simulation advance endpoints
//   - Snapshot and ASCII map views
//   - Tuning listing
//   - WebSocket upgrade handling
//   - Static file serving
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session (optional seed, terrain, tuning)
//   - GET /api/sessions - List sessions (sort, order, limit query params)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Snapshot: game state, draft line, train positions
//   - GET /api/sessions/{id}/map - ASCII map rendering (text/plain)
//   - POST /api/sessions/{id}/actions - Dispatch one action
//   - POST /api/sessions/{id}/advance - Advance the simulation clock
//
// Tunings:
//   - GET /api/tunings - List available rule sets
//
// Other:
//   - GET /health - Liveness probe
//   - GET /ws?session={id} - WebSocket upgrade for live snapshots
//
// Request/Response Format:
//
// Except for the map view, all endpoints accept and return JSON. Actions are
// sent as a wire-form type tag plus payload:
//
//	{
//	  "type": "PLACE_STATION",
//	  "payload": {"x": 5, "y": 5}
//	}
//
// A rejected action is not an HTTP error: the response carries
// {"result": {"success": false, "error": "..."}} with status 200. HTTP
// errors are reserved for malformed requests and missing sessions.
//
// Advance accepts {"dt_ms": 250} and defaults the slice when absent. The
// response includes the post-tick snapshot plus any notable events
// (passenger spawns, completed journeys, hour changes).
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "error message"
//	}
package api
