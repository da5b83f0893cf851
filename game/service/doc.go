// Package service provides the business logic layer for the metro game.
//
// The service package implements:
//   - Multi-session game management
//   - Tuning management and loading
//   - Action dispatch and tick advancement
//   - Session lifecycle management
//   - Snapshot and map-view projection
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// TuningManager manages gameplay tuning loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine, providing session isolation, tuning management, and
// business logic orchestration. Each session maintains its own controller
// with independent state, guarded by a per-session mutex so the tick loop
// and request handlers never interleave inside a simulation step.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	tuningMgr := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, tuningMgr)
//
//	// Create a new session on a random seed with the default tuning
//	sessionInfo, err := gameService.CreateSession(ctx, 0, "", "")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Dispatch actions and advance the clock
//	outcome, err := gameService.Dispatch(ctx, sessionInfo.ID, engine.PlaceStationAction{X: 5, Y: 5})
//	tick, err := gameService.Advance(ctx, sessionInfo.ID, 250)
//
// Session Management:
//
// Sessions are identified by UUIDs and maintain independent game state.
// Multiple sessions can run concurrently with different tunings. Sessions
// track creation time and last access time for cleanup and persistence.
package service
