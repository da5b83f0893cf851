// Package engine implements the deterministic simulation core of metromap.io,
// a grid-based transit-building game.
//
// The engine package implements:
//   - Seeded procedural map generation (river/archipelago terrain plus
//     residential and office density fields)
//   - Octilinear route geometry (0°/45°/90° paths with knee-point selection)
//   - Station graph construction and BFS passenger routing
//   - The tick-driven simulation: train movement, passenger spawning,
//     boarding/alighting, and the money ledger
//   - Managers that validate and apply every state-changing operation
//   - The Controller that owns GameState and exposes the update/dispatch API
//
// Core Types:
//
// GameState is the single root aggregate: map, stations, lines, trains,
// passengers, clock, and money. Tuning carries every numeric gameplay
// constant and is loaded from JSON files. The Controller is the only object
// external callers touch; Action values describe player commands and every
// dispatch returns a structured Result.
//
// Usage:
//
//	tuning := engine.DefaultTuning()
//	ctrl := engine.NewGame(42, tuning)
//
//	res := ctrl.Dispatch(engine.PlaceStationAction{X: 5, Y: 5})
//	if !res.Success {
//		log.Println(res.Error)
//	}
//
//	// Advance the simulation by one 16ms frame.
//	ctrl.Update(16)
//
// Determinism:
//
// Map generation derives a private RNG from the seed, so the same seed always
// produces a bit-identical map. All state collections are ordered slices and
// every lookup is by id over those slices, so a fixed seed and a fixed
// sequence of dispatches replays identically.
package engine
