// Package session provides session management for the metro game.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session lifecycle management
//   - Concurrent access control
//   - Session cleanup and expiration
//   - Pluggable persistence backends (JSON files or SQLite)
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// SessionPersistence is the storage port; FilePersistence keeps one JSON
// file per session, SQLitePersistence keeps all sessions in a single
// database file. Both store the engine's own save format, so saves written
// by either backend load with the same field-defaulting and corruption
// rules.
//
// Session Identifiers:
//
// Sessions use UUIDs. Lookups are case-insensitive so ids survive being
// pasted through tools that fold case.
//
// Concurrency:
//
// The session manager is thread-safe and supports concurrent operations.
// Multiple goroutines can safely create, retrieve, and modify different
// sessions simultaneously. Internal locking ensures data consistency.
//
// Usage:
//
//	manager := session.NewManager()
//
//	// Create a new session
//	sess, err := manager.Create("", engine.NewGame(42, tuning), "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Retrieve existing session
//	sess, err = manager.Get(sessionID)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// List all active sessions
//	sessions := manager.List()
//
// Cleanup:
//
// Sessions can be explicitly deleted or may expire based on inactivity.
// The manager provides cleanup methods for removing stale sessions and
// freeing resources.
package session
