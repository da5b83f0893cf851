package service

import (
	"time"

	"github.com/rahulYUV/metromap.io/game/engine"
)

// SessionInfo is the transport-safe projection of one session.
type SessionInfo struct {
	ID             string            `json:"id"`
	TuningName     string            `json:"tuning_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
	Tuning         *engine.Tuning    `json:"tuning"`
}

// TrainPosition is a train's interpolated world position, ready to render.
type TrainPosition struct {
	TrainID string            `json:"train_id"`
	LineID  string            `json:"line_id"`
	Color   string            `json:"color"`
	X       float64           `json:"x"`
	Y       float64           `json:"y"`
	State   engine.TrainState `json:"state"`
	Riders  int               `json:"riders"`
}

// Snapshot is the read-only projection of a session handed to transports:
// the raw state plus the derived view data clients would otherwise have to
// recompute.
type Snapshot struct {
	SessionID string            `json:"session_id"`
	GameState *engine.GameState `json:"game_state"`
	Draft     *engine.MetroLine `json:"draft,omitempty"`
	Trains    []TrainPosition   `json:"trains"`
	Hour      int               `json:"hour"`
}

// ActionOutcome pairs a dispatch result with the snapshot taken right after
// it was applied.
type ActionOutcome struct {
	Result   engine.Result `json:"result"`
	Snapshot *Snapshot     `json:"snapshot"`
}

// GameEvent is a coarse notable occurrence during a tick, used for websocket
// broadcasts and logs.
type GameEvent struct {
	Type      string    `json:"type"` // "passengers_spawned", "journeys_completed", "hour_changed"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// TickOutcome reports one Advance call: the post-tick snapshot and what
// happened during it.
type TickOutcome struct {
	Snapshot *Snapshot   `json:"snapshot"`
	Events   []GameEvent `json:"events,omitempty"`
}

// TuningInfo describes one available tuning file.
type TuningInfo struct {
	Filename    string `json:"filename"`
	TuningID    string `json:"tuning_id"` // the identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	MapWidth    int    `json:"map_width"`
	MapHeight   int    `json:"map_height"`
}
