package service

import (
	"context"
	"sync"
	"time"

	"github.com/rahulYUV/metromap.io/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, seed int64, terrain, tuningName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Dispatch(ctx context.Context, sessionID string, action engine.Action) (*ActionOutcome, error)
	Advance(ctx context.Context, sessionID string, dtMs float64) (*TickOutcome, error)

	// Game State
	GetSnapshot(ctx context.Context, sessionID string) (*Snapshot, error)
	GetMapView(ctx context.Context, sessionID string) (string, error)

	// Configuration
	ListTunings(ctx context.Context) ([]*TuningInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, ctrl *engine.Controller, tuningName string) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// TuningManager handles tuning loading
type TuningManager interface {
	Load(name string) (*engine.Tuning, error)
	List() ([]*TuningInfo, error)
	GetDefault() *engine.Tuning
	Save(name string, t *engine.Tuning) error
}

// Session represents an active game session. All controller access must go
// through Lock/Unlock so HTTP handlers, the tick loop and websocket reads
// never interleave inside a tick.
type Session struct {
	ID             string
	Controller     *engine.Controller
	TuningName     string
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu sync.Mutex
}

// Lock acquires the session's controller mutex.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's controller mutex.
func (s *Session) Unlock() { s.mu.Unlock() }
