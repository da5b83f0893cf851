package session

import (
	"encoding/json"
	"time"

	"github.com/rahulYUV/metromap.io/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the envelope written to storage. State holds the
// engine's own save format verbatim, so its field-defaulting and corruption
// rules apply unchanged on load.
type PersistedSessionData struct {
	ID             string          `json:"id"`
	TuningName     string          `json:"tuning_name"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	State          json.RawMessage `json:"state"`
}
