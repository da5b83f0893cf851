package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rahulYUV/metromap.io/game/engine"
	"github.com/rahulYUV/metromap.io/game/service"
)

// FilePersistence implements SessionPersistence using file system storage
type FilePersistence struct {
	sessionsDir string
	tunings     service.TuningManager
}

// NewFilePersistence creates a new file-based session persistence layer
func NewFilePersistence(sessionsDir string, tunings service.TuningManager) (*FilePersistence, error) {
	// Create sessions directory if it doesn't exist
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{
		sessionsDir: sessionsDir,
		tunings:     tunings,
	}, nil
}

// Save persists a session to a JSON file
func (fp *FilePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	stateText, err := engine.SerializeState(session.Controller.GetState())
	if err != nil {
		return fmt.Errorf("failed to serialize game state: %w", err)
	}

	data := PersistedSessionData{
		ID:             session.ID,
		TuningName:     session.TuningName,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		State:          json.RawMessage(stateText),
	}

	// Marshal to JSON with indentation for readability
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	filePath := fp.getFilePath(session.ID)
	if err := os.WriteFile(filePath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load retrieves a session from a JSON file. A corrupt state payload counts
// as an absent session, matching the engine's "no saved game" rule.
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	filePath := fp.getFilePath(id)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("%w: corrupt session file", ErrSessionNotFound)
	}

	return restoreSession(&data, fp.tunings)
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	filePath := fp.getFilePath(id)

	if !fp.Exists(id) {
		return ErrSessionNotFound
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// ListAll returns all persisted session IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			sessionIDs = append(sessionIDs, strings.TrimSuffix(name, ".json"))
		}
	}

	return sessionIDs, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

// getFilePath returns the full file path for a session ID
func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", id))
}

// restoreSession rebuilds a live session from its persisted envelope. The
// state passes through the engine's parser, so missing fields get defaults
// and corrupt payloads surface as ErrSessionNotFound. A tuning that has
// since been deleted falls back to the default tuning rather than stranding
// the save.
func restoreSession(data *PersistedSessionData, tunings service.TuningManager) (*service.Session, error) {
	tuning, err := tunings.Load(data.TuningName)
	if err != nil {
		log.Printf("Warning: tuning '%s' for session %s unavailable, using default: %v", data.TuningName, data.ID, err)
		tuning = tunings.GetDefault()
	}

	state, err := engine.ParseState(string(data.State))
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt game state", ErrSessionNotFound)
	}

	return &service.Session{
		ID:             data.ID,
		Controller:     engine.NewController(state, tuning),
		TuningName:     data.TuningName,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}
