package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rahulYUV/metromap.io/game/config"
	"github.com/rahulYUV/metromap.io/game/engine"
	"github.com/rahulYUV/metromap.io/game/service"
)

func newTestTuningManager(t *testing.T) *config.Manager {
	tuningManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create tuning manager: %v", err)
	}
	return tuningManager
}

// placeOneStation dispatches a station placement somewhere buildable.
func placeOneStation(t *testing.T, ctrl *engine.Controller) {
	v, ok := findLandVertex(ctrl.GetState())
	if !ok {
		t.Fatal("No buildable vertex on map")
	}
	result := ctrl.Dispatch(engine.PlaceStationAction{X: v.X, Y: v.Y})
	if !result.Success {
		t.Fatalf("Station placement failed: %s", result.Error)
	}
}

func TestFilePersistence(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "session_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	tuningManager := newTestTuningManager(t)

	persistence, err := NewFilePersistence(tempDir, tuningManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	tuning := tuningManager.GetDefault()
	session := &service.Session{
		ID:             "test1",
		Controller:     engine.NewGame(42, tuning),
		TuningName:     "default",
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	t.Run("Save and Load Session", func(t *testing.T) {
		err := persistence.Save(session)
		if err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}

		if loadedSession.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loadedSession.ID)
		}
		if loadedSession.TuningName != session.TuningName {
			t.Errorf("Expected tuning name %s, got %s", session.TuningName, loadedSession.TuningName)
		}
		if loadedSession.Controller.GetState().Money != session.Controller.GetState().Money {
			t.Errorf("Expected money %v, got %v",
				session.Controller.GetState().Money, loadedSession.Controller.GetState().Money)
		}
		if loadedSession.Controller.GetState().Seed != session.Controller.GetState().Seed {
			t.Errorf("Seed not persisted correctly")
		}
	})

	t.Run("Save State Changes", func(t *testing.T) {
		placeOneStation(t, session.Controller)

		err := persistence.Save(session)
		if err != nil {
			t.Fatalf("Failed to save updated session: %v", err)
		}

		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load updated session: %v", err)
		}

		if len(loadedSession.Controller.GetState().Stations) != 1 {
			t.Errorf("Station not persisted correctly")
		}
		if loadedSession.Controller.GetState().Money != session.Controller.GetState().Money {
			t.Errorf("Money not persisted correctly")
		}
	})

	t.Run("List All Sessions", func(t *testing.T) {
		session2 := &service.Session{
			ID:             "test2",
			Controller:     engine.NewGame(43, tuning),
			TuningName:     "default",
			CreatedAt:      time.Now(),
			LastAccessedAt: time.Now(),
		}
		err := persistence.Save(session2)
		if err != nil {
			t.Fatalf("Failed to save second session: %v", err)
		}

		sessionIDs, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}

		if len(sessionIDs) < 2 {
			t.Errorf("Expected at least 2 sessions, got %d", len(sessionIDs))
		}

		found := make(map[string]bool)
		for _, id := range sessionIDs {
			found[id] = true
		}
		if !found["test1"] || !found["test2"] {
			t.Error("Expected sessions not found in list")
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		err := persistence.Delete("test2")
		if err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}

		if persistence.Exists("test2") {
			t.Error("Session should not exist after delete")
		}

		_, err = persistence.Load("test2")
		if err == nil {
			t.Error("Should not be able to load deleted session")
		}
	})

	t.Run("Corrupt Envelope Counts as Missing", func(t *testing.T) {
		path := filepath.Join(tempDir, "garbled.json")
		if err := os.WriteFile(path, []byte("{definitely not json"), 0644); err != nil {
			t.Fatalf("Failed to write corrupt file: %v", err)
		}

		_, err := persistence.Load("garbled")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound for corrupt envelope, got %v", err)
		}
	})

	t.Run("Corrupt State Counts as Missing", func(t *testing.T) {
		envelope := `{
			"id": "husk",
			"tuning_name": "default",
			"created_at": "2026-01-02T10:00:00Z",
			"last_accessed_at": "2026-01-02T10:00:00Z",
			"state": {"money": 500}
		}`
		path := filepath.Join(tempDir, "husk.json")
		if err := os.WriteFile(path, []byte(envelope), 0644); err != nil {
			t.Fatalf("Failed to write husk file: %v", err)
		}

		_, err := persistence.Load("husk")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound for corrupt state, got %v", err)
		}
	})

	t.Run("Vanished Tuning Falls Back to Default", func(t *testing.T) {
		orphan := &service.Session{
			ID:             "orphan",
			Controller:     engine.NewGame(44, tuning),
			TuningName:     "vanished-ruleset",
			CreatedAt:      time.Now(),
			LastAccessedAt: time.Now(),
		}
		if err := persistence.Save(orphan); err != nil {
			t.Fatalf("Failed to save orphan session: %v", err)
		}

		loaded, err := persistence.Load("orphan")
		if err != nil {
			t.Fatalf("Expected fallback to default tuning, got error: %v", err)
		}
		if loaded.TuningName != "vanished-ruleset" {
			t.Errorf("Expected recorded tuning name to survive, got %s", loaded.TuningName)
		}
		if loaded.Controller.GetTuning().Name != tuningManager.GetDefault().Name {
			t.Errorf("Expected default tuning on fallback, got %s", loaded.Controller.GetTuning().Name)
		}
	})

	t.Run("Error Cases", func(t *testing.T) {
		_, err := persistence.Load("nonexistent")
		if err == nil {
			t.Error("Should get error when loading non-existent session")
		}

		err = persistence.Delete("nonexistent")
		if err == nil {
			t.Error("Should get error when deleting non-existent session")
		}

		err = persistence.Save(nil)
		if err == nil {
			t.Error("Should get error when saving nil session")
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "session_file_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	tuningManager := newTestTuningManager(t)

	persistence, err := NewFilePersistence(tempDir, tuningManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	session := &service.Session{
		ID:             "file_test",
		Controller:     engine.NewGame(42, tuningManager.GetDefault()),
		TuningName:     "default",
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	err = persistence.Save(session)
	if err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	expectedFile := filepath.Join(tempDir, "file_test.json")
	if _, err := os.Stat(expectedFile); os.IsNotExist(err) {
		t.Errorf("Expected file %s does not exist", expectedFile)
	}

	data, err := os.ReadFile(expectedFile)
	if err != nil {
		t.Fatalf("Failed to read session file: %v", err)
	}

	if len(data) == 0 {
		t.Error("Session file should not be empty")
	}

	content := string(data)
	expectedFields := []string{"\"id\"", "\"tuning_name\"", "\"created_at\"", "\"state\""}
	for _, field := range expectedFields {
		if !strings.Contains(content, field) {
			t.Errorf("Session file should contain field %s", field)
		}
	}
}
