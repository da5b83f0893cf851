package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rahulYUV/metromap.io/game/engine"
	"github.com/rahulYUV/metromap.io/game/service"
)

var (
	ErrTuningNotFound = errors.New("tuning not found")
	ErrInvalidTuning  = errors.New("invalid tuning")
)

// Manager handles tuning loading and caching
type Manager struct {
	configDir     string
	defaultTuning *engine.Tuning
	tunings       map[string]*engine.Tuning
	mu            sync.RWMutex
}

// NewManager creates a new tuning manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		tunings:   make(map[string]*engine.Tuning),
	}
	m.defaultTuning = m.resolveDefault()
	return m, nil
}

// Load loads a tuning by name
func (m *Manager) Load(name string) (*engine.Tuning, error) {
	m.mu.RLock()
	if t, exists := m.tunings[name]; exists {
		m.mu.RUnlock()
		return t, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if t, exists := m.tunings[name]; exists {
		return t, nil
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}

	data, err := os.ReadFile(filepath.Join(m.configDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTuningNotFound
		}
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}

	// Unmarshal onto defaults so files missing newer knobs stay valid
	t := engine.DefaultTuning()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning: %w", err)
	}

	if err := engine.ValidateTuning(t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTuning, err)
	}

	m.tunings[name] = t
	return t, nil
}

// List returns information about all available tunings
func (m *Manager) List() ([]*service.TuningInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var infos []*service.TuningInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")

		t, err := m.Load(name)
		if err != nil {
			// Skip invalid tunings
			continue
		}

		infos = append(infos, &service.TuningInfo{
			Filename:    entry.Name(),
			TuningID:    name, // the identifier to use for session creation
			Name:        t.Name,
			Description: t.Description,
			MapWidth:    t.MapWidth,
			MapHeight:   t.MapHeight,
		})
	}

	return infos, nil
}

// GetDefault returns the default tuning
func (m *Manager) GetDefault() *engine.Tuning {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultTuning
}

// SetDefault sets the default tuning by name
func (m *Manager) SetDefault(name string) error {
	t, err := m.Load(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultTuning = t
	return nil
}

// RefreshCache drops all cached tunings and re-resolves the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.tunings = make(map[string]*engine.Tuning)
	m.mu.Unlock()

	d := m.resolveDefault()

	m.mu.Lock()
	m.defaultTuning = d
	m.mu.Unlock()
	return nil
}

// resolveDefault picks the default tuning: default.json if present, else the
// first available file, else the built-in defaults. Must not be called with
// m.mu held.
func (m *Manager) resolveDefault() *engine.Tuning {
	if t, err := m.Load("default"); err == nil {
		return t
	}

	infos, err := m.List()
	if err == nil && len(infos) > 0 {
		if t, loadErr := m.Load(infos[0].TuningID); loadErr == nil {
			return t
		}
	}

	return engine.DefaultTuning()
}

// Save writes a tuning to disk
func (m *Manager) Save(name string, t *engine.Tuning) error {
	if err := engine.ValidateTuning(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTuning, err)
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tuning: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write tuning file: %w", err)
	}

	m.mu.Lock()
	m.tunings[name] = t
	m.mu.Unlock()

	return nil
}
