package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rahulYUV/metromap.io/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	tunings  TuningManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, tunings TuningManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		tunings:  tunings,
	}
}

// getTuningID returns the tuning_id for a given tuning name, used for
// consistent API responses
func (s *gameServiceImpl) getTuningID(tuningName string) string {
	available, err := s.tunings.List()
	if err == nil {
		for _, info := range available {
			if info.Name == tuningName {
				return info.TuningID
			}
		}
	}
	if tuningName == "" {
		return "default"
	}
	return tuningName
}

// CreateSession creates a new game session. A zero seed means "pick one",
// an empty terrain means "let the seed decide".
func (s *gameServiceImpl) CreateSession(ctx context.Context, seed int64, terrain, tuningName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tuning *engine.Tuning
	var err error
	if tuningName != "" {
		tuning, err = s.tunings.Load(tuningName)
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				available, listErr := s.tunings.List()
				if listErr == nil && len(available) > 0 {
					var ids []string
					for _, info := range available {
						ids = append(ids, info.TuningID)
					}
					return nil, fmt.Errorf("tuning '%s' not found. Available tunings: %v", tuningName, ids)
				}
				return nil, fmt.Errorf("tuning '%s' not found. Use /api/tunings to list available tunings", tuningName)
			}
			return nil, fmt.Errorf("failed to load tuning %s: %w", tuningName, err)
		}
	} else {
		tuning = s.tunings.GetDefault()
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var ctrl *engine.Controller
	switch terrain {
	case "":
		ctrl = engine.NewGame(seed, tuning)
	case string(engine.TerrainRiver):
		ctrl = engine.NewGameWithTerrain(seed, engine.TerrainRiver, tuning)
	case string(engine.TerrainArchipelago):
		ctrl = engine.NewGameWithTerrain(seed, engine.TerrainArchipelago, tuning)
	default:
		return nil, fmt.Errorf("unknown terrain %q (want %q or %q)", terrain, engine.TerrainRiver, engine.TerrainArchipelago)
	}

	tuningID := tuningName
	if tuningID == "" {
		tuningID = s.getTuningID(tuning.Name)
	}

	// Let the session manager generate the id
	session, err := s.sessions.Create("", ctrl, tuningID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	return s.sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Dispatch applies one player action to a session and returns the result
// together with the post-action snapshot. Rejected actions come back with
// Result.Success=false and a nil error; only missing sessions error.
func (s *gameServiceImpl) Dispatch(ctx context.Context, sessionID string, action engine.Action) (*ActionOutcome, error) {
	s.mu.RLock()
	sess, err := s.sessions.Get(sessionID)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	sess.Lock()
	result := sess.Controller.Dispatch(action)
	snapshot := buildSnapshot(sess)
	sess.Unlock()

	if result.Success {
		if err := s.sessions.Save(sessionID); err != nil {
			log.Printf("Warning: failed to persist session %s after action: %v", sessionID, err)
		}
	}

	return &ActionOutcome{Result: result, Snapshot: snapshot}, nil
}

// Advance runs one simulation tick of dtMs wall-clock milliseconds and
// reports what happened during it.
func (s *gameServiceImpl) Advance(ctx context.Context, sessionID string, dtMs float64) (*TickOutcome, error) {
	s.mu.RLock()
	sess, err := s.sessions.Get(sessionID)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	sess.Lock()
	state := sess.Controller.GetState()
	prevSeq := state.PassengerSeq
	prevRiding := len(state.Passengers)
	prevHour := state.HourOfDay()

	sess.Controller.Update(dtMs)

	events := deriveTickEvents(state, prevSeq, prevRiding, prevHour)
	snapshot := buildSnapshot(sess)
	sess.Unlock()

	return &TickOutcome{Snapshot: snapshot, Events: events}, nil
}

// GetSnapshot returns the session's current snapshot
func (s *gameServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	sess.Lock()
	snapshot := buildSnapshot(sess)
	sess.Unlock()
	return snapshot, nil
}

// GetMapView renders the session's map as ASCII art
func (s *gameServiceImpl) GetMapView(ctx context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return "", fmt.Errorf("session not found: %w", err)
	}

	sess.Lock()
	view := renderMapView(sess.Controller.GetState())
	sess.Unlock()
	return view, nil
}

// ListTunings returns all available tunings
func (s *gameServiceImpl) ListTunings(ctx context.Context) ([]*TuningInfo, error) {
	return s.tunings.List()
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		TuningName:     s.getTuningID(sess.Controller.GetTuning().Name),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Controller.GetState(),
		Tuning:         sess.Controller.GetTuning(),
	}
}

// buildSnapshot projects a session into its transport view. Callers must
// hold the session lock.
func buildSnapshot(sess *Session) *Snapshot {
	state := sess.Controller.GetState()

	trains := make([]TrainPosition, 0)
	for _, line := range state.Lines {
		for _, tr := range line.Trains {
			x, y := engine.TrainWorldPosition(state, line, tr)
			trains = append(trains, TrainPosition{
				TrainID: tr.ID,
				LineID:  line.ID,
				Color:   line.Color,
				X:       x,
				Y:       y,
				State:   tr.State,
				Riders:  len(tr.Passengers),
			})
		}
	}

	return &Snapshot{
		SessionID: sess.ID,
		GameState: state,
		Draft:     sess.Controller.GetDraft(),
		Trains:    trains,
		Hour:      state.HourOfDay(),
	}
}

// deriveTickEvents compares post-tick state against pre-tick counters.
// PassengerSeq only ever grows, so the delta is the spawn count; completed
// journeys are whoever left the roster beyond that.
func deriveTickEvents(state *engine.GameState, prevSeq, prevRiding, prevHour int) []GameEvent {
	var events []GameEvent
	now := time.Now()

	if spawned := state.PassengerSeq - prevSeq; spawned > 0 {
		events = append(events, GameEvent{
			Type:      "passengers_spawned",
			Message:   fmt.Sprintf("%d passenger(s) appeared", spawned),
			Timestamp: now,
		})
	}
	if completed := prevRiding + (state.PassengerSeq - prevSeq) - len(state.Passengers); completed > 0 {
		events = append(events, GameEvent{
			Type:      "journeys_completed",
			Message:   fmt.Sprintf("%d passenger(s) reached their destination", completed),
			Timestamp: now,
		})
	}
	if hour := state.HourOfDay(); hour != prevHour {
		events = append(events, GameEvent{
			Type:      "hour_changed",
			Message:   fmt.Sprintf("clock struck %02d:00", hour),
			Timestamp: now,
		})
	}
	return events
}

// renderMapView draws the tile grid with stations overlaid: '~' for water,
// density bands for land, the station's letter label at its vertex tile.
func renderMapView(state *engine.GameState) string {
	m := state.Map
	rows := make([][]byte, m.Height)
	for y := 0; y < m.Height; y++ {
		rows[y] = make([]byte, m.Width)
		for x := 0; x < m.Width; x++ {
			rows[y][x] = tileChar(m.Tiles[y][x])
		}
	}

	for _, st := range state.Stations {
		x, y := st.V.X, st.V.Y
		if x >= m.Width {
			x = m.Width - 1
		}
		if y >= m.Height {
			y = m.Height - 1
		}
		if x < 0 || y < 0 {
			continue
		}
		label := byte('?')
		if len(st.Label) > 0 {
			label = st.Label[0]
		}
		rows[y][x] = label
	}

	var b strings.Builder
	fmt.Fprintf(&b, "clock %02d:%02d  money %.0f  stations %d  lines %d  passengers %d\n",
		state.HourOfDay(), int(state.Clock)%60, state.Money,
		len(state.Stations), len(state.Lines), len(state.Passengers))
	for _, row := range rows {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}

func tileChar(t engine.Tile) byte {
	if t.Type == engine.TileWater {
		return '~'
	}
	switch density := t.Residential + t.Office; {
	case density >= 120:
		return '#'
	case density >= 60:
		return '+'
	case density >= 20:
		return '.'
	default:
		return ' '
	}
}
