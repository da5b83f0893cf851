package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
)

// ErrNoSavedGame reports that no usable save exists. Missing, empty and
// corrupted blobs all map to this error; corruption is treated as absence,
// never surfaced as a crash.
var ErrNoSavedGame = errors.New("no saved game")

// SerializeState renders the full game state as self-describing JSON.
func SerializeState(s *GameState) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize game state: %w", err)
	}
	return string(data), nil
}

// ParseState parses a serialized game state. Fields an older save may lack
// (clock, money, labels, queues, the passenger roster, per-line train lists)
// are defaulted rather than rejected; anything unparseable yields
// ErrNoSavedGame.
func ParseState(text string) (*GameState, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrNoSavedGame
	}

	// probe which top-level fields are present so absent ones can be
	// defaulted instead of zeroed
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, ErrNoSavedGame
	}

	var s GameState
	if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
		return nil, ErrNoSavedGame
	}
	if s.Map == nil || s.Map.Width <= 0 || s.Map.Height <= 0 || len(s.Map.Tiles) == 0 {
		return nil, ErrNoSavedGame
	}

	if _, ok := fields["money"]; !ok {
		s.Money = DefaultTuning().StartingMoney
	}
	if _, ok := fields["clock"]; !ok {
		s.Clock = float64(DefaultTuning().StartHour) * 60
	}
	if s.Speed != SpeedNormal && s.Speed != SpeedDouble && s.Speed != SpeedQuad {
		s.Speed = SpeedNormal
	}

	normalizeState(&s)
	return &s, nil
}

// normalizeState repairs a freshly parsed state so every invariant the
// simulation relies on holds again: collections are non-nil, ids and labels
// exist, sequence counters cover the loaded ids, every line runs a train and
// every roster passenger sits in exactly one place.
func normalizeState(s *GameState) {
	if s.Stations == nil {
		s.Stations = []*Station{}
	}
	if s.Lines == nil {
		s.Lines = []*MetroLine{}
	}
	if s.Passengers == nil {
		s.Passengers = []*Passenger{}
	}

	relabel := false
	for _, st := range s.Stations {
		if st.Queue == nil {
			st.Queue = []string{}
		}
		if st.ID == "" {
			st.ID = st.V.Key()
		}
		if st.Label == "" {
			relabel = true
		}
	}
	if relabel {
		for i, st := range s.Stations {
			st.Label = labelForOrdinal(i)
		}
	}
	if s.StationSeq < len(s.Stations) {
		s.StationSeq = len(s.Stations)
	}

	for _, l := range s.Lines {
		if l.Trains == nil {
			l.Trains = []*Train{}
		}
		if n := idOrdinal(l.ID, "line-"); n > s.LineSeq {
			s.LineSeq = n
		}
		for _, t := range l.Trains {
			normalizeTrain(t, l)
			if n := idOrdinal(t.ID, "train-"); n > s.TrainSeq {
				s.TrainSeq = n
			}
		}
	}
	for _, p := range s.Passengers {
		if n := idOrdinal(p.ID, "p-"); n > s.PassengerSeq {
			s.PassengerSeq = n
		}
	}

	// every completed line keeps at least one train
	for _, l := range s.Lines {
		if len(l.Trains) == 0 && len(l.Stations) >= 2 {
			newTrainOn(s, l, DefaultTuning().DwellDistance)
		}
	}

	reconcilePassengers(s)
}

// normalizeTrain clamps loaded runtime fields back into range. Out-of-range
// indices park the train at the start of its line.
func normalizeTrain(t *Train, l *MetroLine) {
	n := len(l.Stations)
	if t.Passengers == nil {
		t.Passengers = []string{}
	}
	t.LineID = l.ID
	if t.Direction != 1 && t.Direction != -1 {
		t.Direction = 1
	}
	if t.State != TrainMoving && t.State != TrainStopped {
		t.State = TrainStopped
		t.DwellLeft = DefaultTuning().DwellDistance
	}
	if t.CurrentIdx < 0 || t.CurrentIdx >= n || t.TargetIdx < 0 || t.TargetIdx >= n {
		t.CurrentIdx = 0
		t.State = TrainStopped
		t.Progress = 0
		t.DwellLeft = DefaultTuning().DwellDistance
		t.TargetIdx, t.Direction = initialTarget(l, 0, 1)
	}
	if t.Progress < 0 || t.Progress > 1 {
		t.Progress = 0
	}
	t.invalidateSegment()
}

// reconcilePassengers drops dangling passenger references both ways: ids in
// queues or on trains without a roster entry, and roster entries placed
// nowhere or with a broken route.
func reconcilePassengers(s *GameState) {
	placed := make(map[string]bool)

	keepRef := func(pid string, where string) bool {
		p := s.Passenger(pid)
		if p == nil {
			log.Printf("load: passenger %s referenced by %s is not in the roster, dropping", pid, where)
			return false
		}
		if placed[pid] {
			log.Printf("load: passenger %s placed twice, dropping the copy in %s", pid, where)
			return false
		}
		if s.Station(p.NextStop()) == nil {
			log.Printf("load: passenger %s heads to missing station %q, dropping", pid, p.NextStop())
			return false
		}
		placed[pid] = true
		return true
	}

	for _, st := range s.Stations {
		kept := st.Queue[:0]
		for _, pid := range st.Queue {
			if keepRef(pid, "station "+st.ID) {
				kept = append(kept, pid)
			}
		}
		st.Queue = kept
	}
	for _, l := range s.Lines {
		for _, t := range l.Trains {
			kept := t.Passengers[:0]
			for _, pid := range t.Passengers {
				if keepRef(pid, "train "+t.ID) {
					kept = append(kept, pid)
				}
			}
			t.Passengers = kept
		}
	}

	kept := s.Passengers[:0]
	for _, p := range s.Passengers {
		if !placed[p.ID] {
			log.Printf("load: passenger %s is in no queue or train, dropping", p.ID)
			continue
		}
		kept = append(kept, p)
	}
	s.Passengers = kept
}

// idOrdinal extracts N from ids of the form prefixN, or 0.
func idOrdinal(id, prefix string) int {
	if !strings.HasPrefix(id, prefix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
