package engine

import (
	"errors"
	"strings"
	"testing"
)

// richTestState builds a state exercising every serialized collection: two
// linked stations, a line with a train, and a queued passenger.
func richTestState(t *testing.T) *GameState {
	t.Helper()
	s := newTestState()
	sts := placeStations(s, Vertex{X: 2, Y: 2}, Vertex{X: 8, Y: 2})
	l := completeTestLine(s, "red", false, sts[0].ID, sts[1].ID)
	addTestTrain(t, s, l)
	queuePassenger(t, s, sts[0].ID, sts[1].ID)
	s.Speed = SpeedDouble
	s.Paused = true
	s.Money = 731.5
	return s
}

func TestSerializeRoundTrip(t *testing.T) {
	s := richTestState(t)
	text, err := SerializeState(s)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	parsed, err := ParseState(text)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if parsed.Seed != s.Seed || parsed.Clock != s.Clock || parsed.Money != s.Money {
		t.Errorf("Scalars changed: got seed %d clock %v money %v", parsed.Seed, parsed.Clock, parsed.Money)
	}
	if parsed.Speed != SpeedDouble || !parsed.Paused {
		t.Errorf("Expected speed %d paused, got %d %v", SpeedDouble, parsed.Speed, parsed.Paused)
	}
	if len(parsed.Stations) != 2 || len(parsed.Lines) != 1 || len(parsed.Passengers) != 1 {
		t.Fatalf("Collections changed: %d stations %d lines %d passengers",
			len(parsed.Stations), len(parsed.Lines), len(parsed.Passengers))
	}
	if parsed.Stations[0].ID != s.Stations[0].ID || parsed.Stations[0].Label != s.Stations[0].Label {
		t.Errorf("Station changed: %+v", parsed.Stations[0])
	}
	if tr := parsed.Lines[0].Trains[0]; tr.ID != "train-1" || tr.CurrentIdx != 0 {
		t.Errorf("Train changed: %+v", tr)
	}

	// a well-formed save needs no repairs, so another pass is identical
	again, err := SerializeState(parsed)
	if err != nil {
		t.Fatalf("Failed to re-serialize: %v", err)
	}
	if text != again {
		t.Error("Expected serialize-parse-serialize to be stable")
	}
}

func TestParseState_DefaultsMissingFields(t *testing.T) {
	tuning := DefaultTuning()
	blob := `{
	  "seed": 3,
	  "map": {"width": 2, "height": 2, "terrain": "river", "tiles": [
	    [{"type":"land"},{"type":"land"}],
	    [{"type":"land"},{"type":"water"}]
	  ]}
	}`

	s, err := ParseState(blob)
	if err != nil {
		t.Fatalf("Failed to parse minimal save: %v", err)
	}
	if s.Money != tuning.StartingMoney {
		t.Errorf("Expected default money %v, got %v", tuning.StartingMoney, s.Money)
	}
	if s.Clock != float64(tuning.StartHour)*60 {
		t.Errorf("Expected default clock %v, got %v", float64(tuning.StartHour)*60, s.Clock)
	}
	if s.Speed != SpeedNormal {
		t.Errorf("Expected default speed %d, got %d", SpeedNormal, s.Speed)
	}
	if s.Stations == nil || s.Lines == nil || s.Passengers == nil {
		t.Error("Expected non-nil collections")
	}
	if !s.Map.IsWater(1, 1) || !s.Map.IsLand(0, 0) {
		t.Error("Expected the tile matrix to survive the load")
	}
}

func TestParseState_PresentZeroMoneyIsKept(t *testing.T) {
	blob := `{
	  "seed": 3,
	  "money": 0,
	  "map": {"width": 2, "height": 2, "terrain": "river", "tiles": [
	    [{"type":"land"},{"type":"land"}],
	    [{"type":"land"},{"type":"land"}]
	  ]}
	}`
	s, err := ParseState(blob)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if s.Money != 0 {
		t.Errorf("Expected explicit zero money kept, got %v", s.Money)
	}
}

func TestParseState_DerivesStationIdentity(t *testing.T) {
	blob := `{
	  "seed": 3,
	  "map": {"width": 2, "height": 2, "terrain": "river", "tiles": [
	    [{"type":"land"},{"type":"land"}],
	    [{"type":"land"},{"type":"land"}]
	  ]},
	  "stations": [{"vertex": {"x": 1, "y": 1}}]
	}`
	s, err := ParseState(blob)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	st := s.Stations[0]
	if st.ID != "1,1" {
		t.Errorf("Expected id derived from the vertex, got %q", st.ID)
	}
	if st.Label != "A" {
		t.Errorf("Expected label A, got %q", st.Label)
	}
	if st.Queue == nil {
		t.Error("Expected a non-nil queue")
	}
	if s.StationSeq < 1 {
		t.Errorf("Expected station counter to cover the loaded stations, got %d", s.StationSeq)
	}
}

func TestParseState_RepairsInvalidSpeed(t *testing.T) {
	blob := `{
	  "seed": 3,
	  "speed": 9,
	  "map": {"width": 2, "height": 2, "terrain": "river", "tiles": [
	    [{"type":"land"},{"type":"land"}],
	    [{"type":"land"},{"type":"land"}]
	  ]}
	}`
	s, err := ParseState(blob)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if s.Speed != SpeedNormal {
		t.Errorf("Expected invalid speed repaired to %d, got %d", SpeedNormal, s.Speed)
	}
}

func TestParseState_CorruptSavesMapToNoSavedGame(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t "},
		{"truncated", `{"seed": 1, "map":`},
		{"not json", "hello world"},
		{"wrong shape", `[1,2,3]`},
		{"no map", `{"seed": 1}`},
		{"null map", `{"seed": 1, "map": null}`},
		{"empty tiles", `{"seed": 1, "map": {"width": 2, "height": 2, "tiles": []}}`},
		{"zero dimensions", `{"seed": 1, "map": {"width": 0, "height": 0, "tiles": [[]]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseState(tt.text); !errors.Is(err, ErrNoSavedGame) {
				t.Errorf("Expected ErrNoSavedGame, got %v", err)
			}
		})
	}
}

func TestParseState_RecoversSequenceCounters(t *testing.T) {
	s := newTestState()
	sts := placeStations(s, Vertex{X: 2, Y: 2}, Vertex{X: 8, Y: 2})
	l := completeTestLine(s, "red", false, sts[0].ID, sts[1].ID)
	tr := addTestTrain(t, s, l)
	p := queuePassenger(t, s, sts[0].ID, sts[1].ID)

	// an older save carried ids but not the counters
	l.ID = "line-7"
	tr.ID = "train-9"
	tr.LineID = l.ID
	p.ID = "p-4"
	s.Station(sts[0].ID).Queue[0] = p.ID
	s.StationSeq, s.LineSeq, s.TrainSeq, s.PassengerSeq = 0, 0, 0, 0

	text, err := SerializeState(s)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	parsed, err := ParseState(text)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if parsed.LineSeq != 7 {
		t.Errorf("Expected LineSeq 7, got %d", parsed.LineSeq)
	}
	if parsed.TrainSeq != 9 {
		t.Errorf("Expected TrainSeq 9, got %d", parsed.TrainSeq)
	}
	if parsed.PassengerSeq != 4 {
		t.Errorf("Expected PassengerSeq 4, got %d", parsed.PassengerSeq)
	}
	if parsed.StationSeq < 2 {
		t.Errorf("Expected StationSeq to cover 2 stations, got %d", parsed.StationSeq)
	}
}

func TestParseState_AddsTheMissingFloorTrain(t *testing.T) {
	s := newTestState()
	sts := placeStations(s, Vertex{X: 2, Y: 2}, Vertex{X: 8, Y: 2})
	completeTestLine(s, "red", false, sts[0].ID, sts[1].ID)

	text, err := SerializeState(s)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	parsed, err := ParseState(text)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	l := parsed.Lines[0]
	if len(l.Trains) != 1 {
		t.Fatalf("Expected the floor train added on load, got %d", len(l.Trains))
	}
	tr := l.Trains[0]
	if tr.CurrentIdx != 0 || tr.Direction != 1 || tr.State != TrainStopped {
		t.Errorf("Expected a fresh train at the line start, got %+v", tr)
	}
	if parsed.TrainSeq != 1 {
		t.Errorf("Expected TrainSeq 1 after the repair, got %d", parsed.TrainSeq)
	}
}

func TestParseState_ParksOutOfRangeTrains(t *testing.T) {
	s := newTestState()
	sts := placeStations(s, Vertex{X: 2, Y: 2}, Vertex{X: 8, Y: 2})
	l := completeTestLine(s, "red", false, sts[0].ID, sts[1].ID)
	tr := addTestTrain(t, s, l)
	tr.CurrentIdx = 11
	tr.TargetIdx = 5
	tr.Progress = 1.7
	tr.Direction = 0
	tr.State = "flying"

	text, err := SerializeState(s)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	parsed, err := ParseState(text)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	got := parsed.Lines[0].Trains[0]
	if got.CurrentIdx != 0 || got.TargetIdx != 1 || got.Direction != 1 {
		t.Errorf("Expected the train parked at the line start, got %+v", got)
	}
	if got.State != TrainStopped || got.Progress != 0 {
		t.Errorf("Expected a stopped train with zero progress, got %+v", got)
	}
	if got.DwellLeft != DefaultTuning().DwellDistance {
		t.Errorf("Expected a full dwell buffer, got %v", got.DwellLeft)
	}
}

func TestParseState_ReconcilesPassengers(t *testing.T) {
	s := newTestState()
	sts := placeStations(s, Vertex{X: 2, Y: 2}, Vertex{X: 8, Y: 2})
	l := completeTestLine(s, "red", false, sts[0].ID, sts[1].ID)
	addTestTrain(t, s, l)

	good := queuePassenger(t, s, sts[0].ID, sts[1].ID)
	// roster entry sitting in no queue or train
	s.newPassenger(sts[0].ID, sts[1].ID, []string{sts[0].ID, sts[1].ID})
	// queued reference with no roster entry
	s.Station(sts[0].ID).Queue = append(s.Station(sts[0].ID).Queue, "p-77")
	// queued passenger whose next stop does not exist
	broken := s.newPassenger(sts[0].ID, "9,9", []string{sts[0].ID, "9,9"})
	s.Station(sts[0].ID).Queue = append(s.Station(sts[0].ID).Queue, broken.ID)

	text, err := SerializeState(s)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	parsed, err := ParseState(text)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if len(parsed.Passengers) != 1 || parsed.Passengers[0].ID != good.ID {
		t.Fatalf("Expected only the well-formed passenger to survive, got %d", len(parsed.Passengers))
	}
	q := parsed.Station(sts[0].ID).Queue
	if len(q) != 1 || q[0] != good.ID {
		t.Errorf("Expected a clean queue, got %v", q)
	}
	if err := ValidatePassengerConsistency(parsed); err != nil {
		t.Errorf("Expected a consistent state after reconciliation, got %v", err)
	}
}

func TestSerializeOmitsTheDraft(t *testing.T) {
	tuning := DefaultTuning()
	s := newTestState()
	sts := placeStations(s, Vertex{X: 2, Y: 2}, Vertex{X: 8, Y: 2})
	lm := NewLineManager(tuning, NewLedger(tuning))
	lm.Start(s, "red", sts[0].ID)

	text, err := SerializeState(s)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if strings.Contains(text, `"red"`) {
		t.Error("Expected the unfinished draft to stay out of the save")
	}

	parsed, err := ParseState(text)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(parsed.Lines) != 0 {
		t.Errorf("Expected no lines after the load, got %d", len(parsed.Lines))
	}
}
