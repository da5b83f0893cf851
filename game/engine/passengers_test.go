package engine

import (
	"math"
	"testing"
)

// twoStationRide builds an A-B line with a stopped train at A and a routed
// passenger waiting there for B.
func twoStationRide(t *testing.T) (*GameState, *MetroLine, *Train, *Passenger) {
	t.Helper()
	s := newTestState()
	sts := placeStations(s, Vertex{X: 2, Y: 2}, Vertex{X: 6, Y: 2})
	l := completeTestLine(s, "red", false, sts[0].ID, sts[1].ID)
	tr := addTestTrain(t, s, l)
	p := queuePassenger(t, s, sts[0].ID, sts[1].ID)
	return s, l, tr, p
}

func TestBoardAt_TakesWaitingPassenger(t *testing.T) {
	s, l, tr, p := twoStationRide(t)
	tuning := DefaultTuning()
	pm := NewPassengerMovement(tuning, NewLedger(tuning))

	st := s.Station(p.Origin)
	pm.BoardAt(s, l, tr, st)

	if len(tr.Passengers) != 1 || tr.Passengers[0] != p.ID {
		t.Errorf("Expected passenger on the train, got %v", tr.Passengers)
	}
	if len(st.Queue) != 0 {
		t.Errorf("Expected empty queue after boarding, got %v", st.Queue)
	}
}

func TestFareCreditedOnCompletedJourney(t *testing.T) {
	s, l, tr, p := twoStationRide(t)
	tuning := DefaultTuning()
	ledger := NewLedger(tuning)
	pm := NewPassengerMovement(tuning, ledger)

	origin := s.Station(p.Origin)
	pm.BoardAt(s, l, tr, origin)

	// simulate the train arriving at B
	tr.CurrentIdx = 1
	dest := s.Station(p.Destination)
	before := s.Money
	pm.AlightAt(s, tr, dest)

	if math.Abs(s.Money-(before+tuning.Fare)) > 1e-9 {
		t.Errorf("Expected money %v after fare, got %v", before+tuning.Fare, s.Money)
	}
	if s.Passenger(p.ID) != nil {
		t.Error("Expected completed passenger removed from the roster")
	}
	if len(tr.Passengers) != 0 {
		t.Errorf("Expected empty train, got %v", tr.Passengers)
	}
	for _, st := range s.Stations {
		for _, pid := range st.Queue {
			if pid == p.ID {
				t.Errorf("Completed passenger still queued at %s", st.ID)
			}
		}
	}
}

func TestAlightAt_IntermediateTransfer(t *testing.T) {
	s := newTestState()
	sts := placeStations(s,
		Vertex{X: 2, Y: 2},
		Vertex{X: 6, Y: 2},
		Vertex{X: 6, Y: 6},
	)
	red := completeTestLine(s, "red", false, sts[0].ID, sts[1].ID)
	completeTestLine(s, "blue", false, sts[1].ID, sts[2].ID)
	tr := addTestTrain(t, s, red)

	tuning := DefaultTuning()
	pm := NewPassengerMovement(tuning, NewLedger(tuning))

	p := queuePassenger(t, s, sts[0].ID, sts[1].ID, sts[2].ID)
	pm.BoardAt(s, red, tr, s.Station(sts[0].ID))

	tr.CurrentIdx = 1
	before := s.Money
	pm.AlightAt(s, tr, s.Station(sts[1].ID))

	if s.Money != before {
		t.Error("Expected no fare for an intermediate transfer")
	}
	if s.Passenger(p.ID) == nil {
		t.Fatal("Expected transferring passenger to stay in the roster")
	}
	if p.NextWaypoint != 2 {
		t.Errorf("Expected waypoint advanced to 2, got %d", p.NextWaypoint)
	}
	transfer := s.Station(sts[1].ID)
	if len(transfer.Queue) != 1 || transfer.Queue[0] != p.ID {
		t.Errorf("Expected passenger re-queued at the transfer station, got %v", transfer.Queue)
	}
	if len(tr.Passengers) != 0 {
		t.Errorf("Expected passenger off the train, got %v", tr.Passengers)
	}
}

func TestAlightAt_KeepsRidersBoundElsewhere(t *testing.T) {
	s := newTestState()
	sts := placeStations(s,
		Vertex{X: 2, Y: 2},
		Vertex{X: 6, Y: 2},
		Vertex{X: 10, Y: 2},
	)
	l := completeTestLine(s, "red", false, sts[0].ID, sts[1].ID, sts[2].ID)
	tr := addTestTrain(t, s, l)

	tuning := DefaultTuning()
	pm := NewPassengerMovement(tuning, NewLedger(tuning))

	// rider headed for the last station must stay on at the middle one
	p := queuePassenger(t, s, sts[0].ID, sts[2].ID)
	pm.BoardAt(s, l, tr, s.Station(sts[0].ID))

	tr.CurrentIdx = 1
	pm.AlightAt(s, tr, s.Station(sts[1].ID))

	if len(tr.Passengers) != 1 || tr.Passengers[0] != p.ID {
		t.Errorf("Expected rider still on the train, got %v", tr.Passengers)
	}
}

func TestBoardAt_RespectsCapacity(t *testing.T) {
	s, l, tr, _ := twoStationRide(t)
	tuning := DefaultTuning()
	pm := NewPassengerMovement(tuning, NewLedger(tuning))
	st := s.Station(l.Stations[0])

	// fill the platform well past capacity
	for i := 0; i < tuning.TrainCapacity+3; i++ {
		queuePassenger(t, s, l.Stations[0], l.Stations[1])
	}

	pm.BoardAt(s, l, tr, st)

	if len(tr.Passengers) != tuning.TrainCapacity {
		t.Errorf("Expected %d riders at capacity, got %d", tuning.TrainCapacity, len(tr.Passengers))
	}
	// 1 from the fixture plus 3 over capacity stay behind
	if len(st.Queue) != 4 {
		t.Errorf("Expected 4 passengers left waiting, got %d", len(st.Queue))
	}
}

func TestShouldBoard_DirectionOnLinearLine(t *testing.T) {
	s := newTestState()
	sts := placeStations(s,
		Vertex{X: 2, Y: 2},
		Vertex{X: 6, Y: 2},
		Vertex{X: 10, Y: 2},
	)
	l := completeTestLine(s, "red", false, sts[0].ID, sts[1].ID, sts[2].ID)
	tr := addTestTrain(t, s, l)
	tuning := DefaultTuning()
	pm := NewPassengerMovement(tuning, NewLedger(tuning))

	// train sits at the middle station heading up the line
	tr.CurrentIdx = 1
	tr.Direction = 1

	toLast := queuePassenger(t, s, sts[1].ID, sts[2].ID)
	toFirst := queuePassenger(t, s, sts[1].ID, sts[0].ID)

	if !pm.shouldBoard(l, tr, toLast) {
		t.Error("Expected passenger heading up the line to board")
	}
	if pm.shouldBoard(l, tr, toFirst) {
		t.Error("Expected passenger heading down the line to wait")
	}

	tr.Direction = -1
	if pm.shouldBoard(l, tr, toLast) {
		t.Error("Expected passenger heading up the line to wait for a reversed train")
	}
	if !pm.shouldBoard(l, tr, toFirst) {
		t.Error("Expected passenger heading down the line to board the reversed train")
	}
}

func TestShouldBoard_LoopServesBothDirections(t *testing.T) {
	s := newTestState()
	sts := placeStations(s,
		Vertex{X: 2, Y: 2},
		Vertex{X: 8, Y: 2},
		Vertex{X: 8, Y: 8},
	)
	l := completeTestLine(s, "blue", true, sts[0].ID, sts[1].ID, sts[2].ID)
	tr := addTestTrain(t, s, l)
	tuning := DefaultTuning()
	pm := NewPassengerMovement(tuning, NewLedger(tuning))

	tr.CurrentIdx = 0
	p := queuePassenger(t, s, sts[0].ID, sts[2].ID)

	tr.Direction = 1
	if !pm.shouldBoard(l, tr, p) {
		t.Error("Expected loop passenger to board the forward train")
	}
	tr.Direction = -1
	if !pm.shouldBoard(l, tr, p) {
		t.Error("Expected loop passenger to board the backward train too")
	}
}

func TestShouldBoard_RejectsUnservedWaypoint(t *testing.T) {
	s := newTestState()
	sts := placeStations(s,
		Vertex{X: 2, Y: 2},
		Vertex{X: 6, Y: 2},
		Vertex{X: 10, Y: 2},
	)
	red := completeTestLine(s, "red", false, sts[0].ID, sts[1].ID)
	tr := addTestTrain(t, s, red)
	tuning := DefaultTuning()
	pm := NewPassengerMovement(tuning, NewLedger(tuning))

	// next waypoint is a station the red line does not serve
	p := queuePassenger(t, s, sts[0].ID, sts[2].ID)
	if pm.shouldBoard(red, tr, p) {
		t.Error("Expected passenger not to board a line missing their next stop")
	}
}

func TestValidatePassengerConsistency(t *testing.T) {
	s, l, tr, p := twoStationRide(t)
	if err := ValidatePassengerConsistency(s); err != nil {
		t.Errorf("Expected consistent state, got %v", err)
	}

	// same passenger both queued and riding
	tr.Passengers = append(tr.Passengers, p.ID)
	if err := ValidatePassengerConsistency(s); err == nil {
		t.Error("Expected duplicate placement to be detected")
	}
	tr.Passengers = nil

	// roster entry placed nowhere
	s.Station(p.Origin).Queue = nil
	if err := ValidatePassengerConsistency(s); err == nil {
		t.Error("Expected unplaced roster passenger to be detected")
	}

	// ghost reference without a roster entry
	s.Station(p.Origin).Queue = []string{p.ID, "p-999"}
	if err := ValidatePassengerConsistency(s); err == nil {
		t.Error("Expected ghost reference to be detected")
	}
	_ = l
}
