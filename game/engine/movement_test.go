package engine

import (
	"math"
	"testing"
)

func newMovementSystem() *TrainMovement {
	tuning := DefaultTuning()
	ledger := NewLedger(tuning)
	return NewTrainMovement(tuning, ledger, NewPassengerMovement(tuning, ledger))
}

// linearLineState builds a horizontal 4-station line with one train stopped
// at the first station.
func linearLineState(t *testing.T) (*GameState, *MetroLine, *Train) {
	t.Helper()
	s := newTestState()
	sts := placeStations(s,
		Vertex{X: 2, Y: 2},
		Vertex{X: 5, Y: 2},
		Vertex{X: 8, Y: 2},
		Vertex{X: 11, Y: 2},
	)
	l := completeTestLine(s, "red", false, sts[0].ID, sts[1].ID, sts[2].ID, sts[3].ID)
	tr := addTestTrain(t, s, l)
	return s, l, tr
}

func TestTrainMovement_DwellThenMove(t *testing.T) {
	s, _, tr := linearLineState(t)
	tm := newMovementSystem()

	if tr.State != TrainStopped {
		t.Fatalf("Expected new train stopped, got %s", tr.State)
	}
	if tr.DwellLeft != tm.tuning.DwellDistance {
		t.Fatalf("Expected full dwell buffer %v, got %v", tm.tuning.DwellDistance, tr.DwellLeft)
	}

	// dwell drains at train speed; one tick of dwell/speed minutes empties it
	dt := tm.tuning.DwellDistance / tm.tuning.TrainSpeed
	tm.Tick(s, dt)

	if tr.State != TrainMoving {
		t.Errorf("Expected train moving after dwell drained, got %s", tr.State)
	}
	if tr.DwellLeft != 0 {
		t.Errorf("Expected empty dwell buffer, got %v", tr.DwellLeft)
	}
}

func TestTrainMovement_ProgressAdvances(t *testing.T) {
	s, _, tr := linearLineState(t)
	tm := newMovementSystem()

	tr.State = TrainMoving
	tr.DwellLeft = 0

	tm.Tick(s, 0.01)
	if tr.Progress <= 0 {
		t.Errorf("Expected progress to advance, got %v", tr.Progress)
	}
}

func TestTrainMovement_AccelerationRamp(t *testing.T) {
	s, _, tr := linearLineState(t)
	tm := newMovementSystem()

	tr.State = TrainMoving
	tr.DwellLeft = 0

	// departure: the ramp floors at 10% of full speed
	tm.Tick(s, 0.01)
	departureDelta := tr.Progress

	// mid-segment: full speed
	tr.Progress = 0.5
	tm.Tick(s, 0.01)
	midDelta := tr.Progress - 0.5

	if departureDelta >= midDelta {
		t.Errorf("Expected mid-segment step (%v) to beat departure step (%v)", midDelta, departureDelta)
	}
	wantFloor := tm.tuning.TrainSpeed * minSpeedFactor * 0.01 / 3.0
	if math.Abs(departureDelta-wantFloor) > 1e-9 {
		t.Errorf("Expected floored departure step %v, got %v", wantFloor, departureDelta)
	}
}

func TestTrainMovement_ArrivalAndDwell(t *testing.T) {
	s, _, tr := linearLineState(t)
	tm := newMovementSystem()

	tr.State = TrainMoving
	tr.DwellLeft = 0
	tr.Progress = 0.99

	tm.Tick(s, 0.1)

	if tr.State != TrainStopped {
		t.Errorf("Expected train stopped after arrival, got %s", tr.State)
	}
	if tr.CurrentIdx != 1 {
		t.Errorf("Expected train at index 1, got %d", tr.CurrentIdx)
	}
	if tr.TargetIdx != 2 {
		t.Errorf("Expected next target 2, got %d", tr.TargetIdx)
	}
	if tr.Progress != 0 {
		t.Errorf("Expected progress reset to 0, got %v", tr.Progress)
	}
	if tr.DwellLeft != tm.tuning.DwellDistance {
		t.Errorf("Expected dwell buffer refilled to %v, got %v", tm.tuning.DwellDistance, tr.DwellLeft)
	}
}

func TestTrainMovement_LinearReversalAtEnd(t *testing.T) {
	s, _, tr := linearLineState(t)
	tm := newMovementSystem()

	// approaching the last station
	tr.State = TrainMoving
	tr.DwellLeft = 0
	tr.CurrentIdx = 2
	tr.TargetIdx = 3
	tr.Direction = 1
	tr.Progress = 0.99
	tr.invalidateSegment()

	tm.Tick(s, 0.1)

	if tr.CurrentIdx != 3 {
		t.Fatalf("Expected arrival at index 3, got %d", tr.CurrentIdx)
	}
	if tr.Direction != -1 {
		t.Errorf("Expected direction flipped to -1 at the line end, got %d", tr.Direction)
	}
	if tr.TargetIdx != 2 {
		t.Errorf("Expected target index 2 after reversal, got %d", tr.TargetIdx)
	}
}

func TestTrainMovement_LinearReversalAtStart(t *testing.T) {
	s, _, tr := linearLineState(t)
	tm := newMovementSystem()

	tr.State = TrainMoving
	tr.DwellLeft = 0
	tr.CurrentIdx = 1
	tr.TargetIdx = 0
	tr.Direction = -1
	tr.Progress = 0.99
	tr.invalidateSegment()

	tm.Tick(s, 0.1)

	if tr.CurrentIdx != 0 {
		t.Fatalf("Expected arrival at index 0, got %d", tr.CurrentIdx)
	}
	if tr.Direction != 1 {
		t.Errorf("Expected direction flipped to +1 at the line start, got %d", tr.Direction)
	}
	if tr.TargetIdx != 1 {
		t.Errorf("Expected target index 1 after reversal, got %d", tr.TargetIdx)
	}
}

func TestTrainMovement_LoopWrapsWithoutReversing(t *testing.T) {
	s := newTestState()
	sts := placeStations(s,
		Vertex{X: 2, Y: 2},
		Vertex{X: 8, Y: 2},
		Vertex{X: 8, Y: 8},
	)
	l := completeTestLine(s, "blue", true, sts[0].ID, sts[1].ID, sts[2].ID)
	tr := addTestTrain(t, s, l)
	tm := newMovementSystem()

	tr.State = TrainMoving
	tr.DwellLeft = 0
	tr.CurrentIdx = 2
	tr.TargetIdx = 0
	tr.Direction = 1
	tr.Progress = 0.99
	tr.invalidateSegment()

	tm.Tick(s, 0.1)

	if tr.CurrentIdx != 0 {
		t.Fatalf("Expected wrap arrival at index 0, got %d", tr.CurrentIdx)
	}
	if tr.Direction != 1 {
		t.Errorf("Expected direction unchanged on a loop, got %d", tr.Direction)
	}
	if tr.TargetIdx != 1 {
		t.Errorf("Expected next target 1, got %d", tr.TargetIdx)
	}
}

func TestTrainSegment_CanonicalPathReversed(t *testing.T) {
	s, l, tr := linearLineState(t)

	// same segment, both travel directions
	tr.CurrentIdx, tr.TargetIdx = 1, 2
	forward, _ := trainSegment(s, l, tr)

	tr.invalidateSegment()
	tr.CurrentIdx, tr.TargetIdx = 2, 1
	backward, _ := trainSegment(s, l, tr)

	if len(forward) != len(backward) {
		t.Fatalf("Expected same waypoint count, got %d and %d", len(forward), len(backward))
	}
	for i := range forward {
		if forward[i] != backward[len(backward)-1-i] {
			t.Errorf("Waypoint %d: forward %v does not mirror backward %v", i, forward[i], backward[len(backward)-1-i])
		}
	}
}

func TestTrainMovement_ChargesRunningCost(t *testing.T) {
	s, _, tr := linearLineState(t)
	tm := newMovementSystem()

	tr.State = TrainMoving
	tr.DwellLeft = 0
	tr.Progress = 0.5

	before := s.Money
	tm.Tick(s, 0.01)
	step := tm.tuning.TrainSpeed * 0.01
	want := before - step*tm.tuning.RunningCostPerUnit
	if math.Abs(s.Money-want) > 1e-9 {
		t.Errorf("Expected money %v after travel, got %v", want, s.Money)
	}
}

func TestTrainMovement_SkipsUnresolvableSegment(t *testing.T) {
	s, _, tr := linearLineState(t)
	tm := newMovementSystem()

	tr.State = TrainMoving
	tr.DwellLeft = 0
	tr.CurrentIdx = 0
	tr.TargetIdx = 2 // not an adjacent index on a linear line
	tr.invalidateSegment()

	// must log and skip, not panic or advance
	tm.Tick(s, 0.1)
	if tr.Progress != 0 {
		t.Errorf("Expected no progress on an unresolvable segment, got %v", tr.Progress)
	}
}

func TestTrainWorldPosition_StoppedAtStation(t *testing.T) {
	s, l, tr := linearLineState(t)

	x, y := TrainWorldPosition(s, l, tr)
	if x != 2 || y != 2 {
		t.Errorf("Expected stopped train at station (2,2), got (%v,%v)", x, y)
	}
}

func TestTrainWorldPosition_Interpolates(t *testing.T) {
	s, l, tr := linearLineState(t)

	tr.State = TrainMoving
	tr.Progress = 0.5

	// halfway along the straight 3-unit segment from (2,2) to (5,2)
	x, y := TrainWorldPosition(s, l, tr)
	if math.Abs(x-3.5) > 1e-9 || math.Abs(y-2) > 1e-9 {
		t.Errorf("Expected position (3.5,2), got (%v,%v)", x, y)
	}
}
