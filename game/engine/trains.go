package engine

import (
	"fmt"
	"log"
)

// TrainManager validates and applies adding and removing trains. Every line
// runs between one and MaxTrainsPerLine trains.
type TrainManager struct {
	tuning *Tuning
}

// NewTrainManager creates the train rules for the given tuning.
func NewTrainManager(t *Tuning) *TrainManager {
	return &TrainManager{tuning: t}
}

// startPlacement returns the start index and direction for the nth train
// (1-based) on a line with the given station count. The first train runs
// forward from the start, the second backward from the end, later trains
// start mid-line alternating direction, so added trains space out
// immediately.
func startPlacement(ordinal, stationCount int) (int, int) {
	switch {
	case ordinal == 1:
		return 0, 1
	case ordinal == 2:
		return stationCount - 1, -1
	default:
		dir := 1
		if ordinal%2 == 0 {
			dir = -1
		}
		return stationCount / 2, dir
	}
}

// initialTarget resolves the first target index for a train standing at idx
// heading dir. Loop lines wrap; linear lines flip the direction at the ends.
func initialTarget(l *MetroLine, idx, dir int) (int, int) {
	n := len(l.Stations)
	if l.Loop {
		return mod(idx+dir, n), dir
	}
	next := idx + dir
	if next < 0 || next >= n {
		dir = -dir
		next = idx + dir
	}
	return next, dir
}

// newTrainOn constructs the next train for a line and appends it. The train
// starts stopped at its ordinal's placement station with a full dwell
// buffer. Callers validate the cap first.
func newTrainOn(s *GameState, l *MetroLine, dwell float64) *Train {
	idx, dir := startPlacement(len(l.Trains)+1, len(l.Stations))
	target, dir := initialTarget(l, idx, dir)

	s.TrainSeq++
	t := &Train{
		ID:         fmt.Sprintf("train-%d", s.TrainSeq),
		LineID:     l.ID,
		State:      TrainStopped,
		CurrentIdx: idx,
		TargetIdx:  target,
		Direction:  dir,
		DwellLeft:  dwell,
		Passengers: []string{},
	}
	t.invalidateSegment()
	l.Trains = append(l.Trains, t)
	return t
}

// Add puts a new train on the line, subject to the per-line cap.
func (tm *TrainManager) Add(s *GameState, lineID string) Result {
	l := s.Line(lineID)
	if l == nil {
		return failResult("train validation: no line with id %s", lineID)
	}
	if len(l.Trains) >= tm.tuning.MaxTrainsPerLine {
		return failResult("train validation: line %s already runs the maximum of %d trains", l.Color, tm.tuning.MaxTrainsPerLine)
	}
	return okResult(newTrainOn(s, l, tm.tuning.DwellDistance))
}

// Remove takes a train off its line, keeping the one-train floor. Riders are
// put back in the queue of the station the train last stopped at so they can
// catch the next train; their routes stay valid because lines never change.
func (tm *TrainManager) Remove(s *GameState, trainID string) Result {
	t, l := s.Train(trainID)
	if t == nil {
		return failResult("train validation: no train with id %s", trainID)
	}
	if len(l.Trains) <= 1 {
		return failResult("train validation: line %s must keep at least one train", l.Color)
	}

	if len(t.Passengers) > 0 {
		st := s.Station(l.Stations[t.CurrentIdx])
		if st != nil {
			st.Queue = append(st.Queue, t.Passengers...)
		} else {
			log.Printf("train %s: station %s missing on removal, dropping %d riders",
				t.ID, l.Stations[t.CurrentIdx], len(t.Passengers))
			for _, pid := range t.Passengers {
				s.removePassenger(pid)
			}
		}
	}

	for i, other := range l.Trains {
		if other.ID == trainID {
			l.Trains = append(l.Trains[:i], l.Trains[i+1:]...)
			break
		}
	}
	return okResult(nil)
}
