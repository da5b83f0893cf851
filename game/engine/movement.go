package engine

import "log"

const (
	// minSpeedFactor floors the accel/decel ramp so a train parked exactly on
	// a station edge still makes progress.
	minSpeedFactor = 0.1
)

// TrainMovement advances every train along its line each tick. Trains run a
// two-state machine: STOPPED counts a dwell buffer down in distance units,
// MOVING advances the 0..1 progress fraction along the cached segment with
// linear acceleration and deceleration ramps near the stations.
type TrainMovement struct {
	tuning     *Tuning
	ledger     *Ledger
	passengers *PassengerMovement
}

// NewTrainMovement wires the movement system to the ledger and the
// boarding/alighting rules.
func NewTrainMovement(t *Tuning, ledger *Ledger, passengers *PassengerMovement) *TrainMovement {
	return &TrainMovement{tuning: t, ledger: ledger, passengers: passengers}
}

// Tick advances all trains by dt simulation minutes. A train whose line or
// station lookup fails is logged and skipped for this tick rather than
// aborting the whole update.
func (tm *TrainMovement) Tick(s *GameState, dt float64) {
	for _, line := range s.Lines {
		if len(line.Stations) < 2 {
			continue
		}
		for _, t := range line.Trains {
			tm.advance(s, line, t, dt)
		}
	}
}

func (tm *TrainMovement) advance(s *GameState, line *MetroLine, t *Train, dt float64) {
	if t.State == TrainStopped {
		// dwell is expressed in distance units so it scales with speed
		t.DwellLeft -= tm.tuning.TrainSpeed * dt
		if t.DwellLeft <= 0 {
			t.DwellLeft = 0
			t.State = TrainMoving
		}
		return
	}

	seg, segLen := trainSegment(s, line, t)
	if seg == nil {
		log.Printf("train %s: cannot resolve segment %d->%d on line %s, skipping tick",
			t.ID, t.CurrentIdx, t.TargetIdx, line.ID)
		return
	}
	if segLen == 0 {
		// degenerate single-waypoint segment: arrive immediately
		tm.arrive(s, line, t)
		return
	}

	distFromStart := t.Progress * segLen
	distToEnd := segLen - distFromStart
	ramp := min(distFromStart, distToEnd) / tm.tuning.AccelDistance
	factor := clampF(ramp, minSpeedFactor, 1)

	step := tm.tuning.TrainSpeed * factor * dt
	tm.ledger.ChargeTravel(s, min(step, distToEnd))

	t.Progress += step / segLen
	if t.Progress >= 1 {
		tm.arrive(s, line, t)
	}
}

// arrive snaps the train onto its target station, starts the dwell, picks the
// next target (modulo wraparound on loops, direction reversal at the ends of
// linear lines), then runs alighting before boarding and drops the stale
// segment cache.
func (tm *TrainMovement) arrive(s *GameState, line *MetroLine, t *Train) {
	n := len(line.Stations)

	t.Progress = 0
	t.CurrentIdx = t.TargetIdx
	t.State = TrainStopped
	t.DwellLeft = tm.tuning.DwellDistance

	if line.Loop {
		t.TargetIdx = mod(t.CurrentIdx+t.Direction, n)
	} else {
		if t.CurrentIdx >= n-1 && t.Direction > 0 {
			t.Direction = -1
		} else if t.CurrentIdx <= 0 && t.Direction < 0 {
			t.Direction = 1
		}
		t.TargetIdx = clampI(t.CurrentIdx+t.Direction, 0, n-1)
	}

	st := s.Station(line.Stations[t.CurrentIdx])
	if st == nil {
		log.Printf("train %s: station %s missing at arrival, skipping passenger exchange",
			t.ID, line.Stations[t.CurrentIdx])
	} else {
		// alighting always precedes boarding
		tm.passengers.AlightAt(s, t, st)
		tm.passengers.BoardAt(s, line, t, st)
	}

	t.invalidateSegment()
}

// trainSegment resolves the train's current segment in travel order. The
// path is always computed in the canonical increasing-index direction from
// the line's as-built paths, then reversed when the train travels the other
// way, so a train's route is bit-identical to the line's drawn shape in both
// directions.
func trainSegment(s *GameState, line *MetroLine, t *Train) ([]Vertex, float64) {
	key := [2]int{t.CurrentIdx, t.TargetIdx}
	if t.seg != nil && t.segKey == key {
		return t.seg, t.segLen
	}

	n := len(line.Stations)
	if n < 2 || t.CurrentIdx < 0 || t.CurrentIdx >= n || t.TargetIdx < 0 || t.TargetIdx >= n {
		return nil, 0
	}

	segIdx := -1
	reversed := false
	switch {
	case t.TargetIdx == t.CurrentIdx+1:
		segIdx = t.CurrentIdx
	case t.TargetIdx == t.CurrentIdx-1:
		segIdx = t.TargetIdx
		reversed = true
	case line.Loop && t.CurrentIdx == n-1 && t.TargetIdx == 0:
		segIdx = n - 1
	case line.Loop && t.CurrentIdx == 0 && t.TargetIdx == n-1:
		segIdx = n - 1
		reversed = true
	default:
		return nil, 0
	}

	path := SegmentPath(s, line, segIdx)
	if path == nil {
		return nil, 0
	}
	if reversed {
		path = reversePath(path)
	}

	t.seg = path
	t.segLen = PathLength(path)
	t.segKey = key
	return t.seg, t.segLen
}

// TrainWorldPosition interpolates a train's position in grid coordinates
// along its cached segment. Renderer snapshots consume this; the simulation
// itself only needs the progress fraction.
func TrainWorldPosition(s *GameState, line *MetroLine, t *Train) (float64, float64) {
	seg, segLen := trainSegment(s, line, t)
	if seg == nil || len(seg) == 0 {
		return 0, 0
	}
	if segLen == 0 || (t.State == TrainStopped && t.Progress == 0) {
		v := seg[0]
		return float64(v.X), float64(v.Y)
	}

	remaining := clampF(t.Progress, 0, 1) * segLen
	for i := 1; i < len(seg); i++ {
		a, b := seg[i-1], seg[i]
		leg := EuclideanDistance(a, b)
		if leg <= 0 {
			continue
		}
		if remaining <= leg {
			f := remaining / leg
			return float64(a.X) + f*float64(b.X-a.X), float64(a.Y) + f*float64(b.Y-a.Y)
		}
		remaining -= leg
	}
	last := seg[len(seg)-1]
	return float64(last.X), float64(last.Y)
}
