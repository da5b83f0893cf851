package engine

import (
	"fmt"
	"log"
)

// PassengerMovement implements the boarding and alighting rules applied when
// a train stops at a station. Alighting always runs before boarding so a
// freed seat is available in the same stop.
type PassengerMovement struct {
	tuning *Tuning
	ledger *Ledger
}

// NewPassengerMovement wires the passenger rules to the ledger.
func NewPassengerMovement(t *Tuning, ledger *Ledger) *PassengerMovement {
	return &PassengerMovement{tuning: t, ledger: ledger}
}

// AlightAt lets every rider whose next waypoint is the arrived station leave
// the train. Reaching the final waypoint completes the journey: the fare is
// credited and the passenger disappears from every collection. Intermediate
// waypoints re-queue the passenger at the station with the waypoint index
// advanced.
func (pm *PassengerMovement) AlightAt(s *GameState, t *Train, st *Station) {
	kept := t.Passengers[:0]
	for _, pid := range t.Passengers {
		p := s.Passenger(pid)
		if p == nil {
			log.Printf("train %s: rider %s missing from roster, dropping", t.ID, pid)
			continue
		}
		if p.NextStop() != st.ID {
			kept = append(kept, pid)
			continue
		}
		if p.AtFinalStop() {
			pm.ledger.CreditFare(s)
			s.removePassenger(pid)
			continue
		}
		p.NextWaypoint++
		st.Queue = append(st.Queue, pid)
	}
	t.Passengers = kept
}

// BoardAt moves waiting passengers onto the train, in queue order, while
// capacity remains. A passenger boards iff this train's line serves their
// next waypoint and the train is heading toward it.
func (pm *PassengerMovement) BoardAt(s *GameState, line *MetroLine, t *Train, st *Station) {
	kept := st.Queue[:0]
	for i, pid := range st.Queue {
		if len(t.Passengers) >= pm.tuning.TrainCapacity {
			kept = append(kept, st.Queue[i:]...)
			break
		}
		p := s.Passenger(pid)
		if p == nil {
			log.Printf("station %s: queued passenger %s missing from roster, dropping", st.ID, pid)
			continue
		}
		if pm.shouldBoard(line, t, p) {
			t.Passengers = append(t.Passengers, pid)
			continue
		}
		kept = append(kept, pid)
	}
	st.Queue = kept
}

// shouldBoard decides whether a waiting passenger takes this train. The line
// must serve the passenger's next waypoint, and the train must be moving
// toward it: on a loop every served station is eventually reached in either
// direction, on a linear line the index difference must match the train's
// direction.
func (pm *PassengerMovement) shouldBoard(line *MetroLine, t *Train, p *Passenger) bool {
	next := p.NextStop()
	if next == "" {
		return false
	}
	nextIdx := line.StationIndex(next)
	if nextIdx < 0 {
		return false
	}
	if line.Loop {
		return nextIdx != t.CurrentIdx
	}
	return (nextIdx-t.CurrentIdx)*t.Direction > 0
}

// ValidatePassengerConsistency checks the conservation invariant: every
// roster passenger sits in exactly one station queue or train, and every
// queued or riding id exists in the roster. Tests call this at tick
// boundaries.
func ValidatePassengerConsistency(s *GameState) error {
	locations := make(map[string]int)
	for _, st := range s.Stations {
		for _, pid := range st.Queue {
			locations[pid]++
		}
	}
	for _, l := range s.Lines {
		for _, t := range l.Trains {
			for _, pid := range t.Passengers {
				locations[pid]++
			}
		}
	}

	inRoster := make(map[string]bool, len(s.Passengers))
	for _, p := range s.Passengers {
		if inRoster[p.ID] {
			return fmt.Errorf("passenger %s appears twice in the roster", p.ID)
		}
		inRoster[p.ID] = true
		switch locations[p.ID] {
		case 0:
			return fmt.Errorf("passenger %s is in the roster but in no queue or train", p.ID)
		case 1:
			// exactly one location, as required
		default:
			return fmt.Errorf("passenger %s is in %d locations", p.ID, locations[p.ID])
		}
	}

	for pid := range locations {
		if !inRoster[pid] {
			return fmt.Errorf("passenger %s is queued or riding but not in the roster", pid)
		}
	}
	return nil
}
