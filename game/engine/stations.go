package engine

// vertexNeighbors4 are the 4-connected vertex offsets used by the minimum
// spacing rule.
var vertexNeighbors4 = [4]Vertex{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}

// StationManager validates and applies station placement and removal. All
// rule violations come back as failed Results, never as errors or panics.
type StationManager struct {
	tuning *Tuning
	ledger *Ledger
	lines  *LineManager
}

// NewStationManager wires the station rules to the ledger and the line
// manager, which is consulted so a station cannot be removed out from under
// an in-progress line.
func NewStationManager(t *Tuning, ledger *Ledger, lines *LineManager) *StationManager {
	return &StationManager{tuning: t, ledger: ledger, lines: lines}
}

// Place validates the vertex and creates a station there. The vertex must be
// in bounds, touch at least one land tile, and be neither occupied nor
// 4-adjacent to another station. Placement always charges the station cost;
// money is allowed to go negative.
func (sm *StationManager) Place(s *GameState, x, y int) Result {
	v := Vertex{X: x, Y: y}
	if !s.Map.VertexInBounds(v) {
		return failResult("station validation: vertex (%d,%d) is out of bounds", x, y)
	}
	if s.Map.VertexOnWater(v) {
		return failResult("station validation: vertex (%d,%d) is on water", x, y)
	}
	if existing := s.StationAt(v); existing != nil {
		return failResult("station validation: station %s already exists at (%d,%d)", existing.Label, x, y)
	}
	for _, d := range vertexNeighbors4 {
		n := Vertex{X: v.X + d.X, Y: v.Y + d.Y}
		if near := s.StationAt(n); near != nil {
			return failResult("station validation: too close to station %s at (%d,%d)", near.Label, n.X, n.Y)
		}
	}

	st := s.addStation(v)
	sm.ledger.ChargeStation(s)
	return okResult(st)
}

// Remove deletes a station no line references. Passengers still queued there
// are discarded along with it.
func (sm *StationManager) Remove(s *GameState, id string) Result {
	st := s.Station(id)
	if st == nil {
		return failResult("station validation: no station with id %s", id)
	}
	if s.LineUsesStation(id) {
		return failResult("station validation: station %s is served by a line", st.Label)
	}
	if sm.lines != nil && sm.lines.DraftUses(id) {
		return failResult("station validation: station %s is part of the line being drawn", st.Label)
	}
	s.removeStation(id)
	return okResult(nil)
}
