package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// TileType represents the terrain of a single map tile
type TileType string

const (
	TileLand  TileType = "land"
	TileWater TileType = "water"
)

// TerrainKind selects the overall shape of a generated map
type TerrainKind string

const (
	TerrainRiver       TerrainKind = "river"
	TerrainArchipelago TerrainKind = "archipelago"
)

// TrainState represents a train's runtime state
type TrainState string

const (
	TrainMoving  TrainState = "moving"
	TrainStopped TrainState = "stopped"
)

const (
	// Validation constants
	MinMapSize = 10
	MaxMapSize = 200
	MinDensity = 0
	MaxDensity = 99

	// Speed multipliers accepted by SET_SPEED
	SpeedNormal = 1
	SpeedDouble = 2
	SpeedQuad   = 4

	WebSocketBufferSize = 256
)

// Tile is one grid square: terrain type plus the two demand density fields
type Tile struct {
	Type        TileType `json:"type"`
	Residential int      `json:"residential"`
	Office      int      `json:"office"`
}

// Vertex is an integer grid-intersection point where a station may be placed.
// A vertex at (x,y) touches up to four tiles: (x-1,y-1), (x,y-1), (x-1,y)
// and (x,y).
type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Key returns the canonical string form of the vertex, which doubles as the
// station id for a station placed there.
func (v Vertex) Key() string {
	return fmt.Sprintf("%d,%d", v.X, v.Y)
}

// ParseVertexKey parses a "x,y" key back into a Vertex.
func ParseVertexKey(key string) (Vertex, bool) {
	parts := strings.SplitN(key, ",", 2)
	if len(parts) != 2 {
		return Vertex{}, false
	}
	x, err1 := strconv.Atoi(parts[0])
	y, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return Vertex{}, false
	}
	return Vertex{X: x, Y: y}, true
}

// MapGrid is the generated world: a width × height tile matrix. It is
// generated once per seed and never mutated afterward.
type MapGrid struct {
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Seed    int64       `json:"seed"`
	Terrain TerrainKind `json:"terrain"`
	Tiles   [][]Tile    `json:"tiles"` // row-major: Tiles[y][x]
}

// InBounds reports whether tile coordinates lie inside the grid.
func (m *MapGrid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// TileAt returns the tile at (x,y), or nil when out of bounds.
func (m *MapGrid) TileAt(x, y int) *Tile {
	if !m.InBounds(x, y) {
		return nil
	}
	return &m.Tiles[y][x]
}

// IsLand reports whether (x,y) is an in-bounds land tile.
func (m *MapGrid) IsLand(x, y int) bool {
	t := m.TileAt(x, y)
	return t != nil && t.Type == TileLand
}

// IsWater reports whether (x,y) is an in-bounds water tile.
func (m *MapGrid) IsWater(x, y int) bool {
	t := m.TileAt(x, y)
	return t != nil && t.Type == TileWater
}

// LandRatio returns the fraction of tiles that are land.
func (m *MapGrid) LandRatio() float64 {
	if m.Width == 0 || m.Height == 0 {
		return 0
	}
	land := 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Tiles[y][x].Type == TileLand {
				land++
			}
		}
	}
	return float64(land) / float64(m.Width*m.Height)
}

// VertexInBounds reports whether a vertex lies on the grid. Vertices run
// 0..Width and 0..Height inclusive (one more than tile coordinates).
func (m *MapGrid) VertexInBounds(v Vertex) bool {
	return v.X >= 0 && v.Y >= 0 && v.X <= m.Width && v.Y <= m.Height
}

// VertexOnWater reports whether all four tiles touching the vertex are water.
// Out-of-bounds tiles count as water, so an edge vertex is buildable as long
// as at least one of its in-bounds tiles is land.
func (m *MapGrid) VertexOnWater(v Vertex) bool {
	for _, d := range [4][2]int{{-1, -1}, {0, -1}, {-1, 0}, {0, 0}} {
		if m.IsLand(v.X+d[0], v.Y+d[1]) {
			return false
		}
	}
	return true
}

// Station is a stop placed at a vertex. Its id is derived from the vertex
// ("x,y"), so identity and position are inseparable. Queue holds the ids of
// waiting passengers in boarding order.
type Station struct {
	ID    string   `json:"id"`
	V     Vertex   `json:"vertex"`
	Label string   `json:"label"`
	Queue []string `json:"queue"`
}

// MetroLine is a completed or in-progress transit line. Stations is the
// ordered station-id sequence; for loop lines the sequence is stored without
// the duplicate closing entry and Loop is set instead. Once completed the
// sequence never changes; only Trains and train runtime fields do.
type MetroLine struct {
	ID       string   `json:"id"`
	Color    string   `json:"color"`
	Stations []string `json:"stations"`
	Loop     bool     `json:"loop"`
	Trains   []*Train `json:"trains"`

	// as-built segment paths, computed lazily and valid for the line's
	// lifetime because the station sequence is immutable once completed
	segPaths [][]Vertex
}

// StationIndex returns the position of a station id in the line's sequence,
// or -1 when the line does not serve it.
func (l *MetroLine) StationIndex(id string) int {
	for i, sid := range l.Stations {
		if sid == id {
			return i
		}
	}
	return -1
}

// SegmentCount returns the number of travel segments: n-1 for a linear line,
// n for a loop (including the wrap-around segment).
func (l *MetroLine) SegmentCount() int {
	n := len(l.Stations)
	if n < 2 {
		return 0
	}
	if l.Loop {
		return n
	}
	return n - 1
}

// Train runs along exactly one line, referenced by id rather than pointer.
// CurrentIdx/TargetIdx are indices into the line's station sequence,
// Progress is the 0..1 fraction along the cached segment and DwellLeft is
// the remaining stop time expressed in distance units.
type Train struct {
	ID         string     `json:"id"`
	LineID     string     `json:"line_id"`
	State      TrainState `json:"state"`
	CurrentIdx int        `json:"current_idx"`
	TargetIdx  int        `json:"target_idx"`
	Progress   float64    `json:"progress"`
	Direction  int        `json:"direction"`
	DwellLeft  float64    `json:"dwell_left"`
	Passengers []string   `json:"passengers"`

	// cached current segment, keyed by (CurrentIdx, TargetIdx)
	seg    []Vertex
	segLen float64
	segKey [2]int
}

func (t *Train) invalidateSegment() {
	t.seg = nil
	t.segLen = 0
	t.segKey = [2]int{-1, -1}
}

// Passenger is a rider with a resolved multi-hop route. NextWaypoint indexes
// Waypoints; a passenger is in exactly one of a station queue, a train, or
// removed on journey completion.
type Passenger struct {
	ID           string   `json:"id"`
	Origin       string   `json:"origin"`
	Destination  string   `json:"destination"`
	SpawnedAt    float64  `json:"spawned_at"`
	Waypoints    []string `json:"waypoints"`
	NextWaypoint int      `json:"next_waypoint"`
}

// NextStop returns the station id the passenger is currently traveling
// toward, or "" when the route is exhausted.
func (p *Passenger) NextStop() string {
	if p.NextWaypoint < 0 || p.NextWaypoint >= len(p.Waypoints) {
		return ""
	}
	return p.Waypoints[p.NextWaypoint]
}

// AtFinalStop reports whether the next waypoint is the journey's end.
func (p *Passenger) AtFinalStop() bool {
	return p.NextWaypoint == len(p.Waypoints)-1
}

// GameState is the single root aggregate owned by the Controller. All
// collections are ordered slices: iteration order is insertion order, which
// keeps every simulation tick deterministic for a given seed.
type GameState struct {
	Seed       int64        `json:"seed"`
	Map        *MapGrid     `json:"map"`
	Stations   []*Station   `json:"stations"`
	Lines      []*MetroLine `json:"lines"`
	Passengers []*Passenger `json:"passengers"`
	Clock      float64      `json:"clock"` // simulation minutes since midnight of day zero
	Money      float64      `json:"money"`
	Paused     bool         `json:"paused"`
	Speed      int          `json:"speed"`

	// id counters; never reused so labels and ids stay stable across removals
	StationSeq   int `json:"station_seq"`
	LineSeq      int `json:"line_seq"`
	TrainSeq     int `json:"train_seq"`
	PassengerSeq int `json:"passenger_seq"`
}

// HourOfDay returns the in-universe hour 0..23 derived from the clock.
func (s *GameState) HourOfDay() int {
	h := int(s.Clock/60) % 24
	if h < 0 {
		h += 24
	}
	return h
}

// Station returns the station with the given id, or nil.
func (s *GameState) Station(id string) *Station {
	for _, st := range s.Stations {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// StationAt returns the station placed at the given vertex, or nil.
func (s *GameState) StationAt(v Vertex) *Station {
	for _, st := range s.Stations {
		if st.V == v {
			return st
		}
	}
	return nil
}

// Line returns the line with the given id, or nil.
func (s *GameState) Line(id string) *MetroLine {
	for _, l := range s.Lines {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Train returns the train with the given id together with its owning line.
func (s *GameState) Train(id string) (*Train, *MetroLine) {
	for _, l := range s.Lines {
		for _, t := range l.Trains {
			if t.ID == id {
				return t, l
			}
		}
	}
	return nil, nil
}

// Passenger returns the roster passenger with the given id, or nil.
func (s *GameState) Passenger(id string) *Passenger {
	for _, p := range s.Passengers {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// LineUsesStation reports whether any completed line serves the station.
func (s *GameState) LineUsesStation(stationID string) bool {
	for _, l := range s.Lines {
		if l.StationIndex(stationID) >= 0 {
			return true
		}
	}
	return false
}

// ColorInUse reports whether any completed line already uses the color.
func (s *GameState) ColorInUse(color string) bool {
	for _, l := range s.Lines {
		if l.Color == color {
			return true
		}
	}
	return false
}

// addStation appends a new station at the vertex and assigns the next label.
func (s *GameState) addStation(v Vertex) *Station {
	st := &Station{
		ID:    v.Key(),
		V:     v,
		Label: labelForOrdinal(s.StationSeq),
		Queue: []string{},
	}
	s.StationSeq++
	s.Stations = append(s.Stations, st)
	return st
}

// removeStation drops the station from the roster along with any passengers
// still queued there.
func (s *GameState) removeStation(id string) {
	for i, st := range s.Stations {
		if st.ID != id {
			continue
		}
		for _, pid := range st.Queue {
			s.removePassenger(pid)
		}
		s.Stations = append(s.Stations[:i], s.Stations[i+1:]...)
		return
	}
}

// newPassenger creates a roster passenger with the next sequential id. The
// caller is responsible for queueing it at its origin station.
func (s *GameState) newPassenger(origin, destination string, waypoints []string) *Passenger {
	s.PassengerSeq++
	p := &Passenger{
		ID:          fmt.Sprintf("p-%d", s.PassengerSeq),
		Origin:      origin,
		Destination: destination,
		SpawnedAt:   s.Clock,
		Waypoints:   waypoints,
		// waypoint 0 is the origin itself; the first travel target is 1
		NextWaypoint: 1,
	}
	s.Passengers = append(s.Passengers, p)
	return p
}

// removePassenger removes the passenger from the roster. It does not touch
// queues or trains; callers remove the location reference themselves as part
// of the same transition.
func (s *GameState) removePassenger(id string) {
	for i, p := range s.Passengers {
		if p.ID == id {
			s.Passengers = append(s.Passengers[:i], s.Passengers[i+1:]...)
			return
		}
	}
}

// labelForOrdinal converts an insertion ordinal to a display label:
// A..Z, then AA, AB, ... (spreadsheet column style).
func labelForOrdinal(n int) string {
	label := ""
	n++
	for n > 0 {
		n--
		label = string(rune('A'+n%26)) + label
		n /= 26
	}
	return label
}
