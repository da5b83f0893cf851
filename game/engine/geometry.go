package engine

import "math"

// Direction is a unit octilinear step with components in {-1, 0, 1}.
type Direction struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// DirectionBetween returns the octilinear heading from a toward b: the sign
// of the displacement on each axis.
func DirectionBetween(a, b Vertex) Direction {
	return Direction{DX: sign(b.X - a.X), DY: sign(b.Y - a.Y)}
}

// DeflectionDeg returns the angle in degrees between two headings: 0 means
// straight through, 180 a full U-turn. A zero heading deflects nothing.
func DeflectionDeg(a, b Direction) float64 {
	if (a.DX == 0 && a.DY == 0) || (b.DX == 0 && b.DY == 0) {
		return 0
	}
	dot := float64(a.DX*b.DX + a.DY*b.DY)
	la := math.Hypot(float64(a.DX), float64(a.DY))
	lb := math.Hypot(float64(b.DX), float64(b.DY))
	cos := clampF(dot/(la*lb), -1, 1)
	return math.Acos(cos) * 180 / math.Pi
}

// OctilinearPath computes the angle-snapped polyline between two vertices:
// 2 waypoints when the displacement is axis-aligned or a perfect diagonal,
// otherwise 3 waypoints with a single knee. When two knee placements are
// possible the one minimizing the deflection toward next is chosen; without
// a hint (or on a tie) the diagonal-first knee wins.
func OctilinearPath(from, to Vertex, next *Direction) []Vertex {
	dx := to.X - from.X
	dy := to.Y - from.Y

	if dx == 0 && dy == 0 {
		return []Vertex{from}
	}
	if dx == 0 || dy == 0 || abs(dx) == abs(dy) {
		return []Vertex{from, to}
	}

	diag := min(abs(dx), abs(dy))
	sx, sy := sign(dx), sign(dy)

	// diagonal-first: 45° leg, then the axis-aligned remainder
	kneeDiag := Vertex{X: from.X + sx*diag, Y: from.Y + sy*diag}
	diagFirst := []Vertex{from, kneeDiag, to}

	// straight-first: axis-aligned leg, then the 45° remainder
	kneeStraight := Vertex{X: to.X - sx*diag, Y: to.Y - sy*diag}
	straightFirst := []Vertex{from, kneeStraight, to}

	if next == nil {
		return diagFirst
	}

	dDiag := DeflectionDeg(exitDirection(diagFirst), *next)
	dStraight := DeflectionDeg(exitDirection(straightFirst), *next)
	if dStraight < dDiag {
		return straightFirst
	}
	return diagFirst
}

// exitDirection is the heading of a path's final leg, i.e. the direction a
// train arrives at the segment's far station with.
func exitDirection(path []Vertex) Direction {
	if len(path) < 2 {
		return Direction{}
	}
	return DirectionBetween(path[len(path)-2], path[len(path)-1])
}

// PathLength sums the Euclidean leg lengths of a polyline. This is the unit
// of distance shared by line cost, running cost and train speed.
func PathLength(path []Vertex) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += EuclideanDistance(path[i-1], path[i])
	}
	return total
}

// reversePath returns a reversed copy of a polyline.
func reversePath(path []Vertex) []Vertex {
	out := make([]Vertex, len(path))
	for i, v := range path {
		out[len(path)-1-i] = v
	}
	return out
}

// segmentEndpoints resolves segment i of a line to its two station vertices.
// Segment i runs from station i to station (i+1) mod n; the wrap segment
// exists only on loops. ok is false when a station lookup fails.
func segmentEndpoints(s *GameState, l *MetroLine, i int) (from, to Vertex, ok bool) {
	n := len(l.Stations)
	if n < 2 || i < 0 || i >= l.SegmentCount() {
		return Vertex{}, Vertex{}, false
	}
	a := s.Station(l.Stations[i])
	b := s.Station(l.Stations[(i+1)%n])
	if a == nil || b == nil {
		return Vertex{}, Vertex{}, false
	}
	return a.V, b.V, true
}

// LinePaths returns the as-built polyline of every segment of a line, in
// canonical (increasing-index) direction. Each segment is routed with a
// lookahead hint toward the following station so the line bends as little as
// possible at intermediate stops. Completed lines cache the result for their
// lifetime; in-progress drafts are computed fresh each call.
func LinePaths(s *GameState, l *MetroLine) [][]Vertex {
	if l.segPaths != nil {
		return l.segPaths
	}

	n := len(l.Stations)
	segs := l.SegmentCount()
	paths := make([][]Vertex, 0, segs)
	for i := 0; i < segs; i++ {
		from, to, ok := segmentEndpoints(s, l, i)
		if !ok {
			paths = append(paths, nil)
			continue
		}

		var hint *Direction
		afterIdx := i + 2
		if l.Loop {
			after := s.Station(l.Stations[mod(afterIdx, n)])
			if after != nil {
				d := DirectionBetween(to, after.V)
				hint = &d
			}
		} else if afterIdx < n {
			after := s.Station(l.Stations[afterIdx])
			if after != nil {
				d := DirectionBetween(to, after.V)
				hint = &d
			}
		}

		paths = append(paths, OctilinearPath(from, to, hint))
	}

	if l.ID != "" {
		// only completed lines are immutable enough to cache
		l.segPaths = paths
	}
	return paths
}

// SegmentPath returns the canonical polyline for segment i of a line, or nil
// when the segment cannot be resolved.
func SegmentPath(s *GameState, l *MetroLine, i int) []Vertex {
	paths := LinePaths(s, l)
	if i < 0 || i >= len(paths) {
		return nil
	}
	return paths[i]
}

// LineLength sums the lengths of every segment of a line, including the
// wrap-around segment of loops. This drives the construction cost charged on
// line completion.
func LineLength(s *GameState, l *MetroLine) float64 {
	total := 0.0
	for _, p := range LinePaths(s, l) {
		total += PathLength(p)
	}
	return total
}
