package engine

// Catchment aggregates the demand reachable around a station: the summed
// residential and office densities of nearby land tiles. It depends only on
// the immutable map and the station's vertex, so it is cached per station.
type Catchment struct {
	Residential float64 `json:"residential"`
	Office      float64 `json:"office"`
}

// computeCatchment runs a bounded breadth-first accumulation over land tiles
// starting from the (up to) four tiles touching the vertex, walking at most
// radius steps and never leaving the radius bounding box.
func computeCatchment(m *MapGrid, v Vertex, radius int) Catchment {
	minX, maxX := v.X-radius-1, v.X+radius
	minY, maxY := v.Y-radius-1, v.Y+radius

	type step struct {
		p     point
		depth int
	}
	seen := make(map[point]bool)
	queue := []step{}
	enqueue := func(x, y, depth int) {
		p := point{x, y}
		if seen[p] || x < minX || x > maxX || y < minY || y > maxY {
			return
		}
		if !m.IsLand(x, y) {
			return
		}
		seen[p] = true
		queue = append(queue, step{p: p, depth: depth})
	}

	// seed from the four tiles sharing the vertex corner
	enqueue(v.X-1, v.Y-1, 0)
	enqueue(v.X, v.Y-1, 0)
	enqueue(v.X-1, v.Y, 0)
	enqueue(v.X, v.Y, 0)

	var c Catchment
	for head := 0; head < len(queue); head++ {
		s := queue[head]
		t := m.Tiles[s.p.y][s.p.x]
		c.Residential += float64(t.Residential)
		c.Office += float64(t.Office)
		if s.depth >= radius {
			continue
		}
		for _, d := range dirs4 {
			enqueue(s.p.x+d.x, s.p.y+d.y, s.depth+1)
		}
	}
	return c
}
