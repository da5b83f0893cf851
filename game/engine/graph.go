package engine

// StationGraph is an undirected adjacency view of the network: nodes are
// stations, edges are consecutive pairs in every completed line (plus the
// wrap-around edge of loops). It is rebuilt on demand from the current lines
// rather than incrementally maintained, so it can never go stale.
type StationGraph struct {
	adj   map[string][]string
	edges map[string]map[string]bool
}

// BuildStationGraph derives the adjacency view from the given lines.
func BuildStationGraph(lines []*MetroLine) *StationGraph {
	g := &StationGraph{
		adj:   make(map[string][]string),
		edges: make(map[string]map[string]bool),
	}
	for _, l := range lines {
		n := len(l.Stations)
		if n < 2 {
			continue
		}
		for i := 0; i < n-1; i++ {
			g.addEdge(l.Stations[i], l.Stations[i+1])
		}
		if l.Loop {
			g.addEdge(l.Stations[n-1], l.Stations[0])
		}
	}
	return g
}

func (g *StationGraph) addEdge(a, b string) {
	if a == b {
		return
	}
	g.addArc(a, b)
	g.addArc(b, a)
}

func (g *StationGraph) addArc(from, to string) {
	if g.edges[from] == nil {
		g.edges[from] = make(map[string]bool)
	}
	if g.edges[from][to] {
		return
	}
	g.edges[from][to] = true
	g.adj[from] = append(g.adj[from], to)
}

// Neighbors returns the stations directly connected to id, in the order the
// connecting lines were added.
func (g *StationGraph) Neighbors(id string) []string {
	return g.adj[id]
}

// Connected reports whether the station has any edge at all.
func (g *StationGraph) Connected(id string) bool {
	return len(g.adj[id]) > 0
}

// FindRoute runs a breadth-first search and returns the minimum-hop station
// path from a to b inclusive, or nil when b is unreachable. Hops are counted
// per station, not per unit of geometric length.
func (g *StationGraph) FindRoute(from, to string) []string {
	if from == to {
		return []string{from}
	}
	if len(g.adj[from]) == 0 {
		return nil
	}

	cameFrom := map[string]string{from: from}
	queue := []string{from}
	for head := 0; head < len(queue); head++ {
		current := queue[head]
		for _, next := range g.adj[current] {
			if _, seen := cameFrom[next]; seen {
				continue
			}
			cameFrom[next] = current
			if next == to {
				return rebuildRoute(cameFrom, from, to)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// rebuildRoute walks the cameFrom chain backwards and reverses it.
func rebuildRoute(cameFrom map[string]string, from, to string) []string {
	route := []string{to}
	for at := to; at != from; {
		at = cameFrom[at]
		route = append(route, at)
	}
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
	return route
}
