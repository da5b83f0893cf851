package main

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
)

// Planner plans a complete metro network before execution: station sites
// ranked by catchment demand, sites chained into lines nearest-neighbor
// first, extra trains assigned to the longest lines.
type Planner struct {
	radius      int
	stationCost float64
	costPerUnit float64
	maxTrains   int
	colors      []string
	lineCount   int

	// Planned placements, best demand first
	sites   []Site
	siteIdx int

	// Line drawing
	routes        [][]Site
	routeIdx      int
	stepIdx       int
	colorIdx      int
	cancelPending bool

	// Extra trains
	trainPlan []string
	trainIdx  int

	phase int
}

const (
	phasePlace = iota
	phaseDraw
	phaseTrains
	phaseDone
)

// Site is a planned station placement with its demand score.
type Site struct {
	V     Vertex
	Score float64
}

// key is the station id the server will assign to a station at this vertex.
func (s Site) key() string {
	return fmt.Sprintf("%d,%d", s.V.X, s.V.Y)
}

// PlannedAction is one action the planner wants dispatched, with a short
// human note for logging.
type PlannedAction struct {
	Type    string
	Payload interface{}
	Note    string
}

func NewPlanner(state *GameState, tuning *Tuning, lineCount int) *Planner {
	p := &Planner{
		radius:      tuning.CatchmentRadius,
		stationCost: tuning.StationCost,
		costPerUnit: tuning.LineCostPerUnit,
		maxTrains:   tuning.MaxTrainsPerLine,
		colors:      tuning.LineColors,
		lineCount:   lineCount,
	}
	if p.lineCount < 1 {
		p.lineCount = 1
	}
	if p.lineCount > len(p.colors) {
		p.lineCount = len(p.colors)
	}

	p.planSites(state)
	return p
}

// planSites scores every buildable vertex and greedily picks the strongest,
// keeping a minimum gap so catchments spread out instead of stacking on the
// same block, and a money reserve so route construction cannot drain the
// bank below zero.
func (p *Planner) planSites(state *GameState) {
	m := state.Map

	type scoredVertex struct {
		v     Vertex
		score float64
	}
	candidates := make([]scoredVertex, 0, (m.Width+1)*(m.Height+1))
	for y := 0; y <= m.Height; y++ {
		for x := 0; x <= m.Width; x++ {
			v := Vertex{X: x, Y: y}
			if !buildable(m, v) {
				continue
			}
			score := demandAround(m, v, p.radius)
			if score <= 0 {
				continue
			}
			candidates = append(candidates, scoredVertex{v: v, score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].v.Y != candidates[j].v.Y {
			return candidates[i].v.Y < candidates[j].v.Y
		}
		return candidates[i].v.X < candidates[j].v.X
	})

	maxStations := p.lineCount*4 + 1
	minGap := p.radius + 1
	if minGap < 2 {
		minGap = 2
	}
	budget := state.Money * 0.9
	spent := 0.0

	for _, c := range candidates {
		if len(p.sites) >= maxStations {
			break
		}
		if p.nearPlanned(c.v, minGap) || nearExistingStation(state, c.v) {
			continue
		}
		cost := p.stationCost
		if len(p.sites) > 0 {
			// The connecting segment will roughly follow the angle-snapped
			// path to the nearest already chosen site.
			cost += p.nearestPlannedDistance(c.v) * p.costPerUnit
		}
		if spent+cost > budget {
			break
		}
		spent += cost
		p.sites = append(p.sites, Site{V: c.v, Score: c.score})
	}

	log.Printf("📊 Planned %d station sites (projected cost $%.0f of $%.0f budget)",
		len(p.sites), spent, budget)
	for i, s := range p.sites {
		log.Printf("  %d. (%d,%d) demand %.0f", i+1, s.V.X, s.V.Y, s.Score)
	}
}

// planRoutes chains the stations that actually got placed and splits the
// chain into lines. Failed placements are simply absent from the state and
// drop out here.
func (p *Planner) planRoutes(state *GameState) {
	placed := make([]Site, 0, len(p.sites))
	for _, s := range p.sites {
		if stationByID(state, s.key()) != nil {
			placed = append(placed, s)
		}
	}

	order := nearestNeighborOrder(placed)
	p.routes = chunkRoutes(order, p.lineCount)

	log.Printf("📋 Planned %d lines over %d stations", len(p.routes), len(placed))
	for i, route := range p.routes {
		keys := make([]string, len(route))
		for j, s := range route {
			keys[j] = s.key()
		}
		log.Printf("  %d. %s", i+1, strings.Join(keys, " > "))
	}
}

// planTrains assigns extra trains to the longest lines. Completing a line
// already put one train on it; this tops lines up to one train per three
// stations, capped by the per-line limit.
func (p *Planner) planTrains(state *GameState) {
	p.trainPlan = nil
	for _, l := range state.Lines {
		want := 1 + (len(l.Stations)-2)/3
		if want > p.maxTrains {
			want = p.maxTrains
		}
		for have := len(l.Trains); have < want; have++ {
			p.trainPlan = append(p.trainPlan, l.ID)
		}
	}
	if len(p.trainPlan) > 0 {
		log.Printf("🚆 Adding %d extra trains", len(p.trainPlan))
	}
}

// Next returns the next action to dispatch, or nil when the build is done.
// The cursor advances as actions are handed out; Rejected compensates for
// the few rejections that need a follow-up.
func (p *Planner) Next(state *GameState) *PlannedAction {
	for {
		switch p.phase {
		case phasePlace:
			if p.siteIdx >= len(p.sites) {
				p.planRoutes(state)
				p.phase = phaseDraw
				continue
			}
			site := p.sites[p.siteIdx]
			p.siteIdx++
			if stationByID(state, site.key()) != nil {
				// already on the map from a resumed session
				continue
			}
			return &PlannedAction{
				Type:    actionPlaceStation,
				Payload: placeStationPayload{X: site.V.X, Y: site.V.Y},
				Note:    fmt.Sprintf("station at (%d,%d), demand %.0f", site.V.X, site.V.Y, site.Score),
			}

		case phaseDraw:
			if p.cancelPending {
				p.cancelPending = false
				return &PlannedAction{Type: actionCancelLine, Note: "abandoning unfinishable route"}
			}
			if p.routeIdx >= len(p.routes) {
				p.planTrains(state)
				p.phase = phaseTrains
				continue
			}
			route := p.routes[p.routeIdx]
			if p.stepIdx == 0 {
				if p.colorIdx >= len(p.colors) {
					log.Printf("⚠️  Palette exhausted, stopping at %d lines", p.routeIdx)
					p.routes = p.routes[:p.routeIdx]
					continue
				}
				color := p.colors[p.colorIdx]
				p.colorIdx++
				p.stepIdx = 1
				return &PlannedAction{
					Type:    actionStartLine,
					Payload: startLinePayload{Color: color, StationID: route[0].key()},
					Note:    fmt.Sprintf("%s line from %s", color, route[0].key()),
				}
			}
			if p.stepIdx < len(route) {
				site := route[p.stepIdx]
				p.stepIdx++
				return &PlannedAction{
					Type:    actionAddStationToLine,
					Payload: addStationPayload{StationID: site.key()},
					Note:    fmt.Sprintf("extend to %s", site.key()),
				}
			}
			p.routeIdx++
			p.stepIdx = 0
			return &PlannedAction{
				Type: actionCompleteLine,
				Note: fmt.Sprintf("%d stations", len(route)),
			}

		case phaseTrains:
			if p.trainIdx >= len(p.trainPlan) {
				p.phase = phaseDone
				continue
			}
			lineID := p.trainPlan[p.trainIdx]
			p.trainIdx++
			return &PlannedAction{
				Type:    actionAddTrain,
				Payload: addTrainPayload{LineID: lineID},
				Note:    fmt.Sprintf("extra train on %s", lineID),
			}

		default:
			return nil
		}
	}
}

// Rejected tells the planner an action bounced. Most rejections need no
// compensation because the cursor already moved past them and routes are
// derived from the server's state, but two cases need a follow-up: a
// rejected start retries the same route with the next color, and a rejected
// completion leaves a draft open that must be cancelled before the next
// start.
func (p *Planner) Rejected(pa *PlannedAction) {
	switch pa.Type {
	case actionStartLine:
		p.stepIdx = 0
	case actionCompleteLine:
		p.cancelPending = true
	}
}

// nearPlanned reports whether a vertex is within gap of an already planned
// site, measured in Chebyshev distance.
func (p *Planner) nearPlanned(v Vertex, gap int) bool {
	for _, s := range p.sites {
		if chebyshev(s.V, v) < gap {
			return true
		}
	}
	return false
}

func (p *Planner) nearestPlannedDistance(v Vertex) float64 {
	minDist := math.MaxFloat64
	for _, s := range p.sites {
		if d := octilinearDistance(s.V, v); d < minDist {
			minDist = d
		}
	}
	return minDist
}

// nearestNeighborOrder chains sites greedily: start at the strongest site,
// then always hop to the nearest unvisited one. Keeps consecutive stations
// close, which keeps the connecting segments short.
func nearestNeighborOrder(sites []Site) []Site {
	if len(sites) == 0 {
		return nil
	}

	remaining := make(map[int]bool)
	for i := range sites {
		remaining[i] = true
	}

	order := make([]Site, 0, len(sites))
	current := 0 // sites are sorted by demand, so start at the strongest
	order = append(order, sites[current])
	delete(remaining, current)

	for len(remaining) > 0 {
		nearest := -1
		minDist := math.MaxFloat64
		for idx := 0; idx < len(sites); idx++ {
			if !remaining[idx] {
				continue
			}
			d := octilinearDistance(sites[current].V, sites[idx].V)
			if d < minDist {
				minDist = d
				nearest = idx
			}
		}
		order = append(order, sites[nearest])
		delete(remaining, nearest)
		current = nearest
	}

	return order
}

// chunkRoutes splits the chained order into count runs that share their
// boundary stations, so every line meets the next at an interchange and
// passengers can transfer across the whole network.
func chunkRoutes(order []Site, count int) [][]Site {
	n := len(order)
	if n < 2 {
		return nil
	}
	if count < 1 {
		count = 1
	}
	if count > n-1 {
		count = n - 1
	}

	base := (n - 1) / count
	extra := (n - 1) % count

	routes := make([][]Site, 0, count)
	start := 0
	for i := 0; i < count; i++ {
		hops := base
		if i < extra {
			hops++
		}
		end := start + hops
		routes = append(routes, order[start:end+1])
		start = end
	}
	return routes
}

// demandAround is a box sum of the demand densities around a vertex. The
// server floods outward over land tiles instead, but the box is a good
// enough stand-in for ranking candidate sites.
func demandAround(m *MapGrid, v Vertex, radius int) float64 {
	total := 0.0
	for y := v.Y - radius - 1; y <= v.Y+radius; y++ {
		for x := v.X - radius - 1; x <= v.X+radius; x++ {
			if y < 0 || y >= m.Height || x < 0 || x >= m.Width {
				continue
			}
			t := m.Tiles[y][x]
			if t.Type != "land" {
				continue
			}
			total += float64(t.Residential + t.Office)
		}
	}
	return total
}

// buildable reports whether a vertex touches at least one land tile, which
// is the server's placement rule.
func buildable(m *MapGrid, v Vertex) bool {
	for _, d := range [4][2]int{{-1, -1}, {0, -1}, {-1, 0}, {0, 0}} {
		x, y := v.X+d[0], v.Y+d[1]
		if x >= 0 && y >= 0 && x < m.Width && y < m.Height && m.Tiles[y][x].Type == "land" {
			return true
		}
	}
	return false
}

// nearExistingStation reports whether a vertex is on or next to a station
// that is already on the map, which would get the placement rejected.
func nearExistingStation(state *GameState, v Vertex) bool {
	for _, st := range state.Stations {
		if chebyshev(st.V, v) < 2 {
			return true
		}
	}
	return false
}

func stationByID(state *GameState, id string) *Station {
	for _, st := range state.Stations {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// octilinearDistance is the length of the angle-snapped path between two
// vertices: the diagonal run plus the axis-aligned remainder.
func octilinearDistance(a, b Vertex) float64 {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	diag := dx
	if dy < dx {
		diag = dy
	}
	return float64(diag)*math.Sqrt2 + float64(dx+dy-2*diag)
}

func chebyshev(a, b Vertex) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dy > dx {
		return dy
	}
	return dx
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
