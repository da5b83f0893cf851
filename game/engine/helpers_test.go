package engine

import (
	"fmt"
	"testing"
)

// flatLandMap builds an all-land map with zero densities, handy when a test
// only cares about placement and movement rules.
func flatLandMap(w, h int) *MapGrid {
	m := &MapGrid{Width: w, Height: h, Terrain: TerrainRiver, Tiles: make([][]Tile, h)}
	for y := range m.Tiles {
		m.Tiles[y] = make([]Tile, w)
		for x := range m.Tiles[y] {
			m.Tiles[y][x] = Tile{Type: TileLand}
		}
	}
	return m
}

// uniformDensityMap is flatLandMap with every tile carrying the same
// residential and office densities.
func uniformDensityMap(w, h, res, off int) *MapGrid {
	m := flatLandMap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Tiles[y][x].Residential = res
			m.Tiles[y][x].Office = off
		}
	}
	return m
}

// newTestState returns a fresh state on a 20x20 all-land map with default
// tuning.
func newTestState() *GameState {
	return NewGameState(1, flatLandMap(20, 20), DefaultTuning())
}

// placeStations adds stations directly at the given vertices, bypassing the
// manager so tests can set up exactly the network they need.
func placeStations(s *GameState, vs ...Vertex) []*Station {
	out := make([]*Station, 0, len(vs))
	for _, v := range vs {
		out = append(out, s.addStation(v))
	}
	return out
}

// completeTestLine builds an already-completed line over the given station
// ids, without charging money.
func completeTestLine(s *GameState, color string, loop bool, ids ...string) *MetroLine {
	s.LineSeq++
	l := &MetroLine{
		ID:       fmt.Sprintf("line-%d", s.LineSeq),
		Color:    color,
		Stations: ids,
		Loop:     loop,
		Trains:   []*Train{},
	}
	s.Lines = append(s.Lines, l)
	return l
}

// addTestTrain puts a train on the line through the manager and fails the
// test if the cap rejects it.
func addTestTrain(t *testing.T, s *GameState, l *MetroLine) *Train {
	t.Helper()
	res := NewTrainManager(DefaultTuning()).Add(s, l.ID)
	if !res.Success {
		t.Fatalf("Failed to add test train: %s", res.Error)
	}
	return res.Data.(*Train)
}

// queuePassenger creates a routed roster passenger waiting at the first
// waypoint.
func queuePassenger(t *testing.T, s *GameState, waypoints ...string) *Passenger {
	t.Helper()
	if len(waypoints) < 2 {
		t.Fatal("queuePassenger needs at least origin and destination")
	}
	p := s.newPassenger(waypoints[0], waypoints[len(waypoints)-1], waypoints)
	st := s.Station(waypoints[0])
	if st == nil {
		t.Fatalf("queuePassenger: no station %s", waypoints[0])
	}
	st.Queue = append(st.Queue, p.ID)
	return p
}
