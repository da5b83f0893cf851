package engine

import (
	"math/rand"
	"reflect"
	"testing"
)

// spawnWorld is a dense three-station state on one line, parked at midday so
// the neutral regime applies.
func spawnWorld() *GameState {
	s := NewGameState(1, uniformDensityMap(20, 20, 5, 5), DefaultTuning())
	s.Clock = 12 * 60
	sts := placeStations(s,
		Vertex{X: 5, Y: 5},
		Vertex{X: 10, Y: 5},
		Vertex{X: 15, Y: 5},
	)
	completeTestLine(s, "red", false, sts[0].ID, sts[1].ID, sts[2].ID)
	return s
}

func TestSpawner_Deterministic(t *testing.T) {
	tuning := DefaultTuning()
	s1, s2 := spawnWorld(), spawnWorld()
	sp1 := NewPassengerSpawner(tuning, rand.New(rand.NewSource(7)))
	sp2 := NewPassengerSpawner(tuning, rand.New(rand.NewSource(7)))

	for i := 0; i < 50; i++ {
		sp1.Tick(s1, 1.0)
		sp2.Tick(s2, 1.0)
	}

	if s1.PassengerSeq != s2.PassengerSeq {
		t.Fatalf("Expected identical spawn counts, got %d and %d", s1.PassengerSeq, s2.PassengerSeq)
	}
	if len(s1.Passengers) != len(s2.Passengers) {
		t.Fatalf("Expected identical rosters, got %d and %d", len(s1.Passengers), len(s2.Passengers))
	}
	for i, p := range s1.Passengers {
		q := s2.Passengers[i]
		if p.ID != q.ID || p.Origin != q.Origin || p.Destination != q.Destination {
			t.Errorf("Passenger %d differs: %+v vs %+v", i, p, q)
		}
	}
	for i := range s1.Stations {
		if !reflect.DeepEqual(s1.Stations[i].Queue, s2.Stations[i].Queue) {
			t.Errorf("Queue at %s differs: %v vs %v", s1.Stations[i].ID, s1.Stations[i].Queue, s2.Stations[i].Queue)
		}
	}
}

func TestSpawner_SpawnsAtMidday(t *testing.T) {
	s := spawnWorld()
	sp := NewPassengerSpawner(DefaultTuning(), rand.New(rand.NewSource(3)))

	for i := 0; i < 200 && len(s.Passengers) == 0; i++ {
		sp.Tick(s, 1.0)
	}
	if len(s.Passengers) == 0 {
		t.Fatal("Expected at least one passenger after 200 dense midday ticks")
	}

	for _, p := range s.Passengers {
		if p.Origin == p.Destination {
			t.Errorf("Passenger %s travels to its own origin", p.ID)
		}
		if len(p.Waypoints) < 2 {
			t.Errorf("Passenger %s has no routed waypoints: %v", p.ID, p.Waypoints)
		}
		if p.Waypoints[0] != p.Origin || p.Waypoints[len(p.Waypoints)-1] != p.Destination {
			t.Errorf("Passenger %s route %v does not span %s to %s", p.ID, p.Waypoints, p.Origin, p.Destination)
		}
	}
	if err := ValidatePassengerConsistency(s); err != nil {
		t.Errorf("Expected consistent state after spawning, got %v", err)
	}
}

func TestSpawner_SkipsUnroutableDestinations(t *testing.T) {
	s := NewGameState(1, uniformDensityMap(20, 20, 9, 9), DefaultTuning())
	s.Clock = 12 * 60
	// two stations, no line: every pick is unreachable
	placeStations(s, Vertex{X: 5, Y: 5}, Vertex{X: 15, Y: 15})
	sp := NewPassengerSpawner(DefaultTuning(), rand.New(rand.NewSource(3)))

	for i := 0; i < 100; i++ {
		sp.Tick(s, 1.0)
	}

	if len(s.Passengers) != 0 {
		t.Errorf("Expected no passengers without a connecting line, got %d", len(s.Passengers))
	}
	for _, st := range s.Stations {
		if len(st.Queue) != 0 {
			t.Errorf("Expected empty queue at %s, got %v", st.ID, st.Queue)
		}
	}
}

func TestRegimeFor(t *testing.T) {
	tuning := DefaultTuning()
	sp := NewPassengerSpawner(tuning, rand.New(rand.NewSource(1)))

	rush := tuning.RushMultiplier
	night := tuning.NightMultiplier
	blend := func(mult float64) spawnRegime {
		return spawnRegime{Multiplier: mult, OriginRes: 1, OriginOff: 1, DestRes: 1, DestOff: 1}
	}

	tests := []struct {
		hour int
		want spawnRegime
	}{
		{7, spawnRegime{Multiplier: rush, OriginRes: 1, DestOff: 1}},
		{9, spawnRegime{Multiplier: rush, OriginRes: 1, DestOff: 1}},
		{10, blend(1)},
		{12, blend(1)},
		{16, spawnRegime{Multiplier: rush, OriginOff: 1, DestRes: 1}},
		{18, spawnRegime{Multiplier: rush, OriginOff: 1, DestRes: 1}},
		{19, blend(1)},
		{22, blend(night)},
		{3, blend(night)},
		{6, blend(1)},
	}
	for _, tt := range tests {
		if got := sp.regimeFor(tt.hour); got != tt.want {
			t.Errorf("regimeFor(%d) = %+v, want %+v", tt.hour, got, tt.want)
		}
	}
}

func TestSpawner_CatchmentCachePerStation(t *testing.T) {
	tuning := DefaultTuning()
	s := NewGameState(1, uniformDensityMap(20, 20, 2, 3), tuning)
	sp := NewPassengerSpawner(tuning, rand.New(rand.NewSource(1)))

	first := placeStations(s, Vertex{X: 5, Y: 5})[0]
	cached := sp.catchmentFor(s.Map, first)
	if cached.Residential <= 0 || cached.Office <= 0 {
		t.Fatalf("Expected positive catchment on a dense map, got %+v", cached)
	}

	// a station placed after the cache warmed up still gets scored
	late := placeStations(s, Vertex{X: 12, Y: 12})[0]
	got := sp.catchmentFor(s.Map, late)
	want := computeCatchment(s.Map, late.V, tuning.CatchmentRadius)
	if got != want {
		t.Errorf("Late station catchment = %+v, want %+v", got, want)
	}

	// cached scores survive map edits until invalidated
	for y := range s.Map.Tiles {
		for x := range s.Map.Tiles[y] {
			s.Map.Tiles[y][x].Residential = 0
			s.Map.Tiles[y][x].Office = 0
		}
	}
	if again := sp.catchmentFor(s.Map, first); again != cached {
		t.Errorf("Expected cached catchment %+v, got %+v", cached, again)
	}

	sp.InvalidateCatchments()
	if fresh := sp.catchmentFor(s.Map, first); fresh.Residential != 0 || fresh.Office != 0 {
		t.Errorf("Expected zero catchment after invalidation on the zeroed map, got %+v", fresh)
	}
}
