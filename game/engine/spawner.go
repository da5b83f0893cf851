package engine

import (
	"math/rand"
)

// spawnRegime describes how one time-of-day window weights passenger
// generation. Origin weights drive how likely each station is to produce a
// passenger, destination weights drive where that passenger wants to go.
type spawnRegime struct {
	Multiplier float64
	OriginRes  float64
	OriginOff  float64
	DestRes    float64
	DestOff    float64
}

// PassengerSpawner rolls an independent Bernoulli trial per station per tick
// and creates routed passengers. Catchment scores are cached per station
// because they depend only on the immutable map.
type PassengerSpawner struct {
	tuning     *Tuning
	rng        *rand.Rand
	catchments map[string]Catchment
}

// NewPassengerSpawner creates a spawner driven by the given RNG.
func NewPassengerSpawner(t *Tuning, rng *rand.Rand) *PassengerSpawner {
	return &PassengerSpawner{
		tuning:     t,
		rng:        rng,
		catchments: make(map[string]Catchment),
	}
}

// InvalidateCatchments clears every cached catchment score. Must be called
// whenever the map is replaced, e.g. after loading a saved game.
func (sp *PassengerSpawner) InvalidateCatchments() {
	sp.catchments = make(map[string]Catchment)
}

// catchmentFor returns the cached catchment for a station, computing it on
// first use. Presence is checked per station so stations placed after the
// cache was first touched still get scored.
func (sp *PassengerSpawner) catchmentFor(m *MapGrid, st *Station) Catchment {
	if c, ok := sp.catchments[st.ID]; ok {
		return c
	}
	c := computeCatchment(m, st.V, sp.tuning.CatchmentRadius)
	sp.catchments[st.ID] = c
	return c
}

// regimeFor maps an hour of day onto its spawn regime. Morning rush sends
// residents to offices, evening rush sends them home, night runs a thin
// blended trickle and the rest of the day a normal blend.
func (sp *PassengerSpawner) regimeFor(hour int) spawnRegime {
	t := sp.tuning
	switch {
	case hour >= t.MorningStart && hour < t.MorningEnd:
		return spawnRegime{Multiplier: t.RushMultiplier, OriginRes: 1, DestOff: 1}
	case hour >= t.EveningStart && hour < t.EveningEnd:
		return spawnRegime{Multiplier: t.RushMultiplier, OriginOff: 1, DestRes: 1}
	case hour >= t.NightStart || hour < t.NightEnd:
		return spawnRegime{Multiplier: t.NightMultiplier, OriginRes: 1, OriginOff: 1, DestRes: 1, DestOff: 1}
	default:
		return spawnRegime{Multiplier: 1, OriginRes: 1, OriginOff: 1, DestRes: 1, DestOff: 1}
	}
}

// Tick runs the spawn trials for one update of dt simulation minutes. The
// station graph is rebuilt once per tick; a spawn whose destination is
// unreachable is skipped without retry.
func (sp *PassengerSpawner) Tick(s *GameState, dt float64) {
	if len(s.Stations) < 2 {
		return
	}

	graph := BuildStationGraph(s.Lines)
	regime := sp.regimeFor(s.HourOfDay())

	for _, st := range s.Stations {
		c := sp.catchmentFor(s.Map, st)
		weight := regime.OriginRes*c.Residential + regime.OriginOff*c.Office
		p := sp.tuning.SpawnBase * regime.Multiplier * (weight / sp.tuning.CatchmentScale) * dt
		if p > sp.tuning.MaxSpawnChance {
			p = sp.tuning.MaxSpawnChance
		}
		if p <= 0 || sp.rng.Float64() >= p {
			continue
		}

		dest := sp.pickDestination(s, st, regime)
		if dest == nil {
			continue
		}
		route := graph.FindRoute(st.ID, dest.ID)
		if route == nil {
			continue
		}
		pass := s.newPassenger(st.ID, dest.ID, route)
		st.Queue = append(st.Queue, pass.ID)
	}
}

// pickDestination selects a weighted random station other than the origin.
// Every candidate gets a +1 floor so stations with zero catchment remain
// reachable destinations.
func (sp *PassengerSpawner) pickDestination(s *GameState, origin *Station, regime spawnRegime) *Station {
	total := 0.0
	weights := make([]float64, len(s.Stations))
	for i, st := range s.Stations {
		if st.ID == origin.ID {
			continue
		}
		c := sp.catchmentFor(s.Map, st)
		w := regime.DestRes*c.Residential + regime.DestOff*c.Office + 1
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return nil
	}

	roll := sp.rng.Float64() * total
	for i, st := range s.Stations {
		if weights[i] == 0 {
			continue
		}
		roll -= weights[i]
		if roll < 0 {
			return st
		}
	}
	// float rounding can leave roll at a hair above zero; fall back to the
	// last weighted candidate
	for i := len(s.Stations) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return s.Stations[i]
		}
	}
	return nil
}
