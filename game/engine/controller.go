package engine

import (
	"fmt"
	"math/rand"
)

// Controller is the sole mutation entry point for external callers. It owns
// the one mutable GameState and coordinates the managers and simulation
// systems; screens, transports and tests only ever talk to a Controller.
//
// Everything is single-threaded by design: Update and Dispatch must be
// called from one goroutine (the session layer serializes access).
type Controller struct {
	state  *GameState
	tuning *Tuning
	rng    *rand.Rand

	ledger   *Ledger
	stations *StationManager
	lines    *LineManager
	trains   *TrainManager
	spawner  *PassengerSpawner
	movement *TrainMovement

	subscribers []subscriber
	nextSubID   int
}

type subscriber struct {
	id int
	fn func()
}

// NewController wraps an existing state, wiring up managers and simulation
// systems. The simulation RNG is seeded from the map seed mixed with the
// clock so a loaded game does not replay the spawn rolls already consumed
// before the save.
func NewController(state *GameState, t *Tuning) *Controller {
	if t == nil {
		t = DefaultTuning()
	}
	rng := rand.New(rand.NewSource(state.Seed ^ int64(state.Clock*60000)))
	ledger := NewLedger(t)
	lines := NewLineManager(t, ledger)
	c := &Controller{
		state:    state,
		tuning:   t,
		rng:      rng,
		ledger:   ledger,
		lines:    lines,
		stations: NewStationManager(t, ledger, lines),
		trains:   NewTrainManager(t),
		spawner:  NewPassengerSpawner(t, rng),
	}
	c.movement = NewTrainMovement(t, ledger, NewPassengerMovement(t, ledger))
	return c
}

// NewGame generates a fresh map from the seed and wraps it in a controller.
func NewGame(seed int64, t *Tuning) *Controller {
	if t == nil {
		t = DefaultTuning()
	}
	m := NewMapGenerator(seed).Generate(t.MapWidth, t.MapHeight)
	return NewController(NewGameState(seed, m, t), t)
}

// NewGameWithTerrain is NewGame with the terrain mode forced instead of
// rolled, for tests and scenario setups.
func NewGameWithTerrain(seed int64, kind TerrainKind, t *Tuning) *Controller {
	if t == nil {
		t = DefaultTuning()
	}
	m := NewMapGenerator(seed).GenerateWithTerrain(t.MapWidth, t.MapHeight, kind)
	return NewController(NewGameState(seed, m, t), t)
}

// GetState returns the live game state. Callers must treat it as read-only;
// all mutation goes through Update and Dispatch.
func (c *Controller) GetState() *GameState {
	return c.state
}

// GetTuning returns the gameplay constants this controller runs with.
func (c *Controller) GetTuning() *Tuning {
	return c.tuning
}

// GetDraft returns the line currently being drawn, or nil.
func (c *Controller) GetDraft() *MetroLine {
	return c.lines.Draft()
}

// SetState replaces the game state, used when loading a saved game. The
// catchment cache is cleared because it was computed against the old map.
func (c *Controller) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	c.state = state
	c.rng = rand.New(rand.NewSource(state.Seed ^ int64(state.Clock*60000)))
	c.spawner = NewPassengerSpawner(c.tuning, c.rng)
	return nil
}

// Update advances the simulation by dtMs real milliseconds. While paused the
// clock does not move and nothing is notified. Within one tick spawning runs
// before train movement; that order is load-bearing for passenger counts.
func (c *Controller) Update(dtMs float64) {
	if c.state.Paused || dtMs <= 0 {
		return
	}
	dt := dtMs / 1000 * c.tuning.MinutesPerSecond * float64(c.state.Speed)
	c.state.Clock += dt

	c.spawner.Tick(c.state, dt)
	c.movement.Tick(c.state, dt)

	c.notify()
}

// Dispatch routes a typed action to the matching manager call. Subscribers
// are notified after every successful mutation.
func (c *Controller) Dispatch(a Action) Result {
	var res Result
	switch act := a.(type) {
	case PlaceStationAction:
		res = c.stations.Place(c.state, act.X, act.Y)
	case RemoveStationAction:
		res = c.stations.Remove(c.state, act.StationID)
	case StartLineAction:
		res = c.lines.Start(c.state, act.Color, act.StationID)
	case AddStationToLineAction:
		res = c.lines.AddStation(c.state, act.StationID)
	case CompleteLineAction:
		res = c.lines.Complete(c.state, c.trains)
	case CancelLineAction:
		res = c.lines.Cancel()
	case AddTrainAction:
		res = c.trains.Add(c.state, act.LineID)
	case RemoveTrainAction:
		res = c.trains.Remove(c.state, act.TrainID)
	case PauseAction:
		c.state.Paused = true
		res = okResult(nil)
	case ResumeAction:
		c.state.Paused = false
		res = okResult(nil)
	case SetSpeedAction:
		if act.Speed != SpeedNormal && act.Speed != SpeedDouble && act.Speed != SpeedQuad {
			res = failResult("speed validation: speed must be %d, %d or %d, got %d",
				SpeedNormal, SpeedDouble, SpeedQuad, act.Speed)
		} else {
			c.state.Speed = act.Speed
			res = okResult(act.Speed)
		}
	default:
		res = failResult("unknown action %T", a)
	}

	if res.Success {
		c.notify()
	}
	return res
}

// Subscribe registers a listener invoked after every successful mutation or
// unpaused tick. The returned function unsubscribes it.
func (c *Controller) Subscribe(fn func()) func() {
	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range c.subscribers {
			if sub.id == id {
				c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) notify() {
	for _, sub := range c.subscribers {
		sub.fn()
	}
}
