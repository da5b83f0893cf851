// Command metromap is the developer CLI for working with the simulation
// offline: preview generated maps, run headless simulations, and inspect
// saved games without starting the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/rahulYUV/metromap.io/game/engine"
	"github.com/rahulYUV/metromap.io/game/session"
)

func main() {
	cmd := &cli.Command{
		Name:  "metromap",
		Usage: "MetroMap developer tools",
		Commands: []*cli.Command{
			mapgenCommand(),
			simulateCommand(),
			inspectCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func mapgenCommand() *cli.Command {
	return &cli.Command{
		Name:  "mapgen",
		Usage: "Generate a map and print it with terrain statistics",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "seed", Value: 0, Usage: "Generation seed (0 picks a random one)"},
			&cli.IntFlag{Name: "width", Value: 40, Usage: "Map width in tiles"},
			&cli.IntFlag{Name: "height", Value: 30, Usage: "Map height in tiles"},
			&cli.StringFlag{Name: "terrain", Value: "river", Usage: "Terrain kind: river or archipelago"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			seed := int64(cmd.Int("seed"))
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			kind, err := parseTerrain(cmd.String("terrain"))
			if err != nil {
				return err
			}

			m := engine.GenerateMapWithTerrain(seed, int(cmd.Int("width")), int(cmd.Int("height")), kind)

			fmt.Printf("seed %d  terrain %s  %dx%d\n\n", seed, m.Terrain, m.Width, m.Height)
			fmt.Print(renderGrid(m))
			fmt.Println()
			printGridStats(m)
			return nil
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run a headless simulation and print hourly progress",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "seed", Value: 0, Usage: "Generation seed (0 picks a random one)"},
			&cli.IntFlag{Name: "minutes", Value: 60, Usage: "In-game minutes to simulate"},
			&cli.IntFlag{Name: "speed", Value: 1, Usage: "Speed multiplier: 1, 2 or 4"},
			&cli.StringFlag{Name: "terrain", Value: "river", Usage: "Terrain kind: river or archipelago"},
			&cli.StringFlag{Name: "tuning", Value: "", Usage: "Tuning name from the configs directory"},
			&cli.StringFlag{Name: "state", Value: "", Usage: "Saved game to continue instead of a fresh map"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tuning := engine.DefaultTuning()
			if name := cmd.String("tuning"); name != "" {
				var err error
				tuning, err = engine.LoadTuningByName(name)
				if err != nil {
					return err
				}
			}

			var ctrl *engine.Controller
			if path := cmd.String("state"); path != "" {
				state, _, err := readSavedState(path)
				if err != nil {
					return err
				}
				ctrl = engine.NewController(state, tuning)
			} else {
				seed := int64(cmd.Int("seed"))
				if seed == 0 {
					seed = time.Now().UnixNano()
				}
				kind, err := parseTerrain(cmd.String("terrain"))
				if err != nil {
					return err
				}
				fmt.Printf("seed %d\n", seed)
				ctrl = engine.NewGameWithTerrain(seed, kind, tuning)
			}

			if ctrl.GetState().Paused {
				ctrl.Dispatch(engine.ResumeAction{})
			}
			if speed := int(cmd.Int("speed")); speed != engine.SpeedNormal {
				if r := ctrl.Dispatch(engine.SetSpeedAction{Speed: speed}); !r.Success {
					return fmt.Errorf("%s", r.Error)
				}
			}

			return runSimulation(ctrl, int(cmd.Int("minutes")))
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Print the contents of a saved game",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Usage: "Path to a saved game JSON file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			state, envelope, err := readSavedState(cmd.String("file"))
			if err != nil {
				return err
			}
			printSave(state, envelope)
			return nil
		},
	}
}

func parseTerrain(name string) (engine.TerrainKind, error) {
	switch name {
	case string(engine.TerrainRiver):
		return engine.TerrainRiver, nil
	case string(engine.TerrainArchipelago):
		return engine.TerrainArchipelago, nil
	default:
		return "", fmt.Errorf("unknown terrain %q (want %q or %q)",
			name, engine.TerrainRiver, engine.TerrainArchipelago)
	}
}

// readSavedState reads either a bare engine save or the server's session
// envelope; it returns the envelope too when one was present.
func readSavedState(path string) (*engine.GameState, *session.PersistedSessionData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var envelope session.PersistedSessionData
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.State) > 0 {
		state, err := engine.ParseState(string(envelope.State))
		if err != nil {
			return nil, nil, fmt.Errorf("corrupt save %s: %w", path, err)
		}
		return state, &envelope, nil
	}

	state, err := engine.ParseState(string(data))
	if err != nil {
		return nil, nil, fmt.Errorf("corrupt save %s: %w", path, err)
	}
	return state, nil, nil
}

// runSimulation steps the clock in quarter-second slices until the requested
// number of in-game minutes has passed, printing a line at the top of every
// in-game hour.
func runSimulation(ctrl *engine.Controller, minutes int) error {
	const stepMs = 250

	state := ctrl.GetState()
	startClock := state.Clock
	startMoney := state.Money
	startSpawned := state.PassengerSeq
	startAlive := len(state.Passengers)
	lastHour := state.HourOfDay()

	// Advancing stops if someone hands us a paused save the resume above
	// could not unpause; the cap turns that into an error instead of a hang.
	rate := ctrl.GetTuning().MinutesPerSecond * float64(state.Speed)
	if rate <= 0 {
		rate = 1
	}
	maxSteps := int(float64(minutes)/rate*1000/stepMs)*4 + 16
	for step := 0; state.Clock-startClock < float64(minutes); step++ {
		if step > maxSteps {
			return fmt.Errorf("simulation stalled at clock %.1f", state.Clock)
		}
		ctrl.Update(stepMs)

		if hour := state.HourOfDay(); hour != lastHour {
			lastHour = hour
			fmt.Printf("%02d:00  money $%.0f  passengers %d  waiting %d\n",
				hour, state.Money, len(state.Passengers), totalWaiting(state))
		}
	}

	spawned := state.PassengerSeq - startSpawned
	delivered := spawned + startAlive - len(state.Passengers)
	fmt.Printf("\nsimulated %.0f minutes\n", state.Clock-startClock)
	fmt.Printf("money $%.0f (%+.0f)\n", state.Money, state.Money-startMoney)
	fmt.Printf("passengers spawned %d, delivered %d, still travelling %d\n",
		spawned, delivered, len(state.Passengers))
	fmt.Printf("stations %d  lines %d  trains %d\n",
		len(state.Stations), len(state.Lines), totalTrains(state))
	return nil
}

func printSave(state *engine.GameState, envelope *session.PersistedSessionData) {
	if envelope != nil {
		fmt.Printf("session %s  tuning %s\n", envelope.ID, envelope.TuningName)
		fmt.Printf("created %s  last accessed %s\n",
			envelope.CreatedAt.Format(time.RFC3339), envelope.LastAccessedAt.Format(time.RFC3339))
	}

	mins := int(state.Clock)
	fmt.Printf("seed %d  map %dx%d %s\n", state.Seed, state.Map.Width, state.Map.Height, state.Map.Terrain)
	fmt.Printf("clock day %d %02d:%02d  money $%.0f  speed x%d", mins/1440+1, state.HourOfDay(), mins%60, state.Money, state.Speed)
	if state.Paused {
		fmt.Print("  [paused]")
	}
	fmt.Println()

	fmt.Printf("\nstations (%d):\n", len(state.Stations))
	for _, st := range state.Stations {
		fmt.Printf("  %s %s at (%d,%d), %d waiting\n", st.Label, st.ID, st.V.X, st.V.Y, len(st.Queue))
	}

	fmt.Printf("\nlines (%d):\n", len(state.Lines))
	for _, l := range state.Lines {
		shape := ""
		if l.Loop {
			shape = " (loop)"
		}
		fmt.Printf("  %s %s: %s%s, %d trains\n", l.Color, l.ID, strings.Join(l.Stations, " > "), shape, len(l.Trains))
	}

	fmt.Printf("\npassengers travelling: %d\n", len(state.Passengers))

	if err := engine.ValidatePassengerConsistency(state); err != nil {
		fmt.Printf("consistency: %v\n", err)
	} else {
		fmt.Println("consistency: ok")
	}
}

// renderGrid draws the tile grid: '~' for water, density bands for land.
func renderGrid(m *engine.MapGrid) string {
	var b strings.Builder
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			b.WriteByte(tileGlyph(m.Tiles[y][x]))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func tileGlyph(t engine.Tile) byte {
	if t.Type == engine.TileWater {
		return '~'
	}
	switch density := t.Residential + t.Office; {
	case density >= 120:
		return '#'
	case density >= 60:
		return '+'
	case density >= 20:
		return '.'
	default:
		return ' '
	}
}

func printGridStats(m *engine.MapGrid) {
	land := 0
	totalRes, totalOff := 0, 0
	peak, peakX, peakY := 0, 0, 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			t := m.Tiles[y][x]
			if t.Type == engine.TileLand {
				land++
			}
			totalRes += t.Residential
			totalOff += t.Office
			if d := t.Residential + t.Office; d > peak {
				peak, peakX, peakY = d, x, y
			}
		}
	}
	total := m.Width * m.Height
	fmt.Printf("land %d/%d tiles (%.0f%%)\n", land, total, float64(land)/float64(total)*100)
	fmt.Printf("residential density %d  office density %d\n", totalRes, totalOff)
	fmt.Printf("densest tile (%d,%d) with %d\n", peakX, peakY, peak)
}

func totalWaiting(state *engine.GameState) int {
	waiting := 0
	for _, st := range state.Stations {
		waiting += len(st.Queue)
	}
	return waiting
}

func totalTrains(state *engine.GameState) int {
	trains := 0
	for _, l := range state.Lines {
		trains += len(l.Trains)
	}
	return trains
}
