package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Tuning holds every numeric gameplay constant. Tunings are loaded from JSON
// files in the configs directory; DefaultTuning is the built-in fallback.
type Tuning struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	MapWidth  int `json:"map_width"`
	MapHeight int `json:"map_height"`

	// economy
	StartingMoney      float64 `json:"starting_money"`
	StationCost        float64 `json:"station_cost"`
	LineCostPerUnit    float64 `json:"line_cost_per_unit"`
	RunningCostPerUnit float64 `json:"running_cost_per_unit"`
	Fare               float64 `json:"fare"`

	// trains; speed is distance units per simulation minute, the accel and
	// dwell values are distances in the same units
	TrainSpeed       float64 `json:"train_speed"`
	AccelDistance    float64 `json:"accel_distance"`
	DwellDistance    float64 `json:"dwell_distance"`
	TrainCapacity    int     `json:"train_capacity"`
	MaxTrainsPerLine int     `json:"max_trains_per_line"`

	// passenger spawning
	SpawnBase       float64 `json:"spawn_base"` // per station per sim minute at full catchment
	CatchmentRadius int     `json:"catchment_radius"`
	CatchmentScale  float64 `json:"catchment_scale"`
	MaxSpawnChance  float64 `json:"max_spawn_chance"`

	// time-of-day regimes, hours 0..23
	MorningStart    int     `json:"morning_start"`
	MorningEnd      int     `json:"morning_end"`
	EveningStart    int     `json:"evening_start"`
	EveningEnd      int     `json:"evening_end"`
	NightStart      int     `json:"night_start"`
	NightEnd        int     `json:"night_end"`
	RushMultiplier  float64 `json:"rush_multiplier"`
	NightMultiplier float64 `json:"night_multiplier"`

	// clock: simulation minutes advanced per real second at speed 1, and the
	// in-universe hour a new game starts at
	MinutesPerSecond float64 `json:"minutes_per_second"`
	StartHour        int     `json:"start_hour"`

	LineColors []string `json:"line_colors"`
}

// DefaultTuning returns the built-in gameplay constants used when no tuning
// file is provided.
func DefaultTuning() *Tuning {
	return &Tuning{
		Name:        "default",
		Description: "Built-in balanced ruleset",

		MapWidth:  40,
		MapHeight: 30,

		StartingMoney:      1000,
		StationCost:        100,
		LineCostPerUnit:    10,
		RunningCostPerUnit: 0.05,
		Fare:               25,

		TrainSpeed:       12,
		AccelDistance:    1.5,
		DwellDistance:    2,
		TrainCapacity:    6,
		MaxTrainsPerLine: 5,

		SpawnBase:       0.35,
		CatchmentRadius: 3,
		CatchmentScale:  900,
		MaxSpawnChance:  0.25,

		MorningStart:    7,
		MorningEnd:      10,
		EveningStart:    16,
		EveningEnd:      19,
		NightStart:      22,
		NightEnd:        6,
		RushMultiplier:  3,
		NightMultiplier: 0.1,

		MinutesPerSecond: 1,
		StartHour:        7,

		LineColors: []string{"red", "blue", "green", "yellow", "purple", "orange", "teal", "pink"},
	}
}

// ValidateTuning validates a tuning for correctness and playability
func ValidateTuning(t *Tuning) error {
	if t.Name == "" {
		return fmt.Errorf("tuning validation: name is required")
	}
	if t.MapWidth < MinMapSize || t.MapWidth > MaxMapSize {
		return fmt.Errorf("tuning validation: map_width must be between %d and %d, got %d", MinMapSize, MaxMapSize, t.MapWidth)
	}
	if t.MapHeight < MinMapSize || t.MapHeight > MaxMapSize {
		return fmt.Errorf("tuning validation: map_height must be between %d and %d, got %d", MinMapSize, MaxMapSize, t.MapHeight)
	}
	if t.StationCost < 0 || t.LineCostPerUnit < 0 || t.RunningCostPerUnit < 0 {
		return fmt.Errorf("tuning validation: costs must not be negative")
	}
	if t.Fare < 0 {
		return fmt.Errorf("tuning validation: fare must not be negative, got %v", t.Fare)
	}
	if t.TrainSpeed <= 0 {
		return fmt.Errorf("tuning validation: train_speed must be positive, got %v", t.TrainSpeed)
	}
	if t.AccelDistance <= 0 {
		return fmt.Errorf("tuning validation: accel_distance must be positive, got %v", t.AccelDistance)
	}
	if t.DwellDistance < 0 {
		return fmt.Errorf("tuning validation: dwell_distance must not be negative, got %v", t.DwellDistance)
	}
	if t.TrainCapacity < 1 || t.TrainCapacity > 24 {
		return fmt.Errorf("tuning validation: train_capacity must be between 1 and 24, got %d", t.TrainCapacity)
	}
	if t.MaxTrainsPerLine < 1 {
		return fmt.Errorf("tuning validation: max_trains_per_line must be at least 1, got %d", t.MaxTrainsPerLine)
	}
	if t.SpawnBase < 0 {
		return fmt.Errorf("tuning validation: spawn_base must not be negative, got %v", t.SpawnBase)
	}
	if t.CatchmentRadius < 1 || t.CatchmentRadius > 10 {
		return fmt.Errorf("tuning validation: catchment_radius must be between 1 and 10, got %d", t.CatchmentRadius)
	}
	if t.CatchmentScale <= 0 {
		return fmt.Errorf("tuning validation: catchment_scale must be positive, got %v", t.CatchmentScale)
	}
	if t.MaxSpawnChance <= 0 || t.MaxSpawnChance > 1 {
		return fmt.Errorf("tuning validation: max_spawn_chance must be in (0,1], got %v", t.MaxSpawnChance)
	}
	for _, h := range []struct {
		name string
		v    int
	}{
		{"morning_start", t.MorningStart}, {"morning_end", t.MorningEnd},
		{"evening_start", t.EveningStart}, {"evening_end", t.EveningEnd},
		{"night_start", t.NightStart}, {"night_end", t.NightEnd},
		{"start_hour", t.StartHour},
	} {
		if h.v < 0 || h.v > 23 {
			return fmt.Errorf("tuning validation: %s must be an hour 0..23, got %d", h.name, h.v)
		}
	}
	if t.MorningStart >= t.MorningEnd {
		return fmt.Errorf("tuning validation: morning_start (%d) must be before morning_end (%d)", t.MorningStart, t.MorningEnd)
	}
	if t.EveningStart >= t.EveningEnd {
		return fmt.Errorf("tuning validation: evening_start (%d) must be before evening_end (%d)", t.EveningStart, t.EveningEnd)
	}
	if t.RushMultiplier <= 0 || t.NightMultiplier <= 0 {
		return fmt.Errorf("tuning validation: regime multipliers must be positive")
	}
	if t.MinutesPerSecond <= 0 {
		return fmt.Errorf("tuning validation: minutes_per_second must be positive, got %v", t.MinutesPerSecond)
	}
	if len(t.LineColors) < 1 {
		return fmt.Errorf("tuning validation: line_colors must list at least one color")
	}
	seen := make(map[string]bool, len(t.LineColors))
	for _, c := range t.LineColors {
		if c == "" {
			return fmt.Errorf("tuning validation: line_colors must not contain empty entries")
		}
		if seen[c] {
			return fmt.Errorf("tuning validation: duplicate line color %q", c)
		}
		seen[c] = true
	}
	return nil
}

// LoadTuning loads a tuning from a JSON file
func LoadTuning(filename string) (*Tuning, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	path := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			path = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Start from defaults so older tuning files missing newer knobs stay valid
	t := DefaultTuning()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, err
	}

	if err := ValidateTuning(t); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTuningByName loads a tuning by name from the configs directory
func LoadTuningByName(name string) (*Tuning, error) {
	if !strings.HasSuffix(name, ".json") {
		name = name + ".json"
	}

	path := filepath.Join("configs", name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("tuning file '%s' not found", name)
	}

	t, err := LoadTuning(path)
	if err != nil {
		return nil, fmt.Errorf("invalid tuning '%s': %v", name, err)
	}
	return t, nil
}

// NewGameState creates a fresh state around a generated map.
func NewGameState(seed int64, m *MapGrid, t *Tuning) *GameState {
	if t == nil {
		t = DefaultTuning()
	}
	return &GameState{
		Seed:       seed,
		Map:        m,
		Stations:   []*Station{},
		Lines:      []*MetroLine{},
		Passengers: []*Passenger{},
		Clock:      float64(t.StartHour) * 60,
		Money:      t.StartingMoney,
		Paused:     false,
		Speed:      SpeedNormal,
	}
}
