// Command validate checks every tuning JSON file in the configs directory.
// It checks:
//   - JSON structure, including keys the loader would silently ignore
//   - The engine's own tuning rules (value ranges, regime hours, colors)
//   - Playability: affordability of a first line, income being possible,
//     spawn rates above zero, and spawn regime windows that behave
//   - Name uniqueness across files
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rahulYUV/metromap.io/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Name   string
	Valid  bool
	Errors []string
}

// validateConfig loads and validates a single tuning JSON file. It performs
// structural checks, the engine's rule validation, and playability analysis.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var probe engine.Tuning
	if err := json.Unmarshal(data, &probe); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	// The loader ignores unknown keys, so a typo'd knob silently keeps its
	// default value. Catch that here.
	strict := json.NewDecoder(bytes.NewReader(data))
	strict.DisallowUnknownFields()
	if err := strict.Decode(new(engine.Tuning)); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Unrecognized key: %v", err))
	}

	// Overlay on defaults the same way the loader does, then apply the
	// engine's rules.
	tuning := engine.DefaultTuning()
	if err := json.Unmarshal(data, tuning); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}
	result.Name = tuning.Name

	if err := engine.ValidateTuning(tuning); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	// Playability analysis only makes sense once the values themselves are legal
	if result.Valid {
		for _, problem := range playabilityProblems(tuning) {
			result.Valid = false
			result.Errors = append(result.Errors, problem)
		}
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", tuning.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Map: %dx%d", tuning.MapWidth, tuning.MapHeight))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Economy: start $%.0f, station $%.0f, fare $%.0f", tuning.StartingMoney, tuning.StationCost, tuning.Fare))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Trains: speed %.1f, capacity %d, max %d per line", tuning.TrainSpeed, tuning.TrainCapacity, tuning.MaxTrainsPerLine))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Rush: %02d-%02d and %02d-%02d (x%.1f), night %02d-%02d (x%.2f)",
			tuning.MorningStart, tuning.MorningEnd, tuning.EveningStart, tuning.EveningEnd,
			tuning.RushMultiplier, tuning.NightStart, tuning.NightEnd, tuning.NightMultiplier))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Line colors: %d", len(tuning.LineColors)))
	}

	return result
}

// playabilityProblems reports configurations that pass the engine's rules but
// produce an unwinnable or degenerate game.
func playabilityProblems(t *engine.Tuning) []string {
	var problems []string

	if t.StartingMoney < 2*t.StationCost {
		problems = append(problems, fmt.Sprintf(
			"Starting money $%.0f cannot afford the two stations a first line needs (station_cost $%.0f)",
			t.StartingMoney, t.StationCost))
	}

	if t.Fare == 0 && t.RunningCostPerUnit > 0 {
		problems = append(problems, fmt.Sprintf(
			"Fare is zero while running trains costs $%.3f per unit; income is impossible", t.RunningCostPerUnit))
	}

	if t.SpawnBase == 0 {
		problems = append(problems, "spawn_base is zero; no passenger will ever spawn")
	}

	// The night window is evaluated as hour >= start || hour < end, so it must
	// wrap midnight. A non-wrapping window marks every hour as night.
	if t.NightStart <= t.NightEnd {
		problems = append(problems, fmt.Sprintf(
			"Night window %02d-%02d does not wrap midnight, so every hour counts as night", t.NightStart, t.NightEnd))
	} else {
		inNight := func(h int) bool { return h >= t.NightStart || h < t.NightEnd }
		for _, rush := range []struct {
			name       string
			start, end int
		}{
			{"Morning", t.MorningStart, t.MorningEnd},
			{"Evening", t.EveningStart, t.EveningEnd},
		} {
			for h := rush.start; h < rush.end; h++ {
				if inNight(h) {
					problems = append(problems, fmt.Sprintf(
						"%s rush %02d-%02d overlaps the night window %02d-%02d",
						rush.name, rush.start, rush.end, t.NightStart, t.NightEnd))
					break
				}
			}
		}
	}

	return problems
}

// main scans the configs directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are
// invalid.
func main() {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "configs"
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding tuning files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No tuning files found in %s\n", configDir)
		os.Exit(1)
	}

	names := map[string]string{}
	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		// Tunings are looked up by name, so a duplicate shadows another file
		if result.Valid && result.Name != "" {
			if prev, dup := names[result.Name]; dup {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("Duplicate tuning name %q also defined in %s", result.Name, prev))
			} else {
				names[result.Name] = result.File
			}
		}

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All tunings are valid!")
	} else {
		fmt.Println("❌ Some tunings have errors")
		os.Exit(1)
	}
}
