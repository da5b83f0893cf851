// Package config provides tuning management for the metro game.
//
// The config package handles:
//   - Loading gameplay tunings from JSON files
//   - Tuning validation and verification
//   - Default tuning management
//   - Tuning discovery and listing
//
// Tuning Format:
//
// Tunings are stored as JSON files in the configs directory. Each tuning
// defines:
//   - Map dimensions for procedural generation
//   - Economy knobs (starting money, station and line costs, fare)
//   - Train motion parameters (speed, acceleration and dwell distances)
//   - Passenger spawning rates and time-of-day regime windows
//   - The line color palette
//
// Files are unmarshalled on top of the built-in defaults, so a tuning only
// has to name the knobs it changes.
//
// Available Tunings:
//
// The package ships with several rulesets:
//   - default: the balanced base game
//   - sandbox: generous money and cheap construction for experimenting
//   - crunch: a dense small map with aggressive rush hours
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load a specific tuning
//	tuning, err := manager.Load("sandbox")
//
//	// Get the default tuning
//	def := manager.GetDefault()
//
//	// List available tunings
//	infos, err := manager.List()
//
// Validation:
//
// All tunings are validated for:
//   - Map dimensions within the supported range
//   - Non-negative costs and fares
//   - Positive train motion and capacity parameters
//   - Coherent regime windows and multipliers
//   - A non-empty, duplicate-free color palette
package config
