// Package config provides world configuration management for the sweeper
// server.
//
// The config package handles:
//   - Loading configurations from JSON or YAML files
//   - Filling unset fields from the built-in default
//   - Validation that reports every problem at once
//   - Configuration discovery, listing and saving
//   - A JSON schema of the configuration format
//
// Configuration Format:
//
// Each file in the config directory describes one world:
//
//	name: dense
//	description: Twice the usual mines
//	section_length: 64
//	mine_ratio: 0.4
//	revive_cooldown_seconds: 60
//
// Omitted fields take the values of DefaultGameConfig. The file name without
// its extension is the config id.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load a specific configuration
//	cfg, err := manager.LoadConfig("dense")
//
//	// Get the default configuration ("default" on disk, else built in)
//	cfg = manager.GetDefault()
//
//	// List available configurations
//	configs, err := manager.ListConfigs()
package config
