// Command validate provides a small CLI that validates board configuration
// files (.json, .yaml, .yml) in a directory, ../configs by default. It checks:
//   - Structure, with unknown fields rejected
//   - Every bound enforced by the server (section length, mine ratio, limits)
//   - That the largest viewport fits in one tile fetch
//   - That a generated section actually reaches the configured mine count
package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/wricardo/infinite-sweeper/game/board"
	"github.com/wricardo/infinite-sweeper/game/config"
)

// sampleSections is how many sections are generated per file
const sampleSections = 4

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
}

// validateConfig loads and validates a single configuration file, then
// samples section generation with it.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	cfg, err := config.LoadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, problems(err)...)
		return result
	}

	want, placed := sampleGeneration(cfg, rand.New(rand.NewSource(1)))
	if placed < want*sampleSections {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Generated sections average %.1f of %d mines; the ratio is too dense to place them all",
			float64(placed)/sampleSections, want))
	}

	view := 2*cfg.MaxViewSize + 1
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", cfg.Name))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Sections: %dx%d", cfg.SectionLength, cfg.SectionLength))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Mines per section: %d (ratio %.2f)", want, cfg.MineRatio))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Largest view: %dx%d of %d fetchable tiles", view, view, cfg.MaxFetchArea))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Revive cooldown: %s", cfg.ReviveCooldown()))

	return result
}

// problems splits a validation error into one message per problem
func problems(err error) []string {
	var msgs []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if e == config.ErrInvalidConfig {
				continue
			}
			for _, cause := range multierr.Errors(e) {
				msgs = append(msgs, cause.Error())
			}
		}
	}
	if len(msgs) == 0 {
		return []string{err.Error()}
	}
	return msgs
}

// sampleGeneration creates a few sections with cfg and reports the mine count
// each should have and how many were placed over all of them.
func sampleGeneration(cfg *config.GameConfig, rng *rand.Rand) (want, placed int) {
	want = int(math.Floor(float64(cfg.SectionLength*cfg.SectionLength) * cfg.MineRatio))
	for i := range sampleSections {
		s := board.CreateSection(board.Point{X: i}, cfg.SectionLength, cfg.MineRatio, rng)
		placed += s.MineCount()
	}
	return want, placed
}

// configFiles lists the configuration files of dir in name order
func configFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// main validates every configuration in the directory given as the first
// argument, printing a concise report and exiting with non-zero status if
// any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	files, err := configFiles(configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

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
				fmt.Println("  ❌ " + err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Println("  ⚠️  " + warning)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
