// Command analyze prints quick, human-readable statistics about the boards a
// configuration generates. For every configuration in the config directory
// (configs by default) it materializes a square of sections around the origin
// and reports the mine density actually reached, the distribution of neighbor
// numbers, the mines demoted while linking sections and the size of the region
// a first click at the origin opens.
package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/wricardo/infinite-sweeper/game/board"
	"github.com/wricardo/infinite-sweeper/game/config"
	"github.com/wricardo/infinite-sweeper/logging"
)

// radius is how many sections are generated on each side of the origin
const radius = 1

// Analysis summarizes the sections generated around the origin.
type Analysis struct {
	Name     string
	Sections int
	Tiles    int
	Mines    int
	Demoted  int
	// Numbers counts safe tiles by their neighbor number.
	Numbers [board.MaxNumber + 1]int
	// Opened is how many tiles the first click at the origin opens.
	Opened int
}

// Density is the share of generated tiles that are mines
func (a Analysis) Density() float64 {
	if a.Tiles == 0 {
		return 0
	}
	return float64(a.Mines) / float64(a.Tiles)
}

func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	manager, err := config.NewManager(configDir)
	if err != nil {
		fmt.Printf("Error loading configs: %v\n", err)
		os.Exit(1)
	}
	infos, err := manager.ListConfigs()
	if err != nil {
		fmt.Printf("Error listing configs: %v\n", err)
		os.Exit(1)
	}

	ids := []string{config.DefaultName}
	for _, info := range infos {
		if info.ConfigID != config.DefaultName {
			ids = append(ids, info.ConfigID)
		}
	}

	for _, id := range ids {
		fmt.Printf("\n=== Analyzing %s ===\n", id)
		cfg, err := manager.LoadConfig(id)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			continue
		}
		a, err := analyzeConfig(cfg, rand.New(rand.NewSource(1)))
		if err != nil {
			fmt.Printf("Error analyzing config: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, cfg, a)
	}
}

// analyzeConfig generates the sections within radius of the origin and
// measures them, then opens the origin
func analyzeConfig(cfg *config.GameConfig, rng *rand.Rand) (Analysis, error) {
	opts := cfg.BoardOptions()
	opts.Rand = rng
	opts.Logger = logging.Discard()
	b := board.New(opts)

	n := cfg.SectionLength
	start := board.Point{X: -radius * n, Y: (radius+1)*n - 1}
	end := board.Point{X: (radius+1)*n - 1, Y: -radius * n}
	data, err := b.Fetch(start, end)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{Name: cfg.Name, Tiles: len(data)}
	for _, v := range data {
		t, err := board.DecodeTile(v)
		if err != nil {
			return Analysis{}, err
		}
		if t.IsMine {
			a.Mines++
			continue
		}
		a.Numbers[t.Number]++
	}
	stats := b.Stats()
	a.Sections = stats.Sections
	a.Demoted = stats.Demoted

	_, _, tiles, err := b.OpenTilesCascade(board.Point{})
	if err != nil {
		return Analysis{}, err
	}
	for _, v := range tiles {
		if t, err := board.DecodeTile(v); err == nil && t.IsOpen {
			a.Opened++
		}
	}
	return a, nil
}

func printAnalysis(w io.Writer, cfg *config.GameConfig, a Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Sections: %d of %dx%d tiles\n", a.Sections, cfg.SectionLength, cfg.SectionLength)
	fmt.Fprintf(w, "Mine Ratio: %.3f configured, %.3f generated\n", cfg.MineRatio, a.Density())
	fmt.Fprintf(w, "Mines Demoted While Linking: %d\n", a.Demoted)
	fmt.Fprintf(w, "Neighbor Numbers:\n")
	for num, count := range a.Numbers {
		fmt.Fprintf(w, "   %d: %d\n", num, count)
	}

	if a.Opened <= 1 {
		fmt.Fprintf(w, "⚠️  WARNING: the first click at the origin opens a single tile\n")
	} else {
		fmt.Fprintf(w, "✅ The first click at the origin opens %d tiles\n", a.Opened)
	}
}
