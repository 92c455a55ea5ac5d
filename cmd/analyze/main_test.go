package main

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/infinite-sweeper/game/config"
)

func smallConfig() *config.GameConfig {
	cfg := config.DefaultGameConfig()
	cfg.Name = "small"
	cfg.SectionLength = 8
	cfg.MineRatio = 0.2
	return cfg
}

func TestAnalyzeConfig(t *testing.T) {
	a, err := analyzeConfig(smallConfig(), rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	assert.Equal(t, "small", a.Name)
	assert.Equal(t, 9, a.Sections)
	assert.Equal(t, 9*64, a.Tiles)

	safe := 0
	for _, count := range a.Numbers {
		safe += count
	}
	assert.Equal(t, a.Tiles, safe+a.Mines)
	// every section places 12 mines and linking only ever removes some
	assert.Equal(t, 9*12, a.Mines+a.Demoted)
	assert.GreaterOrEqual(t, a.Opened, 1)
}

func TestAnalyzeConfigIsDeterministic(t *testing.T) {
	first, err := analyzeConfig(smallConfig(), rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	second, err := analyzeConfig(smallConfig(), rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDensity(t *testing.T) {
	assert.Zero(t, Analysis{}.Density())
	assert.InDelta(t, 0.25, Analysis{Tiles: 8, Mines: 2}.Density(), 1e-9)
}

func TestPrintAnalysis(t *testing.T) {
	cfg := smallConfig()
	var buf bytes.Buffer
	printAnalysis(&buf, cfg, Analysis{Name: "small", Sections: 9, Tiles: 100, Mines: 20, Opened: 1})

	out := buf.String()
	assert.Contains(t, out, "Sections: 9 of 8x8 tiles")
	assert.Contains(t, out, "Mine Ratio: 0.200 configured, 0.200 generated")
	assert.Contains(t, out, "opens a single tile")

	buf.Reset()
	printAnalysis(&buf, cfg, Analysis{Name: "small", Opened: 30})
	assert.Contains(t, buf.String(), "opens 30 tiles")
}
