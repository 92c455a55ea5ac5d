package main

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/infinite-sweeper/game/config"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "sparse.json", `{
		"name": "Sparse",
		"description": "Few mines",
		"section_length": 10,
		"mine_ratio": 0.1,
		"max_view_size": 10,
		"max_fetch_area": 1000
	}`)

	result := validateConfig(path)
	require.True(t, result.Valid, "unexpected errors: %v", result.Errors)
	assert.Equal(t, "sparse.json", result.File)
	assert.Empty(t, result.Warnings)
	assert.Contains(t, result.Errors, "✓ Name: Sparse")
	assert.Contains(t, result.Errors, "✓ Sections: 10x10")
	assert.Contains(t, result.Errors, "✓ Mines per section: 10 (ratio 0.10)")
	assert.Contains(t, result.Errors, "✓ Largest view: 21x21 of 1000 fetchable tiles")
}

func TestValidateConfig_YAMLDefaultsName(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "tiny.yaml", "section_length: 8\nmine_ratio: 0.15\n")

	result := validateConfig(path)
	require.True(t, result.Valid, "unexpected errors: %v", result.Errors)
	assert.Contains(t, result.Errors, "✓ Name: tiny")
}

func TestValidateConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "broken.json", `{"name": "test", invalid json}`)

	result := validateConfig(path)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "failed to parse broken.json")
}

func TestValidateConfig_UnknownField(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "typo.json", `{"name": "typo", "mine_ration": 0.2}`)

	result := validateConfig(path)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "mine_ration")
}

func TestValidateConfig_ReportsEveryProblem(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "bad.json", `{
		"name": "bad",
		"section_length": 5000,
		"mine_ratio": 1.5,
		"spawn_attempts": -1
	}`)

	result := validateConfig(path)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "section_length 5000")
	assert.Contains(t, result.Errors[1], "mine_ratio 1.5")
	assert.Contains(t, result.Errors[2], "spawn_attempts -1")
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "failed to read config file")
}

func TestSampleGeneration(t *testing.T) {
	cfg := config.DefaultGameConfig()
	cfg.SectionLength = 20
	cfg.MineRatio = 0.2

	want, placed := sampleGeneration(cfg, rand.New(rand.NewSource(7)))
	assert.Equal(t, 80, want)
	assert.Equal(t, want*sampleSections, placed)
}

func TestConfigFiles(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "b.yaml", "")
	writeConfig(t, dir, "a.json", "")
	writeConfig(t, dir, "c.yml", "")
	writeConfig(t, dir, "notes.txt", "")

	files, err := configFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "c.yml"),
	}, files)
}
