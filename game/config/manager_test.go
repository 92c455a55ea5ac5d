package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDefaultGameConfigIsValid(t *testing.T) {
	cfg := DefaultGameConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3*time.Minute, cfg.ReviveCooldown())

	opts := cfg.BoardOptions()
	assert.Equal(t, cfg.SectionLength, opts.SectionLength)
	assert.Equal(t, cfg.MineRatio, opts.MineRatio)
}

func TestValidateAggregatesProblems(t *testing.T) {
	cfg := &GameConfig{
		SectionLength:         -1,
		MineRatio:             1.5,
		ReviveCooldownSeconds: 10,
		SpawnAttempts:         10,
		MaxCascade:            10,
		MaxViewSize:           10,
		MaxFetchArea:          10,
	}
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	msg := err.Error()
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "section_length -1")
	assert.Contains(t, msg, "mine_ratio 1.5")
	assert.Contains(t, msg, "smaller than the largest view")
	assert.NotContains(t, msg, "spawn_attempts")
}

func TestClampView(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.MaxViewSize = 10
	w, h := cfg.ClampView(50, -3)
	assert.Equal(t, 10, w)
	assert.Equal(t, 0, h)
}

func TestNewManager(t *testing.T) {
	t.Run("missing directory serves built-in default", func(t *testing.T) {
		m, err := NewManager(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Equal(t, DefaultGameConfig(), m.GetDefault())

		configs, err := m.ListConfigs()
		require.NoError(t, err)
		assert.Empty(t, configs)
	})

	t.Run("default on disk", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "default.yaml", "name: mine\nmine_ratio: 0.3\n")

		m, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "mine", m.GetDefault().Name)
		assert.Equal(t, 0.3, m.GetDefault().MineRatio)
		assert.Equal(t, DefaultGameConfig().SectionLength, m.GetDefault().SectionLength)
	})

	t.Run("invalid default", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "default.json", `{"name": "bad", "mine_ratio": 2}`)

		_, err := NewManager(dir)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.json", `{"name": "Small", "section_length": 16}`)
	writeFile(t, dir, "dense.yml", "name: Dense\nmine_ratio: 0.4\n")
	writeFile(t, dir, "typo.json", `{"name": "Typo", "mine_ration": 0.4}`)
	writeFile(t, dir, "broken.yaml", "name: [\n")

	m, err := NewManager(dir)
	require.NoError(t, err)

	tests := []struct {
		name    string
		wantErr error
		check   func(t *testing.T, cfg *GameConfig)
	}{
		{name: "small", check: func(t *testing.T, cfg *GameConfig) {
			assert.Equal(t, "Small", cfg.Name)
			assert.Equal(t, 16, cfg.SectionLength)
		}},
		{name: "small.json", check: func(t *testing.T, cfg *GameConfig) {
			assert.Equal(t, "Small", cfg.Name)
		}},
		{name: "dense", check: func(t *testing.T, cfg *GameConfig) {
			assert.Equal(t, 0.4, cfg.MineRatio)
		}},
		{name: "typo", wantErr: ErrInvalidConfig},
		{name: "broken", wantErr: ErrInvalidConfig},
		{name: "absent", wantErr: ErrConfigNotFound},
		{name: "../small", wantErr: ErrConfigNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := m.LoadConfig(tt.name)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfigCaches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.json", `{"name": "Small"}`)
	m, err := NewManager(dir)
	require.NoError(t, err)

	first, err := m.LoadConfig("small")
	require.NoError(t, err)
	writeFile(t, dir, "small.json", `{"name": "Changed"}`)

	second, err := m.LoadConfig("small")
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, m.RefreshCache())
	third, err := m.LoadConfig("small")
	require.NoError(t, err)
	assert.Equal(t, "Changed", third.Name)
}

func TestListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "name: Bravo\n")
	writeFile(t, dir, "a.json", `{"name": "Alpha", "description": "first"}`)
	writeFile(t, dir, "bad.json", `{"mine_ratio": -1}`)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	m, err := NewManager(dir)
	require.NoError(t, err)

	configs, err := m.ListConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, &ConfigInfo{
		Filename:      "a.json",
		ConfigID:      "a",
		Name:          "Alpha",
		Description:   "first",
		SectionLength: DefaultGameConfig().SectionLength,
		MineRatio:     DefaultGameConfig().MineRatio,
	}, configs[0])
	assert.Equal(t, "b", configs[1].ConfigID)
}

func TestSetDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.json", `{"name": "Small", "section_length": 8}`)
	m, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, m.SetDefault("small"))
	assert.Equal(t, 8, m.GetDefault().SectionLength)
	assert.ErrorIs(t, m.SetDefault("absent"), ErrConfigNotFound)
	assert.Equal(t, 8, m.GetDefault().SectionLength)
}

func TestRefreshCacheKeepsDefaultName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.json", `{"name": "Small", "section_length": 8}`)
	m, err := NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, m.SetDefault("small.json"))

	writeFile(t, dir, "small.json", `{"name": "Small", "section_length": 12}`)
	require.NoError(t, m.RefreshCache())
	assert.Equal(t, 12, m.GetDefault().SectionLength)

	require.NoError(t, os.Remove(filepath.Join(dir, "small.json")))
	assert.ErrorIs(t, m.RefreshCache(), ErrConfigNotFound)
}

func TestSaveConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "configs")
	m, err := NewManager(dir)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		cfg := &GameConfig{Name: "Saved", SectionLength: 32}
		require.NoError(t, m.SaveConfig("saved", cfg))

		data, err := os.ReadFile(filepath.Join(dir, "saved.json"))
		require.NoError(t, err)
		var onDisk GameConfig
		require.NoError(t, json.Unmarshal(data, &onDisk))
		assert.Equal(t, *cfg, onDisk)

		loaded, err := m.LoadConfig("saved")
		require.NoError(t, err)
		assert.Equal(t, 32, loaded.SectionLength)
	})

	t.Run("yaml", func(t *testing.T) {
		require.NoError(t, m.SaveConfig("other.yaml", &GameConfig{Name: "Other"}))
		_, err := os.Stat(filepath.Join(dir, "other.yaml"))
		require.NoError(t, err)

		fresh, err := NewManager(dir)
		require.NoError(t, err)
		loaded, err := fresh.LoadConfig("other")
		require.NoError(t, err)
		assert.Equal(t, "Other", loaded.Name)
	})

	t.Run("invalid", func(t *testing.T) {
		err := m.SaveConfig("bad", &GameConfig{Name: "Bad", MineRatio: 3})
		assert.ErrorIs(t, err, ErrInvalidConfig)
		_, statErr := os.Stat(filepath.Join(dir, "bad.json"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.json", `{"name": "Small"}`)
	m, err := NewManager(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*GameConfig, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = m.LoadConfig("small")
		}()
	}
	wg.Wait()
	for _, cfg := range results {
		assert.Same(t, results[0], cfg)
	}
}

func TestSchema(t *testing.T) {
	s := Schema()
	require.NotNil(t, s.Properties)

	ratio, ok := s.Properties.Get("mine_ratio")
	require.True(t, ok)
	assert.Equal(t, "number", ratio.Type)

	length, ok := s.Properties.Get("section_length")
	require.True(t, ok)
	assert.Equal(t, "integer", length.Type)
	assert.Contains(t, s.Required, "name")
}
