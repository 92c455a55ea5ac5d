package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/wricardo/infinite-sweeper/game/board"
	"github.com/wricardo/infinite-sweeper/game/handler"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

const (
	// DefaultName is the id of the built-in configuration
	DefaultName = "default"
	// DefaultMaxViewSize bounds the viewport half extents a client may request
	DefaultMaxViewSize = 64
	// MaxSectionLength keeps a single section allocation reasonable
	MaxSectionLength = 1000
)

// GameConfig holds the tunables of one world
type GameConfig struct {
	Name                  string  `json:"name" yaml:"name" jsonschema:"description=Display name"`
	Description           string  `json:"description,omitempty" yaml:"description,omitempty"`
	SectionLength         int     `json:"section_length" yaml:"section_length" jsonschema:"minimum=1,maximum=1000,description=Side of a square section in tiles"`
	MineRatio             float64 `json:"mine_ratio" yaml:"mine_ratio" jsonschema:"exclusiveMinimum=0,exclusiveMaximum=1,description=Share of tiles that are mines"`
	ReviveCooldownSeconds int     `json:"revive_cooldown_seconds" yaml:"revive_cooldown_seconds" jsonschema:"minimum=1"`
	SpawnAttempts         int     `json:"spawn_attempts" yaml:"spawn_attempts" jsonschema:"minimum=1"`
	MaxCascade            int     `json:"max_cascade" yaml:"max_cascade" jsonschema:"minimum=1,description=Most tiles one cascade may open"`
	MaxViewSize           int     `json:"max_view_size" yaml:"max_view_size" jsonschema:"minimum=1,description=Largest viewport half extent"`
	MaxFetchArea          int     `json:"max_fetch_area" yaml:"max_fetch_area" jsonschema:"minimum=1,description=Most tiles one fetch may return"`
}

// ConfigInfo is the listing entry for a stored configuration
type ConfigInfo struct {
	Filename      string  `json:"filename"`
	ConfigID      string  `json:"config_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	SectionLength int     `json:"section_length"`
	MineRatio     float64 `json:"mine_ratio"`
}

// DefaultGameConfig returns the built-in configuration
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:                  DefaultName,
		Description:           "Standard infinite board",
		SectionLength:         board.DefaultSectionLength,
		MineRatio:             board.DefaultMineRatio,
		ReviveCooldownSeconds: int(handler.DefaultReviveCooldown / time.Second),
		SpawnAttempts:         board.DefaultSpawnAttempts,
		MaxCascade:            board.DefaultMaxCascade,
		MaxViewSize:           DefaultMaxViewSize,
		MaxFetchArea:          handler.DefaultMaxFetchArea,
	}
}

// ReviveCooldown returns the death cooldown as a duration
func (c *GameConfig) ReviveCooldown() time.Duration {
	return time.Duration(c.ReviveCooldownSeconds) * time.Second
}

// BoardOptions maps the config onto board construction options
func (c *GameConfig) BoardOptions() board.Options {
	return board.Options{
		SectionLength: c.SectionLength,
		MineRatio:     c.MineRatio,
		MaxCascade:    c.MaxCascade,
		SpawnAttempts: c.SpawnAttempts,
	}
}

// ClampView limits requested viewport half extents to MaxViewSize
func (c *GameConfig) ClampView(width, height int) (int, int) {
	clamp := func(v int) int { return max(0, min(v, c.MaxViewSize)) }
	return clamp(width), clamp(height)
}

// applyDefaults fills unset fields from DefaultGameConfig
func (c *GameConfig) applyDefaults() {
	d := DefaultGameConfig()
	if c.SectionLength == 0 {
		c.SectionLength = d.SectionLength
	}
	if c.MineRatio == 0 {
		c.MineRatio = d.MineRatio
	}
	if c.ReviveCooldownSeconds == 0 {
		c.ReviveCooldownSeconds = d.ReviveCooldownSeconds
	}
	if c.SpawnAttempts == 0 {
		c.SpawnAttempts = d.SpawnAttempts
	}
	if c.MaxCascade == 0 {
		c.MaxCascade = d.MaxCascade
	}
	if c.MaxViewSize == 0 {
		c.MaxViewSize = d.MaxViewSize
	}
	if c.MaxFetchArea == 0 {
		c.MaxFetchArea = d.MaxFetchArea
	}
}

// Validate reports every problem with c at once
func (c *GameConfig) Validate() error {
	var err error
	if c.Name == "" {
		err = multierr.Append(err, errors.New("name is required"))
	}
	if c.SectionLength < 1 || c.SectionLength > MaxSectionLength {
		err = multierr.Append(err, fmt.Errorf("section_length %d must be between 1 and %d", c.SectionLength, MaxSectionLength))
	}
	if c.MineRatio <= 0 || c.MineRatio >= 1 {
		err = multierr.Append(err, fmt.Errorf("mine_ratio %g must be strictly between 0 and 1", c.MineRatio))
	}
	if c.ReviveCooldownSeconds < 1 {
		err = multierr.Append(err, fmt.Errorf("revive_cooldown_seconds %d must be positive", c.ReviveCooldownSeconds))
	}
	if c.SpawnAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("spawn_attempts %d must be positive", c.SpawnAttempts))
	}
	if c.MaxCascade < 1 {
		err = multierr.Append(err, fmt.Errorf("max_cascade %d must be positive", c.MaxCascade))
	}
	if c.MaxViewSize < 1 {
		err = multierr.Append(err, fmt.Errorf("max_view_size %d must be positive", c.MaxViewSize))
	}
	if c.MaxFetchArea < 1 {
		err = multierr.Append(err, fmt.Errorf("max_fetch_area %d must be positive", c.MaxFetchArea))
	}
	view := (2*c.MaxViewSize + 1) * (2*c.MaxViewSize + 1)
	if c.MaxViewSize >= 1 && c.MaxFetchArea >= 1 && view > c.MaxFetchArea {
		err = multierr.Append(err, fmt.Errorf("max_fetch_area %d is smaller than the largest view (%d tiles)", c.MaxFetchArea, view))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
