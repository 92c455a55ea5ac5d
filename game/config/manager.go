package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// extensions are tried in this order when resolving a config name
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles game configuration loading and caching
type Manager struct {
	configDir     string
	defaultName   string
	defaultConfig *GameConfig
	configs       map[string]*GameConfig
	mu            sync.RWMutex
}

// NewManager creates a configuration manager over configDir. A missing
// directory yields a manager that only serves the built-in default.
func NewManager(configDir string) (*Manager, error) {
	m := &Manager{
		configDir:   configDir,
		defaultName: DefaultName,
		configs:     make(map[string]*GameConfig),
	}
	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}
	return m, nil
}

// LoadConfig loads a configuration by name, with or without its extension
func (m *Manager) LoadConfig(name string) (*GameConfig, error) {
	id := configID(name)

	m.mu.RLock()
	if cfg, ok := m.configs[id]; ok {
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id)
}

// load reads id from disk; callers hold the write lock
func (m *Manager) load(id string) (*GameConfig, error) {
	if cfg, ok := m.configs[id]; ok {
		return cfg, nil
	}

	path, err := m.resolve(id)
	if err != nil {
		if id == DefaultName {
			return DefaultGameConfig(), nil
		}
		return nil, err
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	m.configs[id] = cfg
	return cfg, nil
}

// LoadFile parses and validates a single configuration file. Unknown fields
// are rejected and an empty name defaults to the file's base name.
func LoadFile(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg GameConfig
	if err := unmarshal(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, filepath.Base(path), err)
	}
	if cfg.Name == "" {
		cfg.Name = configID(filepath.Base(path))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListConfigs returns information about all valid stored configurations
func (m *Manager) ListConfigs() ([]*ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*ConfigInfo
	for _, entry := range entries {
		if entry.IsDir() || !hasConfigExt(entry.Name()) {
			continue
		}
		id := configID(entry.Name())
		if seen[id] {
			continue
		}
		seen[id] = true

		cfg, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid configs
			continue
		}
		configs = append(configs, &ConfigInfo{
			Filename:      entry.Name(),
			ConfigID:      id,
			Name:          cfg.Name,
			Description:   cfg.Description,
			SectionLength: cfg.SectionLength,
			MineRatio:     cfg.MineRatio,
		})
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name. The choice survives
// RefreshCache.
func (m *Manager) SetDefault(name string) error {
	cfg, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = configID(name)
	m.defaultConfig = cfg
	return nil
}

// RefreshCache drops every cached configuration and reloads the default from
// disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*GameConfig)
	m.mu.Unlock()
	return m.loadDefaultConfig()
}

func (m *Manager) loadDefaultConfig() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.load(m.defaultName)
	if err != nil {
		return err
	}
	m.defaultConfig = cfg
	return nil
}

// SaveConfig validates cfg and writes it to disk. Names ending in .yaml or
// .yml are written as YAML, everything else as JSON.
func (m *Manager) SaveConfig(name string, cfg *GameConfig) error {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	filename := name
	if !hasConfigExt(filename) {
		filename = name + ".json"
	}

	var (
		data []byte
		err  error
	)
	if filepath.Ext(filename) == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.configDir, filename), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[configID(filename)] = cfg
	m.mu.Unlock()
	return nil
}

// Schema returns the JSON schema of GameConfig
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true}
	return r.Reflect(&GameConfig{})
}

func (m *Manager) resolve(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == ".." {
		return "", fmt.Errorf("%w: %q", ErrConfigNotFound, id)
	}
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrConfigNotFound, id)
}

func unmarshal(path string, data []byte, cfg *GameConfig) error {
	if filepath.Ext(path) == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func configID(name string) string {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

func hasConfigExt(name string) bool {
	return configID(name) != name
}
