package presets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Cache loads scrape presets from a directory of YAML files and serves
// them from memory.
type Cache struct {
	presetsDir string
	cache      map[string]*Preset
	mu         sync.RWMutex
}

func NewCache(presetsDir string) *Cache {
	return &Cache{
		presetsDir: presetsDir,
		cache:      make(map[string]*Preset),
	}
}

func (c *Cache) Run() error {
	if _, err := os.Stat(c.presetsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.presetsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		presetName := fileName[:len(fileName)-4] // Remove .yml extension

		preset, err := c.LoadPreset(presetName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Preset loaded", "preset", presetName, "results_type", preset.ResultsType, "results_limit", preset.ResultsLimit)
	}

	return nil
}

func (c *Cache) LoadPreset(presetName string) (*Preset, error) {
	presetFile := c.getPresetFilePath(presetName)
	preset, err := c.parsePreset(presetFile)
	if err != nil {
		return nil, err
	}

	// Set preset name from parameter
	preset.Name = presetName

	if err := c.validatePreset(preset); err != nil {
		return nil, fmt.Errorf("invalid preset %s: %w", presetFile, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[preset.Name] = preset

	return preset, nil
}

func (c *Cache) GetPreset(presetName string) (*Preset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	preset, ok := c.cache[presetName]
	if !ok {
		return nil, fmt.Errorf("preset with name '%s' not found", presetName)
	}
	return preset, nil
}

func (c *Cache) GetPresets() map[string]*Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	presetsCopy := make(map[string]*Preset, len(c.cache))
	for k, v := range c.cache {
		presetsCopy[k] = v
	}
	return presetsCopy
}

func (c *Cache) GetPresetCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Cache) parsePreset(presetFile string) (*Preset, error) {
	data, err := os.ReadFile(presetFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var preset Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if preset.ResultsType == "" {
		preset.ResultsType = "details"
	}
	if preset.ResultsLimit == 0 {
		preset.ResultsLimit = 200
	}

	return &preset, nil
}

func (c *Cache) validatePreset(preset *Preset) error {
	if preset == nil {
		return fmt.Errorf("preset is nil")
	}

	if preset.Name == "" {
		return fmt.Errorf("preset name is required")
	}

	validResultsTypes := map[string]bool{
		"details":  true,
		"posts":    true,
		"comments": true,
	}
	if !validResultsTypes[preset.ResultsType] {
		return fmt.Errorf("invalid results type: %s", preset.ResultsType)
	}

	if preset.ResultsLimit < 0 {
		return fmt.Errorf("results limit must be non-negative")
	}

	return nil
}

func (c *Cache) getPresetFilePath(presetName string) string {
	return filepath.Join(c.presetsDir, presetName+".yml")
}
