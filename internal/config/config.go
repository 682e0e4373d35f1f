// Package config loads simulation configuration from YAML, layering a
// user file over embedded defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all runtime configuration.
type Config struct {
	World       WorldConfig       `yaml:"world"`
	Resources   ResourcesConfig   `yaml:"resources"`
	Population  PopulationConfig  `yaml:"population"`
	Entity      EntityConfig      `yaml:"entity"`
	Engine      EngineConfig      `yaml:"engine"`
	Competition CompetitionConfig `yaml:"competition"`
	Inference   InferenceConfig   `yaml:"inference"`
	API         APIConfig         `yaml:"api"`
	Journal     JournalConfig     `yaml:"journal"`
	Stats       StatsConfig       `yaml:"stats"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// WorldConfig holds grid generation parameters.
type WorldConfig struct {
	Cols     int     `yaml:"cols"`
	Rows     int     `yaml:"rows"`
	CellSize float64 `yaml:"cell_size"`
	Seed     int64   `yaml:"seed"` // 0 = time-based
}

// ResourcesConfig holds spawn rates and caps.
type ResourcesConfig struct {
	BaseRate      float64 `yaml:"base_rate"`       // spawn events per time unit
	PerEntityRate float64 `yaml:"per_entity_rate"` // extra events per entity
	FoodQuantity  float64 `yaml:"food_quantity"`
	EnergyQty     float64 `yaml:"energy_quantity"`
	FoodCap       float64 `yaml:"food_cap"`
	EnergyCap     float64 `yaml:"energy_cap"`
}

// PopulationConfig holds population size and replacement settings.
type PopulationConfig struct {
	Initial        int  `yaml:"initial"`
	ControlEnabled bool `yaml:"control_enabled"` // breed replacements for faded entities
}

// EntityConfig holds reserve sizing.
type EntityConfig struct {
	InitialFood    float64 `yaml:"initial_food"`
	MaxFood        float64 `yaml:"max_food"`
	InitialEnergy  float64 `yaml:"initial_energy"`
	MaxEnergy      float64 `yaml:"max_energy"`
	MemoryCapacity int     `yaml:"memory_capacity"`
}

// EngineConfig holds tick loop settings.
type EngineConfig struct {
	TickIntervalMS int     `yaml:"tick_interval_ms"`
	Dt             float64 `yaml:"dt"` // sim time units per tick
	Speed          float64 `yaml:"speed"`
}

// CompetitionConfig holds contest resolution flags.
type CompetitionConfig struct {
	HomeAdvantage bool `yaml:"home_advantage"` // territory holders win more
}

// InferenceConfig holds the adaptive-controller settings. APIKeyEnv
// names the environment variable holding the key so the key itself
// never lives in a config file.
type InferenceConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKeyEnv  string `yaml:"api_key_env"`
	BaseURL    string `yaml:"base_url"` // empty = hosted API; set to a relay URL otherwise
	Model      string `yaml:"model"`
	MaxPerMin  int    `yaml:"max_per_min"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// APIKey reads the configured environment variable.
func (c InferenceConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// Timeout returns the request timeout as a duration.
func (c InferenceConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// APIConfig holds the HTTP surface settings.
type APIConfig struct {
	Listen         string `yaml:"listen"`
	RatePerMin     int    `yaml:"rate_per_min"` // per-IP request budget
	StreamInterval int    `yaml:"stream_interval_ms"`
}

// JournalConfig holds the observability database settings.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StatsConfig holds sampling and export settings.
type StatsConfig struct {
	IntervalTicks uint64 `yaml:"interval_ticks"`
	CSVPath       string `yaml:"csv_path"` // empty = no export on shutdown
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Load reads configuration, layering the file at path (when non-empty)
// over the embedded defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.World.Cols <= 0 || c.World.Rows <= 0 {
		return fmt.Errorf("world dimensions must be positive (got %dx%d)", c.World.Cols, c.World.Rows)
	}
	if c.World.CellSize <= 0 {
		return fmt.Errorf("world cell_size must be positive")
	}
	if c.Engine.Dt <= 0 {
		return fmt.Errorf("engine dt must be positive")
	}
	if c.Population.Initial < 0 {
		return fmt.Errorf("population initial must not be negative")
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
