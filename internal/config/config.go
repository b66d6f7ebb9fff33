// Package config handles generation profile loading for BusForge.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/busforge/busforge/pkg/types"
)

// Config is one generation profile: where the traffic comes from, how
// it is windowed, and which anomalies to synthesize from it.
type Config struct {
	Dataset   DatasetConfig  `yaml:"dataset"`
	Sequence  SequenceConfig `yaml:"sequence"`
	Anomalies AnomalyConfig  `yaml:"anomalies"`
	Engine    EngineConfig   `yaml:"engine"`
	Output    OutputConfig   `yaml:"output"`
	Server    ServerConfig   `yaml:"server"`
}

// DatasetConfig names the input collaborator files.
type DatasetConfig struct {
	Dump   string `yaml:"dump"`   // CAN dump CSV
	Fields string `yaml:"fields"` // field classification JSON
	ID     string `yaml:"id"`     // target message identifier
}

// SequenceConfig defines the fixed-duration windowing, both in seconds.
type SequenceConfig struct {
	SamplingPeriod float64 `yaml:"sampling_period"`
	Duration       float64 `yaml:"duration"`
}

// AnomalyConfig selects which anomalies a run synthesizes.
type AnomalyConfig struct {
	Structural []string           `yaml:"structural"`  // interleave, discontinuity, reverse, drop
	DropLength int                `yaml:"drop_length"` // words removed around the midpoint
	Field      FieldAnomalyConfig `yaml:"field"`
}

// FieldAnomalyConfig drives the field anomaly engine.
type FieldAnomalyConfig struct {
	Category   string   `yaml:"category"`   // HIGH_VAR, MID_VAR, LOW_VAR
	Words      int      `yaml:"words"`      // run length (words+1 affected)
	Strategies []string `yaml:"strategies"` // subset of the five strategy names
	Verbose    bool     `yaml:"verbose"`
}

// EngineConfig defines batch execution parameters.
type EngineConfig struct {
	Workers int   `yaml:"workers"`
	Seed    int64 `yaml:"seed"` // 0 means time-seeded
}

// OutputConfig defines where and how datasets are written.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Indent bool   `yaml:"indent"`
	LogDir string `yaml:"log_dir"` // empty disables the rotating run log
}

// ServerConfig defines the optional dataset server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	RPS    int    `yaml:"rps"` // download rate limit, 0 disables
}

// DefaultConfig returns the default generation profile.
func DefaultConfig() *Config {
	return &Config{
		Sequence: SequenceConfig{
			SamplingPeriod: 0.01,
			Duration:       3,
		},
		Anomalies: AnomalyConfig{
			Structural: []string{"interleave", "discontinuity", "reverse", "drop"},
			DropLength: 10,
			Field: FieldAnomalyConfig{
				Category:   types.HighVar.String(),
				Words:      20,
				Strategies: []string{"max", "min", "random_constant", "random_value", "replay"},
			},
		},
		Engine: EngineConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			Dir:    "out",
			Indent: true,
		},
		Server: ServerConfig{
			Listen: ":8971",
			RPS:    50,
		},
	}
}

// Load reads a profile from a YAML file, layered over the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses a profile from YAML bytes, layered over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the profile for contradictions before a run starts.
func (c *Config) Validate() error {
	if c.Sequence.SamplingPeriod <= 0 {
		return fmt.Errorf("sequence.sampling_period must be positive")
	}
	if c.Sequence.Duration <= 0 {
		return fmt.Errorf("sequence.duration must be positive")
	}
	if c.Sequence.Duration < c.Sequence.SamplingPeriod {
		return fmt.Errorf("sequence.duration is shorter than one sampling period")
	}

	known := map[string]bool{"interleave": true, "discontinuity": true, "reverse": true, "drop": true}
	for _, name := range c.Anomalies.Structural {
		if !known[name] {
			return fmt.Errorf("unknown structural anomaly %q", name)
		}
	}
	if c.Anomalies.DropLength <= 0 {
		return fmt.Errorf("anomalies.drop_length must be positive")
	}

	if c.Anomalies.Field.Category != "" {
		if _, err := types.ParseVariability(c.Anomalies.Field.Category); err != nil {
			return err
		}
	}
	if c.Anomalies.Field.Words <= 0 {
		return fmt.Errorf("anomalies.field.words must be positive")
	}
	for _, name := range c.Anomalies.Field.Strategies {
		if _, err := types.ParseStrategyKind(name); err != nil {
			return err
		}
	}

	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be positive")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	return nil
}

// FieldCategory returns the parsed target variability category.
func (c *Config) FieldCategory() types.Variability {
	v, err := types.ParseVariability(c.Anomalies.Field.Category)
	if err != nil {
		return types.HighVar
	}
	return v
}
