package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/simboard/ingest/internal/logging"
)

// DatabaseConfig holds SQLite connection settings.
type DatabaseConfig struct {
	DSN   string `yaml:"dsn" json:"dsn"`
	Debug bool   `yaml:"debug" json:"debug"`
}

// IngestConfig holds ingestion engine settings.
type IngestConfig struct {
	// DeltaFields is the allow-list of configuration fields compared
	// when computing deltas between a canonical run and later runs of
	// the same case. Timeline and status fields are excluded because
	// they are expected to vary across executions.
	DeltaFields []string `yaml:"delta_fields" json:"delta_fields"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" json:"database"`
	Logging  logging.Config `yaml:"logging" json:"logging"`
	Ingest   IngestConfig   `yaml:"ingest" json:"ingest"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			DSN:   "file:simboard.db?cache=shared",
			Debug: false,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
		Ingest: IngestConfig{
			DeltaFields: DefaultDeltaFields(),
		},
	}
}

// DefaultDeltaFields returns the default configuration-delta allow-list.
func DefaultDeltaFields() []string {
	return []string{
		"compset",
		"compset_alias",
		"grid_name",
		"grid_resolution",
		"initialization_type",
		"compiler",
		"git_tag",
		"git_commit_hash",
		"git_branch",
		"git_repository_url",
		"campaign",
		"experiment_type",
		"group_name",
	}
}

// Load parses YAML bytes into a Config with defaults applied.
func Load(data []byte) (Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return applyDefaults(cfg), nil
}

// LoadFile reads and parses a YAML config file. A missing path yields
// the defaults.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Load(data)
}

func applyDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = def.Database.DSN
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if len(cfg.Ingest.DeltaFields) == 0 {
		cfg.Ingest.DeltaFields = def.Ingest.DeltaFields
	}
	return cfg
}
