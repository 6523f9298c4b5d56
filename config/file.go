package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pevans/pressfeed/parsers"
	"github.com/pevans/pressfeed/scraper"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// StoreConfig selects a storage backend and its location.
type StoreConfig struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// StorageConfig represents storage configuration from config file.
type StorageConfig struct {
	State  StoreConfig `yaml:"state"`
	Output StoreConfig `yaml:"output"`
}

// PollConfig controls the poll daemon.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	MaxAttempts int           `yaml:"max_attempts"`
	BatchSize   int           `yaml:"batch_size"`
}

// FileConfig represents the structure of ~/.pressfeed/config.yaml.
type FileConfig struct {
	Storage    StorageConfig       `yaml:"storage"`
	Fetch      scraper.Config      `yaml:"fetch"`
	Poll       PollConfig          `yaml:"poll"`
	Publishers []parsers.Publisher `yaml:"publishers"`
}

// DefaultConfigPath returns ~/.pressfeed/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pressfeed", "config.yaml"), nil
}

// LoadDefaultConfigFile loads ~/.pressfeed/config.yaml. Returns nil if the
// file doesn't exist.
func LoadDefaultConfigFile() (*FileConfig, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads and validates the configuration at path. Returns nil
// if the file doesn't exist (not an error). Returns error if the file
// exists but cannot be parsed or is invalid.
func LoadConfigFile(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks storage types, poll settings and publisher records.
func (c *FileConfig) Validate() error {
	if t := c.Storage.State.Type; t != "" && t != "sqlite" {
		return fmt.Errorf("%w: storage.state.type %q is not supported (sqlite)", ErrInvalidConfig, t)
	}
	if t := c.Storage.Output.Type; t != "" && t != "file" {
		return fmt.Errorf("%w: storage.output.type %q is not supported (file)", ErrInvalidConfig, t)
	}

	if c.Poll.Interval < 0 {
		return fmt.Errorf("%w: poll.interval must not be negative", ErrInvalidConfig)
	}
	if c.Poll.Concurrency < 0 || c.Poll.MaxAttempts < 0 || c.Poll.BatchSize < 0 {
		return fmt.Errorf("%w: poll.concurrency, poll.max_attempts and poll.batch_size must not be negative", ErrInvalidConfig)
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("%w: fetch.timeout must not be negative", ErrInvalidConfig)
	}

	seen := map[string]bool{}
	for i, p := range c.Publishers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: publishers[%d]: %w", ErrInvalidConfig, i, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: publishers[%d]: duplicate id %q", ErrInvalidConfig, i, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// StatePath returns the state database path, defaulting to
// ~/.pressfeed/state.db.
func (c *FileConfig) StatePath() (string, error) {
	if c != nil && c.Storage.State.DSN != "" {
		return c.Storage.State.DSN, nil
	}
	return defaultPath("state.db")
}

// OutputDir returns the bundle directory, defaulting to
// ~/.pressfeed/bundles.
func (c *FileConfig) OutputDir() (string, error) {
	if c != nil && c.Storage.Output.DSN != "" {
		return c.Storage.Output.DSN, nil
	}
	return defaultPath("bundles")
}

func defaultPath(name string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pressfeed", name), nil
}
