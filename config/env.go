package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that take precedence over the config file.
const (
	EnvConfigPath = "PRESSFEED_CONFIG"
	EnvStateDSN   = "PRESSFEED_STATE_DSN"
	EnvOutputDSN  = "PRESSFEED_OUTPUT_DSN"
	EnvUserAgent  = "PRESSFEED_USER_AGENT"
)

const defaultConfigYAML = `# pressfeed configuration
storage:
  state:
    type: sqlite
    dsn: %s
  output:
    type: file
    dsn: %s

fetch:
  timeout: 10s
  max_attempts: 2

poll:
  interval: 1h
  concurrency: 5
  max_attempts: 3
  batch_size: 20

# Publishers are matched before the built-in ones.
# publishers:
#   - id: example
#     name: Example News
#     cms: wordpress
#     domains: [example.com]
#     feed_url: https://example.com/feed/
publishers: []
`

// Load resolves configuration with precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file ($PRESSFEED_CONFIG or ~/.pressfeed/config.yaml)
// 3. Default values (lowest priority)
//
// The returned config is never nil.
func Load() (*FileConfig, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &FileConfig{}
	}

	if val := os.Getenv(EnvStateDSN); val != "" {
		cfg.Storage.State.DSN = val
	}
	if val := os.Getenv(EnvOutputDSN); val != "" {
		cfg.Storage.Output.DSN = val
	}
	if val := os.Getenv(EnvUserAgent); val != "" {
		cfg.Fetch.UserAgent = val
	}
	return cfg, nil
}

// WriteDefaultConfigFile creates ~/.pressfeed/config.yaml with default
// values. It reports whether a file was written; an existing file is kept
// unless force is set.
func WriteDefaultConfigFile(force bool) (bool, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}

	// 0700: owner-only access
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	statePath, err := defaultPath("state.db")
	if err != nil {
		return false, err
	}
	outputDir, err := defaultPath("bundles")
	if err != nil {
		return false, err
	}

	content := fmt.Sprintf(defaultConfigYAML, statePath, outputDir)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
