// Package configfile reads and writes the per-workspace configuration
// stored under the .issuecraft directory.
package configfile

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the file inside the .issuecraft directory.
const ConfigFileName = "config.yml"

// DirName is the workspace configuration directory.
const DirName = ".issuecraft"

// Config is the workspace configuration.
type Config struct {
	// Database is the SQLite file name, relative to the .issuecraft
	// directory unless absolute.
	Database string `yaml:"database"`
	// Identity is the acting username for statements executed from this
	// workspace. Empty means the seeded default user.
	Identity string `yaml:"identity,omitempty"`
	// LogFile receives debug logs when set, relative to the .issuecraft
	// directory unless absolute.
	LogFile string `yaml:"log_file,omitempty"`
}

// DefaultConfig returns the configuration written by init.
func DefaultConfig() *Config {
	return &Config{
		Database: "issuecraft.db",
	}
}

// ConfigPath returns the config file path inside dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// Load reads the config from dir. A missing file returns (nil, nil).
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(dir)) // #nosec G304 - controlled path
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config into dir, creating the directory if needed.
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(dir), data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DatabasePath resolves the database location against dir.
func (c *Config) DatabasePath(dir string) string {
	if c.Database == ":memory:" || filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(dir, c.Database)
}

// LogPath resolves the log file location against dir; empty when
// logging to file is disabled.
func (c *Config) LogPath(dir string) string {
	if c.LogFile == "" || filepath.IsAbs(c.LogFile) {
		return c.LogFile
	}
	return filepath.Join(dir, c.LogFile)
}
