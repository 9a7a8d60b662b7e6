// Package config loads editionlinks settings.
//
// Config file locations (priority order):
//  1. $EDITIONLINKS_CONFIG
//  2. ./editionlinks.yaml
//  3. $XDG_CONFIG_HOME/editionlinks/config.yaml
//  4. ~/.config/editionlinks/config.yaml
//  5. /etc/editionlinks/config.yaml
//
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Credentials and endpoints can be overridden from the environment so they
// need not be written to disk.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultRetries      = 1
	DefaultRetryDelay   = 100 * time.Millisecond
	DefaultTimeout      = 30 * time.Second
	DefaultWorkers      = 4
	DefaultDatabasePath = "./editionlinks.db"
)

// Environment overrides
const (
	EnvRepositoryURL      = "EDITIONLINKS_REPOSITORY_URL"
	EnvRepositoryPassword = "EDITIONLINKS_REPOSITORY_PASSWORD"
	EnvIndexURL           = "EDITIONLINKS_INDEX_URL"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		return cfg, "", cfg.Validate()
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, isTOML(path))
	if err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// Parse decodes a config document, fills defaults and applies environment
// overrides
func Parse(data []byte, asTOML bool) (*Config, error) {
	var cfg Config
	if asTOML {
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the config used when no file is found: environment
// overrides on top of defaults. Without overrides that is a local sqlite setup.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Repository.Backend == "" {
		if c.Repository.URL != "" {
			c.Repository.Backend = BackendFedora
		} else {
			c.Repository.Backend = BackendSQLite
		}
	}
	if c.Repository.Retries == nil {
		retries := DefaultRetries
		c.Repository.Retries = &retries
	}
	if c.Repository.RetryDelay == 0 {
		c.Repository.RetryDelay = Duration(DefaultRetryDelay)
	}
	if c.Repository.Timeout == 0 {
		c.Repository.Timeout = Duration(DefaultTimeout)
	}
	if c.Index.Backend == "" {
		if c.Index.URL != "" {
			c.Index.Backend = BackendSolr
		} else {
			c.Index.Backend = BackendSQLite
		}
	}
	if c.Index.Timeout == 0 {
		c.Index.Timeout = Duration(DefaultTimeout)
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRepositoryURL); v != "" {
		c.Repository.URL = v
	}
	if v := os.Getenv(EnvRepositoryPassword); v != "" {
		c.Repository.Password = v
	}
	if v := os.Getenv(EnvIndexURL); v != "" {
		c.Index.URL = v
	}
}

// Validate checks that the selected backends have what they need
func (c *Config) Validate() error {
	switch c.Repository.Backend {
	case BackendFedora:
		if c.Repository.URL == "" {
			return fmt.Errorf("repository.url is required for the %s backend", BackendFedora)
		}
	case BackendSQLite:
	default:
		return fmt.Errorf("unknown repository backend %q", c.Repository.Backend)
	}

	switch c.Index.Backend {
	case BackendSolr:
		if c.Index.URL == "" {
			return fmt.Errorf("index.url is required for the %s backend", BackendSolr)
		}
	case BackendSQLite:
	default:
		return fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}

	if c.RetryCount() < 0 {
		return fmt.Errorf("repository.retries must not be negative")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}

	return nil
}

// RetryCount is shorthand for Repository.RetryCount
func (c *Config) RetryCount() int {
	return c.Repository.RetryCount()
}

// UsesSQLite reports whether either backend needs the local database
func (c *Config) UsesSQLite() bool {
	return c.Repository.Backend == BackendSQLite || c.Index.Backend == BackendSQLite
}

// Summary returns a human-readable config summary without credentials
func (c *Config) Summary() string {
	repo := c.Repository.Backend
	if c.Repository.Backend == BackendFedora {
		repo += " " + c.Repository.URL
	}
	idx := c.Index.Backend
	if c.Index.Backend == BackendSolr {
		idx += " " + c.Index.URL
	}
	summary := fmt.Sprintf("Repository: %s (retries %d, delay %s)\n", repo, c.RetryCount(), c.Repository.RetryDelay.Duration())
	summary += fmt.Sprintf("Index: %s\n", idx)
	if c.UsesSQLite() {
		summary += fmt.Sprintf("Database: %s\n", c.Database.Path)
	}
	summary += fmt.Sprintf("Workers: %d", c.Workers)
	return summary
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
