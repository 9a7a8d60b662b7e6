package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version" toml:"version"`
	Repository RepositoryConfig `yaml:"repository" toml:"repository"`
	Index      IndexConfig      `yaml:"index" toml:"index"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Workers    int              `yaml:"workers" toml:"workers"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
}

// Backend names
const (
	BackendFedora = "fedora"
	BackendSolr   = "solr"
	BackendSQLite = "sqlite"
)

// RepositoryConfig holds document repository settings
type RepositoryConfig struct {
	Backend    string   `yaml:"backend" toml:"backend"` // fedora, sqlite
	URL        string   `yaml:"url,omitempty" toml:"url"`
	Username   string   `yaml:"username,omitempty" toml:"username"`
	Password   string   `yaml:"password,omitempty" toml:"password"`
	Retries    *int     `yaml:"retries,omitempty" toml:"retries"`
	RetryDelay Duration `yaml:"retry_delay,omitempty" toml:"retry_delay"`
	Timeout    Duration `yaml:"timeout,omitempty" toml:"timeout"`
	// PublishGuard makes the sqlite backend refuse relation writes on
	// published editions
	PublishGuard *bool `yaml:"publish_guard,omitempty" toml:"publish_guard"`
}

// RetryCount returns the number of retries after a failed request
func (r RepositoryConfig) RetryCount() int {
	if r.Retries == nil {
		return DefaultRetries
	}
	return *r.Retries
}

// GuardPublished reports whether the sqlite backend enforces publish state
func (r RepositoryConfig) GuardPublished() bool {
	return r.PublishGuard == nil || *r.PublishGuard
}

// IndexConfig holds title index settings
type IndexConfig struct {
	Backend string   `yaml:"backend" toml:"backend"` // solr, sqlite
	URL     string   `yaml:"url,omitempty" toml:"url"`
	Timeout Duration `yaml:"timeout,omitempty" toml:"timeout"`
}

// DatabaseConfig holds the local sqlite backend settings
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text, json
}

// MetricsConfig holds the Prometheus endpoint settings. An empty Addr
// disables the endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" toml:"addr"`
}

// Duration wraps time.Duration for YAML and TOML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the TOML decoder
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
