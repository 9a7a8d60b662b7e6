package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file and wins over every search location
	EnvConfigPath = "EDITIONLINKS_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "editionlinks.yaml"
	// ConfigDirName is the per-application directory below XDG, ~/.config and /etc
	ConfigDirName = "editionlinks"
)

// configDirFiles are tried in order inside each config directory
var configDirFiles = []string{"config.yaml", "config.toml"}

// FindConfigPath returns the first existing config file, searching
//
//	$EDITIONLINKS_CONFIG
//	./editionlinks.yaml, ./editionlinks.toml
//	$XDG_CONFIG_HOME/editionlinks/config.{yaml,toml}
//	~/.config/editionlinks/config.{yaml,toml}
//	/etc/editionlinks/config.{yaml,toml}
//
// An unset or missing $EDITIONLINKS_CONFIG falls through to the search.
// Returns "" when nothing is found.
func FindConfigPath() string {
	for _, candidate := range configCandidates() {
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func configCandidates() []string {
	var candidates []string

	if explicit := os.Getenv(EnvConfigPath); explicit != "" {
		candidates = append(candidates, explicit)
	}

	local := []string{ConfigFileName, "editionlinks.toml"}
	for _, name := range local {
		if abs, err := filepath.Abs(name); err == nil {
			name = abs
		}
		candidates = append(candidates, name)
	}

	var dirs []string
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		dirs = append(dirs, filepath.Join(xdgHome, ConfigDirName))
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", ConfigDirName))
	}
	dirs = append(dirs, filepath.Join("/etc", ConfigDirName))

	for _, dir := range dirs {
		for _, name := range configDirFiles {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	return candidates
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
