// Package config loads optional comfyrun defaults from a YAML file.
// Flags override the file; the file overrides built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the tool's defaults.
type Config struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	WorkflowDir string `yaml:"workflow_dir"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Host:        "127.0.0.1",
		Port:        8188,
		WorkflowDir: ".",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "comfyrun", "config.yaml")
}

// Load reads the config file at path and merges it over the defaults.
// An empty path means the default location; a missing file there is not
// an error, while an explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if file.Host != "" {
		cfg.Host = file.Host
	}
	if file.Port != 0 {
		cfg.Port = file.Port
	}
	if file.WorkflowDir != "" {
		cfg.WorkflowDir = file.WorkflowDir
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		cfg.LogFormat = file.LogFormat
	}
	return cfg, nil
}
