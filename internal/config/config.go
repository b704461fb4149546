package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Pipelines PipelinesConfig `yaml:"pipelines"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// PipelinesConfig controls where pipeline definitions are loaded from.
type PipelinesConfig struct {
	Dir string `yaml:"dir"` // directory of *.yaml definitions loaded at startup
}

// defaultPath is what LoadDefault looks for in the working directory.
const defaultPath = "config.yaml"

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Pipelines: PipelinesConfig{
			Dir: "pipelines",
		},
	}
}

// Load decodes the YAML file at path on top of the defaults. Keys the
// Config struct does not know are rejected, so typos in a config file fail
// loudly instead of being ignored.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	defer f.Close()

	cfg := defaults()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("config %s: server port %d out of range", path, cfg.Server.Port)
	}
	return cfg, nil
}

// LoadDefault loads "config.yaml" from the working directory when one is
// present. Without the file it runs on defaults alone; a file that exists
// but fails to parse is an error.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat(defaultPath); err != nil {
		if os.IsNotExist(err) {
			return defaults(), nil
		}
		return nil, fmt.Errorf("config %s: %w", defaultPath, err)
	}
	return Load(defaultPath)
}
