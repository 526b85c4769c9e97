// Package config loads the application configuration: the dataset catalog
// plus server and model settings. The configuration is constructed once and
// passed in explicitly; nothing here is a process-wide mutable global.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Dataset describes one entry of the dataset catalog.
type Dataset struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Description string `yaml:"description"`
}

// Config is the full application configuration.
type Config struct {
	ListenAddr  string        `yaml:"listen_addr"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Model       string        `yaml:"model"`
	MaxTokens   int64         `yaml:"max_tokens"`
	SampleSize  int           `yaml:"sample_size"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	Datasets    []Dataset     `yaml:"datasets"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		ListenAddr:  ":8080",
		MetricsAddr: ":9090",
		MaxTokens:   4096,
		SampleSize:  10,
		CacheTTL:    5 * time.Minute,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(cfg.Datasets) == 0 {
		return nil, fmt.Errorf("config has no datasets")
	}
	seen := make(map[string]bool)
	for _, d := range cfg.Datasets {
		if d.Name == "" || d.Path == "" {
			return nil, fmt.Errorf("dataset entries require name and path")
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate dataset name: %s", d.Name)
		}
		seen[d.Name] = true
	}
	return cfg, nil
}

// Dataset returns the catalog entry for a name.
func (c *Config) Dataset(name string) (Dataset, bool) {
	for _, d := range c.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}
