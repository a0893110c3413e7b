package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the docfacts.yaml configuration.
type Config struct {
	Root     string       `yaml:"root"`
	Ignore   []string     `yaml:"ignore"`
	Rules    string       `yaml:"rules"`    // optional path to a detection-rule file
	Sections []string     `yaml:"sections"` // default sections for selective runs
	Output   OutputConfig `yaml:"output"`
}

// OutputConfig controls where output artifacts are written.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Snapshot string `yaml:"snapshot"` // facts JSONL filename within Dir
	Brief    string `yaml:"brief"`    // markdown brief filename within Dir
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Root: ".",
		Ignore: []string{
			".git/**",
			"target/**",
			"build/**",
			"out/**",
			"node_modules/**",
			"**/src/test/**",
			".docfacts/**",
		},
		Output: OutputConfig{
			Dir:      ".docfacts",
			Snapshot: "facts.jsonl",
			Brief:    "doc_brief.md",
		},
	}
}

// Load reads a configuration file from the given path.
// Missing fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Ensure required defaults
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = ".docfacts"
	}
	if cfg.Output.Snapshot == "" {
		cfg.Output.Snapshot = "facts.jsonl"
	}
	if cfg.Output.Brief == "" {
		cfg.Output.Brief = "doc_brief.md"
	}

	return cfg, nil
}
