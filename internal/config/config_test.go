package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Root != "." {
		t.Errorf("Root = %q, want .", cfg.Root)
	}
	if cfg.Output.Dir != ".docfacts" {
		t.Errorf("Output.Dir = %q, want .docfacts", cfg.Output.Dir)
	}
	if cfg.Output.Snapshot != "facts.jsonl" || cfg.Output.Brief != "doc_brief.md" {
		t.Errorf("output filenames = %q / %q", cfg.Output.Snapshot, cfg.Output.Brief)
	}
	if len(cfg.Ignore) == 0 {
		t.Error("default ignore list is empty")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docfacts.yaml")
	content := `root: ./services/orders
ignore:
  - generated/**
rules: rules/spring.yaml
sections:
  - api-reference
output:
  dir: .analysis
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != "./services/orders" {
		t.Errorf("Root = %q", cfg.Root)
	}
	if len(cfg.Ignore) != 1 || cfg.Ignore[0] != "generated/**" {
		t.Errorf("Ignore = %v", cfg.Ignore)
	}
	if cfg.Rules != "rules/spring.yaml" {
		t.Errorf("Rules = %q", cfg.Rules)
	}
	if len(cfg.Sections) != 1 || cfg.Sections[0] != "api-reference" {
		t.Errorf("Sections = %v", cfg.Sections)
	}
	if cfg.Output.Dir != ".analysis" {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}
	// Filenames not set in the file fall back to defaults.
	if cfg.Output.Snapshot != "facts.jsonl" || cfg.Output.Brief != "doc_brief.md" {
		t.Errorf("output filenames = %q / %q", cfg.Output.Snapshot, cfg.Output.Brief)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("root: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}
