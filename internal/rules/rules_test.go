package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/docfacts/docfacts/internal/facts"
)

func TestCompile_Defaults(t *testing.T) {
	r := Rule{Kind: facts.KindEntity, Marker: `@Entity\b`}
	if err := r.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if r.Files != "**/*.java" {
		t.Errorf("Files default = %q, want **/*.java", r.Files)
	}
	if r.NameFrom != NameFromType {
		t.Errorf("NameFrom default = %q, want %q", r.NameFrom, NameFromType)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"missing kind", Rule{Marker: "x"}},
		{"bad marker regex", Rule{Kind: "entity", Marker: "("}},
		{"bad attribute regex", Rule{Kind: "entity", Marker: "x",
			Attributes: []AttributeExtractor{{Name: "a", Pattern: "("}}}},
		{"attribute without capture group", Rule{Kind: "entity", Marker: "x",
			Attributes: []AttributeExtractor{{Name: "a", Pattern: "nocapture"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.rule.Compile(); err == nil {
				t.Error("expected compile error")
			}
		})
	}
}

func TestMatchMarker(t *testing.T) {
	r := Rule{Kind: facts.KindException, Marker: `class\s+(\w+)\s+extends\s+\w*Exception\b`, NameFrom: NameFromMarker}
	if err := r.Compile(); err != nil {
		t.Fatal(err)
	}
	m := r.MatchMarker("public class OrderNotFoundException extends RuntimeException {")
	if m == nil || m[1] != "OrderNotFoundException" {
		t.Errorf("MatchMarker = %v, want capture OrderNotFoundException", m)
	}
	if r.MatchMarker("public class OrderService {") != nil {
		t.Error("MatchMarker matched a non-exception class")
	}
}

func TestCapture_FirstNonEmptyGroup(t *testing.T) {
	a := AttributeExtractor{Name: "httpMethod", Pattern: `@(Get|Post)Mapping`}
	r := Rule{Kind: facts.KindEndpoint, Marker: "x", Attributes: []AttributeExtractor{a}}
	if err := r.Compile(); err != nil {
		t.Fatal(err)
	}
	if got := r.Attributes[0].Capture(`@PostMapping("/orders")`); got != "Post" {
		t.Errorf("Capture = %q, want Post", got)
	}
	if got := r.Attributes[0].Capture(`@Entity`); got != "" {
		t.Errorf("Capture on non-match = %q, want empty", got)
	}
}

func TestBuiltin_CoversAllKinds(t *testing.T) {
	rr := Builtin()
	seen := make(map[string]bool)
	for _, r := range rr {
		seen[r.Kind] = true
	}
	for _, k := range facts.Kinds {
		if !seen[k] {
			t.Errorf("builtin ruleset missing kind %s", k)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - kind: entity
    files: "**/*.java"
    marker: '@Entity\b'
    attributes:
      - name: tableName
        pattern: '@Table\s*\(\s*name\s*=\s*"([^"]+)"'
        window: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rr, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rr) != 1 || rr[0].Kind != facts.KindEntity {
		t.Fatalf("Load = %+v, want one entity rule", rr)
	}
	if rr[0].Attributes[0].Window != 5 {
		t.Errorf("attribute window = %d, want 5", rr[0].Attributes[0].Window)
	}
	if rr[0].Attributes[0].Direction != DirBoth {
		t.Errorf("attribute direction default = %q, want both", rr[0].Attributes[0].Direction)
	}
	// Loaded rules must be usable immediately.
	if rr[0].MatchMarker("@Entity") == nil {
		t.Error("loaded rule marker does not match")
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("rules: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(empty); err == nil {
		t.Error("expected error for empty ruleset")
	}
}

func TestFilterByKinds(t *testing.T) {
	rr := Builtin()
	got := FilterByKinds(rr, []string{facts.KindEndpoint, facts.KindEntity})
	if len(got) != 2 {
		t.Fatalf("FilterByKinds = %d rules, want 2", len(got))
	}
	if all := FilterByKinds(rr, nil); len(all) != len(rr) {
		t.Errorf("FilterByKinds(nil) = %d rules, want %d", len(all), len(rr))
	}
}
