// Package rules defines the declarative detection rules driving extraction.
// A rule names a fact kind, a file glob, a marker pattern that flags a
// construct, and a list of attribute extractors applied to a bounded window
// of lines around the marker or the resolved type declaration.
package rules

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Attribute extractor scopes.
const (
	ScopeMarker = "marker" // window is centered on the marker line
	ScopeType   = "type"   // window is centered on the resolved type declaration line
)

// Attribute extractor directions.
const (
	DirBefore = "before"
	DirAfter  = "after"
	DirBoth   = "both"
)

// Name resolution strategies.
const (
	NameFromType   = "type"   // construct name is the enclosing/adjacent type declaration
	NameFromMarker = "marker" // construct name is the marker's first capture group
)

// AttributeExtractor captures one attribute from the lines around a marker.
// Pattern must contain at least one capture group; the first non-empty
// capture within the window wins. A missing capture records the attribute as
// an empty string, never drops it.
type AttributeExtractor struct {
	Name      string `yaml:"name"`
	Pattern   string `yaml:"pattern"`
	Window    int    `yaml:"window,omitempty"`    // lines to search beyond the center line (0 = center line only)
	Direction string `yaml:"direction,omitempty"` // before, after, or both (default both)
	Scope     string `yaml:"scope,omitempty"`     // marker (default) or type

	re *regexp.Regexp
}

// Rule is one declarative detection unit for a fact kind.
type Rule struct {
	Kind       string               `yaml:"kind"`
	Files      string               `yaml:"files"`  // doublestar glob, e.g. "**/*.java"
	Marker     string               `yaml:"marker"` // regex flagging a construct occurrence
	NameFrom   string               `yaml:"name_from,omitempty"`
	Attributes []AttributeExtractor `yaml:"attributes,omitempty"`

	markerRe *regexp.Regexp
}

// Compile validates and compiles the rule's patterns. It must be called
// before the rule is used for extraction; Load and Builtin return compiled
// rules.
func (r *Rule) Compile() error {
	if r.Kind == "" {
		return fmt.Errorf("rule missing kind")
	}
	if r.Files == "" {
		r.Files = "**/*.java"
	}
	if r.NameFrom == "" {
		r.NameFrom = NameFromType
	}
	re, err := regexp.Compile(r.Marker)
	if err != nil {
		return fmt.Errorf("rule %s: marker pattern: %w", r.Kind, err)
	}
	r.markerRe = re

	for i := range r.Attributes {
		a := &r.Attributes[i]
		if a.Direction == "" {
			a.Direction = DirBoth
		}
		if a.Scope == "" {
			a.Scope = ScopeMarker
		}
		are, err := regexp.Compile(a.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: attribute %s: %w", r.Kind, a.Name, err)
		}
		if are.NumSubexp() < 1 {
			return fmt.Errorf("rule %s: attribute %s: pattern has no capture group", r.Kind, a.Name)
		}
		a.re = are
	}
	return nil
}

// MatchMarker returns the marker submatches for a line, or nil.
func (r *Rule) MatchMarker(line string) []string {
	return r.markerRe.FindStringSubmatch(line)
}

// Capture returns the first non-empty capture of the attribute pattern in the
// given line, or "".
func (a *AttributeExtractor) Capture(line string) string {
	m := a.re.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// ruleFile is the YAML shape of a rules file.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Load reads and compiles rules from a YAML file.
func Load(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rules %s: %w", path, err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("rules %s: no rules defined", path)
	}
	for i := range rf.Rules {
		if err := rf.Rules[i].Compile(); err != nil {
			return nil, err
		}
	}
	return rf.Rules, nil
}

// FilterByKinds returns the subset of rules whose kind is in the given set.
// A nil or empty set returns all rules.
func FilterByKinds(rr []Rule, kinds []string) []Rule {
	if len(kinds) == 0 {
		return rr
	}
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	var result []Rule
	for _, r := range rr {
		if _, ok := set[r.Kind]; ok {
			result = append(result, r)
		}
	}
	return result
}
