// Package extract scans a source tree with declarative detection rules and
// produces a fact snapshot. Scanning is line-based with bounded attribute
// windows; multi-line constructs are matched best-effort, which is a
// documented limitation rather than an error. Extraction never fails on
// unusual source: the only fatal condition is a missing or unreadable root.
package extract

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/docfacts/docfacts/internal/facts"
	"github.com/docfacts/docfacts/internal/rules"
)

// Error is fatal to a session: the scan root does not exist or cannot be
// read. Everything else extraction encounters is collected as warnings.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extractor scans a root directory with a rule set and produces snapshots.
type Extractor struct {
	rules  []rules.Rule
	ignore []string // doublestar globs, relative to the scan root
}

// New creates an extractor for the given compiled rules and ignore globs.
func New(rr []rules.Rule, ignore []string) *Extractor {
	return &Extractor{rules: rr, ignore: ignore}
}

// Extract scans rootPath and returns a new snapshot plus collected warnings.
// A tree with no matching constructs is a valid empty result, not an error.
func (e *Extractor) Extract(ctx context.Context, rootPath string) (*facts.Snapshot, []facts.Warning, error) {
	start := time.Now()

	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, nil, &Error{Path: rootPath, Err: err}
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, nil, &Error{Path: absRoot, Err: err}
	}
	if !info.IsDir() {
		return nil, nil, &Error{Path: absRoot, Err: fmt.Errorf("not a directory")}
	}

	files, err := e.walk(ctx, absRoot)
	if err != nil {
		return nil, nil, &Error{Path: absRoot, Err: err}
	}
	log.Printf("[extract] scanning %d files in %s with %d rules", len(files), absRoot, len(e.rules))

	var (
		byID     = make(map[string]facts.Fact)
		order    []string
		warnings []facts.Warning
	)

	for _, relFile := range files {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		applicable := e.rulesFor(relFile)
		if len(applicable) == 0 {
			continue
		}

		src, err := os.ReadFile(filepath.Join(absRoot, relFile))
		if err != nil {
			log.Printf("[extract] error reading %s: %v", relFile, err)
			continue
		}
		lines := strings.Split(string(src), "\n")

		// The type index is only built for rules that need it.
		var types *typeIndex
		for _, r := range applicable {
			if types == nil && needsTypes(r) {
				types = indexTypes(src, lines)
			}
			ff, ww := scanRule(r, lines, relFile, types)
			warnings = append(warnings, ww...)

			for _, f := range ff {
				prev, ok := byID[f.Identity]
				if !ok {
					byID[f.Identity] = f
					order = append(order, f.Identity)
					continue
				}
				// First occurrence wins; differing attributes are worth a warning.
				if !facts.AttributesEqual(prev.Attributes, f.Attributes) {
					warnings = append(warnings, facts.Warning{
						Code: facts.WarnIdentityCollision,
						Message: fmt.Sprintf("identity %q found again with different attributes; keeping first occurrence (%s:%d)",
							f.Identity, prev.File, prev.Line),
						File: f.File,
						Line: f.Line,
					})
				}
			}
		}
	}

	ordered := make([]facts.Fact, 0, len(order))
	for _, id := range order {
		ordered = append(ordered, byID[id])
	}

	meta := facts.Meta{
		RootPath:    absRoot,
		ExtractedAt: time.Now().UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
		RuleCount:   len(e.rules),
	}
	snapshot := facts.NewSnapshot(meta, ordered)
	log.Printf("[extract] extracted %d facts (%d warnings) in %s", snapshot.Count(), len(warnings), meta.Duration)
	return snapshot, warnings, nil
}

// walk collects files under root, applying ignore globs. Files are returned
// as slash-separated paths relative to root.
func (e *Extractor) walk(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if e.isIgnored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, rel)
		}
		return nil
	})
	return files, err
}

func (e *Extractor) isIgnored(rel string) bool {
	for _, pattern := range e.ignore {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		// Directory patterns like "target/**" should also skip the directory itself.
		if dir, found := strings.CutSuffix(pattern, "/**"); found && rel == dir {
			return true
		}
	}
	return false
}

// rulesFor returns the rules whose file glob matches the given relative path.
func (e *Extractor) rulesFor(rel string) []rules.Rule {
	var result []rules.Rule
	for _, r := range e.rules {
		if ok, err := doublestar.Match(r.Files, rel); err == nil && ok {
			result = append(result, r)
		}
	}
	return result
}

func needsTypes(r rules.Rule) bool {
	if r.NameFrom == rules.NameFromType {
		return true
	}
	for _, a := range r.Attributes {
		if a.Scope == rules.ScopeType {
			return true
		}
	}
	return false
}

// scanRule scans a file's lines for one rule's marker and extracts a fact per
// occurrence.
func scanRule(r rules.Rule, lines []string, relFile string, types *typeIndex) ([]facts.Fact, []facts.Warning) {
	var (
		result   []facts.Fact
		warnings []facts.Warning
	)

	for i, line := range lines {
		m := r.MatchMarker(line)
		if m == nil {
			continue
		}
		markerLine := i + 1

		name, typeLine := resolveName(r, m, relFile, markerLine, types)
		if name == "" {
			warnings = append(warnings, facts.Warning{
				Code:    facts.WarnNameUnresolved,
				Message: fmt.Sprintf("rule %s: no construct name resolvable for marker", r.Kind),
				File:    relFile,
				Line:    markerLine,
			})
			continue
		}

		attrs := make(map[string]string, len(r.Attributes))
		for _, a := range r.Attributes {
			// Several extractors may target the same attribute; the first
			// non-empty capture wins.
			if prev, done := attrs[a.Name]; done && prev != "" {
				continue
			}
			center := markerLine
			if a.Scope == rules.ScopeType && typeLine > 0 {
				center = typeLine
			}
			attrs[a.Name] = captureWindow(a, lines, center)
		}
		for attrName, v := range attrs {
			if v == "" {
				warnings = append(warnings, facts.Warning{
					Code:    facts.WarnAttributeMissing,
					Message: fmt.Sprintf("rule %s: attribute %s not found near marker", r.Kind, attrName),
					File:    relFile,
					Line:    markerLine,
				})
			}
		}

		f := facts.Fact{
			Kind:       r.Kind,
			Name:       name,
			Attributes: attrs,
			File:       relFile,
			Line:       markerLine,
		}
		normalize(&f)
		f.Identity = identity(f)
		result = append(result, f)
	}
	return result, warnings
}

// resolveName determines the construct name for a marker occurrence and, for
// type-scoped rules, the type declaration line.
func resolveName(r rules.Rule, markerMatch []string, relFile string, markerLine int, types *typeIndex) (string, int) {
	if r.NameFrom == rules.NameFromMarker {
		for _, g := range markerMatch[1:] {
			if g != "" {
				return g, 0
			}
		}
		return "", 0
	}

	if types != nil {
		if d, ok := types.Resolve(markerLine); ok {
			return d.name, d.start
		}
	}
	// No type declaration anywhere in the file: fall back to the file stem.
	stem := strings.TrimSuffix(filepath.Base(relFile), filepath.Ext(relFile))
	return stem, 0
}

// captureWindow applies an attribute extractor to the center line and then
// outward within its bounded window, returning the first non-empty capture.
func captureWindow(a rules.AttributeExtractor, lines []string, center int) string {
	at := func(n int) string {
		if n < 1 || n > len(lines) {
			return ""
		}
		return a.Capture(lines[n-1])
	}

	if v := at(center); v != "" {
		return v
	}
	for off := 1; off <= a.Window; off++ {
		if a.Direction != rules.DirAfter {
			if v := at(center - off); v != "" {
				return v
			}
		}
		if a.Direction != rules.DirBefore {
			if v := at(center + off); v != "" {
				return v
			}
		}
	}
	return ""
}

// normalize applies kind-specific attribute cleanup: HTTP verbs are stored
// uppercase and endpoint paths are the base path plus the local path, where
// either side may be empty.
func normalize(f *facts.Fact) {
	switch f.Kind {
	case facts.KindEndpoint:
		f.Attributes["httpMethod"] = strings.ToUpper(f.Attributes["httpMethod"])
		f.Attributes["path"] = f.Attributes["basePath"] + f.Attributes["path"]
	}
}

// identity derives the stable identity for a fact. Identities depend only on
// kind, construct name, and for endpoints the method and full path (and for
// Kafka facts the topic), so re-extraction of unchanged code yields
// byte-identical identities regardless of file location.
func identity(f facts.Fact) string {
	base := facts.IdentityPrefix(f.Kind) + ":" + f.Name
	switch f.Kind {
	case facts.KindEndpoint:
		return base + "#" + f.Attributes["httpMethod"] + ":" + f.Attributes["path"]
	case facts.KindKafkaConsumer, facts.KindKafkaProducer:
		if topic := f.Attributes["topic"]; topic != "" {
			return base + "#" + topic
		}
	}
	return base
}
