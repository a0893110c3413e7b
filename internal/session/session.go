// Package session orchestrates one documentation-analysis run: extract,
// optionally diff against a prior snapshot, and compute the impacted
// documentation sections. Each run is stateless; the only cross-run input is
// the externally supplied previous snapshot.
package session

import (
	"context"
	"fmt"
	"log"

	"github.com/docfacts/docfacts/internal/diff"
	"github.com/docfacts/docfacts/internal/extract"
	"github.com/docfacts/docfacts/internal/facts"
	"github.com/docfacts/docfacts/internal/rules"
	"github.com/docfacts/docfacts/internal/sections"
)

// Analysis modes.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
	ModeSelective   = "selective"
)

// Options configure one session run.
type Options struct {
	Root     string
	Mode     string
	Rules    []rules.Rule
	Ignore   []string
	Sections []string // selective mode: the sections to regenerate

	// PrevSnapshotPath points at a persisted facts JSONL file from a prior
	// run. Incremental mode degrades to full when it is missing or
	// unreadable.
	PrevSnapshotPath string

	// Prev supplies the previous snapshot directly (e.g. re-extracted from
	// an older commit's checkout). Takes precedence over PrevSnapshotPath.
	Prev *facts.Snapshot
}

// Result is the terminal state of a successful session run.
type Result struct {
	Mode     string
	Snapshot *facts.Snapshot
	Changes  []facts.Change  // empty outside incremental mode
	Sections []string        // the sections to regenerate
	Warnings []facts.Warning // collected extraction and diff diagnostics

	// DegradedToFull is set when incremental mode found no usable previous
	// snapshot and fell back to a full run.
	DegradedToFull bool
}

// Run executes one session. The only fatal outcome is an extraction error on
// the scan root; everything else is reported through Result.Warnings.
func Run(ctx context.Context, opts Options) (*Result, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeFull
	}

	rr := opts.Rules
	if len(rr) == 0 {
		rr = rules.Builtin()
	}

	switch mode {
	case ModeFull:
		return runFull(ctx, opts, rr, false)
	case ModeIncremental:
		return runIncremental(ctx, opts, rr)
	case ModeSelective:
		return runSelective(ctx, opts, rr)
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

func runFull(ctx context.Context, opts Options, rr []rules.Rule, degraded bool) (*Result, error) {
	snap, warnings, err := extract.New(rr, opts.Ignore).Extract(ctx, opts.Root)
	if err != nil {
		return nil, err
	}
	return &Result{
		Mode:           ModeFull,
		Snapshot:       snap,
		Sections:       sections.All(),
		Warnings:       warnings,
		DegradedToFull: degraded,
	}, nil
}

func runIncremental(ctx context.Context, opts Options, rr []rules.Rule) (*Result, error) {
	prev := opts.Prev
	if prev == nil && opts.PrevSnapshotPath != "" {
		loaded, err := facts.ReadSnapshotFile(opts.PrevSnapshotPath)
		if err != nil {
			log.Printf("[session] previous snapshot unavailable (%v), falling back to full mode", err)
		} else {
			prev = loaded
		}
	}
	if prev == nil {
		// Defined fallback, not an error: without a baseline everything is new.
		return runFull(ctx, opts, rr, true)
	}

	snap, warnings, err := extract.New(rr, opts.Ignore).Extract(ctx, opts.Root)
	if err != nil {
		return nil, err
	}

	changes, diffWarnings := diff.Classify(prev, snap)
	warnings = append(warnings, diffWarnings...)

	added, modified, removed := diff.Counts(changes)
	log.Printf("[session] incremental: %d added, %d modified, %d removed", added, modified, removed)

	return &Result{
		Mode:     ModeIncremental,
		Snapshot: snap,
		Changes:  changes,
		Sections: sections.MapChanges(changes),
		Warnings: warnings,
	}, nil
}

func runSelective(ctx context.Context, opts Options, rr []rules.Rule) (*Result, error) {
	if len(opts.Sections) == 0 {
		return nil, fmt.Errorf("selective mode requires at least one section")
	}
	for _, s := range opts.Sections {
		if !sections.Known(s) {
			return nil, fmt.Errorf("unknown section %q", s)
		}
	}

	// Narrow the rule set to kinds that can impact the requested sections;
	// behaviorally a full run restricted in scope.
	kinds := sections.KindsFor(opts.Sections)
	narrowed := rules.FilterByKinds(rr, kinds)
	log.Printf("[session] selective: %d of %d rules relevant to %v", len(narrowed), len(rr), opts.Sections)

	snap, warnings, err := extract.New(narrowed, opts.Ignore).Extract(ctx, opts.Root)
	if err != nil {
		return nil, err
	}
	return &Result{
		Mode:     ModeSelective,
		Snapshot: snap,
		Sections: opts.Sections,
		Warnings: warnings,
	}, nil
}
