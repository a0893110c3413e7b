// Package server exposes the analysis engine over the Model Context Protocol
// so a documentation agent can drive runs and read the resulting artifacts.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/docfacts/docfacts/internal/config"
	"github.com/docfacts/docfacts/internal/diff"
	"github.com/docfacts/docfacts/internal/facts"
	"github.com/docfacts/docfacts/internal/render"
	"github.com/docfacts/docfacts/internal/rules"
	"github.com/docfacts/docfacts/internal/sections"
	"github.com/docfacts/docfacts/internal/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and connects it to the analysis session runner.
type Server struct {
	mcp *mcp.Server
	cfg *config.Config

	mu           sync.Mutex
	last         *session.Result
	artifactsDir string
}

// New creates a new MCP server wired to the given configuration.
func New(cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "docfacts",
		Version: "0.1.0",
	}, nil)

	s.mcp = mcpServer
	s.registerResources()
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	log.Println("[server] starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// artifact reads a named artifact from the last run's output directory.
func (s *Server) artifact(name string) ([]byte, error) {
	s.mu.Lock()
	dir := s.artifactsDir
	s.mu.Unlock()
	if dir == "" {
		return nil, fmt.Errorf("no analysis has been run yet")
	}
	return os.ReadFile(filepath.Join(dir, name))
}

// registerResources adds MCP resources for analysis artifacts.
func (s *Server) registerResources() {
	// Resource: documentation brief (the main markdown summary)
	s.mcp.AddResource(&mcp.Resource{
		URI:         "docfacts://analysis/brief",
		Name:        "Documentation Brief",
		Description: "Markdown brief of detected facts, changes, and the documentation sections to regenerate",
		MIMEType:    "text/markdown",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.artifact(s.cfg.Output.Brief)
		if err != nil {
			return nil, fmt.Errorf("no analysis available: %w (run analyze_codebase first)", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: string(content), MIMEType: "text/markdown"},
			},
		}, nil
	})

	// Resource: facts
	s.mcp.AddResource(&mcp.Resource{
		URI:         "docfacts://analysis/facts",
		Name:        "Extracted Facts",
		Description: "All extracted codebase facts in JSONL format",
		MIMEType:    "application/jsonl",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.artifact(s.cfg.Output.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("no analysis available: %w (run analyze_codebase first)", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: string(content), MIMEType: "application/jsonl"},
			},
		}, nil
	})

	// Resource: changes
	s.mcp.AddResource(&mcp.Resource{
		URI:         "docfacts://analysis/changes",
		Name:        "Classified Changes",
		Description: "Changes classified by the last incremental run, with impacted sections",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.artifact("changes.json")
		if err != nil {
			return nil, fmt.Errorf("no incremental analysis available: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: string(content), MIMEType: "application/json"},
			},
		}, nil
	})

	// Resource: meta
	s.mcp.AddResource(&mcp.Resource{
		URI:         "docfacts://analysis/meta",
		Name:        "Snapshot Metadata",
		Description: "Metadata about the last extraction run",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.artifact(s.cfg.Output.Snapshot + ".meta.json")
		if err != nil {
			return nil, fmt.Errorf("no analysis available: %w (run analyze_codebase first)", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: string(content), MIMEType: "application/json"},
			},
		}, nil
	})
}

// analyzeCodebaseArgs are the arguments for the analyze_codebase tool.
type analyzeCodebaseArgs struct {
	Root     string   `json:"root,omitempty" jsonschema:"Path to the codebase to analyze. Defaults to the configured root."`
	Mode     string   `json:"mode,omitempty" jsonschema:"Analysis mode: full, incremental, or selective. Defaults to full."`
	Sections []string `json:"sections,omitempty" jsonschema:"Section ids to regenerate (selective mode only)"`
	Since    string   `json:"since,omitempty" jsonschema:"Path to a previous facts JSONL snapshot (incremental mode). Defaults to the last run's snapshot."`
}

// queryFactsArgs are the arguments for the query_facts tool.
type queryFactsArgs struct {
	Kind string `json:"kind,omitempty" jsonschema:"Filter by fact kind, e.g. endpoint, entity, kafka_consumer"`
	File string `json:"file,omitempty" jsonschema:"Filter by source file path"`
	Name string `json:"name,omitempty" jsonschema:"Filter by name using substring match"`
}

// diffSnapshotsArgs are the arguments for the diff_snapshots tool.
type diffSnapshotsArgs struct {
	Old string `json:"old" jsonschema:"required,Path to the older facts JSONL snapshot"`
	New string `json:"new" jsonschema:"required,Path to the newer facts JSONL snapshot"`
}

// impactedSectionsArgs are the arguments for the impacted_sections tool.
type impactedSectionsArgs struct {
	Kind     string `json:"kind,omitempty" jsonschema:"Fact kind, e.g. endpoint or entity. Omit to report the last run's impacted sections."`
	Category string `json:"category,omitempty" jsonschema:"Change category: added, modified, or removed. Required when kind is set."`
}

// registerTools adds MCP tools for running analyses and querying facts.
func (s *Server) registerTools() {
	// Tool: analyze_codebase
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "analyze_codebase",
		Description: "Analyze a Java/Spring codebase: extract facts, classify changes against a previous snapshot, and report which documentation sections need regeneration.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args analyzeCodebaseArgs) (*mcp.CallToolResult, any, error) {
		root := args.Root
		if root == "" {
			root = s.cfg.Root
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid root path: %v", err)), nil, nil
		}

		sects := args.Sections
		if args.Mode == session.ModeSelective && len(sects) == 0 {
			sects = s.cfg.Sections
		}
		opts := session.Options{
			Root:     absRoot,
			Mode:     args.Mode,
			Ignore:   s.cfg.Ignore,
			Sections: sects,
		}
		if err := s.applyRules(&opts); err != nil {
			return errorResult(err.Error()), nil, nil
		}
		if args.Mode == session.ModeIncremental {
			opts.PrevSnapshotPath = args.Since
			if opts.PrevSnapshotPath == "" {
				s.mu.Lock()
				if s.artifactsDir != "" {
					opts.PrevSnapshotPath = filepath.Join(s.artifactsDir, s.cfg.Output.Snapshot)
				}
				s.mu.Unlock()
			}
		}

		res, err := session.Run(ctx, opts)
		if err != nil {
			return errorResult(fmt.Sprintf("analysis failed: %v", err)), nil, nil
		}

		dir := filepath.Join(absRoot, s.cfg.Output.Dir)
		if _, err := render.WriteArtifacts(res, dir, s.cfg.Output.Snapshot, s.cfg.Output.Brief); err != nil {
			log.Printf("[server] warning: failed to write artifacts: %v", err)
		} else {
			s.mu.Lock()
			s.last = res
			s.artifactsDir = dir
			s.mu.Unlock()
		}

		added, modified, removed := diff.Counts(res.Changes)
		summary := fmt.Sprintf(
			"Analysis complete.\n\n"+
				"- Root: %s\n"+
				"- Mode: %s\n"+
				"- Facts: %d\n"+
				"- Changes: %d added, %d modified, %d removed\n"+
				"- Sections to regenerate: %v\n"+
				"- Warnings: %d\n\n"+
				"Use the docfacts://analysis/brief resource to read the full brief.",
			absRoot, res.Mode, res.Snapshot.Count(),
			added, modified, removed,
			res.Sections, len(res.Warnings),
		)
		if res.DegradedToFull {
			summary += "\n\nNote: no usable previous snapshot; the run degraded to full mode."
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: summary},
			},
		}, nil, nil
	})

	// Tool: query_facts
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_facts",
		Description: "Query the extracted facts of the last analysis by kind, file, or name. Returns matching facts as JSON.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args queryFactsArgs) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		last := s.last
		s.mu.Unlock()
		if last == nil || last.Snapshot.Count() == 0 {
			return errorResult("No facts available. Run analyze_codebase first."), nil, nil
		}

		results := last.Snapshot.Query(args.Kind, args.File, args.Name)

		truncated := false
		if len(results) > 100 {
			results = results[:100]
			truncated = true
		}

		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return errorResult(fmt.Sprintf("failed to marshal results: %v", err)), nil, nil
		}

		text := string(data)
		if truncated {
			text += fmt.Sprintf("\n\n... (showing 100 of %d facts, refine your query)", last.Snapshot.Count())
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, nil, nil
	})

	// Tool: diff_snapshots
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "diff_snapshots",
		Description: "Classify the changes between two persisted facts snapshots and report the impacted documentation sections.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args diffSnapshotsArgs) (*mcp.CallToolResult, any, error) {
		if args.Old == "" || args.New == "" {
			return errorResult("old and new snapshot paths are required"), nil, nil
		}
		oldSnap, err := facts.ReadSnapshotFile(args.Old)
		if err != nil {
			return errorResult(fmt.Sprintf("reading old snapshot: %v", err)), nil, nil
		}
		newSnap, err := facts.ReadSnapshotFile(args.New)
		if err != nil {
			return errorResult(fmt.Sprintf("reading new snapshot: %v", err)), nil, nil
		}

		changes, warnings := diff.Classify(oldSnap, newSnap)
		out := struct {
			Changes  []facts.Change  `json:"changes"`
			Sections []string        `json:"sections"`
			Warnings []facts.Warning `json:"warnings,omitempty"`
		}{
			Changes:  changes,
			Sections: sections.MapChanges(changes),
			Warnings: warnings,
		}
		if out.Changes == nil {
			out.Changes = []facts.Change{}
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return errorResult(fmt.Sprintf("failed to marshal results: %v", err)), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(data)},
			},
		}, nil, nil
	})

	// Tool: impacted_sections
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "impacted_sections",
		Description: "Look up which documentation sections a (kind, category) change impacts, or report the sections impacted by the last analysis run.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args impactedSectionsArgs) (*mcp.CallToolResult, any, error) {
		var ss []string
		switch {
		case args.Kind != "":
			if args.Category == "" {
				return errorResult("category is required when kind is set"), nil, nil
			}
			ss = sections.For(args.Kind, args.Category)
		default:
			s.mu.Lock()
			last := s.last
			s.mu.Unlock()
			if last == nil {
				return errorResult("No analysis available. Run analyze_codebase first, or pass kind and category."), nil, nil
			}
			ss = last.Sections
		}
		if ss == nil {
			ss = []string{}
		}

		data, err := json.MarshalIndent(ss, "", "  ")
		if err != nil {
			return errorResult(fmt.Sprintf("failed to marshal results: %v", err)), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(data)},
			},
		}, nil, nil
	})
}

// applyRules loads the configured rule file, if any, into the session options.
func (s *Server) applyRules(opts *session.Options) error {
	if s.cfg.Rules == "" {
		return nil
	}
	rr, err := rules.Load(s.cfg.Rules)
	if err != nil {
		return fmt.Errorf("loading rules %s: %w", s.cfg.Rules, err)
	}
	opts.Rules = rr
	return nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
