package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/docfacts/docfacts/internal/config"
	"github.com/docfacts/docfacts/internal/diff"
	"github.com/docfacts/docfacts/internal/facts"
	"github.com/docfacts/docfacts/internal/render"
	"github.com/docfacts/docfacts/internal/rules"
	"github.com/docfacts/docfacts/internal/sections"
	"github.com/docfacts/docfacts/internal/server"
	"github.com/docfacts/docfacts/internal/session"
	"github.com/spf13/cobra"
)

func main() {
	// Ensure log output goes to stderr, never stdout (MCP uses stdout for JSON-RPC)
	log.SetOutput(os.Stderr)

	root := &cobra.Command{
		Use:           "docfacts",
		Short:         "Extract documentation-relevant facts from Java/Spring codebases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "docfacts.yaml", "path to the configuration file")

	root.AddCommand(newAnalyzeCmd(), newDiffCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "docfacts: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configured yaml file, falling back to defaults when
// the default file is absent. An explicitly given path must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		if !cmd.Flags().Changed("config") && errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func newAnalyzeCmd() *cobra.Command {
	var (
		mode     string
		sects    []string
		since    string
		output   string
		rulePath string
	)

	cmd := &cobra.Command{
		Use:   "analyze <root>",
		Short: "Analyze a codebase and report the documentation sections to regenerate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			scanRoot := cfg.Root
			if len(args) == 1 {
				scanRoot = args[0]
			}
			absRoot, err := filepath.Abs(scanRoot)
			if err != nil {
				return fmt.Errorf("resolving root: %w", err)
			}

			if mode == session.ModeSelective && len(sects) == 0 {
				sects = cfg.Sections
			}
			opts := session.Options{
				Root:             absRoot,
				Mode:             mode,
				Ignore:           cfg.Ignore,
				Sections:         sects,
				PrevSnapshotPath: since,
			}

			if rulePath == "" {
				rulePath = cfg.Rules
			}
			if rulePath != "" {
				rr, err := rules.Load(rulePath)
				if err != nil {
					return err
				}
				opts.Rules = rr
			}

			outDir := output
			if outDir == "" {
				outDir = filepath.Join(absRoot, cfg.Output.Dir)
			}
			if mode == session.ModeIncremental && since == "" {
				// Default baseline: the snapshot of the previous run in the
				// same output directory.
				opts.PrevSnapshotPath = filepath.Join(outDir, cfg.Output.Snapshot)
			}

			res, err := session.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			snapPath, err := render.WriteArtifacts(res, outDir, cfg.Output.Snapshot, cfg.Output.Brief)
			if err != nil {
				return err
			}

			added, modified, removed := diff.Counts(res.Changes)
			fmt.Fprintf(os.Stderr, "\nAnalysis complete:\n")
			fmt.Fprintf(os.Stderr, "  Root:      %s\n", absRoot)
			fmt.Fprintf(os.Stderr, "  Mode:      %s\n", res.Mode)
			if res.DegradedToFull {
				fmt.Fprintf(os.Stderr, "             (no previous snapshot, ran full analysis)\n")
			}
			fmt.Fprintf(os.Stderr, "  Facts:     %d\n", res.Snapshot.Count())
			if res.Mode == session.ModeIncremental {
				fmt.Fprintf(os.Stderr, "  Changes:   %d added, %d modified, %d removed\n", added, modified, removed)
			}
			fmt.Fprintf(os.Stderr, "  Warnings:  %d\n", len(res.Warnings))
			fmt.Fprintf(os.Stderr, "  Snapshot:  %s\n", snapPath)
			for _, w := range res.Warnings {
				log.Printf("[analyze] warning %s: %s", w.Code, w.Message)
			}

			// Sections go to stdout so callers can pipe them.
			for _, s := range res.Sections {
				fmt.Println(s)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", session.ModeFull, "analysis mode: full, incremental, or selective")
	cmd.Flags().StringSliceVar(&sects, "section", nil, "section id to regenerate (selective mode, repeatable)")
	cmd.Flags().StringVar(&since, "since", "", "path to a previous facts JSONL snapshot (incremental mode)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "artifact output directory (default <root>/.docfacts)")
	cmd.Flags().StringVar(&rulePath, "rules", "", "path to a detection-rule yaml file")
	return cmd
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old.jsonl> <new.jsonl>",
		Short: "Classify changes between two persisted facts snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldSnap, err := facts.ReadSnapshotFile(args[0])
			if err != nil {
				return fmt.Errorf("reading old snapshot: %w", err)
			}
			newSnap, err := facts.ReadSnapshotFile(args[1])
			if err != nil {
				return fmt.Errorf("reading new snapshot: %w", err)
			}

			changes, warnings := diff.Classify(oldSnap, newSnap)
			for _, w := range warnings {
				log.Printf("[diff] warning %s: %s", w.Code, w.Message)
			}

			out := struct {
				Changes  []facts.Change `json:"changes"`
				Sections []string       `json:"sections"`
			}{
				Changes:  changes,
				Sections: sections.MapChanges(changes),
			}
			if out.Changes == nil {
				out.Changes = []facts.Change{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			srv, err := server.New(cfg)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return srv.Run(cmd.Context())
		},
	}
}
