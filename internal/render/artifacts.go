package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docfacts/docfacts/internal/facts"
	"github.com/docfacts/docfacts/internal/session"
)

// changesArtifact is the on-disk shape of changes.json.
type changesArtifact struct {
	Mode     string          `json:"mode"`
	Changes  []facts.Change  `json:"changes"`
	Sections []string        `json:"sections"`
	Warnings []facts.Warning `json:"warnings,omitempty"`
}

// WriteArtifacts persists a session result under dir: the facts snapshot as
// JSONL with a metadata sidecar, the markdown brief, and (after incremental
// runs) the classified changes as JSON. Returns the snapshot path so callers
// can feed it back as the baseline of the next incremental run.
func WriteArtifacts(res *session.Result, dir, snapshotName, briefName string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir %s: %w", dir, err)
	}

	snapPath := filepath.Join(dir, snapshotName)
	if err := res.Snapshot.WriteJSONLFile(snapPath); err != nil {
		return "", err
	}
	if err := res.Snapshot.WriteMetaFile(snapPath + ".meta.json"); err != nil {
		return "", err
	}

	briefPath := filepath.Join(dir, briefName)
	if err := os.WriteFile(briefPath, Brief(res), 0o644); err != nil {
		return "", fmt.Errorf("writing brief %s: %w", briefPath, err)
	}

	if res.Mode == session.ModeIncremental {
		art := changesArtifact{
			Mode:     res.Mode,
			Changes:  res.Changes,
			Sections: res.Sections,
			Warnings: res.Warnings,
		}
		if art.Changes == nil {
			art.Changes = []facts.Change{}
		}
		if art.Sections == nil {
			art.Sections = []string{}
		}
		data, err := json.MarshalIndent(art, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling changes: %w", err)
		}
		changesPath := filepath.Join(dir, "changes.json")
		if err := os.WriteFile(changesPath, data, 0o644); err != nil {
			return "", fmt.Errorf("writing changes %s: %w", changesPath, err)
		}
	}

	return snapPath, nil
}
