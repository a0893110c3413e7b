// Package render produces the markdown brief handed to the documentation
// collaborator: what was found, what changed, and which sections need
// regeneration. It performs no template rendering of the documentation
// itself.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/docfacts/docfacts/internal/diff"
	"github.com/docfacts/docfacts/internal/facts"
	"github.com/docfacts/docfacts/internal/session"
)

// kindHeadings order the fact inventory and give each kind a display name.
var kindHeadings = []struct {
	kind  string
	title string
}{
	{facts.KindEndpoint, "REST Endpoints"},
	{facts.KindEntity, "Entities"},
	{facts.KindKafkaConsumer, "Kafka Consumers"},
	{facts.KindKafkaProducer, "Kafka Producers"},
	{facts.KindFeignClient, "Feign Clients"},
	{facts.KindException, "Exception Classes"},
	{facts.KindConfigProperty, "Configuration Properties"},
	{facts.KindService, "Service Classes"},
}

// Brief renders a session result as markdown.
func Brief(res *session.Result) []byte {
	var sb strings.Builder
	sb.WriteString("# Documentation Analysis Brief\n\n")

	writeRunSummary(&sb, res)
	if res.Mode == session.ModeIncremental {
		writeChanges(&sb, res.Changes)
	}
	writeSections(&sb, res)
	writeInventory(&sb, res.Snapshot)
	writeWarnings(&sb, res.Warnings)

	return []byte(sb.String())
}

func writeRunSummary(sb *strings.Builder, res *session.Result) {
	meta := res.Snapshot.Meta()
	fmt.Fprintf(sb, "- Root: %s\n", meta.RootPath)
	fmt.Fprintf(sb, "- Mode: %s\n", res.Mode)
	if res.DegradedToFull {
		sb.WriteString("- Note: no previous snapshot was available; ran a full analysis instead\n")
	}
	fmt.Fprintf(sb, "- Facts: %d\n", res.Snapshot.Count())
	if meta.Duration != "" {
		fmt.Fprintf(sb, "- Duration: %s\n", meta.Duration)
	}
	sb.WriteString("\n")
}

func writeChanges(sb *strings.Builder, changes []facts.Change) {
	sb.WriteString("## Detected Changes\n\n")
	if len(changes) == 0 {
		sb.WriteString("No structural changes since the previous snapshot.\n\n")
		return
	}

	added, modified, removed := diff.Counts(changes)
	fmt.Fprintf(sb, "%d added, %d modified, %d removed.\n\n", added, modified, removed)

	for _, c := range changes {
		switch c.Category {
		case facts.CategoryAdded:
			fmt.Fprintf(sb, "- Added %s `%s`%s\n", c.Kind, c.Identity, locationOf(c.After))
		case facts.CategoryRemoved:
			fmt.Fprintf(sb, "- Removed %s `%s`\n", c.Kind, c.Identity)
		case facts.CategoryModified:
			fmt.Fprintf(sb, "- Modified %s `%s`%s\n", c.Kind, c.Identity, locationOf(c.After))
			for _, d := range attributeDeltas(c) {
				fmt.Fprintf(sb, "  - %s\n", d)
			}
		}
	}
	sb.WriteString("\n")
}

func locationOf(f *facts.Fact) string {
	if f == nil || f.File == "" {
		return ""
	}
	return fmt.Sprintf(" (%s:%d)", f.File, f.Line)
}

// attributeDeltas lists attribute-level differences of a modified change.
func attributeDeltas(c facts.Change) []string {
	if c.Before == nil || c.After == nil {
		return nil
	}
	keys := make(map[string]struct{})
	for k := range c.Before.Attributes {
		keys[k] = struct{}{}
	}
	for k := range c.After.Attributes {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var result []string
	for _, k := range sorted {
		b, a := c.Before.Attributes[k], c.After.Attributes[k]
		if b != a {
			result = append(result, fmt.Sprintf("%s: %q -> %q", k, b, a))
		}
	}
	return result
}

func writeSections(sb *strings.Builder, res *session.Result) {
	sb.WriteString("## Sections To Regenerate\n\n")
	if len(res.Sections) == 0 {
		sb.WriteString("None.\n\n")
		return
	}
	for _, s := range res.Sections {
		fmt.Fprintf(sb, "- %s\n", s)
	}
	sb.WriteString("\n")
}

func writeInventory(sb *strings.Builder, snap *facts.Snapshot) {
	sb.WriteString("## Fact Inventory\n\n")
	if snap.Count() == 0 {
		sb.WriteString("_No facts detected._\n\n")
		return
	}

	for _, h := range kindHeadings {
		ff := snap.ByKind(h.kind)
		if len(ff) == 0 {
			continue
		}
		fmt.Fprintf(sb, "### %s (%d)\n\n", h.title, len(ff))
		for _, f := range ff {
			fmt.Fprintf(sb, "- `%s`%s\n", f.Identity, inventoryDetail(f))
		}
		sb.WriteString("\n")
	}
}

// inventoryDetail renders the non-empty attributes of a fact inline.
func inventoryDetail(f facts.Fact) string {
	keys := make([]string, 0, len(f.Attributes))
	for k, v := range f.Attributes {
		if v != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, f.Attributes[k]))
	}
	return ": " + strings.Join(parts, ", ")
}

func writeWarnings(sb *strings.Builder, ww []facts.Warning) {
	if len(ww) == 0 {
		return
	}
	fmt.Fprintf(sb, "## Warnings (%d)\n\n", len(ww))
	for _, w := range ww {
		if w.File != "" {
			fmt.Fprintf(sb, "- [%s] %s (%s:%d)\n", w.Code, w.Message, w.File, w.Line)
		} else {
			fmt.Fprintf(sb, "- [%s] %s\n", w.Code, w.Message)
		}
	}
	sb.WriteString("\n")
}
