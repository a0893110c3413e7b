// Package diff classifies the differences between two fact snapshots.
// Classification is pure: identity membership decides added/removed, and
// attribute value equality is the sole modification criterion. Source
// locations never count as change.
package diff

import (
	"fmt"
	"sort"

	"github.com/docfacts/docfacts/internal/facts"
)

// countSkewFactor flags comparisons where one snapshot is more than this
// many times larger than the other, suggesting an unrelated comparison.
const countSkewFactor = 10

// countSkewMinimum suppresses the skew warning for tiny snapshots.
const countSkewMinimum = 20

// Classify compares two snapshots and returns the sparse change list, sorted
// by kind then identity for reproducible output. Unchanged facts produce no
// output. Divergent root paths or wildly different fact counts produce
// advisory warnings; classification always proceeds, since comparing facts
// is valid regardless of where the trees live.
func Classify(old, new *facts.Snapshot) ([]facts.Change, []facts.Warning) {
	var warnings []facts.Warning

	if or, nr := old.Meta().RootPath, new.Meta().RootPath; or != "" && nr != "" && or != nr {
		warnings = append(warnings, facts.Warning{
			Code:    facts.WarnRootMismatch,
			Message: fmt.Sprintf("comparing snapshots from different roots: %s vs %s", or, nr),
		})
	}
	if skewed(old.Count(), new.Count()) {
		warnings = append(warnings, facts.Warning{
			Code:    facts.WarnCountSkew,
			Message: fmt.Sprintf("fact counts differ sharply (%d vs %d); snapshots may be unrelated", old.Count(), new.Count()),
		})
	}

	var changes []facts.Change

	for _, id := range new.Identities() {
		after, _ := new.Get(id)
		before, ok := old.Get(id)
		if !ok {
			a := after
			changes = append(changes, facts.Change{
				Identity: id,
				Category: facts.CategoryAdded,
				Kind:     after.Kind,
				After:    &a,
			})
			continue
		}
		if !facts.AttributesEqual(before.Attributes, after.Attributes) {
			b, a := before, after
			changes = append(changes, facts.Change{
				Identity: id,
				Category: facts.CategoryModified,
				Kind:     after.Kind,
				Before:   &b,
				After:    &a,
			})
		}
	}

	for _, id := range old.Identities() {
		if _, ok := new.Get(id); ok {
			continue
		}
		before, _ := old.Get(id)
		b := before
		changes = append(changes, facts.Change{
			Identity: id,
			Category: facts.CategoryRemoved,
			Kind:     before.Kind,
			Before:   &b,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Kind != changes[j].Kind {
			return changes[i].Kind < changes[j].Kind
		}
		return changes[i].Identity < changes[j].Identity
	})

	return changes, warnings
}

func skewed(a, b int) bool {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi < countSkewMinimum {
		return false
	}
	return lo*countSkewFactor < hi
}

// Counts tallies changes by category.
func Counts(changes []facts.Change) (added, modified, removed int) {
	for _, c := range changes {
		switch c.Category {
		case facts.CategoryAdded:
			added++
		case facts.CategoryModified:
			modified++
		case facts.CategoryRemoved:
			removed++
		}
	}
	return
}
