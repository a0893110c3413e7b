package diff

import (
	"fmt"
	"testing"

	"github.com/docfacts/docfacts/internal/facts"
)

// --- helpers ---

func snap(root string, ff ...facts.Fact) *facts.Snapshot {
	return facts.NewSnapshot(facts.Meta{RootPath: root}, ff)
}

func entity(name, table string) facts.Fact {
	return facts.Fact{
		Kind:       facts.KindEntity,
		Identity:   "entity:" + name,
		Name:       name,
		Attributes: map[string]string{"tableName": table},
	}
}

func endpoint(controller, method, path string) facts.Fact {
	return facts.Fact{
		Kind:     facts.KindEndpoint,
		Identity: "controller:" + controller + "#" + method + ":" + path,
		Name:     controller,
		Attributes: map[string]string{
			"httpMethod": method,
			"path":       path,
		},
	}
}

func consumer(class, topic, groupID string) facts.Fact {
	return facts.Fact{
		Kind:     facts.KindKafkaConsumer,
		Identity: "consumer:" + class + "#" + topic,
		Name:     class,
		Attributes: map[string]string{
			"topic":   topic,
			"groupId": groupID,
		},
	}
}

func categories(changes []facts.Change) map[string][]string {
	result := make(map[string][]string)
	for _, c := range changes {
		result[c.Category] = append(result[c.Category], c.Identity)
	}
	return result
}

// --- tests ---

func TestClassify_AddedModifiedRemoved(t *testing.T) {
	old := snap("/repo",
		entity("Order", "orders"),
		entity("Invoice", "invoices"),
		endpoint("OrderController", "GET", "/orders"),
	)
	new := snap("/repo",
		entity("Order", "customer_orders"), // modified
		endpoint("OrderController", "GET", "/orders"), // unchanged
		consumer("PaymentListener", "payments", "g1"),  // added
	)

	changes, warnings := Classify(old, new)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	byCat := categories(changes)
	if got := byCat[facts.CategoryAdded]; len(got) != 1 || got[0] != "consumer:PaymentListener#payments" {
		t.Errorf("added = %v, want [consumer:PaymentListener#payments]", got)
	}
	if got := byCat[facts.CategoryModified]; len(got) != 1 || got[0] != "entity:Order" {
		t.Errorf("modified = %v, want [entity:Order]", got)
	}
	if got := byCat[facts.CategoryRemoved]; len(got) != 1 || got[0] != "entity:Invoice" {
		t.Errorf("removed = %v, want [entity:Invoice]", got)
	}

	// Modified change carries both sides.
	for _, c := range changes {
		if c.Category == facts.CategoryModified {
			if c.Before == nil || c.After == nil {
				t.Fatal("modified change missing before/after")
			}
			if c.Before.Attributes["tableName"] != "orders" || c.After.Attributes["tableName"] != "customer_orders" {
				t.Errorf("modified change attributes wrong: %+v -> %+v", c.Before.Attributes, c.After.Attributes)
			}
		}
		if c.Category == facts.CategoryAdded && c.Before != nil {
			t.Error("added change has a before fact")
		}
		if c.Category == facts.CategoryRemoved && c.After != nil {
			t.Error("removed change has an after fact")
		}
	}
}

func TestClassify_NoOpIdempotence(t *testing.T) {
	s := snap("/repo", entity("Order", "orders"), endpoint("OrderController", "GET", "/orders"))
	changes, warnings := Classify(s, s)
	if len(changes) != 0 {
		t.Errorf("Classify(s, s) = %v, want no changes", changes)
	}
	if len(warnings) != 0 {
		t.Errorf("Classify(s, s) warnings = %v, want none", warnings)
	}
}

func TestClassify_Symmetry(t *testing.T) {
	old := snap("/repo", entity("Order", "orders"), entity("Invoice", "invoices"))
	new := snap("/repo", entity("Order", "orders"), consumer("PaymentListener", "payments", "g1"))

	forward, _ := Classify(old, new)
	backward, _ := Classify(new, old)

	added := make(map[string]bool)
	for _, c := range forward {
		if c.Category == facts.CategoryAdded {
			added[c.Identity] = true
		}
	}
	for _, c := range backward {
		if c.Category == facts.CategoryRemoved {
			if !added[c.Identity] {
				t.Errorf("backward removed %q not in forward added set", c.Identity)
			}
			delete(added, c.Identity)
		}
	}
	if len(added) != 0 {
		t.Errorf("forward added identities missing from backward removed: %v", added)
	}
}

func TestClassify_Completeness(t *testing.T) {
	old := snap("/repo", entity("A", "a"), entity("B", "b"), entity("C", "c"))
	new := snap("/repo", entity("B", "b"), entity("D", "d"), entity("E", "e"))

	changes, _ := Classify(old, new)
	added, modified, removed := Counts(changes)
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if modified != 0 {
		t.Errorf("modified = %d, want 0", modified)
	}
}

func TestClassify_LocationOnlyChangeIgnored(t *testing.T) {
	a := entity("Order", "orders")
	a.File, a.Line = "src/old/Order.java", 10
	b := entity("Order", "orders")
	b.File, b.Line = "src/moved/Order.java", 42

	changes, _ := Classify(snap("/repo", a), snap("/repo", b))
	if len(changes) != 0 {
		t.Errorf("file move produced changes: %v", changes)
	}
}

func TestClassify_DeterministicOrdering(t *testing.T) {
	old := snap("/repo")
	new := snap("/repo",
		consumer("Z", "z-topic", "g"),
		endpoint("B", "GET", "/b"),
		endpoint("A", "GET", "/a"),
		entity("M", "m"),
	)

	changes, _ := Classify(old, new)
	want := []string{
		"controller:A#GET:/a",
		"controller:B#GET:/b",
		"entity:M",
		"consumer:Z#z-topic",
	}
	if len(changes) != len(want) {
		t.Fatalf("changes = %d, want %d", len(changes), len(want))
	}
	for i, c := range changes {
		if c.Identity != want[i] {
			t.Errorf("changes[%d] = %s, want %s", i, c.Identity, want[i])
		}
	}
}

func TestClassify_RootMismatchWarns(t *testing.T) {
	old := snap("/old-repo", entity("Order", "orders"))
	new := snap("/new-repo", entity("Order", "orders"))

	changes, warnings := Classify(old, new)
	if len(changes) != 0 {
		t.Errorf("changes = %v, want none", changes)
	}
	if len(warnings) != 1 || warnings[0].Code != facts.WarnRootMismatch {
		t.Errorf("warnings = %v, want one root_mismatch", warnings)
	}
}

func TestClassify_CountSkewWarns(t *testing.T) {
	var big []facts.Fact
	for i := 0; i < 50; i++ {
		big = append(big, entity(fmt.Sprintf("E%02d", i), "t"))
	}
	old := snap("/repo", entity("Order", "orders"))
	new := snap("/repo", big...)

	_, warnings := Classify(old, new)
	found := false
	for _, w := range warnings {
		if w.Code == facts.WarnCountSkew {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want count_skew", warnings)
	}

	// Small snapshots never warn.
	_, warnings = Classify(snap("/repo"), snap("/repo", entity("Order", "orders")))
	for _, w := range warnings {
		if w.Code == facts.WarnCountSkew {
			t.Errorf("tiny snapshots should not warn about skew: %v", warnings)
		}
	}
}
