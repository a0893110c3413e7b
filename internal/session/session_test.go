package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/docfacts/docfacts/internal/facts"
	"github.com/docfacts/docfacts/internal/sections"
)

const orderController = `package com.example;

import org.springframework.web.bind.annotation.*;

@RestController
public class OrderController {

    @GetMapping("/orders")
    public String list() {
        return "ok";
    }
}
`

const paymentListener = `package com.example;

import org.springframework.kafka.annotation.KafkaListener;

public class PaymentListener {

    @KafkaListener(topics = "payments", groupId = "g1")
    public void onPayment(String message) {
    }
}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestRun_FullMode(t *testing.T) {
	root := writeTree(t, map[string]string{"src/OrderController.java": orderController})

	res, err := Run(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mode != ModeFull {
		t.Errorf("mode = %q, want full", res.Mode)
	}
	if res.Snapshot.Count() != 1 {
		t.Errorf("facts = %d, want 1", res.Snapshot.Count())
	}
	if len(res.Sections) != len(sections.All()) {
		t.Errorf("full mode sections = %v, want all", res.Sections)
	}
	if len(res.Changes) != 0 {
		t.Errorf("full mode produced changes: %v", res.Changes)
	}
}

func TestRun_FullMode_MissingRoot(t *testing.T) {
	_, err := Run(context.Background(), Options{Root: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Fatal("expected extraction error")
	}
}

func TestRun_IncrementalMode(t *testing.T) {
	oldRoot := writeTree(t, map[string]string{"src/OrderController.java": orderController})
	newRoot := writeTree(t, map[string]string{
		"src/OrderController.java": orderController,
		"src/PaymentListener.java": paymentListener,
	})

	prevRes, err := Run(context.Background(), Options{Root: oldRoot})
	if err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), Options{
		Root: newRoot,
		Mode: ModeIncremental,
		Prev: prevRes.Snapshot,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.DegradedToFull {
		t.Error("degraded despite supplied previous snapshot")
	}
	if len(res.Changes) != 1 || res.Changes[0].Category != facts.CategoryAdded {
		t.Fatalf("changes = %+v, want one added", res.Changes)
	}
	if res.Changes[0].Identity != "consumer:PaymentListener#payments" {
		t.Errorf("change identity = %q", res.Changes[0].Identity)
	}

	want := map[string]bool{sections.IntegrationPoints: true, sections.RulesArchitecture: true}
	if len(res.Sections) != len(want) {
		t.Fatalf("sections = %v, want integration-points and rules-architecture", res.Sections)
	}
	for _, s := range res.Sections {
		if !want[s] {
			t.Errorf("unexpected section %q", s)
		}
	}

	// Root mismatch between the two temp dirs is advisory only.
	found := false
	for _, w := range res.Warnings {
		if w.Code == facts.WarnRootMismatch {
			found = true
		}
	}
	if !found {
		t.Errorf("expected root_mismatch warning, got %v", res.Warnings)
	}
}

func TestRun_IncrementalFromPersistedSnapshot(t *testing.T) {
	root := writeTree(t, map[string]string{"src/OrderController.java": orderController})

	first, err := Run(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	snapPath := filepath.Join(t.TempDir(), "facts.jsonl")
	if err := first.Snapshot.WriteJSONLFile(snapPath); err != nil {
		t.Fatal(err)
	}
	if err := first.Snapshot.WriteMetaFile(snapPath + ".meta.json"); err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), Options{
		Root:             root,
		Mode:             ModeIncremental,
		PrevSnapshotPath: snapPath,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.DegradedToFull {
		t.Error("degraded despite persisted snapshot")
	}
	if len(res.Changes) != 0 {
		t.Errorf("unchanged tree produced changes: %v", res.Changes)
	}
	if len(res.Sections) != 0 {
		t.Errorf("unchanged tree impacted sections: %v", res.Sections)
	}
}

func TestRun_IncrementalDegradesToFull(t *testing.T) {
	root := writeTree(t, map[string]string{"src/OrderController.java": orderController})

	res, err := Run(context.Background(), Options{
		Root:             root,
		Mode:             ModeIncremental,
		PrevSnapshotPath: filepath.Join(t.TempDir(), "missing.jsonl"),
	})
	if err != nil {
		t.Fatalf("degradation must not be an error: %v", err)
	}
	if !res.DegradedToFull {
		t.Error("DegradedToFull not set")
	}
	if res.Mode != ModeFull {
		t.Errorf("mode = %q, want full after degradation", res.Mode)
	}
	if len(res.Sections) != len(sections.All()) {
		t.Errorf("degraded run sections = %v, want all", res.Sections)
	}
}

func TestRun_SelectiveMode(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/OrderController.java": orderController,
		"src/PaymentListener.java": paymentListener,
	})

	res, err := Run(context.Background(), Options{
		Root:     root,
		Mode:     ModeSelective,
		Sections: []string{sections.APIReference},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Only endpoint rules ran; the Kafka listener is out of scope.
	if res.Snapshot.Count() != 1 {
		t.Fatalf("facts = %d, want 1: %v", res.Snapshot.Count(), res.Snapshot.Identities())
	}
	if _, ok := res.Snapshot.Get("controller:OrderController#GET:/orders"); !ok {
		t.Error("endpoint fact missing in selective run")
	}
	if len(res.Sections) != 1 || res.Sections[0] != sections.APIReference {
		t.Errorf("sections = %v, want [api-reference]", res.Sections)
	}
}

func TestRun_SelectiveMode_Validation(t *testing.T) {
	root := writeTree(t, map[string]string{"src/OrderController.java": orderController})

	if _, err := Run(context.Background(), Options{Root: root, Mode: ModeSelective}); err == nil {
		t.Error("expected error for selective mode without sections")
	}
	if _, err := Run(context.Background(), Options{
		Root: root, Mode: ModeSelective, Sections: []string{"bogus"},
	}); err == nil {
		t.Error("expected error for unknown section")
	}
}

func TestRun_UnknownMode(t *testing.T) {
	if _, err := Run(context.Background(), Options{Root: t.TempDir(), Mode: "weird"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}
