package snapshot_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"stackops/src/snapshot"
)

func writeBundle(t *testing.T, root string, day int) string {
	t.Helper()
	name := snapshot.BundleName(fmt.Sprintf("202501%02d-120000", day))
	path := filepath.Join(root, name)
	if err := os.WriteFile(path, []byte("bundle"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestList_NewestFirstAndIgnoresForeignFiles(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, 1)
	writeBundle(t, root, 3)
	writeBundle(t, root, 2)
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := snapshot.List(root)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].ID != "20250103-120000" || entries[2].ID != "20250101-120000" {
		t.Fatalf("order wrong: %v", entries)
	}
}

func TestList_MissingRootIsEmpty(t *testing.T) {
	entries, err := snapshot.List(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty set, got %v", entries)
	}
}

func TestPrune_KeepsNewestK(t *testing.T) {
	root := t.TempDir()
	for day := 1; day <= 10; day++ {
		writeBundle(t, root, day)
	}
	foreign := filepath.Join(root, "keepme.txt")
	if err := os.WriteFile(foreign, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := snapshot.Prune(root, 7)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(removed) != 3 {
		t.Fatalf("removed %d, want 3", len(removed))
	}
	entries, err := snapshot.List(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 7 {
		t.Fatalf("remaining %d, want 7", len(entries))
	}
	if entries[len(entries)-1].ID != "20250104-120000" {
		t.Fatalf("oldest survivor = %s", entries[len(entries)-1].ID)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatalf("foreign file touched: %v", err)
	}
}

func TestPrune_NoopUnderLimit(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, 1)
	removed, err := snapshot.Prune(root, 7)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("removed %v, want none", removed)
	}
}
