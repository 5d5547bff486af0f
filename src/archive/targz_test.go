package archive_test

import (
	"os"
	"path/filepath"
	"testing"

	"stackops/src/archive"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "alpha")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "beta")

	dest := filepath.Join(t.TempDir(), "bundle.tar.gz")
	res, err := archive.PackDir(src, dest)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("packed files = %v", res.Files)
	}
	if res.Bytes != int64(len("alpha")+len("beta")) {
		t.Fatalf("packed bytes = %d", res.Bytes)
	}

	out := t.TempDir()
	if err := archive.UnpackDir(dest, out); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(out, "sub", "b.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "beta" {
		t.Fatalf("unpacked content = %q", b)
	}
}

func TestPackDir_RemovesPartialArchiveOnError(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if _, err := archive.PackDir(filepath.Join(t.TempDir(), "missing"), dest); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("partial archive left behind: %v", err)
	}
}

func TestIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x", "one"), "1")
	writeFile(t, filepath.Join(dir, "two"), "22")
	res, err := archive.Index(dir)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	want := []string{"two", "x/one"}
	if len(res.Files) != 2 || res.Files[0] != want[0] || res.Files[1] != want[1] {
		t.Fatalf("index = %v, want %v", res.Files, want)
	}
	if res.Bytes != 3 {
		t.Fatalf("bytes = %d, want 3", res.Bytes)
	}
}

func TestCopyTree_ReplacesDestination(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "keep.txt"), "new")
	dest := t.TempDir()
	writeFile(t, filepath.Join(dest, "stale.txt"), "old")

	if err := archive.CopyTree(src, dest); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "stale.txt")); !os.IsNotExist(err) {
		t.Fatal("stale file survived overwrite")
	}
	b, err := os.ReadFile(filepath.Join(dest, "keep.txt"))
	if err != nil || string(b) != "new" {
		t.Fatalf("copied content = %q, err %v", b, err)
	}
}
