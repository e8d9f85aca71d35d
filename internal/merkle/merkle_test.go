package merkle

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	tree, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	if tree.FileCount() != 0 {
		t.Fatalf("expected 0 files, got %d", tree.FileCount())
	}
	if _, ok := tree.RootHash(); ok {
		t.Fatal("expected absent root hash for empty tree")
	}

	other, _ := Build(dir)
	if tree.HasChanges(other) {
		t.Fatal("two empty trees should not differ")
	}
}

func TestBuildDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.rs", "fn one() {}")
	writeFile(t, dir, "b.rs", "fn two() {}")

	t1, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}

	r1, _ := t1.RootHash()
	r2, _ := t2.RootHash()
	if r1 != r2 {
		t.Fatal("two builds of an unchanged directory must yield identical root hashes")
	}
	if t1.HasChanges(t2) {
		t.Fatal("identical trees must not register as changed")
	}
}

func TestDiffModification(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.rs", "fn one() {}")
	prior, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "a.rs", "fn one() { helper(); }")
	now, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}

	if !now.HasChanges(prior) {
		t.Fatal("expected a change to be detected")
	}

	cs := now.Diff(prior)
	if len(cs.Modified) != 1 || len(cs.Added) != 0 || len(cs.Deleted) != 0 {
		t.Fatalf("expected exactly one modified file, got %+v", cs)
	}
}

func TestDiffAddAndDelete(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f1.rs", "fn a() {}")
	writeFile(t, dir, "f2.rs", "fn b() {}")
	prior, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, "f2.rs")); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "f3.rs", "fn c() {}")

	now, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}

	cs := now.Diff(prior)
	if len(cs.Added) != 1 || cs.Added[0] != filepath.Join(dir, "f3.rs") {
		t.Fatalf("expected f3.rs added, got %+v", cs.Added)
	}
	if len(cs.Deleted) != 1 || cs.Deleted[0] != filepath.Join(dir, "f2.rs") {
		t.Fatalf("expected f2.rs deleted, got %+v", cs.Deleted)
	}
	if len(cs.Modified) != 0 {
		t.Fatalf("expected no modifications, got %+v", cs.Modified)
	}
}

func TestDiffDisjointAndSound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "same.rs", "fn same() {}")
	writeFile(t, dir, "gone.rs", "fn gone() {}")
	prior, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}

	os.Remove(filepath.Join(dir, "gone.rs"))
	writeFile(t, dir, "new.rs", "fn new() {}")
	now, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}

	cs := now.Diff(prior)
	seen := map[string]int{}
	for _, p := range cs.Added {
		seen[p]++
	}
	for _, p := range cs.Modified {
		seen[p]++
	}
	for _, p := range cs.Deleted {
		seen[p]++
	}
	for p, count := range seen {
		if count > 1 {
			t.Fatalf("path %s appears in more than one list", p)
		}
	}
	if _, ok := seen[filepath.Join(dir, "same.rs")]; ok {
		t.Fatal("unchanged file must not appear in any list")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.rs", "fn one() {}")
	tree, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}

	snapPath := filepath.Join(t.TempDir(), "sub", "merkle.snapshot")
	if err := tree.Save(snapPath); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(snapPath, dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil {
		t.Fatal("expected a loaded snapshot")
	}

	r1, _ := tree.RootHash()
	r2, _ := loaded.RootHash()
	if r1 != r2 {
		t.Fatal("round-tripped root hash must match")
	}
	if tree.FileCount() != loaded.FileCount() {
		t.Fatal("round-tripped file count must match")
	}
	if !tree.Diff(loaded).IsEmpty() {
		t.Fatal("round-tripped tree must diff empty against the original")
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	tree, err := Load(filepath.Join(t.TempDir(), "nope.snapshot"), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if tree != nil {
		t.Fatal("expected nil for a missing snapshot file")
	}
}

func TestLoadCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snapshot")
	if err := os.WriteFile(path, []byte("not a real snapshot"), 0o644); err != nil {
		t.Fatal(err)
	}
	tree, err := Load(path, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if tree != nil {
		t.Fatal("expected nil for a corrupt snapshot, not an error")
	}
}
