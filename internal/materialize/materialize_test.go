package materialize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/kozaktomas/plant-doctor/internal/cluster"
	"github.com/kozaktomas/plant-doctor/internal/logging"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLabelToName(t *testing.T) {
	tests := []struct {
		label    int
		expected string
	}{
		{0, "cluster_0"},
		{7, "cluster_7"},
		{cluster.Noise, "cluster_-1"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			if got := LabelToName(tc.label); got != tc.expected {
				t.Errorf("LabelToName(%d) = %q; want %q", tc.label, got, tc.expected)
			}
			label, ok := NameToLabel(tc.expected)
			if !ok || label != tc.label {
				t.Errorf("NameToLabel(%q) = %d, %v; want %d, true", tc.expected, label, ok, tc.label)
			}
		})
	}
}

func TestNameToLabelInvalid(t *testing.T) {
	for _, name := range []string{"cluster_", "cluster_x", "group_1", ""} {
		if _, ok := NameToLabel(name); ok {
			t.Errorf("NameToLabel(%q) should fail", name)
		}
	}
}

func TestSummary(t *testing.T) {
	s := Summary{"cluster_10": 1, "cluster_2": 3, "cluster_-1": 2}

	if s.Total() != 6 {
		t.Errorf("Total() = %d; want 6", s.Total())
	}
	expected := []string{"cluster_-1", "cluster_2", "cluster_10"}
	if names := s.Names(); !slices.Equal(names, expected) {
		t.Errorf("Names() = %v; want %v", names, expected)
	}
}

func TestReset(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "uploads")
	dest := filepath.Join(root, "clusters")
	if err := os.MkdirAll(filepath.Join(dest, "cluster_0"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dest, "cluster_0"), "stale.jpg", "old")
	writeFile(t, dest, "notes.txt", "old")

	if err := Reset(dest, source); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatalf("destination should exist: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("destination should be empty, found %d entries", len(entries))
	}
}

func TestResetCreatesMissingDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a", "b")

	if err := Reset(dest, ""); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if info, err := os.Stat(dest); err != nil || !info.IsDir() {
		t.Errorf("destination should be a directory: %v", err)
	}
}

func TestResetRefusesUnsafeDestination(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "uploads")

	tests := []struct {
		name string
		dest string
	}{
		{"empty", ""},
		{"same as source", source},
		{"parent of source", root},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := Reset(tc.dest, source); !errors.Is(err, ErrUnsafeDestination) {
				t.Errorf("expected ErrUnsafeDestination, got %v", err)
			}
		})
	}
}

func TestResetAllowsSibling(t *testing.T) {
	root := t.TempDir()
	if err := Reset(filepath.Join(root, "uploads-clusters"), filepath.Join(root, "uploads")); err != nil {
		t.Errorf("sibling destination should be allowed: %v", err)
	}
}

func TestMaterialize(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	names := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}
	for _, n := range names {
		writeFile(t, source, n, "image "+n)
	}

	m := New(source, dest, 2, logging.Discard())
	summary, failures, err := m.Materialize(context.Background(), names, []int{0, 0, 0, 1, 2})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("unexpected failures: %v", failures)
	}

	expected := Summary{"cluster_0": 3, "cluster_1": 1, "cluster_2": 1}
	if len(summary) != len(expected) {
		t.Fatalf("summary = %v; want %v", summary, expected)
	}
	for k, v := range expected {
		if summary[k] != v {
			t.Errorf("summary[%s] = %d; want %d", k, summary[k], v)
		}
	}

	tree, err := List(dest)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !slices.Equal(tree["cluster_0"], []string{"a.jpg", "b.jpg", "c.jpg"}) {
		t.Errorf("cluster_0 = %v", tree["cluster_0"])
	}
	if !slices.Equal(tree["cluster_2"], []string{"e.jpg"}) {
		t.Errorf("cluster_2 = %v", tree["cluster_2"])
	}

	// Sources stay where they were.
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(source, n)); err != nil {
			t.Errorf("source %s should still exist: %v", n, err)
		}
	}
}

func TestMaterializeNoise(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	names := []string{"a.jpg", "b.jpg"}
	for _, n := range names {
		writeFile(t, source, n, n)
	}

	summary, _, err := New(source, dest, 1, logging.Discard()).Materialize(context.Background(), names, []int{cluster.Noise, 0})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if summary["cluster_-1"] != 1 || summary["cluster_0"] != 1 {
		t.Errorf("unexpected summary: %v", summary)
	}
	if _, err := os.Stat(filepath.Join(dest, "cluster_-1", "a.jpg")); err != nil {
		t.Errorf("noise image should be copied: %v", err)
	}
}

func TestMaterializePreservesMetadata(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	path := filepath.Join(source, "leaf.jpg")
	if err := os.WriteFile(path, []byte("leaf bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2021, 5, 4, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if _, _, err := New(source, dest, 1, logging.Discard()).Materialize(context.Background(), []string{"leaf.jpg"}, []int{0}); err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	copyPath := filepath.Join(dest, "cluster_0", "leaf.jpg")
	data, err := os.ReadFile(copyPath)
	if err != nil {
		t.Fatalf("copy missing: %v", err)
	}
	if string(data) != "leaf bytes" {
		t.Errorf("copy content = %q", data)
	}
	info, err := os.Stat(copyPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v; want 0600", info.Mode().Perm())
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime = %v; want %v", info.ModTime(), mtime)
	}
}

func TestMaterializeSkipsMissingSource(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	writeFile(t, source, "a.jpg", "a")

	summary, failures, err := New(source, dest, 1, logging.Discard()).Materialize(
		context.Background(), []string{"a.jpg", "gone.jpg"}, []int{0, 0})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if summary["cluster_0"] != 1 {
		t.Errorf("expected 1 copied image, got %d", summary["cluster_0"])
	}
	if len(failures) != 1 || failures[0].Name != "gone.jpg" {
		t.Errorf("expected failure for gone.jpg, got %v", failures)
	}
}

func TestMaterializeLengthMismatch(t *testing.T) {
	_, _, err := New(t.TempDir(), t.TempDir(), 1, logging.Discard()).Materialize(
		context.Background(), []string{"a.jpg"}, []int{0, 1})
	if err == nil {
		t.Error("expected error for mismatched names and labels")
	}
}

func TestMaterializeFolderFailureIsFatal(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	writeFile(t, source, "a.jpg", "a")
	// A regular file where the cluster folder should go.
	writeFile(t, dest, "cluster_0", "blocker")

	if _, _, err := New(source, dest, 1, logging.Discard()).Materialize(
		context.Background(), []string{"a.jpg"}, []int{0}); err == nil {
		t.Error("expected error when the cluster folder cannot be created")
	}
}

func TestListMissingDestination(t *testing.T) {
	tree, err := List(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tree) != 0 {
		t.Errorf("expected empty tree, got %v", tree)
	}
}
