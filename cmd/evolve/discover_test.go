package main

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestDiscoverModules_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widget.go")
	writeFile(t, path, "package dir\n")

	got, err := discoverModules(path)
	if err != nil {
		t.Fatalf("discoverModules: %v", err)
	}
	if len(got) != 1 || got[0] != path {
		t.Fatalf("got %v, want [%s]", got, path)
	}
}

func TestDiscoverModules_DirectorySkipsTestsAndDotDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "widget.go"), "package dir\n")
	writeFile(t, filepath.Join(dir, "widget_test.go"), "package dir\n")
	writeFile(t, filepath.Join(dir, "sub", "gadget.go"), "package sub\n")
	writeFile(t, filepath.Join(dir, ".git", "hooks", "pre-commit.go"), "package hooks\n")
	writeFile(t, filepath.Join(dir, ".evolve", "logs", "scratch.go"), "package logs\n")
	writeFile(t, filepath.Join(dir, "_examples", "ref.go"), "package examples\n")
	writeFile(t, filepath.Join(dir, "README.md"), "not go\n")

	got, err := discoverModules(dir)
	if err != nil {
		t.Fatalf("discoverModules: %v", err)
	}
	sort.Strings(got)

	want := []string{
		filepath.Join(dir, "sub", "gadget.go"),
		filepath.Join(dir, "widget.go"),
	}
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDiscoverModules_MissingTargetErrors(t *testing.T) {
	if _, err := discoverModules(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected an error for a nonexistent target")
	}
}

func TestModuleName(t *testing.T) {
	cases := map[string]string{
		"/a/b/widget.go":      "widget",
		"widget.go":           "widget",
		"/a/b/widget_test.go": "widget_test",
	}
	for path, want := range cases {
		if got := moduleName(path); got != want {
			t.Errorf("moduleName(%q) = %q, want %q", path, got, want)
		}
	}
}
