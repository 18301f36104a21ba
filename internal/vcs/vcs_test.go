package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"thermocode/internal/config"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func newTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v: %s", args, err, out)
		}
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")
	return dir
}

func writeAndCommit(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg := config.DefaultVCSConfig()
	c := NewClient(cfg, dir)
	ctx := context.Background()
	if err := c.Add(ctx, name); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := c.Commit(ctx, "seed "+name); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestClient_IsRepo(t *testing.T) {
	requireGit(t)
	dir := newTestRepo(t)
	c := NewClient(config.DefaultVCSConfig(), dir)
	if !c.IsRepo(context.Background()) {
		t.Error("IsRepo() = false for a freshly initialized repo")
	}

	nonRepo := t.TempDir()
	c2 := NewClient(config.DefaultVCSConfig(), nonRepo)
	if c2.IsRepo(context.Background()) {
		t.Error("IsRepo() = true for a non-repo directory")
	}
}

func TestClient_AddAndCommit_ProducesHash(t *testing.T) {
	requireGit(t)
	dir := newTestRepo(t)
	c := NewClient(config.DefaultVCSConfig(), dir)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := c.Add(ctx, "a.go"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hash, err := c.Commit(ctx, "add a.go")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(hash) != 40 {
		t.Errorf("Commit returned hash %q, want a 40-char SHA-1", hash)
	}
}

func TestClient_Commit_PrefixesMessage(t *testing.T) {
	requireGit(t)
	dir := newTestRepo(t)
	cfg := config.DefaultVCSConfig()
	cfg.CommitMessagePrefix = "[evolve]"
	c := NewClient(cfg, dir)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := c.Add(ctx, "a.go"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := c.Commit(ctx, "add a.go"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	cmd := exec.Command("git", "log", "-1", "--format=%s")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("git log: %v", err)
	}
	if got := string(out); got != "[evolve] add a.go\n" {
		t.Errorf("commit subject = %q, want %q", got, "[evolve] add a.go\n")
	}
}

func TestClient_CheckoutPrevious_RestoresPriorContent(t *testing.T) {
	requireGit(t)
	dir := newTestRepo(t)
	writeAndCommit(t, dir, "a.go", "package a\n\nconst V = 1\n")
	writeAndCommit(t, dir, "a.go", "package a\n\nconst V = 2\n")

	c := NewClient(config.DefaultVCSConfig(), dir)
	if err := c.CheckoutPrevious(context.Background(), "a.go", 1); err != nil {
		t.Fatalf("CheckoutPrevious: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.go"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "package a\n\nconst V = 1\n" {
		t.Errorf("content after CheckoutPrevious = %q, want the first commit's content", data)
	}
}

func TestClient_CheckoutPrevious_SkipsNCommits(t *testing.T) {
	requireGit(t)
	dir := newTestRepo(t)
	writeAndCommit(t, dir, "a.go", "package a\n\nconst V = 1\n")
	writeAndCommit(t, dir, "a.go", "package a\n\nconst V = 2\n")
	writeAndCommit(t, dir, "a.go", "package a\n\nconst V = 3\n")

	c := NewClient(config.DefaultVCSConfig(), dir)
	if err := c.CheckoutPrevious(context.Background(), "a.go", 2); err != nil {
		t.Fatalf("CheckoutPrevious: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.go"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "package a\n\nconst V = 1\n" {
		t.Errorf("content after CheckoutPrevious(n=2) = %q, want the first commit's content", data)
	}
}

func TestClient_CheckoutPrevious_ErrorsWithoutPriorRevision(t *testing.T) {
	requireGit(t)
	dir := newTestRepo(t)
	writeAndCommit(t, dir, "a.go", "package a\n")

	c := NewClient(config.DefaultVCSConfig(), dir)
	if err := c.CheckoutPrevious(context.Background(), "a.go", 1); err == nil {
		t.Error("expected an error when a.go has only one revision, got nil")
	}
}

func TestClient_Add_RejectsEmptyPaths(t *testing.T) {
	c := NewClient(config.DefaultVCSConfig(), t.TempDir())
	if err := c.Add(context.Background()); err == nil {
		t.Error("expected an error for Add with no paths, got nil")
	}
}

func TestClient_Diff_ReflectsWorkingTreeChange(t *testing.T) {
	requireGit(t)
	dir := newTestRepo(t)
	writeAndCommit(t, dir, "a.go", "package a\n")

	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\n// changed\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := NewClient(config.DefaultVCSConfig(), dir)
	diff, err := c.Diff(context.Background(), "a.go")
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if diff == "" {
		t.Error("Diff() returned empty string for a changed file")
	}
}
