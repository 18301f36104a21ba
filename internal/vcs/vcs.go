// Package vcs implements the VCS client external collaborator (spec §6:
// "the VCS client (add/commit/checkout)"), used by the Incorporator to
// write a winning mutation to disk and commit it, and by rollback paths
// to restore a file to its previous committed content.
//
// Grounded on internal/world.ScanGitHistory (git_scanner.go)'s
// exec.CommandContext/cmd.Dir subprocess idiom and its git-repo
// pre-check, generalized from a read-only history scan into a small
// read/write client.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"thermocode/internal/config"
)

// Client runs git subprocesses rooted at a single working directory.
type Client struct {
	binary          string
	dir             string
	authorName      string
	authorEmail     string
	messagePrefix   string
	checkoutTimeout time.Duration
}

// NewClient creates a Client from cfg, rooted at repoDir.
func NewClient(cfg config.VCSConfig, repoDir string) *Client {
	binary := cfg.Binary
	if binary == "" {
		binary = "git"
	}
	timeout := 10 * time.Second
	if d, err := time.ParseDuration(cfg.CheckoutTimeout); err == nil && d > 0 {
		timeout = d
	}
	return &Client{
		binary:          binary,
		dir:             repoDir,
		authorName:      cfg.CommitAuthorName,
		authorEmail:     cfg.CommitAuthorEmail,
		messagePrefix:   cfg.CommitMessagePrefix,
		checkoutTimeout: timeout,
	}
}

// IsRepo reports whether the client's directory is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context) bool {
	_, err := c.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// Add stages paths (spec's Incorporator step: "write file, vcs add").
func (c *Client) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return fmt.Errorf("vcs: Add requires at least one path")
	}
	args := append([]string{"add"}, paths...)
	_, err := c.run(ctx, args...)
	if err != nil {
		return fmt.Errorf("vcs: git add failed: %w", err)
	}
	return nil
}

// Commit records a commit with message, prefixed by the configured
// CommitMessagePrefix, attributed to the configured author. Returns the
// new commit hash.
func (c *Client) Commit(ctx context.Context, message string) (string, error) {
	full := message
	if c.messagePrefix != "" {
		full = c.messagePrefix + " " + message
	}
	args := []string{"commit", "-m", full}
	if c.authorName != "" && c.authorEmail != "" {
		args = append(args, "--author", fmt.Sprintf("%s <%s>", c.authorName, c.authorEmail))
	}
	if _, err := c.run(ctx, args...); err != nil {
		return "", fmt.Errorf("vcs: git commit failed: %w", err)
	}
	hash, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("vcs: failed to resolve committed hash: %w", err)
	}
	return strings.TrimSpace(hash), nil
}

// CheckoutPrevious restores path to its content as of n commits before
// the commit that last touched it (spec §6: "checkout_previous(path,
// n)"), bounded by the configured CheckoutTimeout (the Safety Kernel's
// atomic-rollback fallback when no in-memory checkpoint is available —
// spec §4.11). n must be at least 1; n=1 undoes the most recent change.
func (c *Client) CheckoutPrevious(ctx context.Context, path string, n int) error {
	if n < 1 {
		n = 1
	}
	ctx, cancel := context.WithTimeout(ctx, c.checkoutTimeout)
	defer cancel()

	prevRef, err := c.run(ctx, "rev-list", "-n", "1", fmt.Sprintf("--skip=%d", n), "HEAD", "--", path)
	if err != nil {
		return fmt.Errorf("vcs: failed to resolve revision %d before HEAD for %s: %w", n, path, err)
	}
	prevRef = strings.TrimSpace(prevRef)
	if prevRef == "" {
		return fmt.Errorf("vcs: no revision %d commits before HEAD found for %s", n, path)
	}
	if _, err := c.run(ctx, "checkout", prevRef, "--", path); err != nil {
		return fmt.Errorf("vcs: git checkout failed: %w", err)
	}
	return nil
}

// Diff returns the working-tree diff for path against HEAD (used by the
// Ground pipeline stage's read-only history/diff reads, spec §6).
func (c *Client) Diff(ctx context.Context, path string) (string, error) {
	out, err := c.run(ctx, "diff", "HEAD", "--", path)
	if err != nil {
		return "", fmt.Errorf("vcs: git diff failed: %w", err)
	}
	return out, nil
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = c.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return "", err
	}
	return stdout.String(), nil
}
