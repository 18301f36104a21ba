package safety

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// ErrMemoryLimitExceeded mirrors internal/core.LimitsEnforcer's sentinel
// (limits.go), reused here for the same snapshot-based heap check.
var ErrMemoryLimitExceeded = fmt.Errorf("safety: memory limit exceeded")

// SandboxLimits bounds one sandboxed run (spec §4.11: "temp directory,
// bounded memory, bounded file-create count, timeout").
type SandboxLimits struct {
	MaxMemoryMB     int
	MaxFilesCreated int
	Timeout         time.Duration
	AllowedBinary   map[string]bool
}

// Sandbox runs a unit of work inside a dedicated temp directory with a
// bounded lifetime, grounded on internal/core.LimitsEnforcer's
// runtime.ReadMemStats heap-snapshot check (limits.go's CheckMemory)
// for the memory bound, and on internal/tactile.SafeExecutor's
// AllowedBinaries allowlist map (executor.go) for the binary-allowlist
// check. Go offers no per-goroutine memory cap, so the memory bound is
// advisory: it is checked before and after work runs, not continuously
// enforced during it.
type Sandbox struct {
	limits SandboxLimits
}

// NewSandbox creates a Sandbox enforcing limits.
func NewSandbox(limits SandboxLimits) *Sandbox {
	return &Sandbox{limits: limits}
}

// Run creates a fresh temp directory, invokes work with its path and a
// context bounded by limits.Timeout, and returns an error if the work
// fails, times out, creates more files than MaxFilesCreated, or the heap
// exceeds MaxMemoryMB before or after the run.
func (s *Sandbox) Run(ctx context.Context, work func(ctx context.Context, dir string) error) error {
	if err := s.checkMemory("before"); err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "thermocode-sandbox-*")
	if err != nil {
		return fmt.Errorf("safety: failed to create sandbox dir: %w", err)
	}
	defer os.RemoveAll(dir)

	timeout := s.limits.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- work(runCtx, dir) }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-runCtx.Done():
		return fmt.Errorf("safety: sandboxed work timed out after %s: %w", timeout, runCtx.Err())
	}

	if s.limits.MaxFilesCreated > 0 {
		n, countErr := countFiles(dir)
		if countErr != nil {
			return fmt.Errorf("safety: failed to count sandbox files: %w", countErr)
		}
		if n > s.limits.MaxFilesCreated {
			return fmt.Errorf("safety: sandbox created %d files, exceeding the limit of %d", n, s.limits.MaxFilesCreated)
		}
	}

	return s.checkMemory("after")
}

// AllowsBinary reports whether name may be invoked inside the sandbox,
// defaulting to allowed when no allowlist is configured (spec's sandbox
// layer is independently toggleable; an empty allowlist means the
// binary-restriction layer is off).
func (s *Sandbox) AllowsBinary(name string) bool {
	if len(s.limits.AllowedBinary) == 0 {
		return true
	}
	return s.limits.AllowedBinary[name]
}

func (s *Sandbox) checkMemory(phase string) error {
	if s.limits.MaxMemoryMB <= 0 {
		return nil
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	usedMB := int(m.Alloc / 1024 / 1024)
	if usedMB > s.limits.MaxMemoryMB {
		return fmt.Errorf("%w: %dMB used exceeds %dMB limit (%s sandbox run)", ErrMemoryLimitExceeded, usedMB, s.limits.MaxMemoryMB, phase)
	}
	return nil
}

func countFiles(dir string) (int, error) {
	count := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	return count, err
}
