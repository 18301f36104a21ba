package pipeline

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

// PreflightErrorCount runs `go vet` against path's package and counts
// the diagnostic lines it reports, per spec §4.12 step 1's preflight
// baseline check ("skip a module whose own unmodified source already
// exceeds an error-count threshold" — spec §7's SystemicError). It is
// grounded on harness.Harness.goCommand's exec.CommandContext idiom,
// reimplemented locally since that helper is unexported to its own
// package.
func PreflightErrorCount(ctx context.Context, path string) (int, error) {
	dir := filepath.Dir(path)
	cmd := exec.CommandContext(ctx, "go", "vet", "./...")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err == nil {
		return 0, nil
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	count := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}
