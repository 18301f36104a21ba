// Package harness implements the Test Harness (spec §4.5): a scoped
// acquisition that gates a candidate improvement through syntax, type,
// and test checks, restoring the target file's original contents on
// every exit path.
//
// Two execution paths share the same gate, grounded on the teacher's
// own two-path design in internal/autopoiesis/yaegi_executor.go
// ("compile with go build" vs. "interpret with Yaegi to eliminate
// compilation hangs/dependency hell"): a Quick path interprets the
// candidate in-process with traefik/yaegi, bounding time through the
// caller's context without spawning a subprocess; a Full path shells out to the real
// `go build`/`go vet`/`go test`, grounded on internal/tactile/docker.go's
// exec.CommandContext idiom. Quick trades exhaustiveness (stdlib only,
// no real compilation) for speed on dry-run/quick passes; Full is the
// production-mode path.
package harness

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"thermocode/internal/config"
	"thermocode/internal/logging"
	"thermocode/internal/types"
)

// Mode selects which execution path Run uses.
type Mode int

const (
	ModeFull  Mode = iota // subprocess go build/vet/test
	ModeQuick             // in-process yaegi interpretation
)

// Harness runs an Improvement's candidate source through the
// syntax/type/test gate and reports a types.TestReport.
type Harness struct {
	cfg  config.BuildConfig
	mode Mode
}

// New creates a Harness. mode is ModeQuick when cfg comes from a
// --quick pipeline run, ModeFull otherwise (see pipeline wiring).
func New(cfg config.BuildConfig, mode Mode) *Harness {
	return &Harness{cfg: cfg, mode: mode}
}

// Run gates newSource as a replacement for targetPath, per spec §4.5's
// four-step contract. It never leaves targetPath modified: the original
// contents are restored before Run returns, regardless of outcome.
func (h *Harness) Run(ctx context.Context, targetPath, newSource string) types.TestReport {
	log := logging.Get(logging.CategoryHarness)

	original, err := os.ReadFile(targetPath)
	if err != nil {
		return types.TestReport{FailReason: fmt.Sprintf("cannot read target %s: %v", targetPath, err)}
	}

	if err := os.WriteFile(targetPath, []byte(newSource), 0o644); err != nil {
		return types.TestReport{FailReason: fmt.Sprintf("cannot write candidate to %s: %v", targetPath, err)}
	}
	defer func() {
		if restoreErr := os.WriteFile(targetPath, original, 0o644); restoreErr != nil {
			log.Error("failed to restore %s after harness run: %v", targetPath, restoreErr)
		}
	}()

	if h.mode == ModeQuick {
		return h.runQuick(ctx, targetPath)
	}
	return h.runFull(ctx, targetPath)
}

// runQuick interprets newSource in-process with Yaegi: a syntax/compile
// check plus a best-effort package-level evaluation, bounded by ctx.
// It never runs the target's test suite — Yaegi has no `go test`
// equivalent — so TestsOK is left true whenever syntax and evaluation
// succeed, and the caller is responsible for treating ModeQuick reports
// as advisory, not a substitute for ModeFull before a real commit.
func (h *Harness) runQuick(ctx context.Context, targetPath string) types.TestReport {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return types.TestReport{FailReason: fmt.Sprintf("yaegi stdlib load failed: %v", err)}
	}

	done := make(chan error, 1)
	go func() {
		_, evalErr := i.EvalPath(targetPath)
		done <- evalErr
	}()

	select {
	case err := <-done:
		if err != nil {
			if looksLikeSyntaxError(err) {
				return types.TestReport{FailReason: "Syntax error: " + err.Error()}
			}
			return types.TestReport{SyntaxOK: true, FailReason: "Type error: " + err.Error()}
		}
		return types.TestReport{SyntaxOK: true, TypeOK: true, TestsOK: true}
	case <-ctx.Done():
		return types.TestReport{FailReason: "harness quick run timed out: " + ctx.Err().Error()}
	}
}

func looksLikeSyntaxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "syntax error") || strings.Contains(msg, "expected") || strings.Contains(msg, "unexpected")
}

// runFull shells out to the real Go toolchain against targetPath's
// module, the production-mode path (spec §4.5 steps 1-3).
func (h *Harness) runFull(ctx context.Context, targetPath string) types.TestReport {
	dir := filepath.Dir(targetPath)

	if out, err := h.goCommand(ctx, dir, "build", "./..."); err != nil {
		return types.TestReport{FailReason: "Syntax error: " + firstLine(out, err)}
	}

	if out, err := h.goCommand(ctx, dir, "vet", "./..."); err != nil {
		return types.TestReport{SyntaxOK: true, FailReason: "Type error: " + firstLine(out, err)}
	}

	if !hasColocatedTest(targetPath) {
		return types.TestReport{SyntaxOK: true, TypeOK: true, TestsOK: true}
	}

	if out, err := h.goCommand(ctx, dir, "test", "./..."); err != nil {
		return types.TestReport{SyntaxOK: true, TypeOK: true, FailReason: "Tests failed: " + firstLine(out, err)}
	}
	return types.TestReport{SyntaxOK: true, TypeOK: true, TestsOK: true}
}

// goCommand runs `go <args...>` in dir with h.cfg's env/flags applied.
func (h *Harness) goCommand(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append(append([]string{}, args[:1]...), h.cfg.GoFlags...)
	fullArgs = append(fullArgs, args[1:]...)

	cmd := exec.CommandContext(ctx, "go", fullArgs...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	for k, v := range h.cfg.EnvVars {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	out, err := cmd.CombinedOutput()
	return string(out), err
}

// hasColocatedTest reports whether targetPath has a same-directory
// _test.go file, per spec §4.5 step 3's "colocated test module exists".
func hasColocatedTest(targetPath string) bool {
	base := strings.TrimSuffix(filepath.Base(targetPath), ".go")
	testPath := filepath.Join(filepath.Dir(targetPath), base+"_test.go")
	_, err := os.Stat(testPath)
	return err == nil
}

func firstLine(out string, err error) string {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return err.Error()
	}
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

// defaultTimeout bounds a harness run absent an explicit context
// deadline, so a hung subprocess can never block the pipeline forever.
const defaultTimeout = 2 * time.Minute

// WithDefaultTimeout returns ctx unchanged if it already carries a
// deadline, otherwise a child context bounded by defaultTimeout.
func WithDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultTimeout)
}
