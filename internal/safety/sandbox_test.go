package safety

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// TestMain verifies that Run's worker goroutine (sandbox.go) never outlives
// its test: every work func in this file either returns promptly or waits
// on ctx.Done(), so no exclusion list is needed here unlike mangle's.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSandbox_RunsWorkInsideTempDir(t *testing.T) {
	sb := NewSandbox(SandboxLimits{Timeout: time.Second})
	var sawDir string
	err := sb.Run(context.Background(), func(ctx context.Context, dir string) error {
		sawDir = dir
		_, statErr := os.Stat(dir)
		return statErr
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sawDir == "" {
		t.Fatal("expected work to receive a sandbox directory")
	}
	if _, err := os.Stat(sawDir); !os.IsNotExist(err) {
		t.Error("expected the sandbox directory to be removed after Run returns")
	}
}

func TestSandbox_PropagatesWorkError(t *testing.T) {
	sb := NewSandbox(SandboxLimits{Timeout: time.Second})
	err := sb.Run(context.Background(), func(ctx context.Context, dir string) error {
		return os.ErrPermission
	})
	if err == nil {
		t.Fatal("expected Run to propagate the work function's error")
	}
}

func TestSandbox_TimesOut(t *testing.T) {
	sb := NewSandbox(SandboxLimits{Timeout: 10 * time.Millisecond})
	err := sb.Run(context.Background(), func(ctx context.Context, dir string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestSandbox_RejectsExcessFileCount(t *testing.T) {
	sb := NewSandbox(SandboxLimits{Timeout: time.Second, MaxFilesCreated: 1})
	err := sb.Run(context.Background(), func(ctx context.Context, dir string) error {
		for i := 0; i < 3; i++ {
			if werr := os.WriteFile(filepath.Join(dir, "f"+string(rune('0'+i))), []byte("x"), 0o644); werr != nil {
				return werr
			}
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected the file-count limit to be exceeded")
	}
}

func TestSandbox_AllowsBinary(t *testing.T) {
	sb := NewSandbox(SandboxLimits{AllowedBinary: map[string]bool{"go": true, "rm": false}})
	if !sb.AllowsBinary("go") {
		t.Error("expected go to be allowed")
	}
	if sb.AllowsBinary("rm") {
		t.Error("expected rm to be denied")
	}
	if sb.AllowsBinary("git") {
		t.Error("expected a binary absent from a configured allowlist to be denied by default")
	}
}

func TestSandbox_EmptyAllowlistAllowsEverything(t *testing.T) {
	sb := NewSandbox(SandboxLimits{})
	if !sb.AllowsBinary("anything") {
		t.Error("expected an empty allowlist to permit any binary")
	}
}
