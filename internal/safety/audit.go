package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"thermocode/internal/mangle"
)

// AuditCategory is one of the event kinds spec §4.11 names.
type AuditCategory string

const (
	MutationGenerated  AuditCategory = "MUTATION_GENERATED"
	InfectionStarted   AuditCategory = "INFECTION_STARTED"
	InfectionSucceeded AuditCategory = "INFECTION_SUCCEEDED"
	InfectionFailed    AuditCategory = "INFECTION_FAILED"
	RolledBack         AuditCategory = "ROLLED_BACK"
)

// AuditEvent is one append-only log entry.
type AuditEvent struct {
	EventID   string        `json:"event_id"`
	Timestamp time.Time     `json:"timestamp"`
	Category  AuditCategory `json:"category"`
	Actor     string        `json:"actor"`
	Detail    string        `json:"detail"`
}

// AuditLogger is an append-only JSON-lines event sink (spec §4.11),
// grounded on internal/tactile.DockerExecutor's auditCallback field
// (docker.go) for the "every sensitive operation reports an event"
// shape, generalized here into a concrete file-backed sink since the
// Safety Kernel has no executor to delegate the callback to. Every
// event is also pushed as an audit_event fact via internal/mangle so
// Datalog-style queries over the audit trail are possible without
// re-parsing the log file.
type AuditLogger struct {
	mu    sync.Mutex
	path  string
	facts *mangle.Engine // optional
}

// NewAuditLogger creates a logger appending to path. facts may be nil.
func NewAuditLogger(path string, facts *mangle.Engine) *AuditLogger {
	return &AuditLogger{path: path, facts: facts}
}

// Record appends one event, both to the JSON-lines file and (if
// configured) as a Mangle fact.
func (a *AuditLogger) Record(category AuditCategory, actor, detail string, at time.Time) error {
	event := AuditEvent{EventID: uuid.New().String(), Timestamp: at, Category: category, Actor: actor, Detail: detail}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.path != "" {
		if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
			return fmt.Errorf("safety: failed to create audit log directory: %w", err)
		}
		f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("safety: failed to open audit log: %w", err)
		}
		defer f.Close()

		line, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("safety: failed to marshal audit event: %w", err)
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("safety: failed to append audit event: %w", err)
		}
	}

	if a.facts != nil {
		if err := a.facts.AddFact("audit_event", at.UTC().Format(time.RFC3339Nano), actor, string(category), detail); err != nil {
			return fmt.Errorf("safety: failed to record audit_event fact: %w", err)
		}
	}
	return nil
}
