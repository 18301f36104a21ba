// Package logging's audit half provides an append-only event sink whose
// entries double as Mangle-queryable facts, per spec §4.11's Audit Logger.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// AuditEventType names one audit category; maps to a Mangle predicate.
type AuditEventType string

const (
	// Phage/infection lifecycle -> infection_event/5
	AuditMutationGenerated  AuditEventType = "mutation_generated"
	AuditInfectionStarted   AuditEventType = "infection_started"
	AuditInfectionSucceeded AuditEventType = "infection_succeeded"
	AuditInfectionFailed    AuditEventType = "infection_failed"
	AuditRolledBack         AuditEventType = "rolled_back"

	// Teleological Demon layer decisions -> demon_decision/5
	AuditDemonPass   AuditEventType = "demon_pass"
	AuditDemonReject AuditEventType = "demon_reject"

	// Code Judge verdicts -> judge_verdict/4
	AuditJudgeVerdict AuditEventType = "judge_verdict"

	// Safety kernel -> safety_check/4
	AuditSafetyCheck AuditEventType = "safety_check"
	AuditSafetyBlock AuditEventType = "safety_block"
	AuditSafetyAllow AuditEventType = "safety_allow"
	AuditRateLimited AuditEventType = "rate_limited"

	// Self-evolution fixed point -> convergence_event/4
	AuditConvergenceStep  AuditEventType = "convergence_step"
	AuditConvergenceFinal AuditEventType = "convergence_final"

	// LLM roundtrips -> llm_call/5
	AuditLLMRequest  AuditEventType = "llm_request"
	AuditLLMResponse AuditEventType = "llm_response"
	AuditLLMError    AuditEventType = "llm_error"

	// Pipeline-level -> pipeline_event/4
	AuditModuleSkipped  AuditEventType = "module_skipped"
	AuditExperimentDone AuditEventType = "experiment_done"

	// Generic error reporting -> error_event/4
	AuditErrorGeneric  AuditEventType = "error_generic"
	AuditErrorCritical AuditEventType = "error_critical"
)

// AuditEvent is one structured audit log entry.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	Category   string                 `json:"cat"`
	Module     string                 `json:"module"`
	PhageID    string                 `json:"phage"`
	Target     string                 `json:"target"`
	Action     string                 `json:"action"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms"`
	Error      string                 `json:"error"`
	Message    string                 `json:"msg"`
	Fields     map[string]interface{} `json:"fields"`
	MangleFact string                 `json:"mangle"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger writes structured audit events, generating a Mangle fact
// alongside each one.
type AuditLogger struct {
	module  string
	phageID string
}

// InitAudit initializes the audit log file under .evolve/logs.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		return nil
	}
	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))
	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	fmt.Fprintf(auditFile, "# audit log started %s\n", time.Now().Format(time.RFC3339))
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global, unscoped audit logger.
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditForPhage scopes an audit logger to one phage/module pair.
func AuditForPhage(module, phageID string) *AuditLogger {
	return &AuditLogger{module: module, phageID: phageID}
}

// Log writes an audit event, generating its Mangle fact.
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.Module == "" {
		event.Module = a.module
	}
	if event.PhageID == "" {
		event.PhageID = a.phageID
	}
	if event.Fields == nil {
		event.Fields = make(map[string]interface{})
	}
	event.MangleFact = generateMangleFact(event)

	auditMu.Lock()
	defer auditMu.Unlock()
	if data, err := json.Marshal(event); err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

func generateMangleFact(e AuditEvent) string {
	switch e.EventType {
	case AuditMutationGenerated, AuditInfectionStarted, AuditInfectionSucceeded, AuditInfectionFailed, AuditRolledBack:
		return fmt.Sprintf("infection_event(%d, /%s, \"%s\", \"%s\", %v).",
			e.Timestamp, e.EventType, e.PhageID, e.Target, e.Success)

	case AuditDemonPass, AuditDemonReject:
		layer := 0
		if l, ok := e.Fields["layer"].(int); ok {
			layer = l
		}
		return fmt.Sprintf("demon_decision(%d, \"%s\", /%s, %d, %v).",
			e.Timestamp, e.PhageID, e.EventType, layer, e.Success)

	case AuditJudgeVerdict:
		verdict := ""
		if v, ok := e.Fields["verdict"].(string); ok {
			verdict = v
		}
		return fmt.Sprintf("judge_verdict(%d, \"%s\", /%s, %.2f).",
			e.Timestamp, e.Target, verdict, fieldFloat(e.Fields, "average_score"))

	case AuditSafetyCheck, AuditSafetyBlock, AuditSafetyAllow, AuditRateLimited:
		return fmt.Sprintf("safety_check(%d, /%s, \"%s\", %v).",
			e.Timestamp, e.EventType, e.Action, e.Success)

	case AuditConvergenceStep, AuditConvergenceFinal:
		return fmt.Sprintf("convergence_event(%d, /%s, \"%s\", %.2f).",
			e.Timestamp, e.EventType, e.Module, fieldFloat(e.Fields, "similarity"))

	case AuditLLMRequest, AuditLLMResponse, AuditLLMError:
		tokens := 0
		if t, ok := e.Fields["tokens"].(int); ok {
			tokens = t
		}
		return fmt.Sprintf("llm_call(%d, /%s, %v, %d, %d).",
			e.Timestamp, e.EventType, e.Success, e.DurationMs, tokens)

	case AuditModuleSkipped, AuditExperimentDone:
		return fmt.Sprintf("pipeline_event(%d, /%s, \"%s\", %v).",
			e.Timestamp, e.EventType, e.Module, e.Success)

	case AuditErrorGeneric, AuditErrorCritical:
		return fmt.Sprintf("error_event(%d, /%s, \"%s\", \"%s\").",
			e.Timestamp, e.EventType, e.Module, escapeString(e.Error))

	default:
		return fmt.Sprintf("audit_event(%d, /%s, \"%s\", %v).",
			e.Timestamp, e.EventType, escapeString(e.Message), e.Success)
	}
}

func fieldFloat(fields map[string]interface{}, key string) float64 {
	if v, ok := fields[key].(float64); ok {
		return v
	}
	return 0
}

func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// MutationGenerated records a Mutator emission.
func (a *AuditLogger) MutationGenerated(schema string) {
	a.Log(AuditEvent{EventType: AuditMutationGenerated, Target: schema, Success: true,
		Message: fmt.Sprintf("mutation generated via schema %s", schema)})
}

// InfectionStarted records the beginning of Phage.Infect.
func (a *AuditLogger) InfectionStarted(target string) {
	a.Log(AuditEvent{EventType: AuditInfectionStarted, Target: target, Success: true})
}

// InfectionSucceeded records a committed infection.
func (a *AuditLogger) InfectionSucceeded(target string, durationMs int64) {
	a.Log(AuditEvent{EventType: AuditInfectionSucceeded, Target: target, Success: true, DurationMs: durationMs})
}

// InfectionFailed records a failed infection (rollback follows).
func (a *AuditLogger) InfectionFailed(target, reason string) {
	a.Log(AuditEvent{EventType: AuditInfectionFailed, Target: target, Success: false, Error: reason})
}

// RolledBack records that checkpointed files were restored.
func (a *AuditLogger) RolledBack(target string) {
	a.Log(AuditEvent{EventType: AuditRolledBack, Target: target, Success: true})
}

// DemonDecision records a Teleological Demon layer outcome.
func (a *AuditLogger) DemonDecision(pass bool, layer int, reason string) {
	evt := AuditDemonReject
	if pass {
		evt = AuditDemonPass
	}
	a.Log(AuditEvent{EventType: evt, Success: pass, Message: reason, Fields: map[string]interface{}{"layer": layer}})
}

// JudgeVerdict records the Code Judge's decision for a target.
func (a *AuditLogger) JudgeVerdict(target, verdict string, avgScore float64) {
	a.Log(AuditEvent{EventType: AuditJudgeVerdict, Target: target, Success: true,
		Fields: map[string]interface{}{"verdict": verdict, "average_score": avgScore}})
}

// SafetyCheck records a Safety Kernel allow/block decision.
func (a *AuditLogger) SafetyCheck(action string, allowed bool, reason string) {
	evt := AuditSafetyAllow
	if !allowed {
		evt = AuditSafetyBlock
	}
	a.Log(AuditEvent{EventType: evt, Action: action, Success: allowed, Message: reason})
}

// RateLimited records a rate-limit rejection.
func (a *AuditLogger) RateLimited(window string) {
	a.Log(AuditEvent{EventType: AuditRateLimited, Action: window, Success: false})
}

// ConvergenceStep records one fixed-point self-evolution iteration.
func (a *AuditLogger) ConvergenceStep(module string, iteration int, similarity float64) {
	a.Log(AuditEvent{EventType: AuditConvergenceStep, Module: module, Success: true,
		Fields: map[string]interface{}{"iteration": iteration, "similarity": similarity}})
}

// ConvergenceFinal records the terminal state of self-evolution.
func (a *AuditLogger) ConvergenceFinal(module string, converged bool, iterations int, similarity float64) {
	a.Log(AuditEvent{EventType: AuditConvergenceFinal, Module: module, Success: converged,
		Fields: map[string]interface{}{"iterations": iterations, "similarity": similarity}})
}

// LLMCall records one LLM roundtrip.
func (a *AuditLogger) LLMCall(success bool, durationMs int64, tokens int, errMsg string) {
	evt := AuditLLMResponse
	if !success {
		evt = AuditLLMError
	}
	a.Log(AuditEvent{EventType: evt, Success: success, DurationMs: durationMs, Error: errMsg,
		Fields: map[string]interface{}{"tokens": tokens}})
}

// ModuleSkipped records a Systemic-error module skip.
func (a *AuditLogger) ModuleSkipped(module, reason string) {
	a.Log(AuditEvent{EventType: AuditModuleSkipped, Module: module, Success: false, Error: reason})
}

// Error records a generic or critical error event.
func (a *AuditLogger) Error(module string, err error, critical bool) {
	evt := AuditErrorGeneric
	if critical {
		evt = AuditErrorCritical
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	a.Log(AuditEvent{EventType: evt, Module: module, Success: false, Error: msg})
}
