package types

import "fmt"

// IssueCategory classifies a Validator finding (spec §4.4).
type IssueCategory string

const (
	IssueSyntax      IssueCategory = "SYNTAX"
	IssueConstructor IssueCategory = "CONSTRUCTOR"
	IssueTypeAnnot   IssueCategory = "TYPE_ANNOTATION"
	IssueGenericType IssueCategory = "GENERIC_TYPE"
	IssueComplete    IssueCategory = "COMPLETENESS"
	IssueImport      IssueCategory = "IMPORT"
)

// Severity is how blocking a Validator issue is.
type Severity string

const (
	SeverityBlocker Severity = "blocker"
	SeverityWarning Severity = "warning"
)

// StructuralError is unrecoverable: syntax error, an import the Repairer
// could not resolve, or an LLM response that failed to parse.
type StructuralError struct {
	Module string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error in %s: %s", e.Module, e.Reason)
}

// TypedError is usually recoverable by a retry: the type-checker rejected
// the candidate.
type TypedError struct {
	Module string
	Detail string
}

func (e *TypedError) Error() string {
	return fmt.Sprintf("type error in %s: %s", e.Module, e.Detail)
}

// BehavioralError is recoverable only by fallback: the test suite failed
// against the candidate.
type BehavioralError struct {
	Module string
	Detail string
}

func (e *BehavioralError) Error() string {
	return fmt.Sprintf("behavioral error in %s: %s", e.Module, e.Detail)
}

// SystemicError aborts the pipeline for one module: a preflight baseline
// exceeded threshold, a rate limit tripped, or the sandbox was breached.
type SystemicError struct {
	Module string
	Reason string
}

func (e *SystemicError) Error() string {
	return fmt.Sprintf("systemic error, skipping %s: %s", e.Module, e.Reason)
}

// OperationalError is non-fatal: a VCS commit or telemetry write failed.
// The pipeline records it and continues.
type OperationalError struct {
	Op     string
	Detail string
}

func (e *OperationalError) Error() string {
	return fmt.Sprintf("operational error during %s: %s", e.Op, e.Detail)
}
