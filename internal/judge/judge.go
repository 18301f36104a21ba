// Package judge implements the Code Judge (spec §4.6) in its two
// flavors — a language-aware Principle judge and a language-agnostic
// Generic judge — both mapping an improvement's before/after source to
// a {verdict, principle_scores[], average_score, reasons[]} Result.
//
// Grounded on the teacher's internal/autopoiesis/prompt_evolution/judge.go
// TaskJudge: this package keeps its shape (a judge type with an
// Evaluate method, structured verdict, explanatory reasons) but not its
// mechanism — the teacher's judge calls out to an LLM for a PASS/FAIL
// verdict; spec §4.6's judge is a fixed set of deterministic heuristic
// signals over the diff text, so Evaluate here never makes an LLM call.
package judge

import (
	"fmt"
	"regexp"
	"strings"

	"thermocode/internal/logging"
	"thermocode/internal/types"
)

// Score is one named signal in [0,1].
type Score struct {
	Principle string
	Value     float64
}

// Result is the Judge's output for one improvement (spec §4.6).
type Result struct {
	Verdict types.VerdictType
	Scores  []Score
	Average float64
	Reasons []string
}

// rejectGate is the level below which the gating signal (ethical/safety)
// forces REJECT regardless of average, per spec: "REJECT if avg < 0.5
// or ethical < 0.5".
const (
	acceptAverage = 0.75
	acceptGate    = 0.8
	rejectAverage = 0.5
	rejectGate    = 0.5
)

func verdictFor(average, gate float64) types.VerdictType {
	switch {
	case average >= acceptAverage && gate >= acceptGate:
		return types.VerdictAccept
	case average < rejectAverage || gate < rejectGate:
		return types.VerdictReject
	default:
		return types.VerdictRevise
	}
}

func average(scores []Score) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s.Value
	}
	return sum / float64(len(scores))
}

func reasonsFor(scores []Score) []string {
	var reasons []string
	for _, s := range scores {
		if s.Value < 0.7 {
			reasons = append(reasons, fmt.Sprintf("%s scored %.2f", s.Principle, s.Value))
		}
	}
	return reasons
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var concerningExecPatterns = []string{
	"exec.Command", "os/exec", "unsafe.Pointer", "syscall.Exec", "dlopen", "os.StartProcess",
}

// introducesConcerningExec reports whether newText contains a
// dynamic-exec pattern that originalText does not (spec's *Ethical*/
// *Safety* signal).
func introducesConcerningExec(originalText, newText string) bool {
	for _, pattern := range concerningExecPatterns {
		if strings.Contains(newText, pattern) && !strings.Contains(originalText, pattern) {
			return true
		}
	}
	return false
}

var commentLineRe = regexp.MustCompile(`(?m)^\s*//`)

func hasDocumentation(text string) bool {
	return commentLineRe.MatchString(text)
}

var structDeclRe = regexp.MustCompile(`(?m)^\s*type\s+\w+\s+struct\b`)

func structCount(text string) int {
	return len(structDeclRe.FindAllString(text, -1))
}

var embeddedFieldRe = regexp.MustCompile(`(?m)^\t[A-Z]\w*\s*$`)
var interfaceDeclRe = regexp.MustCompile(`interface\s*\{`)

// compositionOccurrences counts Go's own composition idioms — anonymous
// embedded fields and interface declarations — as the Go analogue of
// spec's "composition-pattern occurrences".
func compositionOccurrences(text string) int {
	return len(embeddedFieldRe.FindAllString(text, -1)) + len(interfaceDeclRe.FindAllString(text, -1))
}

var domainReferenceRe = regexp.MustCompile(`\b(types|config|catalog|lattice|embedding)\.[A-Z]\w*`)

// referencesDomainToken reports whether text references an existing
// domain type from this system's own packages — the Go analogue of
// spec's "references a spec path/token": evidence the change is
// grounded in the existing codebase rather than invented whole cloth.
func referencesDomainToken(text string) bool {
	return domainReferenceRe.MatchString(text)
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

func logResult(label, module string, r Result) {
	logging.Get(logging.CategoryJudge).Debug("%s judged %s: verdict=%s avg=%.3f", label, module, r.Verdict, r.Average)
}
