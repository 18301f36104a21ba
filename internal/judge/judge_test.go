package judge

import (
	"strings"
	"testing"

	"thermocode/internal/types"
)

const originalSample = `package widgets

// Widget does a thing.
type Widget struct {
	Name string
}

func (w *Widget) Do() string { return w.Name }
`

func TestPrincipleJudge_AcceptsCleanShrinkingImprovement(t *testing.T) {
	newText := `package widgets

// Widget does a thing, now documented with types.CatalogEntry usage.
type Widget struct {
	Name string
}

func (w *Widget) Do() string { return w.Name }
`
	result := NewPrincipleJudge().Evaluate("widgets", originalSample, newText, 0.9)
	if result.Verdict != types.VerdictAccept {
		t.Fatalf("expected ACCEPT, got %s with scores %+v", result.Verdict, result.Scores)
	}
	if result.Average < 0.75 {
		t.Errorf("expected average >= 0.75, got %.3f", result.Average)
	}
}

func TestPrincipleJudge_RejectsConcerningExecIntroduction(t *testing.T) {
	newText := originalSample + "\nfunc Dangerous() { exec.Command(\"rm\", \"-rf\", \"/\").Run() }\n"
	result := NewPrincipleJudge().Evaluate("widgets", originalSample, newText, 0.9)
	if result.Verdict != types.VerdictReject {
		t.Fatalf("expected REJECT for a newly introduced exec.Command, got %s", result.Verdict)
	}
	if !containsReasonFor(result.Reasons, "Ethical") {
		t.Errorf("expected a reason naming Ethical, got %+v", result.Reasons)
	}
}

func TestPrincipleJudge_RevisesMiddlingImprovement(t *testing.T) {
	// Undocumented, >30% larger, several new structs, moderate
	// confidence, no exec concerns: the penalized signals pull the
	// average (5.0/7 ≈ 0.71) below ACCEPT but not below REJECT, landing
	// the verdict in REVISE.
	newText := "package widgets\n\ntype Widget struct {\n\tName string\n}\n\n" +
		"func (w *Widget) Do() string { return w.Name }\n\n" +
		"type A struct{}\ntype B struct{}\ntype C struct{}\ntype D struct{}\n"
	result := NewPrincipleJudge().Evaluate("widgets", originalSample, newText, 0.5)
	if result.Verdict != types.VerdictRevise {
		t.Fatalf("expected REVISE, got %s with scores %+v (avg %.3f)", result.Verdict, result.Scores, result.Average)
	}
}

func TestGenericJudge_AcceptsDocumentedShrinkingChange(t *testing.T) {
	newText := "package widgets\n\n// Widget does a thing.\ntype Widget struct{ Name string }\n"
	result := NewGenericJudge().Evaluate("widgets", originalSample, newText, 0.95)
	if result.Verdict != types.VerdictAccept {
		t.Fatalf("expected ACCEPT, got %s with scores %+v", result.Verdict, result.Scores)
	}
}

func TestGenericJudge_RejectsUnsafeIntroduction(t *testing.T) {
	newText := originalSample + "\nvar p = unsafe.Pointer(nil)\n"
	result := NewGenericJudge().Evaluate("widgets", originalSample, newText, 0.9)
	if result.Verdict != types.VerdictReject {
		t.Fatalf("expected REJECT for newly introduced unsafe.Pointer, got %s", result.Verdict)
	}
}

func TestHeterarchicalScore_PenalizesLargeStructGrowth(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("package widgets\n\n")
	for i := 0; i < 5; i++ {
		sb.WriteString("type S" + string(rune('A'+i)) + " struct{}\n")
	}
	score := heterarchicalScore(originalSample, sb.String())
	if score != 0.7 {
		t.Errorf("expected 0.7 for >2 new structs, got %.2f", score)
	}
}

func containsReasonFor(reasons []string, principle string) bool {
	for _, r := range reasons {
		if strings.Contains(r, principle) {
			return true
		}
	}
	return false
}
