package judge

// PrincipleJudge implements the 7-signal language-aware judge (spec §4.6).
type PrincipleJudge struct{}

// NewPrincipleJudge creates a PrincipleJudge.
func NewPrincipleJudge() *PrincipleJudge { return &PrincipleJudge{} }

// Evaluate scores an improvement's before/after source text.
func (j *PrincipleJudge) Evaluate(module, originalText, newText string, confidence float64) Result {
	tasteful := tastefulScore(originalText, newText)
	curated := clamp01(confidence)
	ethical := ethicalScore(originalText, newText)
	joyful := joyfulScore(newText)
	composable := composableScore(originalText, newText)
	heterarchical := heterarchicalScore(originalText, newText)
	generative := generativeScore(newText)

	scores := []Score{
		{"Tasteful", tasteful},
		{"Curated", curated},
		{"Ethical", ethical},
		{"Joyful", joyful},
		{"Composable", composable},
		{"Heterarchical", heterarchical},
		{"Generative", generative},
	}

	avg := average(scores)
	result := Result{
		Verdict: verdictFor(avg, ethical),
		Scores:  scores,
		Average: avg,
		Reasons: reasonsFor(scores),
	}
	logResult("principle", module, result)
	return result
}

// tastefulScore: line-count delta; >30% increase -> 0.5, shrinking ->
// 1.0. The spec leaves the remaining band (0-30% growth, or unchanged)
// unspecified; this system scores it 0.8, a middle value distinct from
// both named cases (documented in DESIGN.md).
func tastefulScore(originalText, newText string) float64 {
	origLines, newLines := lineCount(originalText), lineCount(newText)
	if newLines < origLines {
		return 1.0
	}
	if origLines == 0 {
		if newLines == 0 {
			return 1.0
		}
		return 0.5
	}
	growth := float64(newLines-origLines) / float64(origLines)
	if growth > 0.3 {
		return 0.5
	}
	return 0.8
}

func ethicalScore(originalText, newText string) float64 {
	if introducesConcerningExec(originalText, newText) {
		return 0.3
	}
	return 1.0
}

func joyfulScore(newText string) float64 {
	if hasDocumentation(newText) {
		return 0.8
	}
	return 0.6
}

// composableScore: 1.0 if composition-pattern occurrences do not
// regress, else 0.6.
func composableScore(originalText, newText string) float64 {
	if compositionOccurrences(newText) >= compositionOccurrences(originalText) {
		return 1.0
	}
	return 0.6
}

// heterarchicalScore: 0.7 if class (struct) count grows by >2 vs
// original, else 1.0 — the spec only names the penalized branch; this
// system treats the rest as unpenalized (documented in DESIGN.md).
func heterarchicalScore(originalText, newText string) float64 {
	if structCount(newText)-structCount(originalText) > 2 {
		return 0.7
	}
	return 1.0
}

func generativeScore(newText string) float64 {
	if referencesDomainToken(newText) {
		return 1.0
	}
	return 0.7
}
