package judge

// GenericJudge implements the language-agnostic 5-signal variant (spec
// §4.6): size-delta, documentation, annotations, safety, confidence,
// with the same verdict thresholding as PrincipleJudge.
type GenericJudge struct{}

// NewGenericJudge creates a GenericJudge.
func NewGenericJudge() *GenericJudge { return &GenericJudge{} }

// Evaluate scores an improvement's before/after source text without
// assuming anything Go-specific about its shape.
func (j *GenericJudge) Evaluate(module, originalText, newText string, confidence float64) Result {
	sizeDelta := tastefulScore(originalText, newText) // same delta heuristic, principle-neutral name
	documentation := joyfulScore(newText)
	annotations := annotationScore(newText)
	safety := ethicalScore(originalText, newText)
	curated := clamp01(confidence)

	scores := []Score{
		{"SizeDelta", sizeDelta},
		{"Documentation", documentation},
		{"Annotations", annotations},
		{"Safety", safety},
		{"Confidence", curated},
	}

	avg := average(scores)
	result := Result{
		Verdict: verdictFor(avg, safety),
		Scores:  scores,
		Average: avg,
		Reasons: reasonsFor(scores),
	}
	logResult("generic", module, result)
	return result
}

// annotationScore: 0.8 if newText documents its exported surface (any
// doc comment present), else 0.6 — language-agnostic stand-in for
// per-parameter type annotations, since "annotations" in the spec's
// original dynamically-typed sense has no universal equivalent; a
// present doc comment is the nearest signal every language in the pack
// shares.
func annotationScore(newText string) float64 {
	return joyfulScore(newText)
}
