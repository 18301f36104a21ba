package demon

import "testing"

func TestDetectParasitic_HardcodesComputedReturn(t *testing.T) {
	original := "package sample\n\nfunc Total(a, b int) int {\n\treturn a + b\n}\n"
	mutated := "package sample\n\nfunc Total(a, b int) int {\n\treturn 7\n}\n"
	reason, found := DetectParasitic(original, mutated)
	if !found {
		t.Fatal("expected a computed-return-replaced-by-literal pattern to be detected")
	}
	if reason == "" {
		t.Error("expected a non-empty reason")
	}
}

func TestDetectParasitic_DeletesFunctionalBody(t *testing.T) {
	original := "package sample\n\nfunc Process(x int) int {\n\ty := x * 2\n\tz := y + 1\n\treturn z\n}\n"
	mutated := "package sample\n\nfunc Process(x int) int {\n\treturn 0\n}\n"
	_, found := DetectParasitic(original, mutated)
	if !found {
		t.Fatal("expected a deleted functional body to be detected")
	}
}

func TestDetectParasitic_SpecialCasesNarrowInputs(t *testing.T) {
	original := "package sample\n\nfunc Classify(x int) int {\n\treturn x * x\n}\n"
	mutated := "package sample\n\nfunc Classify(x int) int {\n" +
		"\tif x == 1 {\n\t\treturn 1\n\t}\n" +
		"\tif x == 2 {\n\t\treturn 4\n\t}\n" +
		"\treturn x * x\n}\n"
	reason, found := DetectParasitic(original, mutated)
	if !found {
		t.Fatal("expected narrow-input special-casing to be detected")
	}
	if reason == "" {
		t.Error("expected a non-empty reason")
	}
}

func TestDetectParasitic_AllowsBenignRefactor(t *testing.T) {
	original := "package sample\n\nfunc Total(a, b int) int {\n\treturn a + b\n}\n"
	mutated := "package sample\n\nfunc Total(a, b int) int {\n\tsum := a + b\n\treturn sum\n}\n"
	_, found := DetectParasitic(original, mutated)
	if found {
		t.Fatal("expected a benign refactor to pass the parasitic check")
	}
}

func TestDetectParasitic_IgnoresPreexistingNarrowCases(t *testing.T) {
	original := "package sample\n\nfunc Classify(x int) int {\n" +
		"\tif x == 1 {\n\t\treturn 1\n\t}\n" +
		"\tif x == 2 {\n\t\treturn 4\n\t}\n" +
		"\treturn x * x\n}\n"
	mutated := original // unchanged
	_, found := DetectParasitic(original, mutated)
	if found {
		t.Fatal("expected pre-existing narrow cases (not newly introduced) to pass")
	}
}
