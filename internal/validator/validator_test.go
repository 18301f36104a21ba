package validator

import (
	"testing"

	"thermocode/internal/types"
)

func TestValidate_SyntaxErrorIsBlocker(t *testing.T) {
	src := "package sample\n\nfunc broken( {\n"
	report := Validate("sample.go", src)
	if report.Valid {
		t.Fatal("expected invalid report for unparseable source")
	}
	if len(report.Issues) != 1 || report.Issues[0].Category != types.IssueSyntax {
		t.Fatalf("expected a single SYNTAX issue, got %+v", report.Issues)
	}
	if report.Issues[0].Severity != types.SeverityBlocker {
		t.Errorf("expected syntax issue to be a blocker")
	}
}

func TestValidate_ValidSourceHasNoBlockers(t *testing.T) {
	src := `package sample

// NewWidget builds a Widget.
func NewWidget() *Widget { return &Widget{} }

type Widget struct{}

func (w *Widget) Name() string { return "widget" }
`
	report := Validate("sample.go", src)
	if !report.Valid {
		t.Fatalf("expected valid report, got issues: %+v", report.Issues)
	}
}

func TestCheckConstructors_FlagsStructWithMethodsButNoConstructor(t *testing.T) {
	src := `package sample

type Widget struct{}

func (w *Widget) Name() string { return "widget" }
`
	report := Validate("sample.go", src)
	if !hasCategory(report, types.IssueConstructor) {
		t.Fatalf("expected CONSTRUCTOR issue, got %+v", report.Issues)
	}
}

func TestCheckConstructors_IgnoresDataOnlyStruct(t *testing.T) {
	src := `package sample

type Point struct {
	X, Y int
}
`
	report := Validate("sample.go", src)
	if hasCategory(report, types.IssueConstructor) {
		t.Fatalf("did not expect CONSTRUCTOR issue for a data-only struct: %+v", report.Issues)
	}
}

func TestCheckTypeAnnotations_FlagsExportedAnyParam(t *testing.T) {
	src := `package sample

func Process(payload any) {}
`
	report := Validate("sample.go", src)
	if !hasCategory(report, types.IssueTypeAnnot) {
		t.Fatalf("expected TYPE_ANNOTATION issue, got %+v", report.Issues)
	}
}

func TestCheckTypeAnnotations_IgnoresUnexportedAndSpecialMethods(t *testing.T) {
	src := `package sample

func process(payload any) {}

type Widget struct{}

func (w *Widget) String() string { return "" }
func (w *Widget) Error(payload any) string { return "" }
`
	report := Validate("sample.go", src)
	if hasCategory(report, types.IssueTypeAnnot) {
		t.Fatalf("did not expect TYPE_ANNOTATION issue, got %+v", report.Issues)
	}
}

func TestCheckGenericArity_FlagsMismatch(t *testing.T) {
	src := `package sample

func Map[T, U any](xs []T, f func(T) U) []U { return nil }

func use() {
	Map[int](nil, nil)
}
`
	report := Validate("sample.go", src)
	if !hasCategory(report, types.IssueGenericType) {
		t.Fatalf("expected GENERIC_TYPE issue, got %+v", report.Issues)
	}
}

func TestCheckGenericArity_AcceptsMatchingArity(t *testing.T) {
	src := `package sample

func Map[T, U any](xs []T, f func(T) U) []U { return nil }

func use() {
	Map[int, string](nil, nil)
}
`
	report := Validate("sample.go", src)
	if hasCategory(report, types.IssueGenericType) {
		t.Fatalf("did not expect GENERIC_TYPE issue, got %+v", report.Issues)
	}
}

func TestCheckCompleteness_FlagsBareNoOpAndMarkers(t *testing.T) {
	src := `package sample

func Stub() {}

// TODO: fill this in
func Another() {
	_ = 1
}
`
	report := Validate("sample.go", src)
	if !hasCategory(report, types.IssueComplete) {
		t.Fatalf("expected COMPLETENESS issue, got %+v", report.Issues)
	}
}

func TestCheckCompleteness_FlagsExplicitNotImplemented(t *testing.T) {
	src := `package sample

func Stub() {
	panic("not implemented")
}
`
	report := Validate("sample.go", src)
	if !hasCategory(report, types.IssueComplete) {
		t.Fatalf("expected COMPLETENESS issue for explicit not-implemented panic, got %+v", report.Issues)
	}
}

func TestCheckImports_FlagsMissingCanonicalImport(t *testing.T) {
	src := `package sample

func Deadline() {
	_ = context.Background()
}
`
	report := Validate("sample.go", src)
	if !hasCategory(report, types.IssueImport) {
		t.Fatalf("expected IMPORT issue, got %+v", report.Issues)
	}
	if report.Valid {
		t.Error("expected missing import to be a blocker")
	}
}

func TestCheckImports_AcceptsPresentImport(t *testing.T) {
	src := `package sample

import "context"

func Deadline() {
	_ = context.Background()
}
`
	report := Validate("sample.go", src)
	if hasCategory(report, types.IssueImport) {
		t.Fatalf("did not expect IMPORT issue, got %+v", report.Issues)
	}
}

func hasCategory(r Report, cat types.IssueCategory) bool {
	for _, iss := range r.Issues {
		if iss.Category == cat {
			return true
		}
	}
	return false
}
