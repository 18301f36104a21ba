package validator

import (
	"go/ast"
	"go/token"
	"strings"

	"thermocode/internal/types"
)

// checkConstructors flags a struct that has at least one method but no
// top-level NewXxx(...) function returning Xxx or *Xxx — the CONSTRUCTOR
// category, reinterpreted per the package doc.
func checkConstructors(file *ast.File) []Issue {
	structs := structTypes(file)
	if len(structs) == 0 {
		return nil
	}
	hasMethod := map[string]bool{}
	hasConstructor := map[string]bool{}

	for _, fd := range funcDecls(file) {
		if recv := receiverTypeName(fd.Recv); recv != "" {
			hasMethod[recv] = true
			continue
		}
		if strings.HasPrefix(fd.Name.Name, "New") {
			if target := returnsStructType(fd); target != "" {
				hasConstructor[target] = true
			}
		}
	}

	var issues []Issue
	for name := range structs {
		if hasMethod[name] && !hasConstructor[name] {
			issues = append(issues, Issue{
				Severity: types.SeverityWarning,
				Category: types.IssueConstructor,
				Symbol:   name,
				Detail:   "struct has methods but no NewXxx constructor",
			})
		}
	}
	return issues
}

// returnsStructType reports the bare type name fd's (single) return value
// names, stripping a leading pointer, or "" if fd doesn't return exactly
// one named/starred identifier type.
func returnsStructType(fd *ast.FuncDecl) string {
	if fd.Type.Results == nil || len(fd.Type.Results.List) != 1 {
		return ""
	}
	expr := fd.Type.Results.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

// specialMethodNames are the Go interface methods that double as the
// "dunder" functions the spec's TYPE_ANNOTATION exemption carves out
// (String/Error/etc. already carry their contract from the interface
// they satisfy, so a bare `any` in their signature is never their own
// doing).
var specialMethodNames = map[string]bool{
	"String": true, "Error": true, "Unwrap": true, "Is": true, "As": true,
}

// checkTypeAnnotations flags an exported, non-special function that
// takes a bare any/interface{} parameter — the Go analogue of a
// "missing parameter annotation" chosen in the package doc.
func checkTypeAnnotations(fset *token.FileSet, file *ast.File) []Issue {
	var issues []Issue
	for _, fd := range funcDecls(file) {
		if fd.Name.Name == "init" || fd.Name.Name == "main" {
			continue
		}
		if !fd.Name.IsExported() || specialMethodNames[fd.Name.Name] {
			continue
		}
		if fd.Type.Params == nil {
			continue
		}
		for _, field := range fd.Type.Params.List {
			if isEmptyInterface(field.Type) {
				issues = append(issues, Issue{
					Severity: types.SeverityWarning,
					Category: types.IssueTypeAnnot,
					Line:     fset.Position(fd.Pos()).Line,
					Symbol:   fd.Name.Name,
					Detail:   "exported function takes an untyped any/interface{} parameter",
				})
				break
			}
		}
	}
	return issues
}

func isEmptyInterface(expr ast.Expr) bool {
	switch t := expr.(type) {
	case *ast.InterfaceType:
		return t.Methods == nil || len(t.Methods.List) == 0
	case *ast.Ident:
		return t.Name == "any"
	}
	return false
}

// checkGenericArity flags a generic instantiation whose argument count
// doesn't match the type parameter count the instantiated symbol
// declares — the Go-native form of "known generics with wrong arity".
func checkGenericArity(fset *token.FileSet, file *ast.File) []Issue {
	arity := map[string]int{}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Type.TypeParams != nil {
				arity[d.Name.Name] = countFields(d.Type.TypeParams)
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok && ts.TypeParams != nil {
					arity[ts.Name.Name] = countFields(ts.TypeParams)
				}
			}
		}
	}
	if len(arity) == 0 {
		return nil
	}

	var issues []Issue
	ast.Inspect(file, func(n ast.Node) bool {
		name, got, pos := "", -1, token.NoPos
		switch e := n.(type) {
		case *ast.IndexExpr:
			if ident, ok := e.X.(*ast.Ident); ok {
				name, got, pos = ident.Name, 1, e.Pos()
			}
		case *ast.IndexListExpr:
			if ident, ok := e.X.(*ast.Ident); ok {
				name, got, pos = ident.Name, len(e.Indices), e.Pos()
			}
		}
		if name == "" {
			return true
		}
		if want, ok := arity[name]; ok && want != got {
			issues = append(issues, Issue{
				Severity: types.SeverityBlocker,
				Category: types.IssueGenericType,
				Line:     fset.Position(pos).Line,
				Symbol:   name,
				Detail:   "generic instantiation argument count does not match declared type parameters",
			})
		}
		return true
	})
	return issues
}

func countFields(fl *ast.FieldList) int {
	n := 0
	for _, f := range fl.List {
		if len(f.Names) == 0 {
			n++
		} else {
			n += len(f.Names)
		}
	}
	return n
}

// checkCompleteness flags an empty function body, an explicit
// not-implemented panic/error, or a TODO/FIXME marker inside the body.
func checkCompleteness(fset *token.FileSet, file *ast.File) []Issue {
	var issues []Issue
	for _, fd := range funcDecls(file) {
		if fd.Body == nil {
			continue // external/assembly decl, not this function's concern
		}
		if len(fd.Body.List) == 0 {
			issues = append(issues, Issue{
				Severity: types.SeverityWarning,
				Category: types.IssueComplete,
				Line:     fset.Position(fd.Body.Pos()).Line,
				Symbol:   fd.Name.Name,
				Detail:   "function body is a bare no-op",
			})
			continue
		}
		if isNotImplemented(fd.Body) {
			issues = append(issues, Issue{
				Severity: types.SeverityWarning,
				Category: types.IssueComplete,
				Line:     fset.Position(fd.Body.Pos()).Line,
				Symbol:   fd.Name.Name,
				Detail:   "function body is an explicit not-implemented stub",
			})
		}
	}
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			for _, marker := range noopBodyMarkers {
				if strings.Contains(c.Text, marker) {
					issues = append(issues, Issue{
						Severity: types.SeverityWarning,
						Category: types.IssueComplete,
						Line:     fset.Position(c.Pos()).Line,
						Detail:   "unresolved " + marker + " marker",
					})
				}
			}
		}
	}
	return issues
}

// isNotImplemented reports whether body's only statement panics or
// returns an error built from a "not implemented"-style string literal.
func isNotImplemented(body *ast.BlockStmt) bool {
	if len(body.List) != 1 {
		return false
	}
	call, ok := singleCall(body.List[0])
	if !ok {
		return false
	}
	ident, ok := call.Fun.(*ast.Ident)
	if !ok || ident.Name != "panic" || len(call.Args) != 1 {
		return false
	}
	lit, ok := call.Args[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return false
	}
	lowered := strings.ToLower(lit.Value)
	return strings.Contains(lowered, "not implemented") || strings.Contains(lowered, "todo")
}

func singleCall(stmt ast.Stmt) (*ast.CallExpr, bool) {
	expr, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return nil, false
	}
	call, ok := expr.X.(*ast.CallExpr)
	return call, ok
}

// canonicalImports maps a well-known package-qualified symbol prefix to
// the import path that must be present for it to resolve — the Go
// analogue of the spec's canonical "dataclass <- dataclasses" table.
var canonicalImports = map[string]string{
	"context":    "context",
	"errors":     "errors",
	"fmt":        "fmt",
	"sync":       "sync",
	"time":       "time",
	"strings":    "strings",
	"strconv":    "strconv",
	"json":       "encoding/json",
	"os":         "os",
	"io":         "io",
	"http":       "net/http",
	"regexp":     "regexp",
	"sort":       "sort",
	"uuid":       "github.com/google/uuid",
	"zap":        "go.uber.org/zap",
	"cobra":      "github.com/spf13/cobra",
}

// checkImports flags a selector expression (pkg.Symbol) whose package
// alias has no corresponding import clause, using canonicalImports to
// name what's missing when the alias is one the table recognizes.
func checkImports(fset *token.FileSet, file *ast.File) []Issue {
	imported := map[string]bool{}
	for _, imp := range file.Imports {
		name := importName(imp)
		imported[name] = true
	}

	used := map[string]token.Pos{}
	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if ident, ok := sel.X.(*ast.Ident); ok {
			if _, already := used[ident.Name]; !already {
				used[ident.Name] = ident.Pos()
			}
		}
		return true
	})

	var issues []Issue
	for alias, pos := range used {
		if imported[alias] {
			continue
		}
		path, known := canonicalImports[alias]
		if !known {
			continue // not a recognized package alias; likely a local variable/field
		}
		issues = append(issues, Issue{
			Severity: types.SeverityBlocker,
			Category: types.IssueImport,
			Line:     fset.Position(pos).Line,
			Symbol:   alias,
			Detail:   "missing import " + path,
		})
	}
	return issues
}

// importName returns the effective package identifier an import clause
// binds: its alias if present, else the last path segment.
func importName(imp *ast.ImportSpec) string {
	if imp.Name != nil {
		return imp.Name.Name
	}
	path := strings.Trim(imp.Path.Value, `"`)
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
