package demon

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
)

// DetectParasitic runs the Demon's final, un-short-circuited check (spec
// §4.8) and reports the first parasitic pattern found, if any. These
// rejections are final: nothing downstream reconsiders them.
func DetectParasitic(originalText, mutatedText string) (reason string, found bool) {
	origFuncs, origErr := parseFuncBodies(originalText)
	mutFuncs, mutErr := parseFuncBodies(mutatedText)
	if origErr != nil || mutErr != nil {
		return "", false // leave unparsable source to the syntactic layer
	}

	for name, origBody := range origFuncs {
		mutBody, present := mutFuncs[name]
		if !present {
			continue
		}
		if hardcodesComputedOutput(origBody, mutBody) {
			return "hardcodes a literal in place of a computed expression in " + name, true
		}
		if deletesFunctionalBody(origBody, mutBody) {
			return "deletes the functional body of " + name, true
		}
		if isBareNoOp(origBody, mutBody) {
			return "replaces computation with a bare no-op in " + name, true
		}
	}

	if reason, ok := specialCasesNarrowInputs(originalText, mutatedText); ok {
		return reason, true
	}

	return "", false
}

func parseFuncBodies(source string) (map[string]*ast.BlockStmt, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", source, 0)
	if err != nil {
		return nil, err
	}
	out := map[string]*ast.BlockStmt{}
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Body != nil {
			out[fd.Name.Name] = fd.Body
		}
	}
	return out, nil
}

// hardcodesComputedOutput flags a mutation that replaces a return
// statement built from an expression (binary op, call, identifier
// arithmetic) with a bare numeric or string literal.
func hardcodesComputedOutput(orig, mut *ast.BlockStmt) bool {
	origReturns := returnExprs(orig)
	mutReturns := returnExprs(mut)
	if len(origReturns) == 0 || len(origReturns) != len(mutReturns) {
		return false
	}
	for i, o := range origReturns {
		if isComputed(o) && isLiteral(mutReturns[i]) {
			return true
		}
	}
	return false
}

func returnExprs(body *ast.BlockStmt) []ast.Expr {
	var out []ast.Expr
	ast.Inspect(body, func(n ast.Node) bool {
		if ret, ok := n.(*ast.ReturnStmt); ok && len(ret.Results) == 1 {
			out = append(out, ret.Results[0])
		}
		return true
	})
	return out
}

func isComputed(e ast.Expr) bool {
	switch e.(type) {
	case *ast.BinaryExpr, *ast.CallExpr:
		return true
	default:
		return false
	}
}

func isLiteral(e ast.Expr) bool {
	_, ok := e.(*ast.BasicLit)
	return ok
}

// deletesFunctionalBody flags a mutation that shrinks a non-trivial body
// (3+ statements) down to nothing or a single statement.
func deletesFunctionalBody(orig, mut *ast.BlockStmt) bool {
	return len(orig.List) >= 3 && len(mut.List) <= 1 && !isBareNoOp(orig, mut)
}

// isBareNoOp flags a mutation whose new body is a single no-op:
// an empty block, or a return of a zero-value literal/nil replacing a
// previously non-trivial body.
func isBareNoOp(orig, mut *ast.BlockStmt) bool {
	if len(orig.List) < 2 {
		return false
	}
	if len(mut.List) == 0 {
		return true
	}
	if len(mut.List) == 1 {
		ret, ok := mut.List[0].(*ast.ReturnStmt)
		if !ok {
			return false
		}
		if len(ret.Results) == 0 {
			return true
		}
		if len(ret.Results) == 1 {
			switch v := ret.Results[0].(type) {
			case *ast.Ident:
				return v.Name == "nil"
			case *ast.BasicLit:
				return v.Value == "0" || v.Value == `""`
			}
		}
	}
	return false
}

// narrowCaseRe matches an equality-chained special case, e.g.
// `if x == 1 {`; two or more newly introduced occurrences against the
// same variable is the spec's "special-case a narrow input set" pattern.
var narrowCaseRe = regexp.MustCompile(`if (\w+) == \S+ \{`)

func specialCasesNarrowInputs(originalText, mutatedText string) (string, bool) {
	origCounts := countByVar(narrowCaseRe.FindAllStringSubmatch(originalText, -1))
	mutCounts := countByVar(narrowCaseRe.FindAllStringSubmatch(mutatedText, -1))
	for v, count := range mutCounts {
		if count >= 2 && count > origCounts[v] {
			return "introduces a chain of narrow equality special-cases on " + v, true
		}
	}
	return "", false
}

func countByVar(matches [][]string) map[string]int {
	out := map[string]int{}
	for _, m := range matches {
		out[m[1]]++
	}
	return out
}
