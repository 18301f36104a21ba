package mutator

import (
	"fmt"
	"regexp"
	"strings"

	"thermocode/internal/types"
)

func defaultSchemas() []Schema {
	return []Schema{
		extractConstantSchema{},
		flattenNestingSchema{},
		inlineSingleUseSchema{},
		guardClauseEarlyReturnSchema{},
		mergeAdjacentConditionalsSchema{},
		loopToComprehensionSchema{},
	}
}

// functionSource slices out one function's literal text using the
// hotspot's recorded Start/End span. It returns "" when that span is
// empty or runs past the end of source; it does not look the function
// up by name.
func functionSource(source string, h HotSpot) string {
	if h.End > h.Start && h.End <= len(source) {
		return source[h.Start:h.End]
	}
	return ""
}

// --- ExtractConstant -------------------------------------------------

// extractConstantSchema hoists a string or integer literal repeated 3+
// times within a function body to a package-level const.
type extractConstantSchema struct{}

func (extractConstantSchema) ID() string { return "ExtractConstant" }

var literalRe = regexp.MustCompile(`"[A-Za-z][A-Za-z0-9_ ]{2,}"`)

func (s extractConstantSchema) Detect(cs types.CodeStructure, source string) []HotSpot {
	spans, err := parseFuncSpans(source)
	if err != nil {
		return nil
	}
	var out []HotSpot
	for _, sp := range spans {
		body := source[sp.start:sp.end]
		counts := map[string]int{}
		for _, m := range literalRe.FindAllString(body, -1) {
			counts[m]++
		}
		for _, c := range counts {
			if c >= 3 {
				out = append(out, HotSpot{Symbol: sp.name, Line: sp.line, Start: sp.start, End: sp.end})
				break
			}
		}
	}
	return out
}

func (s extractConstantSchema) Apply(source string, h HotSpot) (string, error) {
	body := functionSource(source, h)
	if body == "" {
		return source, fmt.Errorf("extractconstant: empty span for %s", h.Symbol)
	}
	counts := map[string]int{}
	for _, m := range literalRe.FindAllString(body, -1) {
		counts[m]++
	}
	var literal string
	for lit, c := range counts {
		if c >= 3 {
			literal = lit
			break
		}
	}
	if literal == "" {
		return source, fmt.Errorf("extractconstant: no repeated literal found in %s", h.Symbol)
	}

	constName := fmt.Sprintf("%sLiteral", h.Symbol)
	decl := fmt.Sprintf("const %s = %s\n\n", constName, literal)
	replacedBody := strings.ReplaceAll(body, literal, constName)

	mutated := source[:h.Start] + replacedBody + source[h.End:]
	return insertAfterPackageClause(mutated, decl), nil
}

// --- FlattenNesting ----------------------------------------------------

// flattenNestingSchema merges `if A { if B { BODY } }` into
// `if A && B { BODY }`.
type flattenNestingSchema struct{}

func (flattenNestingSchema) ID() string { return "FlattenNesting" }

var nestedIfRe = regexp.MustCompile(`(?s)if ([^{]+) \{\s*if ([^{]+) \{\n(.*?)\n(\t*)\}\n(\t*)\}`)

func (s flattenNestingSchema) Detect(cs types.CodeStructure, source string) []HotSpot {
	return detectByFuncPattern(source, nestedIfRe)
}

func (s flattenNestingSchema) Apply(source string, h HotSpot) (string, error) {
	body := functionSource(source, h)
	if body == "" {
		return source, fmt.Errorf("flattennesting: empty span for %s", h.Symbol)
	}
	loc := nestedIfRe.FindStringSubmatchIndex(body)
	if loc == nil {
		return source, fmt.Errorf("flattennesting: no nested if found in %s", h.Symbol)
	}
	outerCond := body[loc[2]:loc[3]]
	innerCond := body[loc[4]:loc[5]]
	inner := body[loc[6]:loc[7]]
	indent := body[loc[8]:loc[9]]
	replacement := fmt.Sprintf("if %s && %s {\n%s\n%s}", strings.TrimSpace(outerCond), strings.TrimSpace(innerCond), inner, indent)
	mutatedBody := body[:loc[0]] + replacement + body[loc[1]:]
	return source[:h.Start] + mutatedBody + source[h.End:], nil
}

// --- InlineSingleUse ---------------------------------------------------

// inlineSingleUseSchema inlines a local variable referenced exactly
// once after its declaration, removing the declaration.
type inlineSingleUseSchema struct{}

func (inlineSingleUseSchema) ID() string { return "InlineSingleUse" }

var singleUseDeclRe = regexp.MustCompile(`(?m)^(\t*)(\w+) := ([^\n]+)\n`)

func (s inlineSingleUseSchema) Detect(cs types.CodeStructure, source string) []HotSpot {
	spans, err := parseFuncSpans(source)
	if err != nil {
		return nil
	}
	var out []HotSpot
	for _, sp := range spans {
		body := source[sp.start:sp.end]
		for _, m := range singleUseDeclRe.FindAllStringSubmatch(body, -1) {
			name := m[2]
			uses := strings.Count(body, name)
			if uses == 2 && !strings.Contains(m[3], name) {
				out = append(out, HotSpot{Symbol: sp.name, Line: sp.line, Start: sp.start, End: sp.end})
				break
			}
		}
	}
	return out
}

func (s inlineSingleUseSchema) Apply(source string, h HotSpot) (string, error) {
	body := functionSource(source, h)
	if body == "" {
		return source, fmt.Errorf("inlinesingleuse: empty span for %s", h.Symbol)
	}
	for _, m := range singleUseDeclRe.FindAllStringSubmatch(body, -1) {
		full, name, value := m[0], m[2], m[3]
		if strings.Count(body, name) != 2 || strings.Contains(value, name) {
			continue
		}
		rest := strings.Replace(body, full, "", 1)
		inlined := strings.Replace(rest, name, "("+value+")", 1)
		return source[:h.Start] + inlined + source[h.End:], nil
	}
	return source, fmt.Errorf("inlinesingleuse: no single-use variable found in %s", h.Symbol)
}

// --- GuardClauseEarlyReturn ---------------------------------------------

// guardClauseEarlyReturnSchema flips `if cond { BODY } else { return X }`
// (where the else branch holds a single return statement) into a
// negated early return, reducing nesting depth — a SPEC_FULL.md addition
// beyond spec.md's original four named schemas.
type guardClauseEarlyReturnSchema struct{}

func (guardClauseEarlyReturnSchema) ID() string { return "GuardClauseEarlyReturn" }

var ifElseReturnRe = regexp.MustCompile(`(?s)if ([^{]+) \{\n(.*?)\n(\t*)\} else \{\n\t*(return[^\n]*)\n\t*\}`)

func (s guardClauseEarlyReturnSchema) Detect(cs types.CodeStructure, source string) []HotSpot {
	return detectByFuncPattern(source, ifElseReturnRe)
}

func (s guardClauseEarlyReturnSchema) Apply(source string, h HotSpot) (string, error) {
	body := functionSource(source, h)
	if body == "" {
		return source, fmt.Errorf("guardclause: empty span for %s", h.Symbol)
	}
	loc := ifElseReturnRe.FindStringSubmatchIndex(body)
	if loc == nil {
		return source, fmt.Errorf("guardclause: no if/else-return found in %s", h.Symbol)
	}
	cond := strings.TrimSpace(body[loc[2]:loc[3]])
	ifBody := body[loc[4]:loc[5]]
	indent := body[loc[6]:loc[7]]
	elseReturn := body[loc[8]:loc[9]]
	replacement := fmt.Sprintf("if !(%s) {\n%s\t%s\n%s}\n%s", cond, indent, elseReturn, indent, ifBody)
	mutatedBody := body[:loc[0]] + replacement + body[loc[1]:]
	return source[:h.Start] + mutatedBody + source[h.End:], nil
}

// --- MergeAdjacentConditionals -------------------------------------------

// mergeAdjacentConditionalsSchema merges two adjacent `if cond1 { X }`
// `if cond2 { X }` blocks with identical bodies into
// `if cond1 || cond2 { X }` — a SPEC_FULL.md addition.
type mergeAdjacentConditionalsSchema struct{}

func (mergeAdjacentConditionalsSchema) ID() string { return "MergeAdjacentConditionals" }

var adjacentIfRe = regexp.MustCompile(`(?s)if ([^{]+) \{\n(.*?)\n(\t*)\}\n\t*if ([^{]+) \{\n(.*?)\n\t*\}`)

func (s mergeAdjacentConditionalsSchema) Detect(cs types.CodeStructure, source string) []HotSpot {
	spans, err := parseFuncSpans(source)
	if err != nil {
		return nil
	}
	var out []HotSpot
	for _, sp := range spans {
		body := source[sp.start:sp.end]
		m := adjacentIfRe.FindStringSubmatch(body)
		if m != nil && strings.TrimSpace(m[2]) == strings.TrimSpace(m[5]) {
			out = append(out, HotSpot{Symbol: sp.name, Line: sp.line, Start: sp.start, End: sp.end})
		}
	}
	return out
}

func (s mergeAdjacentConditionalsSchema) Apply(source string, h HotSpot) (string, error) {
	body := functionSource(source, h)
	if body == "" {
		return source, fmt.Errorf("mergeconditionals: empty span for %s", h.Symbol)
	}
	loc := adjacentIfRe.FindStringSubmatchIndex(body)
	if loc == nil {
		return source, fmt.Errorf("mergeconditionals: no adjacent ifs found in %s", h.Symbol)
	}
	cond1 := strings.TrimSpace(body[loc[2]:loc[3]])
	block1 := body[loc[4]:loc[5]]
	indent := body[loc[6]:loc[7]]
	cond2 := strings.TrimSpace(body[loc[8]:loc[9]])
	block2 := body[loc[10]:loc[11]]
	if strings.TrimSpace(block1) != strings.TrimSpace(block2) {
		return source, fmt.Errorf("mergeconditionals: bodies diverge in %s", h.Symbol)
	}
	replacement := fmt.Sprintf("if %s || %s {\n%s\n%s}", cond1, cond2, block1, indent)
	mutatedBody := body[:loc[0]] + replacement + body[loc[1]:]
	return source[:h.Start] + mutatedBody + source[h.End:], nil
}

// --- LoopToComprehension -------------------------------------------------

// loopToComprehensionSchema reinterprets the spec's "loop to
// comprehension" schema for Go, which has no comprehension syntax: it
// converts a zero-value slice declaration followed by an append-only
// range loop into a capacity-preallocated slice (`make([]T, 0, N)`),
// the closest Go idiom to a comprehension's single-pass, pre-sized
// construction (documented as a deviation in DESIGN.md).
type loopToComprehensionSchema struct{}

func (loopToComprehensionSchema) ID() string { return "LoopToComprehension" }

var sliceDeclRe = regexp.MustCompile(`(?m)^(\t*)var (\w+) \[\](\w+)\n`)

func (s loopToComprehensionSchema) Detect(cs types.CodeStructure, source string) []HotSpot {
	spans, err := parseFuncSpans(source)
	if err != nil {
		return nil
	}
	var out []HotSpot
	for _, sp := range spans {
		body := source[sp.start:sp.end]
		for _, decl := range sliceDeclRe.FindAllStringSubmatch(body, -1) {
			name := decl[2]
			pattern := regexp.MustCompile(fmt.Sprintf(`(?s)for _, \w+ := range (\w+) \{\n\t*%s = append\(%s, [^\n]+\)\n\t*\}`, name, name))
			if pattern.MatchString(body) {
				out = append(out, HotSpot{Symbol: sp.name, Line: sp.line, Start: sp.start, End: sp.end})
				break
			}
		}
	}
	return out
}

func (s loopToComprehensionSchema) Apply(source string, h HotSpot) (string, error) {
	body := functionSource(source, h)
	if body == "" {
		return source, fmt.Errorf("looptocomprehension: empty span for %s", h.Symbol)
	}
	for _, decl := range sliceDeclRe.FindAllStringSubmatch(body, -1) {
		name, elemType := decl[2], decl[3]
		pattern := regexp.MustCompile(fmt.Sprintf(`for _, \w+ := range (\w+) \{\n\t*%s = append\(%s, [^\n]+\)\n\t*\}`, name, name))
		m := pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		sourceColl := m[1]
		newDecl := fmt.Sprintf("%s := make([]%s, 0, len(%s))\n", name, elemType, sourceColl)
		mutatedBody := strings.Replace(body, decl[0], indentLike(decl[1], newDecl), 1)
		return source[:h.Start] + mutatedBody + source[h.End:], nil
	}
	return source, fmt.Errorf("looptocomprehension: no preallocatable pattern in %s", h.Symbol)
}

func indentLike(indent, line string) string { return indent + strings.TrimLeft(line, "\t") }

// --- shared helpers ------------------------------------------------------

func detectByFuncPattern(source string, pattern *regexp.Regexp) []HotSpot {
	spans, err := parseFuncSpans(source)
	if err != nil {
		return nil
	}
	var out []HotSpot
	for _, sp := range spans {
		body := source[sp.start:sp.end]
		if pattern.MatchString(body) {
			out = append(out, HotSpot{Symbol: sp.name, Line: sp.line, Start: sp.start, End: sp.end})
		}
	}
	return out
}

func insertAfterPackageClause(source, decl string) string {
	idx := strings.Index(source, "\n")
	if idx < 0 {
		return decl + source
	}
	return source[:idx+1] + "\n" + decl + source[idx+1:]
}
