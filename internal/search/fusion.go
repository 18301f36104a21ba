package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"thermocode/internal/config"
	"thermocode/internal/types"
	"golang.org/x/sync/errgroup"
)

// QueryClass is the fusion's query classification (spec §4.2).
type QueryClass string

const (
	ClassExactName      QueryClass = "EXACT_NAME"
	ClassSemanticIntent QueryClass = "SEMANTIC_INTENT"
	ClassTypeQuery      QueryClass = "TYPE_QUERY"
	ClassRelationship   QueryClass = "RELATIONSHIP"
)

var (
	identifierPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)
	relationshipPattern = regexp.MustCompile(`(?i)\b(depends on|upstream|downstream|ancestors?|descendants?|compatible with|path (from|to)|dependents?|successors?|predecessors?)\b`)
	typeQueryPattern    = regexp.MustCompile(`(?i)\b(type|subtype|compose|composition|input type|output type|signature)\b`)
)

// Classify applies the regex heuristics from spec §4.2 to pick a query
// class, which in turn picks the brain weight triple.
func Classify(query string) QueryClass {
	q := strings.TrimSpace(query)
	switch {
	case relationshipPattern.MatchString(q):
		return ClassRelationship
	case typeQueryPattern.MatchString(q):
		return ClassTypeQuery
	case identifierPattern.MatchString(q) && !strings.Contains(q, " "):
		return ClassExactName
	default:
		return ClassSemanticIntent
	}
}

// weights is (keyword, semantic, graph), always summing to 1.0.
type weights struct{ keyword, semantic, graph float64 }

func weightsFor(c QueryClass) weights {
	switch c {
	case ClassExactName:
		return weights{0.8, 0.1, 0.1}
	case ClassTypeQuery:
		return weights{0.2, 0.2, 0.6}
	case ClassRelationship:
		return weights{0.1, 0.1, 0.8}
	default: // SEMANTIC_INTENT
		return weights{0.2, 0.7, 0.1}
	}
}

// Result is one fused search hit.
type Result struct {
	ID    string
	Score float64
}

// Response is the Search output: the fused top-k plus a serendipity list.
type Response struct {
	Class       QueryClass
	Results     []Result
	Serendipity []Result
}

// Engine wires the three brains and the catalog behind them.
type Engine struct {
	Keyword  KeywordBrain
	Semantic SemanticBrain
	Graph    GraphBrain
	Cfg      config.CatalogConfig
}

// NewEngine builds a fusion engine over entries provided by the Graph
// brain's registry at Search time.
func NewEngine(semantic SemanticBrain, graph GraphBrain, cfg config.CatalogConfig) *Engine {
	return &Engine{Keyword: KeywordBrain{}, Semantic: semantic, Graph: graph, Cfg: cfg}
}

// Search classifies query, runs all three brains concurrently (spec
// §4.2: "runs all three concurrently"), and combines them via Reciprocal
// Rank Fusion.
func (e *Engine) Search(ctx context.Context, query string, entries []types.CatalogEntry) (Response, error) {
	class := Classify(query)
	w := weightsFor(class)

	var kw, sm, gr []Scored
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		kw = e.Keyword.Search(query, entries)
		return nil
	})
	g.Go(func() error {
		var err error
		sm, err = e.Semantic.Search(gctx, query, entries)
		return err
	})
	g.Go(func() error {
		gr = e.Graph.Search(query, entries)
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		// A single brain's failure degrades fusion quality but should not
		// fail the whole search.
	}

	k := e.Cfg.RRFConstant
	if k <= 0 {
		k = 60.0
	}

	fused := make(map[string]float64)
	addRanked(fused, kw, w.keyword, k)
	addRanked(fused, sm, w.semantic, k)
	addRanked(fused, gr, w.graph, k)

	var results []Result
	for id, score := range fused {
		results = append(results, Result{ID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	maxResults := e.Cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	serendipity := findSerendipity(results, maxResults, kw, sm, gr, e.Cfg.SerendipityWeight)
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	return Response{Class: class, Results: results, Serendipity: serendipity}, nil
}

// addRanked folds one brain's ranked output into the fused score map:
// score += weight / (k + rank), rank is 1-indexed.
func addRanked(fused map[string]float64, ranked []Scored, weight, k float64) {
	if weight <= 0 {
		return
	}
	for i, s := range ranked {
		rank := float64(i + 1)
		fused[s.ID] += weight / (k + rank)
	}
}

// findSerendipity surfaces entries that scored highly (top-3) in exactly
// one brain but fell outside the fused top-k: a signal the fused ranking
// buried something the other two brains had no way to see (spec §4.2).
func findSerendipity(fused []Result, topK int, kw, sm, gr []Scored, weight float64) []Result {
	if weight <= 0 {
		return nil
	}

	fusedTop := make(map[string]bool)
	for i, r := range fused {
		if i >= topK {
			break
		}
		fusedTop[r.ID] = true
	}

	type hit struct {
		id    string
		score float64
		count int
	}
	hits := make(map[string]*hit)
	consider := func(ranked []Scored) {
		for i, s := range ranked {
			if i >= 3 {
				break
			}
			h, ok := hits[s.ID]
			if !ok {
				h = &hit{id: s.ID}
				hits[s.ID] = h
			}
			h.count++
			if s.Score > h.score {
				h.score = s.Score
			}
		}
	}
	consider(kw)
	consider(sm)
	consider(gr)

	var out []Result
	for id, h := range hits {
		if h.count == 1 && !fusedTop[id] {
			out = append(out, Result{ID: id, Score: h.score})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}
