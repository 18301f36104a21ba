// Package lattice implements the bounded partial order over type
// identifiers described in spec §4.1: subtyping, meet/join, composition
// checks, and pipeline verification. Edges are asserted as Mangle facts
// (via internal/mangle) so the Teleological Demon's rules can query
// is_subtype/can_compose alongside its own admissibility predicates;
// reachability itself is answered by a native BFS over an in-memory
// adjacency map, cached and invalidated on every edge or node write.
package lattice

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"thermocode/internal/logging"
	"thermocode/internal/mangle"
	"thermocode/internal/types"
)

// ErrCycle is returned by AddSubtypeEdge when the edge would create a cycle.
type ErrCycle struct {
	Sub   string
	Super string
}

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("subtype edge %s <: %s would create a cycle", e.Sub, e.Super)
}

// Lattice is a bounded partial order over TypeNode identifiers, rooted at
// ANY (top) and NEVER (bottom).
type Lattice struct {
	mu sync.RWMutex

	nodes map[string]types.TypeNode
	edges map[string]types.SubtypeEdge // key: sub+"->"+super
	up    map[string][]string          // sub -> direct supers
	down  map[string][]string          // super -> direct subs

	facts *mangle.Engine // optional: nil when running without fact-store wiring

	cache subtypeCache
}

type subtypeCache struct {
	mu      sync.RWMutex
	subtype map[[2]string]bool
	meet    map[[2]string]string
	join    map[[2]string]string
	paths   map[[2]string][][]string
}

func newCache() subtypeCache {
	return subtypeCache{
		subtype: make(map[[2]string]bool),
		meet:    make(map[[2]string]string),
		join:    make(map[[2]string]string),
		paths:   make(map[[2]string][][]string),
	}
}

// New creates an empty lattice seeded with the ANY/NEVER absorbing nodes.
// facts may be nil if the caller does not need the lattice's edges
// reflected into a Mangle fact store.
func New(facts *mangle.Engine) *Lattice {
	l := &Lattice{
		nodes: make(map[string]types.TypeNode),
		edges: make(map[string]types.SubtypeEdge),
		up:    make(map[string][]string),
		down:  make(map[string][]string),
		facts: facts,
		cache: newCache(),
	}
	l.nodes["ANY"] = types.TypeNode{ID: "ANY", Kind: types.KindAny}
	l.nodes["NEVER"] = types.TypeNode{ID: "NEVER", Kind: types.KindNever}
	return l
}

func edgeKey(sub, super string) string { return sub + "->" + super }

// nodeLocked looks up a registered TypeNode by id.
func (l *Lattice) nodeLocked(id string) (types.TypeNode, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.nodes[id]
	return n, ok
}

// AddNode registers a TypeNode. Every node is implicitly a subtype of ANY
// and a supertype of NEVER (spec §4.1 invariants b-d); AddNode wires those
// two absorbing edges automatically.
func (l *Lattice) AddNode(n types.TypeNode) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n.Kind == types.KindUnion || n.Kind == types.KindContract {
		n.Members = Normalize(n.Kind, n.Members)
	}
	l.nodes[n.ID] = n
	l.invalidateCacheLocked()

	if n.ID == "ANY" || n.ID == "NEVER" {
		return nil
	}
	l.linkLocked("NEVER", n.ID, "bottom is subtype of all")
	l.linkLocked(n.ID, "ANY", "all types are subtype of top")
	return nil
}

func (l *Lattice) linkLocked(sub, super, reason string) {
	key := edgeKey(sub, super)
	if _, exists := l.edges[key]; exists {
		return
	}
	l.edges[key] = types.SubtypeEdge{Sub: sub, Super: super, Reason: reason}
	l.up[sub] = append(l.up[sub], super)
	l.down[super] = append(l.down[super], sub)
}

// AddSubtypeEdge asserts sub <: super. Rejects when the edge would close a
// cycle back to sub (spec §4.1 "Failure").
func (l *Lattice) AddSubtypeEdge(e types.SubtypeEdge) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.reachesLocked(e.Super, e.Sub) {
		return &ErrCycle{Sub: e.Sub, Super: e.Super}
	}

	key := edgeKey(e.Sub, e.Super)
	l.edges[key] = e
	l.up[e.Sub] = append(l.up[e.Sub], e.Super)
	l.down[e.Super] = append(l.down[e.Super], e.Sub)
	l.invalidateCacheLocked()

	if l.facts != nil {
		if err := l.facts.AddFact("subtype_edge", e.Sub, e.Super, e.Reason); err != nil {
			logging.Get(logging.CategoryLattice).Warn("failed to assert subtype_edge fact: %v", err)
		}
	}
	logging.Get(logging.CategoryLattice).Debug("subtype edge added: %s <: %s (%s)", e.Sub, e.Super, e.Reason)
	return nil
}

// reachesLocked reports whether there is a directed path from -> to over
// the up[] adjacency (from <: ... <: to), without taking the cache.
func (l *Lattice) reachesLocked(from, to string) bool {
	if from == to {
		return true
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range l.up[cur] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

func (l *Lattice) invalidateCacheLocked() {
	l.cache = newCache()
}

// IsSubtype reports whether a <: b, reflexively and transitively, with
// ANY/NEVER absorbing (spec §4.1).
func (l *Lattice) IsSubtype(a, b string) bool {
	if a == b {
		return true
	}
	if b == "ANY" || a == "NEVER" {
		return true
	}
	if a == "ANY" || b == "NEVER" {
		return false
	}

	key := [2]string{a, b}
	l.cache.mu.RLock()
	if v, ok := l.cache.subtype[key]; ok {
		l.cache.mu.RUnlock()
		return v
	}
	l.cache.mu.RUnlock()

	l.mu.RLock()
	result := l.reachesLocked(a, b)
	l.mu.RUnlock()

	l.cache.mu.Lock()
	l.cache.subtype[key] = result
	l.cache.mu.Unlock()
	return result
}

// ancestors returns a, all of a's direct and transitive supertypes, in BFS
// discovery order.
func (l *Lattice) ancestors(a string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	visited := map[string]bool{a: true}
	order := []string{a}
	queue := []string{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range l.up[cur] {
			if !visited[next] {
				visited[next] = true
				order = append(order, next)
				queue = append(queue, next)
			}
		}
	}
	return order
}

// descendants returns a, all of a's direct and transitive subtypes, in BFS
// discovery order over down[] (the dual of ancestors' walk over up[]).
func (l *Lattice) descendants(a string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	visited := map[string]bool{a: true}
	order := []string{a}
	queue := []string{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range l.down[cur] {
			if !visited[next] {
				visited[next] = true
				order = append(order, next)
				queue = append(queue, next)
			}
		}
	}
	return order
}

// Meet returns the greatest lower bound of a and b: the most specific common
// subtype, found by intersecting descendant sets (spec §4.1: "meet ... by
// intersecting [descendant] sets") and keeping the common descendant that
// every other common descendant is a subtype of. Empty intersection yields
// NEVER.
func (l *Lattice) Meet(a, b string) string {
	if a == b {
		return a
	}
	key := [2]string{a, b}
	l.cache.mu.RLock()
	if v, ok := l.cache.meet[key]; ok {
		l.cache.mu.RUnlock()
		return v
	}
	l.cache.mu.RUnlock()

	descA := l.descendants(a)
	descB := l.descendants(b)
	inB := make(map[string]bool, len(descB))
	for _, n := range descB {
		inB[n] = true
	}

	best := "NEVER"
	for _, n := range descA {
		if inB[n] && l.IsSubtype(best, n) {
			best = n
		}
	}

	l.cache.mu.Lock()
	l.cache.meet[key] = best
	l.cache.mu.Unlock()
	return best
}

// Join returns the least upper bound of a and b: the common ancestor that
// is a subtype of every other common ancestor. Empty intersection (should
// not happen since ANY is universal) yields ANY.
func (l *Lattice) Join(a, b string) string {
	if a == b {
		return a
	}
	key := [2]string{a, b}
	l.cache.mu.RLock()
	if v, ok := l.cache.join[key]; ok {
		l.cache.mu.RUnlock()
		return v
	}
	l.cache.mu.RUnlock()

	// Join walks ancestor sets (the dual of Meet's descendant walk) and
	// keeps the most specific shared supertype: the greatest common
	// subtype in the reversed order is the least upper bound in this one.
	ancA := l.ancestors(a)
	ancB := l.ancestors(b)
	inB := make(map[string]bool, len(ancB))
	for _, n := range ancB {
		inB[n] = true
	}

	best := "ANY"
	for _, n := range ancA {
		if inB[n] && l.IsSubtype(n, best) {
			best = n
		}
	}

	l.cache.mu.Lock()
	l.cache.join[key] = best
	l.cache.mu.Unlock()
	return best
}

// CompositionResult is the outcome of CanCompose.
type CompositionResult struct {
	Compatible      bool
	Reason          string
	OutputType      string
	InputType       string
	RequiresAdapter bool
	SuggestedFix    string
}

// Registry is the subset of the Catalog Registry CanCompose needs: entry
// lookup by id and a scan for adapter candidates.
type Registry interface {
	Get(id string) (types.CatalogEntry, bool)
	FindAdapter(inputType, outputType string) (types.CatalogEntry, bool)
}

// CanCompose resolves both catalog entries and checks whether first's
// output feeds second's input (spec §4.1, P10). When the types are not
// directly compatible it searches the registry for a bridging adapter.
func (l *Lattice) CanCompose(reg Registry, firstID, secondID string) CompositionResult {
	first, ok := reg.Get(firstID)
	if !ok {
		return CompositionResult{Compatible: false, Reason: fmt.Sprintf("unknown entry %q", firstID)}
	}
	second, ok := reg.Get(secondID)
	if !ok {
		return CompositionResult{Compatible: false, Reason: fmt.Sprintf("unknown entry %q", secondID)}
	}

	res := CompositionResult{OutputType: first.OutputType, InputType: second.InputType}
	if l.IsSubtype(first.OutputType, second.InputType) {
		res.Compatible = true
		res.Reason = fmt.Sprintf("%s is a subtype of %s", first.OutputType, second.InputType)
		return res
	}

	if outNode, ok := l.nodeLocked(first.OutputType); ok && outNode.Kind == types.KindRecord {
		if inNode, ok := l.nodeLocked(second.InputType); ok && inNode.Kind == types.KindRecord {
			if l.StructuralSubtype(outNode, inNode) {
				res.Compatible = true
				res.Reason = fmt.Sprintf("%s is a structural subtype of %s", first.OutputType, second.InputType)
				return res
			}
		}
	}

	if outNode, ok := l.nodeLocked(first.OutputType); ok && outNode.Kind == types.KindUnion {
		if l.UnionSubtype(outNode.Members, second.InputType) {
			res.Compatible = true
			res.Reason = fmt.Sprintf("every member of union %s is a subtype of %s", first.OutputType, second.InputType)
			return res
		}
	}

	if adapter, found := reg.FindAdapter(first.OutputType, second.InputType); found {
		res.Compatible = true
		res.RequiresAdapter = true
		res.SuggestedFix = fmt.Sprintf("insert adapter %s", adapter.Name)
		res.Reason = fmt.Sprintf("%s bridges %s to %s", adapter.Name, first.OutputType, second.InputType)
		return res
	}

	res.Compatible = false
	res.Reason = fmt.Sprintf("%s is not a subtype of %s and no adapter bridges them", first.OutputType, second.InputType)
	res.SuggestedFix = fmt.Sprintf("register an adapter %s -> %s", first.OutputType, second.InputType)
	return res
}

// VerifyPipeline runs CanCompose across each adjacent pair in ids,
// stopping at (and reporting) the first incompatible stage.
func (l *Lattice) VerifyPipeline(reg Registry, ids []string) (bool, []CompositionResult) {
	var results []CompositionResult
	for i := 0; i+1 < len(ids); i++ {
		r := l.CanCompose(reg, ids[i], ids[i+1])
		results = append(results, r)
		if !r.Compatible {
			return false, results
		}
	}
	return true, results
}

// AgentGraph is the subset of the Catalog Registry FindPath needs: given
// an entry id, list the ids of entries whose input type that entry's
// output type can feed (directly or via adapter).
type AgentGraph interface {
	Successors(id string) []string
}

// FindPath returns every simple path from src to dst of at most max_len
// edges over the agent graph, BFS-order (spec §4.1).
func (l *Lattice) FindPath(graph AgentGraph, src, dst string, maxLen int) [][]string {
	if maxLen <= 0 {
		maxLen = 5
	}
	key := [2]string{src, fmt.Sprintf("%s#%d", dst, maxLen)}
	l.cache.mu.RLock()
	if v, ok := l.cache.paths[key]; ok {
		l.cache.mu.RUnlock()
		return v
	}
	l.cache.mu.RUnlock()

	var results [][]string
	type frame struct {
		node string
		path []string
	}
	queue := []frame{{node: src, path: []string{src}}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if f.node == dst && len(f.path) > 1 {
			results = append(results, append([]string{}, f.path...))
			continue
		}
		if len(f.path)-1 >= maxLen {
			continue
		}
		for _, next := range graph.Successors(f.node) {
			if containsStr(f.path, next) {
				continue // no repeated nodes: simple paths only
			}
			queue = append(queue, frame{node: next, path: append(append([]string{}, f.path...), next)})
		}
	}

	l.cache.mu.Lock()
	l.cache.paths[key] = results
	l.cache.mu.Unlock()
	return results
}

func containsStr(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// WarmFacts asserts every currently-registered subtype edge into the
// lattice's Mangle fact store. Used after bulk-loading nodes/edges (e.g.
// from a persisted snapshot) so queries issued against facts see the full
// set without waiting for incremental AddSubtypeEdge calls.
func (l *Lattice) WarmFacts(ctx context.Context) error {
	if l.facts == nil {
		return nil
	}
	l.mu.RLock()
	edges := make([]types.SubtypeEdge, 0, len(l.edges))
	for _, e := range l.edges {
		edges = append(edges, e)
	}
	l.mu.RUnlock()

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Sub != edges[j].Sub {
			return edges[i].Sub < edges[j].Sub
		}
		return edges[i].Super < edges[j].Super
	})

	facts := make([]mangle.Fact, 0, len(edges))
	for _, e := range edges {
		facts = append(facts, mangle.Fact{Predicate: "subtype_edge", Args: []interface{}{e.Sub, e.Super, e.Reason}})
	}
	return l.facts.AddFactsContext(ctx, facts)
}
