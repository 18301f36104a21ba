// Package catalog implements the Catalog Registry (spec §4.2): an indexed
// map of registered agents/adapters/patterns with idempotent registration,
// usage-frequency tracking, and secondary scans by type/status/author/
// keyword. Persistence is handled by internal/store.CatalogStore; this
// package only ever touches the in-memory index and JSON (de)serialization.
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"thermocode/internal/config"
	"thermocode/internal/logging"
	"thermocode/internal/store"
	"thermocode/internal/types"
)

// Registry is the indexed map id -> CatalogEntry (spec §4.2).
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*types.CatalogEntry
	cfg     config.CatalogConfig
	persist *store.CatalogStore // optional
}

// New creates an empty registry. persist may be nil (in-memory only).
func New(cfg config.CatalogConfig, persist *store.CatalogStore) *Registry {
	return &Registry{
		entries: make(map[string]*types.CatalogEntry),
		cfg:     cfg,
		persist: persist,
	}
}

// Register is idempotent on id: a first call inserts with CreatedAt/UpdatedAt
// set to now; a subsequent call with the same id overwrites the entry's
// fields and bumps UpdatedAt only.
func (r *Registry) Register(entry types.CatalogEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("catalog entry must have a non-empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	existing, exists := r.entries[entry.ID]
	if exists {
		entry.CreatedAt = existing.CreatedAt
		entry.UsageCount = existing.UsageCount
		entry.SuccessRate = existing.SuccessRate
	} else {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	if entry.Status == "" {
		entry.Status = types.EntityActive
	}
	r.entries[entry.ID] = &entry

	logging.Get(logging.CategoryCatalog).Debug("registered entry %s (%s), exists=%v", entry.ID, entry.EntityType, exists)
	return nil
}

// Get returns an entry by id. Implements lattice.Registry.
func (r *Registry) Get(id string) (types.CatalogEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return types.CatalogEntry{}, false
	}
	return *e, true
}

// FindAdapter scans for an ACTIVE entry whose input/output types bridge
// inputType -> outputType. Implements lattice.Registry.
func (r *Registry) FindAdapter(inputType, outputType string) (types.CatalogEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Status != types.EntityActive {
			continue
		}
		if e.InputType == inputType && e.OutputType == outputType {
			return *e, true
		}
	}
	return types.CatalogEntry{}, false
}

// Successors returns the ids of entries whose input type this entry's
// output type can feed; SuccessorGraph adapts it to lattice.AgentGraph,
// whose Successors takes only an id. isSubtype lets the
// caller thread through the lattice's own subtyping without this package
// importing internal/lattice (which depends on this package's Registry
// interface, so a direct import would cycle).
func (r *Registry) Successors(id string, isSubtype func(a, b string) bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.entries[id]
	if !ok {
		return nil
	}
	var out []string
	for otherID, e := range r.entries {
		if otherID == id || e.Status != types.EntityActive {
			continue
		}
		if isSubtype(src.OutputType, e.InputType) {
			out = append(out, otherID)
		}
	}
	sort.Strings(out)
	return out
}

// SuccessorGraph adapts a Registry plus a subtyping predicate into
// lattice.AgentGraph, whose Successors method takes only an id: the lattice
// package cannot depend on catalog (catalog's Registry already implements
// lattice.Registry directly), so this closure-carrying wrapper is what
// search/pipeline wiring hands to lattice.FindPath.
type SuccessorGraph struct {
	Reg       *Registry
	IsSubtype func(a, b string) bool
}

// Successors implements lattice.AgentGraph.
func (g SuccessorGraph) Successors(id string) []string {
	return g.Reg.Successors(id, g.IsSubtype)
}

// UpdateUsage applies the spec §4.2 exponential moving average (alpha from
// config, default 0.1) to success_rate and increments usage_count.
func (r *Registry) UpdateUsage(id string, success bool, errDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("catalog entry %q not found", id)
	}

	alpha := r.cfg.UsageEMAAlpha
	if alpha <= 0 {
		alpha = 0.1
	}
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	e.SuccessRate = alpha*outcome + (1-alpha)*e.SuccessRate
	e.UsageCount++
	e.UpdatedAt = time.Now()

	if !success && errDetail != "" {
		logging.Get(logging.CategoryCatalog).Warn("usage failure for %s: %s", id, errDetail)
	}
	return nil
}

// ScanFilter narrows a secondary scan; zero-value fields are unconstrained.
type ScanFilter struct {
	EntityType string
	Status     types.EntityStatus
	Author     string
	Keyword    string
}

// Scan returns every entry matching filter, sorted by id for determinism.
func (r *Registry) Scan(filter ScanFilter) []types.CatalogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.CatalogEntry
	for _, e := range r.entries {
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Author != "" && e.Author != filter.Author {
			continue
		}
		if filter.Keyword != "" && !hasKeyword(e.Keywords, filter.Keyword) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func hasKeyword(keywords []string, want string) bool {
	want = strings.ToLower(want)
	for _, k := range keywords {
		if strings.ToLower(k) == want {
			return true
		}
	}
	return false
}

// All returns every entry, sorted by id.
func (r *Registry) All() []types.CatalogEntry {
	return r.Scan(ScanFilter{})
}

// Count returns the number of registered entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// snapshotPayload is the JSON shape persisted via CatalogStore.
type snapshotPayload struct {
	Entries map[string]*types.CatalogEntry `json:"entries"`
}

// Save persists the full registry as one append-only catalog-store
// snapshot, causally linked to the previous one.
func (r *Registry) Save() error {
	if r.persist == nil {
		return nil
	}
	r.mu.RLock()
	data, err := json.Marshal(snapshotPayload{Entries: r.entries})
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal catalog snapshot: %w", err)
	}
	return r.persist.Save(data)
}

// Load restores the registry from the most recent snapshot.
func (r *Registry) Load() error {
	if r.persist == nil {
		return nil
	}
	data, err := r.persist.Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog snapshot: %w", err)
	}
	if data == nil {
		return nil
	}
	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal catalog snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = payload.Entries
	if r.entries == nil {
		r.entries = make(map[string]*types.CatalogEntry)
	}
	return nil
}
