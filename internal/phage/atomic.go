// Package phage implements the Phage + Infector (spec §4.10): an atomic
// apply/rollback carrier for a candidate mutation, plus lineage
// tracking so accepted mutations can trace their ancestry back through
// every parent that spawned them.
//
// Grounded on internal/harness.Harness's "snapshot, write, defer
// restore" idiom (harness.go's Run method) for single-file atomicity,
// generalized here to multi-file checkpoint sets since a Phage may
// touch more than one target path; and on the teacher's
// internal/campaign.Checkpoint/CheckpointRunner concept (a named,
// timestamped pass/fail gate run between phases) for the "checkpoint
// before, verify after, roll back on failure" shape.
package phage

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// checkpoint is one file's snapshotted bytes, taken before a mutation is
// applied so AtomicMutationManager can restore it verbatim on failure.
type checkpoint struct {
	path    string
	existed bool
	data    []byte
}

// AtomicMutationManager snapshots and restores the file set a Phage
// touches, and serializes access per path so two phages never race on
// the same file (spec §5: "Infector acquires an exclusive logical lock
// on each target path for the duration of checkpoint -> apply -> test
// -> (rollback or commit). Two phages targeting disjoint files may
// execute concurrently.").
type AtomicMutationManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAtomicMutationManager creates an empty manager.
func NewAtomicMutationManager() *AtomicMutationManager {
	return &AtomicMutationManager{locks: make(map[string]*sync.Mutex)}
}

// lockFor returns the exclusive per-path lock, creating it on first use.
func (m *AtomicMutationManager) lockFor(path string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[path]
	if !ok {
		l = &sync.Mutex{}
		m.locks[path] = l
	}
	return l
}

// Checkpoint snapshots paths' current bytes (or absence) and returns a
// restore function that writes every snapshot back, best-effort,
// returning the first error encountered while still attempting every
// path. The caller must hold each path's lock (via Lock/Unlock) for the
// duration between Checkpoint and the matching restore.
func (m *AtomicMutationManager) Checkpoint(paths []string) (restore func() error, err error) {
	checkpoints := make([]checkpoint, 0, len(paths))
	for _, p := range paths {
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			if os.IsNotExist(readErr) {
				checkpoints = append(checkpoints, checkpoint{path: p, existed: false})
				continue
			}
			return nil, fmt.Errorf("phage: failed to checkpoint %s: %w", p, readErr)
		}
		checkpoints = append(checkpoints, checkpoint{path: p, existed: true, data: data})
	}

	restore = func() error {
		var firstErr error
		for _, c := range checkpoints {
			if !c.existed {
				if rmErr := os.Remove(c.path); rmErr != nil && !os.IsNotExist(rmErr) && firstErr == nil {
					firstErr = fmt.Errorf("phage: failed to remove %s during rollback: %w", c.path, rmErr)
				}
				continue
			}
			if writeErr := os.WriteFile(c.path, c.data, 0o644); writeErr != nil && firstErr == nil {
				firstErr = fmt.Errorf("phage: failed to restore %s during rollback: %w", c.path, writeErr)
			}
		}
		return firstErr
	}
	return restore, nil
}

// Lock acquires the exclusive per-path locks for paths, always in a
// fixed sort order, to avoid lock-ordering deadlocks between two phages
// touching overlapping file sets. It returns an unlock function.
func (m *AtomicMutationManager) Lock(paths []string) func() {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	locks := make([]*sync.Mutex, len(sorted))
	for i, p := range sorted {
		locks[i] = m.lockFor(p)
		locks[i].Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}
