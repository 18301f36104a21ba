package phage

import (
	"context"
	"fmt"
	"os"
	"time"

	"thermocode/internal/harness"
	"thermocode/internal/logging"
	"thermocode/internal/mangle"
	"thermocode/internal/types"
)

// Infector carries a Phage's mutation through checkpoint -> apply ->
// test -> commit-or-rollback (spec §4.10). It is the only component
// permitted to mutate a target file on disk outside of tests.
type Infector struct {
	atomic  *AtomicMutationManager
	harness *harness.Harness
	facts   *mangle.Engine // optional; nil disables fact emission
}

// NewInfector creates an Infector. facts may be nil.
func NewInfector(atomic *AtomicMutationManager, h *harness.Harness, facts *mangle.Engine) *Infector {
	return &Infector{atomic: atomic, harness: h, facts: facts}
}

// InfectResult is the outcome of one Infect call.
type InfectResult struct {
	Status types.PhageStatus
	Report types.TestReport
}

// Infect applies phage.Mutation.MutatedText to targetPath under an
// exclusive per-path lock and a file checkpoint, runs the configured
// test harness against it, and either commits (INFECTED) or restores
// the checkpoint and reports ROLLED_BACK, per spec §4.10 steps 1-5.
// lineagePropagate, if non-nil, is called only on success so the
// caller (the Thermodynamic Cycle) can fold the outcome into the Viral
// Library without this package importing it directly.
func (inf *Infector) Infect(ctx context.Context, p *types.Phage, targetPath string, lineagePropagate func()) InfectResult {
	log := logging.Get(logging.CategoryPhage)
	p.Status = types.PhageInfecting
	inf.audit("INFECTION_STARTED", p.ID)

	unlock := inf.atomic.Lock([]string{targetPath})
	defer unlock()

	restore, err := inf.atomic.Checkpoint([]string{targetPath})
	if err != nil {
		p.Status = types.PhageFailed
		inf.audit("INFECTION_FAILED", fmt.Sprintf("%s: %v", p.ID, err))
		inf.fact("phage_state", p.ID, string(p.Status))
		return InfectResult{Status: p.Status, Report: types.TestReport{FailReason: err.Error()}}
	}

	if err := os.WriteFile(targetPath, []byte(p.Mutation.MutatedText), 0o644); err != nil {
		p.Status = types.PhageFailed
		inf.audit("INFECTION_FAILED", fmt.Sprintf("%s: %v", p.ID, err))
		inf.fact("phage_state", p.ID, string(p.Status))
		return InfectResult{Status: p.Status, Report: types.TestReport{FailReason: err.Error()}}
	}

	// harness.Run reads targetPath's contents as its own "original" at
	// entry, writes newSource (a no-op text-wise since we already wrote
	// it above), tests, and restores what it read at entry before
	// returning. Since what it read at entry is the mutated text, that
	// self-restore leaves targetPath on the mutated text either way;
	// the checkpoint/restore pair above is what actually governs commit
	// vs. rollback here.
	report := inf.harness.Run(ctx, targetPath, p.Mutation.MutatedText)
	if !report.TestsOK {
		if restoreErr := restore(); restoreErr != nil {
			log.Error("phage %s: rollback of %s failed: %v", p.ID, targetPath, restoreErr)
		}
		p.Status = types.PhageRolledBack
		inf.audit("ROLLED_BACK", fmt.Sprintf("%s: %s", p.ID, report.FailReason))
		inf.fact("phage_state", p.ID, string(p.Status))
		return InfectResult{Status: p.Status, Report: report}
	}

	p.Status = types.PhageInfected
	inf.audit("INFECTION_SUCCEEDED", p.ID)
	inf.fact("phage_state", p.ID, string(p.Status))
	if lineagePropagate != nil {
		lineagePropagate()
	}
	return InfectResult{Status: p.Status, Report: report}
}

func (inf *Infector) audit(eventType, detail string) {
	if inf.facts == nil {
		return
	}
	if err := inf.facts.AddFact("audit_event", time.Now().UTC().Format(time.RFC3339Nano), "infector", eventType, detail); err != nil {
		logging.Get(logging.CategoryPhage).Warn("failed to record audit_event fact: %v", err)
	}
}

func (inf *Infector) fact(predicate string, args ...interface{}) {
	if inf.facts == nil {
		return
	}
	if err := inf.facts.AddFact(predicate, args...); err != nil {
		logging.Get(logging.CategoryPhage).Warn("failed to record %s fact: %v", predicate, err)
	}
}
