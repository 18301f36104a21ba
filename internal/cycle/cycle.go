// Package cycle implements the Thermodynamic Cycle: the composition of
// Mutator, Demon, Infector, and Viral Library into one closed
// Mutate -> Select -> Wager -> Infect -> Payoff loop that the rest of
// the overview table names but no single module owns on its own.
//
// Grounded on internal/pipeline.Pipeline's composition-struct shape
// (pipeline.go) — a small struct holding every collaborator a
// multi-stage run needs behind a constructor that wires them
// explicitly, narrowed here to the four collaborators this loop
// actually uses, and on phage/infector.go's own doc comment, which explicitly
// defers lineage propagation and Viral Library folding to "the
// Thermodynamic Cycle" caller rather than importing viral itself.
package cycle

import (
	"context"
	"fmt"

	"thermocode/internal/config"
	"thermocode/internal/demon"
	"thermocode/internal/logging"
	"thermocode/internal/mangle"
	"thermocode/internal/mutator"
	"thermocode/internal/phage"
	"thermocode/internal/types"
	"thermocode/internal/viral"
)

// Cycle composes the Thermodynamic Cycle's four collaborators around one
// target file.
type Cycle struct {
	cfg      config.CycleConfig
	mutator  *mutator.Mutator
	demon    *demon.Demon
	infector *phage.Infector
	library  *viral.Library
	facts    *mangle.Engine // optional; nil disables fact emission beyond what Demon/Infector already push
}

// New wires a Cycle from its collaborators. facts may be nil.
func New(cfg config.CycleConfig, m *mutator.Mutator, d *demon.Demon, inf *phage.Infector, lib *viral.Library, facts *mangle.Engine) *Cycle {
	return &Cycle{cfg: cfg, mutator: m, demon: d, infector: inf, library: lib, facts: facts}
}

// Outcome is the result of running one candidate mutation through the
// full cycle: Select's verdict, and if it proceeded to Infect, that
// stage's outcome too.
type Outcome struct {
	Mutation types.MutationVector
	Verdict  demon.Verdict
	Phage    *types.Phage
	Infected *phage.InfectResult
}

// Run executes one pass of the cycle against source for targetPath:
// Mutate generates candidates, each candidate is Wagered and run
// through Select, admitted candidates are carried by a Phage into
// Infect, and Infect's outcome feeds Payoff back into the Viral
// Library. parent, if non-nil, makes every admitted Phage this
// pass a child of parent's lineage (AnalyzeLineage/SpawnChild).
func (c *Cycle) Run(ctx context.Context, cs types.CodeStructure, targetPath, source string, intent types.Intent, parent *types.Phage) ([]Outcome, error) {
	log := logging.Get(logging.CategoryCycle)

	mutations, err := c.mutator.GenerateMutations(cs, source, c.cfg.Temperature, c.cfg.TopN)
	if err != nil {
		return nil, fmt.Errorf("cycle: mutate stage failed: %w", err)
	}
	log.Debug("cycle: %d candidate mutation(s) generated for %s", len(mutations), targetPath)

	outcomes := make([]Outcome, 0, len(mutations))
	for i, mutation := range mutations {
		mutationID := fmt.Sprintf("%s#%d", mutation.SchemaSignature, i)
		econ := c.wager(mutation)

		verdict := c.demon.Evaluate(ctx, mutationID, mutation, intent, econ)
		outcome := Outcome{Mutation: mutation, Verdict: verdict}
		if !verdict.Admitted {
			outcomes = append(outcomes, outcome)
			continue
		}

		p, err := c.spawn(mutationID, mutation, econ.Stake, parent)
		if err != nil {
			log.Error("cycle: failed to spawn phage for %s: %v", mutationID, err)
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Phage = &p

		infected := c.infector.Infect(ctx, &p, targetPath, func() {
			c.propagate(mutation, econ.ExpectedPayoff)
		})
		outcome.Infected = &infected
		outcome.Phage = &p
		if infected.Status != types.PhageInfected {
			c.forfeit(mutation)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// wager derives EconomicInputs for the Select stage from the Viral
// Library's history for mutation's schema, per spec's "library odds x
// expected payoff >= stake". A schema the Library has never registered
// gets the Cycle's configured defaults rather than a zero odds that
// would reject every novel schema forever.
func (c *Cycle) wager(mutation types.MutationVector) demon.EconomicInputs {
	econ := demon.EconomicInputs{
		LibraryOdds:    c.cfg.MinLibraryOdds,
		ExpectedPayoff: c.cfg.DefaultExpectedPayoff,
		Stake:          c.cfg.DefaultStake,
	}
	if c.library == nil {
		return econ
	}
	pattern, ok := c.library.Get(mutation.SchemaSignature)
	if !ok {
		if err := c.library.Register(mutation.SchemaSignature, mutation.SchemaSignature, nil); err != nil {
			logging.Get(logging.CategoryCycle).Warn("cycle: failed to register pattern %s: %v", mutation.SchemaSignature, err)
		}
		return econ
	}
	if odds := pattern.Odds(); odds > econ.LibraryOdds {
		econ.LibraryOdds = odds
	}
	if avgImpact := pattern.TotalImpact; pattern.Successes > 0 {
		econ.ExpectedPayoff = avgImpact / float64(pattern.Successes)
	}
	return econ
}

// spawn creates the Phage that will carry mutation through Infect,
// extending parent's lineage when one is supplied (spec §4.10's
// spawn_child).
func (c *Cycle) spawn(mutationID string, mutation types.MutationVector, stake float64, parent *types.Phage) (types.Phage, error) {
	if parent == nil {
		return types.Phage{ID: mutationID, Mutation: mutation, Status: types.PhageProposed, StakeAmount: stake}, nil
	}
	return phage.SpawnChild(c.facts, *parent, mutationID, mutation, stake)
}

// propagate is Payoff's success path: the admitted, infected mutation
// earned its schema a success recorded against the configured expected
// payoff, strengthening that pattern's future odds.
func (c *Cycle) propagate(mutation types.MutationVector, impact float64) {
	if c.library == nil {
		return
	}
	if err := c.library.RecordSuccess(mutation.SchemaSignature, impact, cycleTime()); err != nil {
		logging.Get(logging.CategoryCycle).Warn("cycle: failed to record success for %s: %v", mutation.SchemaSignature, err)
	}
}

// forfeit is Payoff's failure path: a mutation that was admitted by
// Select but not left INFECTED by Infect loses its stake and decays its
// schema's fitness. A candidate whose Phage fails to spawn never reaches
// Infect and is not forfeited.
func (c *Cycle) forfeit(mutation types.MutationVector) {
	if c.library == nil {
		return
	}
	if err := c.library.RecordFailure(mutation.SchemaSignature, cycleTime()); err != nil {
		logging.Get(logging.CategoryCycle).Warn("cycle: failed to record failure for %s: %v", mutation.SchemaSignature, err)
	}
}
