// Package pipeline implements the top-level Evolution Pipeline (spec
// §4.12): for one target module, Ground → Hypothesis → Experiment →
// Judge → Sublate → Incorporate, with retry/fallback waterfalls and
// prompt metering.
//
// Grounded on internal/autopoiesis.Orchestrator (autopoiesis_orchestrator.go)
// for the shape of a single struct holding every collaborator a
// multi-stage run composes (analyzer, memory, prompt assembler, LLM
// client, kernel) behind a constructor that wires them explicitly —
// this package narrows that shape to the stages spec §4.12 actually
// names, and keeps its own per-module, sequential-experiment
// discipline (spec §5: "within a module, experiments are sequential to
// keep file state deterministic") rather than the teacher's additional
// session-wide throttling/tracing machinery.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"thermocode/internal/astanalyzer"
	"thermocode/internal/config"
	"thermocode/internal/harness"
	"thermocode/internal/improvementmemory"
	"thermocode/internal/judge"
	"thermocode/internal/llm"
	"thermocode/internal/logging"
	"thermocode/internal/prompt"
	"thermocode/internal/search"
	"thermocode/internal/types"
	"thermocode/internal/vcs"
)

// Judge is the capability every Code Judge flavor exposes (judge.GenericJudge,
// judge.PrincipleJudge); pipeline depends on this rather than a concrete
// flavor so callers can choose which judge backs a run.
type Judge interface {
	Evaluate(module, originalText, newText string, confidence float64) judge.Result
}

// CatalogSearcher supplies the exhaustive prompt tier's catalog context
// (spec §4.2's fused search over the Catalog Registry): the registered
// entries to search over, plus the fused ranking itself. Pipeline stays
// decoupled from how the catalog is populated or indexed; a nil
// CatalogSearcher leaves Context.Catalog/SimilarPatterns empty, which
// degrades a level-2 prompt to its level-1 shape rather than failing it.
type CatalogSearcher interface {
	All() []types.CatalogEntry
	Search(ctx context.Context, query string, entries []types.CatalogEntry) (search.Response, error)
}

// Incorporator writes a PASSED experiment's source and commits it (spec
// §4.12 step 4: "write file, vcs add, vcs commit"). A nil Incorporator
// disables incorporation regardless of AutoApply/DryRun.
type Incorporator struct {
	vcsClient *vcs.Client
}

// NewIncorporator creates an Incorporator backed by a VCS client rooted
// at the target repository.
func NewIncorporator(vcsClient *vcs.Client) *Incorporator {
	return &Incorporator{vcsClient: vcsClient}
}

// Apply writes newSource to targetPath, stages it, and commits with a
// message formed from description and rationale. Failure to commit is
// an OperationalError (spec §7: "non-fatal"), not a pipeline abort.
func (inc *Incorporator) Apply(ctx context.Context, targetPath, newSource, description, rationale string, writeFile func(path, content string) error) error {
	if err := writeFile(targetPath, newSource); err != nil {
		return fmt.Errorf("pipeline: incorporator failed to write %s: %w", targetPath, err)
	}
	if inc.vcsClient == nil {
		return nil
	}
	if err := inc.vcsClient.Add(ctx, targetPath); err != nil {
		return &types.OperationalError{Op: "vcs add", Detail: err.Error()}
	}
	message := description
	if rationale != "" {
		message = fmt.Sprintf("%s\n\n%s", description, rationale)
	}
	if _, err := inc.vcsClient.Commit(ctx, message); err != nil {
		return &types.OperationalError{Op: "vcs commit", Detail: err.Error()}
	}
	return nil
}

// Pipeline composes the Evolution Pipeline's collaborators for one
// target module at a time.
type Pipeline struct {
	cfg          config.PipelineConfig
	analyzer     *astanalyzer.Analyzer
	memory       *improvementmemory.Memory
	builder      *prompt.Builder
	runtime      llm.Runtime
	judge        Judge
	harness      *harness.Harness
	incorporator *Incorporator
	catalog      CatalogSearcher
}

// New wires a Pipeline from its collaborators. runtime, incorporator and
// catalog may be nil (e.g. a dry-run with no LLM configured yet falls
// back to AST-only hypotheses; a nil incorporator disables step 4
// entirely; a nil catalog caps every prompt at its level-1 context) —
// per spec §9 "Ambient runtime singleton", the caller must supply every
// capability explicitly; New never fabricates one silently.
func New(cfg config.PipelineConfig, analyzer *astanalyzer.Analyzer, memory *improvementmemory.Memory, builder *prompt.Builder, runtime llm.Runtime, j Judge, h *harness.Harness, incorporator *Incorporator, catalog CatalogSearcher) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		analyzer:     analyzer,
		memory:       memory,
		builder:      builder,
		runtime:      runtime,
		judge:        j,
		harness:      h,
		incorporator: incorporator,
		catalog:      catalog,
	}
}

// ModuleReport is RunModule's result: one entry per experiment attempted
// plus whether the module was skipped outright.
type ModuleReport struct {
	Module      types.Module
	Skipped     bool
	SkipReason  string
	Experiments []types.Experiment
}

// RunModule executes spec §4.12's four steps for one module's source.
func (p *Pipeline) RunModule(ctx context.Context, module types.Module, path string, source []byte, intent types.Intent) (ModuleReport, error) {
	log := logging.Get(logging.CategoryPipeline)
	report := ModuleReport{Module: module}

	if p.cfg.PreflightErrorThreshold > 0 {
		if n, err := PreflightErrorCount(ctx, path); err == nil && n > p.cfg.PreflightErrorThreshold {
			report.Skipped = true
			report.SkipReason = (&types.SystemicError{Module: module.Name, Reason: fmt.Sprintf("preflight error count %d exceeds threshold %d", n, p.cfg.PreflightErrorThreshold)}).Error()
			log.Info("skipping module %s: %s", module.Name, report.SkipReason)
			return report, nil
		}
	}

	structure, err := p.analyzer.Analyze(ctx, module, path, source)
	if err != nil {
		return report, &types.StructuralError{Module: module.Name, Reason: fmt.Sprintf("AST analysis failed: %v", err)}
	}

	hypotheses := p.hypothesesFor(module, structure)
	if len(hypotheses) > p.cfg.HypothesesPerModule {
		hypotheses = hypotheses[:p.cfg.HypothesesPerModule]
	}

	for _, h := range hypotheses {
		exp := p.runExperiment(ctx, module, structure, h, string(source))
		report.Experiments = append(report.Experiments, exp)
		p.recordOutcome(module, h, exp)

		if exp.Status == types.ExperimentPassed && p.incorporator != nil && p.cfg.AutoApply && !p.cfg.DryRun {
			if err := p.incorporator.Apply(ctx, path, exp.Improvement.NewSourceText, exp.Improvement.Description, exp.Improvement.Rationale, writeFile); err != nil {
				log.Error("incorporation failed for %s: %v", module.Name, err)
				if exp.Improvement.Metadata == nil {
					exp.Improvement.Metadata = map[string]string{}
				}
				exp.Improvement.Metadata["incorporation_error"] = err.Error()
				report.Experiments[len(report.Experiments)-1] = exp
			}
		}
	}
	return report, nil
}

// hypothesesFor generates AST-derived hypotheses and filters them
// through the Improvement Memory (spec §4.12 step 2: "skip if
// previously rejected or recently accepted for a fuzzy-matched
// hypothesis"). It proposes AST-derived hypotheses only; it makes no
// LLM round trip and does not generate LLM-derived hypotheses.
func (p *Pipeline) hypothesesFor(module types.Module, structure types.CodeStructure) []types.Hypothesis {
	candidates := astanalyzer.ProposeHypotheses(structure, p.cfg.HypothesesPerModule*2)
	filtered := make([]types.Hypothesis, 0, len(candidates))
	for _, h := range candidates {
		if p.memory != nil && (p.memory.WasRejected(module.Name, h.Statement) || p.memory.WasRecentlyAccepted(module.Name, h.Statement)) {
			continue
		}
		filtered = append(filtered, h)
	}
	return filtered
}

func (p *Pipeline) recordOutcome(module types.Module, h types.Hypothesis, exp types.Experiment) {
	if p.memory == nil {
		return
	}
	outcome := types.OutcomeHeld
	reason := ""
	switch exp.Status {
	case types.ExperimentPassed:
		outcome = types.OutcomeAccepted
	case types.ExperimentFailed:
		outcome = types.OutcomeRejected
		if exp.Err != nil {
			reason = exp.Err.Error()
		}
	}
	p.memory.Update(module.Name, h.Statement, exp.Improvement.Description, outcome, reason, experimentTime())
}

// experimentTime exists so RunModule never calls time.Now() from more
// than one place, matching the workflow-safe "stamp once" discipline
// the rest of this tree follows for externally-observable timestamps.
func experimentTime() time.Time { return time.Now() }

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
