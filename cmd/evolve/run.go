package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"thermocode/internal/astanalyzer"
	"thermocode/internal/catalog"
	"thermocode/internal/config"
	"thermocode/internal/cycle"
	"thermocode/internal/demon"
	"thermocode/internal/embedding"
	"thermocode/internal/harness"
	"thermocode/internal/improvementmemory"
	"thermocode/internal/judge"
	"thermocode/internal/lattice"
	"thermocode/internal/llm"
	"thermocode/internal/logging"
	"thermocode/internal/mangle"
	"thermocode/internal/memory"
	"thermocode/internal/mutator"
	"thermocode/internal/phage"
	"thermocode/internal/pipeline"
	"thermocode/internal/prompt"
	"thermocode/internal/safety"
	"thermocode/internal/search"
	"thermocode/internal/store"
	"thermocode/internal/types"
	"thermocode/internal/vcs"
	"thermocode/internal/viral"
)

// catalogSearch adapts a catalog.Registry and a search.Engine into
// pipeline.CatalogSearcher, so the Evolution Pipeline's exhaustive prompt
// tier can draw on the Catalog's fused search (spec §4.2) without
// depending on how the catalog is populated or indexed.
type catalogSearch struct {
	reg    *catalog.Registry
	engine *search.Engine
}

func (c catalogSearch) All() []types.CatalogEntry { return c.reg.All() }

func (c catalogSearch) Search(ctx context.Context, query string, entries []types.CatalogEntry) (search.Response, error) {
	return c.engine.Search(ctx, query, entries)
}

// runOptions holds the --dry-run/--auto-apply/--quick/--hypotheses flags
// plumbed from main.go, overlaid onto the loaded config.Config.
type runOptions struct {
	target     string
	configPath string
	workspace  string
	dryRun     bool
	autoApply  bool
	quick      bool
	hypotheses int
}

// system is every collaborator wired for one `evolve` invocation, built
// once and shared across every discovered module. Grounded on
// internal/pipeline.Pipeline's own composition-struct shape, widened to
// the full set of top-level collaborators the CLI entry point -- and
// only the CLI entry point -- is responsible for fabricating (spec §9
// "Ambient runtime singleton": every capability is supplied explicitly
// by a caller, never conjured by a constructor).
type system struct {
	pipeline *pipeline.Pipeline
	cycle    *cycle.Cycle
	analyzer *astanalyzer.Analyzer
	facts    *mangle.Engine
	sysLimit *safety.RateLimiter
	modLimit *safety.RateLimiter
	audit    *safety.AuditLogger
	embedder embedding.EmbeddingEngine
	registry *catalog.Registry
	longTerm *memory.HolographicMemory
	memMgr   *memory.Manager
}

// Close releases the collaborators system owns that hold external
// resources (the tree-sitter parser behind the shared astanalyzer.Analyzer),
// consolidates whatever this run's working memory accumulated into the
// long-term tier (spec §4.3: "Working -> Long-term via consolidation"),
// and persists the catalog and long-term memory built up over this
// invocation so the next one starts from what this one learned.
func (s *system) Close(ctx context.Context) {
	s.memMgr.ConsolidateTick(ctx)
	if err := s.longTerm.SaveSnapshot(); err != nil {
		logging.Get(logging.CategoryMemory).Error("evolve: saving long-term memory: %v", err)
	}
	if err := s.registry.Save(); err != nil {
		logging.Get(logging.CategoryCatalog).Error("evolve: saving catalog: %v", err)
	}
	s.analyzer.Close()
}

// buildSystem wires every collaborator the Evolution Pipeline and the
// Thermodynamic Cycle depend on, following each package's own
// constructor-injection discipline (no package builds its own
// dependency; the entry point builds the whole graph).
func buildSystem(ctx context.Context, opts runOptions) (*system, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("evolve: loading config: %w", err)
	}
	if opts.quick {
		cfg.Pipeline = config.QuickPipelineConfig()
		config.SetLLMTimeouts(config.QuickLLMTimeouts())
	}
	if opts.dryRun {
		cfg.Pipeline.DryRun = true
	}
	if opts.autoApply {
		cfg.Pipeline.AutoApply = true
	}
	if opts.hypotheses > 0 {
		cfg.Pipeline.HypothesesPerModule = opts.hypotheses
	}

	if err := logging.Initialize(opts.workspace); err != nil {
		fmt.Fprintf(os.Stderr, "evolve: warning: logging disabled: %v\n", err)
	}
	log := logging.Get(logging.CategoryBoot)

	facts, err := mangle.NewDomainEngine(mangle.Config{
		FactLimit: cfg.Mangle.FactLimit,
		AutoEval:  true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("evolve: mangle engine: %w", err)
	}
	lat := lattice.New(facts)

	embedder, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		log.Error("evolve: embedding provider %q unavailable (%v), falling back to tfidf", cfg.Embedding.Provider, err)
		embedder = embedding.NewTFIDFEngine(cfg.Embedding.Dimensions)
	}

	dbPath := filepath.Join(opts.workspace, ".evolve", "store.db")
	vs, err := store.NewVectorStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("evolve: opening store: %w", err)
	}
	memoryStore := store.NewCatalogStore(vs, "improvements")
	viralStore := store.NewCatalogStore(vs, "viral_library")
	catalogStore := store.NewCatalogStore(vs, "catalog")
	longTermStore := store.NewCatalogStore(vs, "holographic_memory")

	registry := catalog.New(cfg.Catalog, catalogStore)
	if err := registry.Load(); err != nil {
		log.Error("evolve: loading catalog: %v", err)
	}

	longTerm := memory.New(cfg.Memory, embedder, longTermStore)
	if err := longTerm.LoadSnapshot(); err != nil {
		log.Error("evolve: loading long-term memory: %v", err)
	}
	memMgr := memory.NewManager(cfg.Memory, longTerm)

	analyzer := astanalyzer.New()
	improvementMem := improvementmemory.New(memoryStore)
	builder := prompt.New(cfg.Memory.ContextWindow)

	// All four stores share one sqlite file; one watcher covers every
	// snapshot an external process (or operator) might update in place.
	catalog.WatchSnapshot(ctx, dbPath, func() error {
		if err := registry.Load(); err != nil {
			return err
		}
		if err := longTerm.LoadSnapshot(); err != nil {
			return err
		}
		return improvementMem.Load()
	})

	var runtime llm.Runtime
	if cfg.LLM.APIKey != "" {
		gr, err := llm.NewGenAIRuntime(ctx, cfg.LLM)
		if err != nil {
			log.Error("evolve: LLM runtime unavailable (%v), falling back to AST-only hypotheses", err)
		} else {
			runtime = gr
		}
	}

	j := judge.NewGenericJudge()
	h := harness.New(cfg.Build, harnessMode(opts.quick))

	var incorporator *pipeline.Incorporator
	if cfg.Pipeline.AutoApply && !cfg.Pipeline.DryRun {
		vcsClient := vcs.NewClient(cfg.VCS, opts.workspace)
		incorporator = pipeline.NewIncorporator(vcsClient)
	}

	semantic := search.NewSemanticBrain(embedder)
	graphBrain := search.GraphBrain{Reg: registry, Lat: lat}
	engine := search.NewEngine(semantic, graphBrain, cfg.Catalog)
	searcher := catalogSearch{reg: registry, engine: engine}

	p := pipeline.New(cfg.Pipeline, analyzer, improvementMem, builder, runtime, j, h, incorporator, searcher)

	m := mutator.New()
	d := demon.New(facts, lat, embedder, cfg.Cycle.Temperature)
	inf := phage.NewInfector(phage.NewAtomicMutationManager(), h, facts)
	lib := viral.New(viralStore)
	c := cycle.New(cfg.Cycle, m, d, inf, lib, facts)

	sysLimit := safety.NewRateLimiter(0, cfg.Safety.MaxInfectionsPerHour, 0)
	modLimit := safety.NewRateLimiter(0, cfg.Safety.MaxInfectionsPerModule, 0)
	audit := safety.NewAuditLogger(filepath.Join(opts.workspace, cfg.Safety.AuditLogPath, "cycle.jsonl"), facts)

	return &system{
		pipeline: p,
		cycle:    c,
		analyzer: analyzer,
		facts:    facts,
		sysLimit: sysLimit,
		modLimit: modLimit,
		audit:    audit,
		embedder: embedder,
		registry: registry,
		longTerm: longTerm,
		memMgr:   memMgr,
	}, nil
}

func harnessMode(quick bool) harness.Mode {
	if quick {
		return harness.ModeQuick
	}
	return harness.ModeFull
}

// runOnPath runs both the Evolution Pipeline and one Thermodynamic Cycle
// pass over a single module file, in that order: the Pipeline's
// Ground->Hypothesis->Experiment->Judge->Incorporate loop handles
// LLM-proposed improvements, the Cycle's structural-schema mutations
// run independently against whatever the Pipeline left on disk.
func (s *system) runOnPath(ctx context.Context, path string) (pipeline.ModuleReport, []cycle.Outcome, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return pipeline.ModuleReport{}, nil, fmt.Errorf("evolve: reading %s: %w", path, err)
	}
	mod := types.Module{Name: moduleName(path), Category: "go", Path: path}
	intent := s.buildIntent(ctx, mod)
	s.registerModule(ctx, mod)

	report, err := s.pipeline.RunModule(ctx, mod, path, source, intent)
	if err != nil {
		return report, nil, err
	}
	s.rememberOutcome(mod, report)

	if !s.sysLimit.Allow("system", cliTime()) || !s.modLimit.Allow(mod.Name, cliTime()) {
		logging.Get(logging.CategoryCycle).Info("evolve: skipping cycle for %s: infection rate limit reached", mod.Name)
		return report, nil, nil
	}

	current, err := os.ReadFile(path)
	if err != nil {
		return report, nil, fmt.Errorf("evolve: re-reading %s after pipeline: %w", path, err)
	}
	structure, err := s.analyzer.Analyze(ctx, mod, path, current)
	if err != nil {
		return report, nil, fmt.Errorf("evolve: analyzing %s for cycle: %w", path, err)
	}

	outcomes, err := s.cycle.Run(ctx, structure, path, string(current), intent, nil)
	if err != nil {
		return report, outcomes, err
	}
	s.sysLimit.Record("system", cliTime())
	s.modLimit.Record(mod.Name, cliTime())
	for _, o := range outcomes {
		if o.Infected == nil {
			continue
		}
		category := safety.InfectionFailed
		switch o.Infected.Status {
		case types.PhageInfected:
			category = safety.InfectionSucceeded
		case types.PhageRolledBack:
			category = safety.RolledBack
		}
		_ = s.audit.Record(category, mod.Name, string(o.Infected.Status), cliTime())
	}
	return report, outcomes, nil
}

// buildIntent embeds a generic improvement-goal description for module,
// since the minimal CLI (spec §6) takes no free-text goal flag. Before
// embedding, it recalls any long-term memory of past runs against this
// module (spec §4.3: "Long-term -> Working via recall(query)") and folds
// their content into the description, so a module evolved before carries
// forward what was previously learned about it. The Demon's
// teleological-alignment layer and Hypothesis scoring treat an
// empty-Embedding Intent as uninformative rather than disqualifying, so
// a best-effort embedding here only sharpens that layer, never gates it.
func (s *system) buildIntent(ctx context.Context, mod types.Module) types.Intent {
	description := fmt.Sprintf("improve code quality and maintainability of %s", mod.Name)
	if recalled, err := s.memMgr.Recall(ctx, mod.Name, 3); err == nil {
		for _, r := range recalled {
			description += "; previously: " + r.Pattern.Content
		}
	}
	intent := types.Intent{Source: "cli", Description: description, Confidence: 1.0}
	if s.embedder == nil {
		return intent
	}
	vec, err := s.embedder.Embed(ctx, description)
	if err != nil {
		return intent
	}
	intent.Embedding = vec
	return intent
}

// rememberOutcome feeds report's result into the sensory tier as a
// salient item and immediately runs one attention pass (spec §4.3:
// "Sensory -> Working via attention"), so Close's consolidation tick has
// something to fold into long-term memory for a future Recall.
func (s *system) rememberOutcome(mod types.Module, report pipeline.ModuleReport) {
	var passed, failed, held int
	for _, exp := range report.Experiments {
		switch exp.Status {
		case types.ExperimentPassed:
			passed++
		case types.ExperimentFailed:
			failed++
		case types.ExperimentHeld:
			held++
		}
	}
	content := fmt.Sprintf("%s: %d passed, %d failed, %d held", mod.Name, passed, failed, held)
	salience := 0.3
	if passed > 0 {
		salience = 0.8
	}
	s.memMgr.Sensory.Add(memory.SensoryItem{
		Content:  content,
		Salience: salience,
		Novelty:  0.5,
	})
	s.memMgr.Attend()
}

// registerModule adds (or refreshes) mod's catalog entry so the
// exhaustive prompt tier's fused search (spec §4.2) has a growing
// population of prior modules to search over as the run proceeds. The
// entry's embedding backs the search package's semantic brain; a failed
// embed leaves the entry registered without one, which only drops that
// module out of semantic-brain consideration, not out of the keyword or
// graph brains.
func (s *system) registerModule(ctx context.Context, mod types.Module) {
	description := fmt.Sprintf("Go module %s", mod.Name)
	entry := types.CatalogEntry{
		ID:          mod.Name,
		EntityType:  "module",
		Name:        mod.Name,
		Description: description,
		Keywords:    []string{mod.Name, mod.Category},
	}
	if s.embedder != nil {
		if vec, err := s.embedder.Embed(ctx, description); err == nil {
			entry.Embedding = vec
		}
	}
	if err := s.registry.Register(entry); err != nil {
		logging.Get(logging.CategoryCatalog).Error("evolve: registering %s: %v", mod.Name, err)
	}
}
