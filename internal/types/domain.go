package types

import "time"

// =============================================================================
// MODULE + CODE STRUCTURE
// =============================================================================

// Module is an immutable record of a target source file under evolution.
// Mutation always targets the filesystem path, never this record.
type Module struct {
	Name     string
	Category string
	Path     string
}

// ClassInfo is an extracted class/struct-like declaration.
type ClassInfo struct {
	Name    string
	Line    int
	Bases   []string
	Methods []string
}

// FunctionInfo is an extracted function/method declaration.
type FunctionInfo struct {
	Name      string
	Line      int
	Args      []string
	IsPrivate bool
	IsAsync   bool
}

// CodeStructure is the AST Analyzer's output: ordered, hashable, immutable.
type CodeStructure struct {
	Module     Module
	Classes    []ClassInfo
	Functions  []FunctionInfo
	Imports    []string
	Docstring  string
	LineCount  int
	Complexity ComplexityHints
}

// ComplexityHints flags the structural smells the Analyzer looks for.
type ComplexityHints struct {
	LargeClasses    []string // classes with >10 methods
	LongFunctions   []string // functions with >50 lines
	DeepParamLists  []string // functions with >5 args
	IsLargeModule   bool     // module has >400 lines
	CyclomaticTotal int
}

// =============================================================================
// HYPOTHESIS / IMPROVEMENT / EXPERIMENT
// =============================================================================

// HypothesisSource tags where a hypothesis came from.
type HypothesisSource string

const (
	HypothesisFromAST HypothesisSource = "ast_derived"
	HypothesisFromLLM HypothesisSource = "llm_generated"
)

// Hypothesis is a short natural-language improvement proposal.
type Hypothesis struct {
	Statement string
	Source    HypothesisSource
	Symbol    string // target class/function, if any
}

// ImprovementType classifies the kind of rewrite proposed.
type ImprovementType string

const (
	ImprovementRefactor ImprovementType = "refactor"
	ImprovementFix      ImprovementType = "fix"
	ImprovementFeature  ImprovementType = "feature"
	ImprovementTest     ImprovementType = "test"
)

// Improvement is a candidate rewrite of a module.
type Improvement struct {
	Description   string
	Rationale     string
	Type          ImprovementType
	NewSourceText string
	Confidence    float64 // clamped to [0,1]
	Metadata      map[string]string
}

// ExperimentStatus is the lifecycle state of an Experiment.
type ExperimentStatus string

const (
	ExperimentPending ExperimentStatus = "PENDING"
	ExperimentRunning ExperimentStatus = "RUNNING"
	ExperimentPassed  ExperimentStatus = "PASSED"
	ExperimentFailed  ExperimentStatus = "FAILED"
	ExperimentHeld    ExperimentStatus = "HELD"
)

// TestReport is the Test Harness's gate result.
type TestReport struct {
	SyntaxOK   bool
	TypeOK     bool
	TestsOK    bool
	FailReason string
}

// Experiment couples a hypothesis, its improvement, and lifecycle state.
type Experiment struct {
	ID          string
	Hypothesis  Hypothesis
	Improvement Improvement
	Status      ExperimentStatus
	Report      *TestReport
	Verdict     *Verdict
	Err         error
}

// VerdictType is the Judge's classification of an improvement.
type VerdictType string

const (
	VerdictAccept VerdictType = "ACCEPT"
	VerdictRevise VerdictType = "REVISE"
	VerdictReject VerdictType = "REJECT"
)

// Verdict is the Judge's output for one improvement.
type Verdict struct {
	Type      VerdictType
	Reasons   []string
	Revisions []string
}

// =============================================================================
// IMPROVEMENT MEMORY
// =============================================================================

// ImprovementOutcome is the recorded fate of a hypothesis attempt.
type ImprovementOutcome string

const (
	OutcomeAccepted ImprovementOutcome = "accepted"
	OutcomeRejected ImprovementOutcome = "rejected"
	OutcomeHeld     ImprovementOutcome = "held"
)

// ImprovementRecord is an append-only ledger entry.
type ImprovementRecord struct {
	Module           string
	HypothesisHash   string
	Description      string
	Outcome          ImprovementOutcome
	Timestamp        time.Time
	RejectionReason  string
}

// =============================================================================
// MUTATION / PHAGE / INTENT
// =============================================================================

// MutationVector is a schema-generated candidate mutation plus its
// thermodynamic deltas.
type MutationVector struct {
	OriginalText    string
	MutatedText     string
	SchemaSignature string
	Confidence      float64
	EnthalpyDelta   float64
	EntropyDelta    float64
}

// GibbsFreeEnergy computes ΔG = ΔH - T·ΔS. Negative is favorable.
func (m MutationVector) GibbsFreeEnergy(temperature float64) float64 {
	return m.EnthalpyDelta - temperature*m.EntropyDelta
}

// PhageStatus is the lifecycle state of an active mutation carrier.
type PhageStatus string

const (
	PhageProposed   PhageStatus = "PROPOSED"
	PhageInfecting  PhageStatus = "INFECTING"
	PhageInfected   PhageStatus = "INFECTED"
	PhageFailed     PhageStatus = "FAILED"
	PhageRolledBack PhageStatus = "ROLLED_BACK"
)

// Phage is an active carrier of a candidate mutation through the
// Teleological-Thermodynamic Cycle.
type Phage struct {
	ID          string
	Mutation    MutationVector
	Status      PhageStatus
	Lineage     []string // parent phage ids, oldest first
	StakeAmount float64
	LayerReached int // lowest-numbered Demon layer that rejected it, or 5 if it passed
}

// Intent is the teleological field: the target embedding that constrains
// which mutations count as progress.
type Intent struct {
	Embedding   []float32
	Source      string
	Description string
	Confidence  float64
}

// =============================================================================
// CATALOG
// =============================================================================

// EntityStatus is a CatalogEntry's lifecycle state.
type EntityStatus string

const (
	EntityActive     EntityStatus = "ACTIVE"
	EntityDeprecated EntityStatus = "DEPRECATED"
	EntityRetired    EntityStatus = "RETIRED"
)

// CatalogEntry is a registered artifact (an agent, adapter, or pattern).
type CatalogEntry struct {
	ID                  string
	EntityType          string
	Name                string
	Version             string
	Description         string
	Keywords            []string
	Embedding           []float32
	Author              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	InputType           string
	OutputType          string
	ContractsImplemented []string
	ContractsRequired    []string
	Relationships       map[string][]string // successor_to, forked_from, depends_on, composed_with -> target ids
	Status              EntityStatus
	UsageCount          int64
	SuccessRate         float64
}

// =============================================================================
// TYPE LATTICE
// =============================================================================

// TypeKind classifies a TypeNode.
type TypeKind string

const (
	KindPrimitive TypeKind = "PRIMITIVE"
	KindContainer TypeKind = "CONTAINER"
	KindRecord    TypeKind = "RECORD"
	KindUnion     TypeKind = "UNION"
	KindLiteral   TypeKind = "LITERAL"
	KindGeneric   TypeKind = "GENERIC"
	KindContract  TypeKind = "CONTRACT"
	KindAny       TypeKind = "ANY"
	KindNever     TypeKind = "NEVER"
)

// TypeNode is a node in the bounded partial order over type identifiers.
type TypeNode struct {
	ID          string
	Kind        TypeKind
	ElementType string              // for CONTAINER/GENERIC
	Fields      map[string]string   // for RECORD: field name -> type id
	Members     []string            // for UNION/GENERIC
	Invariants  []string
}

// SubtypeEdge is a directed edge sub <: super in the lattice.
type SubtypeEdge struct {
	Sub                  string
	Super                string
	Reason               string
	CovariantPositions    []int
	ContravariantPositions []int
}

// =============================================================================
// LINEAGE
// =============================================================================

// Relationship is a lineage-DAG edge between two catalog entries.
type Relationship struct {
	SourceID   string
	TargetID   string
	Type       string // successor_to, forked_from, depends_on, composed_with
	CreatedAt  time.Time
	Context    string
	Deprecated bool
}

// =============================================================================
// HOLOGRAPHIC MEMORY
// =============================================================================

// CompressionLevel is a MemoryPattern's current tier.
type CompressionLevel string

const (
	CompressionFull    CompressionLevel = "FULL"
	CompressionHigh    CompressionLevel = "HIGH"
	CompressionMedium  CompressionLevel = "MEDIUM"
	CompressionLow     CompressionLevel = "LOW"
	CompressionMinimal CompressionLevel = "MINIMAL"
)

// Resolution maps a CompressionLevel to its retrieval fidelity.
func (c CompressionLevel) Resolution() float64 {
	switch c {
	case CompressionFull:
		return 1.0
	case CompressionHigh:
		return 0.75
	case CompressionMedium:
		return 0.5
	case CompressionLow:
		return 0.25
	case CompressionMinimal:
		return 0.1
	default:
		return 0.1
	}
}

// MemoryPattern is a single holographic memory, addressed by content.
type MemoryPattern struct {
	ID           string
	Content      string
	Embedding    []float32
	Timestamp    time.Time
	LastAccessed time.Time
	AccessCount  int64
	Compression  CompressionLevel
	Strength     float64 // >= 0.1
	Concepts     []string
}
