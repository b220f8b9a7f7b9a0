// Package context implements conversation context optimization for backend
// handoffs: segmentation, importance weighting, budget-constrained selection,
// and quality measurement of the compressed result.
package context

import (
	"time"
)

// =============================================================================
// SECTION 1: Core Types
// =============================================================================

// Category is the semantic class of a run of conversation text.
type Category string

const (
	CategoryStrategic      Category = "strategic"
	CategoryImplementation Category = "implementation"
	CategoryDebug          Category = "debug"
	CategoryChat           Category = "chat"
)

// Categories lists all categories in base-weight order.
var Categories = []Category{
	CategoryStrategic,
	CategoryImplementation,
	CategoryDebug,
	CategoryChat,
}

// DefaultBackend is the fallback identity used when an unknown backend name
// is passed to OptimizeHandoff.
const DefaultBackend = "local"

// ContextSegment is a contiguous run of conversation lines sharing one
// category. Segments from one transcript are non-overlapping; concatenating
// them in original order reconstructs the transcript minus blank lines.
type ContextSegment struct {
	Content    string
	Category   Category
	Importance float64 // set by ApplyWeights, zero until then
	LineStart  int
	LineEnd    int
}

// OptimizedContext is the output of one optimization pass.
type OptimizedContext struct {
	Content          string
	OriginalLength   int
	OptimizedLength  int
	CompressionRatio float64
	QualityScore     float64
	// EstimatedTimeSavings is a rough seconds-saved heuristic based on how
	// much text was removed.
	EstimatedTimeSavings float64
	// FellBack is true when the requested target backend was unknown and the
	// optimizer substituted DefaultBackend.
	FellBack bool
}

// QualityMetrics is the multi-factor quality assessment of one optimization,
// computed independently of the optimizer's own heuristic score.
type QualityMetrics struct {
	Coherence             float64
	Completeness          float64
	Relevance             float64
	CompressionEfficiency float64
	SemanticPreservation  float64
	ExecutionTimeMs       float64
	Overall               float64
}

// =============================================================================
// SECTION 2: Live Session Types
// =============================================================================

// Message is one entry in a live conversation.
type Message struct {
	Content   string
	Backend   string
	Role      string // "user", "assistant", or "system"
	Timestamp time.Time
}

// ConversationState is the in-memory state of one live session. It is owned
// exclusively by the LiveManager and mutated only through its API.
type ConversationState struct {
	Messages           []Message
	CurrentBackend     string
	ContextBuffer      string
	TotalTokenEstimate int
	LastOptimized      time.Time
}

// ConversationStats is a read-only snapshot of a live session.
type ConversationStats struct {
	MessageCount    int
	CurrentBackend  string
	EstimatedTokens int
	ContextLength   int
	LastOptimized   time.Time
	BackendsUsed    []string
}
