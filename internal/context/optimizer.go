package context

import (
	"sort"
	"strings"

	"handoff/internal/logging"
)

// =============================================================================
// Context Optimizer
// =============================================================================
// The optimizer turns a raw transcript into a budget-constrained compressed
// transcript in three passes: segment by category, weight by target backend,
// select greedily by importance.

// Optimizer segments, weights, and selects conversation content for a backend
// handoff. The weighting strategy is injected so a learned strategy can
// replace the static one without touching call sites.
type Optimizer struct {
	classifier *Classifier
	weighting  WeightingStrategy
}

// NewOptimizer creates an optimizer with the given weighting strategy. A nil
// strategy gets the static defaults.
func NewOptimizer(weighting WeightingStrategy) *Optimizer {
	if weighting == nil {
		weighting = NewStaticWeights()
	}
	return &Optimizer{
		classifier: NewClassifier(),
		weighting:  weighting,
	}
}

// Segment splits a transcript into typed segments. Non-empty lines are
// classified individually; consecutive lines of the same category merge into
// one segment. Blank lines are dropped before classification and do not force
// a segment boundary.
func (o *Optimizer) Segment(transcript string) []ContextSegment {
	lines := strings.Split(transcript, "\n")

	var segments []ContextSegment
	var current []string
	var currentCat Category
	haveCurrent := false
	startLine := 0

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineCat := o.classifier.Classify(line)

		if !haveCurrent {
			currentCat = lineCat
			haveCurrent = true
			startLine = i
		}

		if lineCat != currentCat {
			segments = append(segments, ContextSegment{
				Content:   strings.Join(current, "\n"),
				Category:  currentCat,
				LineStart: startLine,
				LineEnd:   i - 1,
			})
			current = []string{line}
			currentCat = lineCat
			startLine = i
		} else {
			current = append(current, line)
		}
	}

	if len(current) > 0 {
		segments = append(segments, ContextSegment{
			Content:   strings.Join(current, "\n"),
			Category:  currentCat,
			LineStart: startLine,
			LineEnd:   len(lines) - 1,
		})
	}

	return segments
}

// ApplyWeights returns a new slice with per-segment importance set for the
// target backend. The input slice is not mutated, so the same segments can be
// reused across concurrent optimize calls.
func (o *Optimizer) ApplyWeights(segments []ContextSegment, targetBackend string) []ContextSegment {
	weights := o.weighting.WeightsFor(targetBackend)

	weighted := make([]ContextSegment, len(segments))
	for i, seg := range segments {
		w, ok := weights[seg.Category]
		if !ok {
			w = 0.5
		}
		seg.Importance = w
		weighted[i] = seg
	}

	return weighted
}

// Select picks segment content by descending importance until the budget is
// spent. The sort is stable, so equal-importance segments keep transcript
// order. The first segment that would overflow is truncated to the remaining
// budget (minus a 3-char ellipsis) when more than 100 characters remain, and
// selection stops there regardless of whether later segments would fit.
// Survivors are joined with a newline in selection order, not transcript
// order.
func (o *Optimizer) Select(segments []ContextSegment, maxLength int) string {
	ordered := make([]ContextSegment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Importance > ordered[j].Importance
	})

	var selected []string
	currentLength := 0

	for _, seg := range ordered {
		segLength := len(seg.Content)

		if currentLength+segLength <= maxLength {
			selected = append(selected, seg.Content)
			currentLength += segLength
			continue
		}

		remaining := maxLength - currentLength
		if remaining > 100 {
			selected = append(selected, seg.Content[:remaining-3]+"...")
		}
		break
	}

	return strings.Join(selected, "\n")
}

// OptimizeHandoff runs the full segment, weight and select pipeline for a
// backend switch and computes compression metrics. An unknown target backend
// does not fail: the optimizer substitutes DefaultBackend and marks the
// result's FellBack flag.
func (o *Optimizer) OptimizeHandoff(conversation, sourceBackend, targetBackend string, maxLength int) OptimizedContext {
	target := strings.ToLower(targetBackend)
	fellBack := false
	if !knownBackend(target) {
		logging.ContextDebug("Unknown target backend %q, falling back to %q", targetBackend, DefaultBackend)
		target = DefaultBackend
		fellBack = true
	}

	segments := o.Segment(conversation)
	weighted := o.ApplyWeights(segments, target)
	content := o.Select(weighted, maxLength)

	originalLength := len(conversation)
	optimizedLength := len(content)

	ratio := 1.0
	if originalLength > 0 {
		ratio = float64(optimizedLength) / float64(originalLength)
	}

	timeSavings := float64(originalLength-optimizedLength) / 1000 * 0.5
	if timeSavings < 0 {
		timeSavings = 0
	}

	// Quality: fraction of strategic+implementation segments surviving
	// verbatim. A truncated or reordered important segment counts as lost.
	important := 0
	preserved := 0
	for _, seg := range weighted {
		if seg.Category != CategoryStrategic && seg.Category != CategoryImplementation {
			continue
		}
		important++
		if strings.Contains(content, seg.Content) {
			preserved++
		}
	}
	quality := 1.0
	if important > 0 {
		quality = float64(preserved) / float64(important)
	}

	logging.ContextDebug("Handoff %s -> %s: %d -> %d chars, ratio=%.2f quality=%.2f",
		sourceBackend, target, originalLength, optimizedLength, ratio, quality)

	return OptimizedContext{
		Content:              content,
		OriginalLength:       originalLength,
		OptimizedLength:      optimizedLength,
		CompressionRatio:     ratio,
		QualityScore:         quality,
		EstimatedTimeSavings: timeSavings,
		FellBack:             fellBack,
	}
}

// knownBackend reports whether the weighting layer has adjustments for the
// backend name. Identity is just a string key; anything else falls back.
func knownBackend(name string) bool {
	switch name {
	case "local", "claude", "gemini":
		return true
	}
	return false
}
