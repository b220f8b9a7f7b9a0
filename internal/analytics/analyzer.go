// Package analytics derives backend performance aggregates, usage patterns,
// and weight-tuning suggestions from the historical context event log. All
// output is advisory: nothing here writes back into the live weighting
// strategy.
package analytics

import (
	"sort"

	"handoff/internal/logging"
	"handoff/internal/store"
)

// EventSource is the slice of the event store the analyzer needs.
type EventSource interface {
	GetEvents(sessionID string, daysBack int) ([]store.ContextEvent, error)
}

// Sample-size floors for the statistics below.
const (
	minEventsForWeights  = 10
	minSamplesPerProblem = 5
	minFeedbackSamples   = 5
	minEventsForTrend    = 10
)

// ModelPerformance aggregates events for one target backend over a window.
// Recomputed on demand, never persisted.
type ModelPerformance struct {
	BackendName         string
	AvgCompressionRatio float64
	AvgQualityScore     float64
	AvgProcessingTimeMs float64
	TotalOptimizations  int
	UserSatisfaction    float64
	CategoryCounts      map[string]int
}

// Transition is one source-to-target backend switch pattern.
type Transition struct {
	From  string
	To    string
	Count int
}

// CategoryProblem flags a segment category whose optimizations consistently
// score poorly.
type CategoryProblem struct {
	Category             string
	AvgQuality           float64
	SampleSize           int
	ImprovementPotential float64
}

// CompressionTrend compares compression ratios between the older and recent
// halves of the window.
type CompressionTrend struct {
	OlderAvg        float64
	RecentAvg       float64
	Trend           string // "improving" or "degrading"
	ChangeMagnitude float64
}

// SatisfactionTrend summarizes user feedback over the window.
type SatisfactionTrend struct {
	TotalFeedback      int
	AvgSatisfaction    float64
	RecentSatisfaction float64
	Trend              string // "improving" or "needs_attention"
}

// Patterns is the result of one pattern-detection pass.
type Patterns struct {
	TopTransitions        []Transition
	PeakHours             map[int]int
	ProblematicCategories []CategoryProblem
	Compression           *CompressionTrend
	Satisfaction          *SatisfactionTrend
}

// Analyzer computes aggregates over the context event log.
type Analyzer struct {
	events EventSource
}

// NewAnalyzer creates an analyzer over the given event source.
func NewAnalyzer(events EventSource) *Analyzer {
	return &Analyzer{events: events}
}

// PerformanceByBackend groups events by target backend and aggregates means.
func (a *Analyzer) PerformanceByBackend(daysBack int) (map[string]ModelPerformance, error) {
	events, err := a.events.GetEvents("", daysBack)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]store.ContextEvent)
	for _, ev := range events {
		grouped[ev.TargetBackend] = append(grouped[ev.TargetBackend], ev)
	}

	performance := make(map[string]ModelPerformance, len(grouped))
	for backend, backendEvents := range grouped {
		perf := ModelPerformance{
			BackendName:        backend,
			TotalOptimizations: len(backendEvents),
			CategoryCounts:     make(map[string]int),
		}

		feedbackSum := 0.0
		feedbackCount := 0
		for _, ev := range backendEvents {
			perf.AvgCompressionRatio += ev.CompressionRatio
			perf.AvgQualityScore += ev.QualityScore
			perf.AvgProcessingTimeMs += ev.ExecutionTimeMs
			if ev.UserFeedback != nil {
				feedbackSum += *ev.UserFeedback
				feedbackCount++
			}
			for _, seg := range ev.Segments {
				perf.CategoryCounts[seg.SegmentType]++
			}
		}

		n := float64(len(backendEvents))
		perf.AvgCompressionRatio /= n
		perf.AvgQualityScore /= n
		perf.AvgProcessingTimeMs /= n
		if feedbackCount > 0 {
			perf.UserSatisfaction = feedbackSum / float64(feedbackCount)
		}

		performance[backend] = perf
	}

	return performance, nil
}

// OptimalWeights correlates per-category quality with overall quality across
// historical events for the backend. With fewer than ten events it returns
// the fixed defaults. Implements context.WeightSource.
func (a *Analyzer) OptimalWeights(targetBackend string) map[string]float64 {
	defaults := map[string]float64{
		"strategic":      1.0,
		"implementation": 0.8,
		"debug":          0.6,
		"chat":           0.3,
	}

	events, err := a.events.GetEvents("", 90)
	if err != nil {
		logging.Get(logging.CategoryAnalytics).Warn("OptimalWeights query failed: %v", err)
		return defaults
	}

	var backendEvents []store.ContextEvent
	for _, ev := range events {
		if ev.TargetBackend == targetBackend {
			backendEvents = append(backendEvents, ev)
		}
	}
	if len(backendEvents) < minEventsForWeights {
		return defaults
	}

	baseQuality := 0.0
	for _, ev := range backendEvents {
		baseQuality += ev.QualityScore
	}
	baseQuality /= float64(len(backendEvents))
	if baseQuality == 0 {
		return defaults
	}

	categoryQuality := make(map[string][]float64)
	for _, ev := range backendEvents {
		if ev.QualityScore <= 0 {
			continue
		}
		for _, seg := range ev.Segments {
			categoryQuality[seg.SegmentType] = append(categoryQuality[seg.SegmentType], ev.QualityScore)
		}
	}

	optimal := make(map[string]float64, len(categoryQuality))
	for category, qualities := range categoryQuality {
		sum := 0.0
		for _, q := range qualities {
			sum += q
		}
		weight := sum / float64(len(qualities)) / baseQuality
		if weight > 1.0 {
			weight = 1.0
		}
		if weight < 0.1 {
			weight = 0.1
		}
		optimal[category] = weight
	}

	logging.AnalyticsDebug("Derived weights for %s from %d events: %v", targetBackend, len(backendEvents), optimal)
	return optimal
}

// DetectPatterns surfaces usage patterns over the last 30 days.
func (a *Analyzer) DetectPatterns() (Patterns, error) {
	events, err := a.events.GetEvents("", 30)
	if err != nil {
		return Patterns{}, err
	}
	if len(events) == 0 {
		return Patterns{}, nil
	}

	return Patterns{
		TopTransitions:        topTransitions(events),
		PeakHours:             peakHours(events),
		ProblematicCategories: problematicCategories(events),
		Compression:           compressionTrend(events),
		Satisfaction:          satisfactionTrend(events),
	}, nil
}

func topTransitions(events []store.ContextEvent) []Transition {
	type pair struct{ from, to string }
	counts := make(map[pair]int)
	for _, ev := range events {
		if ev.SourceBackend != ev.TargetBackend {
			counts[pair{ev.SourceBackend, ev.TargetBackend}]++
		}
	}

	transitions := make([]Transition, 0, len(counts))
	for p, n := range counts {
		transitions = append(transitions, Transition{From: p.from, To: p.to, Count: n})
	}
	sort.Slice(transitions, func(i, j int) bool {
		return transitions[i].Count > transitions[j].Count
	})
	return transitions
}

func peakHours(events []store.ContextEvent) map[int]int {
	hours := make(map[int]int)
	for _, ev := range events {
		hours[ev.Timestamp.Hour()]++
	}
	return hours
}

func problematicCategories(events []store.ContextEvent) []CategoryProblem {
	scores := make(map[string][]float64)
	for _, ev := range events {
		for _, seg := range ev.Segments {
			scores[seg.SegmentType] = append(scores[seg.SegmentType], ev.QualityScore)
		}
	}

	var problems []CategoryProblem
	for category, categoryScores := range scores {
		if len(categoryScores) < minSamplesPerProblem {
			continue
		}
		sum := 0.0
		for _, s := range categoryScores {
			sum += s
		}
		avg := sum / float64(len(categoryScores))
		if avg < 0.7 {
			problems = append(problems, CategoryProblem{
				Category:             category,
				AvgQuality:           avg,
				SampleSize:           len(categoryScores),
				ImprovementPotential: 0.9 - avg,
			})
		}
	}

	sort.Slice(problems, func(i, j int) bool {
		return problems[i].ImprovementPotential > problems[j].ImprovementPotential
	})
	return problems
}

// compressionTrend splits the window into an older and a recent half; a lower
// recent ratio means compression is improving.
func compressionTrend(events []store.ContextEvent) *CompressionTrend {
	if len(events) < minEventsForTrend {
		return nil
	}

	sorted := make([]store.ContextEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	split := len(sorted) / 2
	olderAvg := avgCompression(sorted[:split])
	recentAvg := avgCompression(sorted[split:])

	trend := "degrading"
	if recentAvg < olderAvg {
		trend = "improving"
	}
	magnitude := recentAvg - olderAvg
	if magnitude < 0 {
		magnitude = -magnitude
	}

	return &CompressionTrend{
		OlderAvg:        olderAvg,
		RecentAvg:       recentAvg,
		Trend:           trend,
		ChangeMagnitude: magnitude,
	}
}

func avgCompression(events []store.ContextEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	sum := 0.0
	for _, ev := range events {
		sum += ev.CompressionRatio
	}
	return sum / float64(len(events))
}

func satisfactionTrend(events []store.ContextEvent) *SatisfactionTrend {
	var rated []store.ContextEvent
	for _, ev := range events {
		if ev.UserFeedback != nil {
			rated = append(rated, ev)
		}
	}
	if len(rated) < minFeedbackSamples {
		return nil
	}

	sort.Slice(rated, func(i, j int) bool {
		return rated[i].Timestamp.Before(rated[j].Timestamp)
	})

	total := 0.0
	for _, ev := range rated {
		total += *ev.UserFeedback
	}
	avg := total / float64(len(rated))

	window := len(rated) / 2
	if window > 5 {
		window = 5
	}
	recentSum := 0.0
	for _, ev := range rated[len(rated)-window:] {
		recentSum += *ev.UserFeedback
	}
	recentAvg := recentSum / float64(window)

	trend := "needs_attention"
	if recentAvg > 3.5 {
		trend = "improving"
	}

	return &SatisfactionTrend{
		TotalFeedback:      len(rated),
		AvgSatisfaction:    avg,
		RecentSatisfaction: recentAvg,
		Trend:              trend,
	}
}
