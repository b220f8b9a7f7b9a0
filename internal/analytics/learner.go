package analytics

import (
	"fmt"

	"handoff/internal/logging"
)

// WeightSuggestion is one advisory recommendation for a backend's weights.
type WeightSuggestion struct {
	RecommendedWeights map[string]float64
	IncreaseWeightsBy  float64
	Reasons            []string
}

// Improvement is one prioritized issue in an improvement plan.
type Improvement struct {
	Issue  string
	Impact float64
	Action string
}

// ImprovementPlan aggregates the learner's findings.
type ImprovementPlan struct {
	PriorityImprovements []Improvement
	WeightAdjustments    map[string]WeightSuggestion
	FeatureRequests      []string
	MonitoringFocus      []string
}

// Learner turns analyzer output into concrete tuning suggestions. Output is
// advisory only.
type Learner struct {
	analyzer *Analyzer
}

// NewLearner creates a learner over the given analyzer.
func NewLearner(analyzer *Analyzer) *Learner {
	return &Learner{analyzer: analyzer}
}

// SuggestWeightAdjustments recommends changes for one backend based on its
// recent performance. Returns nil when there is no data or nothing to adjust.
func (l *Learner) SuggestWeightAdjustments(targetBackend string) (*WeightSuggestion, error) {
	performance, err := l.analyzer.PerformanceByBackend(30)
	if err != nil {
		return nil, err
	}

	perf, ok := performance[targetBackend]
	if !ok {
		return nil, nil
	}

	var suggestion WeightSuggestion

	if perf.AvgQualityScore < 0.8 {
		suggestion.RecommendedWeights = l.analyzer.OptimalWeights(targetBackend)
		suggestion.Reasons = append(suggestion.Reasons,
			fmt.Sprintf("Quality score %.2f below target 0.8", perf.AvgQualityScore))
	}

	if perf.AvgCompressionRatio < 0.3 {
		suggestion.IncreaseWeightsBy = 0.1
		suggestion.Reasons = append(suggestion.Reasons,
			fmt.Sprintf("Compression ratio %.2f too aggressive", perf.AvgCompressionRatio))
	}

	if len(suggestion.Reasons) == 0 {
		return nil, nil
	}

	logging.Analytics("Weight adjustment suggested for %s: %v", targetBackend, suggestion.Reasons)
	return &suggestion, nil
}

// GenerateImprovementPlan aggregates patterns and per-backend suggestions
// into a prioritized plan.
func (l *Learner) GenerateImprovementPlan() (ImprovementPlan, error) {
	plan := ImprovementPlan{
		WeightAdjustments: make(map[string]WeightSuggestion),
	}

	patterns, err := l.analyzer.DetectPatterns()
	if err != nil {
		return plan, err
	}
	performance, err := l.analyzer.PerformanceByBackend(30)
	if err != nil {
		return plan, err
	}

	// Top three problem categories by quality-improvement potential.
	problems := patterns.ProblematicCategories
	if len(problems) > 3 {
		problems = problems[:3]
	}
	for _, problem := range problems {
		plan.PriorityImprovements = append(plan.PriorityImprovements, Improvement{
			Issue:  fmt.Sprintf("Low quality for %s contexts", problem.Category),
			Impact: problem.ImprovementPotential,
			Action: fmt.Sprintf("Improve classification or weighting for %s", problem.Category),
		})
	}

	for backend := range performance {
		suggestion, err := l.SuggestWeightAdjustments(backend)
		if err != nil || suggestion == nil {
			continue
		}
		plan.WeightAdjustments[backend] = *suggestion
	}

	if len(patterns.TopTransitions) > 0 {
		top := patterns.TopTransitions[0]
		plan.FeatureRequests = append(plan.FeatureRequests,
			fmt.Sprintf("Optimize for common transition: %s -> %s", top.From, top.To))
	}

	if worst, ok := worstBackend(performance); ok {
		plan.MonitoringFocus = append(plan.MonitoringFocus,
			fmt.Sprintf("Monitor %s quality closely", worst))
	}

	return plan, nil
}

func worstBackend(performance map[string]ModelPerformance) (string, bool) {
	worst := ""
	worstScore := 0.0
	for backend, perf := range performance {
		if worst == "" || perf.AvgQualityScore < worstScore {
			worst = backend
			worstScore = perf.AvgQualityScore
		}
	}
	return worst, worst != ""
}
