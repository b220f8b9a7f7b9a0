package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handoff/internal/store"
)

func TestSuggestWeightAdjustments_NoData(t *testing.T) {
	l := NewLearner(NewAnalyzer(&fakeSource{}))

	suggestion, err := l.SuggestWeightAdjustments("claude")
	require.NoError(t, err)
	assert.Nil(t, suggestion)
}

func TestSuggestWeightAdjustments_HealthyBackend(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 5; i++ {
		src.events = append(src.events, makeEvent("claude", 0.9, 0.5, time.Hour))
	}
	l := NewLearner(NewAnalyzer(src))

	suggestion, err := l.SuggestWeightAdjustments("claude")
	require.NoError(t, err)
	assert.Nil(t, suggestion, "healthy metrics should yield no suggestion")
}

func TestSuggestWeightAdjustments_LowQuality(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 5; i++ {
		src.events = append(src.events, makeEvent("claude", 0.6, 0.5, time.Hour))
	}
	l := NewLearner(NewAnalyzer(src))

	suggestion, err := l.SuggestWeightAdjustments("claude")
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.NotEmpty(t, suggestion.RecommendedWeights)
	assert.Zero(t, suggestion.IncreaseWeightsBy)
	require.Len(t, suggestion.Reasons, 1)
	assert.Contains(t, suggestion.Reasons[0], "Quality score")
}

func TestSuggestWeightAdjustments_OverCompression(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 5; i++ {
		src.events = append(src.events, makeEvent("gemini", 0.9, 0.2, time.Hour))
	}
	l := NewLearner(NewAnalyzer(src))

	suggestion, err := l.SuggestWeightAdjustments("gemini")
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.InDelta(t, 0.1, suggestion.IncreaseWeightsBy, 1e-9)
	assert.Empty(t, suggestion.RecommendedWeights)
	require.Len(t, suggestion.Reasons, 1)
	assert.Contains(t, suggestion.Reasons[0], "Compression ratio")
}

func TestGenerateImprovementPlan(t *testing.T) {
	src := &fakeSource{}
	// A struggling backend with a problematic category and a dominant
	// transition.
	for i := 0; i < 6; i++ {
		ev := makeEvent("claude", 0.5, 0.5, time.Hour)
		ev.Segments = []store.SegmentRecord{{Content: "x", SegmentType: "debug"}}
		src.events = append(src.events, ev)
	}
	for i := 0; i < 2; i++ {
		src.events = append(src.events, makeEvent("gemini", 0.9, 0.5, time.Hour))
	}

	l := NewLearner(NewAnalyzer(src))
	plan, err := l.GenerateImprovementPlan()
	require.NoError(t, err)

	require.NotEmpty(t, plan.PriorityImprovements)
	assert.Contains(t, plan.PriorityImprovements[0].Issue, "debug")

	require.Contains(t, plan.WeightAdjustments, "claude")
	assert.NotContains(t, plan.WeightAdjustments, "gemini")

	require.NotEmpty(t, plan.FeatureRequests)
	assert.Contains(t, plan.FeatureRequests[0], "local -> claude")

	require.NotEmpty(t, plan.MonitoringFocus)
	assert.Contains(t, plan.MonitoringFocus[0], "claude")
}

func TestGenerateImprovementPlan_EmptyHistory(t *testing.T) {
	l := NewLearner(NewAnalyzer(&fakeSource{}))

	plan, err := l.GenerateImprovementPlan()
	require.NoError(t, err)
	assert.Empty(t, plan.PriorityImprovements)
	assert.Empty(t, plan.WeightAdjustments)
	assert.Empty(t, plan.FeatureRequests)
	assert.Empty(t, plan.MonitoringFocus)
}
