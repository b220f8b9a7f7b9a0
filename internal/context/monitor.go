package context

import (
	"fmt"
	"sync"
	"time"
)

// Alert thresholds for the live quality monitor.
const (
	lowQualityThreshold     = 0.6
	poorCoherenceThreshold  = 0.5
	excessiveCompressionMax = 0.2
	monitorHistoryLimit     = 50
)

// QualityAlert flags a measurement that crossed a threshold.
type QualityAlert struct {
	Type       string
	Message    string
	Suggestion string
}

// MonitorReport is the outcome of monitoring one optimization.
type MonitorReport struct {
	Metrics         QualityMetrics
	Alerts          []QualityAlert
	Trend           string // "improving", "declining", "stable", "insufficient_data"
	Recommendations []string
}

type qualitySample struct {
	timestamp     time.Time
	metrics       QualityMetrics
	targetBackend string
}

// QualityMonitor tracks optimization quality across a session and raises
// alerts when it degrades. It keeps a bounded history of recent measurements.
type QualityMonitor struct {
	mu       sync.Mutex
	measurer *QualityMeasurer
	history  []qualitySample
}

// NewQualityMonitor creates a monitor around the given measurer. A nil
// measurer gets a fresh one.
func NewQualityMonitor(measurer *QualityMeasurer) *QualityMonitor {
	if measurer == nil {
		measurer = NewQualityMeasurer()
	}
	return &QualityMonitor{measurer: measurer}
}

// Observe measures one optimization, records it, and reports alerts, the
// quality trend, and recommendations.
func (qm *QualityMonitor) Observe(original, optimized string, segments []ContextSegment, targetBackend string, executionTimeMs float64) MonitorReport {
	metrics := qm.measurer.Measure(original, optimized, segments, targetBackend, executionTimeMs)

	qm.mu.Lock()
	qm.history = append(qm.history, qualitySample{
		timestamp:     time.Now(),
		metrics:       metrics,
		targetBackend: targetBackend,
	})
	if len(qm.history) > monitorHistoryLimit {
		qm.history = qm.history[len(qm.history)-monitorHistoryLimit:]
	}
	trend := qm.trendLocked()
	qm.mu.Unlock()

	var alerts []QualityAlert
	if metrics.Overall < lowQualityThreshold {
		alerts = append(alerts, QualityAlert{
			Type:       "quality_warning",
			Message:    fmt.Sprintf("Low optimization quality: %.2f", metrics.Overall),
			Suggestion: "Consider adjusting importance weights",
		})
	}
	if metrics.Coherence < poorCoherenceThreshold {
		alerts = append(alerts, QualityAlert{
			Type:       "coherence_warning",
			Message:    fmt.Sprintf("Poor context coherence: %.2f", metrics.Coherence),
			Suggestion: "May need better segment ordering",
		})
	}
	ratio := 1.0
	if len(original) > 0 {
		ratio = float64(len(optimized)) / float64(len(original))
	}
	if ratio < excessiveCompressionMax {
		alerts = append(alerts, QualityAlert{
			Type:       "compression_warning",
			Message:    fmt.Sprintf("Excessive compression: %.2f", ratio),
			Suggestion: "Consider increasing context length limit",
		})
	}

	return MonitorReport{
		Metrics:         metrics,
		Alerts:          alerts,
		Trend:           trend,
		Recommendations: recommendations(metrics),
	}
}

// trendLocked compares the last five measurements against the five before
// them. Caller holds qm.mu.
func (qm *QualityMonitor) trendLocked() string {
	if len(qm.history) < 3 {
		return "insufficient_data"
	}

	recent := qm.history
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	olderStart := len(qm.history) - 10
	if olderStart < 0 {
		olderStart = 0
	}
	older := qm.history[olderStart : len(qm.history)-len(recent)]
	if len(older) == 0 {
		return "insufficient_data"
	}

	recentAvg := 0.0
	for _, s := range recent {
		recentAvg += s.metrics.Overall
	}
	recentAvg /= float64(len(recent))

	olderAvg := 0.0
	for _, s := range older {
		olderAvg += s.metrics.Overall
	}
	olderAvg /= float64(len(older))

	switch {
	case recentAvg > olderAvg+0.05:
		return "improving"
	case recentAvg < olderAvg-0.05:
		return "declining"
	default:
		return "stable"
	}
}

func recommendations(metrics QualityMetrics) []string {
	var recs []string
	if metrics.Completeness < 0.7 {
		recs = append(recs, "Increase importance weights for essential content types")
	}
	if metrics.Coherence < 0.7 {
		recs = append(recs, "Improve segment ordering or add transition text")
	}
	if metrics.CompressionEfficiency < 0.5 {
		recs = append(recs, "Review compression strategy - may be too aggressive")
	}
	if metrics.ExecutionTimeMs > 1000 {
		recs = append(recs, "Optimize processing speed - taking too long")
	}
	if len(recs) == 0 {
		recs = append(recs, "Quality metrics look good - no immediate action needed")
	}
	return recs
}
