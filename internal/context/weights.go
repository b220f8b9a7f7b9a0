package context

// WeightingStrategy maps a target backend to per-category importance weights.
// Implementations must return a complete mapping for all four categories and
// must not fail on unknown backend names.
type WeightingStrategy interface {
	WeightsFor(targetBackend string) map[Category]float64
}

// baseWeights is the fixed importance hierarchy applied before any
// backend-specific adjustment.
func baseWeights() map[Category]float64 {
	return map[Category]float64{
		CategoryStrategic:      1.0,
		CategoryImplementation: 0.8,
		CategoryDebug:          0.6,
		CategoryChat:           0.3,
	}
}

// StaticWeights is the hardcoded weighting strategy. Backend adjustments:
// local models get more structured context, claude handles strategic context
// well, gemini favors implementation detail.
type StaticWeights struct{}

// NewStaticWeights returns the default strategy.
func NewStaticWeights() *StaticWeights {
	return &StaticWeights{}
}

// WeightsFor implements WeightingStrategy. Unknown backends receive the base
// hierarchy unchanged.
func (s *StaticWeights) WeightsFor(targetBackend string) map[Category]float64 {
	weights := baseWeights()

	switch targetBackend {
	case "local":
		weights[CategoryImplementation] = 0.9
		weights[CategoryDebug] = 0.7
	case "claude":
		weights[CategoryStrategic] = 1.0
		weights[CategoryChat] = 0.4
	case "gemini":
		weights[CategoryImplementation] = 0.9
		weights[CategoryDebug] = 0.8
	}

	return weights
}

// WeightSource supplies historically-derived weights for a backend. It is
// satisfied by the analytics analyzer; a nil result or missing category falls
// back to the static strategy.
type WeightSource interface {
	OptimalWeights(targetBackend string) map[string]float64
}

// LearnedWeights layers analytics-derived weights over the static strategy.
// Suggestions are advisory: the source is consulted on every call and never
// mutated from here.
type LearnedWeights struct {
	source   WeightSource
	fallback WeightingStrategy
}

// NewLearnedWeights returns a strategy backed by historical optimization data.
func NewLearnedWeights(source WeightSource) *LearnedWeights {
	return &LearnedWeights{
		source:   source,
		fallback: NewStaticWeights(),
	}
}

// WeightsFor implements WeightingStrategy. Categories the source has no data
// for keep their static values, so the mapping is always complete.
func (l *LearnedWeights) WeightsFor(targetBackend string) map[Category]float64 {
	weights := l.fallback.WeightsFor(targetBackend)

	if l.source == nil {
		return weights
	}
	learned := l.source.OptimalWeights(targetBackend)
	for name, w := range learned {
		cat := Category(name)
		if _, known := weights[cat]; known {
			weights[cat] = w
		}
	}

	return weights
}
