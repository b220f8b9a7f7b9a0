package context

import "strings"

// Keyword sets used by the classifier. Order of checks is load-bearing: a line
// containing both a strategic and a debug keyword is strategic, never debug.
var (
	strategicKeywords = []string{
		"architecture", "design", "approach", "strategy", "plan", "goal", "overview",
	}
	debugKeywords = []string{
		"error", "bug", "fix", "debug", "issue", "problem", "traceback", "exception",
	}
	implementationKeywords = []string{
		"function", "class", "method", "implement", "code", "variable", "import", "def",
	}
)

// Classifier labels conversation text with a semantic category using
// case-insensitive keyword matching. It is stateless and safe for concurrent
// use.
type Classifier struct{}

// NewClassifier returns a keyword classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the category of a single line of text. Callers must skip
// empty or whitespace-only input upstream; Classify does not special-case it.
func (c *Classifier) Classify(text string) Category {
	lower := strings.ToLower(text)

	for _, kw := range strategicKeywords {
		if strings.Contains(lower, kw) {
			return CategoryStrategic
		}
	}
	for _, kw := range debugKeywords {
		if strings.Contains(lower, kw) {
			return CategoryDebug
		}
	}
	for _, kw := range implementationKeywords {
		if strings.Contains(lower, kw) {
			return CategoryImplementation
		}
	}
	return CategoryChat
}
