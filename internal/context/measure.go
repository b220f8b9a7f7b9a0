package context

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// =============================================================================
// Quality Measurement
// =============================================================================
// Multi-factor scoring of an optimization result, independent of the
// optimizer's own substring-containment heuristic. The two scores are not
// reconciled on purpose; see DESIGN.md.

// Weights of the sub-scores in the overall quality score.
const (
	coherenceWeight      = 0.2
	completenessWeight   = 0.3
	relevanceWeight      = 0.2
	efficiencyWeight     = 0.15
	preservationWeight   = 0.15
	qualityCacheCapacity = 100
)

var (
	wordRe     = regexp.MustCompile(`\w+`)
	conceptRe  = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)
	quotedRe   = regexp.MustCompile(`"([^"]+)"`)
	backtickRe = regexp.MustCompile("`([^`]+)`")

	numberedListRe = regexp.MustCompile(`\d+\.`)
	bulletListRe   = regexp.MustCompile(`[-*]\s`)

	relationshipRes = []*regexp.Regexp{
		regexp.MustCompile(`(\w+)\s+is\s+(\w+)`),
		regexp.MustCompile(`(\w+)\s+has\s+(\w+)`),
		regexp.MustCompile(`(\w+)\s+uses\s+(\w+)`),
		regexp.MustCompile(`(\w+)\s+calls\s+(\w+)`),
		regexp.MustCompile(`(\w+)\s+extends\s+(\w+)`),
		regexp.MustCompile(`(\w+)\s+implements\s+(\w+)`),
	}

	// Discourse connectives whose survival indicates the compressed text
	// still reads as connected prose.
	connectives = []string{
		"because", "therefore", "however", "also", "additionally", "furthermore",
	}

	stopWords = map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "by": true, "is": true, "are": true, "was": true,
		"were": true, "be": true, "been": true, "have": true, "has": true,
		"had": true, "do": true, "does": true, "did": true, "will": true,
		"would": true, "could": true, "should": true, "may": true,
		"might": true, "can": true, "this": true, "that": true,
		"these": true, "those": true,
	}

	// Per-backend keyword preferences for the relevance score.
	backendPreferences = map[string]struct {
		prefers  []string
		dislikes []string
	}{
		"claude": {
			prefers:  []string{"strategy", "architecture", "analysis", "reasoning"},
			dislikes: []string{"verbose", "repetitive", "trivial"},
		},
		"gemini": {
			prefers:  []string{"implementation", "code", "specific", "actionable"},
			dislikes: []string{"abstract", "philosophical", "vague"},
		},
		"local": {
			prefers:  []string{"structured", "clear", "direct", "specific"},
			dislikes: []string{"ambiguous", "complex", "abstract"},
		},
	}
)

// QualityMeasurer scores optimization results. Safe for concurrent use: the
// result cache is mutex-guarded and concurrent measurements of the same
// content are deduplicated.
type QualityMeasurer struct {
	mu         sync.Mutex
	cache      map[string]QualityMetrics
	cacheOrder []string // insertion order; eviction is FIFO, not LRU
	group      singleflight.Group
}

// NewQualityMeasurer creates a measurer with an empty cache.
func NewQualityMeasurer() *QualityMeasurer {
	return &QualityMeasurer{
		cache: make(map[string]QualityMetrics),
	}
}

// Measure computes multi-factor quality metrics for one optimization.
// Results are memoized on a content-derived key; a cache hit replaces only
// the execution time.
func (m *QualityMeasurer) Measure(original, optimized string, segments []ContextSegment, targetBackend string, executionTimeMs float64) QualityMetrics {
	key := cacheKey(original, optimized, targetBackend)

	m.mu.Lock()
	if cached, ok := m.cache[key]; ok {
		m.mu.Unlock()
		cached.ExecutionTimeMs = executionTimeMs
		return cached
	}
	m.mu.Unlock()

	result, _, _ := m.group.Do(key, func() (interface{}, error) {
		coherence := measureCoherence(original, optimized)
		completeness := measureCompleteness(original, optimized, segments)
		relevance := measureRelevance(optimized, targetBackend)
		efficiency := measureCompressionEfficiency(original, optimized, segments)
		preservation := measureSemanticPreservation(original, optimized)

		metrics := QualityMetrics{
			Coherence:             coherence,
			Completeness:          completeness,
			Relevance:             relevance,
			CompressionEfficiency: efficiency,
			SemanticPreservation:  preservation,
			Overall: coherence*coherenceWeight +
				completeness*completenessWeight +
				relevance*relevanceWeight +
				efficiency*efficiencyWeight +
				preservation*preservationWeight,
		}

		m.store(key, metrics)
		return metrics, nil
	})

	metrics := result.(QualityMetrics)
	metrics.ExecutionTimeMs = executionTimeMs
	return metrics
}

// store inserts one cache entry and evicts the oldest insertion when the cap
// is exceeded.
func (m *QualityMeasurer) store(key string, metrics QualityMetrics) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.cache[key]; !exists {
		m.cacheOrder = append(m.cacheOrder, key)
	}
	m.cache[key] = metrics

	if len(m.cache) > qualityCacheCapacity {
		oldest := m.cacheOrder[0]
		m.cacheOrder = m.cacheOrder[1:]
		delete(m.cache, oldest)
	}
}

// CacheLen returns the current number of cached results.
func (m *QualityMeasurer) CacheLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}

// Cached reports whether a result for the given inputs is currently cached.
func (m *QualityMeasurer) Cached(original, optimized, targetBackend string) bool {
	key := cacheKey(original, optimized, targetBackend)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cache[key]
	return ok
}

func cacheKey(original, optimized, targetBackend string) string {
	content := head(original, 100) + head(optimized, 100) + targetBackend
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// =============================================================================
// Sub-scores
// =============================================================================

// measureCoherence penalizes abrupt topic jumps between adjacent output lines
// and rewards preservation of discourse connectives.
func measureCoherence(original, optimized string) float64 {
	var lines []string
	for _, line := range strings.Split(optimized, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) < 2 {
		return 1.0
	}

	score := 1.0

	transitions := 0
	for i := 1; i < len(lines); i++ {
		prevWords := wordSet(strings.ToLower(lines[i-1]))
		currWords := wordSet(strings.ToLower(lines[i]))
		if len(prevWords) == 0 || len(currWords) == 0 {
			continue
		}
		inter := intersectionSize(prevWords, currWords)
		union := len(prevWords) + len(currWords) - inter
		if float64(inter)/float64(union) < 0.1 {
			transitions++
		}
	}
	if float64(transitions) > float64(len(lines))*0.3 {
		score *= 0.7
	}

	originalLower := strings.ToLower(original)
	optimizedLower := strings.ToLower(optimized)
	originalConn := 0
	optimizedConn := 0
	for _, conn := range connectives {
		if strings.Contains(originalLower, conn) {
			originalConn++
		}
		if strings.Contains(optimizedLower, conn) {
			optimizedConn++
		}
	}
	if originalConn > 0 {
		ratio := float64(optimizedConn) / float64(originalConn)
		score *= minFloat(1.0, ratio+0.5)
	}

	return clamp01(score)
}

// measureCompleteness is the importance-weighted word overlap between each
// segment and the optimized output.
func measureCompleteness(original, optimized string, segments []ContextSegment) float64 {
	if len(segments) == 0 {
		if original == "" {
			return 1.0
		}
		return clamp01(float64(len(optimized)) / float64(len(original)))
	}

	optimizedWords := wordSet(strings.ToLower(optimized))

	totalImportance := 0.0
	preservedImportance := 0.0
	for _, seg := range segments {
		totalImportance += seg.Importance
		segWords := wordSet(strings.ToLower(seg.Content))
		if len(segWords) == 0 {
			continue
		}
		overlap := float64(intersectionSize(segWords, optimizedWords)) / float64(len(segWords))
		preservedImportance += seg.Importance * overlap
	}

	if totalImportance == 0 {
		return 1.0
	}
	return clamp01(preservedImportance / totalImportance)
}

// measureRelevance scores backend keyword fit. Unknown backends get a neutral
// 0.8; local gets a structural bonus for numbered or bulleted lists.
func measureRelevance(optimized, targetBackend string) float64 {
	prefs, ok := backendPreferences[targetBackend]
	if !ok {
		return 0.8
	}

	lower := strings.ToLower(optimized)
	score := 0.7

	for _, preferred := range prefs.prefers {
		if strings.Contains(lower, preferred) {
			score += 0.05
		}
	}
	for _, disliked := range prefs.dislikes {
		if strings.Contains(lower, disliked) {
			score -= 0.05
		}
	}

	if targetBackend == "local" {
		if numberedListRe.MatchString(optimized) || bulletListRe.MatchString(optimized) {
			score += 0.1
		}
	}

	return clamp01(score)
}

// measureCompressionEfficiency rewards keeping high-importance segments
// verbatim while compressing aggressively.
func measureCompressionEfficiency(original, optimized string, segments []ContextSegment) float64 {
	if len(original) == 0 {
		return 1.0
	}
	ratio := float64(len(optimized)) / float64(len(original))

	var important []ContextSegment
	for _, seg := range segments {
		if seg.Importance > 0.7 {
			important = append(important, seg)
		}
	}
	if len(important) == 0 {
		return clamp01(ratio)
	}

	preserved := 0
	for _, seg := range important {
		if strings.Contains(optimized, seg.Content) {
			preserved++
		}
	}
	preservation := float64(preserved) / float64(len(important))

	return clamp01(preservation / (ratio + 0.1))
}

// measureSemanticPreservation combines key-concept set overlap with a simple
// subject-verb-object relationship overlap.
func measureSemanticPreservation(original, optimized string) float64 {
	originalConcepts := extractConcepts(original)
	if len(originalConcepts) == 0 {
		return 1.0
	}
	optimizedConcepts := extractConcepts(optimized)
	conceptPreservation := float64(intersectionSize(originalConcepts, optimizedConcepts)) / float64(len(originalConcepts))

	relationshipPreservation := 1.0
	originalRels := extractRelationships(original)
	if len(originalRels) > 0 {
		optimizedRels := extractRelationships(optimized)
		relationshipPreservation = float64(intersectionSize(originalRels, optimizedRels)) / float64(len(originalRels))
	}

	return clamp01(0.7*conceptPreservation + 0.3*relationshipPreservation)
}

// extractConcepts returns meaningful terms: stop-word-filtered words of three
// or more letters, plus quoted and backticked spans.
func extractConcepts(text string) map[string]bool {
	concepts := make(map[string]bool)
	for _, word := range conceptRe.FindAllString(strings.ToLower(text), -1) {
		if !stopWords[word] {
			concepts[word] = true
		}
	}
	for _, match := range quotedRe.FindAllStringSubmatch(text, -1) {
		concepts[match[1]] = true
	}
	for _, match := range backtickRe.FindAllStringSubmatch(text, -1) {
		concepts[match[1]] = true
	}
	return concepts
}

// extractRelationships returns "subject-object" pairs for a small set of verb
// patterns.
func extractRelationships(text string) map[string]bool {
	relationships := make(map[string]bool)
	lower := strings.ToLower(text)
	for _, re := range relationshipRes {
		for _, match := range re.FindAllStringSubmatch(lower, -1) {
			relationships[match[1]+"-"+match[2]] = true
		}
	}
	return relationships
}

// =============================================================================
// Helpers
// =============================================================================

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordRe.FindAllString(s, -1) {
		set[w] = true
	}
	return set
}

func intersectionSize(a, b map[string]bool) int {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	n := 0
	for k := range small {
		if large[k] {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
