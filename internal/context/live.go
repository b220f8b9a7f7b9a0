package context

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"handoff/internal/logging"
)

// ErrSessionNotFound is returned when an operation names a session that was
// never started. This is a programmer error category, not a recoverable
// runtime condition.
var ErrSessionNotFound = errors.New("session not found")

// Live manager defaults. The read-time limit is deliberately lower than the
// write-time threshold: a read can trigger compression even if a write did
// not.
const (
	DefaultMaxContextLength      = 4000
	DefaultOptimizationThreshold = 6000
)

// SwitchResult describes a completed backend switch.
type SwitchResult struct {
	Optimized     OptimizedContext
	SourceBackend string
	TargetBackend string
}

// LiveManager owns per-session conversational state and triggers optimization
// when a session outgrows its budget or switches backends. Each session is
// single-writer; the session map itself tolerates concurrent callers.
type LiveManager struct {
	mu                    sync.Mutex
	optimizer             *Optimizer
	maxContextLength      int
	optimizationThreshold int
	conversations         map[string]*ConversationState
}

// NewLiveManager creates a manager around the given optimizer. Zero or
// negative limits get the defaults.
func NewLiveManager(optimizer *Optimizer, maxContextLength, optimizationThreshold int) *LiveManager {
	if optimizer == nil {
		optimizer = NewOptimizer(nil)
	}
	if maxContextLength <= 0 {
		maxContextLength = DefaultMaxContextLength
	}
	if optimizationThreshold <= 0 {
		optimizationThreshold = DefaultOptimizationThreshold
	}
	return &LiveManager{
		optimizer:             optimizer,
		maxContextLength:      maxContextLength,
		optimizationThreshold: optimizationThreshold,
		conversations:         make(map[string]*ConversationState),
	}
}

// Start initializes an empty conversation for the session.
func (lm *LiveManager) Start(sessionID, initialBackend string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.conversations[sessionID] = &ConversationState{CurrentBackend: initialBackend}
	logging.Session("Started conversation %s on %s", sessionID, initialBackend)
}

// AddMessage appends a message to the session buffer and updates the running
// token estimate. Unknown sessions are auto-started for convenience using the
// supplied backend (or DefaultBackend). Crossing the optimization threshold
// triggers an in-place same-backend compression.
func (lm *LiveManager) AddMessage(sessionID, content, role, backend string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	state, ok := lm.conversations[sessionID]
	if !ok {
		b := backend
		if b == "" {
			b = DefaultBackend
		}
		state = &ConversationState{CurrentBackend: b}
		lm.conversations[sessionID] = state
	}

	msgBackend := backend
	if msgBackend == "" {
		msgBackend = state.CurrentBackend
	}

	state.Messages = append(state.Messages, Message{
		Content:   content,
		Backend:   msgBackend,
		Role:      role,
		Timestamp: time.Now(),
	})
	state.ContextBuffer += fmt.Sprintf("\n%s: %s", role, content)
	state.TotalTokenEstimate += len(content) / 4

	if state.TotalTokenEstimate > lm.optimizationThreshold {
		lm.autoOptimizeLocked(sessionID, state)
	}
}

// SwitchBackend re-optimizes the session buffer for the new backend and swaps
// buffer and backend atomically. A synthetic system message reporting the
// compression is appended afterwards.
func (lm *LiveManager) SwitchBackend(sessionID, newBackend string) (SwitchResult, error) {
	lm.mu.Lock()

	state, ok := lm.conversations[sessionID]
	if !ok {
		lm.mu.Unlock()
		return SwitchResult{}, fmt.Errorf("switch backend %q: %w", sessionID, ErrSessionNotFound)
	}

	oldBackend := state.CurrentBackend
	optimized := lm.optimizer.OptimizeHandoff(state.ContextBuffer, oldBackend, newBackend, lm.maxContextLength)

	// Compute-then-swap: the buffer is never left partially overwritten.
	state.CurrentBackend = newBackend
	state.ContextBuffer = optimized.Content
	state.TotalTokenEstimate = optimized.OptimizedLength / 4
	state.LastOptimized = time.Now()
	lm.mu.Unlock()

	lm.AddMessage(sessionID,
		fmt.Sprintf("Context optimized for %s. Compression: %.2f, Estimated time savings: %.1fs",
			newBackend, optimized.CompressionRatio, optimized.EstimatedTimeSavings),
		"system", newBackend)

	logging.Session("Switched %s: %s -> %s (ratio %.2f)", sessionID, oldBackend, newBackend, optimized.CompressionRatio)

	return SwitchResult{
		Optimized:     optimized,
		SourceBackend: oldBackend,
		TargetBackend: newBackend,
	}, nil
}

// GetContext returns the current buffer, compressing first if the session has
// outgrown the read-time limit. Unknown sessions yield an empty string.
func (lm *LiveManager) GetContext(sessionID string) string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	state, ok := lm.conversations[sessionID]
	if !ok {
		return ""
	}

	if state.TotalTokenEstimate > lm.maxContextLength {
		lm.autoOptimizeLocked(sessionID, state)
	}

	return state.ContextBuffer
}

// autoOptimizeLocked compresses the buffer for the current backend without
// switching. Caller holds lm.mu.
func (lm *LiveManager) autoOptimizeLocked(sessionID string, state *ConversationState) {
	if state.CurrentBackend == "" {
		return
	}

	optimized := lm.optimizer.OptimizeHandoff(state.ContextBuffer, state.CurrentBackend, state.CurrentBackend, lm.maxContextLength)

	state.ContextBuffer = optimized.Content
	state.TotalTokenEstimate = optimized.OptimizedLength / 4
	state.LastOptimized = time.Now()

	logging.ContextDebug("Auto-optimized %s: %d -> %d chars", sessionID, optimized.OriginalLength, optimized.OptimizedLength)
}

// Stats returns a snapshot of the session, or an error for unknown sessions.
func (lm *LiveManager) Stats(sessionID string) (ConversationStats, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	state, ok := lm.conversations[sessionID]
	if !ok {
		return ConversationStats{}, fmt.Errorf("stats %q: %w", sessionID, ErrSessionNotFound)
	}

	seen := make(map[string]bool)
	var backends []string
	for _, msg := range state.Messages {
		if msg.Backend != "" && !seen[msg.Backend] {
			seen[msg.Backend] = true
			backends = append(backends, msg.Backend)
		}
	}

	return ConversationStats{
		MessageCount:    len(state.Messages),
		CurrentBackend:  state.CurrentBackend,
		EstimatedTokens: state.TotalTokenEstimate,
		ContextLength:   len(state.ContextBuffer),
		LastOptimized:   state.LastOptimized,
		BackendsUsed:    backends,
	}, nil
}

// CurrentBackend returns the active backend for the session, or the empty
// string for unknown sessions.
func (lm *LiveManager) CurrentBackend(sessionID string) string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if state, ok := lm.conversations[sessionID]; ok {
		return state.CurrentBackend
	}
	return ""
}

// Restore seeds a session with a previously persisted buffer and backend.
func (lm *LiveManager) Restore(sessionID, buffer, backend string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.conversations[sessionID] = &ConversationState{
		CurrentBackend:     backend,
		ContextBuffer:      buffer,
		TotalTokenEstimate: len(buffer) / 4,
	}
}

// Cleanup discards the in-memory state for a session.
func (lm *LiveManager) Cleanup(sessionID string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	delete(lm.conversations, sessionID)
}
