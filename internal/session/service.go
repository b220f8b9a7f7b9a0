// Package session wires the backends, context optimization, persistence and
// analytics into one conversational service.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"handoff/internal/analytics"
	"handoff/internal/backend"
	"handoff/internal/config"
	ctxopt "handoff/internal/context"
	"handoff/internal/files"
	"handoff/internal/logging"
	"handoff/internal/shell"
	"handoff/internal/store"
)

// Response is the outcome of one chat turn.
type Response struct {
	Text    string
	Backend string
	// FromShell is true when the turn ran a shell command instead of an LLM.
	FromShell bool
}

// Service is the top-level conversational session. It owns one live session
// id, routes chat turns, and persists state across runs.
type Service struct {
	cfg       *config.Config
	sessionID string

	registry  *backend.Registry
	optimizer *ctxopt.Optimizer
	live      *ctxopt.LiveManager
	monitor   *ctxopt.QualityMonitor
	sessions  *store.SessionStore
	events    *store.EventStore
	analyzer  *analytics.Analyzer
	learner   *analytics.Learner
	fileIndex *files.Index
	runner    *shell.Runner
}

// New builds a fully wired service from configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sessions, err := store.NewSessionStore(cfg.SessionsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	events, err := store.NewEventStore(cfg.AnalyticsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics store: %w", err)
	}

	analyzer := analytics.NewAnalyzer(events)
	optimizer := ctxopt.NewOptimizer(ctxopt.NewLearnedWeights(analyzer))
	live := ctxopt.NewLiveManager(optimizer, cfg.Context.MaxContextLength, cfg.Context.OptimizeThreshold)
	monitor := ctxopt.NewQualityMonitor(ctxopt.NewQualityMeasurer())

	registry := backend.NewRegistry(cfg.Backends.Default)
	registry.Register("local", backend.NewOllamaClient(backend.OllamaConfig{
		BaseURL: cfg.Backends.Ollama.BaseURL,
		Model:   cfg.Backends.Ollama.Model,
		Timeout: parseTimeout(cfg.Backends.Ollama.Timeout),
	}))
	registry.Register("claude", backend.NewClaudeClient(backend.ClaudeConfig{
		APIKey:  cfg.Backends.Claude.APIKey,
		BaseURL: cfg.Backends.Claude.BaseURL,
		Model:   cfg.Backends.Claude.Model,
		Timeout: parseTimeout(cfg.Backends.Claude.Timeout),
	}))
	registry.Register("gemini", backend.NewGeminiClient(backend.GeminiConfig{
		APIKey:  cfg.Backends.Gemini.APIKey,
		BaseURL: cfg.Backends.Gemini.BaseURL,
		Model:   cfg.Backends.Gemini.Model,
		Timeout: parseTimeout(cfg.Backends.Gemini.Timeout),
	}))

	fileIndex := files.NewIndex(".")
	if err := fileIndex.Start(); err != nil {
		logging.Get(logging.CategoryFiles).Warn("file index disabled: %v", err)
	}

	svc := &Service{
		cfg:       cfg,
		registry:  registry,
		optimizer: optimizer,
		live:      live,
		monitor:   monitor,
		sessions:  sessions,
		events:    events,
		analyzer:  analyzer,
		learner:   analytics.NewLearner(analyzer),
		fileIndex: fileIndex,
		runner:    shell.NewRunner(".", 0),
	}
	return svc, nil
}

// Initialize starts (or resumes) a session. When sessionID is empty a fresh
// id is generated; when a saved session exists its context is restored.
func (s *Service) Initialize(sessionID string) string {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s.sessionID = sessionID

	if buffer, backendName, ok := s.sessions.Restore(sessionID); ok {
		s.live.Restore(sessionID, buffer, backendName)
		if err := s.registry.Switch(backendName); err != nil {
			logging.Session("restored session %s with unregistered backend %s", sessionID, backendName)
		}
		logging.Session("resumed session %s on %s", sessionID, backendName)
	} else {
		current, _ := s.registry.Current()
		s.live.Start(sessionID, current)
		logging.Session("started session %s on %s", sessionID, current)
	}
	return sessionID
}

// SessionID returns the active session id.
func (s *Service) SessionID() string {
	return s.sessionID
}

// ProcessChat handles one user turn. Lines starting with ">" run as shell
// commands, "@path" mentions inline file contents, everything else goes to
// the active backend with the optimized conversation context prepended.
func (s *Service) ProcessChat(ctx context.Context, input string) (Response, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Response{}, fmt.Errorf("empty input")
	}

	if strings.HasPrefix(input, ">") {
		return s.runShell(ctx, strings.TrimPrefix(input, ">"))
	}

	prompt, err := s.expandMentions(input)
	if err != nil {
		return Response{}, err
	}

	backendName, client := s.registry.Current()
	if client == nil {
		return Response{}, fmt.Errorf("no client registered for backend %s", backendName)
	}

	s.live.AddMessage(s.sessionID, input, "user", backendName)

	full := prompt
	if buffer := s.live.GetContext(s.sessionID); buffer != "" {
		full = fmt.Sprintf("Conversation so far:\n%s\n\nUser: %s", buffer, prompt)
	}

	timer := logging.StartTimer(logging.CategoryAPI, "generate")
	text, err := client.Generate(ctx, full)
	timer.Stop()
	if err != nil {
		return Response{}, fmt.Errorf("%s generation failed: %w", backendName, err)
	}

	s.live.AddMessage(s.sessionID, text, "assistant", backendName)
	s.persist(backendName)

	return Response{Text: text, Backend: backendName}, nil
}

// ProcessTask runs a single self-contained task prompt against the active
// backend without polluting the conversation buffer.
func (s *Service) ProcessTask(ctx context.Context, task string) (Response, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return Response{}, fmt.Errorf("empty task")
	}

	prompt, err := s.expandMentions(task)
	if err != nil {
		return Response{}, err
	}

	backendName, client := s.registry.Current()
	if client == nil {
		return Response{}, fmt.Errorf("no client registered for backend %s", backendName)
	}

	text, err := client.Generate(ctx, prompt)
	if err != nil {
		return Response{}, fmt.Errorf("%s generation failed: %w", backendName, err)
	}
	return Response{Text: text, Backend: backendName}, nil
}

// SwitchBackend optimizes the live context for the target backend, makes it
// the active client, and records the handoff for analytics. Analytics write
// failures are logged, never surfaced.
func (s *Service) SwitchBackend(target string) (ctxopt.SwitchResult, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if err := s.registry.Switch(target); err != nil {
		return ctxopt.SwitchResult{}, err
	}

	result, err := s.live.SwitchBackend(s.sessionID, target)
	if err != nil {
		return ctxopt.SwitchResult{}, err
	}

	s.persist(target)
	s.recordSwitch(result)
	return result, nil
}

// recordSwitch appends the handoff event to the analytics store.
func (s *Service) recordSwitch(result ctxopt.SwitchResult) {
	segments := s.optimizer.ApplyWeights(
		s.optimizer.Segment(result.Optimized.Content), result.TargetBackend)

	records := make([]store.SegmentRecord, len(segments))
	for i, seg := range segments {
		records[i] = store.SegmentRecord{
			Content:         seg.Content,
			SegmentType:     string(seg.Category),
			ImportanceScore: seg.Importance,
		}
	}

	ev := store.ContextEvent{
		SessionID:        s.sessionID,
		Timestamp:        time.Now(),
		SourceBackend:    result.SourceBackend,
		TargetBackend:    result.TargetBackend,
		OriginalLength:   result.Optimized.OriginalLength,
		OptimizedLength:  result.Optimized.OptimizedLength,
		CompressionRatio: result.Optimized.CompressionRatio,
		QualityScore:     result.Optimized.QualityScore,
		Segments:         records,
	}
	if err := s.events.StoreEvent(ev); err != nil {
		logging.Get(logging.CategoryAnalytics).Warn("failed to record switch event: %v", err)
	}
}

// RecordFeedback attaches a 1-5 user rating to the latest handoff.
func (s *Service) RecordFeedback(rating float64) error {
	return s.events.RecordFeedback(s.sessionID, rating)
}

// Stats returns live conversation statistics for the active session.
func (s *Service) Stats() (ctxopt.ConversationStats, error) {
	return s.live.Stats(s.sessionID)
}

// CurrentBackend returns the name of the active backend.
func (s *Service) CurrentBackend() string {
	name, _ := s.registry.Current()
	return name
}

// Backends returns the registered backend names.
func (s *Service) Backends() []string {
	return s.registry.Names()
}

// HealthCheck probes every registered backend.
func (s *Service) HealthCheck(ctx context.Context) map[string]backend.Health {
	out := make(map[string]backend.Health)
	for _, name := range s.registry.Names() {
		client, _ := s.registry.Get(name)
		out[name] = client.HealthCheck(ctx)
	}
	return out
}

// Sessions exposes the persistent session store for the CLI.
func (s *Service) Sessions() *store.SessionStore {
	return s.sessions
}

// Analyzer exposes the analytics aggregator for the CLI.
func (s *Service) Analyzer() *analytics.Analyzer {
	return s.analyzer
}

// Learner exposes the improvement planner for the CLI.
func (s *Service) Learner() *analytics.Learner {
	return s.learner
}

// MonitorReport measures the last optimization result through the quality
// monitor. Used by the insights command.
func (s *Service) MonitorReport(original, optimized, targetBackend string) ctxopt.MonitorReport {
	segments := s.optimizer.ApplyWeights(s.optimizer.Segment(original), targetBackend)
	return s.monitor.Observe(original, optimized, segments, targetBackend, 0)
}

// Close persists the active session and releases resources.
func (s *Service) Close() error {
	if s.sessionID != "" {
		s.persist(s.live.CurrentBackend(s.sessionID))
		s.live.Cleanup(s.sessionID)
	}
	if err := s.fileIndex.Close(); err != nil {
		logging.Get(logging.CategoryFiles).Warn("file index close: %v", err)
	}
	return s.events.Close()
}

// persist writes the live buffer through to the session store.
func (s *Service) persist(backendName string) {
	buffer := s.live.GetContext(s.sessionID)
	if err := s.sessions.Save(s.sessionID, buffer, backendName); err != nil {
		logging.Get(logging.CategorySession).Warn("failed to persist session: %v", err)
	}
}

// runShell executes a "> command" turn.
func (s *Service) runShell(ctx context.Context, command string) (Response, error) {
	res, err := s.runner.Run(ctx, command)
	if err != nil {
		return Response{}, err
	}

	backendName, _ := s.registry.Current()
	s.live.AddMessage(s.sessionID, fmt.Sprintf("$ %s\n%s", res.Command, res.Output), "system", backendName)

	text := res.Output
	if res.ExitCode != 0 {
		text = fmt.Sprintf("%s\n(exit %d)", res.Output, res.ExitCode)
	}
	return Response{Text: text, Backend: backendName, FromShell: true}, nil
}

// expandMentions replaces "@path" tokens with file contents.
func (s *Service) expandMentions(input string) (string, error) {
	if !strings.Contains(input, "@") {
		return input, nil
	}

	var sb strings.Builder
	sb.WriteString(input)

	for _, field := range strings.Fields(input) {
		if !strings.HasPrefix(field, "@") || len(field) < 2 {
			continue
		}
		mention := strings.TrimPrefix(field, "@")
		content, err := s.fileIndex.Read(mention)
		if err != nil {
			return "", fmt.Errorf("cannot resolve @%s: %w", mention, err)
		}
		sb.WriteString(fmt.Sprintf("\n\n--- %s ---\n%s", mention, content))
	}
	return sb.String(), nil
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}
