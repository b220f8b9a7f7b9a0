package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"handoff/internal/backend"
	"handoff/internal/config"
)

// mockClient is a scripted backend client.
type mockClient struct {
	reply   string
	err     error
	prompts []string
}

func (m *mockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func (m *mockClient) IsAvailable(ctx context.Context) bool { return true }

func (m *mockClient) HealthCheck(ctx context.Context) backend.Health {
	return backend.Health{Available: true, Model: "mock"}
}

func newTestService(t *testing.T) (*Service, *mockClient) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.AnalyticsDB = "analytics.db"

	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	mock := &mockClient{reply: "mock answer"}
	svc.registry.Register("local", mock)
	svc.registry.Register("claude", &mockClient{reply: "claude answer"})
	svc.registry.Register("gemini", &mockClient{reply: "gemini answer"})

	svc.Initialize("")
	return svc, mock
}

func TestService_InitializeGeneratesID(t *testing.T) {
	svc, _ := newTestService(t)

	if svc.SessionID() == "" {
		t.Fatal("Initialize should generate a session id")
	}
	if svc.CurrentBackend() != "local" {
		t.Errorf("default backend = %q", svc.CurrentBackend())
	}
}

func TestService_ProcessChat(t *testing.T) {
	svc, mock := newTestService(t)

	resp, err := svc.ProcessChat(context.Background(), "explain the design")
	if err != nil {
		t.Fatalf("ProcessChat failed: %v", err)
	}
	if resp.Text != "mock answer" || resp.Backend != "local" {
		t.Errorf("resp = %+v", resp)
	}
	if len(mock.prompts) != 1 {
		t.Fatalf("backend called %d times", len(mock.prompts))
	}

	// Second turn carries the conversation buffer.
	if _, err := svc.ProcessChat(context.Background(), "continue"); err != nil {
		t.Fatal(err)
	}
	second := mock.prompts[1]
	if !strings.Contains(second, "explain the design") || !strings.Contains(second, "mock answer") {
		t.Errorf("second prompt missing history: %q", second)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.MessageCount != 4 {
		t.Errorf("message count = %d, want 4 (2 user + 2 assistant)", stats.MessageCount)
	}
}

func TestService_ProcessChatEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.ProcessChat(context.Background(), "   "); err == nil {
		t.Error("blank input should fail")
	}
}

func TestService_ShellPassthrough(t *testing.T) {
	svc, mock := newTestService(t)

	resp, err := svc.ProcessChat(context.Background(), "> echo shell-ran")
	if err != nil {
		t.Fatalf("shell turn failed: %v", err)
	}
	if !resp.FromShell {
		t.Error("response should be marked FromShell")
	}
	if !strings.Contains(resp.Text, "shell-ran") {
		t.Errorf("shell output = %q", resp.Text)
	}
	if len(mock.prompts) != 0 {
		t.Error("shell turns must not reach the backend")
	}

	// The command output lands in the conversation buffer for later turns.
	if _, err := svc.ProcessChat(context.Background(), "what did that print?"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(mock.prompts[0], "shell-ran") {
		t.Errorf("shell output missing from prompt: %q", mock.prompts[0])
	}
}

func TestService_FileMention(t *testing.T) {
	svc, mock := newTestService(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "snippet.txt")
	if err := os.WriteFile(path, []byte("file contents here"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := svc.ProcessChat(context.Background(), "summarize @"+path)
	if err != nil {
		t.Fatalf("mention turn failed: %v", err)
	}
	if !strings.Contains(mock.prompts[0], "file contents here") {
		t.Errorf("file contents not inlined: %q", mock.prompts[0])
	}

	if _, err := svc.ProcessChat(context.Background(), "read @/does/not/exist"); err == nil {
		t.Error("unresolvable mention should fail")
	}
}

func TestService_SwitchBackend(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.ProcessChat(context.Background(), "the plan is to refactor"); err != nil {
		t.Fatal(err)
	}

	result, err := svc.SwitchBackend("claude")
	if err != nil {
		t.Fatalf("SwitchBackend failed: %v", err)
	}
	if result.SourceBackend != "local" || result.TargetBackend != "claude" {
		t.Errorf("transition = %s -> %s", result.SourceBackend, result.TargetBackend)
	}
	if svc.CurrentBackend() != "claude" {
		t.Errorf("active backend = %q", svc.CurrentBackend())
	}

	resp, err := svc.ProcessChat(context.Background(), "go on")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Backend != "claude" || resp.Text != "claude answer" {
		t.Errorf("post-switch response = %+v", resp)
	}

	// The switch is recorded for analytics.
	events, err := svc.events.GetEvents(svc.SessionID(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(events))
	}
	if events[0].TargetBackend != "claude" {
		t.Errorf("event target = %q", events[0].TargetBackend)
	}

	if err := svc.RecordFeedback(5); err != nil {
		t.Fatalf("RecordFeedback failed: %v", err)
	}
}

func TestService_SwitchUnknownBackend(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.SwitchBackend("gpt"); err == nil {
		t.Error("unknown backend should fail")
	}
	if svc.CurrentBackend() != "local" {
		t.Errorf("failed switch changed backend to %q", svc.CurrentBackend())
	}
}

func TestService_SessionPersistsAcrossRestart(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()

	svc, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	svc.registry.Register("local", &mockClient{reply: "first run"})
	id := svc.Initialize("")

	if _, err := svc.ProcessChat(context.Background(), "remember the budget plan"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	svc2, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer svc2.Close()
	mock2 := &mockClient{reply: "second run"}
	svc2.registry.Register("local", mock2)
	svc2.Initialize(id)

	if _, err := svc2.ProcessChat(context.Background(), "what was the plan?"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(mock2.prompts[0], "remember the budget plan") {
		t.Errorf("restored session lost history: %q", mock2.prompts[0])
	}
}

func TestService_ProcessTask(t *testing.T) {
	svc, mock := newTestService(t)

	resp, err := svc.ProcessTask(context.Background(), "one-shot job")
	if err != nil {
		t.Fatalf("ProcessTask failed: %v", err)
	}
	if resp.Text != "mock answer" {
		t.Errorf("task response = %q", resp.Text)
	}
	if mock.prompts[0] != "one-shot job" {
		t.Errorf("task prompt = %q", mock.prompts[0])
	}

	// Tasks stay out of the conversation buffer.
	stats, err := svc.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.MessageCount != 0 {
		t.Errorf("task polluted conversation: %d messages", stats.MessageCount)
	}
}

func TestService_GenerateFailure(t *testing.T) {
	svc, mock := newTestService(t)
	mock.err = errors.New("backend down")

	if _, err := svc.ProcessChat(context.Background(), "hello"); err == nil {
		t.Error("backend failure should surface")
	}
}

func TestService_HealthCheck(t *testing.T) {
	svc, _ := newTestService(t)

	health := svc.HealthCheck(context.Background())
	if len(health) != 3 {
		t.Fatalf("got %d backends, want 3", len(health))
	}
	for name, h := range health {
		if !h.Available {
			t.Errorf("%s should be available", name)
		}
	}
}
