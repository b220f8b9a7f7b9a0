package main

import (
	"context"
	"errors"
	"testing"

	"handoff/internal/backend"
	ctxopt "handoff/internal/context"
)

type fakeService struct {
	current   string
	switched  []string
	feedback  []float64
	switchErr error
}

func (f *fakeService) SwitchBackend(target string) (ctxopt.SwitchResult, error) {
	if f.switchErr != nil {
		return ctxopt.SwitchResult{}, f.switchErr
	}
	f.switched = append(f.switched, target)
	prev := f.current
	f.current = target
	return ctxopt.SwitchResult{SourceBackend: prev, TargetBackend: target}, nil
}

func (f *fakeService) CurrentBackend() string { return f.current }
func (f *fakeService) Backends() []string     { return []string{"claude", "gemini", "local"} }

func (f *fakeService) HealthCheck(ctx context.Context) map[string]backend.Health {
	return map[string]backend.Health{"local": {Available: true, Model: "fake"}}
}

func (f *fakeService) Stats() (ctxopt.ConversationStats, error) {
	return ctxopt.ConversationStats{MessageCount: 2, CurrentBackend: f.current}, nil
}

func (f *fakeService) RecordFeedback(rating float64) error {
	f.feedback = append(f.feedback, rating)
	return nil
}

func TestHandleCommand_Quit(t *testing.T) {
	svc := &fakeService{current: "local"}
	for _, cmd := range []string{"/quit", "/exit"} {
		if !handleCommand(context.Background(), svc, cmd) {
			t.Errorf("%s should exit the loop", cmd)
		}
	}
	if handleCommand(context.Background(), svc, "/help") {
		t.Error("/help should not exit the loop")
	}
}

func TestHandleCommand_Switch(t *testing.T) {
	svc := &fakeService{current: "local"}

	handleCommand(context.Background(), svc, "/switch claude")
	if len(svc.switched) != 1 || svc.switched[0] != "claude" {
		t.Errorf("switched = %v", svc.switched)
	}

	// Missing argument does not reach the service.
	handleCommand(context.Background(), svc, "/switch")
	if len(svc.switched) != 1 {
		t.Errorf("bare /switch called the service: %v", svc.switched)
	}
}

func TestHandleCommand_SwitchError(t *testing.T) {
	svc := &fakeService{current: "local", switchErr: errors.New("unknown backend")}

	if handleCommand(context.Background(), svc, "/switch gpt") {
		t.Error("failed switch should keep the loop running")
	}
	if svc.current != "local" {
		t.Errorf("current = %q after failed switch", svc.current)
	}
}

func TestHandleCommand_Feedback(t *testing.T) {
	svc := &fakeService{current: "local"}

	handleCommand(context.Background(), svc, "/feedback 4")
	if len(svc.feedback) != 1 || svc.feedback[0] != 4 {
		t.Errorf("feedback = %v", svc.feedback)
	}

	for _, bad := range []string{"/feedback", "/feedback 0", "/feedback 6", "/feedback abc"} {
		handleCommand(context.Background(), svc, bad)
	}
	if len(svc.feedback) != 1 {
		t.Errorf("invalid ratings were recorded: %v", svc.feedback)
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	svc := &fakeService{current: "local"}
	if handleCommand(context.Background(), svc, "/frobnicate") {
		t.Error("unknown command should not exit the loop")
	}
}
