package shell

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunner_Success(t *testing.T) {
	r := NewRunner(t.TempDir(), 0)

	res, err := r.Run(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(res.Output) != "hello" {
		t.Errorf("output = %q", res.Output)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
}

func TestRunner_NonZeroExit(t *testing.T) {
	r := NewRunner(t.TempDir(), 0)

	res, err := r.Run(context.Background(), "exit 3")
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
}

func TestRunner_CombinedOutput(t *testing.T) {
	r := NewRunner(t.TempDir(), 0)

	res, err := r.Run(context.Background(), "echo out; echo err 1>&2")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Errorf("stderr not merged into output: %q", res.Output)
	}
}

func TestRunner_EmptyCommand(t *testing.T) {
	r := NewRunner(t.TempDir(), 0)

	if _, err := r.Run(context.Background(), "   "); err == nil {
		t.Error("blank command should fail")
	}
}

func TestRunner_Timeout(t *testing.T) {
	r := NewRunner(t.TempDir(), 100*time.Millisecond)

	start := time.Now()
	res, err := r.Run(context.Background(), "sleep 5")
	elapsed := time.Since(start)

	if elapsed > 3*time.Second {
		t.Fatalf("timeout not enforced, took %v", elapsed)
	}
	// A killed command surfaces as a non-zero exit, not a run failure.
	if err == nil && res.ExitCode == 0 {
		t.Error("timed-out command should not report success")
	}
}

func TestRunner_WorkDir(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(dir, 0)

	res, err := r.Run(context.Background(), "pwd")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(res.Output, dir) {
		t.Errorf("pwd = %q, want under %q", res.Output, dir)
	}
}
