package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitialize_NoConfigIsQuiet(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if IsDebugMode() {
		t.Error("debug mode should be off without a config file")
	}

	// Logging calls are no-ops and never panic.
	Session("hello %s", "world")
	Get(CategoryStore).Error("also fine")

	if _, err := os.Stat(filepath.Join(ws, ".handoff", "logs")); !os.IsNotExist(err) {
		t.Error("no logs directory should be created in quiet mode")
	}
}

func TestInitialize_DebugModeWritesFiles(t *testing.T) {
	ws := t.TempDir()
	cfgDir := filepath.Join(ws, ".handoff")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	cfg := "logging:\n  debug_mode: true\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("debug mode should be on")
	}

	Context("optimization ran")
	ContextDebug("details: %d", 42)

	entries, err := os.ReadDir(filepath.Join(cfgDir, "logs"))
	if err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	if len(entries) == 0 {
		t.Error("expected at least one log file")
	}
}

func TestIsCategoryEnabled(t *testing.T) {
	ws := t.TempDir()
	cfgDir := filepath.Join(ws, ".handoff")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	cfg := "logging:\n  debug_mode: true\n  level: info\n  categories:\n    shell: false\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if IsCategoryEnabled(CategoryShell) {
		t.Error("shell category should be disabled by config")
	}
	if !IsCategoryEnabled(CategorySession) {
		t.Error("unlisted categories default to enabled")
	}
}
