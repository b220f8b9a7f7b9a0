package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestIndex_TouchAndRecent(t *testing.T) {
	idx := NewIndex(t.TempDir())

	idx.Touch("/a/alpha.go")
	time.Sleep(2 * time.Millisecond)
	idx.Touch("/b/beta.go")
	time.Sleep(2 * time.Millisecond)
	idx.Touch("/c/gamma.go")

	recent := idx.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("limit not applied: got %d entries", len(recent))
	}
	if recent[0].Path != "/c/gamma.go" || recent[1].Path != "/b/beta.go" {
		t.Errorf("order wrong: %s, %s", recent[0].Path, recent[1].Path)
	}
}

func TestIndex_Suggest(t *testing.T) {
	idx := NewIndex(t.TempDir())

	idx.Touch("/src/handler.go")
	idx.Touch("/src/handler_test.go")
	idx.Touch("/src/router.go")

	matches := idx.Suggest("handler")
	if len(matches) != 2 {
		t.Fatalf("Suggest = %v", matches)
	}
	if len(idx.Suggest("HANDLER")) != 2 {
		t.Error("Suggest should be case-insensitive")
	}
	if len(idx.Suggest("zzz")) != 0 {
		t.Error("no matches expected")
	}
}

func TestIndex_ReadResolvesRelative(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("remember this"), 0644); err != nil {
		t.Fatal(err)
	}

	idx := NewIndex(root)
	content, err := idx.Read("notes.txt")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if content != "remember this" {
		t.Errorf("content = %q", content)
	}

	// The read registers the file as recently seen.
	if len(idx.Recent(0)) != 1 {
		t.Error("Read should touch the file")
	}

	if _, err := idx.Read("missing.txt"); err == nil {
		t.Error("missing file should error")
	}
}

func TestIndex_WatcherPicksUpWrites(t *testing.T) {
	root := t.TempDir()
	idx := NewIndex(root)
	if err := idx.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer idx.Close()

	path := filepath.Join(root, "created.go")
	if err := os.WriteFile(path, []byte("package x"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(idx.Suggest("created")) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("watcher did not index the new file")
}

func TestIndex_CloseIdempotentWithoutStart(t *testing.T) {
	idx := NewIndex(t.TempDir())
	if err := idx.Close(); err != nil {
		t.Errorf("Close before Start should be a no-op: %v", err)
	}
}

func TestIndex_StartTwice(t *testing.T) {
	idx := NewIndex(t.TempDir())
	if err := idx.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := idx.Start(); err != nil {
		t.Errorf("second Start should be a no-op: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
