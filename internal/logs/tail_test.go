package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"uploader/internal/logs"
)

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("offset = %d, want 6", offset)
	}

	lines, _, err = logs.Last(path, 10)
	if err != nil || len(lines) != 3 {
		t.Fatalf("Last(10) = %#v, %v", lines, err)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.txt"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("Last on missing file = %#v, %d, %v", lines, offset, err)
	}
}

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) add(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func waitFor(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func appendTo(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString(text); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()
}

func TestFollowEmitsAppendedLinesAndHandlesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	appendTo(t, path, "old\n")
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	got := &collector{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := logs.Follow(ctx, path, offset, 10*time.Millisecond, got.add); err != nil {
			t.Errorf("Follow: %v", err)
		}
	}()

	appendTo(t, path, "new one\npartial")
	waitFor(t, func() bool { return len(got.snapshot()) == 1 })
	appendTo(t, path, " line\n")
	waitFor(t, func() bool { return len(got.snapshot()) == 2 })

	if err := os.Truncate(path, 0); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	appendTo(t, path, "fresh\n")
	waitFor(t, func() bool { return len(got.snapshot()) == 3 })

	cancel()
	<-done

	lines := got.snapshot()
	want := []string{"new one", "partial line", "fresh"}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines = %#v, want %#v", lines, want)
		}
	}
}
