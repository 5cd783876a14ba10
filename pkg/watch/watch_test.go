package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchDetectsFileChange(t *testing.T) {
	root := t.TempDir()
	filePath := filepath.Join(root, "file.txt")
	if err := os.WriteFile(filePath, []byte("one"), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := Watch(ctx, root, 10*time.Millisecond)
	defer session.Stop()

	select {
	case <-session.Events():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial notification")
	}

	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(filePath, []byte("two, a longer body"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	select {
	case <-session.Events():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestWatchStopClosesEvents(t *testing.T) {
	root := t.TempDir()

	ctx := context.Background()
	session := Watch(ctx, root, 5*time.Millisecond)
	session.Stop()

	select {
	case _, ok := <-session.Events():
		if ok {
			// A pending notification may still be buffered; drain until closed.
			for ok {
				_, ok = <-session.Events()
			}
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for events channel to close")
	}
}

func TestPollDetectsMissingRootAsEmpty(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	contents, changed, err := poll(missing, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("expected no change against an empty existing map, got changed=true")
	}
	if len(contents) != 0 {
		t.Fatalf("expected empty content map, got %d entries", len(contents))
	}
}
