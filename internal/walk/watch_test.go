package safewalk

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatch(t *testing.T, root string, opts WatchOptions) (<-chan WatchResult, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan WatchResult, 64)

	go func() {
		_ = Watch(ctx, root, opts, func(_ context.Context, result WatchResult) error {
			select {
			case results <- result:
			default:
			}
			return nil
		})
	}()

	// Give the watcher time to register before mutating the tree.
	time.Sleep(100 * time.Millisecond)
	return results, cancel
}

func awaitEvent(results <-chan WatchResult, want WatchEvent, timeout time.Duration) (WatchMessage, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case r := <-results:
			if r.Error == nil && r.Message.Event == want {
				return r.Message, true
			}
		case <-deadline:
			return WatchMessage{}, false
		}
	}
}

func TestWatchReportsCreate(t *testing.T) {
	root := t.TempDir()
	results, cancel := startWatch(t, root, WatchOptions{Recursive: true})
	defer cancel()

	target := filepath.Join(root, "new.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg, ok := awaitEvent(results, EventCreate, 3*time.Second)
	if !ok {
		// Filesystem notification latency varies by platform.
		t.Logf("did not receive create event for %s", target)
		return
	}
	if msg.Path != target {
		t.Errorf("event path = %s, want %s", msg.Path, target)
	}
}

func TestWatchFlagsEscapingSymlink(t *testing.T) {
	outside := t.TempDir()
	root := t.TempDir()

	results, cancel := startWatch(t, root, WatchOptions{Recursive: true})
	defer cancel()

	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	msg, ok := awaitEvent(results, EventEscape, 3*time.Second)
	if !ok {
		t.Logf("did not receive escape event for %s", link)
		return
	}
	if msg.Path != link {
		t.Errorf("escape path = %s, want %s", msg.Path, link)
	}
	if msg.Target == "" {
		t.Error("escape message should carry the resolved target")
	}
}

func TestWatchTimeout(t *testing.T) {
	root := t.TempDir()

	start := time.Now()
	err := Watch(context.Background(), root, WatchOptions{Timeout: 50 * time.Millisecond},
		func(_ context.Context, _ WatchResult) error { return nil })
	if err != context.DeadlineExceeded {
		t.Errorf("Watch error = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("watch did not honor its timeout")
	}
}

func TestWatchNilHandler(t *testing.T) {
	if err := Watch(context.Background(), t.TempDir(), WatchOptions{}, nil); err == nil {
		t.Fatal("Watch should reject a nil handler")
	}
}
