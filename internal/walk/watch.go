package safewalk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchEvent identifies a filesystem event type.
type WatchEvent string

const (
	EventCreate WatchEvent = "create"
	EventModify WatchEvent = "modify"
	EventDelete WatchEvent = "delete"
	EventRename WatchEvent = "rename"
	EventChmod  WatchEvent = "chmod"

	// EventEscape is synthesized when a newly created symlink resolves
	// outside the watched root. It cannot be filtered out by Events.
	EventEscape WatchEvent = "escape"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	// Events to report. Empty means all.
	Events []WatchEvent

	// Recursive watches subdirectories, including ones created later.
	Recursive bool

	// Timeout stops watching after the given duration. Zero means none.
	Timeout time.Duration

	// Logger receives debug events. Nil disables logging.
	Logger *zap.Logger
}

// WatchMessage describes one observed event.
type WatchMessage struct {
	Path   string
	Event  WatchEvent
	IsDir  bool
	Size   int64
	Time   time.Time
	Target string // resolved symlink target, set for EventEscape
}

// WatchResult carries either a message or a non-fatal watcher error.
type WatchResult struct {
	Message WatchMessage
	Error   error
}

// WatchHandler processes watch events. Returning an error stops the watch.
type WatchHandler func(ctx context.Context, result WatchResult) error

// Watch monitors root for filesystem changes, flagging created symlinks
// whose targets resolve outside the canonicalized root. It is the live
// counterpart of the walker's containment check: a tree verified once can
// still have a hostile symlink planted afterwards.
func Watch(ctx context.Context, root string, opts WatchOptions, handler WatchHandler) error {
	if handler == nil {
		return fmt.Errorf("safewalk: watch handler must not be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rootAbs, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("safewalk: cannot resolve watch root %s: %w", root, err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("safewalk: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(rootAbs); err != nil {
		return fmt.Errorf("safewalk: watching %s: %w", rootAbs, err)
	}
	if opts.Recursive {
		if err := addSubdirs(watcher, rootAbs, logger); err != nil {
			return err
		}
	}

	wanted := make(map[WatchEvent]bool, len(opts.Events))
	for _, e := range opts.Events {
		wanted[e] = true
	}

	logger.Debug("watching", zap.String("root", rootAbs), zap.Bool("recursive", opts.Recursive))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if herr := handler(ctx, WatchResult{Error: fmt.Errorf("watcher error: %w", err)}); herr != nil {
				return herr
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			msg, deliver := buildMessage(event, rootAbs)
			if msg.Event == EventCreate && opts.Recursive && msg.IsDir {
				if err := watcher.Add(event.Name); err != nil {
					logger.Debug("cannot watch new directory",
						zap.String("path", event.Name), zap.Error(err))
				}
			}
			if !deliver {
				continue
			}
			// Escape notices always go through; plain events honor the
			// Events filter.
			if msg.Event != EventEscape && len(wanted) > 0 && !wanted[msg.Event] {
				continue
			}
			if herr := handler(ctx, WatchResult{Message: msg}); herr != nil {
				return herr
			}
		}
	}
}

// buildMessage classifies one fsnotify event, upgrading symlink creations
// that resolve outside root to EventEscape.
func buildMessage(event fsnotify.Event, rootAbs string) (WatchMessage, bool) {
	msg := WatchMessage{Path: event.Name, Time: time.Now()}

	switch {
	case event.Has(fsnotify.Create):
		msg.Event = EventCreate
	case event.Has(fsnotify.Write):
		msg.Event = EventModify
	case event.Has(fsnotify.Remove):
		msg.Event = EventDelete
		return msg, true
	case event.Has(fsnotify.Rename):
		msg.Event = EventRename
		return msg, true
	case event.Has(fsnotify.Chmod):
		msg.Event = EventChmod
	default:
		return msg, false
	}

	info, err := os.Lstat(event.Name)
	if err != nil {
		// Vanished between event and stat; report the bare event.
		return msg, true
	}
	msg.IsDir = info.IsDir()
	msg.Size = info.Size()
	msg.Time = info.ModTime()

	if msg.Event == EventCreate && info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(event.Name)
		if err == nil && !contained(rootAbs, target) {
			msg.Event = EventEscape
			msg.Target = target
		}
	}
	return msg, true
}

func addSubdirs(watcher *fsnotify.Watcher, rootAbs string, logger *zap.Logger) error {
	return filepath.WalkDir(rootAbs, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			logger.Debug("skipping unwatchable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			logger.Debug("cannot watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}
