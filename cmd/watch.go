package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TFMV/safewalk/walk"
)

var (
	watchEvents    []string
	watchRecursive bool
	watchTimeout   time.Duration
)

// watchCmd monitors a scanned root for changes, flagging symlink escapes.
var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Watch a tree and flag symlinks that escape it",
	Long: `Watch monitors a directory tree for filesystem changes. Created
symlinks are resolved immediately; any whose target lies outside the
watched root are reported as escapes regardless of event filters.

Examples:
  safewalk watch /srv/uploads
  safewalk watch --events=create,delete /srv/uploads
  safewalk watch --timeout=1h /srv/uploads`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceVar(&watchEvents, "events", nil, "Events to report (create, modify, delete, rename, chmod)")
	watchCmd.Flags().BoolVar(&watchRecursive, "recursive", true, "Watch subdirectories recursively")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "Duration to watch before exiting (e.g. 1h, 30m)")
}

func runWatch(root string) error {
	logger := buildLogger()
	defer logger.Sync()

	var events []walk.WatchEvent
	for _, e := range watchEvents {
		switch strings.ToLower(e) {
		case "create":
			events = append(events, walk.EventCreate)
		case "write", "modify":
			events = append(events, walk.EventModify)
		case "remove", "delete":
			events = append(events, walk.EventDelete)
		case "rename":
			events = append(events, walk.EventRename)
		case "chmod":
			events = append(events, walk.EventChmod)
		default:
			return fmt.Errorf("unknown event type: %s", e)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := walk.WatchOptions{
		Events:    events,
		Recursive: watchRecursive,
		Timeout:   watchTimeout,
		Logger:    logger,
	}

	fmt.Printf("Watching %s for changes. Press Ctrl+C to exit.\n", root)

	err := walk.Watch(ctx, root, opts, func(ctx context.Context, result walk.WatchResult) error {
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "watch error: %v\n", result.Error)
			return nil
		}
		msg := result.Message
		if msg.Event == walk.EventEscape {
			fmt.Printf("ESCAPE: %s -> %s (target outside root)\n", msg.Path, msg.Target)
			return nil
		}
		fmt.Printf("%s: %s\n", strings.ToUpper(string(msg.Event)), msg.Path)
		return nil
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
