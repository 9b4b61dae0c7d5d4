// Package walk is the public surface of the safewalk traversal engine.
//
// It re-exports the hardened walker from the internal package: construct a
// Config, build a Walker, range over Files, and read Stats at any point.
package walk

import (
	"context"

	internal "github.com/TFMV/safewalk/internal/walk"
)

type (
	// Config is the immutable parameter set for one traversal.
	Config = internal.Config

	// Stats is an immutable snapshot of traversal counters.
	Stats = internal.Stats

	// Walker drives one bounded-memory depth-first traversal.
	Walker = internal.Walker

	// SkipFunc observes rejected entries.
	SkipFunc = internal.SkipFunc

	// ConfigError reports an invalid Config field.
	ConfigError = internal.ConfigError

	// Watch types.
	WatchEvent   = internal.WatchEvent
	WatchOptions = internal.WatchOptions
	WatchMessage = internal.WatchMessage
	WatchResult  = internal.WatchResult
	WatchHandler = internal.WatchHandler
)

// ErrTimeout terminates a traversal that exceeds its time budget.
var ErrTimeout = internal.ErrTimeout

const (
	// NoDepthLimit disables the MaxDepth constraint.
	NoDepthLimit = internal.NoDepthLimit

	// Skip reasons reported to Config.OnSkip.
	ReasonSymlinkBlocked    = internal.ReasonSymlinkBlocked
	ReasonBrokenSymlink     = internal.ReasonBrokenSymlink
	ReasonTraversalViaLink  = internal.ReasonTraversalViaLink
	ReasonMaxDepthExceeded  = internal.ReasonMaxDepthExceeded
	ReasonHardlinkDuplicate = internal.ReasonHardlinkDuplicate

	// Watch event kinds.
	EventCreate = internal.EventCreate
	EventModify = internal.EventModify
	EventDelete = internal.EventDelete
	EventRename = internal.EventRename
	EventChmod  = internal.EventChmod
	EventEscape = internal.EventEscape
)

// NewConfig returns a Config for root with the default limits.
func NewConfig(root string) Config {
	return internal.NewConfig(root)
}

// New validates cfg, canonicalizes the root, and returns a ready Walker.
func New(cfg Config) (*Walker, error) {
	return internal.New(cfg)
}

// Walk constructs a Walker, guarantees release, and invokes fn for every
// accepted file path.
func Walk(cfg Config, fn func(path string) error) (Stats, error) {
	return internal.Walk(cfg, fn)
}

// Watch monitors root for filesystem changes, flagging created symlinks
// whose targets resolve outside the root.
func Watch(ctx context.Context, root string, opts WatchOptions, handler WatchHandler) error {
	return internal.Watch(ctx, root, opts, handler)
}
