package safewalk

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// NoDepthLimit disables the MaxDepth constraint.
const NoDepthLimit = -1

// SkipFunc is invoked for every rejected entry with its path and a reason
// string. A panic inside the callback is swallowed by the engine; a skip
// notification can never abort the walk.
type SkipFunc func(path, reason string)

// Config holds the immutable parameter set for one Walker. The engine holds
// it by value and never mutates it after construction.
type Config struct {
	// Root is the directory to traverse. It must be absolute; it is
	// canonicalized when the Walker is constructed.
	Root string

	// MaxRateMBPerSec caps sustained throughput, accounted by file size.
	MaxRateMBPerSec float64

	// FollowSymlinks resolves symlinks instead of skipping them. Resolved
	// targets are still required to stay inside Root.
	FollowSymlinks bool

	// Timeout bounds total walk duration.
	Timeout time.Duration

	// MaxDepth bounds descent below Root. NoDepthLimit means unbounded;
	// 0 means root-level entries only.
	MaxDepth int

	// MaxUniqueFiles bounds the memory of the hardlink deduplication cache.
	MaxUniqueFiles int

	// Deterministic sorts directory entries by name before processing,
	// making traversal order reproducible run to run.
	Deterministic bool

	// OnSkip, if set, is called for every rejected file or directory.
	OnSkip SkipFunc

	// Logger receives debug-level traversal events. Nil disables logging.
	Logger *zap.Logger
}

// NewConfig returns a Config for root with the default limits: 10 MB/s,
// symlinks blocked, one hour timeout, unbounded depth, one million cached
// identities, deterministic ordering.
func NewConfig(root string) Config {
	return Config{
		Root:            root,
		MaxRateMBPerSec: 10.0,
		Timeout:         time.Hour,
		MaxDepth:        NoDepthLimit,
		MaxUniqueFiles:  1_000_000,
		Deterministic:   true,
	}
}

// validate checks construction-time invariants. It has no side effects.
func (c Config) validate() error {
	if !filepath.IsAbs(c.Root) {
		return &ConfigError{Field: "Root", Reason: "must be an absolute path"}
	}
	if c.MaxRateMBPerSec <= 0 {
		return &ConfigError{Field: "MaxRateMBPerSec", Reason: "must be positive"}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "Timeout", Reason: "must be positive"}
	}
	if c.MaxUniqueFiles <= 0 {
		return &ConfigError{Field: "MaxUniqueFiles", Reason: "must be positive"}
	}
	if c.MaxDepth < NoDepthLimit {
		return &ConfigError{Field: "MaxDepth", Reason: "must be non-negative or NoDepthLimit"}
	}
	return nil
}

// depthLimited reports whether MaxDepth is in effect.
func (c Config) depthLimited() bool {
	return c.MaxDepth != NoDepthLimit
}
