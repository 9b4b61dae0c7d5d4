package safewalk

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrTimeout is returned when a walk exceeds its configured time budget.
// It is the only error that terminates an already-started traversal.
var ErrTimeout = errors.New("safewalk: walk exceeded configured time limit")

// ConfigError reports an invalid Config field at Walker construction.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("safewalk: invalid config: %s %s", e.Field, e.Reason)
}

// Skip reasons passed to Config.OnSkip. Reasons produced from an underlying
// I/O failure carry a suffix naming the failure kind, e.g.
// "stat_failed: permission_denied".
const (
	ReasonSymlinkBlocked    = "symlink_blocked"
	ReasonBrokenSymlink     = "broken_symlink"
	ReasonTraversalViaLink  = "traversal_via_symlink"
	ReasonMaxDepthExceeded  = "max_depth_exceeded"
	ReasonHardlinkDuplicate = "hardlink_duplicate_or_cache_full"
	reasonStatFailedPrefix  = "stat_failed: "
	reasonScanFailedPrefix  = "scan_failed: "
)

// errKind maps an I/O error to a short stable kind name for skip reasons.
func errKind(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "not_found"
	case errors.Is(err, fs.ErrPermission):
		return "permission_denied"
	case errors.Is(err, syscall.ENOTDIR):
		return "not_a_directory"
	default:
		return "io_error"
	}
}
