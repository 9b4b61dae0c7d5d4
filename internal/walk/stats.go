package safewalk

import (
	"fmt"
	"time"
)

// Stats is an immutable snapshot of traversal counters. Two snapshots taken
// at different times from the same Walker are independent values.
type Stats struct {
	FilesYielded   int64
	FilesSkipped   int64
	DirsSkipped    int64
	BytesProcessed int64
	TimeElapsed    time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("Files: %d, Skipped: %d, Dirs skipped: %d, Bytes: %d, Time: %.2fs",
		s.FilesYielded, s.FilesSkipped, s.DirsSkipped, s.BytesProcessed,
		s.TimeElapsed.Seconds())
}

// walkStats is the engine's mutable counter set. The Walker is
// single-threaded by contract, so plain ints with single ownership replace
// any synchronization primitive.
type walkStats struct {
	filesYielded   int64
	filesSkipped   int64
	dirsSkipped    int64
	bytesProcessed int64
	start          time.Time
}

// snapshot copies the counters and computes elapsed time fresh.
func (s *walkStats) snapshot() Stats {
	return Stats{
		FilesYielded:   s.filesYielded,
		FilesSkipped:   s.filesSkipped,
		DirsSkipped:    s.dirsSkipped,
		BytesProcessed: s.bytesProcessed,
		TimeElapsed:    time.Since(s.start),
	}
}
