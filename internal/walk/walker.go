package safewalk

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// Walker drives one bounded-memory depth-first traversal. It owns an
// explicit directory stack, the hardlink identity cache, and the clock
// baseline for timeout and rate accounting.
//
// A Walker is single-threaded: one caller consumes Files and the internal
// state must never be shared across goroutines. Abandoning the sequence
// early is always safe; call Close when done to release the identity cache.
type Walker struct {
	cfg     Config
	rootAbs string
	stats   walkStats
	cache   *identityCache
	limiter *governor
	log     *zap.Logger
	started bool
}

// New validates cfg, canonicalizes the root, and starts the walk clock.
// It fails with a *ConfigError for invalid parameters and with a wrapped
// resolution error when the root itself cannot be resolved; the latter is
// the only unrecoverable filesystem failure in the design.
func New(cfg Config) (*Walker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rootAbs, err := filepath.EvalSymlinks(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("safewalk: cannot resolve root %s: %w", cfg.Root, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Walker{
		cfg:     cfg,
		rootAbs: rootAbs,
		cache:   newIdentityCache(cfg.MaxUniqueFiles),
		limiter: newGovernor(cfg.MaxRateMBPerSec),
		log:     logger,
	}
	w.stats.start = time.Now()
	return w, nil
}

// Root returns the canonicalized root the walk is confined to.
func (w *Walker) Root() string { return w.rootAbs }

// Stats returns a snapshot of the traversal counters. It is valid at any
// point: before, during, or after consuming Files, and after Close.
func (w *Walker) Stats() Stats { return w.stats.snapshot() }

// Close releases the identity cache. It is idempotent and safe on every
// exit path, including early abandonment of the sequence.
func (w *Walker) Close() {
	w.cache.clear()
}

// Files returns the lazy, single-pass sequence of verified file paths. No
// directory is enumerated and no entry is stat'd until the consumer asks
// for the next item.
//
// Every yielded path resolves inside the root, passed the symlink and depth
// policies, and was admitted by the hardlink cache. Per-entry failures are
// absorbed as skip events; the sequence terminates with a non-nil error only
// for ErrTimeout. Ranging a second time yields nothing.
func (w *Walker) Files() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if w.started {
			return
		}
		w.started = true
		w.walk(yield)
	}
}

type frame struct {
	path  string
	depth int
}

func (w *Walker) walk(yield func(string, error) bool) {
	w.log.Debug("starting walk",
		zap.String("root", w.rootAbs),
		zap.Bool("follow_symlinks", w.cfg.FollowSymlinks),
		zap.Bool("deterministic", w.cfg.Deterministic))

	// Explicit LIFO stack instead of call-stack recursion: a deep or
	// malicious tree must not be able to exhaust the goroutine stack.
	stack := []frame{{w.rootAbs, 0}}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if w.timedOut() {
			yield("", ErrTimeout)
			return
		}
		if w.cfg.depthLimited() && fr.depth > w.cfg.MaxDepth {
			w.skip(fr.path, ReasonMaxDepthExceeded, true)
			continue
		}

		dirents, err := godirwalk.ReadDirents(fr.path, nil)
		if err != nil {
			// Local failure (permissions, vanished directory): account
			// and keep walking.
			w.skip(fr.path, reasonScanFailedPrefix+errKind(err), true)
			continue
		}
		if w.cfg.Deterministic {
			sort.Sort(dirents)
		}

		var subdirs []frame
		for _, dirent := range dirents {
			if w.timedOut() {
				yield("", ErrTimeout)
				return
			}
			ent, ok := w.classify(fr.path, dirent.Name(), fr.depth)
			if !ok {
				continue
			}
			if ent.isDir {
				subdirs = append(subdirs, frame{ent.path, fr.depth + 1})
				continue
			}
			if id, hasID := identityFromInfo(ent.info); hasID {
				if !w.cache.tryAdmit(id) {
					w.skip(ent.path, ReasonHardlinkDuplicate, false)
					continue
				}
			}
			if size := ent.info.Size(); size > 0 {
				w.stats.bytesProcessed += size
				w.limiter.pace(w.stats.start, w.stats.bytesProcessed)
			}
			w.stats.filesYielded++
			if !yield(ent.path, nil) {
				return
			}
		}

		// Push in reverse so the stack pops subdirectories in the order
		// the listing produced them.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
}

type entry struct {
	path  string
	info  os.FileInfo
	isDir bool
}

// classify performs the TOCTOU-critical per-entry protocol: one lstat on the
// entry itself decides symlink-ness, directory-ness, identity, and size. No
// separate check-then-use sequence touches the path.
func (w *Walker) classify(dir, name string, depth int) (entry, bool) {
	path := filepath.Join(dir, name)

	info, err := os.Lstat(path)
	if err != nil {
		// Entry vanished or is unreadable; file-like for accounting.
		w.skip(path, reasonStatFailedPrefix+errKind(err), false)
		return entry{}, false
	}

	isSymlink := info.Mode()&os.ModeSymlink != 0
	isDir := info.IsDir()

	if isSymlink && !w.cfg.FollowSymlinks {
		w.skip(path, ReasonSymlinkBlocked, isDir)
		return entry{}, false
	}

	resolved := path
	if isSymlink {
		resolved, err = filepath.EvalSymlinks(path)
		if err != nil {
			w.skip(path, ReasonBrokenSymlink, isDir)
			return entry{}, false
		}
	}

	// Containment is the central defense: a symlink planted inside the
	// tree must not let the walk out of the root.
	if !contained(w.rootAbs, resolved) {
		w.skip(path, ReasonTraversalViaLink, isDir)
		return entry{}, false
	}

	// Depth is re-checked after resolution with the traversal counter.
	if isDir && w.cfg.depthLimited() && depth+1 > w.cfg.MaxDepth {
		w.skip(resolved, ReasonMaxDepthExceeded, true)
		return entry{}, false
	}

	return entry{path: resolved, info: info, isDir: isDir}, true
}

// skip records a rejection, debug-logs it, and notifies OnSkip. A panic in
// the callback is swallowed: observability must never abort the walk.
func (w *Walker) skip(path, reason string, isDir bool) {
	if isDir {
		w.stats.dirsSkipped++
	} else {
		w.stats.filesSkipped++
	}
	w.log.Debug("entry skipped",
		zap.String("path", path),
		zap.String("reason", reason),
		zap.Bool("dir", isDir))
	if w.cfg.OnSkip != nil {
		w.notifySkip(path, reason)
	}
}

func (w *Walker) notifySkip(path, reason string) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Debug("skip callback panicked", zap.Any("panic", r))
		}
	}()
	w.cfg.OnSkip(path, reason)
}

func (w *Walker) timedOut() bool {
	return time.Since(w.stats.start) > w.cfg.Timeout
}

// contained reports whether path is root itself or an ancestor-contained
// descendant of root. Both arguments must already be canonical.
func contained(root, path string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Walk is the scoped-acquisition convenience: it constructs a Walker,
// guarantees release, and invokes fn for every accepted file. It returns
// the final stats along with the first fatal or callback error.
func Walk(cfg Config, fn func(path string) error) (Stats, error) {
	w, err := New(cfg)
	if err != nil {
		return Stats{}, err
	}
	defer w.Close()
	for path, err := range w.Files() {
		if err != nil {
			return w.Stats(), err
		}
		if err := fn(path); err != nil {
			return w.Stats(), err
		}
	}
	return w.Stats(), nil
}
