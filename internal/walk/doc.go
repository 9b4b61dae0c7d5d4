// Package safewalk implements a security-hardened directory traversal engine.
//
// The walker enumerates regular files under a root directory while defending
// against the attack surface a naive recursive walk exposes on untrusted
// trees: symlinks that point outside the root, hardlinks that cause the same
// file to be processed twice, unbounded recursion depth, and I/O-based
// denial of service.
//
// Every entry is classified from a single lstat call so that the decision
// (symlink, directory, identity, size) cannot race against a filesystem
// mutation between check and use. Descent uses an explicit stack rather than
// call-stack recursion, duplicate detection is bounded by a FIFO-evicting
// identity cache, and sustained throughput is capped by a virtual-time
// governor.
package safewalk
