// Package audit layers a metadata-level security review on top of the
// hardened walker: suspicious names, executable droppings, oversized files,
// and world-writable modes, collected into a report.
//
// Classification looks at names and lstat metadata only; file contents are
// never read.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	safewalk "github.com/TFMV/safewalk/internal/walk"
)

// DefaultLargeFileBytes flags files above 100 MB.
const DefaultLargeFileBytes = 100 * 1024 * 1024

// Issue kinds attached to findings.
const (
	IssueSuspiciousName = "suspicious_name"
	IssueExecutable     = "executable"
	IssueLargeFile      = "large_file"
	IssueWorldWritable  = "world_writable"
)

var suspiciousTokens = []string{
	"malware", "virus", "trojan", "ransomware",
	"password", "secret", "confidential",
}

var executableExts = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true,
	".ps1": true, ".sh": true, ".py": true,
}

// Finding is one file with at least one issue.
type Finding struct {
	Path   string   `json:"path"`
	Issues []string `json:"issues"`
	Size   int64    `json:"size"`
	Mode   string   `json:"mode"`
}

// Report aggregates one audit run.
type Report struct {
	Root          string        `json:"root"`
	FilesScanned  int64         `json:"files_scanned"`
	Suspicious    int64         `json:"suspicious"`
	Executables   int64         `json:"executables"`
	LargeFiles    int64         `json:"large_files"`
	WorldWritable int64         `json:"world_writable"`
	Findings      []Finding     `json:"findings"`
	WalkStats     safewalk.Stats `json:"walk_stats"`
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Audit of %s\n", r.Root)
	fmt.Fprintf(&b, "  files scanned:  %d\n", r.FilesScanned)
	fmt.Fprintf(&b, "  suspicious:     %d\n", r.Suspicious)
	fmt.Fprintf(&b, "  executables:    %d\n", r.Executables)
	fmt.Fprintf(&b, "  large files:    %d\n", r.LargeFiles)
	fmt.Fprintf(&b, "  world-writable: %d\n", r.WorldWritable)
	fmt.Fprintf(&b, "  walker:         %s\n", r.WalkStats)
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "  [%s] %s\n", strings.Join(f.Issues, ","), f.Path)
	}
	return b.String()
}

// Scanner runs audits over a hardened walk.
type Scanner struct {
	cfg        safewalk.Config
	largeBytes int64
	log        *zap.Logger
}

// NewScanner audits the tree described by cfg. The walker's own safety
// policies (symlinks, dedup, rate, timeout) apply unchanged.
func NewScanner(cfg safewalk.Config) *Scanner {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{cfg: cfg, largeBytes: DefaultLargeFileBytes, log: logger}
}

// SetLargeFileThreshold overrides the large-file cutoff in bytes.
func (s *Scanner) SetLargeFileThreshold(n int64) {
	if n > 0 {
		s.largeBytes = n
	}
}

// Scan walks the tree and classifies every accepted file. Fatal walk errors
// (timeout, unresolvable root) abort the audit; per-entry walk failures are
// already absorbed by the engine and show up in WalkStats.
func (s *Scanner) Scan() (*Report, error) {
	w, err := safewalk.New(s.cfg)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	report := &Report{Root: w.Root()}
	for path, werr := range w.Files() {
		if werr != nil {
			return nil, werr
		}
		report.FilesScanned++
		if f, ok := s.classify(path); ok {
			report.Findings = append(report.Findings, f)
			for _, issue := range f.Issues {
				switch issue {
				case IssueSuspiciousName:
					report.Suspicious++
				case IssueExecutable:
					report.Executables++
				case IssueLargeFile:
					report.LargeFiles++
				case IssueWorldWritable:
					report.WorldWritable++
				}
			}
		}
	}
	report.WalkStats = w.Stats()
	return report, nil
}

// classify inspects one accepted file by name and lstat metadata.
func (s *Scanner) classify(path string) (Finding, bool) {
	// Normalize before matching so decomposed Unicode can't hide a token.
	name := strings.ToLower(norm.NFC.String(filepath.Base(path)))

	var issues []string
	for _, token := range suspiciousTokens {
		if strings.Contains(name, token) {
			issues = append(issues, IssueSuspiciousName)
			break
		}
	}
	if executableExts[filepath.Ext(name)] {
		issues = append(issues, IssueExecutable)
	}

	finding := Finding{Path: path}
	info, err := os.Lstat(path)
	if err != nil {
		s.log.Debug("audit stat failed", zap.String("path", path), zap.Error(err))
		if len(issues) == 0 {
			return Finding{}, false
		}
		finding.Issues = issues
		return finding, true
	}

	finding.Size = info.Size()
	finding.Mode = info.Mode().String()
	if info.Size() > s.largeBytes {
		issues = append(issues, IssueLargeFile)
	}
	if info.Mode().Perm()&0o002 != 0 {
		issues = append(issues, IssueWorldWritable)
	}

	if len(issues) == 0 {
		return Finding{}, false
	}
	finding.Issues = issues
	return finding, true
}
