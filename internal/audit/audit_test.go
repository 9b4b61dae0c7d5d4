package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	safewalk "github.com/TFMV/safewalk/internal/walk"
)

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
	// WriteFile is subject to the umask; the tests need exact bits.
	if err := os.Chmod(path, mode); err != nil {
		t.Fatal(err)
	}
}

func TestScanClassifiesFindings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.txt"), "plain", 0o644)
	writeFile(t, filepath.Join(root, "password-dump.txt"), "x", 0o644)
	writeFile(t, filepath.Join(root, "install.sh"), "#!/bin/sh", 0o755)
	writeFile(t, filepath.Join(root, "open.txt"), "x", 0o666)

	s := NewScanner(safewalk.NewConfig(root))
	report, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if report.FilesScanned != 4 {
		t.Errorf("FilesScanned = %d, want 4", report.FilesScanned)
	}
	if report.Suspicious != 1 {
		t.Errorf("Suspicious = %d, want 1", report.Suspicious)
	}
	if report.Executables != 1 {
		t.Errorf("Executables = %d, want 1", report.Executables)
	}
	if report.WorldWritable == 0 {
		t.Error("expected at least one world-writable finding")
	}
	if report.WalkStats.FilesYielded != 4 {
		t.Errorf("WalkStats.FilesYielded = %d, want 4", report.WalkStats.FilesYielded)
	}

	issuesByBase := map[string][]string{}
	for _, f := range report.Findings {
		issuesByBase[filepath.Base(f.Path)] = f.Issues
	}
	if _, ok := issuesByBase["notes.txt"]; ok {
		t.Error("notes.txt should be clean")
	}
	if got := issuesByBase["password-dump.txt"]; len(got) == 0 || got[0] != IssueSuspiciousName {
		t.Errorf("password-dump.txt issues = %v, want suspicious_name", got)
	}
}

func TestScanLargeFileThreshold(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "blob.bin"), strings.Repeat("z", 2048), 0o644)

	s := NewScanner(safewalk.NewConfig(root))
	s.SetLargeFileThreshold(1024)

	report, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.LargeFiles != 1 {
		t.Errorf("LargeFiles = %d, want 1", report.LargeFiles)
	}
}

func TestScanRespectsWalkerPolicies(t *testing.T) {
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.txt"), "x", 0o644)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.txt"), "x", 0o644)
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	cfg := safewalk.NewConfig(root)
	cfg.FollowSymlinks = true

	report, err := NewScanner(cfg).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1 (escape must be skipped)", report.FilesScanned)
	}
	if report.WalkStats.FilesSkipped != 1 {
		t.Errorf("WalkStats.FilesSkipped = %d, want 1", report.WalkStats.FilesSkipped)
	}
}

func TestReportString(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "virus.exe"), "x", 0o644)

	report, err := NewScanner(safewalk.NewConfig(root)).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	out := report.String()
	if !strings.Contains(out, "suspicious:     1") {
		t.Errorf("report missing suspicious count:\n%s", out)
	}
	if !strings.Contains(out, "virus.exe") {
		t.Errorf("report missing finding path:\n%s", out)
	}
}
