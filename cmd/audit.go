package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TFMV/safewalk/internal/audit"
)

var (
	auditFormat     string
	auditOutputFile string
	auditLargeBytes int64
)

// auditCmd reviews a tree for suspicious files using the hardened walk.
var auditCmd = &cobra.Command{
	Use:   "audit <path>",
	Short: "Audit a directory tree for suspicious files",
	Long: `Audit walks a tree with the full safety policy and flags files with
suspicious names, executable extensions, oversized content, or
world-writable permissions. Contents are never read.

Examples:
  safewalk audit /srv/uploads
  safewalk audit --format=json --output-file=report.json /srv/uploads
  safewalk audit --large-threshold=10485760 /srv/uploads`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAudit(args[0])
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditFormat, "format", "text", "Report format (text|json)")
	auditCmd.Flags().StringVar(&auditOutputFile, "output-file", "", "File to write the report to")
	auditCmd.Flags().Int64Var(&auditLargeBytes, "large-threshold", audit.DefaultLargeFileBytes, "Large-file threshold in bytes")
}

func runAudit(root string) error {
	logger := buildLogger()
	defer logger.Sync()

	cfg, err := walkConfigFromFlags(root, logger)
	if err != nil {
		return err
	}

	scanner := audit.NewScanner(cfg)
	scanner.SetLargeFileThreshold(auditLargeBytes)

	report, err := scanner.Scan()
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	var out []byte
	if auditFormat == "json" {
		out, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		out = append(out, '\n')
	} else {
		out = []byte(report.String())
	}

	if auditOutputFile != "" {
		if err := os.WriteFile(auditOutputFile, out, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Audit report saved to %s\n", auditOutputFile)
		return nil
	}
	fmt.Print(string(out))
	return nil
}
