package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/PolarWolf314/secretsync/internal/audit"
	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/ui"
	"github.com/PolarWolf314/secretsync/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	logLimit     int
	logReverse   bool
	logOperation string
	logProject   string
	logSince     string
	logUntil     string
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation type (comma-separated)")
	logCmd.Flags().StringVar(&logProject, "project", "", "filter by project")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries after date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "show entries before date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

func resetLogState() {
	logLimit = 0
	logReverse = false
	logOperation = ""
	logProject = ""
	logSince = ""
	logUntil = ""
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the local audit log",
	Long: `Displays the operations this machine performed against the backend.
Secret values are never recorded.

Examples:
  secretsync log                          # View full log
  secretsync log -n 10                    # Last 10 entries
  secretsync log --operation push,delete  # Filter by operation
  secretsync log --since 2026-01-01       # Filter by date
  secretsync log --json                   # JSON output`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		e, err := newEnv()
		if err != nil {
			return err
		}

		result, err := workflows.Log(e, workflows.LogOptions{
			Limit:      logLimit,
			Reverse:    logReverse,
			Operations: logOperation,
			Project:    logProject,
			Since:      logSince,
			Until:      logUntil,
		})
		switch {
		case errors.Is(err, kerrors.ErrNoAuditLog):
			fmt.Fprintln(out, ui.Info.Sprint("ℹ")+" No audit log found. Operations will be logged after you push or pull secrets.")
			return nil
		case err != nil:
			fmt.Fprintln(out, formatError(err))
			return errSilent{err}
		}

		Logger.Debugf("Showing %d of %d entries", len(result.Entries), result.TotalEntriesBeforeFilter)

		if len(result.Entries) == 0 {
			fmt.Fprintln(out, "No audit log entries found matching the filters.")
			return nil
		}

		if logJSON {
			return outputLogJSON(out, result.Entries)
		}
		for _, entry := range result.Entries {
			fmt.Fprintf(out, "%-19s  %-25s  %-13s  %s\n",
				workflows.FormatDateTime(entry.Timestamp), entry.User, entry.Operation, workflows.FormatDetails(entry))
		}
		return nil
	},
}

func outputLogJSON(out io.Writer, entries []audit.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
