package cmd

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/secretsync/internal/ui"
	"github.com/PolarWolf314/secretsync/internal/utils"
	"github.com/PolarWolf314/secretsync/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	deleteDryRun bool
	deleteYes    bool
)

func init() {
	deleteCmd.Flags().BoolVar(&deleteDryRun, "dry-run", false, "show what would be deleted without uploading")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
}

func resetDeleteState() {
	deleteDryRun = false
	deleteYes = false
}

var deleteCmd = &cobra.Command{
	Use:   "delete KEY...",
	Short: "Delete secrets from the configured environment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if !deleteYes && !deleteDryRun && utils.IsTerminal() {
			question := fmt.Sprintf("Delete %s?", ui.KeyNames(args))
			ok, err := utils.Confirm(cmd.InOrStdin(), out, question, false)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, ui.Info.Sprint("ℹ")+" Nothing was deleted")
				return nil
			}
		}

		e, err := newEnv()
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Deleting secrets...", out)
		defer cleanup()

		result, err := workflows.Delete(cmd.Context(), e, workflows.DeleteOptions{Keys: args, DryRun: deleteDryRun})
		if err != nil {
			return fail(spinner, err)
		}

		target := ui.Highlight.Sprint(result.Environment.String())
		var b strings.Builder
		switch {
		case len(result.Deleted) == 0:
			b.WriteString(ui.Info.Sprint("ℹ") + " No matching secrets in " + target)
		case result.DryRun:
			b.WriteString(ui.Info.Sprint("ℹ") + " Dry run, would delete " + ui.KeyNames(result.Deleted) + " from " + target)
		default:
			b.WriteString(ui.Success.Sprint("✓") + " Deleted " + ui.KeyNames(result.Deleted) + " from " + target)
		}
		if len(result.Missing) > 0 {
			b.WriteString("\n" + ui.Warning.Sprint("⚠") + " Not found: " + ui.KeyNames(result.Missing))
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}
