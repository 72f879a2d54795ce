package cmd

import (
	"github.com/PolarWolf314/secretsync/internal/ui"
	"github.com/PolarWolf314/secretsync/internal/workflows"

	"github.com/spf13/cobra"
)

var mergeRequestComment string

func init() {
	mergeRequestCmd.Flags().StringVarP(&mergeRequestComment, "comment", "m", "", "explain the change to reviewers")
}

func resetMergeRequestState() {
	mergeRequestComment = ""
}

var mergeRequestCmd = &cobra.Command{
	Use:   "merge-request KEY VALUE",
	Short: "Propose a secret change for review",
	Long: `Submits a secret change that a project admin has to approve before it is
applied. Use this when you can read an environment but not write to it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Submitting merge request...", cmd.OutOrStdout())
		defer cleanup()

		result, err := workflows.MergeRequest(cmd.Context(), e, workflows.MergeRequestOptions{
			Key:     args[0],
			Value:   args[1],
			Comment: mergeRequestComment,
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Proposed " + ui.Key.Sprint(result.Key) + "=" + ui.Mask(args[1]) +
			" for " + ui.Highlight.Sprint(result.Environment.String())
		return nil
	},
}
