package cmd

import (
	"github.com/spf13/cobra"
)

var SecretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Read and change the secrets of the configured environment",
	Long: `Pulls, pushes, deletes and proposes secrets for the project environment
bound with 'secretsync setup'. SECRETSYNC_PROJECT and SECRETSYNC_ENVIRONMENT
override the binding.`,
}

func init() {
	SecretsCmd.AddCommand(pullCmd)
	SecretsCmd.AddCommand(pushCmd)
	SecretsCmd.AddCommand(deleteCmd)
	SecretsCmd.AddCommand(mergeRequestCmd)
}

// GetSecretsCmd returns the SecretsCmd for testing.
func GetSecretsCmd() *cobra.Command {
	return SecretsCmd
}

func resetSecretsState() {
	resetPullState()
	resetPushState()
	resetDeleteState()
	resetMergeRequestState()
}
