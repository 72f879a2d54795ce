package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/PolarWolf314/secretsync/internal/secrets"
	"github.com/PolarWolf314/secretsync/internal/ui"
	"github.com/PolarWolf314/secretsync/internal/workflows"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	pullOutput            string
	pullJSON              bool
	pullSkipUndecryptable bool
	pullEncrypt           bool
)

func init() {
	pullCmd.Flags().StringVarP(&pullOutput, "output", "o", "", "write secrets to this .env file instead of stdout")
	pullCmd.Flags().BoolVar(&pullJSON, "json", false, "print secrets as a JSON object")
	pullCmd.Flags().BoolVar(&pullSkipUndecryptable, "skip-undecryptable", false, "skip secrets that cannot be decrypted instead of failing")
	pullCmd.Flags().BoolVar(&pullEncrypt, "encrypt", false, "encrypt values so only this device can read them (see push --decrypt)")
}

func resetPullState() {
	pullOutput = ""
	pullJSON = false
	pullSkipUndecryptable = false
	pullEncrypt = false
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Print the decrypted secrets of the configured environment",
	Long: `Fetches and decrypts every secret of the configured environment and prints
them in .env format.

Examples:
  secretsync secrets pull > .env
  secretsync secrets pull --output .env
  secretsync secrets pull --output .env.local --encrypt
  secretsync secrets pull --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}

		// Secrets go to stdout, so progress goes to stderr.
		spinner, cleanup := startSpinner("Pulling secrets...", cmd.ErrOrStderr())
		defer cleanup()

		result, err := workflows.Pull(cmd.Context(), e, workflows.PullOptions{
			SkipUndecryptable: pullSkipUndecryptable,
			EncryptForDevice:  pullEncrypt,
		})
		if err != nil {
			return fail(spinner, err)
		}

		if len(result.Skipped) > 0 {
			Logger.WarnfAlways("Skipped %d secrets that could not be decrypted: %s", len(result.Skipped), ui.KeyNames(result.Skipped))
		}

		values := toMap(result.Secrets)
		switch {
		case pullOutput != "":
			if err := godotenv.Write(values, pullOutput); err != nil {
				return Logger.ErrorfAndReturn("failed to write %s: %v", pullOutput, err)
			}
			if err := os.Chmod(pullOutput, 0600); err != nil {
				Logger.Warnf("Failed to restrict permissions of %s: %v", pullOutput, err)
			}
			spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" Wrote %d secrets from ", len(values)) +
				ui.Highlight.Sprint(result.Environment.String()) + " to " + ui.Path.Sprint(pullOutput)
			return nil

		case pullJSON:
			data, err := json.MarshalIndent(values, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal secrets to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

		default:
			content, err := godotenv.Marshal(values)
			if err != nil {
				return fmt.Errorf("failed to format secrets: %w", err)
			}
			if content != "" {
				fmt.Fprintln(cmd.OutOrStdout(), content)
			}
		}
		return nil
	},
}

func toMap(list []secrets.Secret) map[string]string {
	values := make(map[string]string, len(list))
	for _, s := range list {
		values[s.Key] = s.Value
	}
	return values
}
