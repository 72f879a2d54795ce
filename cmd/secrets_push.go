package cmd

import (
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/ui"
	"github.com/PolarWolf314/secretsync/internal/utils"
	"github.com/PolarWolf314/secretsync/internal/workflows"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	pushFile    string
	pushDryRun  bool
	pushDecrypt bool
)

func init() {
	pushCmd.Flags().StringVarP(&pushFile, "file", "f", "", "read secrets from a .env file (- for stdin)")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "show what would change without uploading")
	pushCmd.Flags().BoolVar(&pushDecrypt, "decrypt", false, "decrypt values written by pull --encrypt on this device")
}

func resetPushState() {
	pushFile = ""
	pushDryRun = false
	pushDecrypt = false
}

var pushCmd = &cobra.Command{
	Use:   "push [KEY=VALUE...]",
	Short: "Add or update secrets in the configured environment",
	Long: `Merges the given secrets into the configured environment. Existing secrets
that are not mentioned are kept. Names are case-insensitive and stored upper case.

Examples:
  secretsync secrets push API_KEY=abc DB_URL=postgres://localhost
  secretsync secrets push --file .env
  secretsync secrets push --file .env.local --decrypt
  cat .env | secretsync secrets push --file -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := pushInput(args)
		if err != nil {
			return err
		}

		e, err := newEnv()
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Pushing secrets...", cmd.OutOrStdout())
		defer cleanup()

		result, err := workflows.Push(cmd.Context(), e, workflows.PushOptions{
			Secrets:          values,
			DryRun:           pushDryRun,
			DecryptForDevice: pushDecrypt,
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = formatPushResult(result)
		return nil
	},
}

// pushInput collects KEY=VALUE arguments and the --file contents. Arguments
// win over the file.
func pushInput(args []string) (map[string]string, error) {
	values := make(map[string]string)

	if pushFile != "" {
		var parsed map[string]string
		var err error
		if pushFile == "-" {
			var data []byte
			if data, err = utils.ReadStdin(); err != nil {
				return nil, err
			}
			parsed, err = godotenv.UnmarshalBytes(data)
		} else {
			parsed, err = godotenv.Read(pushFile)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", pushFile, err)
		}
		for k, v := range parsed {
			values[k] = v
		}
	}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not in KEY=VALUE form", kerrors.ErrValidation, arg)
		}
		values[key] = value
	}

	return values, nil
}

func formatPushResult(result *workflows.PushResult) string {
	target := ui.Highlight.Sprint(result.Environment.String())
	changed := len(result.Added) + len(result.Updated)

	var b strings.Builder
	switch {
	case result.DryRun:
		b.WriteString(ui.Info.Sprint("ℹ") + " Dry run, nothing was uploaded to " + target)
	case changed == 0:
		b.WriteString(ui.Success.Sprint("✓") + " " + target + " is already up to date")
	default:
		b.WriteString(ui.Success.Sprint("✓") + fmt.Sprintf(" Pushed %d secrets to ", changed) + target)
	}

	for _, group := range []struct {
		label string
		keys  []string
	}{
		{"Added", result.Added},
		{"Updated", result.Updated},
		{"Unchanged", result.Unchanged},
	} {
		if len(group.keys) > 0 {
			b.WriteString("\n" + group.label + ":" + strings.TrimSuffix(ui.KeyList(group.keys), "\n"))
		}
	}
	return b.String()
}
