package cmd

import (
	"fmt"

	"github.com/PolarWolf314/secretsync/internal/auth"
	"github.com/PolarWolf314/secretsync/internal/ui"
	"github.com/PolarWolf314/secretsync/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	loginScope string
	loginToken string
	loginForce bool
)

func init() {
	loginCmd.Flags().StringVar(&loginScope, "scope", "", "directory the login applies to (default: all directories)")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "store this token instead of running the device login")
	loginCmd.Flags().BoolVarP(&loginForce, "force", "f", false, "replace a token that is already stored")
}

func resetLoginState() {
	loginScope = ""
	loginToken = ""
	loginForce = false
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login this machine to the secretsync backend",
	Long: `Obtains a device token for this machine.

Without --token a one-time code is shown. Confirm it in the dashboard and the
command finishes on its own. The token is sealed to this machine before it is
stored. Service tokens passed with --token are stored as they are.

Examples:
  secretsync login
  secretsync login --scope .
  secretsync login --token "$SERVICE_TOKEN"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		e, err := newEnv()
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Waiting for login confirmation...", out)
		defer cleanup()

		result, err := workflows.Login(cmd.Context(), e, workflows.LoginOptions{
			Scope: loginScope,
			Token: loginToken,
			Force: loginForce,
			Notify: func(code auth.AuthCode, url string) {
				active := spinner.Active()
				spinner.Stop()
				fmt.Fprintf(out, "Your login code is %s\n", ui.Highlight.Sprint(code.AuthCode))
				fmt.Fprintf(out, "Confirm it at %s\n", ui.Path.Sprint(url))
				if active {
					spinner.Start()
				}
			},
		})
		if err != nil {
			return fail(spinner, err)
		}

		message := ui.Success.Sprint("✓") + " Logged in"
		if result.Scope != "/" {
			message += " for " + ui.Path.Sprint(result.Scope)
		}
		if result.ServiceToken {
			message += "\n" + ui.Warning.Sprint("⚠") + " Service token stored unsealed, protect your config file"
		}
		spinner.FinalMSG = message
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke and forget the device token of this directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Logging out...", cmd.OutOrStdout())
		defer cleanup()

		result, err := workflows.Logout(cmd.Context(), e)
		if err != nil {
			return fail(spinner, err)
		}

		message := ui.Success.Sprint("✓") + " Logged out"
		if !result.Revoked {
			message += "\n" + ui.Warning.Sprint("⚠") + " The token could not be revoked on the backend"
		}
		spinner.FinalMSG = message
		return nil
	},
}
