package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	logger "github.com/PolarWolf314/secretsync/internal/logging"
	"github.com/PolarWolf314/secretsync/internal/workflows"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	// newEnv builds the workflow environment. Tests replace it to point
	// commands at a fake backend.
	newEnv = defaultEnv

	RootCmd = &cobra.Command{
		Use:   "secretsync",
		Short: "Sync environment secrets with the secretsync backend",
		Long: `secretsync pulls, pushes and reviews environment secrets stored in a
remote project. Secrets are encrypted on this machine before they leave it.

Examples:
  secretsync login
  secretsync setup my-project development
  secretsync secrets pull > .env
  secretsync secrets push --file .env`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.OutOrStdout(),
				Err:     cmd.ErrOrStderr(),
			}
			Logger.Debugf("Running %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(loginCmd)
	RootCmd.AddCommand(logoutCmd)
	RootCmd.AddCommand(projectsCmd)
	RootCmd.AddCommand(setupCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(SecretsCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		var shown errSilent
		if !errors.As(err, &shown) {
			fmt.Fprintln(RootCmd.ErrOrStderr(), formatError(err))
		}
		return 1
	}
	return 0
}

func defaultEnv() (*workflows.Env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return workflows.NewEnv(cwd, Logger)
}

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	newEnv = defaultEnv
	resetFlagState()
}

// resetFlagState resets every command flag between executions in the same process.
func resetFlagState() {
	resetLoginState()
	resetSecretsState()
	resetLogState()
	resetCobraFlagState(RootCmd)
}

// resetCobraFlagState clears parsed flag state on cmd and its children to
// prevent test pollution.
func resetCobraFlagState(cmd *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		flag.Changed = false
		_ = flag.Value.Set(flag.DefValue)
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetCobraFlagState(child)
	}
}
