package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/PolarWolf314/secretsync/internal/ui"
	"github.com/PolarWolf314/secretsync/internal/workflows"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects and environments you can access",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		e, err := newEnv()
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Loading projects...", out)
		defer cleanup()

		projects, err := workflows.Projects(cmd.Context(), e)
		if err != nil {
			return fail(spinner, err)
		}

		if len(projects) == 0 {
			spinner.FinalMSG = ui.Info.Sprint("ℹ") + " You are not a member of any project"
			return nil
		}

		var b strings.Builder
		for _, p := range projects {
			names := make([]string, 0, len(p.Environments))
			for _, env := range p.Environments {
				names = append(names, env.Name)
			}
			fmt.Fprintf(&b, "%s  %s\n", ui.Highlight.Sprint(p.Name), ui.Muted.Sprint(strings.Join(names, ", ")))
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup <project> <environment>",
	Short: "Bind the current directory to a project environment",
	Long: `Verifies that you can access the environment and writes a .secretsync.toml
file to the current directory. Commands run below this directory use it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Setting up project...", cmd.OutOrStdout())
		defer cleanup()

		dir := e.Runtime.ProjectRoot
		if dir == "" {
			if dir, err = os.Getwd(); err != nil {
				return err
			}
		}

		result, err := workflows.Setup(cmd.Context(), e, workflows.SetupOptions{
			Project:     args[0],
			Environment: args[1],
			Dir:         dir,
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Using " + ui.Highlight.Sprint(result.Environment.String()) +
			"\n" + ui.Info.Sprint("→") + " Wrote " + ui.Path.Sprint(result.ConfigPath)
		return nil
	},
}
