package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/moolen/troubleshooter/internal/logging"
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X ...commands.Version=".
var Version = "0.1.0"

// Execute runs the root command with the process arguments.
func Execute() error {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	var logLevelFlags []string

	root := &cobra.Command{
		Use:   "troubleshooter",
		Short: "Troubleshoot clusters from must-gather bundles with a team of LLM agents",
		Long: `troubleshooter runs a conversation between a Planner, an Analyst and an
Executor agent. The Planner turns the reported issue and the runbooks into a
diagnosis plan, the Analyst writes commands against the must-gather bundles
and the Executor runs them locally, until the Planner ends with TERMINATE.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLog(cmd.ErrOrStderr(), logLevelFlags, os.Environ())
		},
	}

	// Supports per-package log levels: --log-level debug --log-level agent.groupchat=debug
	root.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level", nil,
		"Log level for packages. Use 'level' or 'default=level' for the default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level agent.executor=debug --log-level agent.provider=info")

	root.AddCommand(newRunCommand())
	root.AddCommand(newMCPCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// setupLog initializes the logging system. Logs always go to stderr so the
// transcript on stdout stays clean. Only errors are shown by default.
func setupLog(out io.Writer, flags, environ []string) error {
	defaultLevel, packageLevels, err := logging.ParseLevelFlags(flags, environ, "error")
	if err != nil {
		return err
	}
	logging.SetOutput(out)
	return logging.Initialize(defaultLevel, packageLevels)
}
