package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/moolen/troubleshooter/internal/agent/runner"
	"github.com/moolen/troubleshooter/internal/config"
	"github.com/moolen/troubleshooter/internal/logging"
	"github.com/spf13/cobra"
)

type runOptions struct {
	configFlags

	runbooks  string
	hubMG     string
	clusterMG string
	debug     bool
	silent    bool
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run ISSUE",
		Short: "Troubleshoot an issue against must-gather bundles",
		Long: `Start a troubleshooting session. The User agent opens the chat with ISSUE,
then Planner, Analyst and Executor take turns until a message ends with
TERMINATE or the round limit is reached.

Examples:
  # Diagnose a managed cluster that went offline
  troubleshooter run "cluster1 is offline" --runbooks ./runbooks \
    --hub-mg ./hub-must-gather --cluster-mg ./cluster1-must-gather

  # Step through the conversation and answer for each agent
  troubleshooter run "klusterlet is degraded" --runbooks ./runbooks --hub-mg ./mg --debug

  # Offline run with a scripted model
  troubleshooter run "etcd is degraded" --runbooks ./runbooks --hub-mg ./mg --mock-scenario scenario.yaml
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args[0])
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.runbooks, "runbooks", "", "Runbook file or directory handed to the Planner")
	cmd.Flags().StringVar(&opts.hubMG, "hub-mg", "", "Hub cluster must-gather directory")
	cmd.Flags().StringVar(&opts.clusterMG, "cluster-mg", "", "Managed cluster must-gather directory (default: --hub-mg)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Ask for human input before every agent reply (disables rate-limit waits)")
	cmd.Flags().BoolVar(&opts.silent, "silent", false, "Only print the final answer")
	_ = cmd.MarkFlagRequired("runbooks")
	_ = cmd.MarkFlagRequired("hub-mg")

	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, issue string) error {
	logger := logging.GetLogger("cli")

	extra := map[string]interface{}{}
	if o.debug {
		extra["chat.human_input_mode"] = config.HumanInputAlways
	}
	if cmd.Flags().Changed("silent") {
		extra["chat.silent"] = o.silent
	}
	cfg, err := o.load(cmd, extra)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := runner.New(ctx, runner.Options{
		Config:   cfg,
		Issue:    issue,
		Runbooks: o.runbooks,
		HubDir:   o.hubMG,
		SpokeDir: o.clusterMG,
		Version:  Version,
		Stdin:    cmd.InOrStdin(),
		Stdout:   cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	logger.Info("Session %s started with %s", r.SessionID(), cfg.LLM.Provider)

	result, err := r.Run(ctx)
	if path := r.AuditPath(); path != "" {
		logger.Info("Audit log written to %s", path)
	}
	if err != nil {
		if result != nil && result.Reason == groupchat.ReasonCanceled && errors.Is(err, context.Canceled) {
			return fmt.Errorf("session %s interrupted after %d rounds", r.SessionID(), result.Rounds)
		}
		return err
	}
	return nil
}
