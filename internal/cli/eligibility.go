package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/jobwatch/internal/notify"
	"github.com/roach88/jobwatch/internal/tracker"
)

// NewEligibilityCommand creates the eligibility command.
func NewEligibilityCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eligibility",
		Short: "Check whether a new job may start",
		Long: `Ask the server for active jobs and limits and report whether a new
simplification may start now.

If the server cannot be reached the answer is "yes" with no limits: the
check fails open, exactly as it does before a launch.

Exits 1 when a new job would be refused.

Examples:
  jobwatch eligibility
  jobwatch eligibility --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEligibility(rootOpts, cmd)
		},
	}
}

func runEligibility(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.Config()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), err)
	}

	client := newClient(cfg)
	formatter.VerboseLog("checking limits at %s", client.BaseURL())

	engine := tracker.New(client, notify.NewConsole(cmd.ErrOrStderr()), nil,
		tracker.WithLogger(newLogger(cfg, cmd.ErrOrStderr())),
	)
	elig := engine.CanStartJob(context.Background())

	if opts.Format == "json" {
		if err := formatter.Success(elig); err != nil {
			return err
		}
	} else {
		printEligibility(cmd, elig)
	}

	if !elig.CanStart {
		return NewExitError(ExitFailure, elig.Reason)
	}
	return nil
}

func printEligibility(cmd *cobra.Command, elig tracker.Eligibility) {
	w := cmd.OutOrStdout()
	if elig.CanStart {
		fmt.Fprintln(w, "can start: yes")
	} else {
		fmt.Fprintf(w, "can start: no (%s)\n", elig.Reason)
	}

	if elig.Limits == nil {
		fmt.Fprintln(w, "limits:    unknown (server unreachable)")
		return
	}
	fmt.Fprintf(w, "running:   %s\n", usage(elig.Limits.ActiveCount, elig.Limits.MaxConcurrent))
	fmt.Fprintf(w, "today:     %s\n", usage(elig.Limits.CurrentDaily, elig.Limits.MaxDaily))
}

func usage(n, max int) string {
	if max <= 0 {
		return fmt.Sprintf("%d (unlimited)", n)
	}
	return fmt.Sprintf("%d/%d", n, max)
}
