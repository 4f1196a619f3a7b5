package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/jobwatch/internal/apiclient"
)

// CancelResult is the JSON payload of the cancel command.
type CancelResult struct {
	JobID     string `json:"jobId"`
	Cancelled bool   `json:"cancelled"`
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <jobId>",
		Short: "Ask the server to cancel a job",
		Long: `Send a cancellation request for a job started elsewhere.

A job followed by "jobwatch simplify" is cancelled with Ctrl-C instead.

Examples:
  jobwatch cancel 0192f1c4-7d3e-7b4a-9e1f-3c2d1a0b9e8f`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(rootOpts, args[0], cmd)
		},
	}
}

func runCancel(opts *RootOptions, jobID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.Config()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), err)
	}

	err = newClient(cfg).CancelJob(context.Background(), jobID)
	switch {
	case apiclient.IsNotFound(err):
		return formatter.Fail(ExitFailure, ErrCodeJobNotFound, fmt.Sprintf("job %s not found or expired", jobID), err)
	case err != nil:
		return formatter.Fail(ExitCommandError, ErrCodeAPI, "cancel request failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(CancelResult{JobID: jobID, Cancelled: true})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cancel requested for job %s\n", jobID)
	return nil
}
