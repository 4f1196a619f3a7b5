package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/jobwatch/internal/store"
	"github.com/roach88/jobwatch/internal/tracker"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	JobID    string
	Limit    int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded job lifecycles",
		Long: `Read the SQLite lifecycle event log written by "jobwatch simplify".

Without --job, lists one line per job with its latest state, most recently
active first. With --job, prints every event of that job in order.

Examples:
  jobwatch history --db ./events.db
  jobwatch history --db ./events.db --job 0192f1c4-7d3e-7b4a-9e1f-3c2d1a0b9e8f
  jobwatch history --limit 5 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite event log path (overrides config)")
	cmd.Flags().StringVar(&opts.JobID, "job", "", "show every event of one job")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of jobs listed (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	dbPath := opts.Database
	if dbPath == "" {
		cfg, err := opts.Config()
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), err)
		}
		dbPath = cfg.Store.Path
	}
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "no event log configured (use --db, store.path or JOBWATCH_DB)", nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open event log", err)
	}
	defer st.Close()

	if opts.JobID != "" {
		events, err := st.JobEvents(ctx, opts.JobID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read events", err)
		}
		if opts.Format == "json" {
			return formatter.Success(events)
		}
		printEvents(cmd, opts.JobID, events)
		return nil
	}

	summaries, err := st.JobSummaries(ctx, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read job summaries", err)
	}
	if opts.Format == "json" {
		return formatter.Success(summaries)
	}
	printSummaries(cmd, summaries)
	return nil
}

func printEvents(cmd *cobra.Command, jobID string, events []tracker.LifecycleEvent) {
	w := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintf(w, "No events found for job: %s\n", jobID)
		return
	}

	fmt.Fprintf(w, "Job %s: %s\n\n", jobID, events[0].Title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIME\tKIND\tPROGRESS\tDETAIL")
	for _, ev := range events {
		progress := "-"
		if ev.Progress != nil {
			progress = fmt.Sprintf("%d%%", *ev.Progress)
		}
		detail := ev.Message
		if ev.ArticleID != "" {
			detail = tracker.ArticlePath(ev.ArticleID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			ev.Seq, ev.RecordedAt.Format(time.RFC3339), ev.Kind, progress, detail)
	}
	tw.Flush()
}

func printSummaries(cmd *cobra.Command, summaries []store.JobSummary) {
	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No jobs recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tSTATE\tPROGRESS\tEVENTS\tLAST SEEN\tTITLE")
	for _, s := range summaries {
		progress := "-"
		if s.Progress != nil {
			progress = fmt.Sprintf("%d%%", *s.Progress)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.JobID, s.LastKind, progress, s.Events, s.LastAt.Format(time.RFC3339), s.Title)
	}
	tw.Flush()
}
