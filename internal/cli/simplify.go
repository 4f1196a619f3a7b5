package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/jobwatch/internal/apiclient"
	"github.com/roach88/jobwatch/internal/notify"
	"github.com/roach88/jobwatch/internal/store"
	"github.com/roach88/jobwatch/internal/tracker"
)

// SimplifyOptions holds flags for the simplify command.
type SimplifyOptions struct {
	*RootOptions
	Paper     tracker.SimplifyOptions
	Source    string
	Citations int
	Rating    float64
	Database  string
}

// SimplifyResult is the JSON payload of a completed simplify command.
type SimplifyResult struct {
	JobID     string `json:"jobId"`
	Title     string `json:"title"`
	ArticleID string `json:"articleId,omitempty"`
	Path      string `json:"path,omitempty"`
	Message   string `json:"message"`
}

// cancelTimeout bounds the server cancel sent on interrupt.
const cancelTimeout = 5 * time.Second

// NewSimplifyCommand creates the simplify command.
func NewSimplifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimplifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simplify",
		Short: "Start a simplification job and follow it",
		Long: `Check eligibility, submit a paper for simplification and follow the
job until it completes, fails or is cancelled.

Progress notifications are printed as they arrive (to stderr with
--format json). Ctrl-C cancels the job on the server.

When --db (or store.path / JOBWATCH_DB) is set every lifecycle event is
appended to that SQLite event log; see "jobwatch history".

Examples:
  jobwatch simplify --external-id W2741809807 --title "Attention Is All You Need" \
    --author "A. Vaswani" --year 2017 --level intermediate
  jobwatch simplify --external-id W1 --title "Paper" --source scholar --db ./events.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimplify(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Paper.ExternalID, "external-id", "", "source document id (required)")
	_ = cmd.MarkFlagRequired("external-id")
	f.StringVar(&opts.Paper.Title, "title", "", "paper title (required)")
	_ = cmd.MarkFlagRequired("title")
	f.StringVar(&opts.Source, "source", string(apiclient.SourceOpenAlex), "catalogue the paper comes from (openalex|scholar)")
	f.StringVar(&opts.Paper.ReadingLevel, "level", "intermediate", "target reading level")
	f.StringArrayVar(&opts.Paper.Authors, "author", nil, "author name (repeatable)")
	f.IntVar(&opts.Paper.Year, "year", 0, "publication year")
	f.StringVar(&opts.Paper.Abstract, "abstract", "", "paper abstract")
	f.StringVar(&opts.Paper.PDFURL, "pdf-url", "", "direct PDF link")
	f.StringVar(&opts.Paper.LandingPageURL, "landing-page-url", "", "publisher landing page")
	f.StringVar(&opts.Paper.DOI, "doi", "", "DOI")
	f.IntVar(&opts.Citations, "citations", 0, "citation count")
	f.Float64Var(&opts.Rating, "rating", 0, "paper rating")
	f.StringVar(&opts.Paper.CategoryName, "category", "", "category name")
	f.StringVar(&opts.Database, "db", "", "SQLite event log path (overrides config)")

	return cmd
}

func runSimplify(opts *SimplifyOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.Config()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), err)
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	paper := opts.Paper
	paper.Source = apiclient.Source(opts.Source)
	if cmd.Flags().Changed("citations") {
		n := opts.Citations
		paper.CitationCount = &n
	}
	if cmd.Flags().Changed("rating") {
		r := opts.Rating
		paper.Rating = &r
	}

	// Notifications go to stderr in JSON mode so stdout stays parseable.
	var notes io.Writer = cmd.OutOrStdout()
	if opts.Format == "json" {
		notes = cmd.ErrOrStderr()
	}

	outcome := &outcomeRecorder{}
	engineOpts := []tracker.Option{
		tracker.WithPollPolicy(cfg.PollPolicy()),
		tracker.WithLogger(logger),
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	var recorder tracker.Recorder = outcome
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open event log", err)
		}
		defer st.Close()

		seq, err := st.MaxSeq(context.Background())
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read event log", err)
		}
		engineOpts = append(engineOpts, tracker.WithClock(tracker.NewClockAt(seq)))
		recorder = tracker.MultiRecorder(outcome, st)
		formatter.VerboseLog("recording lifecycle events to %s", dbPath)
	}
	engineOpts = append(engineOpts, tracker.WithRecorder(recorder))

	engine := tracker.New(newClient(cfg), notify.NewConsole(notes), notify.NewConsoleRouter(notes), engineOpts...)
	defer engine.Cleanup()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobID, err := engine.StartSimplification(sigCtx, paper)
	if err != nil {
		return failStart(formatter, err)
	}
	formatter.VerboseLog("job %s started", jobID)

	select {
	case <-engine.Done():
	case <-sigCtx.Done():
		ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
		engine.CancelJob(ctx, jobID)
		cancel()
		engine.Wait()
	}

	return reportOutcome(formatter, cmd, jobID, paper.Title, outcome.terminal())
}

// failStart maps a launch error to the CLI error codes.
func failStart(formatter *OutputFormatter, err error) error {
	var re *tracker.RuntimeError
	if !errors.As(err, &re) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}

	code := ErrCodeSubmitFailed
	switch re.Code {
	case tracker.ErrCodeIneligible:
		code = ErrCodeIneligible
	case tracker.ErrCodeRateLimited:
		code = ErrCodeRateLimited
	case tracker.ErrCodeInvalidOptions:
		code = ErrCodeInvalidOptions
	}
	return formatter.Fail(ExitFailure, code, re.Message, err)
}

func reportOutcome(formatter *OutputFormatter, cmd *cobra.Command, jobID, title string, ev *tracker.LifecycleEvent) error {
	if ev == nil {
		return formatter.Fail(ExitFailure, ErrCodeJobCancelled, "job stopped before reaching a final state", nil)
	}

	switch ev.Kind {
	case tracker.EventCompleted:
		res := SimplifyResult{JobID: jobID, Title: ev.Title, ArticleID: ev.ArticleID, Message: ev.Message}
		if ev.ArticleID != "" {
			res.Path = tracker.ArticlePath(ev.ArticleID)
		}
		if formatter.Format == "json" {
			return formatter.Success(res)
		}
		if res.Path != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "job %s completed: %s\n", jobID, res.Path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "job %s completed\n", jobID)
		}
		return nil
	case tracker.EventCancelled:
		return formatter.Fail(ExitFailure, ErrCodeJobCancelled, fmt.Sprintf("simplification of %q cancelled", title), nil)
	default:
		return formatter.Fail(ExitFailure, ErrCodeJobFailed, ev.Message, nil)
	}
}

// outcomeRecorder keeps the terminal event of the followed job.
type outcomeRecorder struct {
	mu sync.Mutex
	ev *tracker.LifecycleEvent
}

func (o *outcomeRecorder) Record(ctx context.Context, ev tracker.LifecycleEvent) error {
	if !ev.Kind.Terminal() {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ev == nil {
		o.ev = &ev
	}
	return nil
}

func (o *outcomeRecorder) terminal() *tracker.LifecycleEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ev
}
