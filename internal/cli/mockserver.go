package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/jobwatch/internal/mockapi"
)

// MockServerOptions holds flags for the mock-server command.
type MockServerOptions struct {
	*RootOptions
	Addr          string
	MaxConcurrent int
	MaxDaily      int
	Steps         int
	Legacy        bool
}

// NewMockServerCommand creates the mock-server command.
func NewMockServerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MockServerOptions{RootOptions: rootOpts}
	defaults := mockapi.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a simulated reading API",
		Long: `Serve the four job endpoints under /api from memory.

Each status poll advances a job one step; after --steps polls it completes.
Papers whose external id starts with "fail:" fail halfway. The --token
flag, when set, is required as a bearer token.

Examples:
  jobwatch mock-server --addr :8080
  jobwatch mock-server --max-concurrent 1 --steps 10`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMockServer(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&opts.MaxConcurrent, "max-concurrent", defaults.MaxConcurrent, "concurrent job limit (0 = unlimited)")
	cmd.Flags().IntVar(&opts.MaxDaily, "max-daily", defaults.MaxDaily, "daily job limit (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Steps, "steps", defaults.Steps, "status polls until a job completes")
	cmd.Flags().BoolVar(&opts.Legacy, "legacy-status", false, `report job state as "status" instead of "state"`)

	return cmd
}

func runMockServer(opts *MockServerOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.Config()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), err)
	}

	srv := mockapi.New(mockapi.Options{
		MaxConcurrent:     opts.MaxConcurrent,
		MaxDaily:          opts.MaxDaily,
		Steps:             opts.Steps,
		Token:             opts.Token,
		LegacyStatusField: opts.Legacy,
		Logger:            newLogger(cfg, cmd.ErrOrStderr()),
	})

	return serveUntilSignal(srv, opts.Addr, formatter)
}

func serveUntilSignal(srv *mockapi.Server, addr string, formatter *OutputFormatter) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	select {
	case err := <-errCh:
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "mock server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "mock server shutdown failed", err)
	}
	return <-errCh
}
