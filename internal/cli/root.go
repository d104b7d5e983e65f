package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Option configures the command tree.
type Option func(*app)

// WithOutput redirects rendered output and logs.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *app) {
		a.out, a.errOut = out, errOut
	}
}

// WithClock fixes the service clock.
func WithClock(clock func() time.Time) Option {
	return func(a *app) {
		a.clock = clock
	}
}

// NewRootCmd builds the fintrack command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(a)
	}
	return newRoot(a)
}

func newRoot(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Personal finance tracker with recurring budgets",
		Long: `fintrack records income and expenses, tracks spending against a
budget plan that resets every day, week, month or year, and charts income
against expenses.

Configuration comes from fintrack.toml (or FINTRACK_CONFIG), .env and the
environment. DATA_BACKEND selects memory, file or sqlite storage.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		newAddCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newSummaryCmd(a),
		newBudgetCmd(a),
		newChartCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newEventsCmd(a),
	)
	return root
}

// Execute runs the command line with args and returns the process exit code.
// The backend is closed even when the command fails.
func Execute(ctx context.Context, args []string, opts ...Option) int {
	a := &app{out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(a)
	}
	root := newRoot(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		root.PrintErrln("Error:", err)
		return 1
	}
	return 0
}
