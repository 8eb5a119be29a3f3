package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmetric/rxtrend/internal/output"
	"github.com/pharmetric/rxtrend/internal/trend"
)

// TrendsOptions holds flags for the trends command.
type TrendsOptions struct {
	*RootOptions
	Medication string
	Window     time.Duration
	From       string
	To         string
}

// NewTrendsCommand creates the trends command.
func NewTrendsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrendsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Aggregate stored events into adherence trend buckets",
		Long: `Aggregate stored adherence events into fixed-size time windows and
print the buckets as a table or JSON.

When --from/--to are omitted the range covers all matching stored events.

Example:
  rxtrend trends --db rx.db --medication med-0042 --window 168h
  rxtrend trends --db rx.db --from 2025-06-01 --to 2025-06-29 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrends(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Medication, "medication", "", "medication ID filter (default all)")
	cmd.Flags().DurationVar(&opts.Window, "window", 0, "bucket window size, e.g. 24h, 168h")
	cmd.Flags().StringVar(&opts.From, "from", "", "range start (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "range end, exclusive")

	return cmd
}

func runTrends(opts *TrendsOptions, cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	dateRange, err := resolveRange(ctx, st, opts.Medication, opts.From, opts.To)
	if err != nil {
		return err
	}
	window := opts.resolveWindow(opts.Window)

	formatter := opts.formatter(cmd)
	formatter.VerboseLog("aggregating %s windows over %s..%s",
		window, dateRange.Start.Format(time.RFC3339), dateRange.End.Format(time.RFC3339))

	buckets, err := trend.ComputeTrends(ctx, st, opts.Medication, window, dateRange)
	if err != nil {
		return domainExit("failed to aggregate trends", err)
	}

	if opts.Format == "json" {
		return formatter.Success(buckets)
	}

	table := output.NewTable(cmd.OutOrStdout(), []string{"WINDOW START", "WINDOW END", "SCHEDULED", "TAKEN", "RATE"})
	for _, b := range buckets {
		rate := "-"
		if b.Rate != nil {
			rate = fmt.Sprintf("%.1f%%", *b.Rate*100)
		}
		table.AddRow([]string{
			b.WindowStart.Format("2006-01-02 15:04"),
			b.WindowEnd.Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", b.Scheduled),
			fmt.Sprintf("%d", b.Taken),
			rate,
		})
	}
	table.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "%d buckets (window %s)\n", len(buckets), window)
	return nil
}
