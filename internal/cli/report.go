package cli

import (
	"github.com/spf13/cobra"

	"github.com/pharmetric/rxtrend/internal/report"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Threshold float64
	Limit     int
	XLSX      string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the cohort adherence report",
		Long: `Print per-patient adherence, the category breakdown, and the
intervention shortlist. --xlsx additionally exports the same tables to
an XLSX workbook.

Example:
  rxtrend report --db rx.db
  rxtrend report --db rx.db --threshold 80 --xlsx adherence.xlsx`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "intervention threshold in percent (default 75)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "intervention shortlist cap (default 20)")
	cmd.Flags().StringVar(&opts.XLSX, "xlsx", "", "also write the report to this XLSX file")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	rep, err := report.Build(ctx, st, report.Options{
		Threshold: opts.Threshold,
		Limit:     opts.Limit,
	})
	if err != nil {
		return domainExit("failed to build report", err)
	}

	if opts.XLSX != "" {
		if err := report.WriteXLSX(opts.XLSX, rep); err != nil {
			return WrapExitError(ExitFailure, "failed to write XLSX report", err)
		}
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(rep)
	}

	report.WriteText(cmd.OutOrStdout(), rep)
	if opts.XLSX != "" {
		opts.printer(cmd).Success("wrote %s", opts.XLSX)
	}
	return nil
}
