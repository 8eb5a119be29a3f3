package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmetric/rxtrend/internal/chart"
	"github.com/pharmetric/rxtrend/internal/output"
	"github.com/pharmetric/rxtrend/internal/trend"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Input       string
	Patients    string
	Medications string
	Medication  string
	Window      time.Duration
	From        string
	To          string
	Charts      []string
	OutDir      string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: load, aggregate, render",
		Long: `Run the whole pipeline in one shot: ingest a CSV of adherence
events, aggregate them into time-windowed trend buckets, render the
requested charts, and print a run summary.

--input is optional; without it the pipeline runs against events
already in the store.

Example:
  rxtrend run --db rx.db --input doses.csv --window 168h --out ./artifacts
  rxtrend run --db rx.db --medication med-0042 --charts line,bar,category-pie`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "adherence event CSV file to ingest first")
	cmd.Flags().StringVar(&opts.Patients, "patients", "", "patient dimension CSV file")
	cmd.Flags().StringVar(&opts.Medications, "medications", "", "medication dimension CSV file")
	cmd.Flags().StringVar(&opts.Medication, "medication", "", "medication ID filter (default all)")
	cmd.Flags().DurationVar(&opts.Window, "window", 0, "bucket window size, e.g. 24h, 168h")
	cmd.Flags().StringVar(&opts.From, "from", "", "range start (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "range end, exclusive")
	cmd.Flags().StringSliceVar(&opts.Charts, "charts", []string{chart.TypeLine, chart.TypeBar}, "chart types to render")
	cmd.Flags().StringVar(&opts.OutDir, "out", "", "artifact output directory")

	return cmd
}

func runPipeline(opts *RunOptions, cmd *cobra.Command) error {
	started := time.Now()
	ctx, cancel := signalContext(cmd)
	defer cancel()

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	printer := opts.printer(cmd)

	// Phase 1: ingest
	var loaded, skippedRows int
	if opts.Input != "" || opts.Patients != "" || opts.Medications != "" {
		results, err := loadFiles(ctx, st, opts.Patients, opts.Medications, opts.Input)
		if err != nil {
			return err
		}
		for _, r := range results {
			loaded += r.Inserted
			skippedRows += r.Skipped
			if opts.Format != "json" {
				reportLoad(printer, r)
			}
		}
	}

	// Phase 2 + 3: aggregate and render
	dateRange, err := resolveRange(ctx, st, opts.Medication, opts.From, opts.To)
	if err != nil {
		return err
	}

	renderer, err := opts.newRenderer(opts.OutDir)
	if err != nil {
		return err
	}

	written, skippedCharts, err := renderCharts(ctx, st, renderer, printer, chartRequest{
		Medication: opts.Medication,
		Window:     opts.resolveWindow(opts.Window),
		Range:      dateRange,
		Types:      opts.Charts,
	})
	if err != nil {
		return err
	}

	// Phase 4: summary
	summary, err := trend.ComputeRunSummary(ctx, st)
	if err != nil {
		return domainExit("failed to summarize run", err)
	}
	summary.RecordsLoaded = loaded
	summary.RecordsSkipped = skippedRows
	summary.ChartsWritten = len(written)
	summary.ChartsSkipped = len(skippedCharts)
	summary.Elapsed = time.Since(started).Round(time.Millisecond)

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(map[string]any{
			"summary": summary,
			"written": written,
			"skipped": skippedCharts,
		})
	}

	for _, a := range written {
		printer.Success("wrote %s", a.Path)
	}
	printSummary(printer, summary)

	if len(written) == 0 && len(opts.Charts) > 0 {
		return NewExitError(ExitFailure, "no charts rendered")
	}
	return nil
}

// printSummary renders the run summary block for text output.
func printSummary(printer *output.Printer, s trend.RunSummary) {
	printer.Header("Run summary")
	printer.Print("  patients:          %d", s.TotalPatients)
	printer.Print("  events:            %d", s.TotalEvents)
	printer.Print("  mean adherence:    %.1f%%", s.MeanAdherencePct)
	printer.Print("  need intervention: %d", s.InterventionCount)
	printer.Print("  records loaded:    %d", s.RecordsLoaded)
	printer.Print("  records skipped:   %d", s.RecordsSkipped)
	printer.Print("  charts written:    %d", s.ChartsWritten)
	printer.Print("  charts skipped:    %d", s.ChartsSkipped)
	printer.Print("  elapsed:           %s", s.Elapsed)
}
