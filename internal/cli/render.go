package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmetric/rxtrend/internal/adherence"
	"github.com/pharmetric/rxtrend/internal/chart"
	"github.com/pharmetric/rxtrend/internal/output"
	"github.com/pharmetric/rxtrend/internal/store"
	"github.com/pharmetric/rxtrend/internal/trend"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Medication string
	Window     time.Duration
	From       string
	To         string
	Charts     []string
	OutDir     string
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render chart artifacts from stored events",
		Long: `Render HTML chart artifacts from events already in the store.

Bucket charts (line, bar) plot time-windowed adherence; cohort charts
(condition-bar, age-hist, category-pie, drug-bar) summarize the whole
cohort. A chart that cannot be rendered is skipped and the rest proceed.

Example:
  rxtrend render --db rx.db --charts line,bar --out ./artifacts
  rxtrend render --db rx.db --medication med-0042 --charts line,category-pie`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Medication, "medication", "", "medication ID filter (default all)")
	cmd.Flags().DurationVar(&opts.Window, "window", 0, "bucket window size, e.g. 24h, 168h")
	cmd.Flags().StringVar(&opts.From, "from", "", "range start (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "range end, exclusive")
	cmd.Flags().StringSliceVar(&opts.Charts, "charts", []string{chart.TypeLine, chart.TypeBar}, "chart types to render")
	cmd.Flags().StringVar(&opts.OutDir, "out", "", "artifact output directory")

	return cmd
}

func runRender(opts *RenderOptions, cmd *cobra.Command) error {
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

	renderer, err := opts.newRenderer(opts.OutDir)
	if err != nil {
		return err
	}

	printer := opts.printer(cmd)
	written, skipped, err := renderCharts(ctx, st, renderer, printer, chartRequest{
		Medication: opts.Medication,
		Window:     opts.resolveWindow(opts.Window),
		Range:      dateRange,
		Types:      opts.Charts,
	})
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(map[string]any{
			"written": written,
			"skipped": skipped,
		})
	}

	for _, a := range written {
		printer.Success("wrote %s", a.Path)
	}
	if len(written) == 0 {
		return NewExitError(ExitFailure, "no charts rendered")
	}
	return nil
}

// newRenderer resolves the artifact directory (flag over config) and
// creates the renderer.
func (o *RootOptions) newRenderer(outDir string) (*chart.Renderer, error) {
	if outDir == "" {
		outDir = o.cfg.Output.Dir
	}
	renderer, err := chart.NewRenderer(outDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create output directory", err)
	}
	return renderer, nil
}

// chartRequest names one batch of charts to render.
type chartRequest struct {
	Medication string
	Window     time.Duration
	Range      adherence.DateRange
	Types      []string
}

// chartSkip records one chart that failed to render.
type chartSkip struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// renderCharts renders the requested chart types. Trend buckets are
// computed once and shared by the bucket charts; the cohort summary is
// computed once, and only if a cohort chart asks for it. Render and
// validation failures skip that chart; storage failures abort.
func renderCharts(ctx context.Context, st *store.Store, renderer *chart.Renderer, printer *output.Printer, req chartRequest) ([]chart.Artifact, []chartSkip, error) {
	var (
		written []chart.Artifact
		skipped []chartSkip

		buckets     []adherence.TrendBucket
		bucketsDone bool
		cohort      trend.CohortSummary
		cohortDone  bool
	)

	for _, chartType := range req.Types {
		var (
			artifact chart.Artifact
			err      error
		)

		switch {
		case chart.IsBucketType(chartType):
			if !bucketsDone {
				buckets, err = trend.ComputeTrends(ctx, st, req.Medication, req.Window, req.Range)
				if err != nil {
					if adherence.IsStorageError(err) {
						return written, skipped, domainExit("failed to aggregate trends", err)
					}
					skipped = append(skipped, chartSkip{Type: chartType, Reason: err.Error()})
					printer.Warning("skipping %s: %v", chartType, err)
					continue
				}
				bucketsDone = true
			}
			artifact, err = renderer.Render(buckets, chartType)

		case chart.IsCohortType(chartType):
			if !cohortDone {
				cohort, err = trend.ComputeCohortSummary(ctx, st)
				if err != nil {
					return written, skipped, domainExit("failed to summarize cohort", err)
				}
				cohortDone = true
			}
			artifact, err = renderer.RenderCohort(cohort, chartType)

		default:
			err = adherence.NewRenderError(chartType, fmt.Sprintf("unknown chart type, expected one of %v or %v", chart.BucketTypes, chart.CohortTypes))
		}

		if err != nil {
			skipped = append(skipped, chartSkip{Type: chartType, Reason: err.Error()})
			printer.Warning("skipping %s: %v", chartType, err)
			continue
		}

		slog.Debug("chart rendered", "type", chartType, "path", artifact.Path)
		written = append(written, artifact)
	}

	return written, skipped, nil
}
