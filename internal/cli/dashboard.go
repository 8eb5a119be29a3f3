package cli

import (
	"github.com/spf13/cobra"

	"github.com/pharmetric/rxtrend/internal/dashboard"
)

// DashboardOptions holds flags for the dashboard command.
type DashboardOptions struct {
	*RootOptions
	OutDir string
}

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DashboardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dashboard <suite.yaml>",
		Short: "Render a YAML-defined chart suite",
		Long: `Render every chart named in a YAML suite file in one batch.

The suite is validated against a schema before execution. Charts fail
independently: one broken chart is skipped and reported, the rest are
still rendered.

Example:
  rxtrend dashboard --db rx.db monthly-review.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OutDir, "out", "", "artifact output directory (overrides the suite)")

	return cmd
}

func runDashboard(opts *DashboardOptions, suitePath string, cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	suite, err := dashboard.Load(suitePath)
	if err != nil {
		return domainExit("invalid suite", err)
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	// Output dir precedence: flag, suite, config
	outDir := opts.OutDir
	if outDir == "" {
		outDir = suite.Output
	}
	renderer, err := opts.newRenderer(outDir)
	if err != nil {
		return err
	}

	result, err := dashboard.Execute(ctx, st, renderer, suite)
	if err != nil {
		return domainExit("suite execution failed", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(result)
	}

	printer := opts.printer(cmd)
	printer.Header("Suite " + result.Suite)
	for _, a := range result.Written {
		printer.Success("wrote %s", a.Path)
	}
	for _, s := range result.Skipped {
		printer.Warning("skipped %s: %s", s.Type, s.Reason)
	}

	if len(result.Written) == 0 && len(result.Skipped) > 0 {
		return NewExitError(ExitFailure, "no charts rendered")
	}
	return nil
}
