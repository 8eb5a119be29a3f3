package cli

import (
	"github.com/spf13/cobra"
)

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check store integrity against ingest provenance",
		Long: `Verify the event log against its ingest provenance: per-batch
insert counts, events referencing unknown batches, and timestamp
round-trips. Exits non-zero when anything is inconsistent.

Example:
  rxtrend audit --db rx.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, cmd)
		},
	}

	return cmd
}

func runAudit(opts *RootOptions, cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	report, err := st.Audit(ctx)
	if err != nil {
		return domainExit("audit failed", err)
	}

	if opts.Format == "json" {
		if err := opts.formatter(cmd).Success(report); err != nil {
			return err
		}
	} else {
		printer := opts.printer(cmd)
		printer.Header("Store audit")
		printer.Print("  events:               %d", report.Events)
		printer.Print("  batches:              %d", report.Batches)
		printer.Print("  orphan events:        %d", report.OrphanEvents)
		printer.Print("  malformed timestamps: %d", report.MalformedTimestamps)
		for _, b := range report.Inconsistent {
			printer.Error("batch %s (%s): recorded %d, actual %d", b.BatchID, b.SourcePath, b.Recorded, b.Actual)
		}
		if report.Clean() {
			printer.Success("store is consistent")
		}
	}

	if !report.Clean() {
		return NewExitError(ExitFailure, "audit found inconsistencies")
	}
	return nil
}
