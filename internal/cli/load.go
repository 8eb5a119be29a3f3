package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmetric/rxtrend/internal/ingest"
	"github.com/pharmetric/rxtrend/internal/output"
	"github.com/pharmetric/rxtrend/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Events      string
	Patients    string
	Medications string
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Ingest adherence CSV files into the store",
		Long: `Ingest CSV files into the SQLite store.

Event files need patient_id, medication_id and scheduled_at columns;
taken_at and source are optional, and a blank taken_at means a missed
dose. Malformed rows are skipped, counted, and reported; a malformed
header rejects the whole file.

Example:
  rxtrend load --db rx.db --events doses.csv
  rxtrend load --db rx.db --patients patients.csv --medications meds.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Events == "" && opts.Patients == "" && opts.Medications == "" {
				return NewExitError(ExitCommandError, "nothing to load: pass --events, --patients or --medications")
			}
			return runLoad(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Events, "events", "", "adherence event CSV file")
	cmd.Flags().StringVar(&opts.Patients, "patients", "", "patient dimension CSV file")
	cmd.Flags().StringVar(&opts.Medications, "medications", "", "medication dimension CSV file")

	return cmd
}

func runLoad(opts *LoadOptions, cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	results, err := loadFiles(ctx, st, opts.Patients, opts.Medications, opts.Events)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(results)
	}

	printer := opts.printer(cmd)
	for _, r := range results {
		reportLoad(printer, r)
	}
	return nil
}

// loadFiles ingests the given dimension and event files, dimensions
// first so events land against known patients and medications. Empty
// paths are skipped.
func loadFiles(ctx context.Context, st *store.Store, patients, medications, events string) ([]ingest.LoadResult, error) {
	loader := ingest.NewLoader(st)
	results := make([]ingest.LoadResult, 0, 3)

	if patients != "" {
		r, err := loader.LoadPatients(ctx, patients)
		if err != nil {
			return results, domainExit(fmt.Sprintf("failed to load %s", patients), err)
		}
		results = append(results, r)
	}
	if medications != "" {
		r, err := loader.LoadMedications(ctx, medications)
		if err != nil {
			return results, domainExit(fmt.Sprintf("failed to load %s", medications), err)
		}
		results = append(results, r)
	}
	if events != "" {
		r, err := loader.LoadEvents(ctx, events)
		if err != nil {
			return results, domainExit(fmt.Sprintf("failed to load %s", events), err)
		}
		results = append(results, r)
	}

	return results, nil
}

// reportLoad prints one load result, row errors included.
func reportLoad(printer *output.Printer, r ingest.LoadResult) {
	if r.Skipped == 0 {
		printer.Success("%s: %d rows loaded", r.SourcePath, r.Inserted)
	} else {
		printer.Warning("%s: %d rows loaded, %d skipped", r.SourcePath, r.Inserted, r.Skipped)
	}
	for _, rowErr := range r.RowErrors {
		printer.Warning("  %s", rowErr.Message())
	}
}
