package cli

import (
	"github.com/spf13/cobra"

	"github.com/pharmetric/rxtrend/internal/seed"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Seed     int64
	Patients int
	Days     int
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate a deterministic synthetic cohort",
		Long: `Generate a synthetic patient cohort with medications and daily dose
events and load it into the store. The same seed always produces the
same rows, so seeded databases are reproducible.

Example:
  rxtrend seed --db demo.db
  rxtrend seed --db demo.db --seed 7 --patients 100 --days 60`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "RNG seed (default from config, 42)")
	cmd.Flags().IntVar(&opts.Patients, "patients", 0, "cohort size (default from config, 500)")
	cmd.Flags().IntVar(&opts.Days, "days", 0, "days of daily doses per medication (default from config, 30)")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	// Flags over config; seed.Run fills the remaining zeros
	seedOpts := seed.Options{Seed: opts.Seed, Patients: opts.Patients, Days: opts.Days}
	cfg := opts.Config()
	if seedOpts.Seed == 0 {
		seedOpts.Seed = cfg.Seed.Value
	}
	if seedOpts.Patients == 0 {
		seedOpts.Patients = cfg.Seed.Patients
	}
	if seedOpts.Days == 0 {
		seedOpts.Days = cfg.Seed.Days
	}

	result, err := seed.Run(ctx, st, seedOpts)
	if err != nil {
		return domainExit("failed to seed cohort", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(result)
	}

	printer := opts.printer(cmd)
	printer.Success("seeded %d patients, %d medications, %d events (batch %s)",
		result.Patients, result.Medications, result.Events, result.BatchID)
	return nil
}
