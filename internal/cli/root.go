// Package cli wires the rxtrend commands: ingest, aggregation, chart
// rendering, reporting, and the artifact viewer.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmetric/rxtrend/internal/adherence"
	"github.com/pharmetric/rxtrend/internal/config"
	"github.com/pharmetric/rxtrend/internal/output"
	"github.com/pharmetric/rxtrend/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	DB         string
	ConfigFile string
	NoColor    bool

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rxtrend CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// Run executes the CLI with args and returns the process exit code.
// Failures are rendered in the selected output format: the JSON error
// envelope on stdout for --format json, a category-tagged line on
// stderr otherwise.
func Run(args []string, out, errOut io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	if err := cmd.Execute(); err != nil {
		reportFailure(opts, out, errOut, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// reportFailure emits a failed command's error through the formatter so
// JSON consumers get {status, error: {code, message, details}} instead
// of free text.
func reportFailure(opts *RootOptions, out, errOut io.Writer, err error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   opts.Verbose,
	}
	if formatter.Format != "json" {
		// Text errors belong on stderr
		formatter.Writer = formatter.GetErrWriter()
	}

	category := adherence.ErrorCategory(err)
	if category == "" {
		category = "error"
	}

	message := err.Error()
	var details interface{}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err != nil {
		message = exitErr.Message
		details = exitErr.Err.Error()
	}

	_ = formatter.Error(category, message, details)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rxtrend",
		Short: "Medication adherence trends",
		Long: `rxtrend loads medication adherence events into SQLite, aggregates
them into time-windowed trends, and renders HTML chart artifacts.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			// Unset flags fall back to config
			if opts.DB == "" {
				opts.DB = cfg.DB
			}
			if opts.Format == "" {
				opts.Format = cfg.Output.Format
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			logLevel := slog.LevelInfo
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default .rxtrend.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewTrendsCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewDashboardCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Config returns the resolved configuration (set by PersistentPreRunE).
func (o *RootOptions) Config() *config.Config {
	return o.cfg
}

// formatter builds the OutputFormatter for a command invocation.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// printer builds the color-aware terminal printer for a command.
func (o *RootOptions) printer(cmd *cobra.Command) *output.Printer {
	useColors := output.ResolveColors(o.NoColor)
	return output.NewPrinterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), useColors)
}

// openStore opens the configured SQLite database, creating it if absent.
func (o *RootOptions) openStore() (*store.Store, error) {
	st, err := store.Open(o.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// closeStore closes the store, logging rather than failing on error.
func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// signalContext derives a context cancelled on SIGINT/SIGTERM. Uses the
// command's context as parent so tests can cancel from outside.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// domainExit maps a domain error onto an exit code: validation failures
// are usage errors (2), everything else is a runtime failure (1). The
// error category travels in the message for the text output path.
func domainExit(message string, err error) error {
	code := ExitFailure
	if adherence.IsValidationError(err) {
		code = ExitCommandError
	}
	return WrapExitError(code, fmt.Sprintf("%s (%s)", message, adherence.ErrorCategory(err)), err)
}

// resolveRange determines the aggregation date range: both --from and
// --to when given, otherwise the span of matching stored events.
func resolveRange(ctx context.Context, st *store.Store, medicationID, from, to string) (adherence.DateRange, error) {
	switch {
	case from != "" && to != "":
		start, err := adherence.ParseTime(from)
		if err != nil {
			return adherence.DateRange{}, domainExit("invalid --from", err)
		}
		end, err := adherence.ParseTime(to)
		if err != nil {
			return adherence.DateRange{}, domainExit("invalid --to", err)
		}
		return adherence.DateRange{Start: start, End: end}, nil
	case from != "" || to != "":
		return adherence.DateRange{}, NewExitError(ExitCommandError, "--from and --to must be given together")
	}

	span, ok, err := st.EventSpan(ctx, adherence.EventFilter{MedicationID: medicationID})
	if err != nil {
		return adherence.DateRange{}, domainExit("failed to determine date range", err)
	}
	if !ok {
		return adherence.DateRange{}, NewExitError(ExitFailure, "no events in store: load data or pass --from/--to")
	}
	slog.Debug("derived date range from stored events",
		"start", span.Start.Format(time.RFC3339), "end", span.End.Format(time.RFC3339))
	return span, nil
}

// resolveWindow applies the configured default when --window is unset.
func (o *RootOptions) resolveWindow(window time.Duration) time.Duration {
	if window > 0 {
		return window
	}
	return o.cfg.Trends.Window
}
