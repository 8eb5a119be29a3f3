package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pharmetric/rxtrend/internal/viewer"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Dir  string
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered chart artifacts over HTTP",
		Long: `Serve previously rendered chart artifacts for local browsing.

The server is read-only: a JSON index at /artifacts, the HTML files
under /artifacts/<name>, and /healthz. Ctrl-C stops it.

Example:
  rxtrend serve --dir ./artifacts --addr :8321`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "artifact directory to serve")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	cfg := opts.Config()
	dir := opts.Dir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	addr := opts.Addr
	if addr == "" {
		addr = cfg.Viewer.Addr
	}

	slog.Info("viewer starting", "addr", addr, "dir", dir)
	printer := opts.printer(cmd)
	printer.Info("Serving artifacts from %s on %s", dir, addr)
	printer.Info("Press Ctrl-C to stop.")

	if err := viewer.New(dir).Start(ctx, addr); err != nil {
		return WrapExitError(ExitFailure, "viewer error", err)
	}

	slog.Info("viewer stopped")
	return nil
}
