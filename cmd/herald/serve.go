package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eringen/herald"
)

var flagNoBuild bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site with the build console, webhook and metrics",
	Long: `serve starts a build in the background and serves the output directory.
The console lives under /admin/ when admin_password is set, the rebuild
webhook at POST /hooks/rebuild when webhook_token is set, and Prometheus
metrics at /metrics. rebuild_schedule adds periodic rebuilds.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: :3000)")
	serveCmd.Flags().String("output", "", "output directory (default: public)")
	serveCmd.Flags().String("database", "", "build history database (default: data/herald.db)")
	serveCmd.Flags().BoolVar(&flagNoBuild, "no-build", false, "serve the existing output without building first")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := herald.New(config, newClient(config, logger), herald.WithLogger(logger))
	defer app.Close()

	if err := app.Setup(); err != nil {
		return err
	}
	if !flagNoBuild {
		if err := app.Rebuild("startup"); err != nil {
			return err
		}
	}
	return app.Start(ctx)
}
