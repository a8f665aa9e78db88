package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/herald"
)

var flagNoHistory bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fetch content, resolve pages and write the site",
	Long: `build runs one complete build: every content type is fetched, planned and
registered in order, then the pages are rendered into the output directory.
The output directory is replaced only when the build succeeds.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("output", "", "output directory (default: public)")
	buildCmd.Flags().String("database", "", "build history database (default: data/herald.db)")
	buildCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "do not record the build in the history database")
}

func runBuild(cmd *cobra.Command, args []string) error {
	if err := config.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []herald.PipelineOption{herald.WithPipelineLogger(logger)}
	if !flagNoHistory {
		store, err := herald.NewStore(config.DatabasePath)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		opts = append(opts, herald.WithHistory(store, nil))
	}

	p := herald.NewPipeline(config, newClient(config, logger), opts...)
	res, err := p.Build(ctx)
	if res != nil {
		printBuild(cmd.OutOrStdout(), res)
	}
	return err
}

func printBuild(w io.Writer, res *herald.BuildResult) {
	r := res.Report
	fmt.Fprintf(w, "build %s: %s in %s\n", r.ID, r.State, r.Duration().Round(time.Millisecond))
	for _, t := range r.Types {
		fmt.Fprintf(w, "  %-10s %5d items %5d pages\n", t.Type, t.Items, t.Pages)
	}
	switch {
	case r.Skipped:
		fmt.Fprintln(w, "  no primary content, output left unchanged")
	case r.FailedType != "":
		fmt.Fprintf(w, "  failed on %s\n", r.FailedType)
	}
	if res.Site != nil {
		fmt.Fprintf(w, "  wrote %d pages, %d files to %s\n", res.Site.Pages, len(res.Site.Files), res.Site.Dir)
	}
	if d := res.Diff; d != nil {
		fmt.Fprintf(w, "  %d added, %d removed, %d changed since the previous build\n",
			len(d.Added), len(d.Removed), len(d.Changed))
	}
}
