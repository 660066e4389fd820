// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gscientist/internal/export"
	"github.com/pdiddy/gscientist/internal/search"
	"github.com/pdiddy/gscientist/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <query.yaml>",
	Short: "Re-run a saved query on a schedule",
	Long: `Watch re-runs a query saved with --save-query on a cron schedule
("0 6 * * *", "@daily", "@every 12h"), exports the fresh results, and
updates the query file. It runs until interrupted. With --once the query
runs a single time and watch exits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		schedule, _ := cmd.Flags().GetString("schedule")
		once, _ := cmd.Flags().GetBool("once")
		output, _ := cmd.Flags().GetString("output")

		job := watch.Job{QueryFile: args[0], Output: output}
		if name, _ := cmd.Flags().GetString("format"); name != "" {
			f, err := export.ParseFormat(name)
			if err != nil {
				return err
			}
			job.Format = f
		}

		w := watch.New(runSavedQuery, logger.With().Str("component", "watch").Logger())
		if once {
			return w.RunOnce(ctx, job)
		}
		if _, err := w.Add(ctx, schedule, job); err != nil {
			return err
		}
		return w.Run(ctx)
	},
}

// runSavedQuery runs a stored query with the configured source settings,
// overridden by the pagination settings saved in the file.
func runSavedQuery(ctx context.Context, qf *search.QueryFile) (search.Result, error) {
	q, err := qf.Query.ToQuery()
	if err != nil {
		return search.Result{}, err
	}
	settings := settingsFor(qf.Source, cfg)
	stored := qf.Config.EngineConfig()
	if stored.MaxResults > 0 {
		settings.Engine.MaxResults = stored.MaxResults
	}
	if stored.BatchSize > 0 {
		settings.Engine.BatchSize = stored.BatchSize
	}
	if stored.Segments > 0 {
		settings.Engine.Segments = stored.Segments
	}

	src, err := newSource(ctx, settings, cfg, logger)
	if err != nil {
		return search.Result{}, err
	}
	engine := search.NewEngine(src, settings.Engine, search.WithEngineLogger(logger))
	return engine.Search(ctx, q)
}

func init() {
	watchCmd.Flags().String("schedule", "@daily", "cron schedule")
	watchCmd.Flags().String("output", "", "export results to this file after every run")
	watchCmd.Flags().String("format", "", "export format: csv, json, yaml, excel, csl (default: from extension)")
	watchCmd.Flags().Bool("once", false, "run the query once and exit")

	rootCmd.AddCommand(watchCmd)
}
