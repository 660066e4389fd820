// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gscientist/internal/export"
	"github.com/pdiddy/gscientist/internal/project"
	"github.com/pdiddy/gscientist/internal/search"
	"github.com/pdiddy/gscientist/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search arXiv for papers",
	Long: `Search queries the arXiv API in batches. When a date range is given it is
split into segments searched in order, so large result sets are not cut off
by the API's paging limits. Results are deduplicated and sorted by
publication date, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args, types.SourceArxiv)
	},
}

var scholarCmd = &cobra.Command{
	Use:   "scholar [query]",
	Short: "Search Google Scholar for papers",
	Long: `Scholar scrapes Google Scholar result pages, ten results per page. A date
range is translated to Scholar's year filter. With scholar.proxy.enabled the
requests rotate through a validated proxy pool, and with
scholar.save_batches every page is appended to a CSV as it arrives.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args, types.SourceScholar)
	},
}

func runSearch(cmd *cobra.Command, args []string, kind types.Source) error {
	ctx := cmd.Context()

	q := queryFromFlags(cmd, args)
	settings := settingsFor(kind, cfg)
	applyEngineFlags(cmd, &settings)

	src, err := newSource(ctx, settings, cfg, logger)
	if err != nil {
		return err
	}

	var sinks multiSink
	var proj *projectTarget
	if ref, _ := cmd.Flags().GetString("project"); ref != "" {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		proj, err = resolveTarget(ctx, store, ref)
		if err != nil {
			return err
		}
		sinks = append(sinks, store.Sink(ctx, proj.Project.ID))
	}
	if kind == types.SourceScholar && cfg.Scholar.SaveBatches {
		sinks = append(sinks, export.NewBatchAppender(cfg.Scholar.BatchFile))
		logger.Info().Str("file", cfg.Scholar.BatchFile).Msg("appending batches")
	}

	opts := []search.EngineOption{search.WithEngineLogger(logger)}
	if len(sinks) > 0 {
		opts = append(opts, search.WithSink(sinks))
	}
	engine := search.NewEngine(src, settings.Engine, opts...)

	res, err := engine.Search(ctx, q)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if err := search.FormatJSON(res, os.Stdout); err != nil {
			return err
		}
	} else {
		search.FormatTable(res, os.Stdout)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" && proj != nil {
		output = filepath.Join(proj.Folder.Path, defaultResultName(kind, time.Now()))
	}
	if output != "" {
		if err := exportResults(cmd, res.Papers, output); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d papers to %s\n", len(res.Papers), output)
	}

	if saveQuery, _ := cmd.Flags().GetString("save-query"); saveQuery != "" {
		if err := search.WriteQueryFile(saveQuery, kind, q, settings.Engine, res); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved query to %s\n", saveQuery)
	}
	return nil
}

func queryFromFlags(cmd *cobra.Command, args []string) search.Query {
	text, _ := cmd.Flags().GetString("query")
	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}
	categories, _ := cmd.Flags().GetStringSlice("categories")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return search.Query{
		Text:       text,
		Categories: categories,
		StartDate:  from,
		EndDate:    to,
	}
}

// applyEngineFlags overrides the configured settings with flags the user
// set explicitly.
func applyEngineFlags(cmd *cobra.Command, s *sourceSettings) {
	flags := cmd.Flags()
	if flags.Changed("max-results") {
		s.Engine.MaxResults, _ = flags.GetInt("max-results")
	}
	if flags.Changed("batch-size") {
		s.Engine.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("segments") {
		s.Engine.Segments, _ = flags.GetInt("segments")
	}
	if flags.Lookup("sort-by") != nil && flags.Changed("sort-by") {
		s.SortBy, _ = flags.GetString("sort-by")
	}
	if flags.Lookup("sort-order") != nil && flags.Changed("sort-order") {
		s.SortOrder, _ = flags.GetString("sort-order")
	}
}

// exportResults writes papers to path in the --format format, or the one
// implied by the file extension.
func exportResults(cmd *cobra.Command, papers []types.Paper, path string) error {
	f := export.FormatForPath(path)
	if name, _ := cmd.Flags().GetString("format"); name != "" {
		parsed, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		f = parsed
	}
	return export.Write(papers, path, f)
}

func defaultResultName(kind types.Source, now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", kind, now.Format("20060102-150405"))
}

// projectTarget is where a search run files its results.
type projectTarget struct {
	Project types.Project
	Folder  types.Folder
}

// resolveTarget finds the project by name or id and its literature folder.
func resolveTarget(ctx context.Context, store *project.Store, ref string) (*projectTarget, error) {
	p, err := store.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", ref, err)
	}
	f, err := store.FolderByName(ctx, p.ID, types.DefaultFolders[0])
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", ref, err)
	}
	return &projectTarget{Project: p, Folder: f}, nil
}

func addSearchFlags(cmd *cobra.Command, maxResults, batchSize int) {
	cmd.Flags().String("query", "", "search text (default: positional arguments)")
	cmd.Flags().String("from", "", "start of the date range (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end of the date range (YYYY-MM-DD)")
	cmd.Flags().Int("max-results", maxResults, "maximum number of merged results")
	cmd.Flags().Int("batch-size", batchSize, "results per request")
	cmd.Flags().String("output", "", "export results to this file")
	cmd.Flags().String("format", "", "export format: csv, json, yaml, excel, csl (default: from extension)")
	cmd.Flags().Bool("json", false, "print results as JSON instead of a table")
	cmd.Flags().String("project", "", "save results into this project (name or id)")
	cmd.Flags().String("save-query", "", "save the query and its results to this YAML file")
}

func init() {
	a := types.DefaultArxivConfig()
	addSearchFlags(searchCmd, a.MaxResults, a.BatchSize)
	searchCmd.Flags().StringSlice("categories", nil, "arXiv categories, e.g. cs.LG,stat.ML")
	searchCmd.Flags().Int("segments", a.Segments, "number of date segments for bounded searches")
	searchCmd.Flags().String("sort-by", a.SortBy, "relevance, lastUpdatedDate, or submittedDate")
	searchCmd.Flags().String("sort-order", a.SortOrder, "ascending or descending")

	s := types.DefaultScholarConfig()
	addSearchFlags(scholarCmd, s.MaxResults, s.BatchSize)

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(scholarCmd)
}
