// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gscientist/internal/acquire"
	"github.com/pdiddy/gscientist/internal/export"
	"github.com/pdiddy/gscientist/internal/httputil"
	"github.com/pdiddy/gscientist/pkg/types"
)

var downloadCmd = &cobra.Command{
	Use:   "download [arxiv-ids...]",
	Short: "Download paper PDFs",
	Long: `Download fetches PDFs for arXiv identifiers (2301.07041, hep-th/9901001),
or for every paper in an exported CSV or Excel results file given with
--from. Files already present are skipped; individual failures do not stop
the batch.`,
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	from, _ := cmd.Flags().GetString("from")
	if len(args) == 0 && from == "" {
		return fmt.Errorf("provide one or more arXiv ids or --from <results file>")
	}

	dir, _ := cmd.Flags().GetString("dir")
	if ref, _ := cmd.Flags().GetString("project"); ref != "" && !cmd.Flags().Changed("dir") {
		store, err := openStore()
		if err != nil {
			return err
		}
		target, err := resolveTarget(ctx, store, ref)
		store.Close()
		if err != nil {
			return err
		}
		dir = filepath.Join(target.Folder.Path, "pdfs")
	}

	log := logger.With().Str("component", "download").Logger()
	f := httputil.NewFetcher(cfg.Arxiv.Retry, httputil.WithLogger(log))

	result := acquire.DownloadBatch(ctx, f, args, dir, log)

	if from != "" {
		papers, err := readResults(from)
		if err != nil {
			return err
		}
		policy := f.Policy()
		for i, p := range papers {
			if i > 0 || len(args) > 0 {
				if err := httputil.SleepContext(ctx, httputil.Jitter(policy.DelayMin, policy.DelayMax)); err != nil {
					break
				}
			}
			path, err := acquire.DownloadPaper(ctx, f, p, dir)
			if err != nil {
				log.Error().Err(err).Str("paper", p.PaperID).Msg("download failed")
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p.PaperID, err))
				continue
			}
			result.Downloaded++
			result.Paths = append(result.Paths, path)
		}
	}

	fmt.Printf("%d downloaded, %d skipped, %d failed (of %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	for _, e := range result.Errors {
		fmt.Printf("  %s\n", e)
	}
	if result.HasFailures() {
		return fmt.Errorf("%d download(s) failed", result.Failed)
	}
	return nil
}

// readResults loads papers from an exported CSV or Excel file.
func readResults(path string) ([]types.Paper, error) {
	switch export.FormatForPath(path) {
	case export.FormatExcel:
		return export.ReadExcel(path)
	case export.FormatCSV:
		return export.ReadCSV(path)
	default:
		return nil, types.NewConfigurationError("results file", path, "must be .csv or .xlsx")
	}
}

func init() {
	downloadCmd.Flags().String("dir", "papers", "directory for downloaded PDFs")
	downloadCmd.Flags().String("from", "", "download every paper listed in this CSV or Excel results file")
	downloadCmd.Flags().String("project", "", "download into the project's Literature Review/pdfs folder")

	rootCmd.AddCommand(downloadCmd)
}
