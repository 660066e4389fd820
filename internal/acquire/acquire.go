// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads paper PDFs through the shared fetcher, so
// downloads follow the same retry and backoff policy as searches.
package acquire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pdiddy/gscientist/internal/httputil"
	"github.com/pdiddy/gscientist/pkg/types"
)

var pdfMagic = []byte("%PDF")

// errNotPDF is returned when a 2xx response is not a PDF document (arXiv
// serves an HTML page while a PDF is still being generated).
var errNotPDF = errors.New("response is not a PDF")

// BatchResult holds the outcome of a batch download.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Paths      []string
	Errors     []string
}

// Total returns the number of identifiers processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any download failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// DownloadPDF fetches the PDF of an arXiv paper into dir/{id}.pdf and
// returns the path. An existing file is left untouched. An identifier that
// is not an arXiv id is a configuration error.
func DownloadPDF(ctx context.Context, f *httputil.Fetcher, id, dir string) (string, error) {
	path, _, err := downloadArxiv(ctx, f, id, dir)
	return path, err
}

// DownloadURL fetches a PDF from a direct link into dir, naming the file
// after the last path element of the URL.
func DownloadURL(ctx context.Context, f *httputil.Fetcher, rawURL, dir string) (string, error) {
	idType, normalized := Classify(rawURL)
	if idType != TypeURL {
		return "", types.NewConfigurationError("PDF URL", rawURL, "must be an http or https URL")
	}
	path := filepath.Join(dir, Slug(idType, normalized)+".pdf")
	_, err := fetchTo(ctx, f, normalized, path)
	return path, err
}

// DownloadPaper fetches the PDF of p: through its arXiv id for arXiv
// records, through its PDF link otherwise.
func DownloadPaper(ctx context.Context, f *httputil.Fetcher, p types.Paper, dir string) (string, error) {
	if p.Source == types.SourceArxiv {
		return DownloadPDF(ctx, f, p.PaperID, dir)
	}
	if p.PDFURL == "" {
		return "", fmt.Errorf("%s: no PDF link", p.PaperID)
	}
	return DownloadURL(ctx, f, p.PDFURL, dir)
}

// DownloadBatch downloads many arXiv ids into dir. It continues after
// individual failures and pauses between downloads with the fetcher's
// inter-attempt delay. Only a cancelled context stops it early.
func DownloadBatch(ctx context.Context, f *httputil.Fetcher, ids []string, dir string, log zerolog.Logger) BatchResult {
	var result BatchResult
	policy := f.Policy()
	for i, id := range ids {
		if i > 0 {
			if err := httputil.SleepContext(ctx, httputil.Jitter(policy.DelayMin, policy.DelayMax)); err != nil {
				break
			}
		}

		path, skipped, err := downloadArxiv(ctx, f, id, dir)
		switch {
		case err != nil:
			log.Error().Err(err).Str("id", id).Msg("download failed")
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
		case skipped:
			log.Info().Str("id", id).Str("path", path).Msg("skipped, already downloaded")
			result.Skipped++
			result.Paths = append(result.Paths, path)
		default:
			log.Info().Str("id", id).Str("path", path).Msg("downloaded")
			result.Downloaded++
			result.Paths = append(result.Paths, path)
		}
		if ctx.Err() != nil {
			break
		}
	}
	log.Info().Int("downloaded", result.Downloaded).Int("skipped", result.Skipped).
		Int("failed", result.Failed).Msg("batch download complete")
	return result
}

func downloadArxiv(ctx context.Context, f *httputil.Fetcher, id, dir string) (path string, skipped bool, err error) {
	idType, normalized := Classify(id)
	if idType != TypeArxiv {
		return "", false, types.NewConfigurationError("arXiv id", id, "expected e.g. 2301.07041 or hep-th/9901001")
	}
	path = filepath.Join(dir, Slug(idType, normalized)+".pdf")
	skipped, err = fetchTo(ctx, f, PDFURL(idType, normalized), path)
	return path, skipped, err
}

// fetchTo streams url into a temporary file next to destPath and renames
// it on success. Each attempt starts a fresh temporary file.
func fetchTo(ctx context.Context, f *httputil.Fetcher, url, destPath string) (skipped bool, err error) {
	if _, err := os.Stat(destPath); err == nil {
		return true, nil
	}
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	var tmpPath string
	err = f.Stream(ctx, url, nil, func(r io.Reader) error {
		p, err := writeTemp(dir, r)
		if err != nil {
			return err
		}
		tmpPath = p
		return nil
	})
	if err != nil {
		return false, err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("renaming temp file: %w", err)
	}
	return false, nil
}

func writeTemp(dir string, r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(pdfMagic))
	if !bytes.Equal(head, pdfMagic) {
		return "", errNotPDF
	}

	tmp, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	_, copyErr := io.Copy(tmp, br)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	return tmp.Name(), nil
}
