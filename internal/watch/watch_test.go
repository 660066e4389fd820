// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package watch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gscientist/internal/export"
	"github.com/pdiddy/gscientist/internal/search"
	"github.com/pdiddy/gscientist/pkg/types"
)

func paper(id string) types.Paper {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return types.Paper{
		PaperID:       id,
		Title:         "Paper " + id,
		Authors:       []string{"A. Author"},
		URL:           "http://arxiv.org/abs/" + id,
		PublishedDate: d,
		UpdatedDate:   d,
		Source:        types.SourceArxiv,
	}
}

func writeQuery(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "query.yaml")
	q := search.Query{Text: "diffusion", StartDate: "2024-01-01", EndDate: "2024-12-31"}
	cfg := search.EngineConfig{MaxResults: 50, BatchSize: 20, Segments: 2}
	require.NoError(t, search.WriteQueryFile(path, types.SourceArxiv, q, cfg, search.Result{}))
	return path
}

func TestRunOnceRefreshesResults(t *testing.T) {
	dir := t.TempDir()
	qpath := writeQuery(t, dir)
	out := filepath.Join(dir, "results.csv")

	var seen *search.QueryFile
	w := New(func(_ context.Context, qf *search.QueryFile) (search.Result, error) {
		seen = qf
		return search.Result{Papers: []types.Paper{paper("2401.00001v1"), paper("2401.00002v1")}}, nil
	}, zerolog.Nop())

	require.NoError(t, w.RunOnce(context.Background(), Job{QueryFile: qpath, Output: out}))

	require.NotNil(t, seen)
	assert.Equal(t, "diffusion", seen.Query.Text)
	assert.Equal(t, 2, seen.Config.Segments)

	exported, err := export.ReadCSV(out)
	require.NoError(t, err)
	assert.Len(t, exported, 2)

	qf, err := search.ReadQueryFile(qpath)
	require.NoError(t, err)
	assert.Len(t, qf.Results, 2)
	assert.Equal(t, 2, qf.Summary.Total)
	assert.Equal(t, 50, qf.Config.MaxResults)
}

func TestRunOnceRunnerError(t *testing.T) {
	dir := t.TempDir()
	qpath := writeQuery(t, dir)
	out := filepath.Join(dir, "results.json")

	boom := errors.New("boom")
	w := New(func(context.Context, *search.QueryFile) (search.Result, error) {
		return search.Result{}, boom
	}, zerolog.Nop())

	err := w.RunOnce(context.Background(), Job{QueryFile: qpath, Output: out, Format: export.FormatJSON})
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, out)
}

func TestRunOnceMissingQueryFile(t *testing.T) {
	called := false
	w := New(func(context.Context, *search.QueryFile) (search.Result, error) {
		called = true
		return search.Result{}, nil
	}, zerolog.Nop())

	err := w.RunOnce(context.Background(), Job{QueryFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestAddRejectsBadSchedule(t *testing.T) {
	w := New(nil, zerolog.Nop())
	_, err := w.Add(context.Background(), "not a schedule", Job{})
	assert.Error(t, err)
	assert.Empty(t, w.Entries())

	_, err = w.Add(context.Background(), "@every 1h", Job{QueryFile: "q.yaml"})
	require.NoError(t, err)
	assert.Len(t, w.Entries(), 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	w := New(nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
