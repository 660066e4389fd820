// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package project

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gscientist/pkg/types"
)

func samplePaper(id, title string) types.Paper {
	return types.Paper{
		PaperID:       id,
		Title:         title,
		Authors:       []string{"Ada Lovelace"},
		Abstract:      "An abstract about " + title,
		URL:           "http://arxiv.org/abs/" + id,
		PublishedDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedDate:   time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		Source:        types.SourceArxiv,
		Categories:    []string{"cs.LG"},
		Extra:         map[string]string{"comment": "8 pages"},
	}
}

func TestSaveAndListPapers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p", filepath.Join(t.TempDir(), "p"))
	require.NoError(t, err)

	older := samplePaper("1", "Recurrent networks")
	newer := samplePaper("2", "Transformers everywhere")
	newer.PublishedDate = newer.PublishedDate.AddDate(1, 0, 0)

	n, err := s.SavePapers(ctx, p.ID, []types.Paper{older, newer})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	papers, err := s.ListPapers(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	assert.Equal(t, "2", papers[0].PaperID)
	assert.Equal(t, []string{"Ada Lovelace"}, papers[1].Authors)
	assert.Equal(t, []string{"cs.LG"}, papers[1].Categories)
	assert.Equal(t, "8 pages", papers[1].Extra["comment"])
	assert.True(t, older.PublishedDate.Equal(papers[1].PublishedDate))
}

func TestSavePapersUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p", filepath.Join(t.TempDir(), "p"))
	require.NoError(t, err)

	paper := samplePaper("1", "Old title")
	_, err = s.SavePapers(ctx, p.ID, []types.Paper{paper})
	require.NoError(t, err)

	paper.Title = "New title"
	paper.Citations = 7
	_, err = s.SavePapers(ctx, p.ID, []types.Paper{paper})
	require.NoError(t, err)

	papers, err := s.ListPapers(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "New title", papers[0].Title)
	assert.Equal(t, 7, papers[0].Citations)

	found, err := s.SearchPapers(ctx, p.ID, "new", 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)
	found, err = s.SearchPapers(ctx, p.ID, "old", 0)
	require.NoError(t, err)
	assert.Empty(t, found, "index follows updates")
}

func TestSearchPapersScopedToProject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, err := s.CreateProject(ctx, "a", filepath.Join(t.TempDir(), "a"))
	require.NoError(t, err)
	b, err := s.CreateProject(ctx, "b", filepath.Join(t.TempDir(), "b"))
	require.NoError(t, err)

	_, err = s.SavePapers(ctx, a.ID, []types.Paper{samplePaper("1", "Graph neural networks"), samplePaper("2", "Protein folding")})
	require.NoError(t, err)
	_, err = s.SavePapers(ctx, b.ID, []types.Paper{samplePaper("1", "Graph rewriting")})
	require.NoError(t, err)

	found, err := s.SearchPapers(ctx, a.ID, "graph", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Graph neural networks", found[0].Title)

	_, err = s.SearchPapers(ctx, a.ID, " ", 10)
	assert.True(t, types.IsConfigurationError(err))
}

func TestSavePapersUnknownProject(t *testing.T) {
	_, err := openTestStore(t).SavePapers(context.Background(), "missing", []types.Paper{samplePaper("1", "x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaperSink(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p", filepath.Join(t.TempDir(), "p"))
	require.NoError(t, err)

	sink := s.Sink(ctx, p.ID)
	require.NoError(t, sink.WriteBatch([]types.Paper{samplePaper("1", "a")}))
	require.NoError(t, sink.WriteBatch([]types.Paper{samplePaper("2", "b")}))

	papers, err := s.ListPapers(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, papers, 2)
}

func TestPapersKeepKeywordsAndReferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p", filepath.Join(t.TempDir(), "p"))
	require.NoError(t, err)

	paper := samplePaper("1", "Graph neural networks")
	paper.Keywords = []string{"gnn", "message passing"}
	paper.References = []string{"1706.03762", "1609.02907"}
	_, err = s.SavePapers(ctx, p.ID, []types.Paper{paper})
	require.NoError(t, err)

	papers, err := s.ListPapers(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, paper.Keywords, papers[0].Keywords)
	assert.Equal(t, paper.References, papers[0].References)
}

func TestListPapersCorruptRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p", filepath.Join(t.TempDir(), "p"))
	require.NoError(t, err)
	_, err = s.SavePapers(ctx, p.ID, []types.Paper{samplePaper("1", "a")})
	require.NoError(t, err)

	_, err = s.db.Exec(`UPDATE papers SET authors = 'not json'`)
	require.NoError(t, err)

	_, err = s.ListPapers(ctx, p.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding authors")
}

func TestOpenAddsMissingPaperColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE papers (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		source TEXT NOT NULL,
		paper_id TEXT NOT NULL,
		title TEXT NOT NULL,
		authors TEXT,
		abstract TEXT,
		url TEXT,
		pdf_url TEXT,
		published TEXT,
		updated TEXT,
		categories TEXT,
		doi TEXT,
		citations INTEGER,
		extra TEXT,
		added_at TEXT NOT NULL,
		UNIQUE(project_id, source, paper_id)
	)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p", filepath.Join(t.TempDir(), "p"))
	require.NoError(t, err)
	paper := samplePaper("1", "a")
	paper.Keywords = []string{"k"}
	_, err = s.SavePapers(ctx, p.ID, []types.Paper{paper})
	require.NoError(t, err)

	papers, err := s.ListPapers(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, []string{"k"}, papers[0].Keywords)
}
