// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/gscientist/pkg/types"
)

const paperColumns = `p.source, p.paper_id, p.title, p.authors, p.abstract, p.url, p.pdf_url,
	p.published, p.updated, p.categories, p.keywords, p.refs, p.doi, p.citations, p.extra`

// SavePapers upserts papers into a project's library. A paper already saved
// under the same source and id is refreshed. It returns the number of rows
// written.
func (s *Store) SavePapers(ctx context.Context, projectID string, papers []types.Paper) (int, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (project_id, source, paper_id, title, authors, abstract, url, pdf_url,
			published, updated, categories, keywords, refs, doi, citations, extra, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, source, paper_id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, abstract=excluded.abstract,
			url=excluded.url, pdf_url=excluded.pdf_url, published=excluded.published,
			updated=excluded.updated, categories=excluded.categories, keywords=excluded.keywords,
			refs=excluded.refs, doi=excluded.doi,
			citations=excluded.citations, extra=excluded.extra`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	written := 0
	for _, p := range papers {
		authorsJSON, _ := json.Marshal(p.Authors)
		categoriesJSON, _ := json.Marshal(p.Categories)
		keywordsJSON, _ := json.Marshal(p.Keywords)
		refsJSON, _ := json.Marshal(p.References)
		extraJSON, _ := json.Marshal(p.Extra)
		_, err := stmt.ExecContext(ctx,
			projectID, string(p.Source), p.PaperID, p.Title, string(authorsJSON), p.Abstract,
			p.URL, p.PDFURL, formatTime(p.PublishedDate), formatTime(p.UpdatedDate),
			string(categoriesJSON), string(keywordsJSON), string(refsJSON), p.DOI, p.Citations, string(extraJSON), now,
		)
		if err != nil {
			return 0, fmt.Errorf("saving paper %s: %w", p.PaperID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing papers: %w", err)
	}
	s.log.Debug().Str("project", projectID).Int("papers", written).Msg("papers saved")
	return written, nil
}

// ListPapers returns a project's saved papers, newest publication first.
func (s *Store) ListPapers(ctx context.Context, projectID string) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paperColumns+` FROM papers p WHERE p.project_id = ?
		 ORDER BY p.published DESC, p.rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	return scanPapers(rows)
}

// SearchPapers runs a full-text query over the titles and abstracts saved
// in a project. limit <= 0 returns every match.
func (s *Store) SearchPapers(ctx context.Context, projectID, query string, limit int) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewConfigurationError("library query", "", "must not be empty")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paperColumns+`
		 FROM papers_fts
		 JOIN papers p ON p.rowid = papers_fts.docid
		 WHERE papers_fts MATCH ? AND p.project_id = ?
		 ORDER BY p.published DESC, p.rowid
		 LIMIT ?`, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching library: %w", err)
	}
	return scanPapers(rows)
}

// PaperSink saves every batch it receives into one project's library.
type PaperSink struct {
	store     *Store
	ctx       context.Context
	projectID string
}

// Sink returns a batch sink bound to projectID.
func (s *Store) Sink(ctx context.Context, projectID string) *PaperSink {
	return &PaperSink{store: s, ctx: ctx, projectID: projectID}
}

// WriteBatch saves papers to the project.
func (ps *PaperSink) WriteBatch(papers []types.Paper) error {
	_, err := ps.store.SavePapers(ps.ctx, ps.projectID, papers)
	return err
}

func scanPapers(rows *sql.Rows) ([]types.Paper, error) {
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		var (
			p                                      types.Paper
			source, published, updated             string
			authorsJSON, categoriesJSON, extraJSON sql.NullString
			keywordsJSON, refsJSON                 sql.NullString
			abstract, url, pdfURL, doi             sql.NullString
			citations                              sql.NullInt64
		)
		if err := rows.Scan(&source, &p.PaperID, &p.Title, &authorsJSON, &abstract, &url, &pdfURL,
			&published, &updated, &categoriesJSON, &keywordsJSON, &refsJSON, &doi, &citations,
			&extraJSON); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		p.Source = types.Source(source)
		p.Abstract = abstract.String
		p.URL = url.String
		p.PDFURL = pdfURL.String
		p.DOI = doi.String
		p.Citations = int(citations.Int64)
		p.PublishedDate = parseTime(published)
		p.UpdatedDate = parseTime(updated)
		for _, f := range []struct {
			name string
			col  sql.NullString
			dst  any
		}{
			{"authors", authorsJSON, &p.Authors},
			{"categories", categoriesJSON, &p.Categories},
			{"keywords", keywordsJSON, &p.Keywords},
			{"refs", refsJSON, &p.References},
			{"extra", extraJSON, &p.Extra},
		} {
			if !f.col.Valid {
				continue
			}
			if err := json.Unmarshal([]byte(f.col.String), f.dst); err != nil {
				return nil, fmt.Errorf("paper %s/%s: decoding %s: %w", source, p.PaperID, f.name, err)
			}
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}
