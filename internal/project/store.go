// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package project keeps research projects, their workspace folders, and the
// papers saved to them in a SQLite database.
package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gscientist/pkg/types"
)

// ErrNotFound is returned when a project or folder does not exist.
var ErrNotFound = errors.New("not found")

// Store manages the project database.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// DefaultDBPath returns ~/.config/gscientist/projects.db.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "gscientist", "projects.db")
}

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			workspace_path TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS folders (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			parent_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(project_id, parent_id, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_folders_project ON folders(project_id)`,
		`CREATE TABLE IF NOT EXISTS papers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
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
			keywords TEXT,
			refs TEXT,
			doi TEXT,
			citations INTEGER,
			extra TEXT,
			added_at TEXT NOT NULL,
			UNIQUE(project_id, source, paper_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_project ON papers(project_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// Databases created before keywords and refs were stored.
	for _, col := range []string{"keywords", "refs"} {
		if err := s.addColumn("papers", col, "TEXT"); err != nil {
			return err
		}
	}

	// Full-text index over saved papers, kept in sync by triggers.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE papers_fts USING fts4(title, abstract)`,
			`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
				INSERT INTO papers_fts(docid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
			`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
				DELETE FROM papers_fts WHERE docid = old.rowid;
			END`,
			`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
				DELETE FROM papers_fts WHERE docid = old.rowid;
				INSERT INTO papers_fts(docid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// addColumn adds column to table unless it already exists.
func (s *Store) addColumn(table, column, decl string) error {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return fmt.Errorf("reading %s columns: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("reading %s columns: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading %s columns: %w", table, err)
	}
	rows.Close()

	if _, err := s.db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl)); err != nil {
		return fmt.Errorf("adding %s.%s: %w", table, column, err)
	}
	s.log.Info().Str("table", table).Str("column", column).Msg("schema column added")
	return nil
}

// CreateProject registers a project named name with its workspace at
// workspace, creating the directory and the default folders.
func (s *Store) CreateProject(ctx context.Context, name, workspace string) (types.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Project{}, types.NewConfigurationError("project name", "", "must not be empty")
	}
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return types.Project{}, fmt.Errorf("resolving workspace: %w", err)
	}

	p := types.Project{
		ID:            uuid.NewString(),
		Name:          name,
		WorkspacePath: abs,
		CreatedAt:     time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Project{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, name, workspace_path, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.WorkspacePath, formatTime(p.CreatedAt))
	if isUniqueViolation(err) {
		return types.Project{}, types.NewConfigurationError("project name", name, "already exists")
	}
	if err != nil {
		return types.Project{}, fmt.Errorf("inserting project: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return types.Project{}, fmt.Errorf("creating workspace: %w", err)
	}
	for _, name := range types.DefaultFolders {
		f, err := insertFolder(ctx, tx, p.ID, "", name, filepath.Join(abs, name))
		if err != nil {
			return types.Project{}, err
		}
		if err := os.MkdirAll(f.Path, 0o755); err != nil {
			return types.Project{}, fmt.Errorf("creating folder: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Project{}, fmt.Errorf("committing project: %w", err)
	}
	s.log.Info().Str("project", p.Name).Str("workspace", p.WorkspacePath).Msg("project created")
	return p, nil
}

// GetProject returns the project with id.
func (s *Store) GetProject(ctx context.Context, id string) (types.Project, error) {
	return s.scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, name, workspace_path, created_at FROM projects WHERE id = ?`, id))
}

// GetProjectByName returns the project called name.
func (s *Store) GetProjectByName(ctx context.Context, name string) (types.Project, error) {
	return s.scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, name, workspace_path, created_at FROM projects WHERE name = ?`, name))
}

// Resolve looks a project up by id, then by name.
func (s *Store) Resolve(ctx context.Context, ref string) (types.Project, error) {
	p, err := s.GetProject(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		return s.GetProjectByName(ctx, ref)
	}
	return p, err
}

// ListProjects returns every project ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]types.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, workspace_path, created_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []types.Project
	for rows.Next() {
		p, err := s.scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// RenameProject changes a project's name. The workspace stays where it is.
func (s *Store) RenameProject(ctx context.Context, id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return types.NewConfigurationError("project name", "", "must not be empty")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ? WHERE id = ?`, newName, id)
	if isUniqueViolation(err) {
		return types.NewConfigurationError("project name", newName, "already exists")
	}
	if err != nil {
		return fmt.Errorf("renaming project: %w", err)
	}
	return expectRow(res, "project", id)
}

// DeleteProject removes a project with its folders and saved papers. Files
// in the workspace are not touched.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return expectRow(res, "project", id)
}

// CreateFolder adds a folder under parentID (empty for the workspace root)
// and creates its directory.
func (s *Store) CreateFolder(ctx context.Context, projectID, parentID, name string) (types.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return types.Folder{}, types.NewConfigurationError("folder name", name, "must be a single path element")
	}

	var base string
	if parentID == "" {
		p, err := s.GetProject(ctx, projectID)
		if err != nil {
			return types.Folder{}, err
		}
		base = p.WorkspacePath
	} else {
		parent, err := s.getFolder(ctx, parentID)
		if err != nil {
			return types.Folder{}, err
		}
		if parent.ProjectID != projectID {
			return types.Folder{}, types.NewConfigurationError("parent folder", parentID, "belongs to another project")
		}
		base = parent.Path
	}

	f, err := insertFolder(ctx, s.db, projectID, parentID, name, filepath.Join(base, name))
	if err != nil {
		return types.Folder{}, err
	}
	if err := os.MkdirAll(f.Path, 0o755); err != nil {
		return types.Folder{}, fmt.Errorf("creating folder: %w", err)
	}
	return f, nil
}

// FolderPath returns the absolute directory of a folder.
func (s *Store) FolderPath(ctx context.Context, folderID string) (string, error) {
	f, err := s.getFolder(ctx, folderID)
	if err != nil {
		return "", err
	}
	return f.Path, nil
}

// FolderByName returns the top-level folder called name in a project.
func (s *Store) FolderByName(ctx context.Context, projectID, name string) (types.Folder, error) {
	return scanFolder(s.db.QueryRowContext(ctx,
		`SELECT id, project_id, parent_id, name, path, created_at
		 FROM folders WHERE project_id = ? AND parent_id = '' AND name = ?`, projectID, name))
}

// ProjectStructure returns the folders of a project. Top-level folders
// follow the DefaultFolders order, other names come after it alphabetically,
// and subfolders follow their parent.
func (s *Store) ProjectStructure(ctx context.Context, projectID string) ([]types.Folder, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, parent_id, name, path, created_at FROM folders WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	defer rows.Close()

	var folders []types.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID := make(map[string]types.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}
	chains := make(map[string][]string, len(folders))
	for _, f := range folders {
		chains[f.ID] = folderChain(f, byID)
	}
	slices.SortFunc(folders, func(a, b types.Folder) int {
		return compareChains(chains[a.ID], chains[b.ID])
	})
	return folders, nil
}

// ImportRegistry reads a YAML file mapping project names to workspace
// paths and creates every project not yet known. It returns the number of
// projects created.
func (s *Store) ImportRegistry(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading registry: %w", err)
	}
	var registry map[string]string
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return 0, fmt.Errorf("parsing registry: %w", err)
	}

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)

	created := 0
	for _, name := range names {
		if _, err := s.GetProjectByName(ctx, name); err == nil {
			s.log.Debug().Str("project", name).Msg("already registered")
			continue
		}
		if _, err := s.CreateProject(ctx, name, registry[name]); err != nil {
			return created, fmt.Errorf("importing %s: %w", name, err)
		}
		created++
	}
	return created, nil
}

func (s *Store) getFolder(ctx context.Context, id string) (types.Folder, error) {
	return scanFolder(s.db.QueryRowContext(ctx,
		`SELECT id, project_id, parent_id, name, path, created_at FROM folders WHERE id = ?`, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) scanProject(row rowScanner) (types.Project, error) {
	var (
		p       types.Project
		created string
	)
	err := row.Scan(&p.ID, &p.Name, &p.WorkspacePath, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Project{}, fmt.Errorf("project: %w", ErrNotFound)
	}
	if err != nil {
		return types.Project{}, fmt.Errorf("scanning project: %w", err)
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

func scanFolder(row rowScanner) (types.Folder, error) {
	var (
		f       types.Folder
		created string
	)
	err := row.Scan(&f.ID, &f.ProjectID, &f.ParentID, &f.Name, &f.Path, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Folder{}, fmt.Errorf("folder: %w", ErrNotFound)
	}
	if err != nil {
		return types.Folder{}, fmt.Errorf("scanning folder: %w", err)
	}
	f.CreatedAt = parseTime(created)
	return f, nil
}

func insertFolder(ctx context.Context, db execer, projectID, parentID, name, path string) (types.Folder, error) {
	f := types.Folder{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		ParentID:  parentID,
		Name:      name,
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO folders (id, project_id, parent_id, name, path, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.ProjectID, f.ParentID, f.Name, f.Path, formatTime(f.CreatedAt))
	if isUniqueViolation(err) {
		return types.Folder{}, types.NewConfigurationError("folder name", name, "already exists")
	}
	if err != nil {
		return types.Folder{}, fmt.Errorf("inserting folder: %w", err)
	}
	return f, nil
}

// folderChain returns the names from the top-level ancestor down to f.
func folderChain(f types.Folder, byID map[string]types.Folder) []string {
	chain := []string{f.Name}
	for seen := 0; f.ParentID != "" && seen < len(byID); seen++ {
		parent, ok := byID[f.ParentID]
		if !ok {
			break
		}
		chain = append([]string{parent.Name}, chain...)
		f = parent
	}
	return chain
}

func compareChains(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if i == 0 {
			if c := folderRank(a[0]) - folderRank(b[0]); c != 0 {
				return c
			}
		}
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func folderRank(name string) int {
	if i := slices.Index(types.DefaultFolders, name); i >= 0 {
		return i
	}
	return len(types.DefaultFolders)
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
