package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyboard/internal/model"
)

const timeLayout = time.RFC3339Nano

type Store struct {
	DB  *sql.DB
	tx  *sql.Tx
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, now: time.Now}
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTimestamp(value string) time.Time {
	parsed, _ := time.Parse(timeLayout, value)
	return parsed
}

func newID() string {
	return uuid.NewString()
}

func (s *Store) conn() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.DB
}

// InTx runs fn with a store bound to one transaction. Every write made
// through tx is rolled back when fn returns an error.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&Store{DB: s.DB, tx: tx, now: s.now})
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

func (s *Store) CreateProject(ctx context.Context, name string) (model.Project, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return model.Project{}, model.ErrInvalidName
	}
	if _, err := s.GetProjectByName(ctx, trimmed); err == nil {
		return model.Project{}, fmt.Errorf("project %q: %w", trimmed, model.ErrDuplicateName)
	}

	project := model.Project{ID: newID(), Name: trimmed}
	created := s.timestamp()
	if _, err := s.conn().ExecContext(ctx,
		"INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)",
		project.ID, project.Name, created,
	); err != nil {
		return model.Project{}, fmt.Errorf("insert project: %w", err)
	}
	project.CreatedAt = parseTimestamp(created)
	return project, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	row := s.conn().QueryRowContext(ctx, "SELECT id, name, created_at FROM projects WHERE id = ?", id)
	project, err := scanProject(row)
	if err != nil {
		return model.Project{}, notFound("project", id, err)
	}
	return project, nil
}

func (s *Store) GetProjectByName(ctx context.Context, name string) (model.Project, error) {
	row := s.conn().QueryRowContext(ctx, "SELECT id, name, created_at FROM projects WHERE name = ?", strings.TrimSpace(name))
	project, err := scanProject(row)
	if err != nil {
		return model.Project{}, notFound("project", name, err)
	}
	return project, nil
}

// EnsureProject returns the project called name, creating it when missing.
func (s *Store) EnsureProject(ctx context.Context, name string) (model.Project, error) {
	project, err := s.GetProjectByName(ctx, name)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Project{}, err
	}
	return s.CreateProject(ctx, name)
}

func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.conn().QueryContext(ctx, "SELECT id, name, created_at FROM projects ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.conn().ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return expectAffected(res, "project", id)
}

func scanProject(scanner interface{ Scan(...any) error }) (model.Project, error) {
	var project model.Project
	var created string
	if err := scanner.Scan(&project.ID, &project.Name, &created); err != nil {
		return model.Project{}, err
	}
	project.CreatedAt = parseTimestamp(created)
	return project, nil
}

func expectAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
	}
	return nil
}
