package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TemplateRepository handles database operations for title/intro/outro templates
type TemplateRepository struct {
	db *DB
}

func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Upsert stores a template for (session, kind). At most one template per kind
// is active; the last upload wins.
func (r *TemplateRepository) Upsert(ctx context.Context, sessionID, kind, filename, filePath string, pages int) (*Template, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO templates (id, session_id, kind, filename, file_path, pages, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id, kind) DO UPDATE SET
			id = excluded.id,
			filename = excluded.filename,
			file_path = excluded.file_path,
			pages = excluded.pages,
			created_at = excluded.created_at`,
		id, sessionID, kind, filename, filePath, pages, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("upsert template: %w", err)
	}

	return r.GetByKind(ctx, sessionID, kind)
}

func (r *TemplateRepository) GetByKind(ctx context.Context, sessionID, kind string) (*Template, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, kind, filename, file_path, pages, created_at
		 FROM templates WHERE session_id = ? AND kind = ?`, sessionID, kind)

	template, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return template, nil
}

func (r *TemplateRepository) GetBySession(ctx context.Context, sessionID string) ([]Template, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, kind, filename, file_path, pages, created_at
		 FROM templates WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *template)
	}

	return templates, rows.Err()
}

func (r *TemplateRepository) ListFilePathsBySession(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT file_path FROM templates WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query template paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan template path: %w", err)
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}

func scanTemplate(row rowScanner) (*Template, error) {
	var template Template
	var createdAt string

	err := row.Scan(&template.ID, &template.SessionID, &template.Kind,
		&template.Filename, &template.FilePath, &template.Pages, &createdAt)
	if err != nil {
		return nil, err
	}

	if template.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &template, nil
}
