package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ArchiveRepository handles database operations for archived journal issues
type ArchiveRepository struct {
	db *DB
}

func NewArchiveRepository(db *DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

const archiveColumns = `id, task_id, year, month, filename, file_path, pages, articles_count, file_size, created_at`

// Insert archives a completed task exactly once. The task must be done and
// must not have an existing archive entry; rejection leaves no side effects.
func (r *ArchiveRepository) Insert(ctx context.Context, taskID string, year, month int, filename, filePath string, pages, articlesCount int, fileSize int64) (*ArchiveEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM generation_tasks WHERE id = ?`, taskID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("check task status: %w", err)
	}
	if TaskStatus(status) != TaskDone {
		return nil, ErrTaskNotDone
	}

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM archive_entries WHERE task_id = ?`, taskID).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("check existing archive entry: %w", err)
	}
	if existing > 0 {
		return nil, ErrArchiveConflict
	}

	entry := &ArchiveEntry{
		ID:            uuid.NewString(),
		TaskID:        taskID,
		Year:          year,
		Month:         month,
		Filename:      filename,
		FilePath:      filePath,
		Pages:         pages,
		ArticlesCount: articlesCount,
		FileSize:      fileSize,
		CreatedAt:     time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO archive_entries (id, task_id, year, month, filename, file_path, pages, articles_count, file_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TaskID, entry.Year, entry.Month, entry.Filename, entry.FilePath,
		entry.Pages, entry.ArticlesCount, entry.FileSize, formatTime(entry.CreatedAt))
	if err != nil {
		// A concurrent archive attempt can slip past the count check and
		// trip the unique index on task_id instead.
		if isUniqueViolation(err) {
			return nil, ErrArchiveConflict
		}
		return nil, fmt.Errorf("insert archive entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit archive entry: %w", err)
	}

	return entry, nil
}

// List returns archive entries, optionally filtered by year and month,
// newest issues first.
func (r *ArchiveRepository) List(ctx context.Context, year, month *int) ([]ArchiveEntry, error) {
	query := `SELECT ` + archiveColumns + ` FROM archive_entries`
	var conditions []string
	var args []any

	if year != nil {
		conditions = append(conditions, `year = ?`)
		args = append(args, *year)
	}
	if month != nil {
		conditions = append(conditions, `month = ?`)
		args = append(args, *month)
	}
	for i, condition := range conditions {
		if i == 0 {
			query += ` WHERE ` + condition
		} else {
			query += ` AND ` + condition
		}
	}
	query += ` ORDER BY year DESC, month DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query archive entries: %w", err)
	}
	defer rows.Close()

	var entries []ArchiveEntry
	for rows.Next() {
		entry, err := scanArchiveEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// ListYears returns the distinct years that have archived issues, descending.
func (r *ArchiveRepository) ListYears(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT year FROM archive_entries ORDER BY year DESC`)
	if err != nil {
		return nil, fmt.Errorf("query archive years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("scan archive year: %w", err)
		}
		years = append(years, year)
	}

	return years, rows.Err()
}

func (r *ArchiveRepository) Get(ctx context.Context, id string) (*ArchiveEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM archive_entries WHERE id = ?`, id)

	entry, err := scanArchiveEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get archive entry: %w", err)
	}
	return entry, nil
}

func (r *ArchiveRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archive_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete archive entry: %w", err)
	}
	return requireRow(res)
}

func (r *ArchiveRepository) GetArchiveCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archive_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count archive entries: %w", err)
	}
	return count, nil
}

func scanArchiveEntry(row rowScanner) (*ArchiveEntry, error) {
	var entry ArchiveEntry
	var createdAt string

	err := row.Scan(&entry.ID, &entry.TaskID, &entry.Year, &entry.Month,
		&entry.Filename, &entry.FilePath, &entry.Pages, &entry.ArticlesCount,
		&entry.FileSize, &createdAt)
	if err != nil {
		return nil, err
	}

	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &entry, nil
}
