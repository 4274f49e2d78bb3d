package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zhurnal-dev/zhurnal/app/journal"
)

// SettingsRepository handles database operations for per-session journal settings
type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the session's settings, or issue defaults for the current month
// when none were saved yet.
func (r *SettingsRepository) Get(ctx context.Context, sessionID string) (*journal.Settings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT indent_lines, page_format, margin_left, margin_right, margin_top, margin_bottom, year, month
		 FROM journal_settings WHERE session_id = ?`, sessionID)

	var settings journal.Settings
	err := row.Scan(&settings.IndentLines, &settings.PageFormat,
		&settings.Margins.Left, &settings.Margins.Right,
		&settings.Margins.Top, &settings.Margins.Bottom,
		&settings.Year, &settings.Month)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaultSettings(), nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	return &settings, nil
}

func (r *SettingsRepository) Put(ctx context.Context, sessionID string, settings journal.Settings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO journal_settings (session_id, indent_lines, page_format,
			margin_left, margin_right, margin_top, margin_bottom, year, month, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET
			indent_lines = excluded.indent_lines,
			page_format = excluded.page_format,
			margin_left = excluded.margin_left,
			margin_right = excluded.margin_right,
			margin_top = excluded.margin_top,
			margin_bottom = excluded.margin_bottom,
			year = excluded.year,
			month = excluded.month,
			updated_at = excluded.updated_at`,
		sessionID, settings.IndentLines, settings.PageFormat,
		settings.Margins.Left, settings.Margins.Right,
		settings.Margins.Top, settings.Margins.Bottom,
		settings.Year, settings.Month, formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

func defaultSettings() *journal.Settings {
	now := time.Now()
	return &journal.Settings{
		IndentLines: 0,
		PageFormat:  "a4",
		Margins:     journal.Margins{Left: 20, Right: 15, Top: 20, Bottom: 20},
		Year:        now.Year(),
		Month:       int(now.Month()),
	}
}
