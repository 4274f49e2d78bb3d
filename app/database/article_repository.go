package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ArticleRepository handles database operations for articles
type ArticleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

const articleColumns = `rowid, id, session_id, filename, file_path, title, author,
	language, confidence, word_count, sort_order, created_at`

// Insert registers an uploaded document. Metadata fields stay NULL until the
// extractor fills them in.
func (r *ArticleRepository) Insert(ctx context.Context, sessionID, filename, filePath string, wordCount int) (*Article, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (id, session_id, filename, file_path, word_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, sessionID, filename, filePath, wordCount, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *ArticleRepository) Get(ctx context.Context, id string) (*Article, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	article, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

// ListBySession returns the session's articles in persisted sort order;
// articles that were never sorted keep their upload order.
func (r *ArticleRepository) ListBySession(ctx context.Context, sessionID string) ([]Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE session_id = ? ORDER BY sort_order ASC, rowid ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, *article)
	}

	return articles, rows.Err()
}

func (r *ArticleRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

// UpdateMetadata merges an extraction result into the article record. This is
// the only writer of language and confidence.
func (r *ArticleRepository) UpdateMetadata(ctx context.Context, id, title, author, language string, confidence float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE articles SET title = ?, author = ?, language = ?, confidence = ? WHERE id = ?`,
		title, author, language, confidence, id)
	if err != nil {
		return fmt.Errorf("update article metadata: %w", err)
	}
	return requireRow(res)
}

// UpdateEditable applies a user patch. Only title and author are
// user-editable; language is re-derived from the new author by the caller.
func (r *ArticleRepository) UpdateEditable(ctx context.Context, id string, title, author *string, language string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE articles SET
			title = COALESCE(?, title),
			author = COALESCE(?, author),
			language = ?
		 WHERE id = ?`,
		title, author, language, id)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	return requireRow(res)
}

// UpdateSortOrders persists a computed article order for one session.
func (r *ArticleRepository) UpdateSortOrders(ctx context.Context, orderedIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sort order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for index, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE articles SET sort_order = ? WHERE id = ?`, index, id); err != nil {
			return fmt.Errorf("update sort order: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sort order: %w", err)
	}
	return nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return requireRow(res)
}

// ListFilePathsBySession returns the stored document paths, used when a
// session is purged.
func (r *ArticleRepository) ListFilePathsBySession(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT file_path FROM articles WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query article paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan article path: %w", err)
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var article Article
	var title, author sql.NullString
	var confidence sql.NullFloat64
	var createdAt string

	err := row.Scan(&article.Position, &article.ID, &article.SessionID, &article.Filename,
		&article.FilePath, &title, &author, &article.Language, &confidence,
		&article.WordCount, &article.SortOrder, &createdAt)
	if err != nil {
		return nil, err
	}

	article.Title = nullString(title)
	article.Author = nullString(author)
	article.Confidence = nullFloat(confidence)
	if article.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	return &article, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
