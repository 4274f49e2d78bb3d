package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zhurnal-dev/zhurnal/app/journal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	return db
}

func createTestSession(t *testing.T, db *DB) *Session {
	t.Helper()

	session, err := NewSessionRepository(db).Create(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}
	return session
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)

	fetched, err := repo.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.ID != session.ID {
		t.Errorf("Expected session ID '%s', got '%s'", session.ID, fetched.ID)
	}
	if !fetched.ExpiresAt.After(fetched.CreatedAt) {
		t.Error("Expected expires_at after created_at")
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_GetExpired(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	expired, err := repo.Create(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repo.Create(ctx, time.Hour); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sessions, err := repo.GetExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("GetExpired failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 expired session, got %d", len(sessions))
	}
	if sessions[0].ID != expired.ID {
		t.Errorf("Expected expired session '%s', got '%s'", expired.ID, sessions[0].ID)
	}
}

func TestSessionRepository_DeleteCascades(t *testing.T) {
	db := openTestDB(t)
	sessionRepo := NewSessionRepository(db)
	articleRepo := NewArticleRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)
	article, err := articleRepo.Insert(ctx, session.ID, "paper.docx", "/tmp/paper.docx", 500)
	if err != nil {
		t.Fatalf("Insert article failed: %v", err)
	}

	if err := sessionRepo.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete session failed: %v", err)
	}

	if _, err := articleRepo.Get(ctx, article.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected article to cascade, got %v", err)
	}
}

func TestArticleRepository_InsertStartsWithNullMetadata(t *testing.T) {
	db := openTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)
	article, err := repo.Insert(ctx, session.ID, "paper.docx", "/tmp/paper.docx", 1200)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if article.Title != nil || article.Author != nil || article.Confidence != nil {
		t.Error("Expected null metadata until extraction completes")
	}
	if article.Language != "unknown" {
		t.Errorf("Expected language 'unknown', got '%s'", article.Language)
	}
	if article.WordCount != 1200 {
		t.Errorf("Expected word count 1200, got %d", article.WordCount)
	}
}

func TestArticleRepository_UpdateMetadata(t *testing.T) {
	db := openTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)
	article, err := repo.Insert(ctx, session.ID, "paper.docx", "/tmp/paper.docx", 0)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := repo.UpdateMetadata(ctx, article.ID, "Заголовок", "Петров И.И.", "cyrillic", 0.92); err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}

	updated, err := repo.Get(ctx, article.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if updated.Title == nil || *updated.Title != "Заголовок" {
		t.Errorf("Unexpected title: %v", updated.Title)
	}
	if updated.Language != "cyrillic" {
		t.Errorf("Expected language 'cyrillic', got '%s'", updated.Language)
	}
	if updated.Confidence == nil || *updated.Confidence != 0.92 {
		t.Errorf("Unexpected confidence: %v", updated.Confidence)
	}
}

func TestArticleRepository_SortOrderPersists(t *testing.T) {
	db := openTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)
	first, _ := repo.Insert(ctx, session.ID, "a.docx", "/tmp/a.docx", 0)
	second, _ := repo.Insert(ctx, session.ID, "b.docx", "/tmp/b.docx", 0)
	third, _ := repo.Insert(ctx, session.ID, "c.docx", "/tmp/c.docx", 0)

	if err := repo.UpdateSortOrders(ctx, []string{third.ID, first.ID, second.ID}); err != nil {
		t.Fatalf("UpdateSortOrders failed: %v", err)
	}

	articles, err := repo.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}

	expected := []string{third.ID, first.ID, second.ID}
	for i, id := range expected {
		if articles[i].ID != id {
			t.Errorf("Position %d: expected '%s', got '%s'", i, id, articles[i].ID)
		}
	}
}

func TestArticleRepository_ListKeepsUploadOrderBeforeSort(t *testing.T) {
	db := openTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)
	first, _ := repo.Insert(ctx, session.ID, "a.docx", "/tmp/a.docx", 0)
	second, _ := repo.Insert(ctx, session.ID, "b.docx", "/tmp/b.docx", 0)

	articles, err := repo.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if articles[0].ID != first.ID || articles[1].ID != second.ID {
		t.Error("Expected upload order before any sort")
	}
	if articles[0].Position >= articles[1].Position {
		t.Error("Expected positions to reflect upload sequence")
	}
}

func TestTemplateRepository_LastUploadWins(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)

	if _, err := repo.Upsert(ctx, session.ID, "title", "old.docx", "/tmp/old.docx", 1); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	replaced, err := repo.Upsert(ctx, session.ID, "title", "new.docx", "/tmp/new.docx", 2)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if replaced.Filename != "new.docx" {
		t.Errorf("Expected last upload to win, got '%s'", replaced.Filename)
	}
	if replaced.Pages != 2 {
		t.Errorf("Expected 2 pages, got %d", replaced.Pages)
	}

	templates, err := repo.GetBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetBySession failed: %v", err)
	}
	if len(templates) != 1 {
		t.Errorf("Expected a single title template, got %d", len(templates))
	}
}

func TestSettingsRepository_DefaultsAndRoundtrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)

	defaults, err := repo.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if defaults.PageFormat != "a4" {
		t.Errorf("Expected default page format 'a4', got '%s'", defaults.PageFormat)
	}

	custom := journal.Settings{
		IndentLines: 2,
		PageFormat:  "a5",
		Margins:     journal.Margins{Left: 10, Right: 10, Top: 12, Bottom: 12},
		Year:        2026,
		Month:       3,
	}
	if err := repo.Put(ctx, session.ID, custom); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	stored, err := repo.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if *stored != custom {
		t.Errorf("Expected %+v, got %+v", custom, *stored)
	}
}

func TestTaskRepository_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)
	task, err := repo.Create(ctx, session.ID, `{"articles":[]}`, 5)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Status != TaskPending {
		t.Errorf("Expected pending status, got '%s'", task.Status)
	}
	if task.ArticlesCount != 5 {
		t.Errorf("Expected articles count 5, got %d", task.ArticlesCount)
	}

	if err := repo.MarkProcessing(ctx, task.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := repo.UpdateProgress(ctx, task.ID, "planning", 30); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	// A stale lower value must not decrease the stored progress.
	if err := repo.UpdateProgress(ctx, task.ID, "sorting", 10); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	current, _ := repo.Get(ctx, task.ID)
	if current.Progress != 30 {
		t.Errorf("Expected progress to stay at 30, got %d", current.Progress)
	}

	if err := repo.MarkDone(ctx, task.ID, "/tmp/out.pdf", 42); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	done, _ := repo.Get(ctx, task.ID)
	if done.Status != TaskDone || done.Progress != 100 {
		t.Errorf("Expected done/100, got %s/%d", done.Status, done.Progress)
	}
	if done.ResultPath == nil || *done.ResultPath != "/tmp/out.pdf" {
		t.Errorf("Unexpected result path: %v", done.ResultPath)
	}
	if done.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}
}

func TestTaskRepository_ErrorFreezesProgress(t *testing.T) {
	db := openTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)
	task, _ := repo.Create(ctx, session.ID, `{}`, 1)
	_ = repo.MarkProcessing(ctx, task.ID)
	_ = repo.UpdateProgress(ctx, task.ID, "compositing", 55)

	if err := repo.MarkError(ctx, task.ID, "compositor exploded"); err != nil {
		t.Fatalf("MarkError failed: %v", err)
	}

	failed, _ := repo.Get(ctx, task.ID)
	if failed.Status != TaskError {
		t.Errorf("Expected error status, got '%s'", failed.Status)
	}
	if failed.Progress != 55 {
		t.Errorf("Expected progress frozen at 55, got %d", failed.Progress)
	}
	if failed.ErrorMessage == nil || *failed.ErrorMessage != "compositor exploded" {
		t.Errorf("Unexpected error message: %v", failed.ErrorMessage)
	}
}

func TestTaskRepository_TerminalStatesAreFinal(t *testing.T) {
	db := openTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)
	task, _ := repo.Create(ctx, session.ID, `{}`, 1)
	_ = repo.MarkProcessing(ctx, task.ID)
	_ = repo.MarkError(ctx, task.ID, "failed")

	if err := repo.MarkProcessing(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected failed task to stay failed, got %v", err)
	}
	if err := repo.MarkDone(ctx, task.ID, "/tmp/out.pdf", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected failed task to reject done, got %v", err)
	}

	// Progress updates after a terminal state are silently dropped.
	_ = repo.UpdateProgress(ctx, task.ID, "compositing", 99)
	final, _ := repo.Get(ctx, task.ID)
	if final.Progress != 0 {
		t.Errorf("Expected progress unchanged, got %d", final.Progress)
	}
}

func TestArchiveRepository_OneShotPerTask(t *testing.T) {
	db := openTestDB(t)
	taskRepo := NewTaskRepository(db)
	archiveRepo := NewArchiveRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)
	task, _ := taskRepo.Create(ctx, session.ID, `{}`, 3)

	// Archiving a task that is not done is rejected.
	if _, err := archiveRepo.Insert(ctx, task.ID, 2026, 9, "journal.pdf", "/tmp/journal.pdf", 10, 3, 1024); !errors.Is(err, ErrTaskNotDone) {
		t.Errorf("Expected ErrTaskNotDone, got %v", err)
	}

	_ = taskRepo.MarkProcessing(ctx, task.ID)
	_ = taskRepo.MarkDone(ctx, task.ID, "/tmp/journal.pdf", 10)

	entry, err := archiveRepo.Insert(ctx, task.ID, 2026, 9, "journal.pdf", "/tmp/journal.pdf", 10, 3, 1024)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if entry.ArticlesCount != 3 {
		t.Errorf("Expected articles count 3, got %d", entry.ArticlesCount)
	}

	if _, err := archiveRepo.Insert(ctx, task.ID, 2026, 9, "journal.pdf", "/tmp/journal.pdf", 10, 3, 1024); !errors.Is(err, ErrArchiveConflict) {
		t.Errorf("Expected ErrArchiveConflict, got %v", err)
	}

	entries, err := archiveRepo.List(ctx, nil, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected a single archive entry, got %d", len(entries))
	}

	if _, err := archiveRepo.Insert(ctx, "missing-task", 2026, 9, "j.pdf", "/tmp/j.pdf", 1, 1, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown task, got %v", err)
	}
}

func TestArchiveRepository_DuplicateTaskRowIsUniqueViolation(t *testing.T) {
	db := openTestDB(t)
	taskRepo := NewTaskRepository(db)
	archiveRepo := NewArchiveRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)
	task, _ := taskRepo.Create(ctx, session.ID, `{}`, 1)
	_ = taskRepo.MarkProcessing(ctx, task.ID)
	_ = taskRepo.MarkDone(ctx, task.ID, "/tmp/j.pdf", 1)

	if _, err := archiveRepo.Insert(ctx, task.ID, 2026, 9, "j.pdf", "/tmp/j.pdf", 1, 1, 1); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// A second writer that passes the existence check hits the unique index
	// on task_id instead; that driver error must be recognizable.
	_, err := db.ExecContext(ctx,
		`INSERT INTO archive_entries (id, task_id, year, month, filename, file_path, pages, articles_count, file_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"second-entry", task.ID, 2026, 9, "j.pdf", "/tmp/j.pdf", 1, 1, 1, formatTime(time.Now()))
	if err == nil {
		t.Fatal("Expected unique constraint violation")
	}
	if !isUniqueViolation(err) {
		t.Errorf("Expected unique violation to be recognized, got %v", err)
	}
}

func TestArchiveRepository_ListOrderingAndFilters(t *testing.T) {
	db := openTestDB(t)
	taskRepo := NewTaskRepository(db)
	archiveRepo := NewArchiveRepository(db)
	ctx := context.Background()

	session := createTestSession(t, db)

	archiveIssue := func(year, month int) {
		t.Helper()
		task, _ := taskRepo.Create(ctx, session.ID, `{}`, 1)
		_ = taskRepo.MarkProcessing(ctx, task.ID)
		_ = taskRepo.MarkDone(ctx, task.ID, "/tmp/j.pdf", 1)
		if _, err := archiveRepo.Insert(ctx, task.ID, year, month, "j.pdf", "/tmp/j.pdf", 1, 1, 1); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	archiveIssue(2025, 11)
	archiveIssue(2026, 2)
	archiveIssue(2026, 7)

	entries, err := archiveRepo.List(ctx, nil, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Year != 2026 || entries[0].Month != 7 {
		t.Errorf("Expected 2026/7 first, got %d/%d", entries[0].Year, entries[0].Month)
	}
	if entries[2].Year != 2025 {
		t.Errorf("Expected 2025 last, got %d", entries[2].Year)
	}

	year := 2026
	filtered, err := archiveRepo.List(ctx, &year, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("Expected 2 entries for 2026, got %d", len(filtered))
	}

	years, err := archiveRepo.ListYears(ctx)
	if err != nil {
		t.Fatalf("ListYears failed: %v", err)
	}
	if len(years) != 2 || years[0] != 2026 || years[1] != 2025 {
		t.Errorf("Unexpected years: %v", years)
	}
}
