package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zhurnal-dev/zhurnal/app/database"
)

func TestCleanupSessionsTaskRemovesExpired(t *testing.T) {
	env := newTaskEnv(t)
	ctx := context.Background()

	articleRepo := database.NewArticleRepository(env.db)
	templateRepo := database.NewTemplateRepository(env.db)

	expired, err := env.sessionRepo.Create(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("expected session, got %v", err)
	}
	active, err := env.sessionRepo.Create(ctx, time.Hour)
	if err != nil {
		t.Fatalf("expected session, got %v", err)
	}

	expiredFile := filepath.Join(env.dataDir, "expired.docx")
	if err := os.WriteFile(expiredFile, []byte("old"), 0o644); err != nil {
		t.Fatalf("expected file, got %v", err)
	}
	if _, err := articleRepo.Insert(ctx, expired.ID, "expired.docx", expiredFile, 1); err != nil {
		t.Fatalf("expected article, got %v", err)
	}

	activeFile := filepath.Join(env.dataDir, "active.docx")
	if err := os.WriteFile(activeFile, []byte("new"), 0o644); err != nil {
		t.Fatalf("expected file, got %v", err)
	}
	if _, err := articleRepo.Insert(ctx, active.ID, "active.docx", activeFile, 1); err != nil {
		t.Fatalf("expected article, got %v", err)
	}

	task := NewCleanupSessionsTask(env.sessionRepo, articleRepo, templateRepo)
	if err := task.Execute(ctx); err != nil {
		t.Fatalf("expected cleanup to complete, got %v", err)
	}

	if _, err := env.sessionRepo.Get(ctx, expired.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected expired session to be gone, got %v", err)
	}
	if _, err := os.Stat(expiredFile); !os.IsNotExist(err) {
		t.Error("expected expired article file to be removed")
	}

	if _, err := env.sessionRepo.Get(ctx, active.ID); err != nil {
		t.Errorf("expected active session to survive, got %v", err)
	}
	if _, err := os.Stat(activeFile); err != nil {
		t.Errorf("expected active article file to survive, got %v", err)
	}
}

func TestCleanupSessionsTaskNoExpiredSessions(t *testing.T) {
	env := newTaskEnv(t)

	articleRepo := database.NewArticleRepository(env.db)
	templateRepo := database.NewTemplateRepository(env.db)

	task := NewCleanupSessionsTask(env.sessionRepo, articleRepo, templateRepo)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
