package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/zhurnal-dev/zhurnal/app/database"
)

// CleanupSessionsTask removes expired sessions together with their uploaded
// files. Generation tasks and archive entries are kept: archived journals
// outlive the session that produced them.
type CleanupSessionsTask struct {
	Task
	sessionRepo  *database.SessionRepository
	articleRepo  *database.ArticleRepository
	templateRepo *database.TemplateRepository
}

func NewCleanupSessionsTask(sessionRepo *database.SessionRepository,
	articleRepo *database.ArticleRepository, templateRepo *database.TemplateRepository) *CleanupSessionsTask {
	return &CleanupSessionsTask{
		Task:         NewTask(TaskTypeCleanupSessions, ""),
		sessionRepo:  sessionRepo,
		articleRepo:  articleRepo,
		templateRepo: templateRepo,
	}
}

func (t *CleanupSessionsTask) Execute(ctx context.Context) error {
	expired, err := t.sessionRepo.GetExpired(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to list expired sessions: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	removed := 0
	for _, session := range expired {
		if err := ctx.Err(); err != nil {
			return err
		}

		paths, err := t.collectFilePaths(ctx, session.ID)
		if err != nil {
			slog.Warn("Failed to collect session files, skipping", "session", session.ID, "error", err)
			continue
		}

		if err := t.sessionRepo.Delete(ctx, session.ID); err != nil {
			slog.Warn("Failed to delete expired session, skipping", "session", session.ID, "error", err)
			continue
		}

		for _, path := range paths {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				slog.Warn("Failed to remove session file", "session", session.ID, "path", path, "error", err)
			}
		}
		removed++
	}

	slog.Info("Task completed",
		"type", "CleanupSessions",
		"duration", t.GetDuration(),
		"expired", len(expired),
		"removed", removed)

	return nil
}

func (t *CleanupSessionsTask) collectFilePaths(ctx context.Context, sessionID string) ([]string, error) {
	articlePaths, err := t.articleRepo.ListFilePathsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	templatePaths, err := t.templateRepo.ListFilePathsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return append(articlePaths, templatePaths...), nil
}
