package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskRepository handles database operations for generation tasks. All status
// mutations are single-row UPDATEs guarded by the current status, so a reader
// always observes a consistent {status, progress, current_step} triple and
// terminal states are never left.
type TaskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, session_id, status, progress, current_step, error_message,
	input_snapshot, result_path, pages, articles_count, created_at, updated_at, completed_at`

// Create records a new pending task with its frozen input snapshot.
func (r *TaskRepository) Create(ctx context.Context, sessionID, inputSnapshot string, articlesCount int) (*GenerationTask, error) {
	id := uuid.NewString()
	now := formatTime(time.Now().UTC())

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO generation_tasks (id, session_id, status, progress, input_snapshot, articles_count, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?, ?, ?)`,
		id, sessionID, TaskPending, inputSnapshot, articlesCount, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*GenerationTask, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM generation_tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// MarkProcessing moves a pending task to processing. It is a no-op guarded by
// the current status so a cancelled or failed task is never resurrected.
func (r *TaskRepository) MarkProcessing(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE generation_tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		TaskProcessing, formatTime(time.Now().UTC()), id, TaskPending)
	if err != nil {
		return fmt.Errorf("mark task processing: %w", err)
	}
	return requireRow(res)
}

// UpdateProgress publishes a step label and progress value. Progress never
// decreases; a stale lower value is clamped to the stored one.
func (r *TaskRepository) UpdateProgress(ctx context.Context, id, step string, progress int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE generation_tasks
		 SET progress = MAX(progress, ?), current_step = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		progress, step, formatTime(time.Now().UTC()), id, TaskProcessing)
	if err != nil {
		return fmt.Errorf("update task progress: %w", err)
	}
	return nil
}

// MarkDone completes a processing task with its artifact.
func (r *TaskRepository) MarkDone(ctx context.Context, id, resultPath string, pages int) error {
	now := formatTime(time.Now().UTC())
	res, err := r.db.ExecContext(ctx,
		`UPDATE generation_tasks
		 SET status = ?, progress = 100, result_path = ?, pages = ?, updated_at = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		TaskDone, resultPath, pages, now, now, id, TaskProcessing)
	if err != nil {
		return fmt.Errorf("mark task done: %w", err)
	}
	return requireRow(res)
}

// MarkError fails a task with a message. Progress is left at its last
// reported value.
func (r *TaskRepository) MarkError(ctx context.Context, id, message string) error {
	now := formatTime(time.Now().UTC())
	res, err := r.db.ExecContext(ctx,
		`UPDATE generation_tasks
		 SET status = ?, error_message = ?, updated_at = ?, completed_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		TaskError, message, now, now, id, TaskPending, TaskProcessing)
	if err != nil {
		return fmt.Errorf("mark task error: %w", err)
	}
	return requireRow(res)
}

func (r *TaskRepository) GetTaskCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generation_tasks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

func scanTask(row rowScanner) (*GenerationTask, error) {
	var task GenerationTask
	var status string
	var currentStep, errorMessage, resultPath, completedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&task.ID, &task.SessionID, &status, &task.Progress,
		&currentStep, &errorMessage, &task.InputSnapshot, &resultPath,
		&task.Pages, &task.ArticlesCount, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	task.Status = TaskStatus(status)
	task.CurrentStep = nullString(currentStep)
	task.ErrorMessage = nullString(errorMessage)
	task.ResultPath = nullString(resultPath)
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if task.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}

	return &task, nil
}
