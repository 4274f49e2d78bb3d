package api

import (
	"time"

	"github.com/zhurnal-dev/zhurnal/app/database"
	"github.com/zhurnal-dev/zhurnal/app/journal"
	"github.com/zhurnal-dev/zhurnal/app/tasks"
)

type Handler struct {
	sessionRepo  *database.SessionRepository
	articleRepo  *database.ArticleRepository
	templateRepo *database.TemplateRepository
	settingsRepo *database.SettingsRepository
	taskRepo     *database.TaskRepository
	archiveRepo  *database.ArchiveRepository
	formatCache  *journal.FormatCache
	sorter       *journal.Sorter
	planner      *journal.Planner
	parser       tasks.ParserInterface
	compositor   tasks.CompositorInterface
	extractor    tasks.ExtractorInterface
	scheduler    tasks.TaskSchedulerInterface
}

type articleResponse struct {
	ID         string   `json:"id"`
	SessionID  string   `json:"session_id"`
	Filename   string   `json:"filename"`
	Title      *string  `json:"title"`
	Author     *string  `json:"author"`
	Language   string   `json:"language"`
	Confidence *float64 `json:"confidence"`
	WordCount  int      `json:"word_count"`
	SortOrder  int      `json:"sort_order"`
	CreatedAt  string   `json:"created_at"`
}

type uploadResponse struct {
	SessionID string          `json:"session_id"`
	Article   articleResponse `json:"article"`
}

type templateResponse struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Filename  string `json:"filename"`
	Pages     int    `json:"pages"`
}

type articlePatchRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
}

type sessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type generateRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type archiveRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

type taskStatusResponse struct {
	ID            string  `json:"id"`
	SessionID     string  `json:"session_id"`
	Status        string  `json:"status"`
	Progress      int     `json:"progress"`
	CurrentStep   *string `json:"current_step"`
	ErrorMessage  *string `json:"error_message"`
	Pages         int     `json:"pages"`
	ArticlesCount int     `json:"articles_count"`
	CreatedAt     string  `json:"created_at"`
	CompletedAt   *string `json:"completed_at"`
}

type archiveResponse struct {
	ID            string `json:"id"`
	TaskID        string `json:"task_id"`
	Year          int    `json:"year"`
	Month         int    `json:"month"`
	Filename      string `json:"filename"`
	Pages         int    `json:"pages"`
	ArticlesCount int    `json:"articles_count"`
	FileSize      int64  `json:"file_size"`
	CreatedAt     string `json:"created_at"`
}

func newArticleResponse(a database.Article) articleResponse {
	return articleResponse{
		ID:         a.ID,
		SessionID:  a.SessionID,
		Filename:   a.Filename,
		Title:      a.Title,
		Author:     a.Author,
		Language:   a.Language,
		Confidence: a.Confidence,
		WordCount:  a.WordCount,
		SortOrder:  a.SortOrder,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}

func newTaskStatusResponse(t *database.GenerationTask) taskStatusResponse {
	resp := taskStatusResponse{
		ID:            t.ID,
		SessionID:     t.SessionID,
		Status:        string(t.Status),
		Progress:      t.Progress,
		CurrentStep:   t.CurrentStep,
		ErrorMessage:  t.ErrorMessage,
		Pages:         t.Pages,
		ArticlesCount: t.ArticlesCount,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
	if t.CompletedAt != nil {
		completed := t.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}

func newArchiveResponse(e database.ArchiveEntry) archiveResponse {
	return archiveResponse{
		ID:            e.ID,
		TaskID:        e.TaskID,
		Year:          e.Year,
		Month:         e.Month,
		Filename:      e.Filename,
		Pages:         e.Pages,
		ArticlesCount: e.ArticlesCount,
		FileSize:      e.FileSize,
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
	}
}
