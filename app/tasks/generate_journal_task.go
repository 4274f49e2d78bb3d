package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zhurnal-dev/zhurnal/app/compositor"
	"github.com/zhurnal-dev/zhurnal/app/database"
	"github.com/zhurnal-dev/zhurnal/app/journal"
)

// Step labels shown to the user while a generation task runs.
const (
	stepSorting     = "Сортировка статей"
	stepPlanning    = "Формирование структуры"
	stepCompositing = "Вёрстка журнала"
	stepSaving      = "Сохранение результата"
)

// Completed-step progress marks. Sorting contributes 10, planning 20,
// compositing 60 and saving the remaining 10.
const (
	progressSorted   = 10
	progressPlanned  = 30
	progressComposed = 90
)

// GenerateJournalTask assembles one journal from a frozen input snapshot:
// sort, plan, composite, save. A failed generation is reported through the
// task record and never re-run.
type GenerateJournalTask struct {
	Task
	taskID         string
	taskRepo       *database.TaskRepository
	formatCache    *journal.FormatCache
	parser         ParserInterface
	compositor     CompositorInterface
	dataDir        string
	composeTimeout time.Duration
}

func NewGenerateJournalTask(taskID, sessionID string, taskRepo *database.TaskRepository,
	formatCache *journal.FormatCache, parser ParserInterface, comp CompositorInterface,
	dataDir string, composeTimeout time.Duration) *GenerateJournalTask {
	task := &GenerateJournalTask{
		Task:           NewTask(TaskTypeGenerateJournal, sessionID),
		taskID:         taskID,
		taskRepo:       taskRepo,
		formatCache:    formatCache,
		parser:         parser,
		compositor:     comp,
		dataDir:        dataDir,
		composeTimeout: composeTimeout,
	}
	task.MaxRetries = 0
	return task
}

func (t *GenerateJournalTask) Execute(ctx context.Context) error {
	record, err := t.taskRepo.Get(ctx, t.taskID)
	if err != nil {
		return fmt.Errorf("failed to load generation task: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(record.InputSnapshot), &snapshot); err != nil {
		return t.fail(fmt.Errorf("failed to decode input snapshot: %w", err), "Некорректные входные данные")
	}
	if len(snapshot.Articles) == 0 {
		return t.fail(journal.ErrNoArticles, "Нет загруженных статей")
	}

	if err := t.taskRepo.MarkProcessing(ctx, t.taskID); err != nil {
		return fmt.Errorf("failed to mark task processing: %w", err)
	}

	sorted := journal.NewSorter().Run(snapshot.journalArticles())
	t.progress(stepSorting, progressSorted)

	if err := ctx.Err(); err != nil {
		return t.cancelled()
	}

	format, err := t.formatCache.GetFormat(snapshot.Settings.PageFormat)
	if err != nil {
		return t.fail(err, fmt.Sprintf("Неизвестный формат страницы: %s", snapshot.Settings.PageFormat))
	}

	wordCounts := snapshot.wordCounts()
	measure := func(a journal.Article) int {
		return t.compositor.Measure(wordCounts[a.ID], format)
	}

	plan, err := journal.NewPlanner().Run(sorted, snapshot.templatePages(), snapshot.Settings, *format, measure)
	if err != nil {
		return t.fail(err, "Не удалось сформировать структуру журнала")
	}
	t.progress(stepPlanning, progressPlanned)

	texts, err := t.loadTexts(sorted, snapshot)
	if err != nil {
		return t.fail(err, "Не удалось прочитать документы")
	}

	composeCtx, cancel := context.WithTimeout(ctx, t.composeTimeout)
	defer cancel()

	data, pages, err := t.compositor.Run(composeCtx, plan, texts, snapshot.Settings, format, func(done, total int) {
		t.progress(stepCompositing, progressPlanned+(progressComposed-progressPlanned)*done/total)
	})
	if err != nil {
		if errors.Is(err, journal.ErrCancelled) || errors.Is(composeCtx.Err(), context.Canceled) {
			return t.cancelled()
		}
		if errors.Is(composeCtx.Err(), context.DeadlineExceeded) {
			return t.fail(err, "Превышено время вёрстки журнала")
		}
		return t.fail(err, "Ошибка вёрстки журнала")
	}
	t.progress(stepCompositing, progressComposed)

	t.progress(stepSaving, progressComposed)
	resultPath, err := t.saveResult(data, snapshot.Settings)
	if err != nil {
		return t.fail(err, "Не удалось сохранить журнал")
	}

	if err := t.taskRepo.MarkDone(context.Background(), t.taskID, resultPath, pages); err != nil {
		return fmt.Errorf("failed to mark task done: %w", err)
	}

	slog.Info("Task completed",
		"type", "GenerateJournal",
		"task_id", t.taskID,
		"session", t.SessionID,
		"duration", t.GetDuration(),
		"articles", len(snapshot.Articles),
		"pages", pages)

	return nil
}

// loadTexts reads and parses the article and template documents referenced by
// the snapshot. Article bodies follow the sorted order the plan was built on.
func (t *GenerateJournalTask) loadTexts(sorted []journal.Article, snapshot Snapshot) (compositor.Texts, error) {
	texts := compositor.Texts{
		Templates: make(map[journal.TemplateKind]string),
	}

	paths := snapshot.filePaths()
	for _, article := range sorted {
		text, err := t.readDocument(paths[article.ID])
		if err != nil {
			return texts, fmt.Errorf("article %s: %w", article.Filename, err)
		}
		texts.ArticleBodies = append(texts.ArticleBodies, text)
	}

	for _, kind := range []journal.TemplateKind{journal.TemplateTitle, journal.TemplateIntro, journal.TemplateOutro} {
		path := snapshot.templatePath(kind)
		if path == "" {
			continue
		}
		text, err := t.readDocument(path)
		if err != nil {
			return texts, fmt.Errorf("template %s: %w", kind, err)
		}
		texts.Templates[kind] = text
	}

	return texts, nil
}

func (t *GenerateJournalTask) readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	doc, err := t.parser.Run(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}
	return doc.Text(), nil
}

func (t *GenerateJournalTask) saveResult(data []byte, settings journal.Settings) (string, error) {
	dir := filepath.Join(t.dataDir, "journals")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create journals directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("journal_%04d_%02d_%s.pdf", settings.Year, settings.Month, t.taskID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write journal file: %w", err)
	}
	return path, nil
}

// progress writes are best effort: the repository keeps them monotonic and
// drops them once the task reaches a terminal state.
func (t *GenerateJournalTask) progress(step string, percent int) {
	if err := t.taskRepo.UpdateProgress(context.Background(), t.taskID, step, percent); err != nil {
		slog.Warn("Failed to update task progress", "task_id", t.taskID, "step", step, "error", err)
	}
}

func (t *GenerateJournalTask) fail(err error, message string) error {
	if markErr := t.taskRepo.MarkError(context.Background(), t.taskID, message); markErr != nil {
		slog.Error("Failed to mark task as failed", "task_id", t.taskID, "error", markErr)
	}
	return fmt.Errorf("%s: %w", message, err)
}

func (t *GenerateJournalTask) cancelled() error {
	return t.fail(journal.ErrCancelled, "Генерация отменена")
}
