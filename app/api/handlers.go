package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zhurnal-dev/zhurnal/app/cfg"
	"github.com/zhurnal-dev/zhurnal/app/database"
	"github.com/zhurnal-dev/zhurnal/app/extractor"
	"github.com/zhurnal-dev/zhurnal/app/journal"
	"github.com/zhurnal-dev/zhurnal/app/tasks"
)

const previewChars = 2000

func NewHandler(sessionRepo *database.SessionRepository, articleRepo *database.ArticleRepository,
	templateRepo *database.TemplateRepository, settingsRepo *database.SettingsRepository,
	taskRepo *database.TaskRepository, archiveRepo *database.ArchiveRepository,
	formatCache *journal.FormatCache, parser tasks.ParserInterface, comp tasks.CompositorInterface,
	extr tasks.ExtractorInterface, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		sessionRepo:  sessionRepo,
		articleRepo:  articleRepo,
		templateRepo: templateRepo,
		settingsRepo: settingsRepo,
		taskRepo:     taskRepo,
		archiveRepo:  archiveRepo,
		formatCache:  formatCache,
		sorter:       journal.NewSorter(),
		planner:      journal.NewPlanner(),
		parser:       parser,
		compositor:   comp,
		extractor:    extr,
		scheduler:    scheduler,
	}
}

func (h *Handler) UploadArticle(c *gin.Context) {
	appCfg := cfg.Get()
	ttl := time.Duration(appCfg.SessionTTLHours) * time.Hour

	data, filename, ok := h.readUpload(c, appCfg.MaxUploadMB)
	if !ok {
		return
	}

	sessionID := c.PostForm("session_id")
	var session *database.Session
	var err error
	if sessionID == "" {
		session, err = h.sessionRepo.Create(c.Request.Context(), ttl)
		if err != nil {
			slog.Error("Database error", "operation", "create_session", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}
	} else {
		session, ok = h.activeSession(c, sessionID)
		if !ok {
			return
		}
	}

	count, err := h.articleRepo.CountBySession(c.Request.Context(), session.ID)
	if err != nil {
		slog.Error("Database error", "operation", "count_articles", "session", session.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count articles"})
		return
	}
	if count >= appCfg.MaxArticles {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("session already holds the maximum of %d articles", appCfg.MaxArticles)})
		return
	}

	doc, err := h.parser.Run(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("not a valid DOCX file: %v", err)})
		return
	}

	path, err := h.saveUpload(session.ID, filename, data)
	if err != nil {
		slog.Error("Failed to store uploaded file", "session", session.ID, "filename", filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded file"})
		return
	}

	article, err := h.articleRepo.Insert(c.Request.Context(), session.ID, filename, path, doc.WordCount)
	if err != nil {
		slog.Error("Database error", "operation", "insert_article", "session", session.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register article"})
		return
	}

	task := tasks.NewExtractMetadataTask(session.ID, article.ID, path, h.articleRepo, h.parser, h.extractor)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue ExtractMetadataTask", "article", article.ID, "error", err)
	}

	c.JSON(http.StatusCreated, uploadResponse{
		SessionID: session.ID,
		Article:   newArticleResponse(*article),
	})
}

func (h *Handler) UploadTemplate(c *gin.Context) {
	appCfg := cfg.Get()
	ttl := time.Duration(appCfg.SessionTTLHours) * time.Hour

	kind, ok := journal.ParseTemplateKind(c.PostForm("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be one of: title, intro, outro"})
		return
	}

	data, filename, uploadOK := h.readUpload(c, appCfg.MaxUploadMB)
	if !uploadOK {
		return
	}

	sessionID := c.PostForm("session_id")
	var session *database.Session
	var err error
	if sessionID == "" {
		session, err = h.sessionRepo.Create(c.Request.Context(), ttl)
		if err != nil {
			slog.Error("Database error", "operation", "create_session", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}
	} else {
		session, ok = h.activeSession(c, sessionID)
		if !ok {
			return
		}
	}

	doc, err := h.parser.Run(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("not a valid DOCX file: %v", err)})
		return
	}

	path, err := h.saveUpload(session.ID, filename, data)
	if err != nil {
		slog.Error("Failed to store uploaded file", "session", session.ID, "filename", filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded file"})
		return
	}

	pages := h.templatePageCount(c, session.ID, doc.WordCount)

	template, err := h.templateRepo.Upsert(c.Request.Context(), session.ID, string(kind), filename, path, pages)
	if err != nil {
		slog.Error("Database error", "operation", "upsert_template", "session", session.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register template"})
		return
	}

	c.JSON(http.StatusCreated, templateResponse{
		SessionID: session.ID,
		Kind:      template.Kind,
		Filename:  template.Filename,
		Pages:     template.Pages,
	})
}

func (h *Handler) ListArticles(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	articles, err := h.articleRepo.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "session", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list articles"})
		return
	}

	responses := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		responses = append(responses, newArticleResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"articles": responses})
}

func (h *Handler) GetArticle(c *gin.Context) {
	article, ok := h.findArticle(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newArticleResponse(*article))
}

func (h *Handler) PatchArticle(c *gin.Context) {
	article, ok := h.findArticle(c)
	if !ok {
		return
	}

	var req articlePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Title == nil && req.Author == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	// An edited author re-decides the script bucket.
	language := article.Language
	if req.Author != nil {
		language = string(extractor.DetectLanguage(*req.Author))
	}

	if err := h.articleRepo.UpdateEditable(c.Request.Context(), article.ID, req.Title, req.Author, language); err != nil {
		slog.Error("Database error", "operation", "patch_article", "article", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update article"})
		return
	}

	updated, err := h.articleRepo.Get(c.Request.Context(), article.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load updated article"})
		return
	}
	c.JSON(http.StatusOK, newArticleResponse(*updated))
}

func (h *Handler) DeleteArticle(c *gin.Context) {
	article, ok := h.findArticle(c)
	if !ok {
		return
	}

	if err := h.articleRepo.Delete(c.Request.Context(), article.ID); err != nil {
		slog.Error("Database error", "operation", "delete_article", "article", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete article"})
		return
	}

	if err := os.Remove(article.FilePath); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove article file", "article", article.ID, "path", article.FilePath, "error", err)
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetArticlePreview(c *gin.Context) {
	article, ok := h.findArticle(c)
	if !ok {
		return
	}

	data, err := os.ReadFile(article.FilePath)
	if err != nil {
		slog.Error("Failed to read article file", "article", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read article file"})
		return
	}

	doc, err := h.parser.Run(data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse article file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         article.ID,
		"filename":   article.Filename,
		"preview":    doc.Preview(previewChars),
		"word_count": doc.WordCount,
	})
}

// SortArticles applies the deterministic journal ordering to the session and
// persists it. Running it again on an already sorted session is a no-op.
func (h *Handler) SortArticles(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	articles, err := h.articleRepo.ListBySession(c.Request.Context(), req.SessionID)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "session", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list articles"})
		return
	}
	if len(articles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to sort"})
		return
	}

	sorted := h.sorter.Run(toJournalArticles(articles))

	ids := make([]string, 0, len(sorted))
	for _, a := range sorted {
		ids = append(ids, a.ID)
	}
	if err := h.articleRepo.UpdateSortOrders(c.Request.Context(), ids); err != nil {
		slog.Error("Database error", "operation", "update_sort_orders", "session", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist article order"})
		return
	}

	updated, err := h.articleRepo.ListBySession(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list articles"})
		return
	}
	responses := make([]articleResponse, 0, len(updated))
	for _, a := range updated {
		responses = append(responses, newArticleResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"articles": responses})
}

func (h *Handler) GetSettings(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	settings, err := h.settingsRepo.Get(c.Request.Context(), sessionID)
	if err != nil {
		slog.Error("Database error", "operation", "get_settings", "session", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) PutSettings(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	if _, ok := h.activeSession(c, sessionID); !ok {
		return
	}

	var settings journal.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := settings.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	format, err := h.formatCache.GetFormat(settings.PageFormat)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := settings.ValidateFor(format); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.settingsRepo.Put(c.Request.Context(), sessionID, settings); err != nil {
		slog.Error("Database error", "operation", "put_settings", "session", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) ListFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formats": h.formatCache.GetFormats()})
}

// GetJournalPreview runs sorting and planning without rendering anything.
func (h *Handler) GetJournalPreview(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	plan, ok := h.planSession(c, sessionID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) Generate(c *gin.Context) {
	appCfg := cfg.Get()

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	if _, ok := h.activeSession(c, req.SessionID); !ok {
		return
	}

	articles, err := h.articleRepo.ListBySession(c.Request.Context(), req.SessionID)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "session", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list articles"})
		return
	}
	if len(articles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": journal.ErrNoArticles.Error()})
		return
	}

	settings, err := h.settingsRepo.Get(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	if err := settings.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	format, err := h.formatCache.GetFormat(settings.PageFormat)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := settings.ValidateFor(format); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	templates, err := h.templateRepo.GetBySession(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load templates"})
		return
	}

	snapshot := tasks.BuildSnapshot(articles, templates, *settings)
	payload, err := json.Marshal(snapshot)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to capture generation input"})
		return
	}

	record, err := h.taskRepo.Create(c.Request.Context(), req.SessionID, string(payload), len(articles))
	if err != nil {
		slog.Error("Database error", "operation", "create_task", "session", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create generation task"})
		return
	}

	task := tasks.NewGenerateJournalTask(record.ID, req.SessionID, h.taskRepo, h.formatCache,
		h.parser, h.compositor, appCfg.DataDir, time.Duration(appCfg.ComposeTimeout)*time.Second)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue GenerateJournalTask", "task_id", record.ID, "error", err)
		if markErr := h.taskRepo.MarkError(c.Request.Context(), record.ID, "Сервис перегружен, попробуйте позже"); markErr != nil {
			slog.Error("Failed to mark task as failed", "task_id", record.ID, "error", markErr)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, newTaskStatusResponse(record))
}

func (h *Handler) GetGenerationStatus(c *gin.Context) {
	record, err := h.taskRepo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "generation task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load generation task"})
		return
	}
	c.JSON(http.StatusOK, newTaskStatusResponse(record))
}

func (h *Handler) DownloadGeneration(c *gin.Context) {
	record, err := h.taskRepo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "generation task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load generation task"})
		return
	}

	if record.Status != database.TaskDone || record.ResultPath == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("journal is not ready: task is %s", record.Status)})
		return
	}

	c.FileAttachment(*record.ResultPath, filepath.Base(*record.ResultPath))
}

func (h *Handler) CreateArchiveEntry(c *gin.Context) {
	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	record, err := h.taskRepo.Get(c.Request.Context(), req.TaskID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "generation task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load generation task"})
		return
	}
	if record.Status != database.TaskDone || record.ResultPath == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("only a completed generation can be archived: task is %s", record.Status)})
		return
	}

	var snapshot tasks.Snapshot
	if err := json.Unmarshal([]byte(record.InputSnapshot), &snapshot); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decode generation input"})
		return
	}

	info, err := os.Stat(*record.ResultPath)
	if err != nil {
		slog.Error("Generated journal file missing", "task_id", record.ID, "path", *record.ResultPath, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generated journal file is missing"})
		return
	}

	entry, err := h.archiveRepo.Insert(c.Request.Context(), record.ID,
		snapshot.Settings.Year, snapshot.Settings.Month,
		filepath.Base(*record.ResultPath), *record.ResultPath,
		record.Pages, record.ArticlesCount, info.Size())
	if err != nil {
		switch {
		case errors.Is(err, database.ErrArchiveConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "this generation is already archived"})
		case errors.Is(err, database.ErrTaskNotDone):
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("only a completed generation can be archived: task is %s", record.Status)})
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "generation task not found"})
		default:
			slog.Error("Database error", "operation", "insert_archive_entry", "task_id", record.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to archive journal"})
		}
		return
	}

	c.JSON(http.StatusCreated, newArchiveResponse(*entry))
}

func (h *Handler) ListArchive(c *gin.Context) {
	year, ok := h.optionalIntQuery(c, "year")
	if !ok {
		return
	}
	month, ok := h.optionalIntQuery(c, "month")
	if !ok {
		return
	}

	entries, err := h.archiveRepo.List(c.Request.Context(), year, month)
	if err != nil {
		slog.Error("Database error", "operation", "list_archive", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list archive"})
		return
	}

	responses := make([]archiveResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, newArchiveResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"entries": responses})
}

func (h *Handler) ListArchiveYears(c *gin.Context) {
	years, err := h.archiveRepo.ListYears(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_archive_years", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list archive years"})
		return
	}
	if years == nil {
		years = []int{}
	}
	c.JSON(http.StatusOK, gin.H{"years": years})
}

func (h *Handler) GetArchiveEntry(c *gin.Context) {
	entry, ok := h.findArchiveEntry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newArchiveResponse(*entry))
}

func (h *Handler) DownloadArchiveEntry(c *gin.Context) {
	entry, ok := h.findArchiveEntry(c)
	if !ok {
		return
	}
	c.FileAttachment(entry.FilePath, entry.Filename)
}

func (h *Handler) DeleteArchiveEntry(c *gin.Context) {
	entry, ok := h.findArchiveEntry(c)
	if !ok {
		return
	}

	if err := h.archiveRepo.Delete(c.Request.Context(), entry.ID); err != nil {
		slog.Error("Database error", "operation", "delete_archive_entry", "entry", entry.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete archive entry"})
		return
	}

	if err := os.Remove(entry.FilePath); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove archived journal file", "entry", entry.ID, "path", entry.FilePath, "error", err)
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sessionCount, err := h.sessionRepo.GetSessionCount(c.Request.Context()); err == nil {
		health["sessions"] = sessionCount
	}

	health["loaded_formats"] = len(h.formatCache.GetFormats())

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := map[string]interface{}{
		"version": cfg.Get().Version,
	}

	if count, err := h.sessionRepo.GetSessionCount(ctx); err == nil {
		stats["sessions"] = count
	}
	if count, err := h.taskRepo.GetTaskCount(ctx); err == nil {
		stats["generation_tasks"] = count
	}
	if count, err := h.archiveRepo.GetArchiveCount(ctx); err == nil {
		stats["archive_entries"] = count
	}
	stats["loaded_formats"] = len(h.formatCache.GetFormats())

	c.JSON(http.StatusOK, stats)
}

// readUpload pulls the multipart file, enforcing the extension and size
// limits before anything touches disk.
func (h *Handler) readUpload(c *gin.Context, maxUploadMB int) ([]byte, string, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return nil, "", false
	}

	filename := filepath.Base(fileHeader.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".docx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only DOCX files are accepted"})
		return nil, "", false
	}

	maxBytes := int64(maxUploadMB) << 20
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file exceeds the %d MB limit", maxUploadMB)})
		return nil, "", false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return nil, "", false
	}
	if int64(len(data)) > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file exceeds the %d MB limit", maxUploadMB)})
		return nil, "", false
	}

	return data, filename, true
}

func (h *Handler) saveUpload(sessionID, filename string, data []byte) (string, error) {
	dir := filepath.Join(cfg.Get().DataDir, "uploads", sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+"_"+filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// activeSession resolves a session id and extends its lifetime. Missing and
// expired sessions both answer 404.
func (h *Handler) activeSession(c *gin.Context, id string) (*database.Session, bool) {
	session, err := h.sessionRepo.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return nil, false
		}
		slog.Error("Database error", "operation", "get_session", "session", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return nil, false
	}

	if session.ExpiresAt.Before(time.Now().UTC()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session has expired"})
		return nil, false
	}

	ttl := time.Duration(cfg.Get().SessionTTLHours) * time.Hour
	if err := h.sessionRepo.Touch(c.Request.Context(), id, ttl); err != nil {
		slog.Warn("Failed to extend session", "session", id, "error", err)
	}

	return session, true
}

func (h *Handler) findArticle(c *gin.Context) (*database.Article, bool) {
	article, err := h.articleRepo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return nil, false
		}
		slog.Error("Database error", "operation", "get_article", "article", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load article"})
		return nil, false
	}
	return article, true
}

func (h *Handler) findArchiveEntry(c *gin.Context) (*database.ArchiveEntry, bool) {
	entry, err := h.archiveRepo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "archive entry not found"})
			return nil, false
		}
		slog.Error("Database error", "operation", "get_archive_entry", "entry", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load archive entry"})
		return nil, false
	}
	return entry, true
}

func (h *Handler) optionalIntQuery(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be a number", name)})
		return nil, false
	}
	return &value, true
}

// planSession sorts the session's articles and plans the journal structure.
func (h *Handler) planSession(c *gin.Context, sessionID string) (*journal.Structure, bool) {
	ctx := c.Request.Context()

	articles, err := h.articleRepo.ListBySession(ctx, sessionID)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "session", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list articles"})
		return nil, false
	}

	settings, err := h.settingsRepo.Get(ctx, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return nil, false
	}

	format, err := h.formatCache.GetFormat(settings.PageFormat)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	templates, err := h.templateRepo.GetBySession(ctx, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load templates"})
		return nil, false
	}

	wordCounts := make(map[string]int, len(articles))
	for _, a := range articles {
		wordCounts[a.ID] = a.WordCount
	}
	measure := func(a journal.Article) int {
		return h.compositor.Measure(wordCounts[a.ID], format)
	}

	sorted := h.sorter.Run(toJournalArticles(articles))

	plan, err := h.planner.Run(sorted, templatePagesOf(templates), *settings, *format, measure)
	if err != nil {
		var planningErr *journal.PlanningError
		if errors.As(err, &planningErr) {
			slog.Error("Journal planning failed", "session", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	return plan, true
}

func toJournalArticles(articles []database.Article) []journal.Article {
	converted := make([]journal.Article, 0, len(articles))
	for _, a := range articles {
		ja := journal.Article{
			ID:       a.ID,
			Filename: a.Filename,
			Language: journal.ParseLanguage(a.Language),
			Position: int(a.Position),
		}
		if a.Title != nil {
			ja.Title = *a.Title
		} else {
			ja.Title = strings.TrimSuffix(a.Filename, filepath.Ext(a.Filename))
		}
		if a.Author != nil {
			ja.Author = *a.Author
		}
		converted = append(converted, ja)
	}
	return converted
}

func templatePagesOf(templates []database.Template) journal.TemplatePages {
	var pages journal.TemplatePages
	for _, t := range templates {
		count := t.Pages
		if count < 1 {
			count = 1
		}
		switch journal.TemplateKind(t.Kind) {
		case journal.TemplateTitle:
			pages.Title = count
		case journal.TemplateIntro:
			pages.Intro = count
		case journal.TemplateOutro:
			pages.Outro = count
		}
	}
	return pages
}

// templatePageCount estimates a template's page count against the session's
// current page format. Estimation failures fall back to a single page.
func (h *Handler) templatePageCount(c *gin.Context, sessionID string, wordCount int) int {
	settings, err := h.settingsRepo.Get(c.Request.Context(), sessionID)
	if err != nil {
		return 1
	}
	format, err := h.formatCache.GetFormat(settings.PageFormat)
	if err != nil {
		return 1
	}
	return h.compositor.Measure(wordCount, format)
}
