package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zhurnal-dev/zhurnal/app/database"
)

// ExtractMetadataTask runs metadata extraction for one uploaded article.
// Extraction never blocks an upload: the article stays listed with NULL
// metadata until this task delivers, and transient API failures are retried.
type ExtractMetadataTask struct {
	Task
	articleID   string
	filePath    string
	articleRepo *database.ArticleRepository
	parser      ParserInterface
	extractor   ExtractorInterface
}

func NewExtractMetadataTask(sessionID, articleID, filePath string,
	articleRepo *database.ArticleRepository, parser ParserInterface, extractor ExtractorInterface) *ExtractMetadataTask {
	return &ExtractMetadataTask{
		Task:        NewTask(TaskTypeExtractMetadata, sessionID),
		articleID:   articleID,
		filePath:    filePath,
		articleRepo: articleRepo,
		parser:      parser,
		extractor:   extractor,
	}
}

func (t *ExtractMetadataTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := os.ReadFile(t.filePath)
	if err != nil {
		return fmt.Errorf("failed to read article file: %w", err)
	}

	doc, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse article: %w", err)
	}

	metadata, err := t.extractor.Run(ctx, doc.Text())
	if err != nil {
		return fmt.Errorf("failed to extract metadata: %w", err)
	}

	err = t.articleRepo.UpdateMetadata(ctx, t.articleID, metadata.Title, metadata.Author, string(metadata.Language), metadata.Confidence)
	if err != nil {
		return fmt.Errorf("failed to store metadata: %w", err)
	}

	slog.Info("Task completed",
		"type", "ExtractMetadata",
		"article_id", t.articleID,
		"session", t.SessionID,
		"duration", t.GetDuration(),
		"language", string(metadata.Language),
		"confidence", metadata.Confidence)

	return nil
}
