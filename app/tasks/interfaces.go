package tasks

import (
	"context"

	"github.com/zhurnal-dev/zhurnal/app/compositor"
	"github.com/zhurnal-dev/zhurnal/app/docx"
	"github.com/zhurnal-dev/zhurnal/app/extractor"
	"github.com/zhurnal-dev/zhurnal/app/journal"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the HTTP handlers to submit background
// work.
// Example usage:
//
//	scheduler := NewScheduler(sessionRepo, articleRepo, templateRepo)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewGenerateJournalTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type CompositorInterface interface {
	Measure(wordCount int, format *journal.Format) int
	Run(ctx context.Context, plan *journal.Structure, texts compositor.Texts, settings journal.Settings, format *journal.Format, progress compositor.ProgressFunc) ([]byte, int, error)
}

type ExtractorInterface interface {
	Run(ctx context.Context, text string) (*extractor.Metadata, error)
}

type ParserInterface interface {
	Run(data []byte) (*docx.Document, error)
}
