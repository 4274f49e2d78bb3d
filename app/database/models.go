package database

import (
	"time"
)

type Session struct {
	ID        string
	Status    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Article is an uploaded document's registry record. Title, Author and
// Confidence stay NULL until the extractor delivers metadata. Position is the
// article's upload sequence within its session and never changes.
type Article struct {
	ID         string
	SessionID  string
	Filename   string
	FilePath   string
	Title      *string
	Author     *string
	Language   string
	Confidence *float64
	WordCount  int
	SortOrder  int
	Position   int64
	CreatedAt  time.Time
}

type Template struct {
	ID        string
	SessionID string
	Kind      string // 'title' | 'intro' | 'outro'
	Filename  string
	FilePath  string
	Pages     int
	CreatedAt time.Time
}

// TaskStatus is the lifecycle of a generation task. Transitions are
// one-directional: pending -> processing -> done | error.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskDone       TaskStatus = "done"
	TaskError      TaskStatus = "error"
)

// GenerationTask is one journal generation run. InputSnapshot is the JSON
// capture of the article order, settings and template selection taken at
// creation; later session edits never reach an in-flight task.
type GenerationTask struct {
	ID            string
	SessionID     string
	Status        TaskStatus
	Progress      int
	CurrentStep   *string
	ErrorMessage  *string
	InputSnapshot string
	ResultPath    *string
	Pages         int
	ArticlesCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

type ArchiveEntry struct {
	ID            string
	TaskID        string
	Year          int
	Month         int
	Filename      string
	FilePath      string
	Pages         int
	ArticlesCount int
	FileSize      int64
	CreatedAt     time.Time
}
