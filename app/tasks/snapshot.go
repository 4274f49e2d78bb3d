package tasks

import (
	"path/filepath"
	"strings"

	"github.com/zhurnal-dev/zhurnal/app/database"
	"github.com/zhurnal-dev/zhurnal/app/journal"
)

// Snapshot is the frozen input of one generation run: the articles with their
// metadata and file locations, the selected templates, and the journal
// settings, all captured at task creation time. Session edits made while the
// task runs never reach it.
type Snapshot struct {
	Articles  []SnapshotArticle  `json:"articles"`
	Templates []SnapshotTemplate `json:"templates"`
	Settings  journal.Settings   `json:"settings"`
}

type SnapshotArticle struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	FilePath  string `json:"file_path"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Language  string `json:"language"`
	WordCount int    `json:"word_count"`
	Position  int    `json:"position"`
}

type SnapshotTemplate struct {
	Kind     string `json:"kind"`
	FilePath string `json:"file_path"`
	Pages    int    `json:"pages"`
}

// BuildSnapshot captures the current state of a session's articles, templates
// and settings. Positions carry each article's upload order so ties break the
// same way on every run.
func BuildSnapshot(articles []database.Article, templates []database.Template, settings journal.Settings) Snapshot {
	snapshot := Snapshot{Settings: settings}

	for _, a := range articles {
		sa := SnapshotArticle{
			ID:        a.ID,
			Filename:  a.Filename,
			FilePath:  a.FilePath,
			Language:  a.Language,
			WordCount: a.WordCount,
			Position:  int(a.Position),
		}
		if a.Title != nil {
			sa.Title = *a.Title
		}
		if a.Author != nil {
			sa.Author = *a.Author
		}
		snapshot.Articles = append(snapshot.Articles, sa)
	}

	for _, t := range templates {
		snapshot.Templates = append(snapshot.Templates, SnapshotTemplate{
			Kind:     t.Kind,
			FilePath: t.FilePath,
			Pages:    t.Pages,
		})
	}

	return snapshot
}

// journalArticles converts the snapshot into the ordering/planning view.
// Articles without an extracted title fall back to their filename stem.
func (s Snapshot) journalArticles() []journal.Article {
	articles := make([]journal.Article, 0, len(s.Articles))
	for _, a := range s.Articles {
		title := a.Title
		if title == "" {
			base := filepath.Base(a.Filename)
			title = strings.TrimSuffix(base, filepath.Ext(base))
		}
		articles = append(articles, journal.Article{
			ID:       a.ID,
			Filename: a.Filename,
			Title:    title,
			Author:   a.Author,
			Language: journal.ParseLanguage(a.Language),
			Position: a.Position,
		})
	}
	return articles
}

func (s Snapshot) wordCounts() map[string]int {
	counts := make(map[string]int, len(s.Articles))
	for _, a := range s.Articles {
		counts[a.ID] = a.WordCount
	}
	return counts
}

func (s Snapshot) filePaths() map[string]string {
	paths := make(map[string]string, len(s.Articles))
	for _, a := range s.Articles {
		paths[a.ID] = a.FilePath
	}
	return paths
}

func (s Snapshot) templatePages() journal.TemplatePages {
	var pages journal.TemplatePages
	for _, t := range s.Templates {
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

func (s Snapshot) templatePath(kind journal.TemplateKind) string {
	for _, t := range s.Templates {
		if journal.TemplateKind(t.Kind) == kind {
			return t.FilePath
		}
	}
	return ""
}
