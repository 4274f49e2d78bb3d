package journal

import "fmt"

// Language identifies the script of an article's author. Unknown authors are
// grouped with cyrillic for placement purposes.
type Language string

const (
	LanguageLatin    Language = "latin"
	LanguageCyrillic Language = "cyrillic"
	LanguageUnknown  Language = "unknown"
)

func ParseLanguage(value string) Language {
	switch value {
	case string(LanguageLatin):
		return LanguageLatin
	case string(LanguageCyrillic):
		return LanguageCyrillic
	default:
		return LanguageUnknown
	}
}

// Article is the ordering and planning view of an uploaded document.
// Position records original upload order and is the final sorting tie-break.
// Pages carries a measured page count; zero means unmeasured.
type Article struct {
	ID         string
	Filename   string
	Title      string
	Author     string
	Language   Language
	Confidence *float64
	Position   int
	Pages      int
}

type TemplateKind string

const (
	TemplateTitle TemplateKind = "title"
	TemplateIntro TemplateKind = "intro"
	TemplateOutro TemplateKind = "outro"
)

func ParseTemplateKind(value string) (TemplateKind, bool) {
	switch value {
	case string(TemplateTitle):
		return TemplateTitle, true
	case string(TemplateIntro):
		return TemplateIntro, true
	case string(TemplateOutro):
		return TemplateOutro, true
	default:
		return "", false
	}
}

// TemplatePages holds the page counts of the active templates for a session.
// Zero means the template is absent.
type TemplatePages struct {
	Title int
	Intro int
	Outro int
}

type Margins struct {
	Left   float64 `yaml:"left" json:"left"`
	Right  float64 `yaml:"right" json:"right"`
	Top    float64 `yaml:"top" json:"top"`
	Bottom float64 `yaml:"bottom" json:"bottom"`
}

// Settings is the per-session journal configuration.
type Settings struct {
	IndentLines int     `json:"indent_lines"`
	PageFormat  string  `json:"page_format"`
	Margins     Margins `json:"margins"`
	Year        int     `json:"year"`
	Month       int     `json:"month"`
}

func (s Settings) Validate() error {
	if s.IndentLines < 0 {
		return fmt.Errorf("indent lines must be non-negative, got %d", s.IndentLines)
	}
	if s.PageFormat == "" {
		return fmt.Errorf("page format is required")
	}
	if s.Month < 1 || s.Month > 12 {
		return fmt.Errorf("month must be between 1 and 12, got %d", s.Month)
	}
	if s.Year < 1 {
		return fmt.Errorf("year must be positive, got %d", s.Year)
	}
	if s.Margins.Left < 0 || s.Margins.Right < 0 || s.Margins.Top < 0 || s.Margins.Bottom < 0 {
		return fmt.Errorf("margins must be non-negative")
	}
	return nil
}

// minPrintableMM is the smallest printable span, in millimetres, the margins
// must leave on each axis of the page.
const minPrintableMM = 20.0

// ValidateFor checks the settings against a concrete page format. The margins
// must leave a printable area on the page.
func (s Settings) ValidateFor(format *Format) error {
	if format.PageWidthMM-s.Margins.Left-s.Margins.Right < minPrintableMM {
		return fmt.Errorf("left and right margins leave no printable width on a %s page", format.Name)
	}
	if format.PageHeightMM-s.Margins.Top-s.Margins.Bottom < minPrintableMM {
		return fmt.Errorf("top and bottom margins leave no printable height on a %s page", format.Name)
	}
	return nil
}

type ItemType string

const (
	ItemTitle   ItemType = "title"
	ItemIntro   ItemType = "intro"
	ItemArticle ItemType = "article"
	ItemTOC     ItemType = "toc"
	ItemOutro   ItemType = "outro"
)

// StructureItem is one logical block of the planned journal. Page numbering
// starts at 1.
type StructureItem struct {
	Type      ItemType `json:"type"`
	Title     string   `json:"title,omitempty"`
	Author    string   `json:"author,omitempty"`
	PageStart int      `json:"page_start"`
	PageCount int      `json:"page_count"`
}

type Structure struct {
	Items      []StructureItem `json:"items"`
	TotalPages int             `json:"total_pages"`
}
