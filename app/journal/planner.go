package journal

// MeasureFunc supplies a page count for an article without invoking the full
// compositor. Returning zero or less means the article is unmeasured.
type MeasureFunc func(Article) int

const defaultTOCEntriesPerPage = 30

// Planner computes the logical journal structure: title page, intro, table of
// contents, one item per article, and outro, each with its page range. The
// planner never renders anything; page counts come from template metadata,
// the measure callback, or a default of one page per unmeasured article.
//
// The table of contents is placed right after the title/intro block and
// before the first article. Its own size depends on the article count, so the
// plan is computed in exactly two passes: pass one assumes a one-page table
// of contents, pass two recomputes its size from the number of entries and
// shifts every subsequent start page. A third pass changing the size again is
// reported as a PlanningError.
type Planner struct{}

func NewPlanner() *Planner {
	return &Planner{}
}

// Run plans the journal for an already ordered article list. Settings only
// participate through validation here; indent lines are a rendering concern
// and do not change page counts. An empty article list yields a structure
// with the supplied templates only and no table of contents.
func (p *Planner) Run(ordered []Article, templates TemplatePages, settings Settings, format Format, measure MeasureFunc) (*Structure, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	entriesPerPage := format.TOCEntriesPerPage
	if entriesPerPage <= 0 {
		entriesPerPage = defaultTOCEntriesPerPage
	}

	items := make([]StructureItem, 0, len(ordered)+4)

	if templates.Title > 0 {
		items = append(items, StructureItem{Type: ItemTitle, PageCount: templates.Title})
	}
	if templates.Intro > 0 {
		items = append(items, StructureItem{Type: ItemIntro, PageCount: templates.Intro})
	}

	tocIndex := -1
	if len(ordered) > 0 {
		tocIndex = len(items)
		// Pass one: placeholder size, corrected below.
		items = append(items, StructureItem{Type: ItemTOC, PageCount: 1})
	}

	for _, article := range ordered {
		pages := article.Pages
		if measure != nil {
			if measured := measure(article); measured > 0 {
				pages = measured
			}
		}
		if pages <= 0 {
			pages = 1
		}
		items = append(items, StructureItem{
			Type:      ItemArticle,
			Title:     article.Title,
			Author:    article.Author,
			PageCount: pages,
		})
	}

	if templates.Outro > 0 {
		items = append(items, StructureItem{Type: ItemOutro, PageCount: templates.Outro})
	}

	page := 1
	for i := range items {
		items[i].PageStart = page
		page += items[i].PageCount
	}

	if tocIndex >= 0 {
		// Pass two: actual size from the entry count.
		tocPages := tocPageCount(len(ordered), entriesPerPage)
		delta := tocPages - items[tocIndex].PageCount
		items[tocIndex].PageCount = tocPages
		if delta != 0 {
			for i := tocIndex + 1; i < len(items); i++ {
				items[i].PageStart += delta
			}
		}

		// The size is a pure function of the entry count, so a second
		// recomputation diverging means the plan is inconsistent.
		if check := tocPageCount(len(ordered), entriesPerPage); check != tocPages {
			return nil, &PlanningError{
				Stage:  "toc",
				Reason: "table of contents size did not stabilize after two passes",
			}
		}
	}

	total := 0
	for _, item := range items {
		total += item.PageCount
	}

	return &Structure{Items: items, TotalPages: total}, nil
}

func tocPageCount(entries, entriesPerPage int) int {
	if entries <= 0 {
		return 0
	}
	return (entries + entriesPerPage - 1) / entriesPerPage
}
