package journal

import (
	"testing"
)

func testSettings() Settings {
	return Settings{
		IndentLines: 0,
		PageFormat:  "a4",
		Margins:     Margins{Left: 20, Right: 15, Top: 20, Bottom: 20},
		Year:        2026,
		Month:       9,
	}
}

func testFormat() Format {
	return Format{
		Name:              "a4",
		PageWidthMM:       210,
		PageHeightMM:      297,
		LinesPerPage:      45,
		WordsPerPage:      250,
		TOCEntriesPerPage: 30,
	}
}

func TestPlanner_Run_EmptyInput(t *testing.T) {
	planner := NewPlanner()

	structure, err := planner.Run(nil, TemplatePages{}, testSettings(), testFormat(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(structure.Items) != 0 {
		t.Errorf("Expected no items, got %d", len(structure.Items))
	}
	if structure.TotalPages != 0 {
		t.Errorf("Expected 0 total pages, got %d", structure.TotalPages)
	}
}

func TestPlanner_Run_TemplatesOnly(t *testing.T) {
	planner := NewPlanner()

	structure, err := planner.Run(nil, TemplatePages{Title: 1, Intro: 2, Outro: 1}, testSettings(), testFormat(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(structure.Items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(structure.Items))
	}
	for _, item := range structure.Items {
		if item.Type == ItemTOC {
			t.Error("No table of contents expected without articles")
		}
	}
	if structure.TotalPages != 4 {
		t.Errorf("Expected 4 total pages, got %d", structure.TotalPages)
	}
}

func TestPlanner_Run_ItemOrderAndPageStarts(t *testing.T) {
	planner := NewPlanner()

	articles := []Article{
		{ID: "1", Title: "First", Author: "Adams", Pages: 4},
		{ID: "2", Title: "Second", Author: "Smith", Pages: 6},
	}

	structure, err := planner.Run(articles, TemplatePages{Title: 1, Intro: 2, Outro: 1}, testSettings(), testFormat(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expectedTypes := []ItemType{ItemTitle, ItemIntro, ItemTOC, ItemArticle, ItemArticle, ItemOutro}
	if len(structure.Items) != len(expectedTypes) {
		t.Fatalf("Expected %d items, got %d", len(expectedTypes), len(structure.Items))
	}
	for i, itemType := range expectedTypes {
		if structure.Items[i].Type != itemType {
			t.Errorf("Item %d: expected type '%s', got '%s'", i, itemType, structure.Items[i].Type)
		}
	}

	// title 1 | intro 2-3 | toc 4 | article 5-8 | article 9-14 | outro 15
	expectedStarts := []int{1, 2, 4, 5, 9, 15}
	for i, start := range expectedStarts {
		if structure.Items[i].PageStart != start {
			t.Errorf("Item %d: expected page start %d, got %d", i, start, structure.Items[i].PageStart)
		}
	}

	if structure.TotalPages != 15 {
		t.Errorf("Expected 15 total pages, got %d", structure.TotalPages)
	}
}

func TestPlanner_Run_TotalEqualsSumOfPageCounts(t *testing.T) {
	planner := NewPlanner()

	articles := []Article{
		{ID: "1", Pages: 3},
		{ID: "2", Pages: 7},
		{ID: "3"}, // unmeasured, defaults to 1
	}

	structure, err := planner.Run(articles, TemplatePages{Intro: 2}, testSettings(), testFormat(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sum := 0
	for _, item := range structure.Items {
		sum += item.PageCount
	}
	if structure.TotalPages != sum {
		t.Errorf("TotalPages %d does not equal item sum %d", structure.TotalPages, sum)
	}
}

func TestPlanner_Run_TOCGrowsWithEntries(t *testing.T) {
	planner := NewPlanner()

	// 65 entries at 30 per page need 3 toc pages; the placeholder is 1, so
	// the second pass must shift everything after the toc by 2.
	articles := make([]Article, 65)
	for i := range articles {
		articles[i] = Article{ID: string(rune('a' + i%26)), Pages: 2, Position: i}
	}

	structure, err := planner.Run(articles, TemplatePages{Title: 1}, testSettings(), testFormat(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	toc := structure.Items[1]
	if toc.Type != ItemTOC {
		t.Fatalf("Expected toc at index 1, got '%s'", toc.Type)
	}
	if toc.PageCount != 3 {
		t.Errorf("Expected 3 toc pages for 65 entries, got %d", toc.PageCount)
	}
	if toc.PageStart != 2 {
		t.Errorf("Expected toc to start at page 2, got %d", toc.PageStart)
	}

	firstArticle := structure.Items[2]
	if firstArticle.PageStart != 5 {
		t.Errorf("Expected first article at page 5 after toc shift, got %d", firstArticle.PageStart)
	}

	// 1 title + 3 toc + 65*2 articles
	if structure.TotalPages != 134 {
		t.Errorf("Expected 134 total pages, got %d", structure.TotalPages)
	}
}

func TestPlanner_Run_Idempotent(t *testing.T) {
	planner := NewPlanner()

	articles := []Article{
		{ID: "1", Title: "One", Pages: 2},
		{ID: "2", Title: "Two", Pages: 5},
	}

	first, err := planner.Run(articles, TemplatePages{Title: 1, Outro: 2}, testSettings(), testFormat(), nil)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := planner.Run(articles, TemplatePages{Title: 1, Outro: 2}, testSettings(), testFormat(), nil)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if len(first.Items) != len(second.Items) {
		t.Fatalf("Item counts differ: %d vs %d", len(first.Items), len(second.Items))
	}
	for i := range first.Items {
		if first.Items[i] != second.Items[i] {
			t.Errorf("Item %d differs between runs: %+v vs %+v", i, first.Items[i], second.Items[i])
		}
	}
	if first.TotalPages != second.TotalPages {
		t.Errorf("Total pages differ: %d vs %d", first.TotalPages, second.TotalPages)
	}
}

func TestPlanner_Run_MeasureCallbackOverridesDefault(t *testing.T) {
	planner := NewPlanner()

	articles := []Article{{ID: "1", Title: "Measured"}}
	measure := func(a Article) int { return 9 }

	structure, err := planner.Run(articles, TemplatePages{}, testSettings(), testFormat(), measure)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, item := range structure.Items {
		if item.Type == ItemArticle && item.PageCount != 9 {
			t.Errorf("Expected measured page count 9, got %d", item.PageCount)
		}
	}
}

func TestPlanner_Run_IndentLinesDoNotChangePageCounts(t *testing.T) {
	planner := NewPlanner()

	articles := []Article{{ID: "1", Pages: 3}}

	plain := testSettings()
	indented := testSettings()
	indented.IndentLines = 5

	first, err := planner.Run(articles, TemplatePages{}, plain, testFormat(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := planner.Run(articles, TemplatePages{}, indented, testFormat(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if first.TotalPages != second.TotalPages {
		t.Errorf("Indent lines changed total pages: %d vs %d", first.TotalPages, second.TotalPages)
	}
}

func TestPlanner_Run_RejectsInvalidSettings(t *testing.T) {
	planner := NewPlanner()

	settings := testSettings()
	settings.Month = 13

	if _, err := planner.Run(nil, TemplatePages{}, settings, testFormat(), nil); err == nil {
		t.Error("Expected validation error for month 13")
	}
}
