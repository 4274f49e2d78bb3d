package journal

import (
	"testing"
)

func TestSorter_Run_LatinBeforeCyrillic(t *testing.T) {
	sorter := NewSorter()

	articles := []Article{
		{ID: "1", Author: "Smith", Language: LanguageLatin, Position: 0},
		{ID: "2", Author: "Петров", Language: LanguageCyrillic, Position: 1},
		{ID: "3", Author: "Adams", Language: LanguageLatin, Position: 2},
	}

	result := sorter.Run(articles)

	if len(result) != 3 {
		t.Fatalf("Expected 3 articles, got %d", len(result))
	}

	expected := []string{"Adams", "Smith", "Петров"}
	for i, author := range expected {
		if result[i].Author != author {
			t.Errorf("Position %d: expected author '%s', got '%s'", i, author, result[i].Author)
		}
	}
}

func TestSorter_Run_UnknownGroupedWithCyrillic(t *testing.T) {
	sorter := NewSorter()

	articles := []Article{
		{ID: "1", Author: "Аверин", Language: LanguageUnknown, Position: 0},
		{ID: "2", Author: "Zimmer", Language: LanguageLatin, Position: 1},
	}

	result := sorter.Run(articles)

	if result[0].Author != "Zimmer" {
		t.Errorf("Expected latin article first, got '%s'", result[0].Author)
	}
	if result[1].Author != "Аверин" {
		t.Errorf("Expected unknown-language article placed with cyrillic, got '%s'", result[1].Author)
	}
}

func TestSorter_Run_CaseInsensitiveWithinBucket(t *testing.T) {
	sorter := NewSorter()

	articles := []Article{
		{ID: "1", Author: "brown", Language: LanguageLatin, Position: 0},
		{ID: "2", Author: "Adams", Language: LanguageLatin, Position: 1},
		{ID: "3", Author: "CLARK", Language: LanguageLatin, Position: 2},
	}

	result := sorter.Run(articles)

	expected := []string{"Adams", "brown", "CLARK"}
	for i, author := range expected {
		if result[i].Author != author {
			t.Errorf("Position %d: expected author '%s', got '%s'", i, author, result[i].Author)
		}
	}
}

func TestSorter_Run_EmptyAuthorAfterAuthored(t *testing.T) {
	sorter := NewSorter()

	articles := []Article{
		{ID: "1", Author: "", Title: "Anonymous Study", Language: LanguageLatin, Position: 0},
		{ID: "2", Author: "Watson", Language: LanguageLatin, Position: 1},
		{ID: "3", Author: "Иванов", Language: LanguageCyrillic, Position: 2},
		{ID: "4", Author: "  ", Title: "Blank Author", Language: LanguageCyrillic, Position: 3},
	}

	result := sorter.Run(articles)

	if result[0].Author != "Watson" {
		t.Errorf("Expected authored latin article first, got '%s'", result[0].Author)
	}
	if result[1].Title != "Anonymous Study" {
		t.Errorf("Expected anonymous latin article second, got '%s'", result[1].Title)
	}
	if result[2].Author != "Иванов" {
		t.Errorf("Expected authored cyrillic article third, got '%s'", result[2].Author)
	}
	if result[3].Title != "Blank Author" {
		t.Errorf("Expected anonymous cyrillic article last, got '%s'", result[3].Title)
	}
}

func TestSorter_Run_TitleBreaksAuthorTies(t *testing.T) {
	sorter := NewSorter()

	articles := []Article{
		{ID: "1", Author: "Smith", Title: "Zebra Patterns", Language: LanguageLatin, Position: 0},
		{ID: "2", Author: "Smith", Title: "Ant Colonies", Language: LanguageLatin, Position: 1},
	}

	result := sorter.Run(articles)

	if result[0].Title != "Ant Colonies" {
		t.Errorf("Expected title tie-break ascending, got '%s' first", result[0].Title)
	}
}

func TestSorter_Run_UploadOrderBreaksFullTies(t *testing.T) {
	sorter := NewSorter()

	articles := []Article{
		{ID: "b", Author: "Smith", Title: "Same", Language: LanguageLatin, Position: 5},
		{ID: "a", Author: "Smith", Title: "Same", Language: LanguageLatin, Position: 2},
	}

	result := sorter.Run(articles)

	if result[0].ID != "a" || result[1].ID != "b" {
		t.Errorf("Expected upload order to break full ties, got [%s %s]", result[0].ID, result[1].ID)
	}
}

func TestSorter_Run_Deterministic(t *testing.T) {
	sorter := NewSorter()

	articles := []Article{
		{ID: "1", Author: "Miller", Language: LanguageLatin, Position: 0},
		{ID: "2", Author: "Сидоров", Language: LanguageCyrillic, Position: 1},
		{ID: "3", Author: "", Language: LanguageUnknown, Position: 2},
		{ID: "4", Author: "miller", Title: "Other", Language: LanguageLatin, Position: 3},
	}

	first := sorter.Run(articles)
	second := sorter.Run(articles)

	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("Position %d differs between runs: '%s' vs '%s'", i, first[i].ID, second[i].ID)
		}
	}

	// Shuffled input must produce the same sequence.
	shuffled := []Article{articles[3], articles[1], articles[0], articles[2]}
	third := sorter.Run(shuffled)
	for i := range first {
		if first[i].ID != third[i].ID {
			t.Errorf("Position %d differs for shuffled input: '%s' vs '%s'", i, first[i].ID, third[i].ID)
		}
	}
}

func TestSorter_Run_EmptyInput(t *testing.T) {
	sorter := NewSorter()

	result := sorter.Run(nil)

	if len(result) != 0 {
		t.Errorf("Expected empty result, got %d articles", len(result))
	}
}

func TestSorter_Run_SingleBucket(t *testing.T) {
	sorter := NewSorter()

	articles := []Article{
		{ID: "1", Author: "Козлов", Language: LanguageCyrillic, Position: 0},
		{ID: "2", Author: "Белов", Language: LanguageCyrillic, Position: 1},
	}

	result := sorter.Run(articles)

	if len(result) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(result))
	}
	if result[0].Author != "Белов" {
		t.Errorf("Expected 'Белов' first, got '%s'", result[0].Author)
	}
}

func TestSorter_Run_InputNotModified(t *testing.T) {
	sorter := NewSorter()

	articles := []Article{
		{ID: "1", Author: "Smith", Language: LanguageLatin, Position: 0},
		{ID: "2", Author: "Adams", Language: LanguageLatin, Position: 1},
	}

	_ = sorter.Run(articles)

	if articles[0].ID != "1" || articles[1].ID != "2" {
		t.Error("Run should not modify its input slice")
	}
}
