package journal

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sorter produces the total order of articles used for journal assembly:
// latin-script authors first (A-Z), then cyrillic (А-Я). Authors are compared
// case-insensitively with the collation rules of the bucket's own script.
// Articles without an author sort after all authored articles within their
// bucket, ties break by title and finally by original upload order, so the
// result is deterministic for any input.
type Sorter struct {
	latin    *collate.Collator
	cyrillic *collate.Collator
}

func NewSorter() *Sorter {
	return &Sorter{
		latin:    collate.New(language.English, collate.IgnoreCase),
		cyrillic: collate.New(language.Russian, collate.IgnoreCase),
	}
}

// Run returns a new slice with the journal order applied. The input is not
// modified. Running it twice on the same set yields an identical sequence.
func (s *Sorter) Run(articles []Article) []Article {
	sorted := make([]Article, len(articles))
	copy(sorted, articles)

	// Normalize to upload order first so the stable sort ties resolve the
	// same way regardless of how the caller ordered the input.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	sort.SliceStable(sorted, func(i, j int) bool {
		return s.less(sorted[i], sorted[j])
	})

	return sorted
}

func (s *Sorter) less(a, b Article) bool {
	ba, bb := bucket(a.Language), bucket(b.Language)
	if ba != bb {
		return ba < bb
	}

	collator := s.latin
	if ba == bucketCyrillic {
		collator = s.cyrillic
	}

	authorA := strings.TrimSpace(a.Author)
	authorB := strings.TrimSpace(b.Author)

	// Authored articles come before anonymous ones within a bucket.
	if (authorA == "") != (authorB == "") {
		return authorB == ""
	}

	if authorA != authorB {
		if cmp := collator.CompareString(authorA, authorB); cmp != 0 {
			return cmp < 0
		}
	}

	if a.Title != b.Title {
		if cmp := collator.CompareString(a.Title, b.Title); cmp != 0 {
			return cmp < 0
		}
	}

	// Equal keys: leave upload order in place (stable sort).
	return false
}

const (
	bucketLatin = iota
	bucketCyrillic
)

// bucket maps a language to its placement group. Unknown is grouped with
// cyrillic rather than dropped.
func bucket(lang Language) int {
	if lang == LanguageLatin {
		return bucketLatin
	}
	return bucketCyrillic
}
