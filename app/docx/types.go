package docx

import "strings"

// Document is the extracted text content of a DOCX file.
type Document struct {
	Paragraphs []string
	WordCount  int
}

func newDocument(paragraphs []string) *Document {
	words := 0
	for _, paragraph := range paragraphs {
		words += len(strings.Fields(paragraph))
	}
	return &Document{Paragraphs: paragraphs, WordCount: words}
}

// Text joins all paragraphs with newlines.
func (d *Document) Text() string {
	return strings.Join(d.Paragraphs, "\n")
}

// Preview returns up to maxChars of text from the beginning of the document,
// enough for metadata extraction without shipping the whole article.
func (d *Document) Preview(maxChars int) string {
	var builder strings.Builder
	for _, paragraph := range d.Paragraphs {
		if builder.Len() >= maxChars {
			break
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(paragraph)
	}

	text := builder.String()
	if len(text) > maxChars {
		runes := []rune(text)
		if len(runes) > maxChars {
			return string(runes[:maxChars])
		}
	}
	return text
}
