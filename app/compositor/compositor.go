package compositor

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/zhurnal-dev/zhurnal/app/journal"
)

//go:embed cp1251.map
var cp1251Map []byte

// ProgressFunc reports compositing progress as rendered items out of total.
type ProgressFunc func(done, total int)

// Texts carries the document contents referenced by a journal plan.
// ArticleBodies is aligned with the article items of the plan, in order.
// Template texts may be empty when the session has no template of that kind.
type Texts struct {
	ArticleBodies []string
	Templates     map[journal.TemplateKind]string
}

var monthNames = [13]string{"",
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// Compositor renders a planned journal structure into a PDF. Cyrillic text is
// rendered through the cp1251 translator with the built-in core font; a UTF-8
// TTF can be supplied instead for full glyph coverage.
type Compositor struct {
	fontPath string
}

func NewCompositor(fontPath string) *Compositor {
	return &Compositor{fontPath: fontPath}
}

// Measure estimates the rendered page count of an article body from its word
// count. Every article occupies at least one page.
func (c *Compositor) Measure(wordCount int, format *journal.Format) int {
	if wordCount <= 0 {
		return 1
	}
	pages := (wordCount + format.WordsPerPage - 1) / format.WordsPerPage
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Run renders the planned structure into PDF bytes. Each item starts on
// the page the plan assigns to it; short items are padded with blank pages so
// the table of contents stays accurate. The returned page count is the actual
// size of the produced document.
func (c *Compositor) Run(ctx context.Context, plan *journal.Structure, texts Texts, settings journal.Settings, format *journal.Format, progress ProgressFunc) ([]byte, int, error) {
	if len(plan.Items) == 0 {
		return nil, 0, fmt.Errorf("nothing to compose: plan has no items")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: format.PageWidthMM, Ht: format.PageHeightMM},
	})
	pdf.SetMargins(settings.Margins.Left, settings.Margins.Top, settings.Margins.Right)
	pdf.SetAutoPageBreak(true, settings.Margins.Bottom)
	pdf.SetTitle(fmt.Sprintf("Журнал %s %d", monthNames[settings.Month], settings.Year), true)

	fontName, translate, err := c.setupFont(pdf)
	if err != nil {
		return nil, 0, err
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-settings.Margins.Bottom)
		pdf.SetFont(fontName, "", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	usableHeight := format.PageHeightMM - settings.Margins.Top - settings.Margins.Bottom
	lineHt := usableHeight / float64(format.LinesPerPage)

	r := &renderer{
		pdf:       pdf,
		fontName:  fontName,
		translate: translate,
		lineHt:    lineHt,
	}

	total := len(plan.Items)
	for i, item := range plan.Items {
		if err := ctx.Err(); err != nil {
			return nil, 0, journal.ErrCancelled
		}

		r.startItem(item.PageStart)

		switch item.Type {
		case journal.ItemTitle:
			r.renderTitlePage(item, texts.Templates[journal.TemplateTitle], settings)
		case journal.ItemIntro:
			r.renderTemplate(texts.Templates[journal.TemplateIntro])
		case journal.ItemOutro:
			r.renderTemplate(texts.Templates[journal.TemplateOutro])
		case journal.ItemTOC:
			r.renderTOC(plan)
		case journal.ItemArticle:
			body := ""
			if r.articleIndex < len(texts.ArticleBodies) {
				body = texts.ArticleBodies[r.articleIndex]
			}
			r.renderArticle(item, body, settings.IndentLines)
			r.articleIndex++
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, 0, fmt.Errorf("render journal: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, 0, fmt.Errorf("write journal PDF: %w", err)
	}

	return buf.Bytes(), pdf.PageCount(), nil
}

func (c *Compositor) setupFont(pdf *gofpdf.Fpdf) (string, func(string) string, error) {
	if c.fontPath != "" {
		pdf.AddUTF8Font("journal", "", c.fontPath)
		pdf.AddUTF8Font("journal", "B", c.fontPath)
		if err := pdf.Error(); err != nil {
			return "", nil, fmt.Errorf("load font %s: %w", c.fontPath, err)
		}
		return "journal", func(s string) string { return s }, nil
	}

	translate, err := gofpdf.UnicodeTranslator(bytes.NewReader(cp1251Map))
	if err != nil {
		return "", nil, fmt.Errorf("load cp1251 code page: %w", err)
	}
	return "Helvetica", translate, nil
}

type renderer struct {
	pdf          *gofpdf.Fpdf
	fontName     string
	translate    func(string) string
	lineHt       float64
	articleIndex int
}

// startItem opens the page the plan assigns to an item, padding with blank
// pages when the previous item rendered shorter than its planned count. The
// table of contents stays accurate that way.
func (r *renderer) startItem(page int) {
	for r.pdf.PageCount() < page-1 {
		r.pdf.AddPage()
	}
	r.pdf.AddPage()
}

func (r *renderer) renderTitlePage(item journal.StructureItem, template string, settings journal.Settings) {
	if strings.TrimSpace(template) != "" {
		r.renderParagraphs(template)
		return
	}

	r.pdf.SetY(r.pdf.GetY() + r.lineHt*8)
	r.pdf.SetFont(r.fontName, "B", 24)
	title := item.Title
	if title == "" {
		title = "Журнал"
	}
	r.pdf.CellFormat(0, r.lineHt*2, r.translate(title), "", 1, "C", false, 0, "")
	r.pdf.Ln(r.lineHt)
	r.pdf.SetFont(r.fontName, "", 14)
	r.pdf.CellFormat(0, r.lineHt, r.translate(fmt.Sprintf("%s %d", monthNames[settings.Month], settings.Year)), "", 1, "C", false, 0, "")
}

func (r *renderer) renderTemplate(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	r.renderParagraphs(text)
}

func (r *renderer) renderParagraphs(text string) {
	r.pdf.SetFont(r.fontName, "", 12)
	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			r.pdf.Ln(r.lineHt)
			continue
		}
		r.pdf.MultiCell(0, r.lineHt, r.translate(para), "", "L", false)
	}
}

func (r *renderer) renderTOC(plan *journal.Structure) {
	r.pdf.SetFont(r.fontName, "B", 16)
	r.pdf.CellFormat(0, r.lineHt*2, r.translate("Содержание"), "", 1, "C", false, 0, "")
	r.pdf.Ln(r.lineHt)

	r.pdf.SetFont(r.fontName, "", 11)
	pageWidth, _ := r.pdf.GetPageSize()
	left, _, right, _ := r.pdf.GetMargins()
	numWidth := 12.0
	labelWidth := pageWidth - left - right - numWidth
	if labelWidth < 1 {
		labelWidth = 1
	}

	for _, item := range plan.Items {
		if item.Type != journal.ItemArticle {
			continue
		}
		label := item.Title
		if item.Author != "" {
			label = fmt.Sprintf("%s. %s", item.Author, item.Title)
		}
		label = r.translate(label)

		// Truncate and pad with a dotted leader up to the page number column.
		runes := []rune(label)
		for len(runes) > 0 && r.pdf.GetStringWidth(string(runes)) > labelWidth-4 {
			runes = runes[:len(runes)-1]
		}
		label = string(runes)
		dots := label + " "
		for r.pdf.GetStringWidth(dots+". ") < labelWidth {
			dots += ". "
		}

		r.pdf.CellFormat(labelWidth, r.lineHt, dots, "", 0, "L", false, 0, "")
		r.pdf.CellFormat(numWidth, r.lineHt, fmt.Sprintf("%d", item.PageStart), "", 1, "R", false, 0, "")
	}
}

func (r *renderer) renderArticle(item journal.StructureItem, body string, indentLines int) {
	for i := 0; i < indentLines; i++ {
		r.pdf.Ln(r.lineHt)
	}

	r.pdf.SetFont(r.fontName, "B", 14)
	r.pdf.MultiCell(0, r.lineHt*1.4, r.translate(item.Title), "", "C", false)
	if item.Author != "" {
		r.pdf.SetFont(r.fontName, "", 12)
		r.pdf.CellFormat(0, r.lineHt, r.translate(item.Author), "", 1, "C", false, 0, "")
	}
	r.pdf.Ln(r.lineHt)

	r.renderParagraphs(body)
}
