package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Parser extracts paragraph text from DOCX documents. A DOCX file is a zip
// container; the body lives in word/document.xml as WordprocessingML, where
// w:p elements are paragraphs and w:t elements carry text runs.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Run parses the document bytes and returns its paragraph text. It fails on
// anything that is not a readable DOCX container.
func (p *Parser) Run(data []byte) (*Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a valid docx container: %w", err)
	}

	var body *zip.File
	for _, file := range reader.File {
		if file.Name == "word/document.xml" {
			body = file
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("docx container has no word/document.xml")
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("open document body: %w", err)
	}
	defer rc.Close()

	paragraphs, err := extractParagraphs(rc)
	if err != nil {
		return nil, fmt.Errorf("parse document body: %w", err)
	}

	return newDocument(paragraphs), nil
}

func extractParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch element := token.(type) {
		case xml.StartElement:
			switch element.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				if inParagraph {
					current.WriteString("\t")
				}
			case "br":
				if inParagraph {
					current.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch element.Name.Local {
			case "p":
				inParagraph = false
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inParagraph && inText {
				current.Write(element)
			}
		}
	}

	return paragraphs, nil
}
