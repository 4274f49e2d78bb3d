package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/zhurnal-dev/zhurnal/app/journal"
)

// Metadata is the best-effort extraction result for one article.
type Metadata struct {
	Title      string           `json:"title"`
	Author     string           `json:"author"`
	Language   journal.Language `json:"language"`
	Confidence float64          `json:"confidence"`
}

const (
	previewChars       = 2000
	fallbackConfidence = 0.3
)

const systemPrompt = `You are an assistant for a journal editor.
Your job is to extract metadata from scholarly articles.

IMPORTANT:
- Do NOT rewrite or edit the article text
- Only extract the title and the author
- Detect the author's script (latin or cyrillic)`

// Extractor pulls {title, author, language, confidence} from article text via
// an OpenRouter-compatible chat completions API. When the API is
// unconfigured or fails, a heuristic fallback keeps uploads moving: the first
// non-empty line becomes the title, the second the author, and the script is
// detected from the author's first letter.
type Extractor struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

func NewExtractor(baseURL, model, apiKey string) *Extractor {
	return &Extractor{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Run extracts metadata from the beginning of the article text. It never
// returns an error for extraction-quality problems, only for a cancelled
// context; degraded results carry a low confidence instead.
func (e *Extractor) Run(ctx context.Context, text string) (*Metadata, error) {
	preview := capRunes(text, previewChars)

	if e.apiKey != "" {
		metadata, err := e.extractWithAI(ctx, preview)
		if err == nil {
			return metadata, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("AI extraction failed, falling back to heuristics", "error", err)
	}

	return heuristicExtraction(preview), nil
}

func (e *Extractor) extractWithAI(ctx context.Context, text string) (*Metadata, error) {
	userPrompt := fmt.Sprintf(`Extract from the beginning of the article:
1. The article title
2. The author's full name (or authors)
3. The author's script (latin or cyrillic)

Article text:
%s

Answer strictly as JSON:
{"title": "...", "author": "...", "language": "latin" or "cyrillic", "confidence": number from 0.0 to 1.0}`, text)

	body, err := json.Marshal(map[string]any{
		"model": e.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal extraction payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extraction API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("extraction API error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("completion has no choices")
	}

	return parseMetadataJSON(completion.Choices[0].Message.Content)
}

func parseMetadataJSON(content string) (*Metadata, error) {
	// Models sometimes wrap the JSON in code fences or prose.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("completion contains no JSON object")
	}

	var raw struct {
		Title      string  `json:"title"`
		Author     string  `json:"author"`
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse metadata JSON: %w", err)
	}

	metadata := &Metadata{
		Title:      strings.TrimSpace(raw.Title),
		Author:     strings.TrimSpace(raw.Author),
		Language:   journal.ParseLanguage(raw.Language),
		Confidence: raw.Confidence,
	}
	if metadata.Language == journal.LanguageUnknown {
		metadata.Language = DetectLanguage(metadata.Author)
	}
	if metadata.Confidence <= 0 || metadata.Confidence > 1 {
		metadata.Confidence = 0.5
	}
	return metadata, nil
}

func heuristicExtraction(text string) *Metadata {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	metadata := &Metadata{Confidence: fallbackConfidence}
	if len(lines) > 0 {
		metadata.Title = lines[0]
	}
	if len(lines) > 1 {
		metadata.Author = lines[1]
	}
	metadata.Language = DetectLanguage(metadata.Author)

	return metadata
}

// DetectLanguage classifies an author name by the script of its first letter.
// Names starting with anything else stay unknown and are placed with the
// cyrillic bucket downstream.
func DetectLanguage(author string) journal.Language {
	for _, r := range author {
		if !unicode.IsLetter(r) {
			continue
		}
		switch {
		case unicode.Is(unicode.Latin, r):
			return journal.LanguageLatin
		case unicode.Is(unicode.Cyrillic, r):
			return journal.LanguageCyrillic
		default:
			return journal.LanguageUnknown
		}
	}
	return journal.LanguageUnknown
}

func capRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
