package journal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Format describes a page format preset: physical page size plus the layout
// constants the planner and compositor derive page counts from.
type Format struct {
	Name              string  `yaml:"name"`
	PageWidthMM       float64 `yaml:"page_width_mm"`
	PageHeightMM      float64 `yaml:"page_height_mm"`
	LinesPerPage      int     `yaml:"lines_per_page"`
	WordsPerPage      int     `yaml:"words_per_page"`
	TOCEntriesPerPage int     `yaml:"toc_entries_per_page"`
	Margins           Margins `yaml:"margins"`
}

// FormatCache loads page format presets from YAML files in the formats
// directory. Built-in A4 and A5 presets are always available; files with the
// same name override them.
type FormatCache struct {
	formatsDir string
	cache      map[string]*Format
	mu         sync.RWMutex
}

func NewFormatCache(formatsDir string) *FormatCache {
	fc := &FormatCache{
		formatsDir: formatsDir,
		cache:      make(map[string]*Format),
	}
	for _, preset := range builtinFormats() {
		fc.cache[preset.Name] = preset
	}
	return fc
}

func (fc *FormatCache) Run() error {
	if _, err := os.Stat(fc.formatsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(fc.formatsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}
	yamlFiles, err := filepath.Glob(filepath.Join(fc.formatsDir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	for _, file := range files {
		format, err := fc.loadFile(file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}
		slog.Debug("Page format loaded", "format", format.Name, "width_mm", format.PageWidthMM, "height_mm", format.PageHeightMM)
	}

	return nil
}

func (fc *FormatCache) loadFile(path string) (*Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var format Format
	if err := yaml.Unmarshal(data, &format); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if format.Name == "" {
		base := filepath.Base(path)
		format.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	fc.setDefaults(&format)

	if err := fc.validate(&format); err != nil {
		return nil, fmt.Errorf("invalid format %s: %w", path, err)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.cache[format.Name] = &format

	return &format, nil
}

func (fc *FormatCache) setDefaults(format *Format) {
	if format.LinesPerPage == 0 {
		format.LinesPerPage = 45
	}
	if format.WordsPerPage == 0 {
		format.WordsPerPage = 250
	}
	if format.TOCEntriesPerPage == 0 {
		format.TOCEntriesPerPage = defaultTOCEntriesPerPage
	}
	if format.Margins == (Margins{}) {
		format.Margins = Margins{Left: 20, Right: 15, Top: 20, Bottom: 20}
	}
}

func (fc *FormatCache) validate(format *Format) error {
	if format.PageWidthMM <= 0 || format.PageHeightMM <= 0 {
		return fmt.Errorf("page dimensions must be positive")
	}
	if format.LinesPerPage < 1 {
		return fmt.Errorf("lines per page must be positive")
	}
	if format.WordsPerPage < 1 {
		return fmt.Errorf("words per page must be positive")
	}
	if format.TOCEntriesPerPage < 1 {
		return fmt.Errorf("toc entries per page must be positive")
	}
	return nil
}

func (fc *FormatCache) GetFormat(name string) (*Format, error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	format, ok := fc.cache[name]
	if !ok {
		return nil, fmt.Errorf("page format '%s' not found", name)
	}
	return format, nil
}

func (fc *FormatCache) GetFormats() []*Format {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	formats := make([]*Format, 0, len(fc.cache))
	for _, format := range fc.cache {
		formats = append(formats, format)
	}
	return formats
}

func builtinFormats() []*Format {
	return []*Format{
		{
			Name:              "a4",
			PageWidthMM:       210,
			PageHeightMM:      297,
			LinesPerPage:      45,
			WordsPerPage:      250,
			TOCEntriesPerPage: defaultTOCEntriesPerPage,
			Margins:           Margins{Left: 20, Right: 15, Top: 20, Bottom: 20},
		},
		{
			Name:              "a5",
			PageWidthMM:       148,
			PageHeightMM:      210,
			LinesPerPage:      34,
			WordsPerPage:      160,
			TOCEntriesPerPage: 22,
			Margins:           Margins{Left: 15, Right: 12, Top: 15, Bottom: 15},
		},
	}
}
