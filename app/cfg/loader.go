package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DataDir    string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for uploaded documents and generated journals"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/zhurnal.db" description:"Path to the SQLite database file"`
	FormatsDir string `long:"formats-dir" env:"FORMATS_DIR" default:"./formats" description:"Directory containing page format preset files"`
	FontPath   string `long:"font-path" env:"FONT_PATH" description:"Path to a UTF-8 TTF font for PDF output; the built-in cp1251 core font is used when empty"`

	// Application configuration
	Port            string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl         string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://journal.example.com)"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for generation and extraction tasks"`
	CleanupInterval int    `long:"cleanup-interval" env:"CLEANUP_INTERVAL" default:"3600" description:"Expired session cleanup interval in seconds"`
	ComposeTimeout  int    `long:"compose-timeout" env:"COMPOSE_TIMEOUT" default:"300" description:"Deadline for the compositing step in seconds"`
	MaxUploadMB     int    `long:"max-upload-mb" env:"MAX_UPLOAD_MB" default:"50" description:"Maximum upload size in megabytes"`
	MaxArticles     int    `long:"max-articles" env:"MAX_ARTICLES" default:"100" description:"Maximum number of articles per session"`
	SessionTTLHours int    `long:"session-ttl" env:"SESSION_TTL_HOURS" default:"24" description:"Session lifetime in hours"`
	APIAccessKey    string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for administrative endpoints (optional)"`

	// AI extractor configuration
	OpenRouterAPIKey  string `long:"openrouter-api-key" env:"OPENROUTER_API_KEY" description:"OpenRouter API key; heuristic extraction is used when empty"`
	OpenRouterBaseUrl string `long:"openrouter-base-url" env:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1" description:"OpenRouter-compatible API base URL"`
	AIModel           string `long:"ai-model" env:"AI_MODEL" default:"deepseek/deepseek-r1-distill-llama-70b" description:"Model used for metadata extraction"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Moscow)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DataDir:           raw.DataDir,
		DBPath:            raw.DBPath,
		FormatsDir:        raw.FormatsDir,
		FontPath:          raw.FontPath,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		CleanupInterval:   raw.CleanupInterval,
		ComposeTimeout:    raw.ComposeTimeout,
		MaxUploadMB:       raw.MaxUploadMB,
		MaxArticles:       raw.MaxArticles,
		SessionTTLHours:   raw.SessionTTLHours,
		APIAccessKey:      raw.APIAccessKey,
		OpenRouterAPIKey:  raw.OpenRouterAPIKey,
		OpenRouterBaseUrl: raw.OpenRouterBaseUrl,
		AIModel:           raw.AIModel,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
