package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DataDir:           "./data",
		DBPath:            "./data/zhurnal.db",
		FormatsDir:        "./formats",
		Port:              "8080",
		WorkerCount:       3,
		CleanupInterval:   3600,
		ComposeTimeout:    300,
		MaxUploadMB:       50,
		MaxArticles:       100,
		SessionTTLHours:   24,
		APIAccessKey:      "test-key",
		OpenRouterBaseUrl: "https://openrouter.ai/api/v1",
		AIModel:           "test-model",
		Timezone:          "UTC",
		Debug:             true,
		Version:           "test-version",
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("Expected data dir './data', got '%s'", cfg.DataDir)
	}
	if cfg.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", cfg.WorkerCount)
	}
	if cfg.ComposeTimeout != 300 {
		t.Errorf("Expected compose timeout 300, got %d", cfg.ComposeTimeout)
	}
	if cfg.MaxArticles != 100 {
		t.Errorf("Expected max articles 100, got %d", cfg.MaxArticles)
	}
	if cfg.SessionTTLHours != 24 {
		t.Errorf("Expected session TTL 24, got %d", cfg.SessionTTLHours)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}
