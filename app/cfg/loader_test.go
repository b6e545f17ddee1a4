package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		Port:               "8080",
		BaseUrl:            "https://zine.example.com",
		DataDir:            "./data",
		DBPath:             "./data/zinepress.db",
		PresetsDir:         "./presets",
		WorkerCount:        5,
		DatasetMaxAttempts: 10,
		DatasetRetryDelay:  2,
		MediaConcurrency:   3,
		MediaMaxItems:      15,
		MediaRetries:       3,
		MediaTimeout:       30,
		BuildWaitTimeout:   20,
		ApifyToken:         "test-token",
		ActorID:            "test-actor",
		APIAccessKey:       "test-key",
		UserAgent:          "Test Agent",
		Timezone:           "UTC",
		Debug:              true,
		Version:            "test-version",
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.BaseUrl != "https://zine.example.com" {
		t.Errorf("Expected base URL 'https://zine.example.com', got '%s'", cfg.BaseUrl)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if cfg.DatasetMaxAttempts != 10 {
		t.Errorf("Expected dataset max attempts 10, got %d", cfg.DatasetMaxAttempts)
	}
	if cfg.MediaConcurrency != 3 {
		t.Errorf("Expected media concurrency 3, got %d", cfg.MediaConcurrency)
	}
	if cfg.MediaMaxItems != 15 {
		t.Errorf("Expected media max items 15, got %d", cfg.MediaMaxItems)
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be true")
	}
}

func TestGetReturnsLoadedConfig(t *testing.T) {
	saved := globalCfg
	globalCfg = &Cfg{Port: "9999", WorkerCount: 2}
	defer func() { globalCfg = saved }()

	got := Get()
	if got.Port != "9999" {
		t.Errorf("Expected port '9999', got '%s'", got.Port)
	}
	if got.WorkerCount != 2 {
		t.Errorf("Expected worker count 2, got %d", got.WorkerCount)
	}
}

func TestGetPanicsWithoutLoad(t *testing.T) {
	saved := globalCfg
	globalCfg = nil
	defer func() {
		globalCfg = saved
		if r := recover(); r == nil {
			t.Error("Get should panic when configuration is not loaded")
		}
	}()
	Get()
}
