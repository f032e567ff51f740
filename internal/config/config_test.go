package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TESS_LANG", "TESS_LIB_PATH", "TESSDATA_PREFIX",
		"OCR_MIN_WIDTH", "OCR_FETCH_TIMEOUT",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_TIME_FORMAT", "LOG_OUTPUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MinWidth != 150 {
		t.Fatalf("MinWidth = %d, want 150", cfg.MinWidth)
	}
	if cfg.FetchTimeout != time.Minute {
		t.Fatalf("FetchTimeout = %s, want 1m", cfg.FetchTimeout)
	}
	if cfg.LogOutput != "stderr" {
		t.Fatalf("LogOutput = %q, want stderr", cfg.LogOutput)
	}
	if err := cfg.ValidateOCR(); err == nil || !strings.Contains(err.Error(), "lang") {
		t.Fatalf("ValidateOCR() error = %v, want missing lang", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TESS_LANG", "chi_sim")
	t.Setenv("TESS_LIB_PATH", "/opt/tesseract/lib")
	t.Setenv("TESSDATA_PREFIX", "/opt/tesseract/share/tessdata")
	t.Setenv("OCR_MIN_WIDTH", "300")
	t.Setenv("OCR_FETCH_TIMEOUT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.ValidateOCR(); err != nil {
		t.Fatalf("ValidateOCR() error = %v", err)
	}
	if cfg.MinWidth != 300 || cfg.FetchTimeout != 5*time.Second {
		t.Fatalf("Load() = %+v", cfg)
	}
	if got := cfg.GetLoggerConfig(); got.Level != "info" || got.Output != "stderr" {
		t.Fatalf("GetLoggerConfig() = %+v", got)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"OCR_MIN_WIDTH":     "wide",
		"OCR_MIN_WIDTH=0":   "0",
		"OCR_MIN_WIDTH=big": "3000000000",
		"OCR_FETCH_TIMEOUT": "-1",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			key, _, _ := strings.Cut(name, "=")
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() accepted %s=%q", key, value)
			}
		})
	}
}

func TestValidateOCRRequiresEachSetting(t *testing.T) {
	base := Config{Language: "eng", LibPath: "/lib", TessdataDir: "/tessdata", MinWidth: 150, FetchTimeout: time.Second}
	if err := base.ValidateOCR(); err != nil {
		t.Fatalf("ValidateOCR() error = %v", err)
	}

	missing := map[string]func(c *Config){
		"lang":     func(c *Config) { c.Language = "" },
		"lib-path": func(c *Config) { c.LibPath = "" },
		"tessdata": func(c *Config) { c.TessdataDir = "" },
	}
	for name, unset := range missing {
		cfg := base
		unset(&cfg)
		err := cfg.ValidateOCR()
		if err == nil || !strings.Contains(err.Error(), name) {
			t.Fatalf("ValidateOCR() without %s error = %v", name, err)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.MinWidth != 150 || cfg.LogLevel != "info" || cfg.LogOutput != "stderr" {
		t.Fatalf("Default() = %+v", cfg)
	}
}
