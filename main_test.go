package main

import (
	"os"
	"strings"
	"testing"
)

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoadConfigReportsMalformedEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TESS_LANG", "eng")
	t.Setenv("OCR_MIN_WIDTH", "abc")

	cfg, err := loadConfig()
	if err == nil || !strings.Contains(err.Error(), "OCR_MIN_WIDTH") {
		t.Fatalf("loadConfig() = %+v, %v; want OCR_MIN_WIDTH error", cfg, err)
	}
}

func TestLoadConfigKeepsEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TESS_LANG", "eng")
	t.Setenv("OCR_MIN_WIDTH", "300")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Language != "eng" || cfg.MinWidth != 300 {
		t.Fatalf("loadConfig() = %+v", cfg)
	}
}
