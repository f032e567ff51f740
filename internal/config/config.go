package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"tessocr/internal/logger"
	"tessocr/internal/pixel"
)

type Config struct {
	// Tesseract Configuration
	Language    string
	LibPath     string
	TessdataDir string

	// Image Configuration
	MinWidth     int
	FetchTimeout time.Duration

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration from the environment. Only malformed values are
// errors; required OCR settings are checked by ValidateOCR once command-line
// flags have been applied.
func Load() (*Config, error) {
	config := &Config{
		Language:      getEnv("TESS_LANG", ""),
		LibPath:       getEnv("TESS_LIB_PATH", ""),
		TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("LOG_OUTPUT", "stderr"),
	}

	minWidth, err := getEnvInt("OCR_MIN_WIDTH", pixel.DefaultMinWidth)
	if err != nil {
		return nil, err
	}
	config.MinWidth = minWidth

	timeoutSecs, err := getEnvInt("OCR_FETCH_TIMEOUT", 60)
	if err != nil {
		return nil, err
	}
	config.FetchTimeout = time.Duration(timeoutSecs) * time.Second

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Default returns the configuration used when the environment cannot be loaded.
func Default() *Config {
	log := logger.DefaultConfig()
	return &Config{
		MinWidth:      pixel.DefaultMinWidth,
		FetchTimeout:  60 * time.Second,
		LogLevel:      log.Level,
		LogFormat:     log.Format,
		LogTimeFormat: log.TimeFormat,
		LogOutput:     log.Output,
	}
}

func (c *Config) validate() error {
	if c.MinWidth <= 0 || c.MinWidth > pixel.MaxMinWidth {
		return fmt.Errorf("OCR_MIN_WIDTH must be between 1 and %d, got %d", pixel.MaxMinWidth, c.MinWidth)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("OCR_FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	return nil
}

// ValidateOCR checks the settings needed to start a tesseract engine.
func (c *Config) ValidateOCR() error {
	if c.Language == "" {
		return fmt.Errorf("lang not given (--lang or TESS_LANG)")
	}
	if c.LibPath == "" {
		return fmt.Errorf("lib-path not given (--lib-path or TESS_LIB_PATH)")
	}
	if c.TessdataDir == "" {
		return fmt.Errorf("tessdata not given (--tessdata or TESSDATA_PREFIX)")
	}
	return c.validate()
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
