package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"tessocr/cmd"
	"tessocr/internal/config"
	"tessocr/internal/logger"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting tessocr")

	cmd.Execute(cfg)

	log.Debug().Msg("tessocr shutdown")
	os.Exit(0)
}

// loadConfig reads .env (when present) and the environment. A malformed
// variable is reported instead of silently replaced by defaults.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}
	return config.Load()
}
