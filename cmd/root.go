package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tessocr/internal/config"
	"tessocr/internal/logger"
)

var version = "1.0.0"

// appConfig holds the environment configuration; flags override it per command.
var appConfig = config.Default()

var rootCmd = &cobra.Command{
	Use:   "tessocr",
	Short: "tessocr - extract text from images with libtesseract",
	Long: `tessocr drives the tesseract OCR engine directly through its C API.

The shared library is loaded at runtime from --lib-path, so no tesseract
headers or cgo toolchain are needed to build it. Images are read either
by tesseract itself (--image-path) or fetched and decoded in-process
(--image-url) and passed to tesseract as a raw RGBA buffer.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("tessocr executed without a command")

		cmd.Help()
	},
}

// Execute runs the root command with cfg as the base configuration.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	if cfg != nil {
		appConfig = cfg
	}

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
