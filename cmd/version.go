package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tessocr/internal/logger"
	"tessocr/internal/tesseract"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print tessocr and libtesseract versions",
	Example: `  tessocr version
  tessocr version --lib-path /usr/local/lib`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringP("lib-path", "b", "", "Directory containing libtesseract (env TESS_LIB_PATH)")
}

func runVersion(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("version")

	libPath, _ := cmd.Flags().GetString("lib-path")
	if libPath == "" {
		libPath = appConfig.LibPath
	}

	fmt.Fprintf(cmd.OutOrStdout(), "tessocr %s\n", version)

	lib, err := tesseract.Load(libPath)
	if err != nil {
		log.Warn().Err(err).Msg("Could not load libtesseract")
		fmt.Fprintf(cmd.OutOrStdout(), "libtesseract: unavailable (%v)\n", err)
		return nil
	}
	defer lib.Close()

	v := lib.Version()
	if v == "" {
		v = "unknown"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "libtesseract %s (%s)\n", v, lib.Path())
	return nil
}
