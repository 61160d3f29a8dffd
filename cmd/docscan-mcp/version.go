package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan-mcp/internal/ocr"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "docscan-mcp %s\n", Version)
		fmt.Fprintf(w, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
		if langs, err := ocr.Languages(); err == nil {
			fmt.Fprintf(w, "  Tesseract languages: %v\n", langs)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
