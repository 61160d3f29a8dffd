package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/config"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "docscan-mcp",
	Short: "Scanned document analysis and scoring",
	Long: "Reads a scanned administrative form, checks its text, signature, identity photo and checkboxes, " +
		"and fuses the findings into a 0-100 validity score with anomalies for a reviewer. " +
		"Runs as an MCP server over stdio or as a one-shot CLI.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
