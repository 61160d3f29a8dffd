package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/ocr"
	"github.com/ironsheep/docscan-mcp/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis tools over MCP on stdin/stdout",
	Long: "Starts a Model Context Protocol server on stdin/stdout. Configure it in your MCP client; " +
		"logs go to stderr.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnvironment(ctx, cfg.Store.Enabled)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := server.Options{Version: Version}
		if env.history != nil {
			opts.History = env.history
		}
		if env.engine != nil {
			opts.Text = env.engine
			opts.OCRInfo = ocrInfo(env.engine)
		}

		zap.L().Info("server: starting",
			zap.String("version", Version),
			zap.Bool("history", opts.History != nil),
			zap.Bool("ocr", env.engine != nil),
		)
		return server.New(env.analyzer, opts).Run(ctx)
	},
}

func ocrInfo(engine *ocr.Engine) map[string]any {
	info := map[string]any{
		"engine":        "tesseract",
		"version":       engine.Version(),
		"language":      cfg.OCR.Language,
		"active":        engine.ActiveLanguages(),
		"max_dimension": cfg.OCR.MaxDimension,
	}
	if langs, err := ocr.Languages(); err == nil {
		info["installed_languages"] = langs
	}
	return info
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
