package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/pipeline"
	"github.com/ironsheep/docscan-mcp/internal/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyse one scanned document",
	Long: "Runs text, signature, photo and checkbox detection on a scanned page and prints the fused " +
		"score, anomalies and pipeline errors.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		format, _ := cmd.Flags().GetString("format")
		annotate, _ := cmd.Flags().GetString("annotate")
		save, _ := cmd.Flags().GetBool("save")
		if !validFormat(format, "json", "yaml", "markdown", "html") {
			return eris.Errorf("unsupported format: %s", format)
		}

		env, err := initEnvironment(ctx, save)
		if err != nil {
			return err
		}
		defer env.Close()

		policy, err := policyFromFlags(cmd, env.analyzer.FusionConfig())
		if err != nil {
			return err
		}

		res, err := env.analyzer.AnalyzeFile(ctx, path, policy)
		if err != nil {
			return err
		}

		if annotate != "" {
			doc, err := env.analyzer.Cache().Load(path)
			if err != nil {
				return err
			}
			marks := imaging.DetectionMarks(res.Input())
			if err := imaging.SavePNG(imaging.Annotate(doc.Image, marks), annotate); err != nil {
				return err
			}
			zap.L().Info("analyze: annotated image written", zap.String("path", annotate), zap.Int("marks", len(marks)))
		}

		if save {
			id, err := env.history.Save(ctx, res)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved analysis %s\n", id)
		}

		return writeAnalysis(os.Stdout, res, format)
	},
}

// policyFromFlags applies --require-signature and --require-photo to base
// when they were given explicitly.
func policyFromFlags(cmd *cobra.Command, base fusion.Config) (fusion.Config, error) {
	if cmd.Flags().Changed("require-signature") {
		v, err := cmd.Flags().GetBool("require-signature")
		if err != nil {
			return base, err
		}
		base.SignatureRequired = v
	}
	if cmd.Flags().Changed("require-photo") {
		v, err := cmd.Flags().GetBool("require-photo")
		if err != nil {
			return base, err
		}
		base.PhotoRequired = v
	}
	return base, nil
}

// writeAnalysis renders a in format.
func writeAnalysis(w io.Writer, a *pipeline.Analysis, format string) error {
	switch format {
	case "markdown":
		_, err := io.WriteString(w, report.Markdown(a))
		return err
	case "html":
		html, err := report.HTML(a)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	default:
		return writeValue(w, a, format)
	}
}

// writeValue encodes v as indented JSON or as YAML. YAML output follows the
// JSON field names.
func writeValue(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		raw, err := json.Marshal(v)
		if err != nil {
			return eris.Wrap(err, "encode json")
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return eris.Wrap(err, "decode json")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unsupported format: %s", format)
	}
}

func validFormat(format string, allowed ...string) bool {
	return slices.Contains(allowed, format)
}

func init() {
	analyzeCmd.Flags().String("format", "json", "output format: json, yaml, markdown or html")
	analyzeCmd.Flags().String("annotate", "", "write an annotated PNG to this path")
	analyzeCmd.Flags().Bool("save", false, "store the analysis in the history database")
	analyzeCmd.Flags().Bool("require-signature", false, "flag the document when no signature is found")
	analyzeCmd.Flags().Bool("require-photo", false, "flag the document when no identity photo is found")
	rootCmd.AddCommand(analyzeCmd)
}
