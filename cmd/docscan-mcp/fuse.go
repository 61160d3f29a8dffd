package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
)

var fuseCmd = &cobra.Command{
	Use:   "fuse <input.json|->",
	Short: "Fuse detector results from a JSON file",
	Long: "Reads detector results (text, signature, photo, checkboxes; any may be omitted) as JSON " +
		"and prints the fused score, component scores and anomalies. Use - to read stdin.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if !validFormat(format, "json", "yaml") {
			return eris.Errorf("unsupported format: %s", format)
		}

		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return eris.Wrapf(err, "open %s", args[0])
			}
			defer f.Close()
			r = f
		}

		in, err := readInput(r)
		if err != nil {
			return err
		}

		policy, err := policyFromFlags(cmd, cfg.FusionPolicy())
		if err != nil {
			return err
		}
		return writeValue(os.Stdout, fusion.Fuse(in, policy), format)
	},
}

// readInput decodes a fusion input, rejecting unknown top-level fields.
func readInput(r io.Reader) (*fusion.Input, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var in fusion.Input
	if err := dec.Decode(&in); err != nil {
		return nil, eris.Wrap(err, "decode fusion input")
	}
	return &in, nil
}

func init() {
	fuseCmd.Flags().String("format", "json", "output format: json or yaml")
	fuseCmd.Flags().Bool("require-signature", false, "flag the document when no signature is found")
	fuseCmd.Flags().Bool("require-photo", false, "flag the document when no identity photo is found")
	rootCmd.AddCommand(fuseCmd)
}
