// Package detect contains the bank-detection-only command.
package detect

import (
	"fmt"

	"hesapp/extractor/cmd/root"
	"hesapp/extractor/internal/bankdetect"
	"hesapp/extractor/internal/fileextract"

	"github.com/spf13/cobra"
)

var patternsFile string

// Cmd is the detect command.
var Cmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Detect the issuing bank of a statement file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := fileextract.NewExtractor(root.Log).Extract(args[0])
		if err != nil {
			return err
		}

		detector := bankdetect.NewDetector(root.Log)
		if patternsFile != "" {
			if err := detector.LoadPatternsFile(patternsFile); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		detection := detector.DetectWithConfidence(file.RawText)
		if detection.Bank == "" {
			fmt.Fprintln(out, "No bank detected")
			return nil
		}

		fmt.Fprintf(out, "Bank:       %s\n", detection.Bank)
		fmt.Fprintf(out, "Confidence: %.2f\n", detection.Confidence)
		for _, m := range detection.Matches {
			fmt.Fprintf(out, "  %s: %d match(es)\n", m.Bank, m.MatchCount)
		}
		return nil
	},
}

func init() {
	Cmd.Flags().StringVar(&patternsFile, "patterns", "", "YAML file with additional bank signature patterns")
}
