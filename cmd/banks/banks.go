// Package banks contains the command that lists the known banks.
package banks

import (
	"fmt"

	"hesapp/extractor/cmd/root"
	"hesapp/extractor/internal/bankdetect"

	"github.com/spf13/cobra"
)

var patternsFile string

// Cmd is the banks command.
var Cmd = &cobra.Command{
	Use:   "banks",
	Short: "List the banks the detector recognizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		detector := bankdetect.NewDetector(root.Log)
		if patternsFile != "" {
			if err := detector.LoadPatternsFile(patternsFile); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		names := detector.ListBanks()
		fmt.Fprintln(out, "Supported banks:")
		for i, bank := range names {
			fmt.Fprintf(out, "%2d. %s\n", i+1, bank)
		}
		fmt.Fprintf(out, "Total: %d banks\n", len(names))
		return nil
	},
}

func init() {
	Cmd.Flags().StringVar(&patternsFile, "patterns", "", "YAML file with additional bank signature patterns")
}
