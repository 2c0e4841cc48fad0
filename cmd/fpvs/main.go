package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zcm58/fpvs-analysis/logging"
)

var rootCmd = &cobra.Command{
	Use:   "fpvs",
	Short: "FPVS EEG preprocessing and spectral analysis",
	Long: `fpvs runs the fast periodic visual stimulation pipeline over EDF/BDF
recordings: preprocessing, event extraction, epoch segmentation, spectral
metrics and per-condition result workbooks.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			logging.SetLevel(logging.DebugLevel)
		}
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			logging.DisableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored log output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
