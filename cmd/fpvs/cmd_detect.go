package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zcm58/fpvs-analysis/pipeline"
)

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().String("stim", "", "trigger/stim channel name (default Status)")
	detectCmd.Flags().String("strategy", "auto", "event source: auto, threshold or annotations")
}

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Report the event codes or labels present in a recording",
	Long: `detect loads one representative recording and lists the trigger codes or
annotation labels it contains, so the condition mapping for a full run can
be built. Missing triggers or zero events are reported, not fatal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stim, _ := cmd.Flags().GetString("stim")
		strategyName, _ := cmd.Flags().GetString("strategy")
		strategy, err := parseStrategy(strategyName)
		if err != nil {
			return err
		}

		runner := pipeline.NewRunner()
		result, err := runner.Detect(args[0], strategy, stim)
		if err != nil {
			fmt.Printf("Detection failed: %v\n", err)
			return nil
		}
		if len(result.Events) == 0 {
			fmt.Println("No events found. Check the trigger channel and strategy.")
			return nil
		}

		fmt.Printf("Found %d event(s)\n", len(result.Events))
		if labels := result.Labels(); len(labels) > 0 {
			fmt.Println("Annotation labels:")
			for _, label := range labels {
				fmt.Printf("  %s (code %d)\n", label, result.Vocabulary[label])
			}
			return nil
		}
		fmt.Println("Trigger codes:")
		for _, code := range result.Codes() {
			fmt.Printf("  %d\n", code)
		}
		return nil
	},
}
