package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zcm58/fpvs-analysis/epochs"
	"github.com/zcm58/fpvs-analysis/events"
	"github.com/zcm58/fpvs-analysis/pipeline"
)

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("out", "", "output folder for result workbooks (required)")
	processCmd.Flags().StringArray("map", nil, "condition mapping as Label=Code, repeatable (required)")
	processCmd.Flags().Float64("epoch-start", 0, "epoch window start relative to event, seconds (required)")
	processCmd.Flags().Float64("epoch-end", 0, "epoch window end relative to event, seconds (required)")
	processCmd.Flags().Float64("low", 0, "high-pass cutoff in Hz (0 disables)")
	processCmd.Flags().Float64("high", 0, "low-pass cutoff in Hz (0 disables)")
	processCmd.Flags().Float64("rate", 0, "target resample rate in Hz (0 keeps the native rate)")
	processCmd.Flags().Float64("reject-z", 5, "kurtosis z-score threshold for channel rejection")
	processCmd.Flags().Int("max-keep", 0, "keep only the first N data channels (0 keeps all)")
	processCmd.Flags().StringSlice("bipolar", nil, "bipolar reference pair as two channel names")
	processCmd.Flags().Bool("bipolar-replace", false, "drop the bipolar source channels after deriving the difference")
	processCmd.Flags().String("stim", "", "trigger/stim channel name (default Status)")
	processCmd.Flags().String("strategy", "auto", "event source: auto, threshold or annotations")
	processCmd.Flags().Bool("save-preproc", false, "write a _preproc.edf next to each source file")
	_ = processCmd.MarkFlagRequired("out")
	_ = processCmd.MarkFlagRequired("map")
	_ = processCmd.MarkFlagRequired("epoch-start")
	_ = processCmd.MarkFlagRequired("epoch-end")
}

var processCmd = &cobra.Command{
	Use:   "process <file-or-folder>...",
	Short: "Run the full pipeline over a batch of recordings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := pipeline.DefaultConfig()
		cfg.Inputs = args
		cfg.OutputDir, _ = cmd.Flags().GetString("out")
		cfg.SavePreprocessed, _ = cmd.Flags().GetBool("save-preproc")
		cfg.Window.Start, _ = cmd.Flags().GetFloat64("epoch-start")
		cfg.Window.End, _ = cmd.Flags().GetFloat64("epoch-end")
		cfg.Preprocess.LowCutoff, _ = cmd.Flags().GetFloat64("low")
		cfg.Preprocess.HighCutoff, _ = cmd.Flags().GetFloat64("high")
		cfg.Preprocess.TargetRate, _ = cmd.Flags().GetFloat64("rate")
		cfg.Preprocess.RejectZ, _ = cmd.Flags().GetFloat64("reject-z")
		cfg.Preprocess.MaxKeep, _ = cmd.Flags().GetInt("max-keep")

		if stim, _ := cmd.Flags().GetString("stim"); stim != "" {
			cfg.Preprocess.TriggerChannel = stim
		}
		if pair, _ := cmd.Flags().GetStringSlice("bipolar"); len(pair) > 0 {
			if len(pair) != 2 {
				return fmt.Errorf("--bipolar expects exactly two channel names, got %d", len(pair))
			}
			cfg.Preprocess.BipolarA = pair[0]
			cfg.Preprocess.BipolarB = pair[1]
			cfg.Preprocess.BipolarReplace, _ = cmd.Flags().GetBool("bipolar-replace")
		}

		mappings, _ := cmd.Flags().GetStringArray("map")
		idMap, err := parseIDMap(mappings)
		if err != nil {
			return err
		}
		cfg.IDMap = idMap

		strategyName, _ := cmd.Flags().GetString("strategy")
		cfg.Strategy, err = parseStrategy(strategyName)
		if err != nil {
			return err
		}

		return runBatch(cfg)
	},
}

// runBatch starts the worker and consumes its message queue on a timer
// tick until the terminal done message, then runs the spectral phase.
func runBatch(cfg pipeline.Config) error {
	runner := pipeline.NewRunner()
	if err := runner.Start(cfg); err != nil {
		return err
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var sets map[string][]*epochs.Set
	var runErr error
	for done := false; !done; {
		<-ticker.C
		for drained := false; !drained && !done; {
			select {
			case msg := <-runner.Messages():
				switch msg.Type {
				case pipeline.MessageProgress:
					fmt.Printf("Processed %d of %d file(s)\n", msg.Current, msg.Total)
				case pipeline.MessageResult:
					sets = msg.Sets
				case pipeline.MessageError:
					runErr = fmt.Errorf("%s", msg.Text)
					if msg.Trace != "" {
						fmt.Fprintln(os.Stderr, msg.Trace)
					}
				case pipeline.MessageDone:
					done = true
				}
			default:
				drained = true
			}
		}
	}
	runner.Reset()
	if runErr != nil {
		return runErr
	}

	paths, err := pipeline.PostProcess(sets, cfg.Spectral, cfg.OutputDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("Run finished with no results; no workbooks were written.")
		return nil
	}
	for _, p := range paths {
		fmt.Printf("Wrote %s\n", p)
	}
	return nil
}

func parseIDMap(entries []string) (events.IDMap, error) {
	var idMap events.IDMap
	for _, entry := range entries {
		label, codeText, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid mapping %q, expected Label=Code", entry)
		}
		code, err := strconv.Atoi(strings.TrimSpace(codeText))
		if err != nil {
			return nil, fmt.Errorf("invalid code in mapping %q: %w", entry, err)
		}
		idMap = append(idMap, events.Mapping{Label: strings.TrimSpace(label), Code: code})
	}
	return idMap, nil
}

func parseStrategy(name string) (events.Strategy, error) {
	switch strings.ToLower(name) {
	case "auto":
		return events.StrategyAuto, nil
	case "threshold":
		return events.StrategyThreshold, nil
	case "annotations":
		return events.StrategyAnnotations, nil
	}
	return events.StrategyAuto, fmt.Errorf("unknown strategy %q", name)
}
