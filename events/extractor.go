package events

import (
	"fmt"
	"math"
	"sort"

	"github.com/zcm58/fpvs-analysis/eeg"
	"github.com/zcm58/fpvs-analysis/logging"
)

// Strategy selects how events are pulled out of a recording.
type Strategy int

const (
	// StrategyAuto uses annotations when the recording has any, and the
	// trigger channel otherwise.
	StrategyAuto Strategy = iota
	// StrategyThreshold scans the trigger channel for step edges.
	StrategyThreshold
	// StrategyAnnotations reads the labeled markers attached to the
	// recording.
	StrategyAnnotations
)

func (s Strategy) String() string {
	switch s {
	case StrategyThreshold:
		return "threshold"
	case StrategyAnnotations:
		return "annotations"
	default:
		return "auto"
	}
}

// statusMask keeps the 16 trigger bits of a BioSemi status word; the
// upper byte carries hardware flags, not codes.
const statusMask = 0xFFFF

// Extract runs event extraction once per file, after preprocessing, so
// sample indices line up with the (possibly resampled) signal.
func Extract(rec *eeg.Recording, strategy Strategy, triggerChannel string) (*Result, error) {
	if strategy == StrategyAuto {
		if len(rec.Annotations) > 0 {
			strategy = StrategyAnnotations
		} else {
			strategy = StrategyThreshold
		}
	}
	switch strategy {
	case StrategyThreshold:
		return extractThreshold(rec, triggerChannel)
	case StrategyAnnotations:
		return extractAnnotations(rec)
	default:
		return nil, fmt.Errorf("unknown extraction strategy %d", strategy)
	}
}

// extractThreshold scans the named trigger channel for discrete level
// changes, emitting an event at each step edge onto a nonzero code.
func extractThreshold(rec *eeg.Recording, triggerChannel string) (*Result, error) {
	trigger, err := rec.Channel(triggerChannel)
	if err != nil {
		return nil, fmt.Errorf("threshold extraction: %w", err)
	}

	result := &Result{}
	prev := triggerCode(trigger[0])
	for s := 1; s < len(trigger); s++ {
		code := triggerCode(trigger[s])
		if code != prev && code != 0 {
			result.Events = append(result.Events, Event{Sample: s, Code: code})
		}
		prev = code
	}

	logging.Info("Extracted trigger events", logging.Fields{
		"component": "events",
		"strategy":  "threshold",
		"events":    len(result.Events),
		"codes":     result.Codes(),
	})
	return result, nil
}

func triggerCode(v float64) int {
	code := int(math.Round(v))
	if code < 0 {
		return 0
	}
	return code & statusMask
}

// extractAnnotations converts the recording's labeled markers into events,
// assigning numeric codes to the sorted label vocabulary the way the
// lab's processing history expects (1-based, alphabetical).
func extractAnnotations(rec *eeg.Recording) (*Result, error) {
	if len(rec.Annotations) == 0 {
		return &Result{Vocabulary: map[string]int{}}, nil
	}

	labels := make(map[string]bool)
	for _, ann := range rec.Annotations {
		labels[ann.Label] = true
	}
	sorted := make([]string, 0, len(labels))
	for l := range labels {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)

	vocab := make(map[string]int, len(sorted))
	for i, l := range sorted {
		vocab[l] = i + 1
	}

	result := &Result{Vocabulary: vocab}
	for _, ann := range rec.Annotations {
		sample := rec.SampleAt(ann.Onset)
		if sample < 0 || sample >= rec.NumSamples() {
			continue
		}
		result.Events = append(result.Events, Event{
			Sample: sample,
			Code:   vocab[ann.Label],
			Label:  ann.Label,
		})
	}
	sort.SliceStable(result.Events, func(i, j int) bool {
		return result.Events[i].Sample < result.Events[j].Sample
	})

	logging.Info("Extracted annotation events", logging.Fields{
		"component": "events",
		"strategy":  "annotations",
		"events":    len(result.Events),
		"labels":    result.Labels(),
	})
	return result, nil
}
