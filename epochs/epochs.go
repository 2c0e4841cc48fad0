package epochs

import (
	"fmt"
	"math"

	"github.com/zcm58/fpvs-analysis/eeg"
	"github.com/zcm58/fpvs-analysis/events"
	"github.com/zcm58/fpvs-analysis/logging"
)

// Window is the epoch extent in seconds relative to the event sample.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Validate rejects an empty or inverted window.
func (w Window) Validate() error {
	if w.Start >= w.End {
		return fmt.Errorf("epoch start %.3f s must be before epoch end %.3f s", w.Start, w.End)
	}
	return nil
}

// Samples returns the epoch length in samples at the given rate.
func (w Window) Samples(sampleRate float64) int {
	return int(math.Round((w.End - w.Start) * sampleRate))
}

// Epoch is a fixed-duration excerpt of a recording anchored at one event.
// Data rows are subslices of the recording's sample matrix rather than
// copies; materialization stays lazy to bound memory.
type Epoch struct {
	Event events.Event
	data  [][]float64
}

// Data returns the [channel][sample] view of the epoch.
func (e *Epoch) Data() [][]float64 { return e.data }

// NumSamples returns the epoch length in samples.
func (e *Epoch) NumSamples() int {
	if len(e.data) == 0 {
		return 0
	}
	return len(e.data[0])
}

// Set collects the epochs one file contributed to one condition label,
// together with the channel subset and sample rate they inherit.
type Set struct {
	Label        string
	SourcePath   string
	SampleRate   float64
	ChannelNames []string
	Epochs       []Epoch
}

// NumChannels returns the channel-axis length shared by every epoch.
func (s *Set) NumChannels() int { return len(s.ChannelNames) }

// Segment slices the recording into fixed windows around each event
// matching the given label mapping. Annotation-derived events match on the
// label (case-sensitive); raw trigger events match on the numeric code.
// Events whose window crosses a recording boundary are dropped, not
// wrapped. A label with no matching events yields nil, which is not an
// error: other labels may still succeed for this file.
func Segment(rec *eeg.Recording, result *events.Result, mapping events.Mapping, window Window, triggerChannel string) *Set {
	logger := logging.WithFields(logging.Fields{
		"component": "epochs",
		"label":     mapping.Label,
	})

	byLabel := len(result.Vocabulary) > 0
	if byLabel {
		if _, present := result.Vocabulary[mapping.Label]; !present {
			logger.Info("Label absent from this file; skipping")
			return nil
		}
	}

	var chanIdx []int
	var chanNames []string
	for i, name := range rec.ChannelNames {
		if name == triggerChannel || rec.Bads[name] {
			continue
		}
		chanIdx = append(chanIdx, i)
		chanNames = append(chanNames, name)
	}
	if len(chanIdx) == 0 {
		logger.Warn("No usable channels to epoch")
		return nil
	}

	startOffset := int(math.Round(window.Start * rec.SampleRate))
	endOffset := int(math.Round(window.End * rec.SampleRate))
	n := rec.NumSamples()

	set := &Set{
		Label:        mapping.Label,
		SourcePath:   rec.Path,
		SampleRate:   rec.SampleRate,
		ChannelNames: chanNames,
	}
	dropped := 0
	for _, ev := range result.Events {
		if byLabel {
			if ev.Label != mapping.Label {
				continue
			}
		} else if ev.Code != mapping.Code {
			continue
		}

		lo := ev.Sample + startOffset
		hi := ev.Sample + endOffset
		if lo < 0 || hi > n {
			dropped++
			continue
		}
		data := make([][]float64, len(chanIdx))
		for k, idx := range chanIdx {
			data[k] = rec.Data[idx][lo:hi]
		}
		set.Epochs = append(set.Epochs, Epoch{Event: ev, data: data})
	}

	if dropped > 0 {
		logger.Warn("Dropped events too close to recording boundaries", logging.Fields{
			"dropped": dropped,
		})
	}
	if len(set.Epochs) == 0 {
		logger.Info("No epochs for label in this file")
		return nil
	}
	logger.Info("Segmented epochs", logging.Fields{
		"epochs":   len(set.Epochs),
		"channels": len(chanNames),
		"samples":  set.Epochs[0].NumSamples(),
	})
	return set
}

// SegmentAll runs Segment for every mapping in the ID map and returns the
// non-empty sets keyed by label.
func SegmentAll(rec *eeg.Recording, result *events.Result, idMap events.IDMap, window Window, triggerChannel string) map[string]*Set {
	sets := make(map[string]*Set)
	for _, mapping := range idMap {
		if set := Segment(rec, result, mapping, window, triggerChannel); set != nil {
			sets[mapping.Label] = set
		}
	}
	return sets
}
