package preprocess

import (
	"fmt"

	"github.com/zcm58/fpvs-analysis/eeg"
	"github.com/zcm58/fpvs-analysis/logging"
)

// BipolarReference derives a new channel as chanA minus chanB and appends
// it to the channel set (or replaces the two source channels when replace
// is set). A missing source channel skips the stage with a warning; the
// bipolar reference is provisional and never worth failing a file over.
func BipolarReference(rec *eeg.Recording, chanA, chanB string, replace bool) {
	logger := logging.WithFields(logging.Fields{"component": "preprocess", "stage": "bipolar"})

	idxA := rec.ChannelIndex(chanA)
	idxB := rec.ChannelIndex(chanB)
	if idxA < 0 || idxB < 0 {
		logger.Warn("Bipolar reference channel absent; skipping", logging.Fields{
			"channel_a": chanA,
			"channel_b": chanB,
		})
		return
	}

	derived := make([]float64, rec.NumSamples())
	a, b := rec.Data[idxA], rec.Data[idxB]
	for i := range derived {
		derived[i] = a[i] - b[i]
	}
	name := fmt.Sprintf("%s-%s", chanA, chanB)

	if replace {
		keep := make([]int, 0, rec.NumChannels())
		for i := range rec.ChannelNames {
			if i != idxA && i != idxB {
				keep = append(keep, i)
			}
		}
		rec.KeepChannels(keep)
	}
	if err := rec.AppendChannel(name, derived); err != nil {
		logger.Warn("Could not append bipolar channel", logging.Fields{"error": err.Error()})
		return
	}
	logger.Info("Applied bipolar reference", logging.Fields{
		"derived":  name,
		"replaced": replace,
	})
}

// AverageReference re-expresses every data channel relative to the mean of
// all data channels. Applied after bad-channel interpolation so outliers
// do not bias the mean; uninterpolated bad channels and the trigger
// channel are excluded from the mean but bad channels still get the
// subtraction so their scale stays comparable.
func AverageReference(rec *eeg.Recording, triggerChannel string) {
	logger := logging.WithFields(logging.Fields{"component": "preprocess", "stage": "avgref"})

	var contributors []int
	var targets []int
	for i, name := range rec.ChannelNames {
		if name == triggerChannel {
			continue
		}
		targets = append(targets, i)
		if !rec.Bads[name] {
			contributors = append(contributors, i)
		}
	}
	if len(contributors) == 0 {
		logger.Warn("No good channels for average reference; skipping")
		return
	}

	n := rec.NumSamples()
	mean := make([]float64, n)
	for _, idx := range contributors {
		data := rec.Data[idx]
		for s := 0; s < n; s++ {
			mean[s] += data[s]
		}
	}
	scale := 1.0 / float64(len(contributors))
	for s := 0; s < n; s++ {
		mean[s] *= scale
	}
	for _, idx := range targets {
		data := rec.Data[idx]
		for s := 0; s < n; s++ {
			data[s] -= mean[s]
		}
	}

	logger.Info("Applied average reference", logging.Fields{
		"contributors": len(contributors),
		"channels":     len(targets),
	})
}

// TruncateChannels keeps the first maxKeep channels by acquisition order,
// always preserving the trigger channel (exact name match). maxKeep at or
// above the current channel count is a no-op.
func TruncateChannels(rec *eeg.Recording, maxKeep int, triggerChannel string) {
	logger := logging.WithFields(logging.Fields{"component": "preprocess", "stage": "truncate"})

	if maxKeep <= 0 || maxKeep >= rec.NumChannels() {
		logger.Debug("No channels dropped", logging.Fields{"channels": rec.NumChannels()})
		return
	}

	keep := make([]int, 0, maxKeep+1)
	for i := 0; i < maxKeep; i++ {
		keep = append(keep, i)
	}
	if trigIdx := rec.ChannelIndex(triggerChannel); trigIdx >= maxKeep {
		keep = append(keep, trigIdx)
	}
	dropped := rec.NumChannels() - len(keep)
	rec.KeepChannels(keep)

	logger.Info("Truncated channel set", logging.Fields{
		"kept":    rec.NumChannels(),
		"dropped": dropped,
	})
}
