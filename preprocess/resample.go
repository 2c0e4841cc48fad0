package preprocess

import (
	"math"

	"github.com/zcm58/fpvs-analysis/eeg"
	"github.com/zcm58/fpvs-analysis/logging"
)

// Resample decimates the recording to targetRate when it is below the
// current rate; a target at or above the current rate is a no-op (never
// upsample). Data channels get an anti-alias lowpass before linear
// interpolation; the trigger channel is decimated by nearest neighbor so
// its discrete codes survive unsmoothed.
func Resample(rec *eeg.Recording, targetRate float64, triggerChannel string) {
	logger := logging.WithFields(logging.Fields{"component": "preprocess", "stage": "resample"})

	if targetRate <= 0 || targetRate >= rec.SampleRate {
		logger.Debug("No resampling needed", logging.Fields{
			"sample_rate": rec.SampleRate,
			"target_rate": targetRate,
		})
		return
	}

	oldRate := rec.SampleRate
	oldLen := rec.NumSamples()
	newLen := int(math.Round(float64(oldLen) * targetRate / oldRate))
	if newLen < 2 {
		logger.Warn("Recording too short to resample; skipping", logging.Fields{
			"samples": oldLen,
		})
		return
	}
	ratio := oldRate / targetRate

	// Anti-alias guard below the new Nyquist.
	antiAlias := newLowpass(oldRate, 0.45*targetRate)

	for i, name := range rec.ChannelNames {
		src := rec.Data[i]
		dst := make([]float64, newLen)
		if name == triggerChannel {
			for s := range dst {
				srcIdx := int(math.Round(float64(s) * ratio))
				if srcIdx >= oldLen {
					srcIdx = oldLen - 1
				}
				dst[s] = src[srcIdx]
			}
		} else {
			antiAlias.filtfilt(src)
			for s := range dst {
				dst[s] = interpolateLinear(src, float64(s)*ratio)
			}
		}
		rec.Data[i] = dst
	}
	rec.SampleRate = targetRate

	logger.Info("Downsampled recording", logging.Fields{
		"from_hz": oldRate,
		"to_hz":   targetRate,
		"samples": newLen,
	})
}

// interpolateLinear samples the signal at a fractional index with linear
// interpolation, clamping at the boundaries.
func interpolateLinear(signal []float64, index float64) float64 {
	if index <= 0 {
		return signal[0]
	}
	if index >= float64(len(signal)-1) {
		return signal[len(signal)-1]
	}
	lower := int(index)
	frac := index - float64(lower)
	return signal[lower] + frac*(signal[lower+1]-signal[lower])
}
