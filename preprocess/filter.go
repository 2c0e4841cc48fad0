package preprocess

import (
	"math"

	"github.com/zcm58/fpvs-analysis/eeg"
	"github.com/zcm58/fpvs-analysis/logging"
)

// Band-limiting uses second-order Butterworth biquads from the cookbook
// formulas (Robert Bristow-Johnson, "Cookbook formulae for audio EQ biquad
// filter coefficients"), run forward and backward for zero phase.

// biquad holds normalized direct form II coefficients and delay state.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
}

const butterworthQ = math.Sqrt2 / 2

// newLowpass designs a second-order Butterworth lowpass biquad.
func newLowpass(sampleRate, cutoff float64) *biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * butterworthQ)

	b0 := (1 - cosW0) / 2
	b1 := 1 - cosW0
	b2 := (1 - cosW0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosW0
	a2 := 1 - alpha

	return &biquad{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

// newHighpass designs a second-order Butterworth highpass biquad.
func newHighpass(sampleRate, cutoff float64) *biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * butterworthQ)

	b0 := (1 + cosW0) / 2
	b1 := -(1 + cosW0)
	b2 := (1 + cosW0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosW0
	a2 := 1 - alpha

	return &biquad{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

// process filters a single sample using direct form II.
func (bq *biquad) process(input float64) float64 {
	w := input - bq.a1*bq.x1 - bq.a2*bq.x2
	output := bq.b0*w + bq.b1*bq.x1 + bq.b2*bq.x2
	bq.x2 = bq.x1
	bq.x1 = w
	return output
}

// reset clears the delay line.
func (bq *biquad) reset() {
	bq.x1, bq.x2 = 0, 0
}

// filtfilt applies the biquad forward then backward in place, cancelling
// the filter's phase shift. The effective magnitude response is squared.
func (bq *biquad) filtfilt(signal []float64) {
	bq.reset()
	for i, v := range signal {
		signal[i] = bq.process(v)
	}
	bq.reset()
	for i := len(signal) - 1; i >= 0; i-- {
		signal[i] = bq.process(signal[i])
	}
}

// BandLimit applies the configured high-pass (lowCutoff) and low-pass
// (highCutoff) filters to every data channel. Either cutoff may be 0,
// meaning no limit on that side. A high cutoff at or above Nyquist is
// clamped just under it with a logged adjustment rather than a failure.
// The trigger channel is left untouched.
func BandLimit(rec *eeg.Recording, lowCutoff, highCutoff float64, triggerChannel string) {
	logger := logging.WithFields(logging.Fields{"component": "preprocess", "stage": "filter"})

	if lowCutoff <= 0 && highCutoff <= 0 {
		logger.Debug("Filtering disabled")
		return
	}

	nyquist := rec.SampleRate / 2
	if highCutoff > 0 && highCutoff >= nyquist {
		adjusted := nyquist - 0.5
		logger.Warn("High cutoff at or above Nyquist; adjusted", logging.Fields{
			"requested_hz": highCutoff,
			"adjusted_hz":  adjusted,
		})
		highCutoff = adjusted
	}
	if lowCutoff > 0 && highCutoff > 0 && lowCutoff >= highCutoff {
		logger.Warn("Invalid filter band after Nyquist adjustment; skipping", logging.Fields{
			"low_hz":  lowCutoff,
			"high_hz": highCutoff,
		})
		return
	}

	var highpass, lowpass *biquad
	if lowCutoff > 0 {
		highpass = newHighpass(rec.SampleRate, lowCutoff)
	}
	if highCutoff > 0 {
		lowpass = newLowpass(rec.SampleRate, highCutoff)
	}

	filtered := 0
	for i, name := range rec.ChannelNames {
		if name == triggerChannel {
			continue
		}
		if highpass != nil {
			highpass.filtfilt(rec.Data[i])
		}
		if lowpass != nil {
			lowpass.filtfilt(rec.Data[i])
		}
		filtered++
	}

	logger.Info("Filtering complete", logging.Fields{
		"low_hz":   lowCutoff,
		"high_hz":  highCutoff,
		"channels": filtered,
	})
}
