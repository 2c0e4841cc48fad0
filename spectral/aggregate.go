package spectral

import (
	"gonum.org/v1/gonum/mat"

	"github.com/zcm58/fpvs-analysis/logging"
)

// Aggregator accumulates metric quadruples across the files contributing
// to one condition label and produces their element-wise arithmetic mean.
// The first contribution fixes the channel axis; later contributions with
// a different channel count are skipped and logged, never fatal.
type Aggregator struct {
	label    string
	channels []string
	count    int

	sumAmplitude *mat.Dense
	sumSNR       *mat.Dense
	sumZScore    *mat.Dense
	sumBCA       *mat.Dense

	logger logging.Logger
}

// NewAggregator creates an aggregator for one condition label.
func NewAggregator(label string) *Aggregator {
	return &Aggregator{
		label: label,
		logger: logging.WithFields(logging.Fields{
			"component": "aggregator",
			"label":     label,
		}),
	}
}

// Add accumulates one file's metric set. It reports whether the
// contribution was accepted.
func (a *Aggregator) Add(ms *MetricSet) bool {
	if a.count == 0 {
		a.channels = append([]string(nil), ms.Channels...)
		a.sumAmplitude = mat.DenseCopyOf(ms.Amplitude)
		a.sumSNR = mat.DenseCopyOf(ms.SNR)
		a.sumZScore = mat.DenseCopyOf(ms.ZScore)
		a.sumBCA = mat.DenseCopyOf(ms.BCA)
		a.count = 1
		return true
	}
	if ms.NumChannels() != len(a.channels) {
		a.logger.Warn("Channel count mismatch; skipping file's contribution", logging.Fields{
			"expected": len(a.channels),
			"got":      ms.NumChannels(),
			"source":   ms.SourcePath,
		})
		return false
	}
	a.sumAmplitude.Add(a.sumAmplitude, ms.Amplitude)
	a.sumSNR.Add(a.sumSNR, ms.SNR)
	a.sumZScore.Add(a.sumZScore, ms.ZScore)
	a.sumBCA.Add(a.sumBCA, ms.BCA)
	a.count++
	return true
}

// Count returns the number of files that actually contributed.
func (a *Aggregator) Count() int { return a.count }

// Mean returns the averaged metric set, or nil when no file contributed
// (a label with zero contributions produces no output at all).
func (a *Aggregator) Mean() *MetricSet {
	if a.count == 0 {
		return nil
	}
	scale := 1.0 / float64(a.count)
	avg := func(sum *mat.Dense) *mat.Dense {
		out := mat.DenseCopyOf(sum)
		out.Scale(scale, out)
		return out
	}
	return &MetricSet{
		Label:     a.label,
		Channels:  append([]string(nil), a.channels...),
		Amplitude: avg(a.sumAmplitude),
		SNR:       avg(a.sumSNR),
		ZScore:    avg(a.sumZScore),
		BCA:       avg(a.sumBCA),
	}
}
