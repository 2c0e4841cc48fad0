package spectral

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/spectral"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/mat"

	"github.com/zcm58/fpvs-analysis/epochs"
	"github.com/zcm58/fpvs-analysis/logging"
)

// Params tunes the Welch estimate and the neighbor-exclusion noise model.
type Params struct {
	// WindowSeconds is the nominal Welch window length; it is shortened
	// (with a warning) when epochs are shorter. Overlap is 50%.
	WindowSeconds float64 `json:"window_seconds"`
	// NoiseRange is the neighborhood half-width in bins on each side of
	// a target bin.
	NoiseRange int `json:"noise_range"`
	// NoiseExclude is the number of bins immediately adjacent to the
	// target bin excluded from the noise estimate (1 or 2 depending on
	// the protocol revision in use).
	NoiseExclude int `json:"noise_exclude"`
	// MinNeighbors is the validity floor: fewer usable neighbor bins
	// than this records zero noise mean and std for the target.
	MinNeighbors int `json:"min_neighbors"`
}

// DefaultParams returns the engine parameters the lab's protocol uses.
func DefaultParams() Params {
	return Params{
		WindowSeconds: 8,
		NoiseRange:    12,
		NoiseExclude:  1,
		MinNeighbors:  4,
	}
}

// Validate rejects degenerate parameters before a run starts.
func (p Params) Validate() error {
	if p.WindowSeconds <= 0 {
		return fmt.Errorf("welch window length must be positive")
	}
	if p.NoiseRange <= 0 {
		return fmt.Errorf("noise neighborhood range must be positive")
	}
	if p.NoiseExclude < 1 || p.NoiseExclude > 2 {
		return fmt.Errorf("noise exclusion width must be 1 or 2 bins")
	}
	if p.MinNeighbors < 1 {
		return fmt.Errorf("minimum neighbor count must be positive")
	}
	return nil
}

// MetricSet is the quadruple of [channel x target-frequency] matrices one
// (file, label) pair produces: raw amplitude, SNR, Z-score, and
// baseline-corrected amplitude. All four share the same shape.
type MetricSet struct {
	Label      string
	SourcePath string
	Channels   []string

	Amplitude *mat.Dense
	SNR       *mat.Dense
	ZScore    *mat.Dense
	BCA       *mat.Dense
}

// NumChannels returns the channel-axis length of the matrices.
func (m *MetricSet) NumChannels() int { return len(m.Channels) }

// Engine computes frequency-domain metrics from epoch sets.
type Engine struct {
	params  Params
	targets []float64
	logger  logging.Logger
}

// NewEngine creates a metric engine; nil-safe defaults are not provided,
// callers pass DefaultParams() unless the protocol says otherwise.
func NewEngine(params Params) *Engine {
	return &Engine{
		params:  params,
		targets: TargetFrequencies(),
		logger:  logging.WithFields(logging.Fields{"component": "spectral_engine"}),
	}
}

// Compute derives the metric quadruple for one epoch set. It returns an
// error when the set has no usable epochs; the caller logs and skips that
// file's contribution for the label.
func (e *Engine) Compute(set *epochs.Set) (*MetricSet, error) {
	if set == nil || len(set.Epochs) == 0 {
		return nil, fmt.Errorf("no epochs to analyze")
	}
	epochLen := set.Epochs[0].NumSamples()
	if epochLen == 0 {
		return nil, fmt.Errorf("empty epochs")
	}

	logger := e.logger.WithFields(logging.Fields{
		"label":  set.Label,
		"source": set.SourcePath,
	})

	nfft := int(e.params.WindowSeconds * set.SampleRate)
	if nfft > epochLen {
		logger.Warn("Epochs shorter than analysis window; shortening window", logging.Fields{
			"window_samples": nfft,
			"epoch_samples":  epochLen,
		})
		nfft = epochLen
	}
	if nfft%2 == 1 {
		nfft--
	}
	if nfft < 4 {
		return nil, fmt.Errorf("epochs too short for spectral analysis (%d samples)", epochLen)
	}

	opts := &spectral.PwelchOptions{
		NFFT:     nfft,
		Noverlap: nfft / 2,
		Window:   window.Hann,
	}

	nChannels := set.NumChannels()
	var freqs []float64
	amplitude := make([][]float64, nChannels)

	// Welch PSD per channel, averaged across epochs, then power to
	// amplitude via square root.
	for ch := 0; ch < nChannels; ch++ {
		var avgPower []float64
		for i := range set.Epochs {
			pxx, f := spectral.Pwelch(set.Epochs[i].Data()[ch], set.SampleRate, opts)
			if avgPower == nil {
				avgPower = make([]float64, len(pxx))
				freqs = f
			}
			for b := range pxx {
				avgPower[b] += pxx[b]
			}
		}
		scale := 1.0 / float64(len(set.Epochs))
		amps := make([]float64, len(avgPower))
		for b := range avgPower {
			amps[b] = math.Sqrt(avgPower[b] * scale)
		}
		amplitude[ch] = amps
	}

	ms := &MetricSet{
		Label:      set.Label,
		SourcePath: set.SourcePath,
		Channels:   append([]string(nil), set.ChannelNames...),
		Amplitude:  mat.NewDense(nChannels, TargetCount, nil),
		SNR:        mat.NewDense(nChannels, TargetCount, nil),
		ZScore:     mat.NewDense(nChannels, TargetCount, nil),
		BCA:        mat.NewDense(nChannels, TargetCount, nil),
	}

	for ch := 0; ch < nChannels; ch++ {
		for t, target := range e.targets {
			tb := nearestBin(freqs, target)
			amp := amplitude[ch][tb]
			noiseMean, noiseStd := e.noiseEstimate(amplitude[ch], tb)

			snr := 0.0
			if noiseMean > 1e-12 {
				snr = amp / noiseMean
			}

			z := 0.0
			if noiseStd > 1e-12 {
				z = (localMax(amplitude[ch], tb) - noiseMean) / noiseStd
			}

			ms.Amplitude.Set(ch, t, amp)
			ms.SNR.Set(ch, t, snr)
			ms.ZScore.Set(ch, t, z)
			ms.BCA.Set(ch, t, amp-noiseMean)
		}
	}

	logger.Debug("Computed spectral metrics", logging.Fields{
		"channels": nChannels,
		"epochs":   len(set.Epochs),
		"nfft":     nfft,
	})
	return ms, nil
}

// noiseEstimate returns the mean and population standard deviation of the
// amplitude over the neighborhood of up to NoiseRange bins on each side of
// the target bin, excluding the NoiseExclude bins immediately adjacent to
// it. Fewer than MinNeighbors usable bins yields (0, 0).
func (e *Engine) noiseEstimate(amps []float64, targetBin int) (mean, std float64) {
	n := len(amps)
	lower := max(0, targetBin-e.params.NoiseRange)
	exclStart := max(0, targetBin-e.params.NoiseExclude)
	exclEnd := min(n, targetBin+e.params.NoiseExclude+1)
	upper := min(n, targetBin+e.params.NoiseRange+1)

	var neighbors []float64
	for b := lower; b < exclStart; b++ {
		neighbors = append(neighbors, amps[b])
	}
	for b := exclEnd; b < upper; b++ {
		neighbors = append(neighbors, amps[b])
	}
	if len(neighbors) < e.params.MinNeighbors {
		return 0, 0
	}

	for _, v := range neighbors {
		mean += v
	}
	mean /= float64(len(neighbors))
	for _, v := range neighbors {
		d := v - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(neighbors)))
	return mean, std
}

// localMax returns the largest amplitude among the target bin and its
// immediate one-bin neighbors.
func localMax(amps []float64, targetBin int) float64 {
	lo := max(0, targetBin-1)
	hi := min(len(amps), targetBin+2)
	m := amps[lo]
	for b := lo + 1; b < hi; b++ {
		if amps[b] > m {
			m = amps[b]
		}
	}
	return m
}

// nearestBin finds the index of the frequency bin closest to target.
func nearestBin(freqs []float64, target float64) int {
	best := 0
	bestDist := math.Abs(freqs[0] - target)
	for i := 1; i < len(freqs); i++ {
		if d := math.Abs(freqs[i] - target); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
