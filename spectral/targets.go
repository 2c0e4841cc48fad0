package spectral

// TargetCount is the number of analysis frequencies.
const TargetCount = 14

// TargetFrequencies returns the fixed FPVS analysis frequencies:
// 1.2 Hz through 16.8 Hz in 1.2 Hz steps.
func TargetFrequencies() []float64 {
	freqs := make([]float64, TargetCount)
	for i := range freqs {
		freqs[i] = 1.2 * float64(i+1)
	}
	return freqs
}
